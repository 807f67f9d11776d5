package drafts

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"curricore/internal/wizard"
)

type wizardView struct {
	Position   wizard.Position `json:"position"`
	Transition string          `json:"transition,omitempty"`
}

// step runs move against the sequencer under the handler lock; the
// sequencer itself is not safe for concurrent use.
func (h *Handler) step(c *gin.Context, move func(*wizard.Sequencer) string) {
	h.stepsMu.Lock()
	view := wizardView{Transition: move(h.steps), Position: h.steps.Position()}
	h.stepsMu.Unlock()
	c.JSON(http.StatusOK, view)
}

// GetWizard returns the current wizard position.
func (h *Handler) GetWizard(c *gin.Context) {
	h.step(c, func(*wizard.Sequencer) string { return "" })
}

// NextStep advances the wizard, entering review after the last step.
func (h *Handler) NextStep(c *gin.Context) {
	h.step(c, func(q *wizard.Sequencer) string { return q.Next().String() })
}

// PreviousStep goes back one step. On the first step the transition is
// "exited" and the position does not change.
func (h *Handler) PreviousStep(c *gin.Context) {
	h.step(c, func(q *wizard.Sequencer) string { return q.Previous().String() })
}

type restoreRequest struct {
	Index  int  `json:"index"`
	Review bool `json:"review"`
}

// RestoreStep puts the wizard back where a resumed draft left off.
func (h *Handler) RestoreStep(c *gin.Context) {
	var in restoreRequest
	if !bindJSON(c, &in) {
		return
	}
	h.step(c, func(q *wizard.Sequencer) string {
		q.Restore(in.Index, in.Review)
		return ""
	})
}
