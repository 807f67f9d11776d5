// Package drafts exposes the draft service over HTTP for the wizard UI.
package drafts

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"curricore/internal/client"
	"curricore/internal/core"
	"curricore/internal/reconcile"
	"curricore/internal/refcache"
	"curricore/internal/wizard"
	"curricore/pkg/domain"
)

// BasePath is where Register mounts the routes.
const BasePath = "/api/v1/draft"

// Handler serves one draft.
type Handler struct {
	svc *core.Service
	sub *core.Submitter

	stepsMu sync.Mutex
	steps   *wizard.Sequencer
	refs    *refcache.Cache
}

// Option customises a Handler.
type Option func(*Handler)

// WithWizard exposes the wizard position under /wizard.
func WithWizard(steps *wizard.Sequencer) Option {
	return func(h *Handler) { h.steps = steps }
}

// WithReferences exposes the reference lists under /refs.
func WithReferences(refs *refcache.Cache) Option {
	return func(h *Handler) { h.refs = refs }
}

// NewHandler binds the handler to a service and its submitter.
func NewHandler(svc *core.Service, sub *core.Submitter, opts ...Option) *Handler {
	h := &Handler{svc: svc, sub: sub}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the draft routes on r. Wizard and reference routes are
// only mounted when configured.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group(BasePath)
	g.GET("", h.GetDraft)
	g.GET("/payload", h.GetPayload)
	g.POST("/sections/:section/reset", h.ResetSection)
	g.PUT("/program", h.UpdateProgram)
	g.POST("/peos", h.CreatePEO)
	g.PUT("/peos/:id", h.UpdatePEO)
	g.DELETE("/peos/:id", h.DeletePEO)
	g.POST("/pos", h.CreatePO)
	g.PUT("/pos/:id", h.UpdatePO)
	g.DELETE("/pos/:id", h.DeletePO)
	g.POST("/mappings/:registry/toggle", h.ToggleMapping)
	g.PUT("/course-po-mappings", h.PutCourseToPO)
	g.POST("/course-po-mappings/toggle", h.ToggleCourseToPOLevel)
	g.POST("/course-categories", h.CreateCourseCategory)
	g.PUT("/course-categories/:id", h.UpdateCourseCategory)
	g.DELETE("/course-categories/:id", h.DeleteCourseCategory)
	g.POST("/year-semesters", h.CreateYearSemester)
	g.PUT("/year-semesters/:id", h.UpdateYearSemester)
	g.DELETE("/year-semesters/:id", h.DeleteYearSemester)
	g.POST("/curriculum-courses", h.CreateCurriculumCourse)
	g.PUT("/curriculum-courses/:id", h.UpdateCurriculumCourse)
	g.DELETE("/curriculum-courses/:id", h.DeleteCurriculumCourse)
	g.POST("/committee-assignments", h.AssignCommittee)
	g.DELETE("/committee-assignments/:id", h.UnassignCommittee)
	g.POST("/submit", h.Submit)
	if h.steps != nil {
		g.GET("/wizard", h.GetWizard)
		g.POST("/wizard/next", h.NextStep)
		g.POST("/wizard/previous", h.PreviousStep)
		g.POST("/wizard/restore", h.RestoreStep)
	}
	if h.refs != nil {
		g.GET("/refs/:resource", h.ListReferences)
		g.POST("/refs/:resource/refetch", h.RefetchReferences)
		g.DELETE("/refs/:resource/:id", h.DeleteReference)
	}
}

type errorBody struct {
	Error      string            `json:"error"`
	Fields     map[string]string `json:"fields,omitempty"`
	Violations []violationView   `json:"violations,omitempty"`
}

type violationView struct {
	Rule     string            `json:"rule"`
	Severity domain.Severity   `json:"severity"`
	Message  string            `json:"message"`
	Section  domain.Section    `json:"section,omitempty"`
	Entity   domain.EntityType `json:"entity,omitempty"`
	EntityID domain.ID         `json:"entity_id"`
}

func violations(res domain.Result) []violationView {
	out := make([]violationView, 0, len(res.Violations))
	for _, v := range res.Violations {
		out = append(out, violationView{Rule: v.Rule, Severity: v.Severity, Message: v.Message, Section: v.Section, Entity: v.Entity, EntityID: v.EntityID})
	}
	return out
}

func respondError(c *gin.Context, err error) {
	var (
		verr     *core.ValidationError
		notFound domain.ErrNotFound
		rule     domain.RuleViolationError
		integ    *reconcile.IntegrityError
		apiErr   *client.APIError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, errorBody{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, domain.ErrUnknownSection), errors.Is(err, domain.ErrInvalidID):
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, errorBody{Error: notFound.Error()})
	case errors.As(err, &rule):
		c.JSON(http.StatusConflict, errorBody{Error: "rule violation", Violations: violations(rule.Result)})
	case errors.As(err, &integ):
		c.JSON(http.StatusConflict, errorBody{Error: integ.Error()})
	case errors.Is(err, core.ErrSubmissionInFlight), errors.Is(err, core.ErrNothingToSubmit), errors.Is(err, domain.ErrDraftFrozen):
		c.JSON(http.StatusConflict, errorBody{Error: err.Error()})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, errorBody{Error: apiErr.DisplayMessage(), Fields: apiErr.Fields})
	default:
		c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

// parseID accepts a persisted id ("12") or a pending one ("new_3"), the same
// text the draft views carry.
func parseID(raw string) (domain.ID, error) { return domain.ParseID(raw) }

type draftView struct {
	State    domain.State     `json:"state"`
	Modified []domain.Section `json:"modified"`
}

// GetDraft returns the live draft and its modified sections.
func (h *Handler) GetDraft(c *gin.Context) {
	c.JSON(http.StatusOK, draftView{State: h.svc.State(), Modified: h.svc.ModifiedSections().Sorted()})
}

// GetPayload returns the reconciled payload without sending it.
func (h *Handler) GetPayload(c *gin.Context) {
	payload, err := h.sub.Preview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// ResetSection restores one section from the baseline.
func (h *Handler) ResetSection(c *gin.Context) {
	section, err := domain.ParseSection(c.Param("section"))
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.svc.ResetSection(c.Request.Context(), section)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"section": section, "violations": violations(res)})
}

// CreatePEO adds a PEO.
func (h *Handler) CreatePEO(c *gin.Context) {
	var in domain.PEO
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	in.ID = domain.ID{}
	peo, res, err := h.svc.AddPEO(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"peo": peo, "violations": violations(res)})
}

// DeletePEO removes a PEO and its links.
func (h *Handler) DeletePEO(c *gin.Context) {
	h.remove(c, h.svc.RemovePEO)
}

// CreatePO adds a program outcome.
func (h *Handler) CreatePO(c *gin.Context) {
	var in domain.ProgramOutcome
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	in.ID = domain.ID{}
	po, res, err := h.svc.AddProgramOutcome(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"po": po, "violations": violations(res)})
}

// DeletePO removes a program outcome and its links.
func (h *Handler) DeletePO(c *gin.Context) {
	h.remove(c, h.svc.RemoveProgramOutcome)
}

func (h *Handler) remove(c *gin.Context, fn func(context.Context, domain.ID) (domain.Result, error)) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id, "violations": violations(res)})
}

type courseToPORequest struct {
	CourseID           domain.ID `json:"course_id"`
	POID               domain.ID `json:"po_id"`
	ContributionLevels []string  `json:"contribution_levels"`
}

// PutCourseToPO replaces the levels of one Course to PO mapping.
func (h *Handler) PutCourseToPO(c *gin.Context) {
	var in courseToPORequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	levels := make([]domain.ContributionLevel, 0, len(in.ContributionLevels))
	for _, raw := range in.ContributionLevels {
		level, err := domain.ParseContributionLevel(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Fields: map[string]string{"contribution_levels": "must be I, E or D"}})
			return
		}
		levels = append(levels, level)
	}
	res, err := h.svc.UpdateCourseToPOMapping(c.Request.Context(), in.CourseID, in.POID, levels)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"course_id":           in.CourseID,
		"po_id":               in.POID,
		"contribution_levels": h.svc.Levels(in.CourseID, in.POID),
		"violations":          violations(res),
	})
}

type submitRequest struct {
	Resource string    `json:"resource"`
	ID       domain.ID `json:"id"`
}

// Submit sends the draft to the backend.
func (h *Handler) Submit(c *gin.Context) {
	var in submitRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if strings.TrimSpace(in.Resource) == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: "validation failed", Fields: map[string]string{"resource": "is required"}})
		return
	}
	receipt, err := h.sub.Submit(c.Request.Context(), core.Target{Resource: in.Resource, ID: in.ID})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"submission_id": receipt.SubmissionID,
		"revision":      receipt.Revision,
		"sections":      receipt.Sections,
		"archive_key":   receipt.ArchiveKey,
		"response":      receipt.Response,
	})
}
