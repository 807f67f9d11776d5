package drafts

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"curricore/internal/core"
	"curricore/pkg/domain"
)

type toggleRequest struct {
	PEOID     domain.ID `json:"peo_id"`
	MissionID domain.ID `json:"mission_id"`
	GAID      domain.ID `json:"ga_id"`
	POID      domain.ID `json:"po_id"`
}

type toggleFunc func(ctx context.Context, a, b domain.ID) (bool, domain.Result, error)

// registry describes one boolean mapping grid: the two body fields naming a
// cell and the service call that flips it.
type registry struct {
	fields [2]string
	pick   func(toggleRequest) (domain.ID, domain.ID)
	toggle func(*core.Service) toggleFunc
}

var registries = map[string]registry{
	"peo-missions": {
		fields: [2]string{"peo_id", "mission_id"},
		pick:   func(r toggleRequest) (domain.ID, domain.ID) { return r.PEOID, r.MissionID },
		toggle: func(s *core.Service) toggleFunc { return s.TogglePEOMission },
	},
	"ga-peos": {
		fields: [2]string{"ga_id", "peo_id"},
		pick:   func(r toggleRequest) (domain.ID, domain.ID) { return r.GAID, r.PEOID },
		toggle: func(s *core.Service) toggleFunc { return s.ToggleGAPEO },
	},
	"po-peos": {
		fields: [2]string{"po_id", "peo_id"},
		pick:   func(r toggleRequest) (domain.ID, domain.ID) { return r.POID, r.PEOID },
		toggle: func(s *core.Service) toggleFunc { return s.TogglePOPEO },
	},
	"po-gas": {
		fields: [2]string{"po_id", "ga_id"},
		pick:   func(r toggleRequest) (domain.ID, domain.ID) { return r.POID, r.GAID },
		toggle: func(s *core.Service) toggleFunc { return s.TogglePOGA },
	},
}

// ToggleMapping flips one cell of a boolean mapping grid.
func (h *Handler) ToggleMapping(c *gin.Context) {
	reg, ok := registries[c.Param("registry")]
	if !ok {
		c.JSON(http.StatusNotFound, errorBody{Error: "unknown mapping " + c.Param("registry")})
		return
	}
	var in toggleRequest
	if !bindJSON(c, &in) {
		return
	}
	a, b := reg.pick(in)
	fields := map[string]string{}
	if a.IsZero() {
		fields[reg.fields[0]] = "is required"
	}
	if b.IsZero() {
		fields[reg.fields[1]] = "is required"
	}
	if len(fields) > 0 {
		respondError(c, &core.ValidationError{Fields: fields})
		return
	}
	linked, res, err := reg.toggle(h.svc)(c.Request.Context(), a, b)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		reg.fields[0]: a,
		reg.fields[1]: b,
		"linked":      linked,
		"violations":  violations(res),
	})
}

type levelToggleRequest struct {
	CourseID domain.ID `json:"course_id"`
	POID     domain.ID `json:"po_id"`
	Level    string    `json:"level"`
}

// ToggleCourseToPOLevel flips one contribution level of a Course to PO cell.
func (h *Handler) ToggleCourseToPOLevel(c *gin.Context) {
	var in levelToggleRequest
	if !bindJSON(c, &in) {
		return
	}
	level, err := domain.ParseContributionLevel(in.Level)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Fields: map[string]string{"level": "must be I, E or D"}})
		return
	}
	levels, res, err := h.svc.ToggleCourseToPOLevel(c.Request.Context(), in.CourseID, in.POID, level)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"course_id":           in.CourseID,
		"po_id":               in.POID,
		"contribution_levels": levels,
		"violations":          violations(res),
	})
}
