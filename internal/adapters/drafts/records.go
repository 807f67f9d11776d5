package drafts

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"curricore/internal/core"
	"curricore/pkg/domain"
)

func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return false
	}
	return true
}

// update binds a T from the body and copies it onto the entity named by the
// :id path parameter. apply decides which fields are editable and may
// refuse the edit.
func update[T any](c *gin.Context, key string, fn func(context.Context, domain.ID, func(*T) error) (T, domain.Result, error), apply func(dst *T, in T) error) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	var in T
	if !bindJSON(c, &in) {
		return
	}
	updated, res, err := fn(c.Request.Context(), id, func(dst *T) error { return apply(dst, in) })
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: updated, "violations": violations(res)})
}

// UpdateProgram edits the program details.
func (h *Handler) UpdateProgram(c *gin.Context) {
	var in domain.Program
	if !bindJSON(c, &in) {
		return
	}
	program, res, err := h.svc.UpdateProgram(c.Request.Context(), func(p *domain.Program) error {
		p.Title, p.Code, p.Description = in.Title, in.Code, in.Description
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": program, "violations": violations(res)})
}

// UpdatePEO edits a PEO statement.
func (h *Handler) UpdatePEO(c *gin.Context) {
	update(c, "peo", h.svc.UpdatePEO, func(dst *domain.PEO, in domain.PEO) error {
		dst.Statement = in.Statement
		return nil
	})
}

// UpdatePO edits a program outcome.
func (h *Handler) UpdatePO(c *gin.Context) {
	update(c, "po", h.svc.UpdateProgramOutcome, func(dst *domain.ProgramOutcome, in domain.ProgramOutcome) error {
		dst.Name, dst.Statement = in.Name, in.Statement
		return nil
	})
}

// CreateCourseCategory adds a category. A code already in use answers 200
// with added=false and leaves the draft untouched.
func (h *Handler) CreateCourseCategory(c *gin.Context) {
	var in domain.CourseCategory
	if !bindJSON(c, &in) {
		return
	}
	in.ID = domain.ID{}
	category, added, res, err := h.svc.AddCourseCategory(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	if !added {
		c.JSON(http.StatusOK, gin.H{"added": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": true, "course_category": category, "violations": violations(res)})
}

// UpdateCourseCategory renames a category; its placements follow the new code.
func (h *Handler) UpdateCourseCategory(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	var in domain.CourseCategory
	if !bindJSON(c, &in) {
		return
	}
	category, updated, res, err := h.svc.UpdateCourseCategory(c.Request.Context(), id, func(cat *domain.CourseCategory) error {
		cat.Name, cat.Code = in.Name, in.Code
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if !updated {
		c.JSON(http.StatusOK, gin.H{"updated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true, "course_category": category, "violations": violations(res)})
}

// DeleteCourseCategory removes a category with its placements.
func (h *Handler) DeleteCourseCategory(c *gin.Context) {
	h.remove(c, h.svc.RemoveCourseCategory)
}

// CreateYearSemester adds a semester slot.
func (h *Handler) CreateYearSemester(c *gin.Context) {
	var in domain.YearSemester
	if !bindJSON(c, &in) {
		return
	}
	in.ID = domain.ID{}
	ys, res, err := h.svc.AddYearSemester(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"year_semester": ys, "violations": violations(res)})
}

// UpdateYearSemester edits a semester slot.
func (h *Handler) UpdateYearSemester(c *gin.Context) {
	update(c, "year_semester", h.svc.UpdateYearSemester, func(dst *domain.YearSemester, in domain.YearSemester) error {
		dst.Year, dst.Semester = in.Year, in.Semester
		return nil
	})
}

// DeleteYearSemester removes a semester slot with the courses placed in it.
func (h *Handler) DeleteYearSemester(c *gin.Context) {
	h.remove(c, h.svc.RemoveYearSemester)
}

type curriculumCourseRequest struct {
	Course    domain.Course           `json:"course"`
	Placement domain.CurriculumCourse `json:"placement"`
}

// CreateCurriculumCourse places a catalog course, adding it to the catalog
// when it has no id yet.
func (h *Handler) CreateCurriculumCourse(c *gin.Context) {
	var in curriculumCourseRequest
	if !bindJSON(c, &in) {
		return
	}
	in.Placement.ID = domain.ID{}
	placed, res, err := h.svc.AddCurriculumCourse(c.Request.Context(), in.Course, in.Placement)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"curriculum_course": placed, "violations": violations(res)})
}

// UpdateCurriculumCourse moves or re-units a placement. The category code is
// derived from the category and cannot be set directly.
func (h *Handler) UpdateCurriculumCourse(c *gin.Context) {
	update(c, "curriculum_course", h.svc.UpdateCurriculumCourse, func(dst *domain.CurriculumCourse, in domain.CurriculumCourse) error {
		if in.Unit <= 0 {
			return &core.ValidationError{Fields: map[string]string{"unit": "must be greater than 0"}}
		}
		dst.CourseID = in.CourseID
		dst.CourseCategoryID = in.CourseCategoryID
		dst.SemesterID = in.SemesterID
		dst.Unit = in.Unit
		return nil
	})
}

// DeleteCurriculumCourse removes a placement with its links.
func (h *Handler) DeleteCurriculumCourse(c *gin.Context) {
	h.remove(c, h.svc.RemoveCurriculumCourse)
}

type committeeRequest struct {
	CommitteeID        domain.ID `json:"committee_id"`
	CurriculumCourseID domain.ID `json:"curriculum_course_id"`
}

// AssignCommittee assigns a committee member to a curriculum course. An
// existing assignment is returned as is.
func (h *Handler) AssignCommittee(c *gin.Context) {
	var in committeeRequest
	if !bindJSON(c, &in) {
		return
	}
	assignment, res, err := h.svc.AssignCommittee(c.Request.Context(), in.CommitteeID, in.CurriculumCourseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"committee_assignment": assignment, "violations": violations(res)})
}

// UnassignCommittee removes a committee assignment.
func (h *Handler) UnassignCommittee(c *gin.Context) {
	h.remove(c, h.svc.UnassignCommittee)
}
