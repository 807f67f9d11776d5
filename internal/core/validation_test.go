package core_test

import (
	"errors"
	"strings"
	"testing"

	"curricore/internal/core"
	"curricore/pkg/domain"
)

func TestValidateStateReportsFieldPaths(t *testing.T) {
	state := fixture()
	state.Program.Title = ""
	state.PEOs = append(state.PEOs, domain.PEO{ID: domain.Pending(71)})
	state.YearSemesters[0].Year = 0
	state.CurriculumCourses[0].Unit = 0
	state.CourseToPOs[0].ContributionLevels = nil

	err := core.ValidateState(state, domain.SectionSetFrom(domain.AllSections()))
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]string{
		"program.title":                             "is required",
		"peos[1].statement":                         "is required",
		"year_semesters[0].year":                    "must be at least 1",
		"curriculum_courses[0].unit":                "must be greater than 0",
		"course_po_mappings[0].contribution_levels": "is required",
	}
	for field, msg := range want {
		if got := verr.Fields[field]; got != msg {
			t.Fatalf("field %s: got %q want %q (all: %v)", field, got, msg, verr.Fields)
		}
	}
	if len(verr.Fields) != len(want) {
		t.Fatalf("unexpected extra fields %v", verr.Fields)
	}
	if !strings.HasPrefix(verr.Error(), "validation failed: course_po_mappings[0]") {
		t.Fatalf("error text must list fields in order, got %q", verr.Error())
	}
}

func TestValidateStateOnlyChecksGivenSections(t *testing.T) {
	state := fixture()
	state.PEOs[0].Statement = ""
	if err := core.ValidateState(state, domain.NewSectionSet(domain.SectionPOs)); err != nil {
		t.Fatalf("peos not submitted, expected nil, got %v", err)
	}
	if err := core.ValidateState(state, domain.NewSectionSet(domain.SectionPEOs)); err == nil {
		t.Fatalf("expected peos failure")
	}
}

func TestValidateStateTreatsPendingIDsAsSet(t *testing.T) {
	state := fixture()
	state.CommitteeAssignments = []domain.CommitteeAssignment{
		{ID: domain.Pending(1), CommitteeID: domain.Persisted(33), CurriculumCourseID: domain.Pending(9)},
		{ID: domain.Pending(2), CommitteeID: domain.Persisted(33)},
	}
	err := core.ValidateState(state, domain.NewSectionSet(domain.SectionCommitteeAssignments))
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields["committee_assignments[1].curriculum_course_id"] != "is required" {
		t.Fatalf("unexpected fields %v", verr.Fields)
	}
}
