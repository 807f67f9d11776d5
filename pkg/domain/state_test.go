package domain

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func sampleState() State {
	return State{
		Program:            Program{ID: Persisted(1), Title: "BS Computer Science", Code: "BSCS"},
		PEOs:               []PEO{{ID: Persisted(70), Statement: "Lead"}},
		ProgramOutcomes:    []ProgramOutcome{{ID: Persisted(1), Name: "PO1", Statement: "Apply"}},
		Missions:           []Mission{{ID: Persisted(3), MissionNo: 1}},
		GraduateAttributes: []GraduateAttribute{{ID: Persisted(4), GANo: 1}},
		CourseCategories:   []CourseCategory{{ID: Persisted(5), Name: "Core", Code: "CC"}},
		Courses:            []Course{{ID: Persisted(6), Code: "CS101"}},
		YearSemesters:      []YearSemester{{ID: Persisted(7), Year: 1, Semester: "first"}},
		CurriculumCourses: []CurriculumCourse{{
			ID: Persisted(8), CourseID: Persisted(6), CourseCategoryID: Persisted(5), CategoryCode: "CC", SemesterID: Persisted(7), Unit: 3,
		}},
		CommitteeAssignments: []CommitteeAssignment{{ID: Persisted(9), CommitteeID: Persisted(11), CurriculumCourseID: Persisted(8)}},
		PEOMissions:          []PEOMission{{PEOID: Persisted(70), MissionID: Persisted(3)}},
		GAPEOs:               []GAPEO{{GAID: Persisted(4), PEOID: Persisted(70)}},
		POPEOs:               []POPEO{{POID: Persisted(1), PEOID: Persisted(70)}},
		POGAs:                []POGA{{POID: Persisted(1), GAID: Persisted(4)}},
		CourseToPOs:          []CourseToPO{{CourseID: Persisted(8), POID: Persisted(1), ContributionLevels: []ContributionLevel{LevelIntroductory}}},
	}
}

func TestStateCloneIsDeep(t *testing.T) {
	st := sampleState()
	cp := st.Clone()
	cp.PEOs[0].Statement = "changed"
	cp.CourseToPOs[0].ContributionLevels[0] = LevelDevelopment
	if st.PEOs[0].Statement != "Lead" {
		t.Fatalf("clone shares PEO storage")
	}
	if st.CourseToPOs[0].ContributionLevels[0] != LevelIntroductory {
		t.Fatalf("clone shares level storage")
	}
	if !reflect.DeepEqual(sampleState(), st) {
		t.Fatalf("original mutated")
	}
}

func TestStateLookups(t *testing.T) {
	st := sampleState()
	if !st.Has(EntityPEO, Persisted(70)) || st.Has(EntityPEO, Pending(70)) {
		t.Fatalf("Has must respect the id variant")
	}
	if !st.IsMapped(EntityPEOMission, Persisted(70), Persisted(3)) {
		t.Fatalf("expected PEO mission mapping")
	}
	if st.IsMapped(EntityPEOMission, Persisted(3), Persisted(70)) {
		t.Fatalf("mapping pairs are ordered")
	}
	if !st.IsMapped(EntityCourseToPO, Persisted(8), Persisted(1)) {
		t.Fatalf("expected course to PO mapping")
	}
	if levels := st.Levels(Persisted(8), Persisted(2)); len(levels) != 0 {
		t.Fatalf("expected empty levels for unmapped pair, got %v", levels)
	}
	if st.IDs(EntityPOGA) != nil {
		t.Fatalf("mapping entities carry no ids")
	}
	if (State{}).IDs(EntityProgram) != nil {
		t.Fatalf("unset program has no id")
	}
}

func TestCategoryCodeTaken(t *testing.T) {
	st := sampleState()
	if !st.CategoryCodeTaken(" cc ", Pending(1)) {
		t.Fatalf("expected case-insensitive match")
	}
	if st.CategoryCodeTaken("CC", Persisted(5)) {
		t.Fatalf("a category does not collide with itself")
	}
	if st.CategoryCodeTaken("", Pending(1)) {
		t.Fatalf("blank codes never collide")
	}
}

func TestPruneDanglingCascades(t *testing.T) {
	st := sampleState()
	st.YearSemesters = nil
	changed := st.PruneDangling(nil)
	if len(st.CurriculumCourses) != 0 || len(st.CourseToPOs) != 0 || len(st.CommitteeAssignments) != 0 {
		t.Fatalf("expected transitive prune, got %+v", st)
	}
	for _, s := range []Section{SectionCurriculumCourses, SectionCourseToPOMappings, SectionCommitteeAssignments} {
		if !changed.Has(s) {
			t.Fatalf("expected %s reported changed, got %v", s, changed.Sorted())
		}
	}
	if len(st.DanglingReferences()) != 0 {
		t.Fatalf("expected no dangling references after prune")
	}
}

func TestPruneDanglingKeepFilter(t *testing.T) {
	st := sampleState()
	st.PEOs = nil
	changed := st.PruneDangling(func(ref Reference) bool { return ref.Section == SectionGAPEOMappings })
	if len(st.GAPEOs) != 1 {
		t.Fatalf("kept references must survive")
	}
	if len(st.PEOMissions) != 0 || len(st.POPEOs) != 0 {
		t.Fatalf("expected other PEO references dropped")
	}
	if changed.Has(SectionGAPEOMappings) {
		t.Fatalf("kept section reported changed")
	}
}

func TestReferentialIntegrityRule(t *testing.T) {
	st := sampleState()
	res, err := ReferentialIntegrityRule().Evaluate(context.Background(), st, nil)
	if err != nil || res.HasBlocking() {
		t.Fatalf("expected clean state, got %+v err %v", res, err)
	}
	st.Missions = nil
	res, err = ReferentialIntegrityRule().Evaluate(context.Background(), st, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() || res.Violations[0].Section != SectionPEOMissionMappings {
		t.Fatalf("expected blocking violation on peo mission mappings, got %+v", res)
	}
}

func TestCategoryCodeUniqueRule(t *testing.T) {
	st := sampleState()
	st.CourseCategories = append(st.CourseCategories, CourseCategory{ID: Pending(6), Name: "Dup", Code: "cc"})
	res, err := CategoryCodeUniqueRule().Evaluate(context.Background(), st, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || !res.HasBlocking() {
		t.Fatalf("expected both colliding categories flagged, got %+v", res)
	}
}

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{})
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "nope"}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	if got := (RuleViolationError{Result: result}).Error(); got != "transaction blocked by rules: nope" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := (RuleViolationError{}).Error(); got != "transaction blocked by rules" {
		t.Fatalf("unexpected empty error string %q", got)
	}
}

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(NewRule("warn", func(context.Context, State, []Change) (Result, error) {
		return Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}}, nil
	}))
	res, err := engine.Evaluate(context.Background(), State{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected violation")
	}

	boom := errors.New("boom")
	engine.Register(NewRule("error", func(context.Context, State, []Change) (Result, error) {
		return Result{}, boom
	}))
	if _, err := engine.Evaluate(context.Background(), State{}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped evaluation error, got %v", err)
	}
}

func TestParseContributionLevel(t *testing.T) {
	for raw, want := range map[string]ContributionLevel{"i": LevelIntroductory, " E": LevelEnabling, "D": LevelDevelopment} {
		got, err := ParseContributionLevel(raw)
		if err != nil || got != want {
			t.Fatalf("parse %q: got %q err %v", raw, got, err)
		}
	}
	if _, err := ParseContributionLevel("X"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if got := (ErrNotFound{Entity: EntityPEO, ID: Pending(2)}).Error(); got != fmt.Sprintf("peo %s not found", Pending(2)) {
		t.Fatalf("unexpected not found message %q", got)
	}
}
