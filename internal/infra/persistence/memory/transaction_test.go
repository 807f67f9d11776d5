package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"curricore/pkg/domain"
)

func TestDeletePEOCascades(t *testing.T) {
	store := newInitialized(t)
	mustRun(t, store, func(tx domain.Transaction) error { return tx.DeletePEO(domain.Persisted(70)) })
	st := store.State()
	for _, ref := range st.References() {
		if ref.Target == domain.EntityPEO {
			t.Fatalf("reference to deleted PEO survived: %+v", ref)
		}
	}
	for _, s := range []domain.Section{domain.SectionPEOs, domain.SectionPEOMissionMappings, domain.SectionGAPEOMappings, domain.SectionPOPEOMappings} {
		if !store.IsModified(s) {
			t.Fatalf("expected %s modified", s)
		}
	}
	if store.IsModified(domain.SectionPOGAMappings) {
		t.Fatalf("untouched registry marked modified")
	}
}

func TestAddThenRemoveProgramOutcome(t *testing.T) {
	store := NewStore(nil)
	seed := domain.State{ProgramOutcomes: []domain.ProgramOutcome{{ID: domain.Persisted(1)}}}
	if err := store.Initialize(context.Background(), seed); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mustRun(t, store, func(tx domain.Transaction) error {
		created, err := tx.CreateProgramOutcome(domain.ProgramOutcome{})
		if err != nil {
			return err
		}
		if created.ID != domain.Pending(2) {
			t.Fatalf("expected pending id 2, got %s", created.ID)
		}
		return nil
	})
	mustRun(t, store, func(tx domain.Transaction) error { return tx.DeleteProgramOutcome(domain.Persisted(1)) })
	st := store.State()
	if len(st.ProgramOutcomes) != 1 || st.ProgramOutcomes[0].ID != domain.Pending(2) {
		t.Fatalf("expected only outcome 2 left, got %+v", st.ProgramOutcomes)
	}
}

func TestDeleteProgramOutcomeCascades(t *testing.T) {
	store := newInitialized(t)
	mustRun(t, store, func(tx domain.Transaction) error { return tx.DeleteProgramOutcome(domain.Persisted(1)) })
	st := store.State()
	if len(st.POPEOs) != 0 || len(st.POGAs) != 0 || len(st.CourseToPOs) != 0 {
		t.Fatalf("expected outcome mappings removed, got %+v", st)
	}
}

func TestDeleteYearSemesterCascadesTransitively(t *testing.T) {
	store := newInitialized(t)
	mustRun(t, store, func(tx domain.Transaction) error { return tx.DeleteYearSemester(domain.Persisted(7)) })
	st := store.State()
	if len(st.CurriculumCourses) != 0 || len(st.CourseToPOs) != 0 || len(st.CommitteeAssignments) != 0 {
		t.Fatalf("expected placements and their dependents removed, got %+v", st)
	}
	if len(st.Courses) != 0 {
		t.Fatalf("expected orphan catalog course removed, got %+v", st.Courses)
	}
	for _, s := range []domain.Section{domain.SectionYearSemesters, domain.SectionCurriculumCourses, domain.SectionCourseToPOMappings, domain.SectionCommitteeAssignments} {
		if !store.IsModified(s) {
			t.Fatalf("expected %s modified", s)
		}
	}
}

func TestDeleteCourseCategoryCascades(t *testing.T) {
	store := newInitialized(t)
	mustRun(t, store, func(tx domain.Transaction) error { return tx.DeleteCourseCategory(domain.Persisted(5)) })
	if st := store.State(); len(st.CurriculumCourses) != 0 || len(st.CommitteeAssignments) != 0 {
		t.Fatalf("expected placements in category removed, got %+v", st)
	}
}

func TestDeleteCurriculumCourseKeepsSharedCourse(t *testing.T) {
	store := newInitialized(t)
	var second domain.CurriculumCourse
	mustRun(t, store, func(tx domain.Transaction) error {
		var err error
		second, err = tx.CreateCurriculumCourse(domain.Course{ID: domain.Persisted(6)}, domain.CurriculumCourse{
			CourseCategoryID: domain.Persisted(5), SemesterID: domain.Persisted(7), Unit: 2,
		})
		return err
	})
	mustRun(t, store, func(tx domain.Transaction) error { return tx.DeleteCurriculumCourse(domain.Persisted(8)) })
	st := store.State()
	if len(st.Courses) != 1 {
		t.Fatalf("course still placed elsewhere must stay, got %+v", st.Courses)
	}
	if len(st.CurriculumCourses) != 1 || st.CurriculumCourses[0].ID != second.ID {
		t.Fatalf("unexpected placements %+v", st.CurriculumCourses)
	}
}

func TestCreateCurriculumCourse(t *testing.T) {
	store := newInitialized(t)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateCurriculumCourse(domain.Course{Code: "IT102"}, domain.CurriculumCourse{
			CourseCategoryID: domain.Persisted(5), SemesterID: domain.Persisted(7),
		})
		return err
	})
	if err == nil {
		t.Fatalf("expected non-positive unit rejected")
	}
	var notFound domain.ErrNotFound
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateCurriculumCourse(domain.Course{Code: "IT102"}, domain.CurriculumCourse{
			CourseCategoryID: domain.Persisted(5), SemesterID: domain.Pending(1), Unit: 3,
		})
		return err
	})
	if !errors.As(err, &notFound) || notFound.Entity != domain.EntityYearSemester {
		t.Fatalf("expected missing semester error, got %v", err)
	}

	mustRun(t, store, func(tx domain.Transaction) error {
		placed, err := tx.CreateCurriculumCourse(domain.Course{Code: "IT102"}, domain.CurriculumCourse{
			CourseCategoryID: domain.Persisted(5), SemesterID: domain.Persisted(7), Unit: 3,
		})
		if err != nil {
			return err
		}
		if placed.CourseID != domain.Pending(7) || placed.CategoryCode != "CC" || placed.ID != domain.Pending(9) {
			t.Fatalf("unexpected placement %+v", placed)
		}
		return nil
	})
}

func TestUpdateCourseCategoryPropagatesCode(t *testing.T) {
	store := newInitialized(t)
	mustRun(t, store, func(tx domain.Transaction) error {
		_, err := tx.UpdateCourseCategory(domain.Persisted(5), func(c *domain.CourseCategory) error {
			c.Code = "GE"
			return nil
		})
		return err
	})
	if got := store.State().CurriculumCourses[0].CategoryCode; got != "GE" {
		t.Fatalf("expected propagated category code, got %q", got)
	}
	if !store.IsModified(domain.SectionCurriculumCourses) {
		t.Fatalf("propagation must mark curriculum courses modified")
	}
}

func TestCourseCategoryCodeUniqueness(t *testing.T) {
	store := newInitialized(t)
	before := store.State().CourseCategories
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateCourseCategory(domain.CourseCategory{Name: "Dup", Code: "cc"})
		return err
	})
	if !errors.Is(err, domain.ErrDuplicateCode) {
		t.Fatalf("expected duplicate code error, got %v", err)
	}
	if !reflect.DeepEqual(before, store.State().CourseCategories) {
		t.Fatalf("duplicate insert changed the collection")
	}
	mustRun(t, store, func(tx domain.Transaction) error {
		added, err := tx.CreateCourseCategory(domain.CourseCategory{Name: "Elective", Code: "EL"})
		if err != nil {
			return err
		}
		_, err = tx.UpdateCourseCategory(added.ID, func(c *domain.CourseCategory) error {
			c.Code = "CC"
			return nil
		})
		if !errors.Is(err, domain.ErrDuplicateCode) {
			t.Fatalf("expected duplicate on rename, got %v", err)
		}
		return nil
	})
}

func TestToggleMappingTwiceRestoresMembership(t *testing.T) {
	store := newInitialized(t)
	cases := []struct {
		name   string
		entity domain.EntityType
		a, b   domain.ID
		toggle func(tx domain.Transaction, a, b domain.ID) (bool, error)
	}{
		{"peo_mission", domain.EntityPEOMission, domain.Persisted(70), domain.Persisted(3), domain.Transaction.TogglePEOMission},
		{"ga_peo", domain.EntityGAPEO, domain.Persisted(4), domain.Persisted(70), domain.Transaction.ToggleGAPEO},
		{"po_peo", domain.EntityPOPEO, domain.Persisted(1), domain.Persisted(70), domain.Transaction.TogglePOPEO},
		{"po_ga", domain.EntityPOGA, domain.Persisted(1), domain.Persisted(4), domain.Transaction.TogglePOGA},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			was := store.State().IsMapped(tc.entity, tc.a, tc.b)
			mustRun(t, store, func(tx domain.Transaction) error {
				linked, err := tc.toggle(tx, tc.a, tc.b)
				if err != nil {
					return err
				}
				if linked == was {
					t.Fatalf("first toggle must flip membership")
				}
				_, err = tc.toggle(tx, tc.a, tc.b)
				return err
			})
			if store.State().IsMapped(tc.entity, tc.a, tc.b) != was {
				t.Fatalf("double toggle changed membership")
			}
		})
	}
}

func TestToggleRejectsMissingEndpoint(t *testing.T) {
	store := newInitialized(t)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.TogglePEOMission(domain.Pending(1), domain.Persisted(3))
		return err
	})
	var notFound domain.ErrNotFound
	if !errors.As(err, &notFound) || notFound.Entity != domain.EntityPEO {
		t.Fatalf("expected missing PEO error, got %v", err)
	}
}

func TestContributionLevelToggle(t *testing.T) {
	store := newInitialized(t)
	course, po := domain.Persisted(8), domain.Persisted(1)
	mustRun(t, store, func(tx domain.Transaction) error {
		levels, err := tx.ToggleCourseToPOLevel(course, po, domain.LevelEnabling)
		if err != nil {
			return err
		}
		if !reflect.DeepEqual(levels, []domain.ContributionLevel{domain.LevelIntroductory, domain.LevelEnabling}) {
			t.Fatalf("unexpected levels after add %v", levels)
		}
		levels, err = tx.ToggleCourseToPOLevel(course, po, domain.LevelEnabling)
		if err != nil {
			return err
		}
		if !reflect.DeepEqual(levels, []domain.ContributionLevel{domain.LevelIntroductory}) {
			t.Fatalf("double toggle must restore the level set, got %v", levels)
		}
		levels, err = tx.ToggleCourseToPOLevel(course, po, domain.LevelIntroductory)
		if err != nil {
			return err
		}
		if len(levels) != 0 {
			t.Fatalf("expected empty levels after removing the last one, got %v", levels)
		}
		return nil
	})
	if len(store.State().CourseToPOs) != 0 {
		t.Fatalf("removing the last level must drop the mapping")
	}
}

func TestCourseToPOMappingLifecycle(t *testing.T) {
	store := NewStore(nil)
	seed := domain.State{
		ProgramOutcomes:   []domain.ProgramOutcome{{ID: domain.Persisted(9)}},
		CourseCategories:  []domain.CourseCategory{{ID: domain.Persisted(1), Code: "CC"}},
		Courses:           []domain.Course{{ID: domain.Persisted(2)}},
		YearSemesters:     []domain.YearSemester{{ID: domain.Persisted(3), Year: 1}},
		CurriculumCourses: []domain.CurriculumCourse{{ID: domain.Persisted(5), CourseID: domain.Persisted(2), CourseCategoryID: domain.Persisted(1), SemesterID: domain.Persisted(3), Unit: 3}},
	}
	if err := store.Initialize(context.Background(), seed); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mustRun(t, store, func(tx domain.Transaction) error {
		return tx.SetCourseToPOLevels(domain.Persisted(5), domain.Persisted(9), []domain.ContributionLevel{"I"})
	})
	want := []domain.CourseToPO{{CourseID: domain.Persisted(5), POID: domain.Persisted(9), ContributionLevels: []domain.ContributionLevel{domain.LevelIntroductory}}}
	if got := store.State().CourseToPOs; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected mappings %+v", got)
	}
	mustRun(t, store, func(tx domain.Transaction) error {
		return tx.SetCourseToPOLevels(domain.Persisted(5), domain.Persisted(9), nil)
	})
	if got := store.State().CourseToPOs; len(got) != 0 {
		t.Fatalf("expected mapping removed, got %+v", got)
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.SetCourseToPOLevels(domain.Persisted(5), domain.Persisted(9), []domain.ContributionLevel{"Z"})
	})
	if err == nil {
		t.Fatalf("expected unknown level rejected")
	}
}

func TestCommitteeAssignments(t *testing.T) {
	store := newInitialized(t)
	mustRun(t, store, func(tx domain.Transaction) error {
		existing, err := tx.CreateCommitteeAssignment(domain.CommitteeAssignment{CommitteeID: domain.Persisted(11), CurriculumCourseID: domain.Persisted(8)})
		if err != nil {
			return err
		}
		if existing.ID != domain.Persisted(9) {
			t.Fatalf("duplicate assignment must return the existing one, got %+v", existing)
		}
		return tx.DeleteCommitteeAssignment(domain.Persisted(9))
	})
	if len(store.State().CommitteeAssignments) != 0 {
		t.Fatalf("expected assignment removed")
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteCommitteeAssignment(domain.Persisted(9))
	})
	var notFound domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateProgramKeepsID(t *testing.T) {
	store := newInitialized(t)
	mustRun(t, store, func(tx domain.Transaction) error {
		_, err := tx.UpdateProgram(func(p *domain.Program) error {
			p.ID = domain.Persisted(42)
			p.Title = "BS Information Technology"
			return nil
		})
		return err
	})
	program := store.State().Program
	if program.ID != domain.Persisted(1) || program.Title != "BS Information Technology" {
		t.Fatalf("unexpected program %+v", program)
	}
	if !store.IsModified(domain.SectionProgram) {
		t.Fatalf("expected program modified")
	}
}
