package reconcile

import (
	"fmt"

	"curricore/pkg/domain"
)

// Payload maps each modified section to its reconciled collection. Sections
// without modifications are absent.
type Payload map[domain.Section]any

// Sections lists the payload keys in wizard order.
func (p Payload) Sections() []domain.Section {
	set := domain.NewSectionSet()
	for s := range p {
		set.Add(s)
	}
	return set.Sorted()
}

// Reconciler classifies identifiers against the baseline captured when the
// draft was initialised. The baseline is the only authority on which
// persisted ids already exist server side.
type Reconciler struct {
	baseline domain.State
}

// New returns a reconciler for drafts initialised from baseline.
func New(baseline domain.State) *Reconciler {
	return &Reconciler{baseline: baseline.Clone()}
}

type run struct {
	baseline domain.State
	current  domain.State
	section  domain.Section
}

type sectionHandler func(r *run) (any, error)

var handlers = map[domain.Section]sectionHandler{
	domain.SectionProgram:              reconcileProgram,
	domain.SectionPEOs:                 reconcilePEOs,
	domain.SectionPEOMissionMappings:   reconcilePEOMissions,
	domain.SectionGAPEOMappings:        reconcileGAPEOs,
	domain.SectionPOs:                  reconcilePOs,
	domain.SectionPOPEOMappings:        reconcilePOPEOs,
	domain.SectionPOGAMappings:         reconcilePOGAs,
	domain.SectionCourseCategories:     reconcileCourseCategories,
	domain.SectionYearSemesters:        reconcileYearSemesters,
	domain.SectionCurriculumCourses:    reconcileCurriculumCourses,
	domain.SectionCourseToPOMappings:   reconcileCourseToPOs,
	domain.SectionCommitteeAssignments: reconcileCommitteeAssignments,
}

func init() {
	for _, s := range domain.AllSections() {
		if _, ok := handlers[s]; !ok {
			panic(fmt.Sprintf("reconcile: section %q has no handler", s))
		}
	}
}

// Reconcile builds the payload for the modified sections of current. The
// input state is cloned first and never mutated.
func (rc *Reconciler) Reconcile(current domain.State, modified domain.SectionSet) (Payload, error) {
	r := &run{baseline: rc.baseline, current: current.Clone()}
	payload := make(Payload, len(modified))
	for _, section := range modified.Sorted() {
		r.section = section
		out, err := handlers[section](r)
		if err != nil {
			return nil, err
		}
		payload[section] = out
	}
	return payload, nil
}

// own classifies a record's own identifier. Pending ids become new tokens; a
// persisted id must already exist in the baseline.
func (r *run) own(entity domain.EntityType, i int, id domain.ID) (Ref, error) {
	if id.IsPending() || r.baseline.Has(entity, id) {
		return Ref{id: id}, nil
	}
	return Ref{}, &IntegrityError{Section: r.section, Index: i, Field: "id", Target: entity, ID: id}
}

// ref classifies a foreign key. It must name a record in the current draft:
// pending ids only resolve to records pending creation, persisted ids to
// records the backend already holds.
func (r *run) ref(target domain.EntityType, i int, field string, id domain.ID) (Ref, error) {
	if !id.IsZero() && r.current.Has(target, id) {
		return Ref{id: id}, nil
	}
	return Ref{}, &IntegrityError{Section: r.section, Index: i, Field: field, Target: target, ID: id}
}

// external classifies a key into data the draft does not hold (e.g. users).
// Only persisted ids can name such records.
func (r *run) external(target domain.EntityType, i int, field string, id domain.ID) (Ref, error) {
	if id.IsPersisted() {
		return Ref{id: id}, nil
	}
	return Ref{}, &IntegrityError{Section: r.section, Index: i, Field: field, Target: target, ID: id}
}

func reconcileProgram(r *run) (any, error) {
	// The program id is assigned by the backend when the proposal is created,
	// so it is passed through as is.
	p := r.current.Program
	return ProgramRecord{ID: Ref{id: p.ID}, Title: p.Title, Code: p.Code, Description: p.Description}, nil
}

func reconcilePEOs(r *run) (any, error) {
	out := make([]PEORecord, 0, len(r.current.PEOs))
	for i, p := range r.current.PEOs {
		id, err := r.own(domain.EntityPEO, i, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, PEORecord{ID: id, Statement: p.Statement})
	}
	return out, nil
}

func reconcilePOs(r *run) (any, error) {
	out := make([]PORecord, 0, len(r.current.ProgramOutcomes))
	for i, p := range r.current.ProgramOutcomes {
		id, err := r.own(domain.EntityProgramOutcome, i, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, PORecord{ID: id, Name: p.Name, Statement: p.Statement})
	}
	return out, nil
}

func reconcilePEOMissions(r *run) (any, error) {
	out := make([]PEOMissionRecord, 0, len(r.current.PEOMissions))
	for i, m := range r.current.PEOMissions {
		peo, err := r.ref(domain.EntityPEO, i, "peo_id", m.PEOID)
		if err != nil {
			return nil, err
		}
		mission, err := r.ref(domain.EntityMission, i, "mission_id", m.MissionID)
		if err != nil {
			return nil, err
		}
		out = append(out, PEOMissionRecord{PEOID: peo, MissionID: mission})
	}
	return out, nil
}

func reconcileGAPEOs(r *run) (any, error) {
	out := make([]GAPEORecord, 0, len(r.current.GAPEOs))
	for i, m := range r.current.GAPEOs {
		ga, err := r.ref(domain.EntityGraduateAttribute, i, "ga_id", m.GAID)
		if err != nil {
			return nil, err
		}
		peo, err := r.ref(domain.EntityPEO, i, "peo_id", m.PEOID)
		if err != nil {
			return nil, err
		}
		out = append(out, GAPEORecord{GAID: ga, PEOID: peo})
	}
	return out, nil
}

func reconcilePOPEOs(r *run) (any, error) {
	out := make([]POPEORecord, 0, len(r.current.POPEOs))
	for i, m := range r.current.POPEOs {
		po, err := r.ref(domain.EntityProgramOutcome, i, "po_id", m.POID)
		if err != nil {
			return nil, err
		}
		peo, err := r.ref(domain.EntityPEO, i, "peo_id", m.PEOID)
		if err != nil {
			return nil, err
		}
		out = append(out, POPEORecord{POID: po, PEOID: peo})
	}
	return out, nil
}

func reconcilePOGAs(r *run) (any, error) {
	out := make([]POGARecord, 0, len(r.current.POGAs))
	for i, m := range r.current.POGAs {
		po, err := r.ref(domain.EntityProgramOutcome, i, "po_id", m.POID)
		if err != nil {
			return nil, err
		}
		ga, err := r.ref(domain.EntityGraduateAttribute, i, "ga_id", m.GAID)
		if err != nil {
			return nil, err
		}
		out = append(out, POGARecord{POID: po, GAID: ga})
	}
	return out, nil
}

func reconcileCourseCategories(r *run) (any, error) {
	out := make([]CourseCategoryRecord, 0, len(r.current.CourseCategories))
	for i, c := range r.current.CourseCategories {
		id, err := r.own(domain.EntityCourseCategory, i, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, CourseCategoryRecord{ID: id, Name: c.Name, Code: c.Code})
	}
	return out, nil
}

func reconcileYearSemesters(r *run) (any, error) {
	out := make([]YearSemesterRecord, 0, len(r.current.YearSemesters))
	for i, ys := range r.current.YearSemesters {
		id, err := r.own(domain.EntityYearSemester, i, ys.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, YearSemesterRecord{ID: id, Year: ys.Year, Semester: ys.Semester})
	}
	return out, nil
}

func reconcileCurriculumCourses(r *run) (any, error) {
	out := make([]CurriculumCourseRecord, 0, len(r.current.CurriculumCourses))
	for i, cc := range r.current.CurriculumCourses {
		id, err := r.own(domain.EntityCurriculumCourse, i, cc.ID)
		if err != nil {
			return nil, err
		}
		// Catalog courses may carry persisted ids from a catalog search that
		// the baseline never held; they only need to be present in the draft.
		course, err := r.ref(domain.EntityCourse, i, "course_id", cc.CourseID)
		if err != nil {
			return nil, err
		}
		category, err := r.ref(domain.EntityCourseCategory, i, "course_category_id", cc.CourseCategoryID)
		if err != nil {
			return nil, err
		}
		semester, err := r.ref(domain.EntityYearSemester, i, "semester_id", cc.SemesterID)
		if err != nil {
			return nil, err
		}
		rec := CurriculumCourseRecord{
			ID:               id,
			CourseID:         course,
			CourseCategoryID: category,
			CategoryCode:     cc.CategoryCode,
			SemesterID:       semester,
			Unit:             cc.Unit,
		}
		if idx := domain.IndexOf(r.current.Courses, cc.CourseID, func(c domain.Course) domain.ID { return c.ID }); idx >= 0 {
			rec.CourseCode = r.current.Courses[idx].Code
			rec.DescriptiveTitle = r.current.Courses[idx].DescriptiveTitle
		}
		out = append(out, rec)
	}
	return out, nil
}

func reconcileCourseToPOs(r *run) (any, error) {
	out := make([]CourseToPORecord, 0, len(r.current.CourseToPOs))
	for i, m := range r.current.CourseToPOs {
		if len(m.ContributionLevels) == 0 {
			continue
		}
		course, err := r.ref(domain.EntityCurriculumCourse, i, "course_id", m.CourseID)
		if err != nil {
			return nil, err
		}
		po, err := r.ref(domain.EntityProgramOutcome, i, "po_id", m.POID)
		if err != nil {
			return nil, err
		}
		out = append(out, CourseToPORecord{CourseID: course, POID: po, ContributionLevels: m.ContributionLevels})
	}
	return out, nil
}

func reconcileCommitteeAssignments(r *run) (any, error) {
	out := make([]CommitteeAssignmentRecord, 0, len(r.current.CommitteeAssignments))
	for i, a := range r.current.CommitteeAssignments {
		id, err := r.own(domain.EntityCommitteeAssignment, i, a.ID)
		if err != nil {
			return nil, err
		}
		committee, err := r.external("committee_member", i, "committee_id", a.CommitteeID)
		if err != nil {
			return nil, err
		}
		course, err := r.ref(domain.EntityCurriculumCourse, i, "curriculum_course_id", a.CurriculumCourseID)
		if err != nil {
			return nil, err
		}
		out = append(out, CommitteeAssignmentRecord{ID: id, CommitteeID: committee, CurriculumCourseID: course})
	}
	return out, nil
}
