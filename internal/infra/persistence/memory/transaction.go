package memory

import (
	"fmt"
	"strings"

	"curricore/pkg/domain"
)

// transaction is the mutable working copy handed to RunInTransaction callbacks.
type transaction struct {
	state   domain.State
	changes []domain.Change
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// State returns a copy of the transactional state.
func (tx *transaction) State() domain.State {
	return tx.state.Clone()
}

func peoID(v domain.PEO) domain.ID { return v.ID }
func poID(v domain.ProgramOutcome) domain.ID { return v.ID }
func categoryID(v domain.CourseCategory) domain.ID { return v.ID }
func semesterID(v domain.YearSemester) domain.ID { return v.ID }
func courseID(v domain.Course) domain.ID { return v.ID }
func placementID(v domain.CurriculumCourse) domain.ID { return v.ID }
func assignmentID(v domain.CommitteeAssignment) domain.ID { return v.ID }

// removeWhere drops the items matching pred and returns the survivors and the
// removed records.
func removeWhere[T any](items []T, pred func(T) bool) ([]T, []T) {
	var kept, removed []T
	for _, item := range items {
		if pred(item) {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	return kept, removed
}

func (tx *transaction) cascade(section domain.Section, entity domain.EntityType, removed any, count int) {
	if count == 0 {
		return
	}
	tx.recordChange(domain.Change{Section: section, Entity: entity, Action: domain.ActionDelete, Before: removed})
}

// UpdateProgram mutates the program details.
func (tx *transaction) UpdateProgram(mutator func(*domain.Program) error) (domain.Program, error) {
	before := tx.state.Program
	current := before
	if err := mutator(&current); err != nil {
		return domain.Program{}, err
	}
	current.ID = before.ID
	tx.state.Program = current
	tx.recordChange(domain.Change{Section: domain.SectionProgram, Entity: domain.EntityProgram, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreatePEO appends a PEO, assigning the next pending id when none is given.
func (tx *transaction) CreatePEO(p domain.PEO) (domain.PEO, error) {
	ids := tx.state.IDs(domain.EntityPEO)
	if p.ID.IsZero() {
		p.ID = domain.NextID(ids)
	} else if domain.ContainsID(ids, p.ID) {
		return domain.PEO{}, fmt.Errorf("peo %s already exists", p.ID)
	}
	tx.state.PEOs = append(tx.state.PEOs, p)
	tx.recordChange(domain.Change{Section: domain.SectionPEOs, Entity: domain.EntityPEO, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdatePEO mutates an existing PEO.
func (tx *transaction) UpdatePEO(id domain.ID, mutator func(*domain.PEO) error) (domain.PEO, error) {
	idx := domain.IndexOf(tx.state.PEOs, id, peoID)
	if idx < 0 {
		return domain.PEO{}, domain.ErrNotFound{Entity: domain.EntityPEO, ID: id}
	}
	before := tx.state.PEOs[idx]
	current := before
	if err := mutator(&current); err != nil {
		return domain.PEO{}, err
	}
	current.ID = id
	tx.state.PEOs[idx] = current
	tx.recordChange(domain.Change{Section: domain.SectionPEOs, Entity: domain.EntityPEO, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeletePEO removes a PEO together with its mission, graduate attribute and
// program outcome mappings.
func (tx *transaction) DeletePEO(id domain.ID) error {
	idx := domain.IndexOf(tx.state.PEOs, id, peoID)
	if idx < 0 {
		return domain.ErrNotFound{Entity: domain.EntityPEO, ID: id}
	}
	removed := tx.state.PEOs[idx]
	tx.state.PEOs = append(tx.state.PEOs[:idx:idx], tx.state.PEOs[idx+1:]...)
	tx.recordChange(domain.Change{Section: domain.SectionPEOs, Entity: domain.EntityPEO, Action: domain.ActionDelete, Before: removed})

	var missions []domain.PEOMission
	tx.state.PEOMissions, missions = removeWhere(tx.state.PEOMissions, func(m domain.PEOMission) bool { return m.PEOID == id })
	tx.cascade(domain.SectionPEOMissionMappings, domain.EntityPEOMission, missions, len(missions))

	var attributes []domain.GAPEO
	tx.state.GAPEOs, attributes = removeWhere(tx.state.GAPEOs, func(m domain.GAPEO) bool { return m.PEOID == id })
	tx.cascade(domain.SectionGAPEOMappings, domain.EntityGAPEO, attributes, len(attributes))

	var outcomes []domain.POPEO
	tx.state.POPEOs, outcomes = removeWhere(tx.state.POPEOs, func(m domain.POPEO) bool { return m.PEOID == id })
	tx.cascade(domain.SectionPOPEOMappings, domain.EntityPOPEO, outcomes, len(outcomes))
	return nil
}

// CreateProgramOutcome appends a program outcome.
func (tx *transaction) CreateProgramOutcome(p domain.ProgramOutcome) (domain.ProgramOutcome, error) {
	ids := tx.state.IDs(domain.EntityProgramOutcome)
	if p.ID.IsZero() {
		p.ID = domain.NextID(ids)
	} else if domain.ContainsID(ids, p.ID) {
		return domain.ProgramOutcome{}, fmt.Errorf("program outcome %s already exists", p.ID)
	}
	tx.state.ProgramOutcomes = append(tx.state.ProgramOutcomes, p)
	tx.recordChange(domain.Change{Section: domain.SectionPOs, Entity: domain.EntityProgramOutcome, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdateProgramOutcome mutates an existing program outcome.
func (tx *transaction) UpdateProgramOutcome(id domain.ID, mutator func(*domain.ProgramOutcome) error) (domain.ProgramOutcome, error) {
	idx := domain.IndexOf(tx.state.ProgramOutcomes, id, poID)
	if idx < 0 {
		return domain.ProgramOutcome{}, domain.ErrNotFound{Entity: domain.EntityProgramOutcome, ID: id}
	}
	before := tx.state.ProgramOutcomes[idx]
	current := before
	if err := mutator(&current); err != nil {
		return domain.ProgramOutcome{}, err
	}
	current.ID = id
	tx.state.ProgramOutcomes[idx] = current
	tx.recordChange(domain.Change{Section: domain.SectionPOs, Entity: domain.EntityProgramOutcome, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteProgramOutcome removes a program outcome together with its PEO,
// graduate attribute and course mappings.
func (tx *transaction) DeleteProgramOutcome(id domain.ID) error {
	idx := domain.IndexOf(tx.state.ProgramOutcomes, id, poID)
	if idx < 0 {
		return domain.ErrNotFound{Entity: domain.EntityProgramOutcome, ID: id}
	}
	removed := tx.state.ProgramOutcomes[idx]
	tx.state.ProgramOutcomes = append(tx.state.ProgramOutcomes[:idx:idx], tx.state.ProgramOutcomes[idx+1:]...)
	tx.recordChange(domain.Change{Section: domain.SectionPOs, Entity: domain.EntityProgramOutcome, Action: domain.ActionDelete, Before: removed})

	var peos []domain.POPEO
	tx.state.POPEOs, peos = removeWhere(tx.state.POPEOs, func(m domain.POPEO) bool { return m.POID == id })
	tx.cascade(domain.SectionPOPEOMappings, domain.EntityPOPEO, peos, len(peos))

	var attributes []domain.POGA
	tx.state.POGAs, attributes = removeWhere(tx.state.POGAs, func(m domain.POGA) bool { return m.POID == id })
	tx.cascade(domain.SectionPOGAMappings, domain.EntityPOGA, attributes, len(attributes))

	var courses []domain.CourseToPO
	tx.state.CourseToPOs, courses = removeWhere(tx.state.CourseToPOs, func(m domain.CourseToPO) bool { return m.POID == id })
	tx.cascade(domain.SectionCourseToPOMappings, domain.EntityCourseToPO, courses, len(courses))
	return nil
}

// CreateCourseCategory appends a category; a code already in use (ignoring
// case) yields domain.ErrDuplicateCode and leaves the collection untouched.
func (tx *transaction) CreateCourseCategory(c domain.CourseCategory) (domain.CourseCategory, error) {
	ids := tx.state.IDs(domain.EntityCourseCategory)
	if c.ID.IsZero() {
		c.ID = domain.NextID(ids)
	} else if domain.ContainsID(ids, c.ID) {
		return domain.CourseCategory{}, fmt.Errorf("course category %s already exists", c.ID)
	}
	c.Code = strings.TrimSpace(c.Code)
	if tx.state.CategoryCodeTaken(c.Code, c.ID) {
		return domain.CourseCategory{}, fmt.Errorf("%w: %q", domain.ErrDuplicateCode, c.Code)
	}
	tx.state.CourseCategories = append(tx.state.CourseCategories, c)
	tx.recordChange(domain.Change{Section: domain.SectionCourseCategories, Entity: domain.EntityCourseCategory, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateCourseCategory mutates a category and writes its code into every
// curriculum course placed in it.
func (tx *transaction) UpdateCourseCategory(id domain.ID, mutator func(*domain.CourseCategory) error) (domain.CourseCategory, error) {
	idx := domain.IndexOf(tx.state.CourseCategories, id, categoryID)
	if idx < 0 {
		return domain.CourseCategory{}, domain.ErrNotFound{Entity: domain.EntityCourseCategory, ID: id}
	}
	before := tx.state.CourseCategories[idx]
	current := before
	if err := mutator(&current); err != nil {
		return domain.CourseCategory{}, err
	}
	current.ID = id
	current.Code = strings.TrimSpace(current.Code)
	if tx.state.CategoryCodeTaken(current.Code, id) {
		return domain.CourseCategory{}, fmt.Errorf("%w: %q", domain.ErrDuplicateCode, current.Code)
	}
	tx.state.CourseCategories[idx] = current
	tx.recordChange(domain.Change{Section: domain.SectionCourseCategories, Entity: domain.EntityCourseCategory, Action: domain.ActionUpdate, Before: before, After: current})
	tx.propagateCategoryCode(current)
	return current, nil
}

func (tx *transaction) propagateCategoryCode(category domain.CourseCategory) {
	for i, cc := range tx.state.CurriculumCourses {
		if cc.CourseCategoryID != category.ID || cc.CategoryCode == category.Code {
			continue
		}
		before := cc
		cc.CategoryCode = category.Code
		tx.state.CurriculumCourses[i] = cc
		tx.recordChange(domain.Change{Section: domain.SectionCurriculumCourses, Entity: domain.EntityCurriculumCourse, Action: domain.ActionUpdate, Before: before, After: cc})
	}
}

// syncCategoryCodes re-derives every placement's category code from its
// current category.
func (tx *transaction) syncCategoryCodes() {
	for _, category := range tx.state.CourseCategories {
		tx.propagateCategoryCode(category)
	}
}

// DeleteCourseCategory removes a category and every curriculum course placed in it.
func (tx *transaction) DeleteCourseCategory(id domain.ID) error {
	idx := domain.IndexOf(tx.state.CourseCategories, id, categoryID)
	if idx < 0 {
		return domain.ErrNotFound{Entity: domain.EntityCourseCategory, ID: id}
	}
	removed := tx.state.CourseCategories[idx]
	tx.state.CourseCategories = append(tx.state.CourseCategories[:idx:idx], tx.state.CourseCategories[idx+1:]...)
	tx.recordChange(domain.Change{Section: domain.SectionCourseCategories, Entity: domain.EntityCourseCategory, Action: domain.ActionDelete, Before: removed})
	for _, cc := range tx.placementsWhere(func(cc domain.CurriculumCourse) bool { return cc.CourseCategoryID == id }) {
		if err := tx.DeleteCurriculumCourse(cc.ID); err != nil {
			return err
		}
	}
	return nil
}

// CreateYearSemester appends a semester slot.
func (tx *transaction) CreateYearSemester(ys domain.YearSemester) (domain.YearSemester, error) {
	ids := tx.state.IDs(domain.EntityYearSemester)
	if ys.ID.IsZero() {
		ys.ID = domain.NextID(ids)
	} else if domain.ContainsID(ids, ys.ID) {
		return domain.YearSemester{}, fmt.Errorf("year semester %s already exists", ys.ID)
	}
	tx.state.YearSemesters = append(tx.state.YearSemesters, ys)
	tx.recordChange(domain.Change{Section: domain.SectionYearSemesters, Entity: domain.EntityYearSemester, Action: domain.ActionCreate, After: ys})
	return ys, nil
}

// UpdateYearSemester mutates a semester slot.
func (tx *transaction) UpdateYearSemester(id domain.ID, mutator func(*domain.YearSemester) error) (domain.YearSemester, error) {
	idx := domain.IndexOf(tx.state.YearSemesters, id, semesterID)
	if idx < 0 {
		return domain.YearSemester{}, domain.ErrNotFound{Entity: domain.EntityYearSemester, ID: id}
	}
	before := tx.state.YearSemesters[idx]
	current := before
	if err := mutator(&current); err != nil {
		return domain.YearSemester{}, err
	}
	current.ID = id
	tx.state.YearSemesters[idx] = current
	tx.recordChange(domain.Change{Section: domain.SectionYearSemesters, Entity: domain.EntityYearSemester, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteYearSemester removes a semester slot, the curriculum courses placed in
// it and, through them, their course mappings and committee assignments.
func (tx *transaction) DeleteYearSemester(id domain.ID) error {
	idx := domain.IndexOf(tx.state.YearSemesters, id, semesterID)
	if idx < 0 {
		return domain.ErrNotFound{Entity: domain.EntityYearSemester, ID: id}
	}
	removed := tx.state.YearSemesters[idx]
	tx.state.YearSemesters = append(tx.state.YearSemesters[:idx:idx], tx.state.YearSemesters[idx+1:]...)
	tx.recordChange(domain.Change{Section: domain.SectionYearSemesters, Entity: domain.EntityYearSemester, Action: domain.ActionDelete, Before: removed})
	for _, cc := range tx.placementsWhere(func(cc domain.CurriculumCourse) bool { return cc.SemesterID == id }) {
		if err := tx.DeleteCurriculumCourse(cc.ID); err != nil {
			return err
		}
	}
	return nil
}

func (tx *transaction) placementsWhere(pred func(domain.CurriculumCourse) bool) []domain.CurriculumCourse {
	var out []domain.CurriculumCourse
	for _, cc := range tx.state.CurriculumCourses {
		if pred(cc) {
			out = append(out, cc)
		}
	}
	return out
}

// CreateCurriculumCourse places course into a semester slot and category.
// A course carrying an id (e.g. from a catalog search) is reused or added with
// that id; a course without one is added under the next pending id.
func (tx *transaction) CreateCurriculumCourse(course domain.Course, placement domain.CurriculumCourse) (domain.CurriculumCourse, error) {
	if placement.Unit <= 0 {
		return domain.CurriculumCourse{}, fmt.Errorf("curriculum course unit must be positive, got %d", placement.Unit)
	}
	catIdx := domain.IndexOf(tx.state.CourseCategories, placement.CourseCategoryID, categoryID)
	if catIdx < 0 {
		return domain.CurriculumCourse{}, domain.ErrNotFound{Entity: domain.EntityCourseCategory, ID: placement.CourseCategoryID}
	}
	if domain.IndexOf(tx.state.YearSemesters, placement.SemesterID, semesterID) < 0 {
		return domain.CurriculumCourse{}, domain.ErrNotFound{Entity: domain.EntityYearSemester, ID: placement.SemesterID}
	}

	switch {
	case course.ID.IsZero():
		course.ID = domain.NextID(tx.state.IDs(domain.EntityCourse))
		tx.addCourse(course)
	case domain.IndexOf(tx.state.Courses, course.ID, courseID) < 0:
		tx.addCourse(course)
	}

	ids := tx.state.IDs(domain.EntityCurriculumCourse)
	if placement.ID.IsZero() {
		placement.ID = domain.NextID(ids)
	} else if domain.ContainsID(ids, placement.ID) {
		return domain.CurriculumCourse{}, fmt.Errorf("curriculum course %s already exists", placement.ID)
	}
	placement.CourseID = course.ID
	placement.CategoryCode = tx.state.CourseCategories[catIdx].Code
	tx.state.CurriculumCourses = append(tx.state.CurriculumCourses, placement)
	tx.recordChange(domain.Change{Section: domain.SectionCurriculumCourses, Entity: domain.EntityCurriculumCourse, Action: domain.ActionCreate, After: placement})
	return placement, nil
}

func (tx *transaction) addCourse(course domain.Course) {
	tx.state.Courses = append(tx.state.Courses, course)
	tx.recordChange(domain.Change{Section: domain.SectionCurriculumCourses, Entity: domain.EntityCourse, Action: domain.ActionCreate, After: course})
}

// UpdateCurriculumCourse mutates a placement; a category change refreshes the
// stored category code.
func (tx *transaction) UpdateCurriculumCourse(id domain.ID, mutator func(*domain.CurriculumCourse) error) (domain.CurriculumCourse, error) {
	idx := domain.IndexOf(tx.state.CurriculumCourses, id, placementID)
	if idx < 0 {
		return domain.CurriculumCourse{}, domain.ErrNotFound{Entity: domain.EntityCurriculumCourse, ID: id}
	}
	before := tx.state.CurriculumCourses[idx]
	current := before
	if err := mutator(&current); err != nil {
		return domain.CurriculumCourse{}, err
	}
	current.ID = id
	if current.Unit <= 0 {
		return domain.CurriculumCourse{}, fmt.Errorf("curriculum course unit must be positive, got %d", current.Unit)
	}
	catIdx := domain.IndexOf(tx.state.CourseCategories, current.CourseCategoryID, categoryID)
	if catIdx < 0 {
		return domain.CurriculumCourse{}, domain.ErrNotFound{Entity: domain.EntityCourseCategory, ID: current.CourseCategoryID}
	}
	current.CategoryCode = tx.state.CourseCategories[catIdx].Code
	tx.state.CurriculumCourses[idx] = current
	tx.recordChange(domain.Change{Section: domain.SectionCurriculumCourses, Entity: domain.EntityCurriculumCourse, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteCurriculumCourse removes a placement with its course mappings and
// committee assignments. The catalog course goes too once nothing places it.
func (tx *transaction) DeleteCurriculumCourse(id domain.ID) error {
	idx := domain.IndexOf(tx.state.CurriculumCourses, id, placementID)
	if idx < 0 {
		return domain.ErrNotFound{Entity: domain.EntityCurriculumCourse, ID: id}
	}
	removed := tx.state.CurriculumCourses[idx]
	tx.state.CurriculumCourses = append(tx.state.CurriculumCourses[:idx:idx], tx.state.CurriculumCourses[idx+1:]...)
	tx.recordChange(domain.Change{Section: domain.SectionCurriculumCourses, Entity: domain.EntityCurriculumCourse, Action: domain.ActionDelete, Before: removed})

	if len(tx.placementsWhere(func(cc domain.CurriculumCourse) bool { return cc.CourseID == removed.CourseID })) == 0 {
		var courses []domain.Course
		tx.state.Courses, courses = removeWhere(tx.state.Courses, func(c domain.Course) bool { return c.ID == removed.CourseID })
		tx.cascade(domain.SectionCurriculumCourses, domain.EntityCourse, courses, len(courses))
	}

	var mappings []domain.CourseToPO
	tx.state.CourseToPOs, mappings = removeWhere(tx.state.CourseToPOs, func(m domain.CourseToPO) bool { return m.CourseID == id })
	tx.cascade(domain.SectionCourseToPOMappings, domain.EntityCourseToPO, mappings, len(mappings))

	var assignments []domain.CommitteeAssignment
	tx.state.CommitteeAssignments, assignments = removeWhere(tx.state.CommitteeAssignments, func(a domain.CommitteeAssignment) bool { return a.CurriculumCourseID == id })
	tx.cascade(domain.SectionCommitteeAssignments, domain.EntityCommitteeAssignment, assignments, len(assignments))
	return nil
}

// CreateCommitteeAssignment assigns a committee member to a curriculum course.
func (tx *transaction) CreateCommitteeAssignment(a domain.CommitteeAssignment) (domain.CommitteeAssignment, error) {
	if domain.IndexOf(tx.state.CurriculumCourses, a.CurriculumCourseID, placementID) < 0 {
		return domain.CommitteeAssignment{}, domain.ErrNotFound{Entity: domain.EntityCurriculumCourse, ID: a.CurriculumCourseID}
	}
	for _, existing := range tx.state.CommitteeAssignments {
		if existing.CommitteeID == a.CommitteeID && existing.CurriculumCourseID == a.CurriculumCourseID {
			return existing, nil
		}
	}
	ids := tx.state.IDs(domain.EntityCommitteeAssignment)
	if a.ID.IsZero() {
		a.ID = domain.NextID(ids)
	} else if domain.ContainsID(ids, a.ID) {
		return domain.CommitteeAssignment{}, fmt.Errorf("committee assignment %s already exists", a.ID)
	}
	tx.state.CommitteeAssignments = append(tx.state.CommitteeAssignments, a)
	tx.recordChange(domain.Change{Section: domain.SectionCommitteeAssignments, Entity: domain.EntityCommitteeAssignment, Action: domain.ActionCreate, After: a})
	return a, nil
}

// DeleteCommitteeAssignment removes an assignment.
func (tx *transaction) DeleteCommitteeAssignment(id domain.ID) error {
	idx := domain.IndexOf(tx.state.CommitteeAssignments, id, assignmentID)
	if idx < 0 {
		return domain.ErrNotFound{Entity: domain.EntityCommitteeAssignment, ID: id}
	}
	removed := tx.state.CommitteeAssignments[idx]
	tx.state.CommitteeAssignments = append(tx.state.CommitteeAssignments[:idx:idx], tx.state.CommitteeAssignments[idx+1:]...)
	tx.recordChange(domain.Change{Section: domain.SectionCommitteeAssignments, Entity: domain.EntityCommitteeAssignment, Action: domain.ActionDelete, Before: removed})
	return nil
}
