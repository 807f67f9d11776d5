// Package core is the draft service: the mutation API the wizard screens
// dispatch into, storage selection, validation and the submission pipeline.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"curricore/internal/infra/persistence/memory"
	"curricore/internal/reconcile"
	"curricore/pkg/domain"
)

// Service exposes the proposal draft's transactional operations. Every
// mutation runs in one store transaction, so cascades and rule checks either
// apply fully or not at all.
type Service struct {
	store   domain.DraftStore
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
}

// NewService constructs a service backed by store.
func NewService(store domain.DraftStore, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{store: store, clock: o.clock, logger: o.logger, metrics: o.metrics}
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return NewService(memory.NewStore(o.engine), opts...)
}

// Store returns the underlying draft store.
func (s *Service) Store() domain.DraftStore { return s.store }

// observe records the timing of op and logs failures.
func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	elapsed := s.clock.Now().Sub(start)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	if err != nil {
		s.logger.Warn("draft operation failed", "operation", op, "error", err)
		return
	}
	s.logger.Debug("draft operation", "operation", op, "duration", elapsed)
}

func (s *Service) run(ctx context.Context, op string, fn func(domain.Transaction) error) (domain.Result, error) {
	start := s.clock.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	s.observe(ctx, op, start, err)
	return res, err
}

// Initialize seeds the draft from baseline and clears modification flags.
func (s *Service) Initialize(ctx context.Context, baseline domain.State) error {
	start := s.clock.Now()
	err := s.store.Initialize(ctx, baseline)
	s.observe(ctx, "Initialize", start, err)
	if err != nil {
		return fmt.Errorf("initialize draft: %w", err)
	}
	s.logger.Info("draft initialized", "peos", len(baseline.PEOs), "pos", len(baseline.ProgramOutcomes), "curriculum_courses", len(baseline.CurriculumCourses))
	return nil
}

// Clear drops the draft.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	s.logger.Info("draft cleared")
	return nil
}

// State returns a copy of the live draft.
func (s *Service) State() domain.State { return s.store.State() }

// Baseline returns a copy of the state the draft was initialised from.
func (s *Service) Baseline() domain.State { return s.store.Baseline() }

// IsModified reports whether section diverged from the baseline.
func (s *Service) IsModified(section domain.Section) bool { return s.store.IsModified(section) }

// ModifiedSections returns the modified sections.
func (s *Service) ModifiedSections() domain.SectionSet { return s.store.ModifiedSections() }

// ResetSection restores section from the baseline.
func (s *Service) ResetSection(ctx context.Context, section domain.Section) (domain.Result, error) {
	if !section.Valid() {
		return domain.Result{}, fmt.Errorf("%w %q", domain.ErrUnknownSection, section)
	}
	start := s.clock.Now()
	res, err := s.store.ResetSection(ctx, section)
	s.observe(ctx, "ResetSection", start, err)
	if err != nil {
		return res, err
	}
	s.logger.Info("section reset", "section", section)
	return res, nil
}

// IsMapped reports whether the registry named by entity links a and b.
func (s *Service) IsMapped(entity domain.EntityType, a, b domain.ID) bool {
	return s.store.State().IsMapped(entity, a, b)
}

// Levels returns the contribution levels linking a curriculum course to a PO.
func (s *Service) Levels(courseID, poID domain.ID) []domain.ContributionLevel {
	return s.store.State().Levels(courseID, poID)
}

// Preview reconciles the modified sections without sending anything.
func (s *Service) Preview(ctx context.Context) (reconcile.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reconcile.New(s.store.Baseline()).Reconcile(s.store.State(), s.store.ModifiedSections())
}

// UpdateProgram edits the program details.
func (s *Service) UpdateProgram(ctx context.Context, mutator func(*domain.Program) error) (domain.Program, domain.Result, error) {
	var updated domain.Program
	res, err := s.run(ctx, "UpdateProgram", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateProgram(mutator)
		return err
	})
	return updated, res, err
}

// AddPEO appends a PEO under the next pending id.
func (s *Service) AddPEO(ctx context.Context, peo domain.PEO) (domain.PEO, domain.Result, error) {
	var created domain.PEO
	res, err := s.run(ctx, "AddPEO", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreatePEO(peo)
		return err
	})
	return created, res, err
}

// UpdatePEO edits a PEO.
func (s *Service) UpdatePEO(ctx context.Context, id domain.ID, mutator func(*domain.PEO) error) (domain.PEO, domain.Result, error) {
	var updated domain.PEO
	res, err := s.run(ctx, "UpdatePEO", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdatePEO(id, mutator)
		return err
	})
	return updated, res, err
}

// RemovePEO deletes a PEO and its PEO↔Mission, GA↔PEO and PO↔PEO links.
func (s *Service) RemovePEO(ctx context.Context, id domain.ID) (domain.Result, error) {
	return s.run(ctx, "RemovePEO", func(tx domain.Transaction) error {
		return tx.DeletePEO(id)
	})
}

// AddProgramOutcome appends a PO under the next pending id.
func (s *Service) AddProgramOutcome(ctx context.Context, po domain.ProgramOutcome) (domain.ProgramOutcome, domain.Result, error) {
	var created domain.ProgramOutcome
	res, err := s.run(ctx, "AddProgramOutcome", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateProgramOutcome(po)
		return err
	})
	return created, res, err
}

// UpdateProgramOutcome edits a PO.
func (s *Service) UpdateProgramOutcome(ctx context.Context, id domain.ID, mutator func(*domain.ProgramOutcome) error) (domain.ProgramOutcome, domain.Result, error) {
	var updated domain.ProgramOutcome
	res, err := s.run(ctx, "UpdateProgramOutcome", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateProgramOutcome(id, mutator)
		return err
	})
	return updated, res, err
}

// RemoveProgramOutcome deletes a PO and its PO↔PEO, PO↔GA and Course↔PO links.
func (s *Service) RemoveProgramOutcome(ctx context.Context, id domain.ID) (domain.Result, error) {
	return s.run(ctx, "RemoveProgramOutcome", func(tx domain.Transaction) error {
		return tx.DeleteProgramOutcome(id)
	})
}

// TogglePEOMission flips the PEO↔Mission link and reports whether it now exists.
func (s *Service) TogglePEOMission(ctx context.Context, peoID, missionID domain.ID) (bool, domain.Result, error) {
	return s.toggle(ctx, "TogglePEOMission", func(tx domain.Transaction) (bool, error) { return tx.TogglePEOMission(peoID, missionID) })
}

// ToggleGAPEO flips the GA↔PEO link.
func (s *Service) ToggleGAPEO(ctx context.Context, gaID, peoID domain.ID) (bool, domain.Result, error) {
	return s.toggle(ctx, "ToggleGAPEO", func(tx domain.Transaction) (bool, error) { return tx.ToggleGAPEO(gaID, peoID) })
}

// TogglePOPEO flips the PO↔PEO link.
func (s *Service) TogglePOPEO(ctx context.Context, poID, peoID domain.ID) (bool, domain.Result, error) {
	return s.toggle(ctx, "TogglePOPEO", func(tx domain.Transaction) (bool, error) { return tx.TogglePOPEO(poID, peoID) })
}

// TogglePOGA flips the PO↔GA link.
func (s *Service) TogglePOGA(ctx context.Context, poID, gaID domain.ID) (bool, domain.Result, error) {
	return s.toggle(ctx, "TogglePOGA", func(tx domain.Transaction) (bool, error) { return tx.TogglePOGA(poID, gaID) })
}

func (s *Service) toggle(ctx context.Context, op string, fn func(domain.Transaction) (bool, error)) (bool, domain.Result, error) {
	var linked bool
	res, err := s.run(ctx, op, func(tx domain.Transaction) error {
		var err error
		linked, err = fn(tx)
		return err
	})
	return linked, res, err
}

// UpdateCourseToPOMapping replaces the levels linking a curriculum course to
// a PO. An empty list removes the mapping.
func (s *Service) UpdateCourseToPOMapping(ctx context.Context, courseID, poID domain.ID, levels []domain.ContributionLevel) (domain.Result, error) {
	return s.run(ctx, "UpdateCourseToPOMapping", func(tx domain.Transaction) error {
		return tx.SetCourseToPOLevels(courseID, poID, levels)
	})
}

// ToggleCourseToPOLevel flips one contribution level and returns the
// resulting levels.
func (s *Service) ToggleCourseToPOLevel(ctx context.Context, courseID, poID domain.ID, level domain.ContributionLevel) ([]domain.ContributionLevel, domain.Result, error) {
	var levels []domain.ContributionLevel
	res, err := s.run(ctx, "ToggleCourseToPOLevel", func(tx domain.Transaction) error {
		var err error
		levels, err = tx.ToggleCourseToPOLevel(courseID, poID, level)
		return err
	})
	return levels, res, err
}

// AddCourseCategory appends a category. A code already in use (ignoring
// case) leaves the draft untouched and reports added=false.
func (s *Service) AddCourseCategory(ctx context.Context, category domain.CourseCategory) (domain.CourseCategory, bool, domain.Result, error) {
	var created domain.CourseCategory
	res, err := s.run(ctx, "AddCourseCategory", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateCourseCategory(category)
		return err
	})
	if errors.Is(err, domain.ErrDuplicateCode) {
		s.logger.Info("course category code already in use", "code", strings.TrimSpace(category.Code))
		return domain.CourseCategory{}, false, domain.Result{}, nil
	}
	return created, err == nil, res, err
}

// UpdateCourseCategory edits a category and refreshes the category code on
// its placed curriculum courses. A duplicate code is a no-op (updated=false).
func (s *Service) UpdateCourseCategory(ctx context.Context, id domain.ID, mutator func(*domain.CourseCategory) error) (domain.CourseCategory, bool, domain.Result, error) {
	var updated domain.CourseCategory
	res, err := s.run(ctx, "UpdateCourseCategory", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateCourseCategory(id, mutator)
		return err
	})
	if errors.Is(err, domain.ErrDuplicateCode) {
		s.logger.Info("course category update skipped", "id", id, "error", err)
		return domain.CourseCategory{}, false, domain.Result{}, nil
	}
	return updated, err == nil, res, err
}

// RemoveCourseCategory deletes a category with its curriculum courses and,
// through them, their Course↔PO links and committee assignments.
func (s *Service) RemoveCourseCategory(ctx context.Context, id domain.ID) (domain.Result, error) {
	return s.run(ctx, "RemoveCourseCategory", func(tx domain.Transaction) error {
		return tx.DeleteCourseCategory(id)
	})
}

// AddYearSemester appends a semester slot.
func (s *Service) AddYearSemester(ctx context.Context, ys domain.YearSemester) (domain.YearSemester, domain.Result, error) {
	var created domain.YearSemester
	res, err := s.run(ctx, "AddYearSemester", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateYearSemester(ys)
		return err
	})
	return created, res, err
}

// UpdateYearSemester edits a semester slot.
func (s *Service) UpdateYearSemester(ctx context.Context, id domain.ID, mutator func(*domain.YearSemester) error) (domain.YearSemester, domain.Result, error) {
	var updated domain.YearSemester
	res, err := s.run(ctx, "UpdateYearSemester", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateYearSemester(id, mutator)
		return err
	})
	return updated, res, err
}

// RemoveYearSemester deletes a semester slot with the courses placed in it.
func (s *Service) RemoveYearSemester(ctx context.Context, id domain.ID) (domain.Result, error) {
	return s.run(ctx, "RemoveYearSemester", func(tx domain.Transaction) error {
		return tx.DeleteYearSemester(id)
	})
}

// AddCurriculumCourse places a catalog course. The course selection and unit
// are checked before the draft is touched.
func (s *Service) AddCurriculumCourse(ctx context.Context, course domain.Course, placement domain.CurriculumCourse) (domain.CurriculumCourse, domain.Result, error) {
	fields := map[string]string{}
	if course.ID.IsZero() && strings.TrimSpace(course.Code) == "" {
		fields["course_id"] = "select a course"
	}
	if placement.Unit <= 0 {
		fields["unit"] = "must be greater than 0"
	}
	if placement.CourseCategoryID.IsZero() {
		fields["course_category_id"] = "is required"
	}
	if placement.SemesterID.IsZero() {
		fields["semester_id"] = "is required"
	}
	if len(fields) > 0 {
		return domain.CurriculumCourse{}, domain.Result{}, &ValidationError{Fields: fields}
	}
	var created domain.CurriculumCourse
	res, err := s.run(ctx, "AddCurriculumCourse", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateCurriculumCourse(course, placement)
		return err
	})
	return created, res, err
}

// UpdateCurriculumCourse edits a placement.
func (s *Service) UpdateCurriculumCourse(ctx context.Context, id domain.ID, mutator func(*domain.CurriculumCourse) error) (domain.CurriculumCourse, domain.Result, error) {
	var updated domain.CurriculumCourse
	res, err := s.run(ctx, "UpdateCurriculumCourse", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateCurriculumCourse(id, mutator)
		return err
	})
	return updated, res, err
}

// RemoveCurriculumCourse deletes a placement with its Course↔PO links and
// committee assignments.
func (s *Service) RemoveCurriculumCourse(ctx context.Context, id domain.ID) (domain.Result, error) {
	return s.run(ctx, "RemoveCurriculumCourse", func(tx domain.Transaction) error {
		return tx.DeleteCurriculumCourse(id)
	})
}

// AssignCommittee assigns a committee member to review a curriculum course.
func (s *Service) AssignCommittee(ctx context.Context, committeeID, curriculumCourseID domain.ID) (domain.CommitteeAssignment, domain.Result, error) {
	if !committeeID.IsPersisted() {
		return domain.CommitteeAssignment{}, domain.Result{}, &ValidationError{Fields: map[string]string{"committee_id": "must reference an existing user"}}
	}
	var created domain.CommitteeAssignment
	res, err := s.run(ctx, "AssignCommittee", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateCommitteeAssignment(domain.CommitteeAssignment{CommitteeID: committeeID, CurriculumCourseID: curriculumCourseID})
		return err
	})
	return created, res, err
}

// UnassignCommittee removes a committee assignment.
func (s *Service) UnassignCommittee(ctx context.Context, id domain.ID) (domain.Result, error) {
	return s.run(ctx, "UnassignCommittee", func(tx domain.Transaction) error {
		return tx.DeleteCommitteeAssignment(id)
	})
}
