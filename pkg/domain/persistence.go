package domain

import (
	"context"
	"errors"
)

// Transaction exposes the draft mutations a store must support within an
// atomic scope. Deletes cascade into every dependent collection.
type Transaction interface {
	State() State

	UpdateProgram(mutator func(*Program) error) (Program, error)

	CreatePEO(PEO) (PEO, error)
	UpdatePEO(id ID, mutator func(*PEO) error) (PEO, error)
	DeletePEO(id ID) error

	CreateProgramOutcome(ProgramOutcome) (ProgramOutcome, error)
	UpdateProgramOutcome(id ID, mutator func(*ProgramOutcome) error) (ProgramOutcome, error)
	DeleteProgramOutcome(id ID) error

	CreateCourseCategory(CourseCategory) (CourseCategory, error)
	UpdateCourseCategory(id ID, mutator func(*CourseCategory) error) (CourseCategory, error)
	DeleteCourseCategory(id ID) error

	CreateYearSemester(YearSemester) (YearSemester, error)
	UpdateYearSemester(id ID, mutator func(*YearSemester) error) (YearSemester, error)
	DeleteYearSemester(id ID) error

	CreateCurriculumCourse(course Course, placement CurriculumCourse) (CurriculumCourse, error)
	UpdateCurriculumCourse(id ID, mutator func(*CurriculumCourse) error) (CurriculumCourse, error)
	DeleteCurriculumCourse(id ID) error

	CreateCommitteeAssignment(CommitteeAssignment) (CommitteeAssignment, error)
	DeleteCommitteeAssignment(id ID) error

	TogglePEOMission(peoID, missionID ID) (bool, error)
	ToggleGAPEO(gaID, peoID ID) (bool, error)
	TogglePOPEO(poID, peoID ID) (bool, error)
	TogglePOGA(poID, gaID ID) (bool, error)
	SetCourseToPOLevels(courseID, poID ID, levels []ContributionLevel) error
	ToggleCourseToPOLevel(courseID, poID ID, level ContributionLevel) ([]ContributionLevel, error)
}

// DraftStore holds one proposal draft: its live state, the baseline it was
// initialised from, and the set of sections modified since then.
type DraftStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(State) error) error
	Initialize(ctx context.Context, baseline State) error
	ResetSection(ctx context.Context, section Section) (Result, error)
	IsModified(section Section) bool
	ModifiedSections() SectionSet
	Baseline() State
	State() State
	Clear(ctx context.Context) error
	// Freeze rejects mutations and resets with ErrDraftFrozen until release
	// is called. Clear stays allowed.
	Freeze() (release func(), err error)
}

// ErrDraftFrozen is returned for edits attempted while a submission holds
// the draft.
var ErrDraftFrozen = errors.New("draft is frozen while a submission is in flight")
