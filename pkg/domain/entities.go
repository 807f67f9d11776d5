// Package domain defines the curriculum proposal records, identifier and
// section types, and the rule evaluation primitives used by curricore.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// EntityType identifies the type of record held in a draft.
type EntityType string

// Supported entity type identifiers used in Change records and snapshot buckets.
const (
	EntityProgram             EntityType = "program"
	EntityPEO                 EntityType = "peo"
	EntityProgramOutcome      EntityType = "program_outcome"
	EntityMission             EntityType = "mission"
	EntityGraduateAttribute   EntityType = "graduate_attribute"
	EntityCourseCategory      EntityType = "course_category"
	EntityCourse              EntityType = "course"
	EntityYearSemester        EntityType = "year_semester"
	EntityCurriculumCourse    EntityType = "curriculum_course"
	EntityCommitteeAssignment EntityType = "committee_assignment"
	EntityPEOMission          EntityType = "peo_mission_mapping"
	EntityGAPEO               EntityType = "ga_peo_mapping"
	EntityPOPEO               EntityType = "po_peo_mapping"
	EntityPOGA                EntityType = "po_ga_mapping"
	EntityCourseToPO          EntityType = "course_po_mapping"
)

// ContributionLevel tags how strongly a course supports a program outcome.
type ContributionLevel string

// Contribution levels recognised on Course↔PO mappings.
const (
	LevelIntroductory ContributionLevel = "I"
	LevelEnabling     ContributionLevel = "E"
	LevelDevelopment  ContributionLevel = "D"
)

// ParseContributionLevel accepts I, E or D in any case.
func ParseContributionLevel(s string) (ContributionLevel, error) {
	switch level := ContributionLevel(strings.ToUpper(strings.TrimSpace(s))); level {
	case LevelIntroductory, LevelEnabling, LevelDevelopment:
		return level, nil
	default:
		return "", fmt.Errorf("unknown contribution level %q", s)
	}
}

// Program holds the proposal's top-level details.
type Program struct {
	ID          ID     `json:"id"`
	Title       string `json:"title" validate:"required"`
	Code        string `json:"code" validate:"required"`
	Description string `json:"description"`
}

// PEO is a program educational objective.
type PEO struct {
	ID        ID     `json:"id"`
	Statement string `json:"statement" validate:"required"`
}

// ProgramOutcome is a specific, assessable outcome for graduates.
type ProgramOutcome struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	Statement string `json:"statement" validate:"required"`
}

// Mission is read-only institutional reference data.
type Mission struct {
	ID          ID     `json:"id"`
	MissionNo   int    `json:"mission_no"`
	Description string `json:"description"`
}

// GraduateAttribute is read-only institutional reference data.
type GraduateAttribute struct {
	ID          ID     `json:"id"`
	GANo        int    `json:"ga_no"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CourseCategory groups curriculum courses; Code is unique ignoring case.
type CourseCategory struct {
	ID   ID     `json:"id"`
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required"`
}

// Course is a catalog course, independent of where a curriculum places it.
type Course struct {
	ID               ID     `json:"id"`
	Code             string `json:"code" validate:"required"`
	DescriptiveTitle string `json:"descriptive_title"`
}

// YearSemester is one semester slot of the curriculum.
type YearSemester struct {
	ID       ID     `json:"id"`
	Year     int    `json:"year" validate:"min=1"`
	Semester string `json:"semester" validate:"required"`
}

// CurriculumCourse places a catalog course into a semester slot and category.
// CategoryCode mirrors the category's code and is kept in step on every
// category update.
type CurriculumCourse struct {
	ID               ID     `json:"id"`
	CourseID         ID     `json:"course_id" validate:"required"`
	CourseCategoryID ID     `json:"course_category_id" validate:"required"`
	CategoryCode     string `json:"category_code"`
	SemesterID       ID     `json:"semester_id" validate:"required"`
	Unit             int    `json:"unit" validate:"gt=0"`
}

// CommitteeAssignment assigns a committee member to review a curriculum course.
type CommitteeAssignment struct {
	ID                 ID `json:"id"`
	CommitteeID        ID `json:"committee_id" validate:"required"`
	CurriculumCourseID ID `json:"curriculum_course_id" validate:"required"`
}

// PEOMission links a PEO to a mission.
type PEOMission struct {
	PEOID     ID `json:"peo_id"`
	MissionID ID `json:"mission_id"`
}

// GAPEO links a graduate attribute to a PEO.
type GAPEO struct {
	GAID  ID `json:"ga_id"`
	PEOID ID `json:"peo_id"`
}

// POPEO links a program outcome to a PEO.
type POPEO struct {
	POID  ID `json:"po_id"`
	PEOID ID `json:"peo_id"`
}

// POGA links a program outcome to a graduate attribute.
type POGA struct {
	POID ID `json:"po_id"`
	GAID ID `json:"ga_id"`
}

// CourseToPO links a curriculum course to a program outcome with one or more
// contribution levels. A mapping never holds an empty level list.
type CourseToPO struct {
	CourseID           ID                  `json:"course_id"`
	POID               ID                  `json:"po_id"`
	ContributionLevels []ContributionLevel `json:"contribution_levels"`
}

// RevisionStatus enumerates the lifecycle of a revision request.
type RevisionStatus string

// Revision request statuses reported by the backend.
const (
	RevisionPending  RevisionStatus = "pending"
	RevisionResolved RevisionStatus = "resolved"
)

// RevisionRequest asks the proposing department to revise one section.
type RevisionRequest struct {
	ID          ID             `json:"id"`
	Section     Section        `json:"section"`
	Comment     string         `json:"comment"`
	Status      RevisionStatus `json:"status"`
	RequestedBy string         `json:"requested_by"`
}

// Change captures a single mutation applied inside a transaction.
type Change struct {
	Section Section
	Entity  EntityType
	Action  Action
	Before  any
	After   any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     ID
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrDuplicateCode is returned when a course category code is already in use.
var ErrDuplicateCode = errors.New("course category code already in use")
