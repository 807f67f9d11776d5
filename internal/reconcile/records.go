package reconcile

import "curricore/pkg/domain"

// Wire records. Field names follow the backend's snake_case contract.

type ProgramRecord struct {
	ID          Ref    `json:"id"`
	Title       string `json:"title"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type PEORecord struct {
	ID        Ref    `json:"id"`
	Statement string `json:"statement"`
}

type PORecord struct {
	ID        Ref    `json:"id"`
	Name      string `json:"name"`
	Statement string `json:"statement"`
}

type PEOMissionRecord struct {
	PEOID     Ref `json:"peo_id"`
	MissionID Ref `json:"mission_id"`
}

type GAPEORecord struct {
	GAID  Ref `json:"ga_id"`
	PEOID Ref `json:"peo_id"`
}

type POPEORecord struct {
	POID  Ref `json:"po_id"`
	PEOID Ref `json:"peo_id"`
}

type POGARecord struct {
	POID Ref `json:"po_id"`
	GAID Ref `json:"ga_id"`
}

type CourseCategoryRecord struct {
	ID   Ref    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type YearSemesterRecord struct {
	ID       Ref    `json:"id"`
	Year     int    `json:"year"`
	Semester string `json:"semester"`
}

// CurriculumCourseRecord embeds the catalog course so the backend can create
// a course and its placement in one step.
type CurriculumCourseRecord struct {
	ID               Ref    `json:"id"`
	CourseID         Ref    `json:"course_id"`
	CourseCode       string `json:"course_code"`
	DescriptiveTitle string `json:"descriptive_title"`
	CourseCategoryID Ref    `json:"course_category_id"`
	CategoryCode     string `json:"category_code"`
	SemesterID       Ref    `json:"semester_id"`
	Unit             int    `json:"unit"`
}

type CourseToPORecord struct {
	CourseID           Ref                        `json:"course_id"`
	POID               Ref                        `json:"po_id"`
	ContributionLevels []domain.ContributionLevel `json:"contribution_levels"`
}

type CommitteeAssignmentRecord struct {
	ID                 Ref `json:"id"`
	CommitteeID        Ref `json:"committee_id"`
	CurriculumCourseID Ref `json:"curriculum_course_id"`
}
