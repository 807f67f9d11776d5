package domain

import (
	"errors"
	"fmt"
)

// Section names a top-level group of draft collections. Sections scope
// modification tracking, reset and submission.
type Section string

// Known sections in wizard order.
const (
	SectionProgram              Section = "program"
	SectionPEOs                 Section = "peos"
	SectionPEOMissionMappings   Section = "peo_mission_mappings"
	SectionGAPEOMappings        Section = "ga_peo_mappings"
	SectionPOs                  Section = "pos"
	SectionPOPEOMappings        Section = "po_peo_mappings"
	SectionPOGAMappings         Section = "po_ga_mappings"
	SectionCourseCategories     Section = "course_categories"
	SectionYearSemesters        Section = "year_semesters"
	SectionCurriculumCourses    Section = "curriculum_courses"
	SectionCourseToPOMappings   Section = "course_po_mappings"
	SectionCommitteeAssignments Section = "committee_assignments"
)

var allSections = []Section{
	SectionProgram,
	SectionPEOs,
	SectionPEOMissionMappings,
	SectionGAPEOMappings,
	SectionPOs,
	SectionPOPEOMappings,
	SectionPOGAMappings,
	SectionCourseCategories,
	SectionYearSemesters,
	SectionCurriculumCourses,
	SectionCourseToPOMappings,
	SectionCommitteeAssignments,
}

// ErrUnknownSection is returned when a section tag is not recognised.
var ErrUnknownSection = errors.New("unknown section")

// AllSections returns every known section in wizard order.
func AllSections() []Section {
	return append([]Section(nil), allSections...)
}

// ParseSection converts a raw tag into a Section, rejecting unknown tags.
func ParseSection(raw string) (Section, error) {
	for _, s := range allSections {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownSection, raw)
}

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	_, err := ParseSection(string(s))
	return err == nil
}

// SectionSet is the modification tracker's set of section tags.
type SectionSet map[Section]struct{}

// NewSectionSet builds a set holding the given sections.
func NewSectionSet(sections ...Section) SectionSet {
	set := make(SectionSet, len(sections))
	for _, s := range sections {
		set[s] = struct{}{}
	}
	return set
}

// Add inserts s.
func (set SectionSet) Add(s Section) { set[s] = struct{}{} }

// Has reports whether s is present.
func (set SectionSet) Has(s Section) bool {
	_, ok := set[s]
	return ok
}

// Sorted returns the members in wizard order.
func (set SectionSet) Sorted() []Section {
	out := make([]Section, 0, len(set))
	for _, s := range allSections {
		if set.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Clone copies the set.
func (set SectionSet) Clone() SectionSet {
	cp := make(SectionSet, len(set))
	for s := range set {
		cp[s] = struct{}{}
	}
	return cp
}

// SectionSetFrom rebuilds a set from a slice, skipping unknown tags.
func SectionSetFrom(sections []Section) SectionSet {
	set := make(SectionSet, len(sections))
	for _, s := range sections {
		if s.Valid() {
			set.Add(s)
		}
	}
	return set
}
