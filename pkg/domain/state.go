package domain

import (
	"fmt"
	"strings"
)

// State is the full in-memory content of one curriculum proposal draft.
// Collections are ordered; insertion order is display order.
type State struct {
	Program              Program               `json:"program"`
	PEOs                 []PEO                 `json:"peos"`
	ProgramOutcomes      []ProgramOutcome      `json:"pos"`
	Missions             []Mission             `json:"missions"`
	GraduateAttributes   []GraduateAttribute   `json:"graduate_attributes"`
	CourseCategories     []CourseCategory      `json:"course_categories"`
	Courses              []Course              `json:"courses"`
	YearSemesters        []YearSemester        `json:"year_semesters"`
	CurriculumCourses    []CurriculumCourse    `json:"curriculum_courses"`
	CommitteeAssignments []CommitteeAssignment `json:"committee_assignments"`
	PEOMissions          []PEOMission          `json:"peo_mission_mappings"`
	GAPEOs               []GAPEO               `json:"ga_peo_mappings"`
	POPEOs               []POPEO               `json:"po_peo_mappings"`
	POGAs                []POGA                `json:"po_ga_mappings"`
	CourseToPOs          []CourseToPO          `json:"course_po_mappings"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	cp := s
	cp.PEOs = cloneSlice(s.PEOs)
	cp.ProgramOutcomes = cloneSlice(s.ProgramOutcomes)
	cp.Missions = cloneSlice(s.Missions)
	cp.GraduateAttributes = cloneSlice(s.GraduateAttributes)
	cp.CourseCategories = cloneSlice(s.CourseCategories)
	cp.Courses = cloneSlice(s.Courses)
	cp.YearSemesters = cloneSlice(s.YearSemesters)
	cp.CurriculumCourses = cloneSlice(s.CurriculumCourses)
	cp.CommitteeAssignments = cloneSlice(s.CommitteeAssignments)
	cp.PEOMissions = cloneSlice(s.PEOMissions)
	cp.GAPEOs = cloneSlice(s.GAPEOs)
	cp.POPEOs = cloneSlice(s.POPEOs)
	cp.POGAs = cloneSlice(s.POGAs)
	cp.CourseToPOs = cloneCourseToPOs(s.CourseToPOs)
	return cp
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append([]T(nil), in...)
}

func cloneCourseToPOs(in []CourseToPO) []CourseToPO {
	if in == nil {
		return nil
	}
	out := make([]CourseToPO, len(in))
	for i, m := range in {
		m.ContributionLevels = append([]ContributionLevel(nil), m.ContributionLevels...)
		out[i] = m
	}
	return out
}

var sectionRestorers = map[Section]func(dst *State, src State){
	SectionProgram:              func(dst *State, src State) { dst.Program = src.Program },
	SectionPEOs:                 func(dst *State, src State) { dst.PEOs = cloneSlice(src.PEOs) },
	SectionPEOMissionMappings:   func(dst *State, src State) { dst.PEOMissions = cloneSlice(src.PEOMissions) },
	SectionGAPEOMappings:        func(dst *State, src State) { dst.GAPEOs = cloneSlice(src.GAPEOs) },
	SectionPOs:                  func(dst *State, src State) { dst.ProgramOutcomes = cloneSlice(src.ProgramOutcomes) },
	SectionPOPEOMappings:        func(dst *State, src State) { dst.POPEOs = cloneSlice(src.POPEOs) },
	SectionPOGAMappings:         func(dst *State, src State) { dst.POGAs = cloneSlice(src.POGAs) },
	SectionCourseCategories:     func(dst *State, src State) { dst.CourseCategories = cloneSlice(src.CourseCategories) },
	SectionYearSemesters:        func(dst *State, src State) { dst.YearSemesters = cloneSlice(src.YearSemesters) },
	SectionCourseToPOMappings:   func(dst *State, src State) { dst.CourseToPOs = cloneCourseToPOs(src.CourseToPOs) },
	SectionCommitteeAssignments: func(dst *State, src State) { dst.CommitteeAssignments = cloneSlice(src.CommitteeAssignments) },
	SectionCurriculumCourses: func(dst *State, src State) {
		dst.Courses = cloneSlice(src.Courses)
		dst.CurriculumCourses = cloneSlice(src.CurriculumCourses)
	},
}

func init() {
	for _, s := range allSections {
		if _, ok := sectionRestorers[s]; !ok {
			panic(fmt.Sprintf("domain: section %q has no restorer", s))
		}
	}
}

// RestoreSection replaces the collections owned by section with copies of
// the ones in src.
func (s *State) RestoreSection(section Section, src State) error {
	restore, ok := sectionRestorers[section]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownSection, section)
	}
	restore(s, src)
	return nil
}

// IDs returns the identifiers of the collection holding entity records.
// Mapping entities have no identifiers and yield nil.
func (s State) IDs(entity EntityType) []ID {
	switch entity {
	case EntityProgram:
		if s.Program.ID.IsZero() {
			return nil
		}
		return []ID{s.Program.ID}
	case EntityPEO:
		return collectIDs(s.PEOs, func(v PEO) ID { return v.ID })
	case EntityProgramOutcome:
		return collectIDs(s.ProgramOutcomes, func(v ProgramOutcome) ID { return v.ID })
	case EntityMission:
		return collectIDs(s.Missions, func(v Mission) ID { return v.ID })
	case EntityGraduateAttribute:
		return collectIDs(s.GraduateAttributes, func(v GraduateAttribute) ID { return v.ID })
	case EntityCourseCategory:
		return collectIDs(s.CourseCategories, func(v CourseCategory) ID { return v.ID })
	case EntityCourse:
		return collectIDs(s.Courses, func(v Course) ID { return v.ID })
	case EntityYearSemester:
		return collectIDs(s.YearSemesters, func(v YearSemester) ID { return v.ID })
	case EntityCurriculumCourse:
		return collectIDs(s.CurriculumCourses, func(v CurriculumCourse) ID { return v.ID })
	case EntityCommitteeAssignment:
		return collectIDs(s.CommitteeAssignments, func(v CommitteeAssignment) ID { return v.ID })
	default:
		return nil
	}
}

// Has reports whether a record of the entity type with id exists.
func (s State) Has(entity EntityType, id ID) bool {
	return ContainsID(s.IDs(entity), id)
}

func collectIDs[T any](items []T, idOf func(T) ID) []ID {
	out := make([]ID, 0, len(items))
	for _, item := range items {
		out = append(out, idOf(item))
	}
	return out
}

// IndexOf returns the position of the record with id, or -1.
func IndexOf[T any](items []T, id ID, idOf func(T) ID) int {
	for i, item := range items {
		if idOf(item) == id {
			return i
		}
	}
	return -1
}

// IsMapped reports whether the pair registry named by entity links a and b.
// The pair is ordered as the registry names it (e.g. PEO then mission).
func (s State) IsMapped(entity EntityType, a, b ID) bool {
	switch entity {
	case EntityPEOMission:
		for _, m := range s.PEOMissions {
			if m.PEOID == a && m.MissionID == b {
				return true
			}
		}
	case EntityGAPEO:
		for _, m := range s.GAPEOs {
			if m.GAID == a && m.PEOID == b {
				return true
			}
		}
	case EntityPOPEO:
		for _, m := range s.POPEOs {
			if m.POID == a && m.PEOID == b {
				return true
			}
		}
	case EntityPOGA:
		for _, m := range s.POGAs {
			if m.POID == a && m.GAID == b {
				return true
			}
		}
	case EntityCourseToPO:
		return len(s.Levels(a, b)) > 0
	}
	return false
}

// Levels returns the contribution levels linking a curriculum course to a
// program outcome; empty when unmapped.
func (s State) Levels(courseID, poID ID) []ContributionLevel {
	for _, m := range s.CourseToPOs {
		if m.CourseID == courseID && m.POID == poID {
			return append([]ContributionLevel(nil), m.ContributionLevels...)
		}
	}
	return nil
}

// CategoryCodeTaken reports whether another category (not except) already
// uses code, compared case-insensitively.
func (s State) CategoryCodeTaken(code string, except ID) bool {
	needle := strings.TrimSpace(code)
	if needle == "" {
		return false
	}
	for _, c := range s.CourseCategories {
		if c.ID == except {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(c.Code), needle) {
			return true
		}
	}
	return false
}

// Reference is one foreign key held by a record in the state.
type Reference struct {
	Section Section
	From    EntityType
	Index   int
	Field   string
	Target  EntityType
	ID      ID
}

// References lists every foreign key in the state in a stable order.
func (s State) References() []Reference {
	var refs []Reference
	add := func(section Section, from EntityType, i int, field string, target EntityType, id ID) {
		refs = append(refs, Reference{Section: section, From: from, Index: i, Field: field, Target: target, ID: id})
	}
	for i, m := range s.PEOMissions {
		add(SectionPEOMissionMappings, EntityPEOMission, i, "peo_id", EntityPEO, m.PEOID)
		add(SectionPEOMissionMappings, EntityPEOMission, i, "mission_id", EntityMission, m.MissionID)
	}
	for i, m := range s.GAPEOs {
		add(SectionGAPEOMappings, EntityGAPEO, i, "ga_id", EntityGraduateAttribute, m.GAID)
		add(SectionGAPEOMappings, EntityGAPEO, i, "peo_id", EntityPEO, m.PEOID)
	}
	for i, m := range s.POPEOs {
		add(SectionPOPEOMappings, EntityPOPEO, i, "po_id", EntityProgramOutcome, m.POID)
		add(SectionPOPEOMappings, EntityPOPEO, i, "peo_id", EntityPEO, m.PEOID)
	}
	for i, m := range s.POGAs {
		add(SectionPOGAMappings, EntityPOGA, i, "po_id", EntityProgramOutcome, m.POID)
		add(SectionPOGAMappings, EntityPOGA, i, "ga_id", EntityGraduateAttribute, m.GAID)
	}
	for i, cc := range s.CurriculumCourses {
		add(SectionCurriculumCourses, EntityCurriculumCourse, i, "course_id", EntityCourse, cc.CourseID)
		add(SectionCurriculumCourses, EntityCurriculumCourse, i, "course_category_id", EntityCourseCategory, cc.CourseCategoryID)
		add(SectionCurriculumCourses, EntityCurriculumCourse, i, "semester_id", EntityYearSemester, cc.SemesterID)
	}
	for i, m := range s.CourseToPOs {
		add(SectionCourseToPOMappings, EntityCourseToPO, i, "course_id", EntityCurriculumCourse, m.CourseID)
		add(SectionCourseToPOMappings, EntityCourseToPO, i, "po_id", EntityProgramOutcome, m.POID)
	}
	for i, a := range s.CommitteeAssignments {
		add(SectionCommitteeAssignments, EntityCommitteeAssignment, i, "curriculum_course_id", EntityCurriculumCourse, a.CurriculumCourseID)
	}
	return refs
}

// DanglingReferences returns the references whose target does not exist.
func (s State) DanglingReferences() []Reference {
	var out []Reference
	for _, ref := range s.References() {
		if !s.Has(ref.Target, ref.ID) {
			out = append(out, ref)
		}
	}
	return out
}

// PruneDangling removes mappings, placements and assignments whose
// references no longer resolve, repeating until no further record can be
// dropped. References for which keep returns true are left in place. It
// reports the sections it changed.
func (s *State) PruneDangling(keep func(Reference) bool) SectionSet {
	changed := NewSectionSet()
	for {
		drop := make(map[EntityType]map[int]struct{})
		for _, ref := range s.DanglingReferences() {
			if keep != nil && keep(ref) {
				continue
			}
			if drop[ref.From] == nil {
				drop[ref.From] = make(map[int]struct{})
			}
			drop[ref.From][ref.Index] = struct{}{}
			changed.Add(ref.Section)
		}
		if len(drop) == 0 {
			return changed
		}
		s.PEOMissions = dropIndexes(s.PEOMissions, drop[EntityPEOMission])
		s.GAPEOs = dropIndexes(s.GAPEOs, drop[EntityGAPEO])
		s.POPEOs = dropIndexes(s.POPEOs, drop[EntityPOPEO])
		s.POGAs = dropIndexes(s.POGAs, drop[EntityPOGA])
		s.CurriculumCourses = dropIndexes(s.CurriculumCourses, drop[EntityCurriculumCourse])
		s.CourseToPOs = dropIndexes(s.CourseToPOs, drop[EntityCourseToPO])
		s.CommitteeAssignments = dropIndexes(s.CommitteeAssignments, drop[EntityCommitteeAssignment])
	}
}

func dropIndexes[T any](items []T, drop map[int]struct{}) []T {
	if len(drop) == 0 {
		return items
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		if _, ok := drop[i]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}
