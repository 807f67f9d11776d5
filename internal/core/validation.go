package core

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"curricore/pkg/domain"
)

// ValidationError carries field level messages keyed by path, e.g.
// "peos[0].statement".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// An unset ID fails "required"; both variants count as set.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		id, ok := field.Interface().(domain.ID)
		if !ok || id.IsZero() {
			return nil
		}
		return id.Value()
	}, domain.ID{})
	return v
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

type fieldCollector map[string]string

func (c fieldCollector) check(path string, record any) {
	err := validate.Struct(record)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		c[path] = err.Error()
		return
	}
	for _, fe := range verrs {
		c[path+"."+fe.Field()] = message(fe)
	}
}

func checkAll[T any](c fieldCollector, name string, records []T) {
	for i, rec := range records {
		c.check(fmt.Sprintf("%s[%d]", name, i), rec)
	}
}

var sectionValidators = map[domain.Section]func(fieldCollector, domain.State){
	domain.SectionProgram:              func(c fieldCollector, s domain.State) { c.check("program", s.Program) },
	domain.SectionPEOs:                 func(c fieldCollector, s domain.State) { checkAll(c, "peos", s.PEOs) },
	domain.SectionPOs:                  func(c fieldCollector, s domain.State) { checkAll(c, "pos", s.ProgramOutcomes) },
	domain.SectionCourseCategories:     func(c fieldCollector, s domain.State) { checkAll(c, "course_categories", s.CourseCategories) },
	domain.SectionYearSemesters:        func(c fieldCollector, s domain.State) { checkAll(c, "year_semesters", s.YearSemesters) },
	domain.SectionCommitteeAssignments: func(c fieldCollector, s domain.State) { checkAll(c, "committee_assignments", s.CommitteeAssignments) },
	domain.SectionCurriculumCourses: func(c fieldCollector, s domain.State) {
		checkAll(c, "courses", s.Courses)
		checkAll(c, "curriculum_courses", s.CurriculumCourses)
	},
	domain.SectionCourseToPOMappings: func(c fieldCollector, s domain.State) {
		for i, m := range s.CourseToPOs {
			if len(m.ContributionLevels) == 0 {
				c[fmt.Sprintf("course_po_mappings[%d].contribution_levels", i)] = "is required"
			}
		}
	},
	// Pair registries hold nothing beyond the two references.
	domain.SectionPEOMissionMappings: func(fieldCollector, domain.State) {},
	domain.SectionGAPEOMappings:      func(fieldCollector, domain.State) {},
	domain.SectionPOPEOMappings:      func(fieldCollector, domain.State) {},
	domain.SectionPOGAMappings:       func(fieldCollector, domain.State) {},
}

func init() {
	for _, s := range domain.AllSections() {
		if _, ok := sectionValidators[s]; !ok {
			panic(fmt.Sprintf("core: section %q has no validator", s))
		}
	}
}

// ValidateState checks the records of the given sections and returns a
// *ValidationError listing every offending field, or nil.
func ValidateState(state domain.State, sections domain.SectionSet) error {
	fields := fieldCollector{}
	for _, section := range sections.Sorted() {
		sectionValidators[section](fields, state)
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
