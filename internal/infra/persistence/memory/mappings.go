package memory

import (
	"slices"

	"curricore/pkg/domain"
)

// togglePair inserts the pair when absent and removes it when present. It
// reports whether the pair is linked afterwards.
func togglePair[T comparable](items []T, pair T) ([]T, bool) {
	if idx := slices.Index(items, pair); idx >= 0 {
		return slices.Delete(items, idx, idx+1), false
	}
	return append(items, pair), true
}

func (tx *transaction) requireExists(entity domain.EntityType, id domain.ID) error {
	if !tx.state.Has(entity, id) {
		return domain.ErrNotFound{Entity: entity, ID: id}
	}
	return nil
}

func (tx *transaction) recordToggle(section domain.Section, entity domain.EntityType, pair any, linked bool) {
	change := domain.Change{Section: section, Entity: entity, Action: domain.ActionCreate, After: pair}
	if !linked {
		change = domain.Change{Section: section, Entity: entity, Action: domain.ActionDelete, Before: pair}
	}
	tx.recordChange(change)
}

// TogglePEOMission links or unlinks a PEO and a mission.
func (tx *transaction) TogglePEOMission(peo, mission domain.ID) (bool, error) {
	if err := tx.requireExists(domain.EntityPEO, peo); err != nil {
		return false, err
	}
	if err := tx.requireExists(domain.EntityMission, mission); err != nil {
		return false, err
	}
	pair := domain.PEOMission{PEOID: peo, MissionID: mission}
	var linked bool
	tx.state.PEOMissions, linked = togglePair(tx.state.PEOMissions, pair)
	tx.recordToggle(domain.SectionPEOMissionMappings, domain.EntityPEOMission, pair, linked)
	return linked, nil
}

// ToggleGAPEO links or unlinks a graduate attribute and a PEO.
func (tx *transaction) ToggleGAPEO(ga, peo domain.ID) (bool, error) {
	if err := tx.requireExists(domain.EntityGraduateAttribute, ga); err != nil {
		return false, err
	}
	if err := tx.requireExists(domain.EntityPEO, peo); err != nil {
		return false, err
	}
	pair := domain.GAPEO{GAID: ga, PEOID: peo}
	var linked bool
	tx.state.GAPEOs, linked = togglePair(tx.state.GAPEOs, pair)
	tx.recordToggle(domain.SectionGAPEOMappings, domain.EntityGAPEO, pair, linked)
	return linked, nil
}

// TogglePOPEO links or unlinks a program outcome and a PEO.
func (tx *transaction) TogglePOPEO(po, peo domain.ID) (bool, error) {
	if err := tx.requireExists(domain.EntityProgramOutcome, po); err != nil {
		return false, err
	}
	if err := tx.requireExists(domain.EntityPEO, peo); err != nil {
		return false, err
	}
	pair := domain.POPEO{POID: po, PEOID: peo}
	var linked bool
	tx.state.POPEOs, linked = togglePair(tx.state.POPEOs, pair)
	tx.recordToggle(domain.SectionPOPEOMappings, domain.EntityPOPEO, pair, linked)
	return linked, nil
}

// TogglePOGA links or unlinks a program outcome and a graduate attribute.
func (tx *transaction) TogglePOGA(po, ga domain.ID) (bool, error) {
	if err := tx.requireExists(domain.EntityProgramOutcome, po); err != nil {
		return false, err
	}
	if err := tx.requireExists(domain.EntityGraduateAttribute, ga); err != nil {
		return false, err
	}
	pair := domain.POGA{POID: po, GAID: ga}
	var linked bool
	tx.state.POGAs, linked = togglePair(tx.state.POGAs, pair)
	tx.recordToggle(domain.SectionPOGAMappings, domain.EntityPOGA, pair, linked)
	return linked, nil
}

func (tx *transaction) courseToPOIndex(course, po domain.ID) int {
	return slices.IndexFunc(tx.state.CourseToPOs, func(m domain.CourseToPO) bool {
		return m.CourseID == course && m.POID == po
	})
}

// SetCourseToPOLevels replaces the levels on a course/outcome pair. An empty
// level list removes the mapping; duplicate levels collapse.
func (tx *transaction) SetCourseToPOLevels(course, po domain.ID, levels []domain.ContributionLevel) error {
	if err := tx.requireExists(domain.EntityCurriculumCourse, course); err != nil {
		return err
	}
	if err := tx.requireExists(domain.EntityProgramOutcome, po); err != nil {
		return err
	}
	normalized := make([]domain.ContributionLevel, 0, len(levels))
	for _, level := range levels {
		parsed, err := domain.ParseContributionLevel(string(level))
		if err != nil {
			return err
		}
		if !slices.Contains(normalized, parsed) {
			normalized = append(normalized, parsed)
		}
	}

	idx := tx.courseToPOIndex(course, po)
	switch {
	case idx < 0 && len(normalized) == 0:
		return nil
	case idx < 0:
		mapping := domain.CourseToPO{CourseID: course, POID: po, ContributionLevels: normalized}
		tx.state.CourseToPOs = append(tx.state.CourseToPOs, mapping)
		tx.recordChange(domain.Change{Section: domain.SectionCourseToPOMappings, Entity: domain.EntityCourseToPO, Action: domain.ActionCreate, After: mapping})
	case len(normalized) == 0:
		before := tx.state.CourseToPOs[idx]
		tx.state.CourseToPOs = slices.Delete(tx.state.CourseToPOs, idx, idx+1)
		tx.recordChange(domain.Change{Section: domain.SectionCourseToPOMappings, Entity: domain.EntityCourseToPO, Action: domain.ActionDelete, Before: before})
	default:
		before := tx.state.CourseToPOs[idx]
		after := before
		after.ContributionLevels = normalized
		tx.state.CourseToPOs[idx] = after
		tx.recordChange(domain.Change{Section: domain.SectionCourseToPOMappings, Entity: domain.EntityCourseToPO, Action: domain.ActionUpdate, Before: before, After: after})
	}
	return nil
}

// ToggleCourseToPOLevel adds level to the pair's level set or removes it when
// already present. Removing the last level removes the mapping. The resulting
// level set is returned.
func (tx *transaction) ToggleCourseToPOLevel(course, po domain.ID, level domain.ContributionLevel) ([]domain.ContributionLevel, error) {
	parsed, err := domain.ParseContributionLevel(string(level))
	if err != nil {
		return nil, err
	}
	levels := tx.state.Levels(course, po)
	if idx := slices.Index(levels, parsed); idx >= 0 {
		levels = slices.Delete(levels, idx, idx+1)
	} else {
		levels = append(levels, parsed)
	}
	if err := tx.SetCourseToPOLevels(course, po, levels); err != nil {
		return nil, err
	}
	return tx.state.Levels(course, po), nil
}
