// Package wizard sequences the sections of the creation and revision
// wizards: a linear run of steps followed by a review state.
package wizard

import (
	"errors"
	"fmt"

	"curricore/pkg/domain"
)

// Transition reports where a Next or Previous call left the sequencer.
type Transition int

const (
	// Moved means the sequencer now sits on another step.
	Moved Transition = iota
	// EnteredReview means Next left the last step.
	EnteredReview
	// Exited means Previous was called on the first step; the caller leaves
	// the wizard. The sequencer does not move.
	Exited
	// Stayed means Next was called while already in review.
	Stayed
)

func (t Transition) String() string {
	switch t {
	case Moved:
		return "moved"
	case EnteredReview:
		return "entered_review"
	case Exited:
		return "exited"
	case Stayed:
		return "stayed"
	default:
		return fmt.Sprintf("transition(%d)", int(t))
	}
}

// ErrNoSteps is returned for a wizard without any section to visit.
var ErrNoSteps = errors.New("wizard has no steps")

var titles = map[domain.Section]string{
	domain.SectionProgram:              "Program Details",
	domain.SectionPEOs:                 "Program Educational Objectives",
	domain.SectionPEOMissionMappings:   "PEO to Mission Mapping",
	domain.SectionGAPEOMappings:        "Graduate Attribute to PEO Mapping",
	domain.SectionPOs:                  "Program Outcomes",
	domain.SectionPOPEOMappings:        "PO to PEO Mapping",
	domain.SectionPOGAMappings:         "PO to Graduate Attribute Mapping",
	domain.SectionCourseCategories:     "Course Categories",
	domain.SectionYearSemesters:        "Year and Semester",
	domain.SectionCurriculumCourses:    "Curriculum Courses",
	domain.SectionCourseToPOMappings:   "Course to PO Mapping",
	domain.SectionCommitteeAssignments: "Committee Assignment",
}

func init() {
	for _, s := range domain.AllSections() {
		if _, ok := titles[s]; !ok {
			panic(fmt.Sprintf("wizard: section %q has no title", s))
		}
	}
}

// Title returns the display title of a section step.
func Title(s domain.Section) string { return titles[s] }

// Sequencer is not safe for concurrent use; each wizard session owns one.
type Sequencer struct {
	steps   []domain.Section
	current int
	review  bool
}

// New returns a sequencer over steps, starting on the first one. Steps are
// deduplicated keeping their first position.
func New(steps []domain.Section) (*Sequencer, error) {
	seen := domain.NewSectionSet()
	out := make([]domain.Section, 0, len(steps))
	for _, s := range steps {
		if !s.Valid() {
			return nil, fmt.Errorf("%w %q", domain.ErrUnknownSection, s)
		}
		if seen.Has(s) {
			continue
		}
		seen.Add(s)
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrNoSteps
	}
	return &Sequencer{steps: out}, nil
}

// ForCreation visits every section in wizard order.
func ForCreation() *Sequencer {
	return &Sequencer{steps: domain.AllSections()}
}

// ForRevision visits, in wizard order, the sections named by pending
// revision requests. Resolved requests are skipped.
func ForRevision(requests []domain.RevisionRequest) (*Sequencer, error) {
	set := domain.NewSectionSet()
	for _, r := range requests {
		if r.Status == domain.RevisionResolved {
			continue
		}
		if !r.Section.Valid() {
			return nil, fmt.Errorf("revision request %s: %w %q", r.ID, domain.ErrUnknownSection, r.Section)
		}
		set.Add(r.Section)
	}
	return New(set.Sorted())
}

// Steps returns a copy of the step list.
func (q *Sequencer) Steps() []domain.Section {
	return append([]domain.Section(nil), q.steps...)
}

// Index returns the current step index. In review it is the last index.
func (q *Sequencer) Index() int { return q.current }

// InReview reports whether the sequencer passed the last step.
func (q *Sequencer) InReview() bool { return q.review }

// Current returns the current step, or false in review.
func (q *Sequencer) Current() (domain.Section, bool) {
	if q.review {
		return "", false
	}
	return q.steps[q.current], true
}

// Next advances one step, entering review after the last one.
func (q *Sequencer) Next() Transition {
	switch {
	case q.review:
		return Stayed
	case q.current == len(q.steps)-1:
		q.review = true
		return EnteredReview
	default:
		q.current++
		return Moved
	}
}

// Previous goes back one step. From review it returns to the last step; on
// the first step it reports Exited.
func (q *Sequencer) Previous() Transition {
	switch {
	case q.review:
		q.review = false
		return Moved
	case q.current == 0:
		return Exited
	default:
		q.current--
		return Moved
	}
}

// Restore puts the sequencer at index, clamped into range, e.g. when a
// resumed draft remembers where the user stopped.
func (q *Sequencer) Restore(index int, review bool) {
	q.current = min(max(index, 0), len(q.steps)-1)
	q.review = review
	if review {
		q.current = len(q.steps) - 1
	}
}

// Position is a snapshot for display.
type Position struct {
	Index   int            `json:"index"`
	Total   int            `json:"total"`
	Section domain.Section `json:"section,omitempty"`
	Title   string         `json:"title,omitempty"`
	Review  bool           `json:"review"`
}

// Position describes where the sequencer stands.
func (q *Sequencer) Position() Position {
	p := Position{Index: q.current, Total: len(q.steps), Review: q.review}
	if s, ok := q.Current(); ok {
		p.Section = s
		p.Title = Title(s)
	}
	return p
}
