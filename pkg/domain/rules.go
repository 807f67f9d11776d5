package domain

import (
	"context"
	"fmt"
	"strings"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but allows commit.
	SeverityWarn Severity = "warn"
)

// Violation describes a single rule breach.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Section  Section
	Entity   EntityType
	EntityID ID
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Violations))
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, v.Message)
		}
	}
	if len(msgs) == 0 {
		return "transaction blocked by rules"
	}
	return "transaction blocked by rules: " + strings.Join(msgs, "; ")
}

// Rule defines an evaluation executed over the post-mutation state of a
// transaction before it commits.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, state State, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance with no rules.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// NewDefaultRulesEngine returns an engine carrying the draft invariants:
// referential integrity and category code uniqueness.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(ReferentialIntegrityRule())
	engine.Register(CategoryCodeUniqueRule())
	return engine
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, state State, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, state, changes)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		combined.Merge(res)
	}
	return combined, nil
}

type ruleFunc struct {
	name string
	fn   func(ctx context.Context, state State, changes []Change) (Result, error)
}

func (r ruleFunc) Name() string { return r.name }

func (r ruleFunc) Evaluate(ctx context.Context, state State, changes []Change) (Result, error) {
	return r.fn(ctx, state, changes)
}

// NewRule adapts a function into a Rule.
func NewRule(name string, fn func(ctx context.Context, state State, changes []Change) (Result, error)) Rule {
	return ruleFunc{name: name, fn: fn}
}

// ReferentialIntegrityRule blocks any commit leaving a mapping, placement or
// assignment pointing at a record that does not exist.
func ReferentialIntegrityRule() Rule {
	return NewRule("referential_integrity", func(_ context.Context, state State, _ []Change) (Result, error) {
		var res Result
		for _, ref := range state.DanglingReferences() {
			res.Violations = append(res.Violations, Violation{
				Rule:     "referential_integrity",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("%s[%d].%s references missing %s %s", ref.Section, ref.Index, ref.Field, ref.Target, ref.ID),
				Section:  ref.Section,
				Entity:   ref.From,
			})
		}
		return res, nil
	})
}

// CategoryCodeUniqueRule blocks commits holding two categories whose codes
// match ignoring case.
func CategoryCodeUniqueRule() Rule {
	return NewRule("category_code_unique", func(_ context.Context, state State, _ []Change) (Result, error) {
		var res Result
		for _, c := range state.CourseCategories {
			if state.CategoryCodeTaken(c.Code, c.ID) {
				res.Violations = append(res.Violations, Violation{
					Rule:     "category_code_unique",
					Severity: SeverityBlock,
					Message:  fmt.Sprintf("course category code %q is not unique", c.Code),
					Section:  SectionCourseCategories,
					Entity:   EntityCourseCategory,
					EntityID: c.ID,
				})
			}
		}
		return res, nil
	})
}
