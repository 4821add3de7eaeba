package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

// Severity tells the store what to do with a violation.
type Severity string

const (
	// SeverityWarn is recorded and logged; the mutation proceeds.
	SeverityWarn Severity = "warn"
	// SeverityBlock fails the mutation before any service call.
	SeverityBlock Severity = "block"
)

// Change is the mutation a rule is asked to judge. Before is the zero value
// for creates and for updates of ids that are not cached.
type Change[T Entity] struct {
	Op     Op
	ID     string
	Before T
	After  T
	Patch  crm.Patch
}

// Violation reports one failed rule.
type Violation struct {
	Rule     string
	Field    string
	Message  string
	Severity Severity
}

func (v Violation) String() string {
	if v.Field == "" {
		return fmt.Sprintf("%s: %s", v.Rule, v.Message)
	}
	return fmt.Sprintf("%s: %s: %s", v.Rule, v.Field, v.Message)
}

// Rule is a local business check run before a create or update.
type Rule[T Entity] interface {
	Name() string
	Evaluate(ctx context.Context, change Change[T]) Result
}

// Result aggregates violations.
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
	return len(r.filter(SeverityBlock)) > 0
}

func (r Result) filter(sev Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == sev {
			out = append(out, v)
		}
	}
	return out
}

// ValidationError is returned when blocking violations are present. It
// never originates from the network.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return common.ErrValidation }

// RuleFunc adapts a function to Rule.
type RuleFunc[T Entity] struct {
	RuleName string
	Fn       func(ctx context.Context, change Change[T]) Result
}

func (r RuleFunc[T]) Name() string { return r.RuleName }

func (r RuleFunc[T]) Evaluate(ctx context.Context, change Change[T]) Result {
	return r.Fn(ctx, change)
}

// NewRule builds a single-violation rule: check returns a non-empty message
// when change is invalid.
func NewRule[T Entity](name, field string, sev Severity, check func(change Change[T]) string) Rule[T] {
	return RuleFunc[T]{
		RuleName: name,
		Fn: func(_ context.Context, change Change[T]) Result {
			msg := check(change)
			if msg == "" {
				return Result{}
			}
			return Result{Violations: []Violation{{Rule: name, Field: field, Message: msg, Severity: sev}}}
		},
	}
}

// Lookup is the read side of a sibling store.
type Lookup interface {
	Name() string
	Contains(id string) bool
}

// RequireReference warns when the foreign id returned by ref is set but not
// present in the sibling store's cache. It never blocks: an unpopulated
// sibling cache says nothing about the server.
func RequireReference[T Entity](field string, sibling Lookup, ref func(T) string) Rule[T] {
	name := "reference." + field
	return NewRule(name, field, SeverityWarn, func(change Change[T]) string {
		id := ref(change.After)
		if id == "" || sibling.Contains(id) {
			return ""
		}
		return fmt.Sprintf("%s %s is not loaded locally", sibling.Name(), id)
	})
}

// validate runs every rule against change. Warnings are stored under op;
// blocking violations come back as a *ValidationError.
func (s *Store[T]) validate(ctx context.Context, op Op, change Change[T]) error {
	s.mu.RLock()
	rules := append([]Rule[T](nil), s.rules...)
	s.mu.RUnlock()

	var combined Result
	for _, r := range rules {
		combined.Merge(r.Evaluate(ctx, change))
	}

	if warns := combined.filter(SeverityWarn); len(warns) > 0 {
		s.mu.Lock()
		s.warnings[op] = append(s.warnings[op], warns...)
		s.mu.Unlock()
		for _, w := range warns {
			s.log.Warn(ctx, "soft validation failed", "op", op, "id", change.ID, "rule", w.Rule, "message", w.Message)
		}
	}
	if blocks := combined.filter(SeverityBlock); len(blocks) > 0 {
		return &ValidationError{Violations: blocks}
	}
	return nil
}
