package validator

import (
	"fmt"
	"regexp"
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// --- Required ---

type requiredRule struct {
	BaseRule
}

func (r *requiredRule) Validate(v any) error {
	if !r.ShouldValidate(v) {
		return nil
	}
	if isZeroValue(v) {
		return r.FormatError(fmt.Errorf("is required"))
	}
	return nil
}

func (r *requiredRule) Msg(msg string) Rule         { nr := *r; nr.SetMsg(msg); return &nr }
func (r *requiredRule) Optional() Rule              { nr := *r; nr.SetOptional(); return &nr }
func (r *requiredRule) When(fn func(any) bool) Rule { nr := *r; nr.SetWhen(fn); return &nr }

var Required Rule = &requiredRule{}

// --- In ---

type inRule struct {
	BaseRule
	values []any
}

func (r *inRule) Validate(v any) error {
	if !r.ShouldValidate(v) {
		return nil
	}
	for _, val := range r.values {
		if val == v {
			return nil
		}
	}
	return r.FormatError(fmt.Errorf("value %v is not in the allowed list %v", v, r.values))
}

func (r *inRule) Msg(msg string) Rule         { nr := *r; nr.SetMsg(msg); return &nr }
func (r *inRule) Optional() Rule              { nr := *r; nr.SetOptional(); return &nr }
func (r *inRule) When(fn func(any) bool) Rule { nr := *r; nr.SetWhen(fn); return &nr }

func In(values ...any) Rule {
	return &inRule{values: values}
}

// --- Identifier ---

// identifierRule accepts a bare or table-qualified SQL identifier. Names that
// end up spliced into statements go through it.
type identifierRule struct {
	BaseRule
}

func (r *identifierRule) Validate(v any) error {
	if !r.ShouldValidate(v) {
		return nil
	}
	s, ok := v.(string)
	if !ok || !identifierRegex.MatchString(s) {
		return r.FormatError(fmt.Errorf("%q is not a valid identifier", v))
	}
	return nil
}

func (r *identifierRule) Msg(msg string) Rule         { nr := *r; nr.SetMsg(msg); return &nr }
func (r *identifierRule) Optional() Rule              { nr := *r; nr.SetOptional(); return &nr }
func (r *identifierRule) When(fn func(any) bool) Rule { nr := *r; nr.SetWhen(fn); return &nr }

var Identifier Rule = &identifierRule{}

// --- Each ---

type eachRule struct {
	BaseRule
	rule Rule
}

// Validate applies the wrapped rule to every element of a []string or []any.
func (r *eachRule) Validate(v any) error {
	if !r.ShouldValidate(v) {
		return nil
	}
	var items []any
	switch s := v.(type) {
	case []string:
		for _, item := range s {
			items = append(items, item)
		}
	case []any:
		items = s
	default:
		return nil
	}
	for i, item := range items {
		if err := r.rule.Validate(item); err != nil {
			return r.FormatError(fmt.Errorf("element %d: %w", i, err))
		}
	}
	return nil
}

func (r *eachRule) Msg(msg string) Rule         { nr := *r; nr.SetMsg(msg); return &nr }
func (r *eachRule) Optional() Rule              { nr := *r; nr.SetOptional(); return &nr }
func (r *eachRule) When(fn func(any) bool) Rule { nr := *r; nr.SetWhen(fn); return &nr }

func Each(rule Rule) Rule {
	return &eachRule{rule: rule}
}
