package entity

import (
	"fmt"
	"strings"
)

// FieldError is one violated validation rule, addressable to a form field so
// the caller can render field-specific messages.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

const (
	RuleRequired     = "required"
	RuleFormat       = "format"
	RuleTooLong      = "too_long"
	RulePastDate     = "past_date"
	RuleUnknownSlot  = "unknown_slot"
	RuleSlotTaken    = "slot_taken"
	RuleInvalidValue = "invalid_value"
	RuleBelowMinimum = "below_minimum"
	RuleExceedsTotal = "exceeds_total"
)

// ValidationErrors collects every violated rule of one intent. It is never a
// single opaque failure.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
