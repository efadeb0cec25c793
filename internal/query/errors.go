package query

import (
	"errors"
	"fmt"
)

// ErrInvalidPlan is matched by every plan validation failure.
var ErrInvalidPlan = errors.New("invalid query plan")

// PlanError reports which part of a plan was rejected.
type PlanError struct {
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (e *PlanError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrInvalidPlan, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrInvalidPlan, e.Field, e.Reason)
}

func (e *PlanError) Unwrap() error { return ErrInvalidPlan }

func planErr(field, format string, args ...any) *PlanError {
	return &PlanError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
