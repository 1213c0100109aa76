package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLockHeld     = errors.New("lock already held")
	ErrNoHistory    = errors.New("no price history")
	ErrUnknownModel = errors.New("unknown pricing model")
)

// Kind is the machine-readable class of a failure surfaced at the API boundary.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindPricing         Kind = "pricing"
	KindDataUnavailable Kind = "data_unavailable"
	KindNormalization   Kind = "normalization"
	KindInternal        Kind = "internal"
)

// ValidationError reports a malformed or out-of-range request field. It is
// raised before any collaborator is called.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// PricingError reports that the pricing collaborator rejected a request or
// could not produce a finite price.
type PricingError struct {
	Reason string
	Field  string
	Err    error
}

func (e *PricingError) Error() string {
	msg := "pricing: " + e.Reason
	if e.Field != "" {
		msg += " (field " + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PricingError) Unwrap() error { return e.Err }

// DataUnavailableError reports that no usable history could be obtained for a
// symbol. Callers may retry; the service itself does not.
type DataUnavailableError struct {
	Symbol string
	Reason string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	msg := fmt.Sprintf("data unavailable for %s: %s", e.Symbol, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// NormalizationError is reserved. Normalization is total and never returns it.
type NormalizationError struct {
	Reason string
}

func (e *NormalizationError) Error() string { return "normalization: " + e.Reason }

// KindOf classifies err by walking its chain.
func KindOf(err error) Kind {
	var (
		ve *ValidationError
		pe *PricingError
		de *DataUnavailableError
		ne *NormalizationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &pe):
		return KindPricing
	case errors.As(err, &de):
		return KindDataUnavailable
	case errors.As(err, &ne):
		return KindNormalization
	default:
		return KindInternal
	}
}

// FieldOf returns the offending request field recorded on err, if any.
func FieldOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	var pe *PricingError
	if errors.As(err, &pe) {
		return pe.Field
	}
	return ""
}
