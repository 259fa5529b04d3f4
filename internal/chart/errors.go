package chart

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category of a pipeline failure.
type Kind string

const (
	KindSchema            Kind = "schema_error"
	KindChartTypeMismatch Kind = "chart_type_mismatch"
	KindNoNumericColumn   Kind = "no_numeric_column"
	KindNoChartType       Kind = "no_chart_type"
	KindDegenerateData    Kind = "degenerate_data"
	KindParsingAnomaly    Kind = "parsing_anomaly"
	KindUnexpected        Kind = "unexpected_error"
)

// Fatal reports whether errors of this kind abort a request.
// Degenerate data and parsing anomalies are absorbed and reported as diagnostics.
func (k Kind) Fatal() bool {
	switch k {
	case KindDegenerateData, KindParsingAnomaly:
		return false
	default:
		return true
	}
}

// Error is a structured pipeline failure carrying a Kind and a human-readable message.
type Error struct {
	Kind   Kind
	Column string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Column != "" {
		msg = fmt.Sprintf("%s (column %q)", msg, e.Column)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrSchema            = &Error{Kind: KindSchema}
	ErrChartTypeMismatch = &Error{Kind: KindChartTypeMismatch}
	ErrNoNumericColumn   = &Error{Kind: KindNoNumericColumn}
	ErrNoChartType       = &Error{Kind: KindNoChartType}
	ErrDegenerateData    = &Error{Kind: KindDegenerateData}
	ErrParsingAnomaly    = &Error{Kind: KindParsingAnomaly}
)

// KindOf returns the Kind of err, or KindUnexpected for errors outside the taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnexpected
}

func newError(kind Kind, column, format string, args ...any) *Error {
	return &Error{Kind: kind, Column: column, Msg: fmt.Sprintf(format, args...)}
}
