package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a model validation failure.
type ErrorKind string

const (
	KindMissingRequiredField ErrorKind = "missing_required_field"
	KindLengthExceeded       ErrorKind = "length_exceeded"
	KindCapacityExceeded     ErrorKind = "capacity_exceeded"
	KindEmptyCollection      ErrorKind = "empty_collection"
	KindInvalidCombination   ErrorKind = "invalid_combination"
	KindIndeterminateChannel ErrorKind = "indeterminate_channel"
	KindInvalidTemporalValue ErrorKind = "invalid_temporal_value"
)

// Sentinels for errors.Is checks, one per kind.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrLengthExceeded       = errors.New("length exceeded")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrEmptyCollection      = errors.New("empty collection")
	ErrInvalidCombination   = errors.New("invalid combination")
	ErrIndeterminateChannel = errors.New("indeterminate channel")
	ErrInvalidTemporalValue = errors.New("invalid temporal value")
)

var kindSentinels = map[ErrorKind]error{
	KindMissingRequiredField: ErrMissingRequiredField,
	KindLengthExceeded:       ErrLengthExceeded,
	KindCapacityExceeded:     ErrCapacityExceeded,
	KindEmptyCollection:      ErrEmptyCollection,
	KindInvalidCombination:   ErrInvalidCombination,
	KindIndeterminateChannel: ErrIndeterminateChannel,
	KindInvalidTemporalValue: ErrInvalidTemporalValue,
}

// ValidationError reports why a model value cannot be serialized or mutated.
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Path    string    `json:"path,omitempty"`
	Object  string    `json:"object"`
	Fields  []string  `json:"fields,omitempty"`
	Message string    `json:"message"`
}

// NewValidationError builds a ValidationError for the named object.
func NewValidationError(kind ErrorKind, object, message string, fields ...string) *ValidationError {
	return &ValidationError{Kind: kind, Object: object, Fields: fields, Message: message}
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	if e.Object != "" {
		b.WriteString(e.Object)
		b.WriteString(": ")
	}
	if len(e.Fields) > 0 {
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

// Unwrap exposes the kind sentinel so errors.Is(err, ErrLengthExceeded) works.
func (e *ValidationError) Unwrap() error {
	return kindSentinels[e.Kind]
}

// KindOf returns the kind of the first ValidationError in err's tree, or "".
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// Flatten collects every ValidationError in err's tree, including joined errors.
func Flatten(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	if ve, ok := err.(*ValidationError); ok {
		return []*ValidationError{ve}
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		var out []*ValidationError
		for _, e := range x.Unwrap() {
			out = append(out, Flatten(e)...)
		}
		return out
	case interface{ Unwrap() error }:
		return Flatten(x.Unwrap())
	}
	return nil
}

// IsValidation reports whether err carries a model validation failure.
func IsValidation(err error) bool {
	return KindOf(err) != ""
}

// Join combines validation findings into one error, or nil when there are none.
func Join(errs ...error) error {
	var kept []error
	for _, e := range errs {
		if e != nil {
			kept = append(kept, e)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return errors.Join(kept...)
}

// Within records that err was found at path inside the enclosing object.
// Paths nest outward, so "channelList[0]" then "content" yields "channelList[0].content".
func Within(err error, format string, args ...any) error {
	path := fmt.Sprintf(format, args...)
	for _, ve := range Flatten(err) {
		switch {
		case ve.Path == "":
			ve.Path = path
		case strings.HasPrefix(ve.Path, "["):
			ve.Path = path + ve.Path
		default:
			ve.Path = path + "." + ve.Path
		}
	}
	return err
}
