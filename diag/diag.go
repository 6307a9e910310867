// Package diag holds error kinds and structured diagnostics shared by the retargeting core.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindNone Kind = iota
	InvalidInput
	MappingEmpty
	PoseMismatch
	TrackDropped
	NotInitialized
	IOAdjacent
)

var kindNames = map[Kind]string{
	KindNone:       "none",
	InvalidInput:   "invalid_input",
	MappingEmpty:   "mapping_empty",
	PoseMismatch:   "pose_mismatch",
	TrackDropped:   "track_dropped",
	NotInitialized: "not_initialized",
	IOAdjacent:     "io",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Warning kinds never abort an operation.
func (k Kind) IsWarning() bool {
	return k == MappingEmpty || k == TrackDropped
}

type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func Errorf(kind Kind, format string, a ...interface{}) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, a...)}
}

// KindOf digs through wrapped errors; unknown errors report KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Kind
	}
	return KindNone
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Result is the value-or-failure shape returned at package boundaries.
type Result[T any] struct {
	Ok     bool   `json:"ok"`
	Value  T      `json:"value,omitempty"`
	Kind   Kind   `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Ok: true, Value: v}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Kind: KindOf(err), Detail: err.Error()}
}

func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

func (r Result[T]) Unwrap() (T, error) {
	if !r.Ok {
		var zero T
		return zero, &Error{Kind: r.Kind, Detail: r.Detail}
	}
	return r.Value, nil
}
