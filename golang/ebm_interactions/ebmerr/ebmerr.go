// Package ebmerr defines the closed set of error kinds returned by the interaction core.
package ebmerr

import (
	"errors"
	"fmt"
)

// Kind is the numeric error code handed back to callers.
type Kind int32

const (
	None               Kind = 0
	OutOfMemory        Kind = -1
	UnexpectedInternal Kind = -2
	IllegalParamVal    Kind = -3
	UserParamVal       Kind = -4
)

func (k Kind) String() string {
	switch k {
	case None:
		return "None"
	case OutOfMemory:
		return "OutOfMemory"
	case UnexpectedInternal:
		return "UnexpectedInternal"
	case IllegalParamVal:
		return "IllegalParamVal"
	case UserParamVal:
		return "UserParamVal"
	default:
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
}

// Error is a sentinel carrying a Kind. Two Errors match under errors.Is when
// their kinds are equal, so format specific sentinels still compare equal to
// the generic ones.
type Error struct {
	kind Kind
	msg  string
}

// New returns a sentinel of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind returns the error code.
func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.kind == e.kind
}

var (
	ErrOutOfMemory        = New(OutOfMemory, "out of memory")
	ErrUnexpectedInternal = New(UnexpectedInternal, "unexpected internal error")
	ErrIllegalParamVal    = New(IllegalParamVal, "illegal parameter value")
	ErrUserParamVal       = New(UserParamVal, "user parameter value")
)

// KindOf maps any error to its Kind. Errors that were not built from this
// package are reported as UnexpectedInternal.
func KindOf(err error) Kind {
	if err == nil {
		return None
	}
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return UnexpectedInternal
}
