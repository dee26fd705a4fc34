// Package fault classifies engine errors into the categories callers need
// to distinguish: validation failures must not be retried, exhaustion
// failures may be retried once the underlying balance recovers, state and
// authorization failures indicate the call itself was wrong.
package fault

import (
	"errors"
	"fmt"
)

// Kind is the error category.
type Kind uint8

const (
	// Validation marks out-of-range or malformed inputs.
	Validation Kind = iota
	// State marks operations on inactive, missing, or finalized entities.
	State
	// Authorization marks calls by an identity lacking ownership or role.
	Authorization
	// Exhausted marks insufficient balance, stake, compost, or capacity.
	Exhausted
)

// String returns the category name.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case State:
		return "state"
	case Authorization:
		return "authorization"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// Error is a categorized error. Sentinels are declared as *Error values so
// both errors.Is on the sentinel and KindOf on the chain work.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// New returns a categorized sentinel error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap annotates err with operation context, preserving the chain.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// KindOf extracts the category from an error chain.
// Errors without a fault.Error in the chain report as State.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return State
}

// Retryable reports whether the failure may succeed on retry once the
// exhausted balance or capacity recovers.
func Retryable(err error) bool {
	return err != nil && KindOf(err) == Exhausted
}
