// Package apperror holds the failure kinds the address and cart services
// return to their callers.
//
// Kinds are compared with errors.Is. Domain packages declare their own
// sentinels wrapping a kind, and Wrap attaches the owner and record that
// triggered the failure so the transport layer can report it.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the referenced record is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrLimitExceeded: a business cap was hit. Never retried.
	ErrLimitExceeded = errors.New("limit exceeded")
	// ErrConsistencyConflict: a concurrent writer invalidated the state this
	// call was computed from. Callers may retry once with fresh state.
	ErrConsistencyConflict = errors.New("consistency conflict")
)

type Error struct {
	OwnerID  uint
	RecordID string
	Err      error
}

func (e *Error) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("%v (owner=%d)", e.Err, e.OwnerID)
	}
	return fmt.Sprintf("%v (owner=%d record=%s)", e.Err, e.OwnerID, e.RecordID)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap annotates err with the owner and record it concerns. A nil err stays nil.
func Wrap(err error, ownerID uint, recordID string) error {
	if err == nil {
		return nil
	}
	return &Error{OwnerID: ownerID, RecordID: recordID, Err: err}
}

// Kind reports which taxonomy kind err belongs to, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrLimitExceeded, ErrConsistencyConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

func IsConflict(err error) bool { return errors.Is(err, ErrConsistencyConflict) }
