package quota

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentials is returned when a pool is built from an empty list.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrQuotaExhausted means every credential of the pool has been
	// exhausted. It is final for the rest of the run.
	ErrQuotaExhausted = errors.New("all credentials exhausted")
	// ErrRequestRejected matches any *RejectedError.
	ErrRequestRejected = errors.New("request rejected")
)

// RejectedError is a permanent failure scoped to one logical request.
// The credential pool is left as it was.
type RejectedError struct {
	Credential string
	Err        error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("request rejected (credential %s): %v", e.Credential, e.Err)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrRequestRejected) match.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRequestRejected
}
