package domain

import (
	"errors"
	"fmt"
)

// SyncError reports a feed mutation whose optimistic local change was
// applied but whose server confirmation failed. The local feed may
// diverge from the server until the next snapshot fetch.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("notification sync pending: %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsSyncError reports whether err is a mutation that is pending
// reconciliation with the server.
func IsSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}
