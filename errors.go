package housekeeping

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyStarted      = errors.New("already started")
	ErrNotStarted          = errors.New("not started")
	ErrWithdrawUnsupported = errors.New("notification withdrawal is not supported")
)

// An InventoryError reports the failure to query a single mount. It is
// recoverable: the mount is simply dropped from the current snapshot.
type InventoryError struct {
	Path string
	Err  error
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("could not query mount %s: %s", e.Path, e.Err)
}

func (e *InventoryError) Unwrap() error {
	return e.Err
}

// A StartError is returned when the monitor could not be started,
// either because of an invalid configuration or because it is
// already running.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("could not start low disk space monitor: %s", e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// A TrashError reports a failed trash emptying action. It is never
// retried.
type TrashError struct {
	Err error
}

func (e *TrashError) Error() string {
	return fmt.Sprintf("could not empty trash: %s", e.Err)
}

func (e *TrashError) Unwrap() error {
	return e.Err
}

// A SchedulerError reports a failure to subscribe to mount table
// changes. The monitor keeps polling on its interval.
type SchedulerError struct {
	Err error
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("could not watch mount table changes: %s", e.Err)
}

func (e *SchedulerError) Unwrap() error {
	return e.Err
}
