package push

import (
	"errors"
)

// Kind classifies lifecycle failures.
type Kind string

const (
	KindNone        Kind = ""
	KindEnvironment Kind = "environment"
	KindPermission  Kind = "permission"
	KindRemote      Kind = "remote"
)

var (
	ErrNoServiceWorker    = errors.New("service worker registration not found")
	ErrPermissionDenied   = errors.New("notification permission not granted")
	ErrHandlesUnavailable = errors.New("messaging or store handle unavailable")
	ErrNotIdentified      = errors.New("user not identified")
	ErrSubscriptionGone   = errors.New("push subscription expired or unsubscribed")
)

// Error carries the kind and the step that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, KindRemote for unclassified errors and
// KindNone for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRemote
}
