package routing

import "errors"

// Sentinel errors. Every failure returned by the router matches one of them
// through errors.Is.
var (
	// ErrNotFound is returned by Match when no pattern matches the URI.
	ErrNotFound = errors.New("routing: not found")

	// ErrInvalidArgument marks a malformed route or match, or an action
	// parameter that cannot be converted to the declared type.
	ErrInvalidArgument = errors.New("routing: invalid argument")

	// ErrRuntime marks controller resolution and action lookup failures.
	ErrRuntime = errors.New("routing: runtime error")
)

// Error carries a readable message, the sentinel kind it matches and an
// optional cause.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}
