package container

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every failure returned by the container matches one of
// them through errors.Is.
var (
	// ErrNotFound is returned by Get when a key has no entry.
	ErrNotFound = errors.New("container: component not found")

	// ErrContainer matches every resolution or construction failure.
	ErrContainer = errors.New("container: resolution failed")

	// ErrNotInstantiable marks an abstract or otherwise unbuildable class.
	ErrNotInstantiable = errors.New("container: class is not instantiable")

	// ErrUnresolvedParameter marks a constructor parameter that could not be satisfied.
	ErrUnresolvedParameter = errors.New("container: unresolved parameter")

	// ErrUnresolvedUnion marks a union-typed parameter where no candidate could be satisfied.
	ErrUnresolvedUnion = errors.New("container: unresolved union parameter")

	// ErrCircularDependency marks a key that depends on itself through its constructor chain.
	ErrCircularDependency = errors.New("container: circular dependency")

	// ErrConstruction wraps a failure raised by a constructor, factory or memoized callable.
	ErrConstruction = errors.New("container: construction failed")
)

// NotFoundError reports a Get on a key that has no entry.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("component '%s' not found", e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Error is a resolution or construction failure. Key names the component
// being built, Owner the class whose constructor was inspected and Param the
// parameter that failed, when those apply. Nested failures are kept in Err so
// a chain of autowired components reads outermost first.
type Error struct {
	Key   string
	Owner string
	Param string
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Key != "" {
		fmt.Fprintf(&b, "error creating component '%s': ", e.Key)
	}

	switch e.Kind {
	case ErrNotInstantiable:
		fmt.Fprintf(&b, "class '%s' is not instantiable", e.Owner)
	case ErrUnresolvedParameter:
		fmt.Fprintf(&b, "unable to resolve parameter '%s' in constructor of '%s'", e.Param, e.Owner)
	case ErrUnresolvedUnion:
		fmt.Fprintf(&b, "unable to resolve any type from union type for parameter '%s' in constructor of '%s'", e.Param, e.Owner)
	case ErrCircularDependency:
		b.WriteString("circular dependency detected")
	default:
		if e.Err == nil {
			b.WriteString("construction failed")
		} else {
			b.WriteString(e.Err.Error())
		}
		return b.String()
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	return target == ErrContainer
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// wrap attaches the component key to err. An *Error that already carries a
// different key is nested so that both keys appear in the message; the same
// key is never repeated.
func wrap(key string, err error) error {
	if cerr, ok := err.(*Error); ok && (cerr.Key == "" || cerr.Key == key) {
		cerr.Key = key
		return cerr
	}
	return &Error{Key: key, Kind: ErrConstruction, Err: err}
}
