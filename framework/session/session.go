package session

import (
	"fmt"
	"maps"
)

// Session is one client's values for the duration of a request. It is not
// safe for concurrent use.
type Session struct {
	id        string
	values    map[string]any
	active    bool
	isNew     bool
	destroyed bool
}

func newSession(id string, values map[string]any, isNew bool) *Session {
	if values == nil {
		values = make(map[string]any)
	}
	return &Session{id: id, values: values, active: true, isNew: isNew}
}

// ID returns the session id, or "" once the session is destroyed.
func (s *Session) ID() string {
	if !s.active {
		return ""
	}
	return s.id
}

// Active reports whether the session can still be read and written.
func (s *Session) Active() bool { return s.active }

// IsNew reports whether the session was started by this request.
func (s *Session) IsNew() bool { return s.isNew }

// Values returns the live value map. Writes to it are persisted by Commit.
func (s *Session) Values() map[string]any { return s.values }

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores val under key.
func (s *Session) Set(key string, val any) {
	s.values[key] = val
}

// Delete removes key.
func (s *Session) Delete(key string) {
	delete(s.values, key)
}

// Flush removes every value but keeps the session.
func (s *Session) Flush() {
	clear(s.values)
}

// Snapshot returns a copy of the values.
func (s *Session) Snapshot() map[string]any {
	return maps.Clone(s.values)
}

// Destroy ends the session and drops its values. It returns false when the
// session is not active.
func (s *Session) Destroy() bool {
	if !s.active {
		return false
	}
	clear(s.values)
	s.active = false
	s.destroyed = true
	return true
}

// Value returns the value under key as a T.
//
//	id, err := session.Value[int](s, "user_id")
func Value[T any](s *Session, key string) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNotFound
	}
	v, ok := s.Get(key)
	if !ok {
		return zero, ErrNotFound
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w for key %s: %T", ErrTypeMismatch, key, v)
	}
	return typed, nil
}

// ValueOr is Value with a fallback for a missing or mistyped key.
func ValueOr[T any](s *Session, key string, fallback T) T {
	v, err := Value[T](s, key)
	if err != nil {
		return fallback
	}
	return v
}
