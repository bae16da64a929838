package models

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"sync"
)

// User is one account of the example application.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserNotFoundError is returned by Find for an unknown id.
type UserNotFoundError struct{ ID int }

func (e *UserNotFoundError) Error() string   { return fmt.Sprintf("user %d not found", e.ID) }
func (e *UserNotFoundError) StatusCode() int { return http.StatusNotFound }

// UserModel is an in-memory user store.
type UserModel struct {
	mu    sync.RWMutex
	users map[int]User
	next  int
}

// NewUserModel creates a store seeded with two users.
func NewUserModel() *UserModel {
	m := &UserModel{users: make(map[int]User)}
	m.Create("Alice", "alice@example.com")
	m.Create("Bob", "bob@example.com")
	return m
}

// All returns every user ordered by id.
func (m *UserModel) All() []User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b User) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (m *UserModel) Find(id int) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, &UserNotFoundError{ID: id}
	}
	return u, nil
}

func (m *UserModel) Create(name, email string) User {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	u := User{ID: m.next, Name: name, Email: email}
	m.users[u.ID] = u
	return u
}
