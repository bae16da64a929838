package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCookieName is the session cookie name when none is configured.
const DefaultCookieName = "gomvc_session"

// Manager starts and commits sessions against a Store.
type Manager struct {
	store    Store
	name     string
	path     string
	domain   string
	secure   bool
	sameSite http.SameSite
	lifetime time.Duration
	secret   []byte // nil: ids are sent unsigned
	newID    func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithCookieName sets the cookie carrying the session id.
func WithCookieName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.name = name
		}
	}
}

// WithDomain sets the cookie domain. The default is the request host.
func WithDomain(domain string) Option {
	return func(m *Manager) { m.domain = domain }
}

// WithSecure marks the cookie Secure.
func WithSecure(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

// WithLifetime sets how long stored values survive without a request.
// Zero keeps them until the session is destroyed.
func WithLifetime(d time.Duration) Option {
	return func(m *Manager) { m.lifetime = d }
}

// WithSecret signs the session id with HMAC-SHA256. Secrets shorter than
// 32 bytes are ignored.
func WithSecret(secret string) Option {
	return func(m *Manager) {
		if len(secret) >= 32 {
			m.secret = []byte(secret)
		}
	}
}

// NewManager creates a manager over store. A nil store keeps sessions in
// memory.
func NewManager(store Store, opts ...Option) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	m := &Manager{
		store:    store,
		name:     DefaultCookieName,
		path:     "/",
		sameSite: http.SameSiteLaxMode,
		lifetime: 2 * time.Hour,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string { return m.name }

// Store returns the backing store.
func (m *Manager) Store() Store { return m.store }

// Start returns the session named by the request cookie. A missing or
// tampered cookie, or one naming nothing stored, starts a new session with
// a fresh id; a client never picks its own id.
func (m *Manager) Start(ctx context.Context, r *http.Request) (*Session, error) {
	if id, ok := m.read(r); ok {
		values, err := m.store.Load(ctx, id)
		switch {
		case err == nil:
			return newSession(id, values, false), nil
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("session: load: %w", err)
		}
	}
	return newSession(m.newID(), nil, true), nil
}

// Commit saves an active session or deletes a destroyed one. It returns the
// cookie the response must carry: the id for a new session, an expired
// cookie for a destroyed one, nil otherwise.
func (m *Manager) Commit(ctx context.Context, s *Session) (*http.Cookie, error) {
	switch {
	case s == nil:
		return nil, nil
	case s.destroyed:
		if err := m.store.Delete(ctx, s.id); err != nil {
			return nil, fmt.Errorf("session: delete: %w", err)
		}
		if s.isNew {
			return nil, nil
		}
		return m.cookie("", -1), nil
	case !s.active:
		return nil, nil
	}

	if err := m.store.Save(ctx, s.id, s.values, m.lifetime); err != nil {
		return nil, fmt.Errorf("session: save: %w", err)
	}
	if s.isNew {
		return m.cookie(m.sign(s.id), 0), nil
	}
	return nil, nil
}

// cookie builds the session cookie. maxAge 0 makes it a browser-session
// cookie, a negative maxAge deletes it.
func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: m.sameSite,
	}
}

func (m *Manager) read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return "", false
	}
	if m.secret == nil {
		return c.Value, true
	}

	id, sig, ok := strings.Cut(c.Value, ".")
	if !ok {
		return "", false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(got, m.mac(id)) {
		return "", false
	}
	return id, true
}

func (m *Manager) sign(id string) string {
	if m.secret == nil {
		return id
	}
	return id + "." + base64.RawURLEncoding.EncodeToString(m.mac(id))
}

func (m *Manager) mac(id string) []byte {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(id))
	return h.Sum(nil)
}
