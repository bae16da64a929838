package session_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-mvc/framework/session"
)

const secret = "0123456789abcdef0123456789abcdef"

// roundTrip starts a session, lets fn change it and commits it.
func roundTrip(t *testing.T, m *session.Manager, fn func(*session.Session), cookies ...*http.Cookie) (*session.Session, *http.Cookie) {
	t.Helper()
	s := start(t, m, cookies...)
	if fn != nil {
		fn(s)
	}
	c, err := m.Commit(context.Background(), s)
	require.NoError(t, err)
	return s, c
}

func TestManager_NewSessionCookie(t *testing.T) {
	t.Parallel()

	m := session.NewManager(nil)
	s, c := roundTrip(t, m, nil)

	require.NotNil(t, c)
	require.Equal(t, session.DefaultCookieName, c.Name)
	require.Equal(t, s.ID(), c.Value)
	require.Equal(t, "/", c.Path)
	require.True(t, c.HttpOnly)
	require.Zero(t, c.MaxAge, "cookie lasts for the browser session")
	require.Empty(t, c.Domain)
	require.False(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)

	require.Regexp(t, `^[a-zA-Z0-9,-]{22,}$`, s.ID())
}

func TestManager_ResumesActiveSession(t *testing.T) {
	t.Parallel()

	m := session.NewManager(nil)
	first, c := roundTrip(t, m, func(s *session.Session) { s.Set("user", "ann") })

	second, again := roundTrip(t, m, nil, c)
	require.Nil(t, again, "a resumed session sends no new cookie")
	require.False(t, second.IsNew())
	require.Equal(t, first.ID(), second.ID())
	require.Equal(t, "ann", second.Values()["user"])
}

func TestManager_UnknownIDStartsFresh(t *testing.T) {
	t.Parallel()

	m := session.NewManager(nil)
	s := start(t, m, &http.Cookie{Name: session.DefaultCookieName, Value: "chosen-by-client"})
	require.True(t, s.IsNew())
	require.NotEqual(t, "chosen-by-client", s.ID())
}

func TestManager_LargeValues(t *testing.T) {
	t.Parallel()

	large := strings.Repeat("a", 10*1024*1024)
	m := session.NewManager(nil)
	_, c := roundTrip(t, m, func(s *session.Session) { s.Set("large", large) })

	s := start(t, m, c)
	require.Equal(t, large, s.Values()["large"])
}

func TestManager_Destroy(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	m := session.NewManager(store)
	_, c := roundTrip(t, m, func(s *session.Session) { s.Set("user", "ann") })
	require.Equal(t, 1, store.Len())

	s, expired := roundTrip(t, m, func(s *session.Session) { require.True(t, s.Destroy()) }, c)
	require.False(t, s.Active())
	require.NotNil(t, expired)
	require.Negative(t, expired.MaxAge)
	require.Empty(t, expired.Value)
	require.Zero(t, store.Len())

	t.Run("new session destroyed before commit sends nothing", func(t *testing.T) {
		t.Parallel()
		_, c := roundTrip(t, session.NewManager(nil), func(s *session.Session) { s.Destroy() })
		require.Nil(t, c)
	})
}

func TestManager_Options(t *testing.T) {
	t.Parallel()

	m := session.NewManager(nil,
		session.WithCookieName("SID"),
		session.WithDomain("example.com"),
		session.WithSecure(true),
	)
	require.Equal(t, "SID", m.CookieName())

	_, c := roundTrip(t, m, nil)
	require.Equal(t, "SID", c.Name)
	require.Equal(t, "example.com", c.Domain)
	require.True(t, c.Secure)

	require.Equal(t, session.DefaultCookieName, session.NewManager(nil, session.WithCookieName("")).CookieName())
}

func TestManager_SignedCookie(t *testing.T) {
	t.Parallel()

	m := session.NewManager(nil, session.WithSecret(secret))
	s, c := roundTrip(t, m, func(s *session.Session) { s.Set("user", "ann") })
	require.True(t, strings.HasPrefix(c.Value, s.ID()+"."))

	resumed := start(t, m, c)
	require.Equal(t, s.ID(), resumed.ID())

	tampered := *c
	tampered.Value = s.ID() + ".AAAA"
	require.True(t, start(t, m, &tampered).IsNew())

	unsigned := *c
	unsigned.Value = s.ID()
	require.True(t, start(t, m, &unsigned).IsNew())

	t.Run("short secret is ignored", func(t *testing.T) {
		t.Parallel()
		m := session.NewManager(nil, session.WithSecret("short"))
		s, c := roundTrip(t, m, nil)
		require.Equal(t, s.ID(), c.Value)
	})
}

func TestManager_Lifetime(t *testing.T) {
	t.Parallel()

	m := session.NewManager(nil, session.WithLifetime(20*time.Millisecond))
	_, c := roundTrip(t, m, func(s *session.Session) { s.Set("user", "ann") })

	require.Eventually(t, func() bool {
		return start(t, m, c).IsNew()
	}, time.Second, 10*time.Millisecond)
}

type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) Load(context.Context, string) (map[string]any, error) { return nil, errStoreDown }
func (brokenStore) Delete(context.Context, string) error                 { return errStoreDown }
func (brokenStore) Save(context.Context, string, map[string]any, time.Duration) error {
	return errStoreDown
}

func TestManager_StoreFailures(t *testing.T) {
	t.Parallel()

	m := session.NewManager(brokenStore{})
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "abc"})

	_, err := m.Start(context.Background(), r)
	require.ErrorIs(t, err, errStoreDown)

	s := start(t, m)
	_, err = m.Commit(context.Background(), s)
	require.ErrorIs(t, err, errStoreDown)

	c, err := m.Commit(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, c)
}
