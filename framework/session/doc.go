// Package session keeps per-client values between requests.
//
// A Manager reads the session id from a cookie, loads the values from a
// Store and hands out a Session for the request. Commit writes the values
// back and returns the cookie to send, if any.
//
//	m := session.NewManager(session.NewMemoryStore(), session.WithSecret(cfg.App.Key))
//	s, err := m.Start(ctx, r)
//	s.Set("user_id", 42)
//	cookie, err := m.Commit(ctx, s)
//
// Session cookies are HttpOnly, scoped to "/" and carry no expiry, so the
// browser drops them when it closes. Stored values expire after the
// configured idle lifetime.
package session
