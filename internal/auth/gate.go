package auth

import "sentinel-panel/internal/session"

// Gate validates a session token on every protected request.
type Gate struct {
	store *session.Store
}

func NewGate(store *session.Store) *Gate {
	return &Gate{store: store}
}

// Authenticate returns the live session for token. An expired session is
// deleted before ErrSessionExpired is returned.
func (g *Gate) Authenticate(token string) (session.Session, error) {
	if token == "" {
		return session.Session{}, ErrUnauthenticated
	}
	data, ok := g.store.Session(token)
	if !ok {
		return session.Session{}, ErrUnauthenticated
	}
	if data.Expired(g.store.Now()) {
		g.store.DeleteSession(token)
		return session.Session{}, ErrSessionExpired
	}
	return data, nil
}
