package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"
)

// MaxLifetime bounds a session regardless of the provider token expiry.
const MaxLifetime = 7 * 24 * time.Hour

const (
	tokenBytes    = 32
	tokenAttempts = 5
)

var ErrTokenGeneration = errors.New("session: could not generate a unique token")

type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
	Email         string `json:"email,omitempty"`
	GlobalName    string `json:"global_name,omitempty"`
}

type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Owner       bool   `json:"owner"`
	Permissions int64  `json:"permissions,string"`
}

type Session struct {
	Token        string
	User         User
	Guilds       []Guild
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Expired reports whether the provider token backing the session has lapsed.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func (s Session) GuildIDs() []string {
	ids := make([]string, 0, len(s.Guilds))
	for _, guild := range s.Guilds {
		ids = append(ids, guild.ID)
	}
	return ids
}

type State struct {
	Token     string
	CreatedAt time.Time
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Store keeps sessions and OAuth state tokens in memory. A restart drops both.
type Store struct {
	sessionsMu sync.Mutex
	sessions   map[string]Session

	statesMu sync.Mutex
	states   map[string]State

	stateTTL time.Duration
	clock    Clock
	newToken func() (string, error)
}

func NewStore(stateTTL time.Duration) *Store {
	return &Store{
		sessions: make(map[string]Session),
		states:   make(map[string]State),
		stateTTL: stateTTL,
		clock:    realClock{},
		newToken: RandomToken,
	}
}

func (s *Store) WithClock(clock Clock) {
	s.clock = clock
}

func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// RandomToken returns 32 random bytes encoded as unpadded base64url.
func RandomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *Store) CreateSession(data Session) (string, error) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	token, err := s.uniqueToken(func(candidate string) bool {
		_, taken := s.sessions[candidate]
		return taken
	})
	if err != nil {
		return "", err
	}
	data.Token = token
	if data.CreatedAt.IsZero() {
		data.CreatedAt = s.clock.Now()
	}
	if data.Guilds == nil {
		data.Guilds = []Guild{}
	}
	s.sessions[token] = data
	return token, nil
}

func (s *Store) Session(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	data, ok := s.sessions[token]
	return data, ok
}

func (s *Store) DeleteSession(token string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, token)
}

func (s *Store) SessionCount() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return len(s.sessions)
}

func (s *Store) IssueState() (string, error) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	token, err := s.uniqueToken(func(candidate string) bool {
		_, taken := s.states[candidate]
		return taken
	})
	if err != nil {
		return "", err
	}
	s.states[token] = State{Token: token, CreatedAt: s.clock.Now()}
	return token, nil
}

// ConsumeState removes the state token if present and reports whether it was
// valid. A token older than the state TTL is removed but rejected.
func (s *Store) ConsumeState(token string) bool {
	if token == "" {
		return false
	}
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	state, ok := s.states[token]
	if !ok {
		return false
	}
	delete(s.states, token)
	if s.stateTTL > 0 && s.clock.Now().Sub(state.CreatedAt) > s.stateTTL {
		return false
	}
	return true
}

// Sweep drops expired sessions, sessions past MaxLifetime and stale states.
// It returns how many entries were removed.
func (s *Store) Sweep(now time.Time) int {
	removed := 0

	s.sessionsMu.Lock()
	for token, data := range s.sessions {
		if data.Expired(now) || now.Sub(data.CreatedAt) > MaxLifetime {
			delete(s.sessions, token)
			removed++
		}
	}
	s.sessionsMu.Unlock()

	if s.stateTTL > 0 {
		s.statesMu.Lock()
		for token, state := range s.states {
			if now.Sub(state.CreatedAt) > s.stateTTL {
				delete(s.states, token)
				removed++
			}
		}
		s.statesMu.Unlock()
	}

	return removed
}

func (s *Store) uniqueToken(taken func(string) bool) (string, error) {
	for i := 0; i < tokenAttempts; i++ {
		token, err := s.newToken()
		if err != nil {
			return "", err
		}
		if !taken(token) {
			return token, nil
		}
	}
	return "", ErrTokenGeneration
}
