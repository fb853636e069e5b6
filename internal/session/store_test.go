package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestStore() (*Store, *fakeClock) {
	store := NewStore(10 * time.Minute)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store.WithClock(clock)
	return store, clock
}

func TestRandomTokenLength(t *testing.T) {
	token, err := RandomToken()
	require.NoError(t, err)
	// 32 bytes in unpadded base64url.
	require.Len(t, token, 43)
}

func TestStateSingleUse(t *testing.T) {
	store, _ := newTestStore()

	state, err := store.IssueState()
	require.NoError(t, err)
	require.True(t, store.ConsumeState(state), "first consume should succeed")
	require.False(t, store.ConsumeState(state), "second consume should fail")
	require.False(t, store.ConsumeState(""))
}

func TestStateExpires(t *testing.T) {
	store, clock := newTestStore()

	state, _ := store.IssueState()
	clock.Advance(11 * time.Minute)
	require.False(t, store.ConsumeState(state), "stale state should be rejected")
}

func TestCreateSessionRetriesOnCollision(t *testing.T) {
	store, clock := newTestStore()
	tokens := []string{"dup", "dup", "fresh"}
	store.newToken = func() (string, error) {
		next := tokens[0]
		tokens = tokens[1:]
		return next, nil
	}

	first, err := store.CreateSession(Session{ExpiresAt: clock.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, "dup", first)

	second, err := store.CreateSession(Session{ExpiresAt: clock.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, "fresh", second, "collision should draw a new token")
	require.Equal(t, 2, store.SessionCount())
}

func TestCreateSessionGivesUp(t *testing.T) {
	store, _ := newTestStore()
	store.sessions["same"] = Session{}
	store.newToken = func() (string, error) { return "same", nil }

	_, err := store.CreateSession(Session{})
	require.ErrorIs(t, err, ErrTokenGeneration)
}

func TestSessionDefaultsEmptyGuilds(t *testing.T) {
	store, clock := newTestStore()
	token, _ := store.CreateSession(Session{ExpiresAt: clock.Now().Add(time.Hour)})

	got, ok := store.Session(token)
	require.True(t, ok)
	require.NotNil(t, got.Guilds)
	require.Empty(t, got.Guilds)
	require.True(t, got.CreatedAt.Equal(clock.Now()), "createdAt comes from the clock")
}

func TestSweep(t *testing.T) {
	store, clock := newTestStore()
	start := clock.Now()

	expired, _ := store.CreateSession(Session{ExpiresAt: start.Add(time.Minute)})
	old, _ := store.CreateSession(Session{ExpiresAt: start.Add(30 * 24 * time.Hour)})
	fresh, _ := store.CreateSession(Session{ExpiresAt: start.Add(30 * 24 * time.Hour), CreatedAt: start.Add(7 * 24 * time.Hour)})
	_, _ = store.IssueState()

	require.Equal(t, 3, store.Sweep(start.Add(7*24*time.Hour+time.Minute)))

	_, ok := store.Session(expired)
	require.False(t, ok, "expired session swept")
	_, ok = store.Session(old)
	require.False(t, ok, "session older than 7 days swept")
	_, ok = store.Session(fresh)
	require.True(t, ok, "fresh session kept")
}

func TestSweeperStopsOnCancel(t *testing.T) {
	store, _ := newTestStore()
	sweeper := NewSweeper(store, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
