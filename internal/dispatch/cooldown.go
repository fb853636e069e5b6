package dispatch

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// CooldownTable tracks command -> user -> expiry. Entries are dropped lazily
// on lookup and in bulk by Sweep.
type CooldownTable struct {
	mu      sync.Mutex
	clock   Clock
	entries map[string]map[string]time.Time
}

func NewCooldownTable() *CooldownTable {
	return &CooldownTable{
		clock:   realClock{},
		entries: make(map[string]map[string]time.Time),
	}
}

func (c *CooldownTable) WithClock(clock Clock) {
	c.clock = clock
}

// Acquire records a new cooldown for the user if none is active. When one is
// active it returns the time left and false.
func (c *CooldownTable) Acquire(command, userID string, cooldown time.Duration) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	users := c.entries[command]
	if users == nil {
		users = make(map[string]time.Time)
		c.entries[command] = users
	}

	if expiry, ok := users[userID]; ok {
		if now.Before(expiry) {
			return expiry.Sub(now), false
		}
		delete(users, userID)
	}

	users[userID] = now.Add(cooldown)
	return 0, true
}

func (c *CooldownTable) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for command, users := range c.entries {
		for userID, expiry := range users {
			if !now.Before(expiry) {
				delete(users, userID)
				removed++
			}
		}
		if len(users) == 0 {
			delete(c.entries, command)
		}
	}
	return removed
}

func (c *CooldownTable) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, users := range c.entries {
		total += len(users)
	}
	return total
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (c *CooldownTable) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Sweep(c.clock.Now())
		}
	}
}
