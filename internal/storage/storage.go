package storage

import (
	"context"
	"embed"
	"errors"
	"strings"
	"time"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// ErrTableMissing is returned when activity_logs has not been created yet.
// Callers treat it as a soft failure.
var ErrTableMissing = errors.New("storage: activity_logs table missing")

const DefaultActivityLimit = 20

type Activity struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	GuildID   string    `json:"guild_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository is the activity log persistence contract shared by the sqlite
// and Postgres backends.
type Repository interface {
	AddActivity(ctx context.Context, entry Activity) error
	// ListActivity returns the newest rows first. Rows without a guild are
	// always included; a nil guildIDs slice applies no guild filter.
	ListActivity(ctx context.Context, guildIDs []string, limit int) ([]Activity, error)
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

type Options struct {
	URL  string
	Path string
}

// Open picks Postgres when a URL is configured and the local sqlite file
// otherwise.
func Open(ctx context.Context, opts Options) (Repository, error) {
	if opts.URL != "" {
		store, err := NewPostgres(ctx, opts.URL)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := New(opts.Path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return DefaultActivityLimit
	}
	return limit
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
