package activity

import (
	"context"
	"errors"
	"time"

	"sentinel-panel/internal/storage"

	"go.uber.org/zap"
)

const (
	TypeCommand    = "command"
	TypeModeration = "moderation"
	TypeConnection = "connection"
	TypeSystem     = "system"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Logger records dashboard activity. Persistence failures never reach the
// caller.
type Logger struct {
	store  storage.Repository
	logger *zap.Logger
	clock  Clock
	notify func(context.Context, storage.Activity)
}

func NewLogger(store storage.Repository, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger, clock: realClock{}}
}

func (l *Logger) WithClock(clock Clock) {
	l.clock = clock
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.Activity)) {
	l.notify = notify
}

func (l *Logger) Record(ctx context.Context, kind, message, guildID, userID string) {
	entry := storage.Activity{
		Type:      kind,
		Message:   message,
		GuildID:   guildID,
		UserID:    userID,
		CreatedAt: l.clock.Now(),
	}
	if l.store != nil {
		if err := l.store.AddActivity(ctx, entry); err != nil {
			if errors.Is(err, storage.ErrTableMissing) {
				l.logger.Debug("activity log skipped, table missing")
			} else {
				l.logger.Debug("activity log failed", zap.Error(err))
			}
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("activity", zap.String("type", kind), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("message", message))
}

// Recent returns the latest entries visible to the given guilds. Any storage
// failure yields an empty list.
func (l *Logger) Recent(ctx context.Context, guildIDs []string, limit int) []storage.Activity {
	if l.store == nil {
		return []storage.Activity{}
	}
	if guildIDs == nil {
		guildIDs = []string{}
	}
	rows, err := l.store.ListActivity(ctx, guildIDs, limit)
	if err != nil {
		if errors.Is(err, storage.ErrTableMissing) {
			l.logger.Debug("activity table missing")
		} else {
			l.logger.Warn("activity list failed", zap.Error(err))
		}
		return []storage.Activity{}
	}
	if rows == nil {
		return []storage.Activity{}
	}
	return rows
}
