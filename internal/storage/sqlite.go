package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	entries, err := migrations.ReadDir("migrations/sqlite")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations/sqlite", file))
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) AddActivity(ctx context.Context, entry Activity) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_logs (type, message, guild_id, user_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.Type, entry.Message, nullable(entry.GuildID), nullable(entry.UserID), entry.CreatedAt.UnixMilli())
	return mapSQLiteError(err)
}

func (s *Store) ListActivity(ctx context.Context, guildIDs []string, limit int) ([]Activity, error) {
	query := `SELECT id, type, message, COALESCE(guild_id, ''), COALESCE(user_id, ''), created_at FROM activity_logs`
	args := make([]any, 0, len(guildIDs)+1)
	if guildIDs != nil {
		clause := "guild_id IS NULL"
		if len(guildIDs) > 0 {
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(guildIDs)), ",")
			clause = "(guild_id IS NULL OR guild_id IN (" + placeholders + "))"
			for _, id := range guildIDs {
				args = append(args, id)
			}
		}
		query += " WHERE " + clause
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var entry Activity
		var createdAt int64
		if err := rows.Scan(&entry.ID, &entry.Type, &entry.Message, &entry.GuildID, &entry.UserID, &createdAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %v", ErrTableMissing, err)
	}
	return err
}
