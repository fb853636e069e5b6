package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUndefinedTable = "42P01"

// PostgresStore writes activity rows to a hosted Postgres database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	entries, err := migrations.ReadDir("migrations/postgres")
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations/postgres", file))
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *PostgresStore) AddActivity(ctx context.Context, entry Activity) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO activity_logs (type, message, guild_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.Type, entry.Message, nullable(entry.GuildID), nullable(entry.UserID), entry.CreatedAt.UTC())
	return mapPgError(err)
}

func (s *PostgresStore) ListActivity(ctx context.Context, guildIDs []string, limit int) ([]Activity, error) {
	var (
		rows pgx.Rows
		err  error
	)
	const columns = `SELECT id, type, message, COALESCE(guild_id, ''), COALESCE(user_id, ''), created_at FROM activity_logs`
	if guildIDs == nil {
		rows, err = s.pool.Query(ctx, columns+` ORDER BY created_at DESC, id DESC LIMIT $1`, clampLimit(limit))
	} else {
		rows, err = s.pool.Query(ctx, columns+`
			WHERE guild_id IS NULL OR guild_id = ANY($1)
			ORDER BY created_at DESC, id DESC LIMIT $2`, guildIDs, clampLimit(limit))
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var entry Activity
		if err := rows.Scan(&entry.ID, &entry.Type, &entry.Message, &entry.GuildID, &entry.UserID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, mapPgError(rows.Err())
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %s", ErrTableMissing, pgErr.Message)
	}
	return err
}
