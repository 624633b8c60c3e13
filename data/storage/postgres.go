package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/asset_tracker/utils"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
)

// PostgresStorage keeps values in the kv_store table created by the migrations.
type PostgresStorage struct {
	db *sqlx.DB
}

func NewPostgresStorage(db *sqlx.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (p *PostgresStorage) Get(ctx context.Context, key string) (value []byte, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PostgresStorage.Get"
	query := `SELECT value::text FROM kv_store WHERE key = $1`

	slog.Debug("Get start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("key", key))
	defer func() {
		if err != nil && !errors.Is(err, ErrNotFound) {
			slog.Error("Get failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Get completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = p.db.GetContext(ctx, &value, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (p *PostgresStorage) Set(ctx context.Context, key string, value []byte) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PostgresStorage.Set"
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	slog.Debug("Set start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("key", key))
	defer func() {
		if err != nil {
			slog.Error("Set failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Set completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = p.db.ExecContext(ctx, query, key, string(value))
	return err
}
