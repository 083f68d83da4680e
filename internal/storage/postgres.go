package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const deviceStorageSchema = `
CREATE TABLE IF NOT EXISTS device_storage (
	device_id  TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (device_id, key)
)`

// Postgres stores device namespaces in a single table keyed by (device_id, key).
type Postgres struct{ pool *pgxpool.Pool }

func NewPostgres(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

// EnsureSchema creates the device_storage table when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := p.pool.Exec(ctx, deviceStorageSchema)
	return err
}

func (p *Postgres) Get(ctx context.Context, device, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var value string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM device_storage WHERE device_id = $1 AND key = $2`,
		device, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, device, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := p.pool.Exec(ctx, `
INSERT INTO device_storage (device_id, key, value)
VALUES ($1, $2, $3)
ON CONFLICT (device_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`, device, key, value)
	return err
}

func (p *Postgres) Delete(ctx context.Context, device string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := p.pool.Exec(ctx,
		`DELETE FROM device_storage WHERE device_id = $1 AND key = ANY($2)`,
		device, keys,
	)
	return err
}

func (p *Postgres) Keys(ctx context.Context, device string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT key FROM device_storage WHERE device_id = $1 ORDER BY key`, device)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
