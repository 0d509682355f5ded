package store

import (
	"context"
	"fmt"

	"airmetrics/pkg/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS readings (
	id          BIGSERIAL PRIMARY KEY,
	sensor      TEXT             NOT NULL,
	temperature DOUBLE PRECISION,
	humidity    DOUBLE PRECISION,
	ts          BIGINT           NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts);
CREATE INDEX IF NOT EXISTS idx_readings_sensor_ts ON readings(sensor, ts);
`

var readingColumns = []string{"sensor", "temperature", "humidity", "ts"}

// Postgres stores readings through a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, pings and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unavailable: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// InsertMany bulk loads the batch with COPY.
func (p *Postgres) InsertMany(ctx context.Context, readings []types.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	_, err := p.pool.CopyFrom(ctx, pgx.Identifier{"readings"}, readingColumns,
		pgx.CopyFromSlice(len(readings), func(i int) ([]any, error) {
			r := readings[i]
			return []any{r.Sensor, r.Temperature, r.Humidity, r.TS}, nil
		}))
	if err != nil {
		return fmt.Errorf("postgres copy: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM readings WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) QuerySince(ctx context.Context, since int64) ([]types.Reading, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT sensor, temperature, humidity, ts FROM readings WHERE ts >= $1 ORDER BY ts ASC, id ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	defer rows.Close()
	out := make([]types.Reading, 0, 128)
	for rows.Next() {
		var r types.Reading
		if err := rows.Scan(&r.Sensor, &r.Temperature, &r.Humidity, &r.TS); err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
