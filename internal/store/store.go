package store

import (
	"context"
	"fmt"
	"strings"

	"airmetrics/pkg/types"
)

// Store is the durable reading sink.
type Store interface {
	// InsertMany writes the batch in one transaction. An empty batch is a no-op.
	InsertMany(ctx context.Context, readings []types.Reading) error
	// DeleteOlderThan removes rows with ts < cutoff and returns how many went.
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)
	// QuerySince returns rows with ts >= since, ascending by ts.
	QuerySince(ctx context.Context, since int64) ([]types.Reading, error)
	Ping(ctx context.Context) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	// Path is the SQLite database file.
	Path string
	// DSN is the Postgres connection string.
	DSN string
}

type unknownDriverError struct{ name string }

func (e unknownDriverError) Error() string { return "unknown store driver: " + e.name }

// IsUnknownDriver reports whether Open was given an unsupported driver name.
func IsUnknownDriver(err error) bool {
	_, ok := err.(unknownDriverError)
	return ok
}

// Open constructs the backend named by opts.Driver and prepares its schema.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, "":
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite: empty path")
		}
		return OpenSQLite(ctx, opts.Path)
	case DriverPostgres, "postgresql", "pgx":
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres: empty dsn")
		}
		return OpenPostgres(ctx, opts.DSN)
	default:
		return nil, unknownDriverError{name: opts.Driver}
	}
}
