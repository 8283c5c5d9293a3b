// Package store runs read-only queries against the castells Postgres
// database through a shared pgx pool and returns rows as ordered records.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/castellsqa/enxaneta/pkg/config"
)

// Store wraps a pgxpool.Pool. A single instance is shared by all requests;
// acquisition is bounded by the pool's acquire timeout so a saturated pool
// applies backpressure instead of queueing without limit.
type Store struct {
	pool *pgxpool.Pool
}

// New opens the pool described by cfg and verifies connectivity. The DSN is
// rewritten to the pooler port when it targets a pooler host directly.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	dsn := RewritePoolerPort(cfg.URL)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MinConns = cfg.PoolMin
	poolCfg.MaxConns = cfg.PoolMax
	poolCfg.ConnConfig.ConnectTimeout = cfg.PoolAcquireTimeout
	if cfg.StatementTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] =
			fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	slog.Debug("database pool ready", "min", cfg.PoolMin, "max", cfg.PoolMax)

	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing pool; used by tests.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool for components that run their own
// queries, such as the vector search.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Query executes sql with named arguments and materializes every row as an
// ordered record. An empty result set returns ErrNoResults; any other
// failure returns a QueryError. The connection is held only for the duration
// of this call, never across LLM requests.
func (s *Store) Query(ctx context.Context, sql string, args pgx.NamedArgs) ([]Row, error) {
	rows, err := s.pool.Query(ctx, sql, args)
	if err != nil {
		return nil, &QueryError{Op: "query", Err: err}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &QueryError{Op: "scan", Err: err}
		}
		out = append(out, Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: "iterate", Err: err}
	}

	if len(out) == 0 {
		return nil, ErrNoResults
	}

	return out, nil
}

// QueryStrings executes a single-column query and returns the non-empty
// values in order. Used for vocabulary loads.
func (s *Store) QueryStrings(ctx context.Context, sql string) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, &QueryError{Op: "query", Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v *string
		if err := rows.Scan(&v); err != nil {
			return nil, &QueryError{Op: "scan", Err: err}
		}
		if v != nil && *v != "" {
			out = append(out, *v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: "iterate", Err: err}
	}

	return out, nil
}
