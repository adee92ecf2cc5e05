package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftlab/driftwatch/internal/api"
)

// PostgresLog keeps an append-only log in a Postgres table.
//
// Schema (one table per log):
//
//	CREATE TABLE driftwatch_alerts (
//	  seq        BIGSERIAL PRIMARY KEY,
//	  record     JSONB NOT NULL,
//	  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
// Append order is the seq order; List returns records ordered by seq.
type PostgresLog[T any] struct {
	pool  *pgxpool.Pool
	table string
}

func NewPostgresLog[T any](pool *pgxpool.Pool, table string) *PostgresLog[T] {
	return &PostgresLog[T]{pool: pool, table: table}
}

func (p *PostgresLog[T]) Append(ctx context.Context, records ...T) error {
	if len(records) == 0 {
		return nil
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	// One statement per Append keeps the multi-record insert atomic;
	// ORDER BY ordinality pins seq assignment to array order.
	query := fmt.Sprintf(
		`INSERT INTO %s (record)
		 SELECT value FROM jsonb_array_elements($1::jsonb) WITH ORDINALITY AS t(value, ord)
		 ORDER BY ord`, p.table)
	if _, err := p.pool.Exec(ctx, query, payload); err != nil {
		return fmt.Errorf("postgres insert failed: %w", err)
	}
	return nil
}

func (p *PostgresLog[T]) List(ctx context.Context) ([]T, error) {
	query := fmt.Sprintf(`SELECT record FROM %s ORDER BY seq`, p.table)
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}
	defer rows.Close()

	var records []T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec T
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// NewPostgresStore connects to Postgres, creates the log tables when
// missing, and builds a Store over them.
func NewPostgresStore(ctx context.Context, connStr string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	for _, table := range []string{"driftwatch_alerts", "driftwatch_performance", "driftwatch_decisions"} {
		ddl := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq        BIGSERIAL PRIMARY KEY,
				record     JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, table)
		if _, err := pool.Exec(connectCtx, ddl); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}

	return &Store{
		Alerts:      NewPostgresLog[api.Alert](pool, "driftwatch_alerts"),
		Performance: NewPostgresLog[api.PerformanceRecord](pool, "driftwatch_performance"),
		Decisions:   NewPostgresLog[api.RetrainDecision](pool, "driftwatch_decisions"),
		closeFn: func() error {
			pool.Close()
			return nil
		},
	}, nil
}
