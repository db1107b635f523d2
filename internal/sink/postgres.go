package sink

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trawl/internal/config"
	"trawl/internal/services"
	"trawl/internal/stage"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresSink upserts records keyed by (id, kind).
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

// OpenPostgres connects a pool using the configured DSN and makes sure the
// record table exists.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*PostgresSink, error) {
	table := cfg.Postgres.Table
	if !identifierPattern.MatchString(table) {
		return nil, services.Wrap(services.ErrConfiguration, "postgres", "validate table", table, nil)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "postgres", "parse dsn", "", err)
	}
	if poolCfg.MaxConns > 4 {
		poolCfg.MaxConns = 4
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "postgres", "connect", "", err)
	}
	sink := &PostgresSink{pool: pool, table: table}
	if err := sink.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

// Name identifies the sink in logs.
func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL(s.table)); err != nil {
		return services.Wrap(services.ErrIO, "postgres", "create table", s.table, err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresSink) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// WriteRecords sends every record as one batch inside one transaction.
func (s *PostgresSink) WriteRecords(ctx context.Context, records []stage.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "postgres", "begin", "", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := upsertSQL(s.table)
	batch := &pgx.Batch{}
	refs := make([]string, 0, len(records))
	for _, record := range records {
		payload := string(record.Payload)
		if payload == "" {
			payload = "null"
		}
		batch.Queue(query, record.ID, string(record.Kind), payload, record.RunID, record.FetchedAt)
		refs = append(refs, recordRef(s.table, record))
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return nil, services.Wrap(services.ErrIO, "postgres", "upsert records", s.table, err)
		}
	}
	if err := results.Close(); err != nil {
		return nil, services.Wrap(services.ErrIO, "postgres", "close batch", s.table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, services.Wrap(services.ErrIO, "postgres", "commit", s.table, err)
	}
	return refs, nil
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id TEXT NOT NULL,
    kind TEXT NOT NULL,
    payload JSONB NOT NULL,
    run_id UUID,
    fetched_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (id, kind)
)`, table)
}

func upsertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (id, kind, payload, run_id, fetched_at)
VALUES ($1, $2, $3::jsonb, NULLIF($4, '')::uuid, $5)
ON CONFLICT (id, kind) DO UPDATE
SET payload = EXCLUDED.payload, run_id = EXCLUDED.run_id, fetched_at = EXCLUDED.fetched_at`, table)
}

func recordRef(table string, record stage.Record) string {
	return fmt.Sprintf("postgres:%s/%s/%s", table, record.Kind, record.ID)
}
