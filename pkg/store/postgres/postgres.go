// Package postgres is the optional Postgres-backed store.BlueprintStore and
// store.ResultStore implementation, adapted from common/db/db.go's pgxpool
// wrapper and common/repository/run.go's query shape.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyzr/orchestrator/pkg/config"
	"github.com/lyzr/orchestrator/pkg/enginetypes"
	"github.com/lyzr/orchestrator/pkg/logger"
	"github.com/lyzr/orchestrator/pkg/store"
)

// DB wraps pgxpool.Pool with connection-pool settings from config.Config.
type DB struct {
	*pgxpool.Pool
	log *logger.Logger
}

// New opens a connection pool against cfg.Database and pings it once.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connected", "host", cfg.Database.Host, "db", cfg.Database.Database)
	return &DB{Pool: pool, log: log}, nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	db.log.Info("closing database connection pool")
	db.Pool.Close()
}

// Schema is the DDL the store expects to already exist (migrations are run
// out of band; this is documentation of the shape Store queries against).
const Schema = `
CREATE TABLE IF NOT EXISTS blueprint (
	blueprint_id TEXT PRIMARY KEY,
	version      TEXT NOT NULL,
	name         TEXT,
	document     JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workflow_run (
	execution_id TEXT PRIMARY KEY,
	blueprint_id TEXT NOT NULL,
	success      BOOLEAN NOT NULL,
	result       JSONB NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store is a Postgres-backed store.BlueprintStore + store.ResultStore.
type Store struct {
	db *DB
}

// NewStore wraps an already-opened DB as a Store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

var (
	_ store.BlueprintStore = (*Store)(nil)
	_ store.ResultStore    = (*Store)(nil)
)

// Save upserts a blueprint document.
func (s *Store) Save(ctx context.Context, wf *enginetypes.WorkflowSpec) error {
	doc, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("marshaling blueprint %q: %w", wf.BlueprintID, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO blueprint (blueprint_id, version, name, document, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (blueprint_id) DO UPDATE
		SET version = EXCLUDED.version, name = EXCLUDED.name, document = EXCLUDED.document, updated_at = now()
	`, wf.BlueprintID, wf.Version, wf.Name, doc)
	if err != nil {
		return fmt.Errorf("saving blueprint %q: %w", wf.BlueprintID, err)
	}
	return nil
}

// GetByID retrieves a blueprint by id.
func (s *Store) GetByID(ctx context.Context, blueprintID string) (*enginetypes.WorkflowSpec, bool, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT document FROM blueprint WHERE blueprint_id = $1`, blueprintID).Scan(&doc)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetching blueprint %q: %w", blueprintID, err)
	}

	var wf enginetypes.WorkflowSpec
	if err := json.Unmarshal(doc, &wf); err != nil {
		return nil, false, fmt.Errorf("unmarshaling blueprint %q: %w", blueprintID, err)
	}
	return &wf, true, nil
}

// Get satisfies enginetypes.WorkflowRegistry for registry_name-backed
// nested_workflow nodes. Executors run with no caller-supplied context, so
// this uses a short bounded background context for the lookup.
func (s *Store) Get(name string) (*enginetypes.WorkflowSpec, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wf, ok, err := s.GetByID(ctx, name)
	if err != nil {
		s.db.log.Error("workflow registry lookup failed", "name", name, "error", err)
		return nil, false
	}
	return wf, ok
}

// SaveResult inserts a completed run's result, keyed by execution id.
func (s *Store) SaveResult(ctx context.Context, executionID string, result *enginetypes.WorkflowResult) error {
	doc, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result for %q: %w", executionID, err)
	}

	blueprintID := result.ChainMetadata.ChainID

	_, err = s.db.Exec(ctx, `
		INSERT INTO workflow_run (execution_id, blueprint_id, success, result, completed_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (execution_id) DO UPDATE
		SET success = EXCLUDED.success, result = EXCLUDED.result, completed_at = now()
	`, executionID, blueprintID, result.Success, doc)
	if err != nil {
		return fmt.Errorf("saving result for %q: %w", executionID, err)
	}
	return nil
}

// GetResult retrieves a completed run's result by execution id.
func (s *Store) GetResult(ctx context.Context, executionID string) (*enginetypes.WorkflowResult, bool, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT result FROM workflow_run WHERE execution_id = $1`, executionID).Scan(&doc)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetching result for %q: %w", executionID, err)
	}

	var result enginetypes.WorkflowResult
	if err := json.Unmarshal(doc, &result); err != nil {
		return nil, false, fmt.Errorf("unmarshaling result for %q: %w", executionID, err)
	}
	return &result, true, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
