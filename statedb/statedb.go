// Package statedb keeps the partial stores written by parallel integration
// workers in SQLite and folds them back into one store.
//
// Each reduction run gets a UUID. Workers write one YAML-encoded store per
// worker index; reconciliation reads them back in worker order so the
// result does not depend on which worker finished first.
package statedb

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/katalvlaran/xtalred/store"
)

var (
	// ErrUnknownRun indicates a run id that was never created.
	ErrUnknownRun = errors.New("statedb: unknown run")

	// ErrBadWorker indicates a negative worker index.
	ErrBadWorker = errors.New("statedb: negative worker index")
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS partials (
		run     TEXT    NOT NULL REFERENCES runs(id),
		worker  INTEGER NOT NULL,
		records INTEGER NOT NULL,
		payload BLOB    NOT NULL,
		PRIMARY KEY (run, worker)
	)`,
}

// DB is a handle on the partial-store database.
type DB struct {
	db  *sql.DB
	log *zap.Logger
}

// Run describes one reduction run.
type Run struct {
	ID        string
	CreatedAt time.Time
	Partials  int
}

// Open opens or creates the database at path (":memory:" for a private
// in-memory database). A nil logger disables logging.
func Open(ctx context.Context, path string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: writes are serialised and ":memory:" stays one database.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err = db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	logger.Debug("state database open", zap.String("path", path))

	return &DB{db: db, log: logger}, nil
}

// Close releases the database.
func (d *DB) Close() error { return d.db.Close() }

// NewRun registers a fresh run and returns its id.
func (d *DB) NewRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := d.db.ExecContext(ctx, `INSERT INTO runs (id, created_at) VALUES (?, ?)`, id, now); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	d.log.Info("run created", zap.String("run", id))

	return id, nil
}

// Runs lists every run, oldest first.
func (d *DB) Runs(ctx context.Context) ([]Run, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT r.id, r.created_at, COUNT(p.worker)
		FROM runs r LEFT JOIN partials p ON p.run = r.id
		GROUP BY r.id ORDER BY r.created_at, r.id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			created string
		)
		if err = rows.Scan(&r.ID, &created, &r.Partials); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s created_at: %w", r.ID, err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

func (d *DB) checkRun(ctx context.Context, run string) error {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, run).Scan(&n); err != nil {
		return fmt.Errorf("lookup run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%q: %w", run, ErrUnknownRun)
	}

	return nil
}

// PutPartial stores the partial store of one worker, replacing an earlier
// one from the same worker.
func (d *DB) PutPartial(ctx context.Context, run string, worker int, s *store.Store) error {
	if worker < 0 {
		return fmt.Errorf("%d: %w", worker, ErrBadWorker)
	}
	if err := d.checkRun(ctx, run); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		return fmt.Errorf("encode worker %d: %w", worker, err)
	}
	if _, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO partials (run, worker, records, payload) VALUES (?, ?, ?, ?)`,
		run, worker, s.Len(), buf.Bytes()); err != nil {
		return fmt.Errorf("insert partial: %w", err)
	}
	d.log.Debug("partial stored",
		zap.String("run", run), zap.Int("worker", worker),
		zap.Int("reflections", s.Len()), zap.Int("bytes", buf.Len()))

	return nil
}

// Partials returns the stores of run ordered by worker index. Payloads are
// decoded concurrently; any corrupt payload fails the call.
func (d *DB) Partials(ctx context.Context, run string, opts ...store.Option) ([]*store.Store, error) {
	if err := d.checkRun(ctx, run); err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, `SELECT worker, payload FROM partials WHERE run = ? ORDER BY worker`, run)
	if err != nil {
		return nil, fmt.Errorf("select partials: %w", err)
	}
	type raw struct {
		worker  int
		payload []byte
	}
	var raws []raw
	for rows.Next() {
		var r raw
		if err = rows.Scan(&r.worker, &r.payload); err != nil {
			_ = rows.Close()

			return nil, fmt.Errorf("scan partial: %w", err)
		}
		raws = append(raws, r)
	}
	if err = rows.Err(); err != nil {
		_ = rows.Close()

		return nil, err
	}
	_ = rows.Close()

	out := make([]*store.Store, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range raws {
		i, r := i, r
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := store.Load(bytes.NewReader(r.payload), nil, opts...)
			if err != nil {
				return fmt.Errorf("decode worker %d: %w", r.worker, err)
			}
			out[i] = s

			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// Reconcile folds the partial stores of run into into in worker order and
// returns the number of records taken.
func (d *DB) Reconcile(ctx context.Context, run string, into *store.Store) (int, error) {
	parts, err := d.Partials(ctx, run, store.WithMergeOptions(into.MergeOptions()))
	if err != nil {
		return 0, err
	}
	taken := into.Reconcile(parts...)
	d.log.Info("run reconciled",
		zap.String("run", run), zap.Int("workers", len(parts)), zap.Int("records", taken))

	return taken, nil
}
