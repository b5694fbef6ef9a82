package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"photokeep/internal/logging"
	"photokeep/internal/metrics"
)

// Default timeout for catalog read operations
const defaultTimeout = 5 * time.Second

// Querier is satisfied by both *sql.DB and *sql.Tx. Repository methods
// take a Querier so the same query runs inside or outside the scan
// transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store manages the persistent catalog of assets and folders.
type Store struct {
	db     *sql.DB
	dbPath string

	txMu    sync.Mutex
	txStart time.Time

	lastMu   sync.RWMutex
	lastScan *LastScan
}

// Open creates a Store backed by the SQLite file at dbPath. The parent
// directory must already exist and be writable.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Catalog path: %s", dbPath)

	// busy_timeout helps prevent "database is locked" errors;
	// foreign keys drive the cascading deletes the reaper relies on.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close catalog after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to catalog: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close catalog after schema failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	logging.Info("Catalog initialized at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	done := observeQuery("initialize_schema")

	schema := `
	CREATE TABLE IF NOT EXISTS folders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		parent_id INTEGER REFERENCES folders(id)
	);

	CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(parent_id);

	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		virtual_path TEXT NOT NULL UNIQUE,
		size INTEGER NOT NULL DEFAULT 0,
		checksum TEXT NOT NULL,
		media_type TEXT NOT NULL,
		extension TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		modified_at INTEGER NOT NULL,
		scanned_at INTEGER NOT NULL,
		folder_id INTEGER REFERENCES folders(id) ON DELETE SET NULL,
		owner_id INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_assets_checksum ON assets(checksum);
	CREATE INDEX IF NOT EXISTS idx_assets_folder ON assets(folder_id);

	CREATE TABLE IF NOT EXISTS thumbnails (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_id INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		size TEXT NOT NULL,
		file_path TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		byte_size INTEGER NOT NULL DEFAULT 0,
		format TEXT NOT NULL DEFAULT 'jpeg',
		UNIQUE(asset_id, size)
	);

	CREATE TABLE IF NOT EXISTS exif (
		asset_id INTEGER PRIMARY KEY REFERENCES assets(id) ON DELETE CASCADE,
		camera_make TEXT,
		camera_model TEXT,
		lens TEXT,
		focal_length REAL,
		f_number REAL,
		exposure_time TEXT,
		iso INTEGER,
		taken_at INTEGER,
		latitude REAL,
		longitude REAL,
		width INTEGER,
		height INTEGER,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE
	);

	CREATE TABLE IF NOT EXISTS asset_tags (
		asset_id INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		UNIQUE(asset_id, tag_id)
	);

	CREATE TABLE IF NOT EXISTS ml_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_id INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		job_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- One active job per (asset, job_type); completed/failed rows may pile up.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_ml_jobs_active
		ON ml_jobs(asset_id, job_type)
		WHERE status IN ('pending', 'processing');

	CREATE TABLE IF NOT EXISTS folder_grants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		folder_id INTEGER NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
		grantee TEXT NOT NULL,
		permission TEXT NOT NULL,
		UNIQUE(folder_id, grantee, permission)
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	done(err)
	return err
}

// Close closes the catalog.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection as a Querier for reads outside
// a scan transaction.
func (s *Store) DB() Querier {
	return s.db
}

// Begin starts the scan transaction. The caller must finish it with
// End; all catalog mutations of one scan run on the returned Tx.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	s.txMu.Lock()
	s.txStart = time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	s.txMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to begin catalog transaction: %w", err)
	}
	return tx, nil
}

// End commits the transaction when err is nil and rolls it back
// otherwise. The original error is always returned to the caller.
func (s *Store) End(tx *sql.Tx, err error) error {
	s.txMu.Lock()
	duration := time.Since(s.txStart).Seconds()
	s.txMu.Unlock()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit catalog transaction: %w", commitErr)
	}
	return nil
}

// Vacuum optimizes the catalog file.
func (s *Store) Vacuum() error {
	done := observeQuery("vacuum")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "VACUUM")
	done(err)
	return err
}

// UpdateLastScan caches the result of the most recent completed scan.
func (s *Store) UpdateLastScan(last LastScan) {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	s.lastScan = &last
}

// LastScan returns the cached result of the most recent completed
// scan, or nil when no scan has finished yet.
func (s *Store) LastScan() *LastScan {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.lastScan
}

// UpdateDBMetrics refreshes connection gauge metrics.
func (s *Store) UpdateDBMetrics() {
	stats := s.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// observeQuery returns a completion func recording query metrics.
func observeQuery(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
		metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
