package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RunStore = (*Store)(nil)

// Store persists run metadata in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the database at dbPath.
// If dbPath is empty, defaults to ~/.lidarqc/data/history.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".lidarqc", "data", "history.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_runs.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// Save stores a sealed run.
func (s *Store) Save(ctx context.Context, run *domain.RunMetadata) error {
	if !run.Sealed() {
		return fmt.Errorf("%w: run %s is still in progress", domain.ErrInvalidInput, run.ID)
	}
	doc, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshalling run: %w", err)
	}

	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM runs WHERE id = ?", run.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking run: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: run %s", domain.ErrAlreadyExists, run.ID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, region, mode, state, success, started_at, finished_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Region, string(run.Mode), string(run.State), boolToInt(run.Success),
		run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(), string(doc))
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID. The returned record is sealed.
func (s *Store) Get(ctx context.Context, id string) (*domain.RunMetadata, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT metadata FROM runs WHERE id = ?", id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	var run domain.RunMetadata
	if err := json.Unmarshal([]byte(doc), &run); err != nil {
		return nil, fmt.Errorf("unmarshalling run: %w", err)
	}
	run.Seal()
	return &run, nil
}

// List returns run summaries, newest first.
func (s *Store) List(ctx context.Context, filter domain.RunFilter) ([]domain.RunSummary, error) {
	query := "SELECT id, region, mode, state, success, started_at, finished_at FROM runs"
	var args []any
	if filter.Region != "" {
		query += " WHERE region = ?"
		args = append(args, filter.Region)
	}
	query += " ORDER BY started_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var result []domain.RunSummary
	for rows.Next() {
		var sum domain.RunSummary
		var mode, state string
		var success int
		var started, finished int64
		if err := rows.Scan(&sum.ID, &sum.Region, &mode, &state, &success, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		sum.Mode = domain.PipelineMode(mode)
		sum.State = domain.PipelineState(state)
		sum.Success = success != 0
		sum.StartedAt = time.Unix(0, started).UTC()
		sum.FinishedAt = time.Unix(0, finished).UTC()
		result = append(result, sum)
	}
	return result, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
