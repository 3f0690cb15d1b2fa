package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/apkscan/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "apkscan.db"

// Repository provides SQLite-based storage for APKs, manifest components and
// scan results.
type Repository struct {
	db     *sql.DB
	dbPath string
}

// Options configures Repository behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the repository in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Repository, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run \"apkscan load\" first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := repo.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return repo, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (r *Repository) createTables() error {
	schema := `
	-- Loaded packages
	CREATE TABLE IF NOT EXISTS apks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sha256 TEXT NOT NULL UNIQUE,
		file_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		package_name TEXT,
		cert_fingerprint TEXT,
		loaded_at TEXT NOT NULL,
		last_scanned TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_apks_file_name ON apks(file_name);

	-- Meta-data children of components
	CREATE TABLE IF NOT EXISTS metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		app_id INTEGER NOT NULL REFERENCES apks(id),
		parent_kind TEXT NOT NULL,
		parent_id INTEGER NOT NULL,
		name TEXT,
		resource TEXT,
		value TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_metadata_parent ON metadata(parent_kind, parent_id);
	CREATE INDEX IF NOT EXISTS idx_metadata_app ON metadata(app_id);

	-- uses-permission declarations in manifest order
	CREATE TABLE IF NOT EXISTS permissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		app_id INTEGER NOT NULL REFERENCES apks(id),
		position INTEGER NOT NULL,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_permissions_app ON permissions(app_id);

	-- Complete scan results as JSON
	CREATE TABLE IF NOT EXISTS scan_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		app_id INTEGER NOT NULL REFERENCES apks(id),
		scanned_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		report_json TEXT NOT NULL,
		risk_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_scan_runs_app ON scan_runs(app_id);

	-- Secret scanner matches
	CREATE TABLE IF NOT EXISTS secret_findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		app_id INTEGER NOT NULL REFERENCES apks(id),
		source_file TEXT NOT NULL,
		line INTEGER NOT NULL,
		matched_text TEXT NOT NULL,
		pattern_id TEXT NOT NULL,
		label TEXT,
		severity INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_secret_findings_run ON secret_findings(run_id);

	-- Obfuscation analyzer results
	CREATE TABLE IF NOT EXISTS obfuscation_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		app_id INTEGER NOT NULL REFERENCES apks(id),
		obfuscated_classes INTEGER NOT NULL,
		total_classes INTEGER NOT NULL,
		obfuscated_methods INTEGER NOT NULL,
		total_methods INTEGER NOT NULL,
		mapping_artifacts TEXT NOT NULL,
		files_scanned INTEGER NOT NULL,
		files_skipped INTEGER NOT NULL
	);
	`

	stmts := []string{schema}
	for _, kind := range model.ComponentKinds {
		stmts = append(stmts, componentTableDDL(kind))
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(context.Background(), stmt); err != nil {
			return err
		}
	}
	return nil
}

// componentTableDDL generates the table of one component kind from its
// attribute schema.
func componentTableDDL(kind model.ComponentKind) string {
	table := model.TableName(kind)
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quoteIdent(table))
	b.WriteString("\tid INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	b.WriteString("\tapp_id INTEGER NOT NULL REFERENCES apks(id)")
	for _, spec := range model.Schema(kind) {
		fmt.Fprintf(&b, ",\n\t%s %s", quoteIdent(spec.Name), columnType(spec.Rule))
	}
	b.WriteString("\n);\n")
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s ON %s(app_id);",
		quoteIdent("idx_"+table+"_app"), quoteIdent(table))
	return b.String()
}

func columnType(rule model.Rule) string {
	switch rule {
	case model.RuleBool, model.RuleInt:
		return "INTEGER"
	case model.RuleReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// quoteIdent quotes an SQL identifier. Attribute names come from the static
// schema table, never from input.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// formatTimestamp is the storage form of all timestamps.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
