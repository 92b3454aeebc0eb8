package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"file-reaper/internal/reaper"
)

// DeletionDB manages the SQLite database for deletion history
type DeletionDB struct {
	db *sql.DB
}

// DeletionRecord represents a single deletion attempt
type DeletionRecord struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	Path         string    `json:"path"`
	FileName     string    `json:"file_name"`
	Size         int64     `json:"size"`
	Delayed      bool      `json:"delayed"`
	DelaySeconds float64   `json:"delay_seconds"`
	DurationMS   float64   `json:"duration_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// NewDeletionDB creates a new database connection and initializes schema
func NewDeletionDB(dbPath string) (*DeletionDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables automatic DATETIME parsing; the busy timeout applies to every pooled connection
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Ping does not create the file; a query does
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL: delayed deletions write from many goroutines while the API reads
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	ddb := &DeletionDB{db: db}
	if err = ddb.initSchema(); err != nil {
		return nil, err
	}

	return ddb, nil
}

func (d *DeletionDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deletions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		size INTEGER NOT NULL DEFAULT 0,
		delayed INTEGER NOT NULL DEFAULT 0,
		delay_seconds REAL NOT NULL DEFAULT 0,
		duration_ms REAL NOT NULL DEFAULT 0,
		error_message TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON deletions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON deletions(action);
	CREATE INDEX IF NOT EXISTS idx_path ON deletions(path);
	CREATE INDEX IF NOT EXISTS idx_size ON deletions(size);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// RecordOutcome inserts one deletion attempt. Satisfies reaper.Recorder.
func (d *DeletionDB) RecordOutcome(o reaper.Outcome) error {
	query := `
	INSERT INTO deletions (
		timestamp, action, path, file_name, size,
		delayed, delay_seconds, duration_ms, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errMsg sql.NullString
	if msg := o.ErrorMessage(); msg != "" {
		errMsg = sql.NullString{String: msg, Valid: true}
	}

	at := o.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	_, err := d.db.Exec(
		query,
		at,
		string(o.Action),
		o.Path,
		filepath.Base(o.Path),
		o.Size,
		o.Delayed,
		o.Delay.Seconds(),
		float64(o.Took)/float64(time.Millisecond),
		errMsg,
	)
	if err != nil {
		return fmt.Errorf("record deletion of %s: %w", o.Path, err)
	}
	return nil
}

// Ping checks the connection. Used by the health checker.
func (d *DeletionDB) Ping() error {
	return d.db.Ping()
}

// Close closes the database connection
func (d *DeletionDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *DeletionDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// GetDatabaseStats returns database statistics
func (d *DeletionDB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalRecords int64
	if err := d.db.QueryRow("SELECT COUNT(*) FROM deletions").Scan(&totalRecords); err != nil {
		return nil, err
	}
	stats["total_records"] = totalRecords

	var pageCount, pageSize int64
	if err := d.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats["database_size_bytes"] = pageCount * pageSize

	var oldest, newest sql.NullString
	err := d.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM deletions").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if t, ok := parseSQLiteTime(oldest); ok {
		stats["oldest_record"] = t
	}
	if t, ok := parseSQLiteTime(newest); ok {
		stats["newest_record"] = t
	}

	return stats, nil
}

// Aggregates come back as text, not DATETIME, so _loc=auto does not apply
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseSQLiteTime(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
