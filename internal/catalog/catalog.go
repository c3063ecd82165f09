// Package catalog records DPC analysis runs in a SQLite database so results
// from different acquisitions and parameter choices can be compared later.
package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Run is one analysis of one input file.
type Run struct {
	ID          string    `db:"id"`
	Source      string    `db:"source"`
	Kind        string    `db:"kind"`
	ScanRows    int       `db:"scan_rows"`
	ScanCols    int       `db:"scan_cols"`
	DetRows     int       `db:"det_rows"`
	DetCols     int       `db:"det_cols"`
	CenterX     float64   `db:"center_x"`
	CenterY     float64   `db:"center_y"`
	Calibration float64   `db:"calibration"`
	Rotation    float64   `db:"rotation"`
	HighPass    float64   `db:"hpass"`
	LowPass     float64   `db:"lpass"`
	PotentialLo float64   `db:"potential_min"`
	PotentialHi float64   `db:"potential_max"`
	CreatedAt   time.Time `db:"created_at"`
}

// DB wraps a SQLite connection holding the run catalog.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a catalog database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		kind TEXT NOT NULL,
		scan_rows INTEGER NOT NULL,
		scan_cols INTEGER NOT NULL,
		det_rows INTEGER NOT NULL,
		det_cols INTEGER NOT NULL,
		center_x REAL NOT NULL,
		center_y REAL NOT NULL,
		calibration REAL NOT NULL,
		rotation REAL NOT NULL,
		hpass REAL NOT NULL,
		lpass REAL NOT NULL,
		potential_min REAL NOT NULL,
		potential_max REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Record stores run, assigning an ID and timestamp when they are unset, and
// returns the stored row.
func (db *DB) Record(run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.NamedExec(`
		INSERT INTO runs (id, source, kind, scan_rows, scan_cols, det_rows, det_cols,
			center_x, center_y, calibration, rotation, hpass, lpass,
			potential_min, potential_max, created_at)
		VALUES (:id, :source, :kind, :scan_rows, :scan_cols, :det_rows, :det_cols,
			:center_x, :center_y, :calibration, :rotation, :hpass, :lpass,
			:potential_min, :potential_max, :created_at)`, run)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// Get loads one run by ID.
func (db *DB) Get(id string) (Run, error) {
	var run Run
	if err := db.conn.Get(&run, "SELECT * FROM runs WHERE id = ?", id); err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// List returns runs newest first. An empty source lists every run.
func (db *DB) List(source string) ([]Run, error) {
	var runs []Run
	var err error
	if source == "" {
		err = db.conn.Select(&runs, "SELECT * FROM runs ORDER BY created_at DESC")
	} else {
		err = db.conn.Select(&runs, "SELECT * FROM runs WHERE source = ? ORDER BY created_at DESC", source)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
