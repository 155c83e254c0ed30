// Package store keeps BASIC programs in a SQLite database so the play
// server and the CLI can load them by name.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/antibyte/pixelbasic/pkg/basic"
	"github.com/antibyte/pixelbasic/pkg/configuration"
	"github.com/antibyte/pixelbasic/pkg/logger"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrProgramNotFound = errors.New("program not found")
	ErrInvalidName     = errors.New("invalid program name")
	ErrProgramTooLarge = errors.New("program too large")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Program is one stored program.
type Program struct {
	ID        string
	Name      string
	Source    string
	Checksum  string
	Lines     int
	UpdatedAt time.Time
}

// Store is a wrapper around the SQLite database connection.
type Store struct {
	conn     *sql.DB
	maxBytes int
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// SQLite kann nur einen Schreiber gleichzeitig
	db.SetMaxOpenConns(1)

	s := &Store{
		conn:     db,
		maxBytes: configuration.GetInt("Store", "max_program_kb", 256) * 1024,
	}
	if err := s.CreateTables(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info(logger.AreaStore, "program store opened: %s", path)
	return s, nil
}

// OpenFromConfig opens the database named by [Store] database_path.
func OpenFromConfig() (*Store, error) {
	return Open(configuration.GetString("Store", "database_path", "programs.db"))
}

// CreateTables ensures all required tables exist in the database.
func (s *Store) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS programs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			checksum TEXT NOT NULL,
			lines INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_name ON programs(name)`,
	}
	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.conn.Close() }

// Checksum returns the hex xxhash of a program text.
func Checksum(source string) string {
	return strconv.FormatUint(xxhash.Sum64String(source), 16)
}

// Save parses source and stores it under name. Programs that do not parse
// are refused with the BASIC error. Saving identical text again is a no-op;
// the returned bool reports whether anything was written.
func (s *Store) Save(name, source string) (bool, error) {
	if !validName.MatchString(name) {
		return false, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if s.maxBytes > 0 && len(source) > s.maxBytes {
		return false, fmt.Errorf("%w: %d bytes, limit %d", ErrProgramTooLarge, len(source), s.maxBytes)
	}
	prog, err := basic.ParseSource(source)
	if err != nil {
		return false, err
	}

	sum := Checksum(source)
	var existing string
	err = s.conn.QueryRow(`SELECT checksum FROM programs WHERE name = ?`, name).Scan(&existing)
	switch {
	case err == nil && existing == sum:
		logger.Debug(logger.AreaStore, "program %s unchanged", name)
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("error reading program %s: %w", name, err)
	}

	_, err = s.conn.Exec(`
		INSERT INTO programs (id, name, source, checksum, lines, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			source = excluded.source,
			checksum = excluded.checksum,
			lines = excluded.lines,
			updated_at = excluded.updated_at`,
		uuid.New().String(), name, source, sum, prog.Len(), time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("error saving program %s: %w", name, err)
	}
	logger.Info(logger.AreaStore, "program %s saved (%d lines, %s)", name, prog.Len(), sum)
	return true, nil
}

// Load returns the program stored under name.
func (s *Store) Load(name string) (*Program, error) {
	var p Program
	var updated int64
	err := s.conn.QueryRow(
		`SELECT id, name, source, checksum, lines, updated_at FROM programs WHERE name = ?`, name,
	).Scan(&p.ID, &p.Name, &p.Source, &p.Checksum, &p.Lines, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading program %s: %w", name, err)
	}
	p.UpdatedAt = time.Unix(updated, 0)
	return &p, nil
}

// List returns all programs without their source, ordered by name.
func (s *Store) List() ([]Program, error) {
	rows, err := s.conn.Query(`SELECT id, name, checksum, lines, updated_at FROM programs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error listing programs: %w", err)
	}
	defer rows.Close()

	var out []Program
	for rows.Next() {
		var p Program
		var updated int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Checksum, &p.Lines, &updated); err != nil {
			return nil, err
		}
		p.UpdatedAt = time.Unix(updated, 0)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes the program stored under name.
func (s *Store) Delete(name string) error {
	res, err := s.conn.Exec(`DELETE FROM programs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("error deleting program %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrProgramNotFound, name)
	}
	logger.Info(logger.AreaStore, "program %s deleted", name)
	return nil
}
