package master

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteRegistry stores allocations in a SQLite file (WAL mode).
type SQLiteRegistry struct {
	db *sql.DB
}

// OpenSQLiteRegistry opens (or creates) the registry at path and applies
// the schema.
func OpenSQLiteRegistry(path string) (*SQLiteRegistry, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: ping: %w", err)
	}
	// one writer; WAL still lets readers in
	db.SetMaxOpenConns(1)

	r := &SQLiteRegistry{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// migrate is idempotent.
func (r *SQLiteRegistry) migrate() error {
	if _, err := r.db.Exec(ddlAllocations); err != nil {
		return fmt.Errorf("registry: migrate: %w", err)
	}
	return nil
}

const ddlAllocations = `
CREATE TABLE IF NOT EXISTS allocations (
    long_address  TEXT    PRIMARY KEY,     -- EUI-64, 16 hex digits
    short_address INTEGER NOT NULL,
    pan_id        INTEGER NOT NULL,
    slot_id       INTEGER NOT NULL,
    allocated_at  INTEGER NOT NULL         -- Unix milliseconds
);
CREATE INDEX IF NOT EXISTS idx_allocations_short ON allocations (short_address);
`

func (r *SQLiteRegistry) Lookup(longAddress uint64) (Allocation, error) {
	row := r.db.QueryRow(
		`SELECT long_address, short_address, pan_id, slot_id, allocated_at
		 FROM allocations WHERE long_address = ?`, encodeAddress(longAddress))
	a, err := scanAllocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Allocation{}, ErrNotFound
	}
	if err != nil {
		return Allocation{}, fmt.Errorf("registry: lookup: %w", err)
	}
	return a, nil
}

func (r *SQLiteRegistry) Save(a Allocation) error {
	_, err := r.db.Exec(
		`INSERT INTO allocations (long_address, short_address, pan_id, slot_id, allocated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(long_address) DO UPDATE SET
		   short_address = excluded.short_address,
		   pan_id        = excluded.pan_id,
		   slot_id       = excluded.slot_id,
		   allocated_at  = excluded.allocated_at`,
		encodeAddress(a.LongAddress), a.ShortAddress, a.PANID, a.SlotID, a.AllocatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("registry: save: %w", err)
	}
	return nil
}

func (r *SQLiteRegistry) List() ([]Allocation, error) {
	rows, err := r.db.Query(
		`SELECT long_address, short_address, pan_id, slot_id, allocated_at
		 FROM allocations ORDER BY short_address`)
	if err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	defer rows.Close()

	var out []Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("registry: list: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	return out, nil
}

func (r *SQLiteRegistry) Close() error { return r.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanAllocation(s scanner) (Allocation, error) {
	var (
		addr string
		a    Allocation
		ms   int64
	)
	if err := s.Scan(&addr, &a.ShortAddress, &a.PANID, &a.SlotID, &ms); err != nil {
		return Allocation{}, err
	}
	long, err := strconv.ParseUint(addr, 16, 64)
	if err != nil {
		return Allocation{}, fmt.Errorf("bad long address %q: %w", addr, err)
	}
	a.LongAddress = long
	a.AllocatedAt = time.UnixMilli(ms)
	return a, nil
}

// uint64 does not fit SQLite's signed INTEGER.
func encodeAddress(longAddress uint64) string {
	return fmt.Sprintf("%016X", longAddress)
}
