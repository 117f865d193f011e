package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eugenenazirov/event-tables/internal/calculator"
)

const schema = `
CREATE TABLE IF NOT EXISTS calculations (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL DEFAULT '',
	invitees INTEGER NOT NULL,
	guests_per_invitee INTEGER NOT NULL,
	capacity INTEGER NOT NULL,
	policy TEXT NOT NULL,
	attendees INTEGER NOT NULL,
	table_count INTEGER NOT NULL,
	empty_seats INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calculations_created_at ON calculations(created_at);
`

const selectColumns = `id, request_id, invitees, guests_per_invitee, capacity, policy, attendees, table_count, empty_seats, created_at`

// SQLiteStore persists records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dsn.
// The special dsn ":memory:" keeps the database in memory.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn must not be empty")
	}
	if !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

const insertRecord = `INSERT INTO calculations (` + selectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	return insert(ctx, s.db, rec)
}

// SaveAll inserts recs in one transaction; rowids follow slice order.
func (s *SQLiteStore) SaveAll(ctx context.Context, recs []Record) error {
	if err := validateRecords(recs); err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	for _, rec := range recs {
		if err := insert(ctx, tx, rec); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit calculations: %w", err)
	}
	return nil
}

func insert(ctx context.Context, db execer, rec Record) error {
	_, err := db.ExecContext(ctx, insertRecord,
		rec.ID,
		rec.RequestID,
		rec.Plan.Invitees,
		rec.Plan.GuestsPerInvitee,
		rec.Plan.Capacity,
		string(rec.Plan.Policy),
		rec.Plan.Attendees,
		rec.Plan.Tables,
		rec.Plan.EmptySeats,
		rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM calculations WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("select calculation: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT ` + selectColumns + ` FROM calculations ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list calculations: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculations: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec       Record
		policy    string
		createdAt int64
	)
	err := row.Scan(
		&rec.ID,
		&rec.RequestID,
		&rec.Plan.Invitees,
		&rec.Plan.GuestsPerInvitee,
		&rec.Plan.Capacity,
		&policy,
		&rec.Plan.Attendees,
		&rec.Plan.Tables,
		&rec.Plan.EmptySeats,
		&createdAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Plan.Policy = calculator.GuestPolicy(policy)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return rec, nil
}
