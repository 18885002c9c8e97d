package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/homer/pkg/homer/corpus"
	"github.com/cognicore/homer/pkg/homer/internalerr"
)

// sqliteStore implements the corpus.Store interface using SQLite
type sqliteStore struct {
	db  *sql.DB
	ids *corpus.IDSource
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (corpus.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db, ids: corpus.NewIDSource()}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertPair inserts a pair or updates the text of the pair with the same id.
// The original creation time survives updates.
func (s *sqliteStore) UpsertPair(ctx context.Context, p corpus.Pair) (corpus.Pair, error) {
	p, err := corpus.Prepare(p, s.ids)
	if err != nil {
		return corpus.Pair{}, err
	}

	const stmt = `
INSERT INTO pairs (id, input, output, source, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	input=excluded.input,
	output=excluded.output,
	source=excluded.source
RETURNING created_at;
`

	var created string
	err = s.db.QueryRowContext(
		ctx,
		stmt,
		p.ID,
		p.Input,
		p.Output,
		p.Source,
		p.CreatedAt.Format(time.RFC3339Nano),
	).Scan(&created)
	if err != nil {
		return corpus.Pair{}, err
	}

	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return corpus.Pair{}, fmt.Errorf("pair %s: bad created_at %q: %w", p.ID, created, err)
	}
	return p, nil
}

// GetPair loads a pair by id.
func (s *sqliteStore) GetPair(ctx context.Context, id string) (corpus.Pair, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, output, source, created_at FROM pairs WHERE id=?`, id)
	p, err := scanPair(row)
	if errors.Is(err, sql.ErrNoRows) {
		return corpus.Pair{}, false, nil
	}
	if err != nil {
		return corpus.Pair{}, false, err
	}
	return p, true, nil
}

// ListPairs returns every pair ordered by id, which is creation order.
func (s *sqliteStore) ListPairs(ctx context.Context) ([]corpus.Pair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, output, source, created_at FROM pairs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []corpus.Pair
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// DeletePair removes a pair.
func (s *sqliteStore) DeletePair(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pairs WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: pair %s", internalerr.ErrNotFound, id)
	}
	return nil
}

// Count returns the number of stored pairs.
func (s *sqliteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pairs`).Scan(&n)
	return n, err
}

// Stoplist returns a view of the stopword list.
// Returns nil if the stoplist table is empty.
func (s *sqliteStore) Stoplist() corpus.StoplistView {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM stoplist`).Scan(&count); err != nil || count == 0 {
		return nil
	}
	return &sqliteStoplistView{db: s.db}
}

// UpsertStoplist replaces the stopword set in a single transaction.
func (s *sqliteStore) UpsertStoplist(ctx context.Context, tokens []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stoplist`); err != nil {
		return err
	}

	if len(tokens) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO stoplist (token) VALUES (?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, tok := range tokens {
			if _, err := stmt.ExecContext(ctx, tok); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// --- SQLite StoplistView ---

type sqliteStoplistView struct{ db *sql.DB }

func (v *sqliteStoplistView) IsStop(token string) bool {
	var count int64
	if err := v.db.QueryRow(`SELECT COUNT(*) FROM stoplist WHERE token=?`, token).Scan(&count); err != nil {
		return false
	}
	return count > 0
}

func (v *sqliteStoplistView) AllStops() []string {
	rows, err := v.db.Query(`SELECT token FROM stoplist ORDER BY token`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var stops []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return stops
		}
		stops = append(stops, tok)
	}
	return stops
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPair(row scanner) (corpus.Pair, error) {
	var (
		p       corpus.Pair
		created string
	)
	if err := row.Scan(&p.ID, &p.Input, &p.Output, &p.Source, &created); err != nil {
		return corpus.Pair{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return corpus.Pair{}, fmt.Errorf("pair %s: bad created_at %q: %w", p.ID, created, err)
	}
	p.CreatedAt = t
	return p, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS pairs (
	id TEXT PRIMARY KEY,
	input TEXT NOT NULL,
	output TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stoplist (
	token TEXT PRIMARY KEY
);
`
