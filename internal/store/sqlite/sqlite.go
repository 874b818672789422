// Package sqlite implements the store facade on an embedded SQLite
// database. It is the zero-infrastructure engine for local deployments;
// search is an exact cosine scan over the user's rows.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/openrecall/vectord/internal/store"
	"github.com/openrecall/vectord/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	create_time INTEGER NOT NULL,
	title       TEXT NOT NULL,
	url         TEXT NOT NULL,
	image       TEXT NOT NULL DEFAULT '',
	text        TEXT NOT NULL,
	vector      BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_user ON records(user_id);
CREATE INDEX IF NOT EXISTS idx_records_user_url ON records(user_id, url);
`

// Store is the SQLite-backed vector store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and prepares the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts all records in one transaction; any failure rolls the
// whole batch back.
func (s *Store) Append(ctx context.Context, userID string, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, user_id, create_time, title, url, image, text, vector)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, userID, r.CreateTime, r.Title, r.URL, r.Image, r.Text, encodeVector(r.Vector)); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Search scans the user's rows and ranks them by cosine similarity.
func (s *Store) Search(ctx context.Context, userID string, vector []float32, opts store.SearchOptions) ([]models.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}

	records, err := s.loadUser(ctx, userID, opts.Filter)
	if err != nil {
		return nil, err
	}

	type scored struct {
		rec   models.Record
		score float64
	}
	matches := make([]scored, 0, len(records))
	for _, r := range records {
		matches = append(matches, scored{rec: r, score: store.CosineSimilarity(vector, r.Vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	out := []models.Record{}
	for i := 0; i < len(matches) && i < limit; i++ {
		out = append(out, store.Project(matches[i].rec, opts.SelectFields))
	}
	return out, nil
}

// SearchDetail pages through the user's rows, newest first.
func (s *Store) SearchDetail(ctx context.Context, userID string, opts store.DetailOptions) ([]models.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}

	query := `SELECT id, create_time, title, url, image, text, vector FROM records WHERE user_id = ?`
	args := []any{userID}
	if opts.Filter != nil {
		col, err := filterColumn(opts.Filter.Field)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" AND %s = ?", col)
		args = append(args, opts.Filter.Equals)
	}
	query += " ORDER BY create_time DESC LIMIT ? OFFSET ?"
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("detail query failed: %w", err)
	}
	defer rows.Close()

	out := []models.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, store.Project(r, opts.SelectFields))
	}
	return out, rows.Err()
}

// DeleteURLs removes all records for the given URLs.
func (s *Store) DeleteURLs(ctx context.Context, userID string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(urls)), ",")
	args := make([]any, 0, len(urls)+1)
	args = append(args, userID)
	for _, u := range urls {
		args = append(args, u)
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM records WHERE user_id = ? AND url IN (%s)", placeholders), args...)
	if err != nil {
		return fmt.Errorf("delete by url failed: %w", err)
	}
	return nil
}

// Compact reclaims space freed by deletions. SQLite's VACUUM operates on
// the whole file, which covers every user sharing it.
func (s *Store) Compact(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("compact failed: %w", err)
	}
	return nil
}

func (s *Store) loadUser(ctx context.Context, userID string, f *store.Filter) ([]models.Record, error) {
	query := `SELECT id, create_time, title, url, image, text, vector FROM records WHERE user_id = ?`
	args := []any{userID}
	if f != nil {
		col, err := filterColumn(f.Field)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" AND %s = ?", col)
		args = append(args, f.Equals)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load query failed: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// filterColumn whitelists filterable columns; values are always bound as
// parameters, never interpolated.
func filterColumn(field string) (string, error) {
	switch field {
	case "url", "title", "id":
		return field, nil
	default:
		return "", fmt.Errorf("unsupported filter field %q", field)
	}
}

func scanRecord(rows *sql.Rows) (models.Record, error) {
	var r models.Record
	var blob []byte
	if err := rows.Scan(&r.ID, &r.CreateTime, &r.Title, &r.URL, &r.Image, &r.Text, &blob); err != nil {
		return r, fmt.Errorf("failed to scan record: %w", err)
	}
	r.Vector = decodeVector(blob)
	return r, nil
}

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
