package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/simonjohansson/gemtracker/internal/model"
)

// SQLiteProjection is a read model rebuilt from the document store. It is
// never written to directly by request handlers.
type SQLiteProjection struct {
	db *sql.DB
}

func NewSQLiteProjection(path string) (*SQLiteProjection, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	projection := &SQLiteProjection{db: db}
	if err := projection.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return projection, nil
}

func (p *SQLiteProjection) Close() error {
	return p.db.Close()
}

// init recreates the schema on every open; the projection holds nothing that
// cannot be rebuilt from the document store.
func (p *SQLiteProjection) init() error {
	_, err := p.db.Exec(`
DROP TABLE IF EXISTS kits;
DROP TABLE IF EXISTS picks;

CREATE TABLE kits (
  id TEXT PRIMARY KEY,
  number INTEGER NOT NULL,
  name TEXT NOT NULL,
  display_name TEXT NOT NULL,
  completed_count INTEGER NOT NULL,
  total_count INTEGER NOT NULL,
  percent INTEGER NOT NULL,
  bucket TEXT NOT NULL,
  has_active INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  kit_start_date INTEGER,
  kit_completed_date INTEGER
);

CREATE TABLE picks (
  id TEXT PRIMARY KEY,
  kit_id TEXT NOT NULL,
  kit_number INTEGER NOT NULL,
  kit_name TEXT NOT NULL,
  timestamp INTEGER NOT NULL
);
`)
	return err
}

// RebuildKits replaces every kit row in one transaction.
func (p *SQLiteProjection) RebuildKits(summaries []model.KitSummary) (err error) {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM kits`); err != nil {
		return err
	}
	for _, s := range summaries {
		if _, err = tx.Exec(`
INSERT INTO kits (
  id, number, name, display_name, completed_count, total_count, percent, bucket, has_active, created_at, kit_start_date, kit_completed_date
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			s.ID,
			s.Number,
			s.Name,
			s.DisplayName,
			s.CompletedCount,
			s.TotalCount,
			s.Percent,
			string(s.Bucket),
			boolToInt(s.HasActiveGem),
			s.CreatedAt,
			nullMillis(s.KitStartDate),
			nullMillis(s.KitCompletedDate),
		); err != nil {
			return fmt.Errorf("insert kit %s: %w", s.ID, err)
		}
	}
	return tx.Commit()
}

func (p *SQLiteProjection) RebuildPicks(entries []model.PickHistoryEntry) (err error) {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM picks`); err != nil {
		return err
	}
	for _, entry := range entries {
		if _, err = tx.Exec(`
INSERT INTO picks (id, kit_id, kit_number, kit_name, timestamp)
VALUES (?, ?, ?, ?, ?)
`,
			entry.ID,
			entry.KitID,
			entry.KitNumber,
			entry.KitName,
			entry.Timestamp,
		); err != nil {
			return fmt.Errorf("insert pick %s: %w", entry.ID, err)
		}
	}
	return tx.Commit()
}

// ListKitSummaries orders by kit number, then creation time. An empty bucket
// returns every kit.
func (p *SQLiteProjection) ListKitSummaries(bucket model.Bucket) ([]model.KitSummary, error) {
	query := `
SELECT id, number, name, display_name, completed_count, total_count, percent, bucket, has_active, created_at, kit_start_date, kit_completed_date
FROM kits`
	args := []any{}
	if bucket != "" {
		query += ` WHERE bucket = ?`
		args = append(args, string(bucket))
	}
	query += ` ORDER BY number ASC, created_at ASC, id ASC`
	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]model.KitSummary, 0)
	for rows.Next() {
		var (
			s         model.KitSummary
			bucketRaw string
			active    int
			started   sql.NullInt64
			completed sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Number, &s.Name, &s.DisplayName, &s.CompletedCount, &s.TotalCount, &s.Percent, &bucketRaw, &active, &s.CreatedAt, &started, &completed); err != nil {
			return nil, err
		}
		s.Bucket = model.Bucket(bucketRaw)
		s.HasActiveGem = active == 1
		s.KitStartDate = millisOf(started)
		s.KitCompletedDate = millisOf(completed)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// ListPicks returns pick history newest first.
func (p *SQLiteProjection) ListPicks(limit int) ([]model.PickHistoryEntry, error) {
	query := `SELECT id, kit_id, kit_number, kit_name, timestamp FROM picks ORDER BY timestamp DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]model.PickHistoryEntry, 0)
	for rows.Next() {
		var e model.PickHistoryEntry
		if err := rows.Scan(&e.ID, &e.KitID, &e.KitNumber, &e.KitName, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullMillis(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func millisOf(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return model.Millis(v.Int64)
}
