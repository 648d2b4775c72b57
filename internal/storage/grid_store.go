package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"datagrid/internal/domain"
)

// GridStore implements domain.GridStore using SQLite.
type GridStore struct {
	db *DB
}

// NewGridStore creates a new GridStore.
func NewGridStore(db *DB) *GridStore {
	return &GridStore{db: db}
}

var _ domain.GridStore = (*GridStore)(nil)

// ── Grid CRUD ──────────────────────────────────────────────

func (s *GridStore) CreateGrid(g *domain.Grid) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now

	cfg, err := json.Marshal(g.Config)
	if err != nil {
		return fmt.Errorf("encode grid config: %w", err)
	}
	_, err = s.db.conn.Exec(
		`INSERT INTO grids (id, name, config_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.Name, string(cfg), g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create grid %q: %w", g.Name, err)
	}
	return nil
}

func (s *GridStore) GetGrid(id string) (*domain.Grid, error) {
	g, err := s.scanGrid(s.db.conn.QueryRow(
		`SELECT id, name, config_json, created_at, updated_at
		 FROM grids WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("grid not found: %s: %w", id, domain.ErrNotFound)
	}
	return g, err
}

func (s *GridStore) GetGridByName(name string) (*domain.Grid, error) {
	g, err := s.scanGrid(s.db.conn.QueryRow(
		`SELECT id, name, config_json, created_at, updated_at
		 FROM grids WHERE name = ?`, name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("grid not found: %s: %w", name, domain.ErrNotFound)
	}
	return g, err
}

func (s *GridStore) ListGrids() ([]domain.Grid, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, name, config_json, created_at, updated_at
		 FROM grids ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Grid
	for rows.Next() {
		g, err := s.scanGrid(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *g)
	}
	return result, rows.Err()
}

func (s *GridStore) UpdateGrid(g *domain.Grid) error {
	g.UpdatedAt = time.Now()
	cfg, err := json.Marshal(g.Config)
	if err != nil {
		return fmt.Errorf("encode grid config: %w", err)
	}
	res, err := s.db.conn.Exec(
		`UPDATE grids SET name = ?, config_json = ?, updated_at = ? WHERE id = ?`,
		g.Name, string(cfg), g.UpdatedAt, g.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("grid not found: %s: %w", g.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *GridStore) DeleteGrid(id string) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM grid_rows WHERE grid_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM grids WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *GridStore) scanGrid(row rowScanner) (*domain.Grid, error) {
	g := &domain.Grid{}
	var cfg string
	if err := row.Scan(&g.ID, &g.Name, &cfg, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cfg), &g.Config); err != nil {
		return nil, fmt.Errorf("decode config of grid %s: %w", g.ID, err)
	}
	return g, nil
}

// ── Rows ───────────────────────────────────────────────────

func (s *GridStore) ListRows(gridID string) ([]domain.Record, error) {
	rows, err := s.db.conn.Query(
		`SELECT row_key, data_json FROM grid_rows
		 WHERE grid_id = ? ORDER BY sort_order ASC`, gridID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Record
	for rows.Next() {
		var rec domain.Record
		var data string
		if err := rows.Scan(&rec.Key, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rec.Fields); err != nil {
			return nil, fmt.Errorf("decode row %s: %w", rec.Key, err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// ReplaceRows swaps the full row set of a grid in one transaction.
// The slice order becomes the stored order.
func (s *GridStore) ReplaceRows(gridID string, records []domain.Record) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM grid_rows WHERE grid_id = ?`, gridID); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO grid_rows (grid_id, row_key, data_json, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i, rec := range records {
		data, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("encode row %s: %w", rec.Key, err)
		}
		if _, err := stmt.Exec(gridID, rec.Key, string(data), i+1, now, now); err != nil {
			return fmt.Errorf("insert row %s: %w", rec.Key, err)
		}
	}

	if _, err := tx.Exec(`UPDATE grids SET updated_at = ? WHERE id = ?`, now, gridID); err != nil {
		return err
	}
	return tx.Commit()
}

// ReorderRows persists a new row order. keys must list every stored row.
func (s *GridStore) ReorderRows(gridID string, keys []string) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM grid_rows WHERE grid_id = ?`, gridID).Scan(&count); err != nil {
		return err
	}
	if count != len(keys) {
		return fmt.Errorf("reorder rows: got %d keys for %d stored rows", len(keys), count)
	}

	stmt, err := tx.Prepare(`UPDATE grid_rows SET sort_order = ? WHERE grid_id = ? AND row_key = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, key := range keys {
		res, err := stmt.Exec(i+1, gridID, key)
		if err != nil {
			return fmt.Errorf("reorder row %s: %w", key, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &domain.KeyError{Key: key, Err: domain.ErrUnknownRecord}
		}
	}

	return tx.Commit()
}

// GetGridStats returns the row count and last row update time of a grid.
func (s *GridStore) GetGridStats(gridID string) (int, time.Time, error) {
	var count int
	var lastUpdated sql.NullString

	err := s.db.conn.QueryRow(
		`SELECT COUNT(*), MAX(updated_at) FROM grid_rows WHERE grid_id = ?`, gridID,
	).Scan(&count, &lastUpdated)
	if err != nil {
		return 0, time.Time{}, err
	}

	t := time.Time{}
	if lastUpdated.Valid {
		t, _ = parseSQLiteTime(lastUpdated.String)
	}
	return count, t, nil
}

// parseSQLiteTime parses the text forms time.Time values are stored as.
func parseSQLiteTime(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q", s)
}
