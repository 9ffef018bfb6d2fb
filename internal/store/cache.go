// Package store provides a SQLite-backed cache for parsed plan definitions.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/allot/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache provides SQLite-backed plan caching. Only file definitions are
// cached; edits are never persisted.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
}

// Entry is one cached plan file.
type Entry struct {
	Summary  model.PlanSummary
	Format   string
	Plan     model.Plan
	ParsedAt time.Time
}

// GetTrackedFiles returns a map of file_path -> FileInfo for all cached plans.
func (c *Cache) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := c.db.Query("SELECT file_path, file_mtime_ns, file_size FROM plans")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// SavePlan stores a parsed plan, its summary and its initial baseline rows.
// baseline holds the values after the initial aggregation pass, keyed by id.
func (c *Cache) SavePlan(p model.Plan, format string, baseline model.Baseline, fi FileInfo) error {
	def, err := json.Marshal(p.Nodes)
	if err != nil {
		return fmt.Errorf("encoding plan definition: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	shape := model.Shape(p.Nodes)
	var grandTotal float64
	for _, n := range p.Nodes {
		grandTotal += baseline[n.ID]
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = tx.Exec(`INSERT OR REPLACE INTO plans
		(file_path, name, format, node_count, leaf_count, depth, grand_total,
		 definition, file_mtime_ns, file_size, parsed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Path, p.Name, format, shape.Nodes, shape.Leaves, shape.Depth, grandTotal,
		string(def), fi.MtimeNs, fi.SizeBytes, now,
	)
	if err != nil {
		return err
	}

	// INSERT OR REPLACE on the parent does not fire the cascade.
	if _, err := tx.Exec("DELETE FROM plan_baselines WHERE file_path = ?", p.Path); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO plan_baselines
		(file_path, node_id, parent_id, depth, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range model.Flatten(p.Nodes) {
		var parentID sql.NullString
		if len(row.Path) > 1 {
			parentID = sql.NullString{String: row.Path[len(row.Path)-2], Valid: true}
		}
		if _, err := stmt.Exec(p.Path, row.Node.ID, parentID, row.Depth, baseline[row.Node.ID]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadPlan returns the cached entry for a file path. ok is false when the
// path is not cached.
func (c *Cache) LoadPlan(path string) (Entry, bool, error) {
	row := c.db.QueryRow(`SELECT
		file_path, name, format, node_count, leaf_count, depth, grand_total,
		definition, parsed_at
		FROM plans WHERE file_path = ?`, path)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// LoadAllPlans reads every cached plan ordered by path.
func (c *Cache) LoadAllPlans() ([]Entry, error) {
	rows, err := c.db.Query(`SELECT
		file_path, name, format, node_count, leaf_count, depth, grand_total,
		definition, parsed_at
		FROM plans ORDER BY file_path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LoadBaseline returns the cached initial baseline of a plan file.
func (c *Cache) LoadBaseline(path string) (model.Baseline, error) {
	rows, err := c.db.Query("SELECT node_id, value FROM plan_baselines WHERE file_path = ?", path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	baseline := make(model.Baseline)
	for rows.Next() {
		var id string
		var v float64
		if err := rows.Scan(&id, &v); err != nil {
			return nil, err
		}
		baseline[id] = v
	}
	return baseline, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var def, parsedAt string
	err := s.Scan(
		&e.Summary.Path, &e.Summary.Name, &e.Format, &e.Summary.Nodes, &e.Summary.Leaves,
		&e.Summary.Depth, &e.Summary.GrandTotal, &def, &parsedAt,
	)
	if err != nil {
		return Entry{}, err
	}

	var nodes []model.Node
	if err := json.Unmarshal([]byte(def), &nodes); err != nil {
		return Entry{}, fmt.Errorf("decoding cached plan %s: %w", e.Summary.Path, err)
	}
	e.Plan = model.Plan{Name: e.Summary.Name, Path: e.Summary.Path, Nodes: nodes}
	e.ParsedAt, _ = time.Parse(time.RFC3339, parsedAt)
	return e, nil
}

// DeletePlan removes a cached plan and its baseline rows.
func (c *Cache) DeletePlan(path string) error {
	_, err := c.db.Exec("DELETE FROM plans WHERE file_path = ?", path)
	return err
}

// PlanCount returns the number of cached plans.
func (c *Cache) PlanCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM plans").Scan(&count)
	return count, err
}
