// Package storage persists rosters on the authority side. Detachments
// and entries travel as one JSON document per roster: the service
// always reads and writes whole aggregates, so row-per-entry tables
// would only add join bookkeeping.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/veletaris/rosterforge/internal/roster"
)

var ErrNotFound = errors.New("roster not found")

const schema = `
CREATE TABLE IF NOT EXISTS rosters (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	points_limit INTEGER NOT NULL,
	doctrine     TEXT NOT NULL DEFAULT '',
	total_points INTEGER NOT NULL DEFAULT 0,
	data         TEXT NOT NULL,
	updated_at   INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);
`

// Store wraps the sqlite handle.
type Store struct {
	db *sql.DB
}

// Open creates/migrates the database. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveRoster upserts the full aggregate.
func (s *Store) SaveRoster(r roster.Roster) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode roster %s: %w", r.ID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO rosters (id, name, points_limit, doctrine, total_points, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, strftime('%s','now'))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			points_limit = excluded.points_limit,
			doctrine = excluded.doctrine,
			total_points = excluded.total_points,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		r.ID, r.Name, r.PointsLimit, r.Doctrine, r.TotalPoints, string(data))
	if err != nil {
		return fmt.Errorf("save roster %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) LoadRoster(id string) (roster.Roster, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM rosters WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.Roster{}, ErrNotFound
	}
	if err != nil {
		return roster.Roster{}, fmt.Errorf("load roster %s: %w", id, err)
	}
	var r roster.Roster
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return roster.Roster{}, fmt.Errorf("decode roster %s: %w", id, err)
	}
	return r, nil
}

func (s *Store) DeleteRoster(id string) error {
	res, err := s.db.Exec(`DELETE FROM rosters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete roster %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RosterSummary is the list-endpoint row.
type RosterSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PointsLimit int    `json:"points_limit"`
	TotalPoints int    `json:"total_points"`
}

func (s *Store) ListRosters() ([]RosterSummary, error) {
	rows, err := s.db.Query(`SELECT id, name, points_limit, total_points FROM rosters ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rosters: %w", err)
	}
	defer rows.Close()
	var out []RosterSummary
	for rows.Next() {
		var rs RosterSummary
		if err := rows.Scan(&rs.ID, &rs.Name, &rs.PointsLimit, &rs.TotalPoints); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}
