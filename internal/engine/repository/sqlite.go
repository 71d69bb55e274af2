package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ============================================================
// Site Library (SQLite)
// ============================================================
//
// A read-only catalog of named sample sites: geodetic GeoJSON
// payloads a new document can be initialized from. Drafting state
// itself is never persisted here.

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS sites (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    payload     TEXT NOT NULL
);
`

type SiteSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Site struct {
	SiteSummary
	Payload string `json:"payload"`
}

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init runs the schema and seeds the demo sites.
func (r *Repository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return r.seed(ctx)
}

func (r *Repository) List(ctx context.Context) ([]SiteSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, description
        FROM sites
        ORDER BY name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SiteSummary
	for rows.Next() {
		var s SiteSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (*Site, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, name, description, payload
        FROM sites
        WHERE id = ?
    `, id)

	var s Site
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ============================================================
// Seeding
// ============================================================

func (r *Repository) seed(ctx context.Context) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sites`).Scan(&count); err != nil {
		return fmt.Errorf("count sites: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, s := range demoSites {
		_, err := r.db.ExecContext(ctx, `
            INSERT INTO sites (id, name, description, payload)
            VALUES (?, ?, ?, ?)
        `, s.ID, s.Name, s.Description, s.Payload)
		if err != nil {
			return fmt.Errorf("seed site %s: %w", s.ID, err)
		}
	}
	return nil
}

// Two small demo sites: a bare square block and a block with two
// existing buildings and a road, both near 55.75N.
var demoSites = []Site{
	{
		SiteSummary: SiteSummary{
			ID:          "empty-block",
			Name:        "Empty block",
			Description: "100x100m empty site boundary",
		},
		Payload: `{"type":"FeatureCollection","features":[
            {"type":"Feature","properties":{"id":"site","isMain":true},
             "geometry":{"type":"Polygon","coordinates":[[
                [37.61750,55.75200],[37.61910,55.75200],
                [37.61910,55.75290],[37.61750,55.75290],
                [37.61750,55.75200]]]}}
        ]}`,
	},
	{
		SiteSummary: SiteSummary{
			ID:          "demo-block",
			Name:        "Demo block",
			Description: "Site with two buildings and a road",
		},
		Payload: `{"type":"FeatureCollection","features":[
            {"type":"Feature","properties":{"id":"site","isMain":true},
             "geometry":{"type":"Polygon","coordinates":[[
                [37.61750,55.75200],[37.61910,55.75200],
                [37.61910,55.75290],[37.61750,55.75290],
                [37.61750,55.75200]]]}},
            {"type":"Feature","properties":{"id":"bldg-a","height":18},
             "geometry":{"type":"Polygon","coordinates":[[
                [37.61780,55.75220],[37.61820,55.75220],
                [37.61820,55.75240],[37.61780,55.75240],
                [37.61780,55.75220]]]}},
            {"type":"Feature","properties":{"id":"bldg-b","height":9},
             "geometry":{"type":"Polygon","coordinates":[[
                [37.61850,55.75250],[37.61880,55.75250],
                [37.61880,55.75270],[37.61850,55.75270],
                [37.61850,55.75250]]]}},
            {"type":"Feature","properties":{"id":"road-1"},
             "geometry":{"type":"LineString","coordinates":[
                [37.61750,55.75245],[37.61910,55.75245]]}}
        ]}`,
	},
}

// OpenSQLite opens the site library at the given path.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
