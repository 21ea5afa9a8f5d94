package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/scoring"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database, runs migrations and seeds reference data.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := s.seed(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS water_bodies (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			region TEXT NOT NULL,
			body_type TEXT NOT NULL,
			quality_index REAL NOT NULL,
			ecological_value REAL NOT NULL,
			usage_pressure REAL NOT NULL,
			priority_score REAL NOT NULL DEFAULT 0,
			priority_level TEXT NOT NULL DEFAULT 'low',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_water_bodies_region ON water_bodies(region, priority_level)`,
		`CREATE TABLE IF NOT EXISTS documents (
			entity_id INTEGER NOT NULL,
			section TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (entity_id, section),
			FOREIGN KEY (entity_id) REFERENCES water_bodies(id)
		)`,
		`CREATE TABLE IF NOT EXISTS turn_events (
			event_id TEXT PRIMARY KEY,
			turn_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turn_events_turn ON turn_events(turn_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// seed inserts reference records on first start. Priority columns are derived
// from the stored attributes so lookups and explanations agree.
func (s *SQLiteStore) seed() error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM water_bodies").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seeds := []domain.WaterBody{
		{ID: 1, Name: "Alder Creek", Region: "north", BodyType: "river", QualityIndex: 0.32, EcologicalValue: 0.81, UsagePressure: 0.55},
		{ID: 2, Name: "Birchwater Reservoir", Region: "north", BodyType: "reservoir", QualityIndex: 0.74, EcologicalValue: 0.42, UsagePressure: 0.68},
		{ID: 3, Name: "Cobalt Lake", Region: "highlands", BodyType: "lake", QualityIndex: 0.88, EcologicalValue: 0.93, UsagePressure: 0.21},
		{ID: 4, Name: "Dunmore Canal", Region: "coastal", BodyType: "canal", QualityIndex: 0.41, EcologicalValue: 0.35, UsagePressure: 0.87},
		{ID: 5, Name: "Eastfen Marsh", Region: "coastal", BodyType: "lake", QualityIndex: 0.27, EcologicalValue: 0.89, UsagePressure: 0.49},
		{ID: 6, Name: "Foss River", Region: "valley", BodyType: "river", QualityIndex: 0.63, EcologicalValue: 0.58, UsagePressure: 0.72},
	}

	for _, wb := range seeds {
		ex := scoring.Explain(wb)
		_, err := s.db.Exec(
			`INSERT INTO water_bodies (id, name, region, body_type, quality_index, ecological_value, usage_pressure, priority_score, priority_level)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			wb.ID, wb.Name, wb.Region, wb.BodyType, wb.QualityIndex, wb.EcologicalValue, wb.UsagePressure, ex.Score, ex.Level,
		)
		if err != nil {
			return err
		}
	}

	docs := []domain.DocumentSection{
		{EntityID: 1, Section: "overview", Content: "Alder Creek drains the northern catchment. Sustained agricultural runoff has degraded water quality over the last decade."},
		{EntityID: 1, Section: "inspection", Content: "The 2025 inspection found elevated nitrate levels downstream of the Harmon weir and sediment accumulation at the intake screens."},
		{EntityID: 1, Section: "remediation", Content: "Proposed works: riparian buffer planting along the lower reach and replacement of the failing intake screens."},
		{EntityID: 2, Section: "overview", Content: "Birchwater Reservoir supplies drinking water to the northern district and supports regulated recreational use."},
		{EntityID: 2, Section: "inspection", Content: "Dam crest monitoring shows minor settlement within tolerance. Spillway gates serviced on schedule."},
		{EntityID: 3, Section: "overview", Content: "Cobalt Lake is a protected highland lake with outstanding ecological value and minimal abstraction pressure."},
		{EntityID: 4, Section: "overview", Content: "Dunmore Canal carries industrial discharge consents and heavy barge traffic through the coastal corridor."},
		{EntityID: 4, Section: "inspection", Content: "Bank erosion observed along the eastern towpath; dissolved oxygen dips below target during summer low flow."},
		{EntityID: 5, Section: "overview", Content: "Eastfen Marsh is a brackish wetland of high ecological value threatened by saline intrusion and nutrient loading."},
		{EntityID: 6, Section: "overview", Content: "Foss River supports abstraction for irrigation across the valley floor with moderate seasonal stress."},
	}

	for _, d := range docs {
		if _, err := s.db.Exec(
			"INSERT INTO documents (entity_id, section, content) VALUES (?, ?, ?)",
			d.EntityID, d.Section, d.Content,
		); err != nil {
			return err
		}
	}

	return nil
}

// FindWaterBodies returns records matching the filters, capped to cap rows.
func (s *SQLiteStore) FindWaterBodies(ctx context.Context, f domain.Filters, cap int) ([]domain.WaterBody, error) {
	query := `SELECT id, name, region, body_type, quality_index, ecological_value, usage_pressure, priority_score, priority_level, updated_at
		FROM water_bodies WHERE 1=1`
	var args []any

	if f.EntityID != 0 {
		query += " AND id = ?"
		args = append(args, f.EntityID)
	}
	if f.Region != "" {
		query += " AND region = ?"
		args = append(args, f.Region)
	}
	if f.BodyType != "" {
		query += " AND body_type = ?"
		args = append(args, f.BodyType)
	}
	if f.PriorityLevel != "" {
		query += " AND priority_level = ?"
		args = append(args, f.PriorityLevel)
	}

	if cap <= 0 {
		cap = 10
	}
	query += " ORDER BY priority_score DESC, id LIMIT ?"
	args = append(args, cap)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query water bodies: %w", err)
	}
	defer rows.Close()

	var out []domain.WaterBody
	for rows.Next() {
		var wb domain.WaterBody
		if err := rows.Scan(&wb.ID, &wb.Name, &wb.Region, &wb.BodyType, &wb.QualityIndex,
			&wb.EcologicalValue, &wb.UsagePressure, &wb.PriorityScore, &wb.PriorityLevel, &wb.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan water body: %w", err)
		}
		out = append(out, wb)
	}
	return out, rows.Err()
}

// GetWaterBody returns the record or nil when absent.
func (s *SQLiteStore) GetWaterBody(ctx context.Context, id int64) (*domain.WaterBody, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, region, body_type, quality_index, ecological_value, usage_pressure, priority_score, priority_level, updated_at
		 FROM water_bodies WHERE id = ?`, id)

	var wb domain.WaterBody
	err := row.Scan(&wb.ID, &wb.Name, &wb.Region, &wb.BodyType, &wb.QualityIndex,
		&wb.EcologicalValue, &wb.UsagePressure, &wb.PriorityScore, &wb.PriorityLevel, &wb.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get water body: %w", err)
	}
	return &wb, nil
}

// UpdatePriority stores a recalculated priority score and level.
func (s *SQLiteStore) UpdatePriority(ctx context.Context, id int64, score float64, level string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE water_bodies SET priority_score = ?, priority_level = ?, updated_at = ? WHERE id = ?",
		score, level, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update priority: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetDocument returns the section text or nil when absent.
func (s *SQLiteStore) GetDocument(ctx context.Context, entityID int64, section string) (*domain.DocumentSection, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT entity_id, section, content FROM documents WHERE entity_id = ? AND section = ?",
		entityID, section)

	var d domain.DocumentSection
	err := row.Scan(&d.EntityID, &d.Section, &d.Content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns all sections for one entity.
func (s *SQLiteStore) ListDocuments(ctx context.Context, entityID int64) ([]domain.DocumentSection, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT entity_id, section, content FROM documents WHERE entity_id = ? ORDER BY section", entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// AllDocuments returns every stored section. Used to build the passage index
// for semantic lookup.
func (s *SQLiteStore) AllDocuments(ctx context.Context) ([]domain.DocumentSection, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT entity_id, section, content FROM documents ORDER BY entity_id, section")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func scanDocuments(rows *sql.Rows) ([]domain.DocumentSection, error) {
	var out []domain.DocumentSection
	for rows.Next() {
		var d domain.DocumentSection
		if err := rows.Scan(&d.EntityID, &d.Section, &d.Content); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateEvent appends a turn event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, ev *domain.TurnEvent) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO turn_events (event_id, turn_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)",
		ev.EventID, ev.TurnID, ev.Ts, string(ev.Type), string(ev.Payload))
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetEvents returns events for a turn in timestamp order.
func (s *SQLiteStore) GetEvents(ctx context.Context, turnID string, limit int) ([]domain.TurnEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT event_id, turn_id, ts, type, payload FROM turn_events WHERE turn_id = ? ORDER BY ts LIMIT ?",
		turnID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var out []domain.TurnEvent
	for rows.Next() {
		var ev domain.TurnEvent
		var typ, payload string
		if err := rows.Scan(&ev.EventID, &ev.TurnID, &ev.Ts, &typ, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Type = domain.EventType(typ)
		if payload != "" {
			ev.Payload = []byte(payload)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
