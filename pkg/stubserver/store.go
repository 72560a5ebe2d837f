package stubserver

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/verdantops/esgportal/pkg/models"
)

// reportLimit caps how many recent metrics each report category carries.
const reportLimit = 20

var (
	errFailedOpenDB   = errors.New("failed to open metrics database")
	errFailedToInit   = errors.New("failed to initialize metrics schema")
	errFailedToInsert = errors.New("failed to insert metric")
	errFailedToQuery  = errors.New("failed to query metrics")
)

// metricStore persists computed metrics per category.
type metricStore interface {
	Insert(category string, m models.Metric) error
	Report() (*models.MetricsReport, error)
	Clear() error
	Close() error
}

// memoryStore keeps metrics in process memory; the default when no
// db_path is configured.
type memoryStore struct {
	mu      sync.Mutex
	metrics map[string][]models.Metric
}

func newMemoryStore() *memoryStore {
	return &memoryStore{metrics: make(map[string][]models.Metric)}
}

func (s *memoryStore) Insert(category string, m models.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Newest first, bounded per category.
	s.metrics[category] = append([]models.Metric{m}, s.metrics[category]...)
	if len(s.metrics[category]) > reportLimit {
		s.metrics[category] = s.metrics[category][:reportLimit]
	}

	return nil
}

func (s *memoryStore) Report() (*models.MetricsReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &models.MetricsReport{
		Carbon:      append([]models.Metric{}, s.metrics["carbon"]...),
		Water:       append([]models.Metric{}, s.metrics["water"]...),
		Efficiency:  append([]models.Metric{}, s.metrics["efficiency"]...),
		Hardware:    append([]models.Metric{}, s.metrics["hardware"]...),
		DataQuality: append([]models.Metric{}, s.metrics["data_quality"]...),
		Mediation:   append([]models.Metric{}, s.metrics["mediation"]...),
	}

	return report, nil
}

func (s *memoryStore) Clear() error {
	s.mu.Lock()
	s.metrics = make(map[string][]models.Metric)
	s.mu.Unlock()

	return nil
}

func (s *memoryStore) Close() error { return nil }

const createMetricsTableSQL = `
	CREATE TABLE IF NOT EXISTS metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,
		metric_type TEXT NOT NULL,
		value REAL NOT NULL,
		unit TEXT NOT NULL,
		asset_id TEXT,
		region TEXT,
		timestamp_utc TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_category ON metrics(category, id);

	PRAGMA journal_mode=WAL;
`

// sqliteStore persists metrics across stub restarts.
type sqliteStore struct {
	db *sql.DB
}

func newSQLiteStore(dbPath string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedOpenDB, err)
	}

	if _, err := db.Exec(createMetricsTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", errFailedToInit, err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Insert(category string, m models.Metric) error {
	_, err := s.db.Exec(
		`INSERT INTO metrics (category, metric_type, value, unit, asset_id, region, timestamp_utc)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		category, m.MetricType, m.Value, m.Unit, m.AssetID, m.Region, m.TimestampUTC)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInsert, err)
	}

	return nil
}

func (s *sqliteStore) Report() (*models.MetricsReport, error) {
	report := &models.MetricsReport{
		Carbon:      []models.Metric{},
		Water:       []models.Metric{},
		Efficiency:  []models.Metric{},
		Hardware:    []models.Metric{},
		DataQuality: []models.Metric{},
		Mediation:   []models.Metric{},
	}

	targets := map[string]*[]models.Metric{
		"carbon":       &report.Carbon,
		"water":        &report.Water,
		"efficiency":   &report.Efficiency,
		"hardware":     &report.Hardware,
		"data_quality": &report.DataQuality,
		"mediation":    &report.Mediation,
	}

	for category, target := range targets {
		rows, err := s.db.Query(
			`SELECT metric_type, value, unit, asset_id, region, timestamp_utc
			 FROM metrics WHERE category = ? ORDER BY id DESC LIMIT ?`,
			category, reportLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToQuery, err)
		}

		for rows.Next() {
			var (
				m                       models.Metric
				assetID, region, tsUTC  sql.NullString
			)

			if err := rows.Scan(&m.MetricType, &m.Value, &m.Unit, &assetID, &region, &tsUTC); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("%w: %w", errFailedToQuery, err)
			}

			m.AssetID = assetID.String
			m.Region = region.String
			m.TimestampUTC = tsUTC.String

			*target = append(*target, m)
		}

		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: %w", errFailedToQuery, err)
		}

		_ = rows.Close()
	}

	return report, nil
}

func (s *sqliteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM metrics"); err != nil {
		return fmt.Errorf("%w: %w", errFailedToQuery, err)
	}

	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
