package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/estscraper/estscraper/pkg/models"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		granularity TEXT NOT NULL,
		consumption REAL NOT NULL,
		production REAL,
		created_at TEXT NOT NULL,
		published INTEGER DEFAULT 0,
		UNIQUE(date, granularity)
	);
	CREATE INDEX IF NOT EXISTS idx_readings_date ON readings(date);
	CREATE INDEX IF NOT EXISTS idx_readings_published ON readings(published);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertReading inserts a reading, ignoring duplicates for the same
// date and granularity
func (db *DB) InsertReading(reading *models.Reading, granularity string) error {
	query := `
	INSERT OR IGNORE INTO readings (date, granularity, consumption, production, created_at)
	VALUES (?, ?, ?, ?, ?)
	`

	var production sql.NullFloat64
	if reading.Production != nil {
		production = sql.NullFloat64{Float64: *reading.Production, Valid: true}
	}
	createdAt := time.Now().UTC().Format(time.RFC3339)

	_, err := db.conn.Exec(query, reading.Date, granularity, reading.Consumption, production, createdAt)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}

	return nil
}

// ListReadings retrieves all readings for a granularity, newest first
func (db *DB) ListReadings(granularity string) ([]models.Reading, error) {
	query := `
	SELECT id, date, consumption, production
	FROM readings
	WHERE granularity = ?
	ORDER BY date DESC
	`

	return db.queryReadings(query, granularity)
}

// ListUnpublished retrieves readings not yet pushed to Home Assistant,
// newest first
func (db *DB) ListUnpublished(granularity string) ([]models.Reading, error) {
	query := `
	SELECT id, date, consumption, production
	FROM readings
	WHERE granularity = ? AND published = 0
	ORDER BY date DESC
	`

	return db.queryReadings(query, granularity)
}

func (db *DB) queryReadings(query string, args ...any) ([]models.Reading, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var results []models.Reading
	for rows.Next() {
		var reading models.Reading
		var production sql.NullFloat64

		if err := rows.Scan(&reading.ID, &reading.Date, &reading.Consumption, &production); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if production.Valid {
			value := production.Float64
			reading.Production = &value
		}

		results = append(results, reading)
	}

	return results, rows.Err()
}

// MarkPublished marks a reading as published
func (db *DB) MarkPublished(id int) error {
	query := `UPDATE readings SET published = 1 WHERE id = ?`
	if _, err := db.conn.Exec(query, id); err != nil {
		return fmt.Errorf("marking reading as published: %w", err)
	}
	return nil
}
