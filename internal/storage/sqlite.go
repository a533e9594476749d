// Package storage persists dashboard request analytics in SQLite. Every
// served request is recorded with its section, ticker set and outcome so
// usage can be summarized and charted later.
package storage

import (
	"database/sql"
	"strings"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Close() error
}

type Store struct{ db DB }

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS requests(
		id TEXT PRIMARY KEY,
		section TEXT,
		sector TEXT,
		tickers TEXT,
		status INTEGER,
		duration_ms INTEGER,
		ts INTEGER
	)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

// RequestRecord is one served dashboard request.
type RequestRecord struct {
	ID       string
	Section  string
	Sector   string
	Tickers  []string
	Status   int
	Duration time.Duration
	At       time.Time
}

func (s *Store) RecordRequest(r RequestRecord) error {
	_, err := s.db.Exec(`INSERT INTO requests(id,section,sector,tickers,status,duration_ms,ts) VALUES(?,?,?,?,?,?,?)`,
		r.ID, r.Section, r.Sector, strings.Join(r.Tickers, ","), r.Status,
		r.Duration.Milliseconds(), r.At.Unix())
	return err
}

// SectionStats aggregates request counts per dashboard section.
type SectionStats struct {
	Section   string  `json:"section"`
	Count     int     `json:"count"`
	Errors    int     `json:"errors"`
	AvgMillis float64 `json:"avg_ms"`
}

// UsageBySection summarizes requests since the cutoff, busiest first.
func (s *Store) UsageBySection(since time.Time) ([]SectionStats, error) {
	rows, err := s.db.Query(`SELECT section,
		COUNT(*),
		SUM(CASE WHEN status >= 400 THEN 1 ELSE 0 END),
		AVG(duration_ms)
		FROM requests WHERE ts >= ?
		GROUP BY section ORDER BY COUNT(*) DESC`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SectionStats
	for rows.Next() {
		var st SectionStats
		if err := rows.Scan(&st.Section, &st.Count, &st.Errors, &st.AvgMillis); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// TimeSeriesPoint is a per-day request count for one section.
type TimeSeriesPoint struct {
	Day   time.Time
	Count int
}

// UsageTimeSeries buckets requests per section per UTC day since the
// cutoff.
func (s *Store) UsageTimeSeries(since time.Time) (map[string][]TimeSeriesPoint, error) {
	rows, err := s.db.Query(`SELECT section, (ts/86400)*86400 AS day, COUNT(*)
		FROM requests WHERE ts >= ?
		GROUP BY section, day ORDER BY day ASC`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string][]TimeSeriesPoint{}
	for rows.Next() {
		var section string
		var day int64
		var count int
		if err := rows.Scan(&section, &day, &count); err != nil {
			return nil, err
		}
		out[section] = append(out[section], TimeSeriesPoint{Day: time.Unix(day, 0).UTC(), Count: count})
	}
	return out, rows.Err()
}
