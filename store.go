package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Timestamps are stored as UTC RFC3339 text so string comparison orders them.
const timeLayout = time.RFC3339

type VisitorMetric struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// AIRequestLog is one completion call as seen by the proxy. Prompts and
// replies are not kept.
type AIRequestLog struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	HashedIP  string    `json:"hashed_ip"`
	Endpoint  string    `json:"endpoint"`
	Project   string    `json:"project"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

type ProjectStat struct {
	Project  string `json:"project"`
	Requests int64  `json:"requests"`
}

type AdminStats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
	TotalAIRequests  int64           `json:"total_ai_requests"`
	FailedAIRequests int64           `json:"failed_ai_requests"`
	AIRequestsToday  int64           `json:"ai_requests_today"`
	TopProjects      []ProjectStat   `json:"top_projects"`
	RecentVisitors   []VisitorMetric `json:"recent_visitors"`
	RecentAIRequests []AIRequestLog  `json:"recent_ai_requests"`
}

const (
	statusOK    = "ok"
	statusError = "error"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func openStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS visitors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hashed_ip TEXT NOT NULL,
			user_agent TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS visitors_timestamp ON visitors (timestamp)`,
		`CREATE TABLE IF NOT EXISTS ai_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			hashed_ip TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			project TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			latency_ms INTEGER NOT NULL DEFAULT 0,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ai_requests_timestamp ON ai_requests (timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) RecordVisit(ctx context.Context, hashedIP, userAgent, path string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO visitors (hashed_ip, user_agent, path, timestamp) VALUES (?, ?, ?, ?)",
		hashedIP, userAgent, path, s.stamp(),
	)
	return err
}

func (s *Store) RecordAIRequest(ctx context.Context, entry AIRequestLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_requests (request_id, hashed_ip, endpoint, project, status, error, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.HashedIP, entry.Endpoint, entry.Project,
		entry.Status, entry.Error, entry.LatencyMS, s.stamp(),
	)
	return err
}

// CleanupVisitors deletes visitor rows older than retention.
func (s *Store) CleanupVisitors(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, "DELETE FROM visitors WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Stats(ctx context.Context) (*AdminStats, error) {
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Format(timeLayout)
	weekAgo := now.Add(-7 * 24 * time.Hour).Format(timeLayout)

	stats := &AdminStats{}
	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, "SELECT COUNT(*) FROM visitors", nil},
		{&stats.UniqueVisitors, "SELECT COUNT(DISTINCT hashed_ip) FROM visitors", nil},
		{&stats.VisitorsToday, "SELECT COUNT(*) FROM visitors WHERE timestamp >= ?", []any{startOfDay}},
		{&stats.VisitorsThisWeek, "SELECT COUNT(*) FROM visitors WHERE timestamp >= ?", []any{weekAgo}},
		{&stats.TotalAIRequests, "SELECT COUNT(*) FROM ai_requests", nil},
		{&stats.FailedAIRequests, "SELECT COUNT(*) FROM ai_requests WHERE status = ?", []any{statusError}},
		{&stats.AIRequestsToday, "SELECT COUNT(*) FROM ai_requests WHERE timestamp >= ?", []any{startOfDay}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT project, COUNT(*) AS n
		FROM ai_requests
		WHERE project != ''
		GROUP BY project
		ORDER BY n DESC, project
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ps ProjectStat
		if err := rows.Scan(&ps.Project, &ps.Requests); err != nil {
			return nil, err
		}
		stats.TopProjects = append(stats.TopProjects, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	if stats.RecentAIRequests, err = s.RecentAIRequests(ctx, 50); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, user_agent, path, timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visitors := []VisitorMetric{}
	for rows.Next() {
		var v VisitorMetric
		var ts string
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, err
		}
		v.Timestamp = parseStamp(ts)
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

func (s *Store) RecentAIRequests(ctx context.Context, limit int) ([]AIRequestLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, hashed_ip, endpoint, project, status, error, latency_ms, timestamp
		FROM ai_requests
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []AIRequestLog{}
	for rows.Next() {
		var e AIRequestLog
		var ts string
		if err := rows.Scan(&e.ID, &e.RequestID, &e.HashedIP, &e.Endpoint, &e.Project,
			&e.Status, &e.Error, &e.LatencyMS, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = parseStamp(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseStamp(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
