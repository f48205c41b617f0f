// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists items, pipeline runs, step logs, and settings
// in SQLite. It is the durable record behind the run coordinator.
// See docs/ARCHITECTURE § Run State Store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/digest-engine/pkg/types"
)

// Store manages the pipeline state SQLite database. All writes use
// upsert semantics (INSERT OR REPLACE) so a crashed-and-restarted write
// is idempotent.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at cfg.Path and creates the schema
// if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = "digest.db"
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			type TEXT NOT NULL CHECK(type IN ('ARTICLE', 'TOPIC_SEED', 'CONTEXT_NOTE')),
			raw_content TEXT NOT NULL,
			source_url TEXT,
			extracted_text TEXT,
			summary TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			language TEXT NOT NULL DEFAULT 'en',
			week_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'COLLECTED'
				CHECK(status IN ('COLLECTED', 'CLUSTERED', 'PUBLISHED'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_week_id ON items(week_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_status ON items(status)`,
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			id TEXT PRIMARY KEY,
			week_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL DEFAULT 'RUNNING'
				CHECK(status IN ('RUNNING', 'COMPLETED', 'FAILED')),
			total_input_tokens INTEGER DEFAULT 0,
			total_output_tokens INTEGER DEFAULT 0,
			estimated_cost_usd REAL DEFAULT 0.0
		)`,
		`CREATE TABLE IF NOT EXISTS step_logs (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES pipeline_runs(id),
			agent TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL,
			input_tokens INTEGER DEFAULT 0,
			output_tokens INTEGER DEFAULT 0,
			model TEXT NOT NULL,
			details TEXT DEFAULT '',
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_step_logs_run_id ON step_logs(run_id)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// --- time encoding ---

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return encodeTime(t)
}

// --- items ---

// SaveItem inserts or replaces an item.
func (s *Store) SaveItem(ctx context.Context, item types.Item) error {
	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO items
		 (id, created_at, type, raw_content, source_url, extracted_text,
		  summary, tags, language, week_id, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, encodeTime(item.CreatedAt), string(item.Type), item.RawContent,
		item.SourceURL, item.ExtractedText, item.Summary, string(tagsJSON),
		item.Language, item.WeekID, string(item.Status),
	)
	if err != nil {
		return fmt.Errorf("saving item %s: %w", item.ID, err)
	}
	return nil
}

// ItemsByWeek returns the week's items ordered by creation time.
// Status filters the result when non-empty.
func (s *Store) ItemsByWeek(ctx context.Context, weekID string, status types.ItemStatus) ([]types.Item, error) {
	query := `SELECT id, created_at, type, raw_content, source_url, extracted_text,
	                 summary, tags, language, week_id, status
	          FROM items WHERE week_id = ?`
	args := []any{weekID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items for %s: %w", weekID, err)
	}
	defer rows.Close()

	var items []types.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// FindItemByPrefix returns the first item whose ID starts with prefix,
// or nil if none matches. Used by the user-facing delete surface, which
// shows 8-character short IDs.
func (s *Store) FindItemByPrefix(ctx context.Context, prefix string) (*types.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, type, raw_content, source_url, extracted_text,
		        summary, tags, language, week_id, status
		 FROM items WHERE id LIKE ? LIMIT 1`, prefix+"%")
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes an item by exact ID. Returns false when no row
// was deleted.
func (s *Store) DeleteItem(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateItemsStatus sets the status of all given items in one statement.
func (s *Store) UpdateItemsStatus(ctx context.Context, ids []string, status types.ItemStatus) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(status))
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE items SET status = ? WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return fmt.Errorf("updating item status: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (types.Item, error) {
	var (
		item                           types.Item
		createdAt, itemType, status    string
		sourceURL, extractedText, tags sql.NullString
	)
	err := row.Scan(&item.ID, &createdAt, &itemType, &item.RawContent,
		&sourceURL, &extractedText, &item.Summary, &tags,
		&item.Language, &item.WeekID, &status)
	if err != nil {
		return types.Item{}, err
	}
	item.CreatedAt = decodeTime(createdAt)
	item.Type = types.ItemType(itemType)
	item.Status = types.ItemStatus(status)
	item.SourceURL = sourceURL.String
	item.ExtractedText = extractedText.String
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &item.Tags); err != nil {
			return types.Item{}, fmt.Errorf("decoding tags for %s: %w", item.ID, err)
		}
	}
	return item, nil
}

// --- pipeline runs ---

// SaveRun inserts or replaces a pipeline run record.
func (s *Store) SaveRun(ctx context.Context, run types.PipelineRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pipeline_runs
		 (id, week_id, started_at, finished_at, status,
		  total_input_tokens, total_output_tokens, estimated_cost_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.WeekID, encodeTime(run.StartedAt), encodeNullableTime(run.FinishedAt),
		string(run.Status), run.TotalInputTokens, run.TotalOutputTokens, run.EstimatedCostUSD,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun moves a run to a terminal status, stamps finished_at, and
// records the aggregated totals.
func (s *Store) FinishRun(ctx context.Context, runID string, status types.RunStatus, inputTokens, outputTokens int, costUSD float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_runs
		 SET finished_at = ?, status = ?,
		     total_input_tokens = ?, total_output_tokens = ?, estimated_cost_usd = ?
		 WHERE id = ?`,
		encodeTime(time.Now()), string(status), inputTokens, outputTokens, costUSD, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	return nil
}

// LastRun returns the most recently started run together with its
// StepLogs ordered by start time, or nil when there are no runs.
// A non-empty weekID restricts the lookup to that week.
func (s *Store) LastRun(ctx context.Context, weekID string) (*types.PipelineRun, error) {
	query := `SELECT id, week_id, started_at, finished_at, status,
	                 total_input_tokens, total_output_tokens, estimated_cost_usd
	          FROM pipeline_runs`
	var args []any
	if weekID != "" {
		query += " WHERE week_id = ?"
		args = append(args, weekID)
	}
	query += " ORDER BY started_at DESC LIMIT 1"

	var (
		run               types.PipelineRun
		startedAt, status string
		finishedAt        sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&run.ID, &run.WeekID, &startedAt, &finishedAt, &status,
		&run.TotalInputTokens, &run.TotalOutputTokens, &run.EstimatedCostUSD,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last run: %w", err)
	}
	run.StartedAt = decodeTime(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = decodeTime(finishedAt.String)
	}
	run.Status = types.RunStatus(status)

	steps, err := s.StepsForRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Steps = steps
	return &run, nil
}

// --- step logs ---

// SaveStepLog inserts or replaces a step log record.
func (s *Store) SaveStepLog(ctx context.Context, step types.StepLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO step_logs
		 (id, run_id, agent, started_at, finished_at, status,
		  input_tokens, output_tokens, model, details, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID, step.RunID, step.Agent, encodeTime(step.StartedAt),
		encodeNullableTime(step.FinishedAt), step.Status,
		step.InputTokens, step.OutputTokens, step.Model, step.Details,
		nullable(step.Error),
	)
	if err != nil {
		return fmt.Errorf("saving step log %s: %w", step.ID, err)
	}
	return nil
}

// StepsForRun returns the run's step logs ordered by start time.
func (s *Store) StepsForRun(ctx context.Context, runID string) ([]types.StepLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, agent, started_at, finished_at, status,
		        input_tokens, output_tokens, model, details, error
		 FROM step_logs WHERE run_id = ? ORDER BY started_at ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying steps for run %s: %w", runID, err)
	}
	defer rows.Close()

	var steps []types.StepLog
	for rows.Next() {
		var (
			step                  types.StepLog
			startedAt             string
			finishedAt, errorText sql.NullString
			details               sql.NullString
		)
		if err := rows.Scan(&step.ID, &step.RunID, &step.Agent, &startedAt,
			&finishedAt, &step.Status, &step.InputTokens, &step.OutputTokens,
			&step.Model, &details, &errorText); err != nil {
			return nil, err
		}
		step.StartedAt = decodeTime(startedAt)
		if finishedAt.Valid {
			step.FinishedAt = decodeTime(finishedAt.String)
		}
		step.Details = details.String
		step.Error = errorText.String
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// --- settings ---

// Setting returns the value for key, or fallback when the key is unset.
func (s *Store) Setting(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a key/value pair.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
