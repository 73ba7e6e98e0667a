package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docforge/internal/schema"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout has a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}
	// sqlite allows a single writer; batch runs share this handle.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS schemas (
			name TEXT PRIMARY KEY,
			data JSON NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS answers (
			schema_name TEXT NOT NULL,
			question TEXT NOT NULL,
			answer JSON,
			category TEXT,
			answer_type TEXT,
			table_rows JSON,
			is_gap INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (schema_name, question)
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			schema_name TEXT,
			mode TEXT,
			status TEXT,
			retry_count INTEGER,
			document TEXT,
			issues JSON,
			scores JSON,
			suggestions JSON,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_schema ON runs(schema_name, created_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- SchemaStore Implementation ---

func (s *SQLiteStore) SaveSchema(ctx context.Context, name string, sc *schema.Schema) error {
	data, err := sc.Marshal()
	if err != nil {
		return fmt.Errorf("encode schema %q: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schemas (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at
	`, name, data, time.Now().UTC().Format(timeLayout))
	return err
}

func (s *SQLiteStore) GetSchema(ctx context.Context, name string) (*schema.Schema, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM schemas WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schema %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return schema.Parse(data, schema.FormatJSON)
}

func (s *SQLiteStore) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM schemas ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// --- AnswerStore Implementation ---

func (s *SQLiteStore) SaveAnswers(ctx context.Context, schemaName string, items []schema.AnswerItem) error {
	return s.upsertAnswers(ctx, schemaName, items, false, `
		INSERT INTO answers (schema_name, question, answer, category, answer_type, table_rows, is_gap)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(schema_name, question) DO UPDATE SET
			answer=excluded.answer,
			category=excluded.category,
			answer_type=excluded.answer_type,
			table_rows=excluded.table_rows,
			is_gap=excluded.is_gap
	`)
}

func (s *SQLiteStore) SaveGapQuestions(ctx context.Context, schemaName string, items []schema.AnswerItem) error {
	return s.upsertAnswers(ctx, schemaName, items, true, `
		INSERT INTO answers (schema_name, question, answer, category, answer_type, table_rows, is_gap)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(schema_name, question) DO NOTHING
	`)
}

func (s *SQLiteStore) upsertAnswers(ctx context.Context, schemaName string, items []schema.AnswerItem, gap bool, query string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		if it.Question == "" {
			continue
		}
		answer, err := json.Marshal(it.Answer)
		if err != nil {
			return fmt.Errorf("encode answer %q: %w", it.Question, err)
		}
		var rows []byte
		if len(it.Rows) > 0 {
			if rows, err = json.Marshal(it.Rows); err != nil {
				return fmt.Errorf("encode rows %q: %w", it.Question, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, schemaName, it.Question, answer, it.Category, string(it.AnswerType), rows, gap); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListAnswers(ctx context.Context, schemaName string) ([]schema.AnswerItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question, answer, category, answer_type, table_rows
		FROM answers WHERE schema_name = ? ORDER BY rowid
	`, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []schema.AnswerItem
	for rows.Next() {
		var (
			it                   schema.AnswerItem
			answer, tableRows    []byte
			category, answerType sql.NullString
		)
		if err := rows.Scan(&it.Question, &answer, &category, &answerType, &tableRows); err != nil {
			return nil, err
		}
		if len(answer) > 0 {
			if err := json.Unmarshal(answer, &it.Answer); err != nil {
				return nil, fmt.Errorf("decode answer %q: %w", it.Question, err)
			}
		}
		if len(tableRows) > 0 {
			if err := json.Unmarshal(tableRows, &it.Rows); err != nil {
				return nil, fmt.Errorf("decode rows %q: %w", it.Question, err)
			}
		}
		it.Category = category.String
		it.AnswerType = schema.AnswerType(answerType.String)
		items = append(items, it)
	}
	return items, rows.Err()
}

// --- RunStore Implementation ---

func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord) error {
	issues, _ := json.Marshal(run.Issues)
	scores, _ := json.Marshal(run.Scores)
	suggestions, _ := json.Marshal(run.Suggestions)
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, schema_name, mode, status, retry_count, document, issues, scores, suggestions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			retry_count=excluded.retry_count,
			document=excluded.document,
			issues=excluded.issues,
			scores=excluded.scores,
			suggestions=excluded.suggestions
	`, run.ID, run.SchemaName, run.Mode, run.Status, run.RetryCount, run.Document, issues, scores, suggestions,
		run.CreatedAt.UTC().Format(timeLayout))
	return err
}

const runColumns = "id, schema_name, mode, status, retry_count, document, issues, scores, suggestions, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var (
		r                           RunRecord
		issues, scores, suggestions []byte
		createdAt                   string
	)
	if err := row.Scan(&r.ID, &r.SchemaName, &r.Mode, &r.Status, &r.RetryCount, &r.Document, &issues, &scores, &suggestions, &createdAt); err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		_ = json.Unmarshal(issues, &r.Issues)
	}
	if len(scores) > 0 {
		_ = json.Unmarshal(scores, &r.Scores)
	}
	if len(suggestions) > 0 {
		_ = json.Unmarshal(suggestions, &r.Suggestions)
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", r.ID, createdAt, err)
	}
	r.CreatedAt = t
	return &r, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, schemaName string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := "SELECT " + runColumns + " FROM runs"
	args := []any{}
	if schemaName != "" {
		query += " WHERE schema_name = ?"
		args = append(args, schemaName)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}
