package storage

import (
	"context"
	"errors"
	"time"

	"docforge/internal/schema"
)

var ErrNotFound = errors.New("not found")

// Store combines schema, answer and run history persistence.
type Store interface {
	SchemaStore
	AnswerStore
	RunStore
	Close() error
}

// SchemaStore keeps document schemas by name.
type SchemaStore interface {
	// SaveSchema upserts a schema under name.
	SaveSchema(ctx context.Context, name string, s *schema.Schema) error

	// GetSchema returns ErrNotFound when no schema has that name.
	GetSchema(ctx context.Context, name string) (*schema.Schema, error)

	ListSchemas(ctx context.Context) ([]string, error)
}

// AnswerStore keeps the question/answer pairs collected for a schema.
type AnswerStore interface {
	// SaveAnswers upserts answers by question text; a real answer replaces
	// a pending gap question with the same text.
	SaveAnswers(ctx context.Context, schemaName string, items []schema.AnswerItem) error

	// SaveGapQuestions records unanswered follow-up questions. Questions
	// that already exist are left untouched.
	SaveGapQuestions(ctx context.Context, schemaName string, items []schema.AnswerItem) error

	// ListAnswers returns every stored item in insertion order, pending
	// questions included.
	ListAnswers(ctx context.Context, schemaName string) ([]schema.AnswerItem, error)
}

// RunStore keeps the history of generation runs.
type RunStore interface {
	SaveRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns the newest runs first. An empty schemaName lists all.
	ListRuns(ctx context.Context, schemaName string, limit int) ([]RunRecord, error)
}

// RunRecord is one persisted generation run.
type RunRecord struct {
	ID          string         `json:"id"`
	SchemaName  string         `json:"schema_name"`
	Mode        string         `json:"mode"`
	Status      string         `json:"status"`
	RetryCount  int            `json:"retry_count"`
	Document    string         `json:"document_text"`
	Issues      []string       `json:"quality_issues"`
	Scores      map[string]int `json:"quality_scores"`
	Suggestions []string       `json:"quality_suggestions"`
	CreatedAt   time.Time      `json:"created_at"`
}
