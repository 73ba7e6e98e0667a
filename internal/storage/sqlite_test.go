package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"docforge/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SchemaRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	s := &schema.Schema{
		DocumentName: "Runbook",
		Sections: []schema.Section{{
			Title: "Operations",
			Subsections: []schema.Subsection{
				{Title: "Escalation", Order: 1},
				{Title: "Contacts", Type: schema.TypeTable, Columns: []string{"Name", "Phone"}, Order: 2},
			},
		}},
	}
	require.NoError(t, store.SaveSchema(ctx, "runbook", s))

	loaded, err := store.GetSchema(ctx, "runbook")
	require.NoError(t, err)
	assert.Equal(t, s, loaded)

	s.DocumentType = "Operations Runbook"
	require.NoError(t, store.SaveSchema(ctx, "runbook", s))
	loaded, err = store.GetSchema(ctx, "runbook")
	require.NoError(t, err)
	assert.Equal(t, "Operations Runbook", loaded.DocumentType)

	names, err := store.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"runbook"}, names)

	_, err = store.GetSchema(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_AnswersAndGapQuestions(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAnswers(ctx, "runbook", []schema.AnswerItem{
		{Question: "Who is on call?", Answer: schema.TextAnswer("Platform team"), Category: "Escalation"},
		{Question: "Regions?", Answer: schema.ListAnswer("eu-west-1", "us-east-1"), AnswerType: schema.AnswerMultiSelect},
		{
			Question:   "Contacts",
			AnswerType: schema.AnswerStructuredList,
			Rows:       []map[string]interface{}{{"Name": "Ana", "Phone": "555-0100"}},
		},
	}))

	// A pending question never overwrites a real answer.
	require.NoError(t, store.SaveGapQuestions(ctx, "runbook", []schema.AnswerItem{
		{Question: "Who is on call?", Category: "Escalation"},
		{Question: "What is the paging tool?", Category: "Escalation"},
	}))

	items, err := store.ListAnswers(ctx, "runbook")
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "Platform team", items[0].Answer.String())
	assert.Equal(t, []string{"eu-west-1", "us-east-1"}, items[1].Answer.List)
	assert.Equal(t, schema.AnswerMultiSelect, items[1].AnswerType)
	assert.Equal(t, "Ana", items[2].Rows[0]["Name"])
	assert.Equal(t, "What is the paging tool?", items[3].Question)
	assert.False(t, items[3].Answered())
	assert.Len(t, schema.FilterAnswered(items), 3)

	// Answering the gap question later replaces it in place.
	require.NoError(t, store.SaveAnswers(ctx, "runbook", []schema.AnswerItem{
		{Question: "What is the paging tool?", Answer: schema.TextAnswer("PagerDuty"), Category: "Escalation"},
	}))
	items, err = store.ListAnswers(ctx, "runbook")
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "PagerDuty", items[3].Answer.String())

	other, err := store.ListAnswers(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteStore_RunHistory(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	runs := []RunRecord{
		{ID: "r1", SchemaName: "runbook", Mode: "full", Status: "failed", RetryCount: 2,
			Document: "# Runbook", Issues: []string{"Missing required section: 'Contacts'"}, CreatedAt: base},
		{ID: "r2", SchemaName: "runbook", Mode: "full", Status: "passed",
			Document: "# Runbook\n## Escalation", Scores: map[string]int{"overall": 4}, CreatedAt: base.Add(time.Minute)},
		{ID: "r3", SchemaName: "charter", Mode: "progressive", Status: "passed", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range runs {
		require.NoError(t, store.SaveRun(ctx, r))
	}

	got, err := store.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, []string{"Missing required section: 'Contacts'"}, got.Issues)
	assert.True(t, base.Equal(got.CreatedAt))

	list, err := store.ListRuns(ctx, "runbook", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID)
	assert.Equal(t, map[string]int{"overall": 4}, list[0].Scores)

	all, err := store.ListRuns(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r3", all[0].ID)

	_, err = store.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
