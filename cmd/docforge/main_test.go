package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"docforge/internal/llm/llmtest"
	"docforge/internal/logger"
	"docforge/internal/pipeline"
	"docforge/internal/prompt"
	"docforge/internal/schema"
	"docforge/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifest_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "batch.yaml", `
out_dir: out
jobs:
  - name: Change Log
    schema: schemas/changelog.yaml
  - schema: /abs/charter.json
    answers: answers/charter.yaml
    out: docs/charter.md
    progressive: true
`)
	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Jobs, 2)

	assert.Equal(t, filepath.Join(dir, "schemas/changelog.yaml"), m.Jobs[0].Schema)
	assert.Equal(t, filepath.Join(dir, "out", "change-log.md"), m.Jobs[0].Out)
	assert.Equal(t, "/abs/charter.json", m.Jobs[1].Schema)
	assert.Equal(t, filepath.Join(dir, "answers/charter.yaml"), m.Jobs[1].Answers)
	assert.Equal(t, filepath.Join(dir, "docs/charter.md"), m.Jobs[1].Out)
	assert.True(t, m.Jobs[1].Progressive)
}

func TestLoadManifest_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadManifest(writeFile(t, dir, "empty.yaml", "jobs: []\n"))
	assert.ErrorContains(t, err, "no jobs")

	_, err = LoadManifest(writeFile(t, dir, "noschema.yaml", "jobs:\n  - name: x\n"))
	assert.ErrorContains(t, err, "schema is required")
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "explicit", schemaName(" explicit ", &schema.Schema{DocumentName: "Other"}))
	assert.Equal(t, "project-charter", schemaName("", &schema.Schema{DocumentName: "Project  Charter"}))
	assert.Equal(t, "data-table", schemaName("", &schema.Schema{}))
}

func TestMergeAnswers_OverlaysByQuestion(t *testing.T) {
	base := []schema.AnswerItem{
		{Question: "A", Answer: schema.TextAnswer("old")},
		{Question: "B"},
	}
	merged := mergeAnswers(base, []schema.AnswerItem{
		{Question: "B", Answer: schema.TextAnswer("filled")},
		{Question: "C", Answer: schema.TextAnswer("new")},
	})
	require.Len(t, merged, 3)
	assert.Equal(t, "old", merged[0].Answer.String())
	assert.Equal(t, "filled", merged[1].Answer.String())
	assert.Equal(t, "C", merged[2].Question)
	assert.Equal(t, "", base[1].Answer.String(), "base is not modified")
}

func TestInputLoad_UsesStoredSchemaAndAnswers(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	s := &schema.Schema{DocumentName: "Charter", Sections: []schema.Section{{Title: "Goals"}}}
	require.NoError(t, store.SaveSchema(ctx, "charter", s))
	require.NoError(t, store.SaveAnswers(ctx, "charter", []schema.AnswerItem{{Question: "Goal?", Answer: schema.TextAnswer("Ship")}}))
	require.NoError(t, store.SaveGapQuestions(ctx, "charter", []schema.AnswerItem{{Question: "Budget?"}}))

	in := input{name: "charter"}
	got, name, answers, err := in.load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "charter", name)
	assert.Equal(t, "Charter", got.DocumentName)
	require.Len(t, answers, 1, "pending gap questions are not sent to the model")
	assert.Equal(t, "Goal?", answers[0].Question)

	_, _, _, err = (&input{}).load(ctx, store)
	assert.Error(t, err)
}

func TestRunBatch_WritesEveryDocument(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "batch.db"))
	require.NoError(t, err)
	defer store.Close()

	schemaPath := writeFile(t, dir, "log.yaml", `
document_name: Change Log
sections:
  - type: table
    columns: [ID, Status]
`)
	table := "# Change Log\n| ID | Status |\n|---|---|\n| CR-1 | Open |"
	model := llmtest.New().
		On(prompt.GapRole, llmtest.Text("[]")).
		On(prompt.TableRole, llmtest.Text(table))

	a := &app{
		log:      logger.Nop(),
		store:    store,
		pipeline: pipeline.New(model),
	}
	jobs := []Job{
		{Name: "one", Schema: schemaPath, Out: filepath.Join(dir, "out", "one.md")},
		{Name: "two", Schema: schemaPath, Out: filepath.Join(dir, "out", "two.md")},
	}
	results, err := a.runBatch(context.Background(), jobs, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, j := range jobs {
		data, err := os.ReadFile(j.Out)
		require.NoError(t, err)
		assert.Contains(t, string(data), "| CR-1 | Open |")
	}
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, pipeline.StatusPassed, res.Status)
	}

	runs, err := store.ListRuns(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
