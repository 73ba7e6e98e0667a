package gap

import (
	"context"
	"errors"
	"testing"

	"docforge/internal/llm"
	"docforge/internal/llm/llmtest"
	"docforge/internal/prompt"
	"docforge/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *schema.Schema {
	return &schema.Schema{Sections: []schema.Section{{
		Title: "Plan",
		Subsections: []schema.Subsection{
			{Title: "Goals"}, {Title: "Risks"}, {Title: "Budget"},
		},
	}}}
}

func testAnswers() []schema.AnswerItem {
	return []schema.AnswerItem{
		{Question: "What are the goals?", Answer: schema.TextAnswer("Grow ARR"), Category: "Goals"},
	}
}

func TestAnalyze_ParsesFencedArray(t *testing.T) {
	reply := "Sure:\n```json\n[\n" +
		`{"question": "What are the key risks?", "category": "Risks", "answer_type": "text", "section_covered": "Risks"},` + "\n" +
		`{"question": "What is the budget?", "answer_type": "weird", "section_covered": "Budget"},` + "\n" +
		`{"question": "  ", "section_covered": "Goals"},` + "\n" +
		`{"question": "what are the goals", "section_covered": "Goals"}` + "\n" +
		"]\n```"
	model := llmtest.New().On(prompt.GapRole, llmtest.Text(reply))

	res, err := NewAnalyzer(model, nil).Analyze(context.Background(), testSchema(), testAnswers(), prompt.Context{})
	require.NoError(t, err)
	require.Len(t, res.Questions, 2)

	assert.Equal(t, Question{Question: "What are the key risks?", Category: "Risks", AnswerType: "text", SectionCovered: "Risks"}, res.Questions[0])
	assert.Equal(t, "Budget", res.Questions[1].Category)
	assert.Equal(t, "text", res.Questions[1].AnswerType)

	assert.Contains(t, res.Supplementary, "- Risks: answer pending (What are the key risks?)")
	assert.Contains(t, res.Supplementary, "- Budget: answer pending")
}

func TestAnalyze_EmptyArrayMeansAllCovered(t *testing.T) {
	model := llmtest.New().On(prompt.GapRole, llmtest.Text("[]"))
	res, err := NewAnalyzer(model, nil).Analyze(context.Background(), testSchema(), testAnswers(), prompt.Context{})
	require.NoError(t, err)
	assert.Empty(t, res.Questions)
	assert.Equal(t, prompt.AllCovered, res.Supplementary)
}

func TestAnalyze_FailuresAreAdvisory(t *testing.T) {
	cases := map[string]llmtest.Reply{
		"transport error": llmtest.Fail(errors.New("connection reset")),
		"no json":         llmtest.Text("I could not find any gaps."),
		"broken json":     llmtest.Text(`[{"question": }]`),
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			model := llmtest.New().On(prompt.GapRole, reply)
			res, err := NewAnalyzer(model, nil).Analyze(context.Background(), testSchema(), nil, prompt.Context{})
			require.Error(t, err)
			assert.Empty(t, res.Questions)
			assert.Empty(t, res.Supplementary)
		})
	}
}

func TestAnalyze_NoJSONIsDistinguishable(t *testing.T) {
	model := llmtest.New().On(prompt.GapRole, llmtest.Text("nothing"))
	_, err := NewAnalyzer(model, nil).Analyze(context.Background(), testSchema(), nil, prompt.Context{})
	assert.ErrorIs(t, err, llm.ErrNoJSON)
}

func TestAsAnswerItems(t *testing.T) {
	items := AsAnswerItems([]Question{{Question: "Q?", Category: "C", AnswerType: "select"}})
	require.Len(t, items, 1)
	assert.False(t, items[0].Answered())
	assert.Equal(t, schema.AnswerSelect, items[0].AnswerType)
}
