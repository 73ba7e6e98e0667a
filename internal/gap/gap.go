package gap

import (
	"context"
	"fmt"
	"strings"

	"docforge/internal/llm"
	"docforge/internal/logger"
	"docforge/internal/prompt"
	"docforge/internal/schema"
)

// Question is a follow-up question for a schema section the answers do not cover.
type Question struct {
	Question       string `json:"question"`
	Category       string `json:"category"`
	AnswerType     string `json:"answer_type"`
	SectionCovered string `json:"section_covered"`
}

// Result is the outcome of one coverage analysis.
type Result struct {
	Questions     []Question
	Supplementary string
}

// Analyzer asks the model which schema sections lack answers.
type Analyzer struct {
	model llm.Model
	log   *logger.Logger
}

func NewAnalyzer(model llm.Model, log *logger.Logger) *Analyzer {
	return &Analyzer{model: model, log: logger.OrNop(log)}
}

// Analyze never blocks generation: on any failure it logs, returns an
// empty Result and hands the error back for reporting only.
func (a *Analyzer) Analyze(ctx context.Context, s *schema.Schema, answers []schema.AnswerItem, c prompt.Context) (Result, error) {
	system, user := prompt.Gap(s, answers, c)
	raw, err := a.model.Invoke(ctx, system, user)
	if err != nil {
		a.log.Warn("gap analysis call failed", "error", err)
		return Result{}, fmt.Errorf("gap analysis: %w", err)
	}

	var parsed []Question
	if err := llm.DecodeJSONArray(raw, &parsed); err != nil {
		a.log.Warn("gap analysis output unusable", "error", err)
		return Result{}, fmt.Errorf("gap analysis: %w", err)
	}

	questions := clean(parsed, answers)
	a.log.Info("gap analysis complete", "questions", len(questions))
	return Result{Questions: questions, Supplementary: Supplementary(questions)}, nil
}

// Supplementary renders a short note listing, per uncovered section,
// that an answer is still pending.
func Supplementary(questions []Question) string {
	if len(questions) == 0 {
		return prompt.AllCovered
	}
	var sb strings.Builder
	sb.WriteString("The following sections have no adequate answer yet; write them from context and industry practice:\n")
	seen := map[string]bool{}
	for _, q := range questions {
		section := strings.TrimSpace(q.SectionCovered)
		if section == "" || seen[strings.ToLower(section)] {
			continue
		}
		seen[strings.ToLower(section)] = true
		fmt.Fprintf(&sb, "- %s: answer pending (%s)\n", section, q.Question)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// clean drops empty entries and questions the user has already answered,
// and fills in defaults the model left out.
func clean(parsed []Question, answers []schema.AnswerItem) []Question {
	answered := map[string]bool{}
	for _, it := range schema.FilterAnswered(answers) {
		answered[normalizeQuestion(it.Question)] = true
	}

	out := make([]Question, 0, len(parsed))
	for _, q := range parsed {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" || answered[normalizeQuestion(q.Question)] {
			continue
		}
		q.SectionCovered = strings.TrimSpace(q.SectionCovered)
		q.Category = strings.TrimSpace(q.Category)
		if q.Category == "" {
			q.Category = q.SectionCovered
		}
		switch schema.AnswerType(strings.TrimSpace(q.AnswerType)) {
		case schema.AnswerText, schema.AnswerSelect, schema.AnswerMultiSelect, schema.AnswerStructuredList:
			q.AnswerType = strings.TrimSpace(q.AnswerType)
		default:
			q.AnswerType = string(schema.AnswerText)
		}
		out = append(out, q)
	}
	return out
}

func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimRight(strings.TrimSpace(q), "?"))), " ")
}

// AsAnswerItems turns gap questions into unanswered items so they can be
// stored next to the user's answers and filled in later.
func AsAnswerItems(questions []Question) []schema.AnswerItem {
	out := make([]schema.AnswerItem, 0, len(questions))
	for _, q := range questions {
		out = append(out, schema.AnswerItem{
			Question:   q.Question,
			Category:   q.Category,
			AnswerType: schema.AnswerType(q.AnswerType),
		})
	}
	return out
}
