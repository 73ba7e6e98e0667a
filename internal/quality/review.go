package quality

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"docforge/internal/llm"
	"docforge/internal/prompt"
	"docforge/internal/schema"
)

var errEmptyReview = errors.New("review carried no scores")

type reviewResponse struct {
	Scores       map[string]float64 `json:"scores"`
	OverallScore *float64           `json:"overall_score"`
	Passed       *bool              `json:"passed"`
	Issues       []string           `json:"issues"`
	Suggestions  []string           `json:"suggestions"`
}

// review asks the model to score the document. Any error means the
// caller should fall back to rule checks.
func (g *Gate) review(ctx context.Context, doc string, s *schema.Schema, c prompt.Context) (Verdict, error) {
	system, user := prompt.Review(doc, s, c)
	raw, err := g.model.Invoke(ctx, system, user)
	if err != nil {
		return Verdict{}, fmt.Errorf("review call: %w", err)
	}
	var resp reviewResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		return Verdict{}, err
	}
	return g.verdictFromReview(resp, doc)
}

func (g *Gate) verdictFromReview(resp reviewResponse, doc string) (Verdict, error) {
	scores := make(map[string]int, len(resp.Scores)+1)
	total := 0.0
	for _, name := range prompt.ReviewCriteria {
		v, ok := resp.Scores[name]
		if !ok {
			continue
		}
		scores[name] = clampScore(v)
		total += float64(scores[name])
	}
	if len(scores) == 0 && resp.OverallScore == nil {
		return Verdict{}, errEmptyReview
	}

	var overall float64
	if resp.OverallScore != nil {
		overall = *resp.OverallScore
	} else {
		overall = total / float64(len(scores))
	}
	scores["overall"] = clampScore(overall)

	passed := overall >= g.thresholds.MinReviewScore
	if resp.Passed != nil {
		passed = *resp.Passed
	}

	issues := nonEmpty(resp.Issues)
	if !passed && len(issues) == 0 {
		issues = []string{fmt.Sprintf("Quality review score %.1f is below the required %.1f", overall, g.thresholds.MinReviewScore)}
	}
	return Verdict{
		Passed:      passed,
		Scores:      scores,
		Issues:      issues,
		Suggestions: nonEmpty(resp.Suggestions),
		Document:    doc,
		Source:      SourceReview,
	}, nil
}

func clampScore(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

func nonEmpty(items []string) []string {
	var out []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
