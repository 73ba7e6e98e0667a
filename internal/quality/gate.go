package quality

import (
	"context"
	"fmt"
	"strings"

	"docforge/internal/llm"
	"docforge/internal/logger"
	"docforge/internal/markdown"
	"docforge/internal/prompt"
	"docforge/internal/schema"
	"docforge/internal/validator"
)

// Source names the check that produced a verdict.
type Source string

const (
	SourceTable     Source = "table"
	SourceStructure Source = "structure"
	SourceReview    Source = "review"
	SourceRules     Source = "rules"
)

// Verdict is the gate's decision on one document.
type Verdict struct {
	Passed      bool
	Scores      map[string]int
	Issues      []string
	Suggestions []string
	// Document is the text to carry forward; the table path may rewrite it.
	Document string
	Source   Source
	// ReviewErr is set when the model review was unusable and rules decided.
	ReviewErr error
}

type Thresholds struct {
	MinReviewScore  float64
	MinLength       int
	MinHeadings     int
	MinSectionChars int
}

func DefaultThresholds() Thresholds {
	return Thresholds{MinReviewScore: 3, MinLength: 500, MinHeadings: 5, MinSectionChars: 100}
}

// Gate decides whether a generated document is acceptable.
type Gate struct {
	model      llm.Model
	validator  *validator.Validator
	thresholds Thresholds
	log        *logger.Logger
}

type Option func(*Gate)

func WithValidator(v *validator.Validator) Option {
	return func(g *Gate) { g.validator = v }
}

func WithThresholds(t Thresholds) Option {
	return func(g *Gate) { g.thresholds = t }
}

func WithLogger(l *logger.Logger) Option {
	return func(g *Gate) { g.log = logger.OrNop(l) }
}

func New(model llm.Model, opts ...Option) *Gate {
	g := &Gate{
		model:      model,
		validator:  validator.New(),
		thresholds: DefaultThresholds(),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate runs the checks that apply to the schema's shape.
func (g *Gate) Evaluate(ctx context.Context, doc string, s *schema.Schema, c prompt.Context) Verdict {
	switch v := s.Classify().(type) {
	case schema.TableOnly:
		return CheckTable(doc, v)
	default:
		return g.evaluateStructured(ctx, doc, s, c)
	}
}

func (g *Gate) evaluateStructured(ctx context.Context, doc string, s *schema.Schema, c prompt.Context) Verdict {
	if errs := g.validator.Validate(doc, s); len(errs) > 0 {
		g.log.Info("structural validation failed", "errors", len(errs))
		return Verdict{
			Scores:      map[string]int{"structure": 1},
			Issues:      errs,
			Suggestions: structuralSuggestions(errs),
			Document:    doc,
			Source:      SourceStructure,
		}
	}

	verdict, err := g.review(ctx, doc, s, c)
	if err == nil {
		return verdict
	}
	g.log.Warn("quality review unusable, applying rule checks", "error", err)
	verdict = CheckRules(doc, g.thresholds)
	verdict.ReviewErr = err
	return verdict
}

func structuralSuggestions(errs []string) []string {
	seen := map[validator.Category]bool{}
	var out []string
	for _, e := range errs {
		cat := validator.Categorize(e)
		if seen[cat] {
			continue
		}
		seen[cat] = true
		switch cat {
		case validator.CategoryMissing:
			out = append(out, "Add the missing sections using the exact schema titles as headings.")
		case validator.CategoryExtra:
			out = append(out, "Remove headings that are not in the schema and fold their content into schema sections.")
		case validator.CategoryDuplicate:
			out = append(out, "Merge repeated sections so each schema heading appears exactly once.")
		case validator.CategoryTable:
			out = append(out, "Ensure table sections contain real Markdown tables with the exact schema columns.")
		}
	}
	return out
}

// CheckTable validates a table-only document and, on success, rewrites it
// to the heading line followed by the table lines only.
func CheckTable(doc string, t schema.TableOnly) Verdict {
	lines := markdown.Lines(doc)
	heading := ""
	for _, l := range lines {
		if trimmed := strings.TrimSpace(l); strings.HasPrefix(trimmed, "# ") {
			heading = trimmed
			break
		}
	}
	if heading == "" {
		heading = "# " + t.Title
	}

	rows := markdown.TableLines(lines)
	fail := func(issue, suggestion string) Verdict {
		return Verdict{
			Scores:      map[string]int{"structure": 1},
			Issues:      []string{issue},
			Suggestions: []string{suggestion},
			Document:    doc,
			Source:      SourceTable,
		}
	}

	if len(rows) < 3 {
		return fail(
			fmt.Sprintf("Document must be a Markdown table with columns: %s (found %d table lines, need header, separator and at least one row)",
				strings.Join(t.Columns, ", "), len(rows)),
			"Output only the title heading and a Markdown table with the exact columns and realistic rows.",
		)
	}

	got := markdown.SplitRow(rows[0])
	if len(t.Columns) > 0 && !markdown.SameColumns(t.Columns, got) {
		return fail(
			fmt.Sprintf("Table columns do not match. Expected: %s. Got: %s", formatList(t.Columns), formatList(got)),
			"Use exactly the required column headers, in order, without renaming or adding columns.",
		)
	}
	if !markdown.IsSeparatorRow(rows[1]) {
		return fail(
			"Table is missing the header separator row (|---|---|) after the header.",
			"Place a separator row directly below the header row.",
		)
	}

	return Verdict{
		Passed:   true,
		Scores:   map[string]int{"structure": 5, "completeness": 5},
		Document: heading + "\n\n" + strings.Join(rows, "\n"),
		Source:   SourceTable,
	}
}

func formatList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
