package validator

import (
	"fmt"
	"strings"

	"docforge/internal/markdown"
	"docforge/internal/schema"
)

// MatchMode controls how document headings are matched against required titles.
type MatchMode string

const (
	// MatchExact treats headings as equal only when their normalised forms are identical.
	MatchExact MatchMode = "exact"
	// MatchContains accepts a heading when either normalised form contains the other.
	MatchContains MatchMode = "contains"
)

// ParseMatchMode maps a config value onto a MatchMode, defaulting to exact.
func ParseMatchMode(s string) MatchMode {
	if MatchMode(strings.ToLower(strings.TrimSpace(s))) == MatchContains {
		return MatchContains
	}
	return MatchExact
}

// Validator checks generated Markdown against a schema's structure.
type Validator struct {
	mode MatchMode
}

type Option func(*Validator)

func WithMatchMode(m MatchMode) Option {
	return func(v *Validator) { v.mode = m }
}

func New(opts ...Option) *Validator {
	v := &Validator{mode: MatchExact}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs with the default options.
func Validate(text string, s *schema.Schema) []string {
	return New().Validate(text, s)
}

type expected struct {
	req  schema.Requirement
	norm string
}

// Validate returns human-readable structural errors in a stable order.
// Table-only schemas always validate here; their table is checked by the
// quality gate.
func (v *Validator) Validate(text string, s *schema.Schema) []string {
	structured, ok := s.Classify().(schema.Structured)
	if !ok {
		return nil
	}

	allow := make([]expected, 0, len(structured.Required))
	for _, r := range structured.Required {
		norm := markdown.NormalizeHeading(r.Title)
		if norm == "" {
			continue
		}
		allow = append(allow, expected{req: r, norm: norm})
	}

	// Legacy category-only or empty schemas name no headings to check.
	if len(allow) == 0 {
		return nil
	}

	var skip []string
	for _, t := range append([]string{structured.DocumentName, structured.DocumentType}, structured.Parents...) {
		if n := markdown.NormalizeHeading(t); n != "" {
			skip = append(skip, n)
		}
	}

	lines := markdown.Lines(text)
	headings := markdown.Headings(text)
	docNorm := make([]string, len(headings))
	for i, h := range headings {
		docNorm[i] = markdown.NormalizeHeading(h.Raw)
	}

	var errs []string

	for _, e := range allow {
		count := 0
		for _, n := range docNorm {
			if v.matches(n, e.norm) {
				count++
			}
		}
		switch {
		case count == 0:
			errs = append(errs, fmt.Sprintf("Missing required section: '%s'", e.req.Title))
		case count > 1 && v.mode == MatchExact && !v.skipped(e.norm, skip):
			errs = append(errs, fmt.Sprintf("Duplicate section: '%s'", e.req.Title))
		}
	}

	for i, h := range headings {
		n := docNorm[i]
		if n == "" || v.skipped(n, skip) {
			continue
		}
		if v.inAllowlist(n, allow) {
			continue
		}
		errs = append(errs, fmt.Sprintf("Extra section not in schema: '%s'", h.Raw))
	}

	for _, e := range allow {
		if !e.req.IsTable() {
			continue
		}
		idx := v.headingIndex(docNorm, e.norm)
		if idx < 0 {
			continue // already reported as missing
		}
		block := markdown.Block(lines, headings, idx)
		if !markdown.HasTable(block) {
			errs = append(errs, fmt.Sprintf("Section '%s' must contain a Markdown table (expected columns: %s)",
				e.req.Title, strings.Join(e.req.Columns, ", ")))
			continue
		}
		if len(e.req.Columns) == 0 {
			continue
		}
		got := markdown.HeaderCells(block)
		if !markdown.SameColumns(e.req.Columns, got) {
			errs = append(errs, fmt.Sprintf("Section '%s' has wrong table columns. Expected: %s. Got: %s",
				e.req.Title, formatList(e.req.Columns), formatList(got)))
		}
	}

	return errs
}

func (v *Validator) matches(docHeading, required string) bool {
	if docHeading == "" {
		return false
	}
	if v.mode == MatchContains {
		return strings.Contains(docHeading, required) || strings.Contains(required, docHeading)
	}
	return docHeading == required
}

// skipped reports whether a heading names the document or a parent
// section; those headings are organisational and never extra.
func (v *Validator) skipped(docHeading string, skip []string) bool {
	for _, n := range skip {
		if v.matches(docHeading, n) {
			return true
		}
	}
	return false
}

func (v *Validator) inAllowlist(docHeading string, allow []expected) bool {
	for _, e := range allow {
		if v.matches(docHeading, e.norm) {
			return true
		}
	}
	return false
}

func (v *Validator) headingIndex(docNorm []string, required string) int {
	for i, n := range docNorm {
		if v.matches(n, required) {
			return i
		}
	}
	return -1
}

func formatList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// Category groups validator messages for repair suggestions.
type Category string

const (
	CategoryMissing   Category = "missing"
	CategoryExtra     Category = "extra"
	CategoryDuplicate Category = "duplicate"
	CategoryTable     Category = "table"
)

// Categorize classifies a message produced by Validate.
func Categorize(msg string) Category {
	switch {
	case strings.HasPrefix(msg, "Missing required section"):
		return CategoryMissing
	case strings.HasPrefix(msg, "Extra section"):
		return CategoryExtra
	case strings.HasPrefix(msg, "Duplicate section"):
		return CategoryDuplicate
	default:
		return CategoryTable
	}
}
