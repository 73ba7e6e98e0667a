package pipeline

import (
	"context"
	"fmt"
	"strings"

	"docforge/internal/gap"
	"docforge/internal/markdown"
	"docforge/internal/schema"

	"github.com/google/uuid"
)

// Assemble builds a document section by section. Each section runs the
// full pipeline with the text generated so far as memory; the parts are
// then joined under one title. Table-only and single-section schemas are
// handed to Run unchanged.
func (p *Pipeline) Assemble(ctx context.Context, req Request) (*Result, error) {
	if req.Schema == nil {
		return nil, ErrNoSchema
	}
	if req.Schema.IsTableOnly() || len(req.Schema.Sections) <= 1 {
		return p.Run(ctx, req)
	}

	runID := uuid.NewString()
	report := NewReport(runID, "progressive")
	log := p.log.With("run_id", runID, "mode", "progressive")

	out := &Result{
		RunID:        runID,
		Status:       StatusPassed,
		GapQuestions: []gap.Question{},
		Issues:       []string{},
		Suggestions:  []string{},
		Report:       report,
	}
	seenQuestions := map[string]bool{}
	var parts []string
	passed := 0

	for i := range req.Schema.Sections {
		slice, _ := req.Schema.Slice(i)
		title := sectionLabel(slice, i)
		log.Info("assembling section", "index", i, "title", title)

		res, err := p.RunSection(ctx, SectionRequest{
			Schema:       slice,
			Answers:      req.Answers,
			PriorText:    strings.Join(parts, "\n\n"),
			DocumentType: req.DocumentType,
			Department:   req.Department,
		})
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", title, err)
		}

		if slice.IsTableOnly() {
			parts = append(parts, demoteDocumentTitle(res.Document))
		} else {
			parts = append(parts, stripDocumentTitle(res.Document))
		}
		report.Merge(res.Report)
		report.AddSection(SectionMetric{Title: title, Status: res.Status, RetryCount: res.RetryCount, Issues: res.Issues})

		for _, q := range res.GapQuestions {
			key := strings.ToLower(strings.TrimSpace(q.Question))
			if seenQuestions[key] {
				continue
			}
			seenQuestions[key] = true
			out.GapQuestions = append(out.GapQuestions, q)
		}
		if res.RetryCount > out.RetryCount {
			out.RetryCount = res.RetryCount
		}
		if res.Status == StatusPassed {
			passed++
			continue
		}
		out.Status = StatusFailed
		for _, issue := range res.Issues {
			out.Issues = append(out.Issues, fmt.Sprintf("[%s] %s", title, issue))
		}
		out.Suggestions = append(out.Suggestions, res.Suggestions...)
	}

	out.Document = "# " + documentTitle(req) + "\n\n" + strings.Join(parts, "\n\n")
	out.Scores = map[string]int{"sections_total": len(parts), "sections_passed": passed}
	report.Status = out.Status
	report.RetryCount = out.RetryCount
	log.Info("progressive assembly finished", "status", out.Status, "sections", len(parts), "passed", passed)
	return out, nil
}

func sectionLabel(slice *schema.Schema, i int) string {
	if t := strings.TrimSpace(slice.Sections[0].Title); t != "" {
		return t
	}
	return fmt.Sprintf("Section %d", i+1)
}

func documentTitle(req Request) string {
	for _, candidate := range []string{req.DocumentType, req.Schema.DocumentType, req.Schema.DocumentName} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return "Document"
}

// stripDocumentTitle drops the level-1 title a section run opens with,
// since the assembled document carries its own.
func stripDocumentTitle(doc string) string {
	lines := markdown.Lines(doc)
	if i := titleLine(lines); i >= 0 {
		return strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
	}
	return strings.TrimSpace(doc)
}

// demoteDocumentTitle keeps a table section's heading as a level-2 heading.
// The table gate names its output after the section, and the assembled
// document must still carry that heading.
func demoteDocumentTitle(doc string) string {
	lines := markdown.Lines(doc)
	if i := titleLine(lines); i >= 0 {
		lines[i] = "#" + strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// titleLine returns the index of a level-1 heading on the first non-blank
// line, or -1.
func titleLine(lines []string) int {
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		if strings.HasPrefix(t, "# ") {
			return i
		}
		break
	}
	return -1
}
