package quality

import (
	"fmt"
	"regexp"

	"docforge/internal/markdown"
)

type placeholder struct {
	label   string
	pattern *regexp.Regexp
}

var placeholders = []placeholder{
	{"TBD", regexp.MustCompile(`(?i)\bTBD\b`)},
	{"[Insert", regexp.MustCompile(`(?i)\[insert`)},
	{"Lorem ipsum", regexp.MustCompile(`(?i)lorem ipsum`)},
	{"[Company Name]", regexp.MustCompile(`(?i)\[company name\]`)},
	{"[Your Team]", regexp.MustCompile(`(?i)\[your team\]`)},
	{"[Placeholder", regexp.MustCompile(`(?i)\[placeholder`)},
}

// CheckRules is the deterministic fallback used when the model review is
// unusable. Every triggered rule adds one issue.
func CheckRules(doc string, t Thresholds) Verdict {
	var issues, suggestions []string

	if n := len([]rune(doc)); n < t.MinLength {
		issues = append(issues, fmt.Sprintf("Document is too short (%d characters, minimum %d)", n, t.MinLength))
		suggestions = append(suggestions, "Expand every section with concrete, specific detail.")
	}

	found := false
	for _, p := range placeholders {
		if p.pattern.MatchString(doc) {
			issues = append(issues, fmt.Sprintf("Document contains placeholder text: '%s'", p.label))
			found = true
		}
	}
	if found {
		suggestions = append(suggestions, "Replace placeholder text with real, specific content.")
	}

	if n := len(markdown.Headings(doc)); n < t.MinHeadings {
		issues = append(issues, fmt.Sprintf("Document has too few headings (%d, minimum %d)", n, t.MinHeadings))
		suggestions = append(suggestions, "Structure the document with a heading for every schema section.")
	}

	short := false
	for _, sec := range markdown.SplitLevel(doc, 2) {
		body := sec.Title
		if sec.Content != "" {
			body += "\n" + sec.Content
		}
		if n := len([]rune(body)); n < t.MinSectionChars {
			issues = append(issues, fmt.Sprintf("Section '%s' is too short (%d characters, minimum %d)", sec.Title, n, t.MinSectionChars))
			short = true
		}
	}
	if short {
		suggestions = append(suggestions, "Develop thin sections into several substantive sentences.")
	}

	overall := 5 - len(issues)
	if overall < 1 {
		overall = 1
	}
	return Verdict{
		Passed:      len(issues) == 0,
		Scores:      map[string]int{"overall": overall},
		Issues:      issues,
		Suggestions: suggestions,
		Document:    doc,
		Source:      SourceRules,
	}
}
