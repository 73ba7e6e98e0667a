package schema

import (
	"fmt"
	"strings"
)

const noSectionsText = "No schema sections available"

// RenderOutline describes the expected document structure as prompt text.
func (s *Schema) RenderOutline() string {
	if s == nil {
		return noSectionsText
	}
	if len(s.Sections) == 0 {
		if len(s.QuestionCategories) == 0 {
			return noSectionsText
		}
		lines := make([]string, 0, len(s.QuestionCategories))
		for _, c := range s.QuestionCategories {
			lines = append(lines, fmt.Sprintf("- %s (order: %d)", c.Category, c.Order))
		}
		return strings.Join(lines, "\n")
	}

	var b strings.Builder
	for _, sec := range s.Sections {
		if sec.isTableOnly() {
			title := strings.TrimSpace(sec.Title)
			if title == "" {
				title = s.TableTitle()
			}
			fmt.Fprintf(&b, "## %s\n\n", title)
			b.WriteString("TABLE FORMAT REQUIRED: this section is a single Markdown table.\n")
			fmt.Fprintf(&b, "Column headers: %s\n", TableHeader(sec.Columns))
			b.WriteString("Output a real Markdown table with these exact columns and realistic data rows.\n")
			b.WriteString("Do not describe the table. Output the table itself.\n\n")
			continue
		}

		title := strings.TrimSpace(sec.Title)
		if title == "" {
			title = "Untitled Section"
		}
		fmt.Fprintf(&b, "## %s\n", title)
		for _, sub := range sec.Subsections {
			typ := typeOrText(sub.Type)
			if typ == TypeTable && len(sub.Columns) > 0 {
				fmt.Fprintf(&b, "  - %s TABLE, columns: %s\n", sub.Title, TableHeader(sub.Columns))
				b.WriteString("    (Output a real Markdown table with these columns and realistic rows)\n")
				continue
			}
			fmt.Fprintf(&b, "  - %s (type: %s)\n", sub.Title, typ)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// TableHeader renders columns as a Markdown header row.
func TableHeader(columns []string) string {
	return "| " + strings.Join(columns, " | ") + " |"
}

// TableSeparator renders the separator row matching TableHeader.
func TableSeparator(n int) string {
	if n <= 0 {
		return "|---|"
	}
	return "|" + strings.Repeat("---|", n)
}
