package prompt

import (
	"fmt"
	"strings"

	"docforge/internal/schema"
)

// Role lines open every system prompt; they also let tests tell the
// pipeline's model calls apart.
const (
	WriterRole   = "Role: Senior Document Specialist."
	TableRole    = "Role: Data Table Generator."
	ReviewerRole = "Role: Document Quality Reviewer."
	GapRole      = "Role: Schema Coverage Analyst."
	RepairRole   = "Role: Document Repair Editor."
)

// AllCovered is the supplementary note used when no section lacks answers.
const AllCovered = "All sections covered"

const (
	MinTableRows = 4
	MaxTableRows = 12
)

const divider = "\n==================================================================\n"

// Context carries the labels shared by every prompt of a run.
type Context struct {
	DocumentType string
	Department   string
}

func (c Context) documentType(s *schema.Schema) string {
	if t := strings.TrimSpace(c.DocumentType); t != "" {
		return t
	}
	if s != nil {
		if t := strings.TrimSpace(s.DocumentType); t != "" {
			return t
		}
		if n := strings.TrimSpace(s.DocumentName); n != "" {
			return n
		}
	}
	return "Document"
}

func (c Context) department() string {
	if d := strings.TrimSpace(c.Department); d != "" {
		return d
	}
	return "General"
}

// Assembled is the generation prompt plus the short instruction sent as the user turn.
type Assembled struct {
	System      string
	Instruction string
	TableOnly   bool
}

// Assemble builds the generation prompt for the schema's shape.
func Assemble(s *schema.Schema, answers []schema.AnswerItem, supplementary string, c Context) Assembled {
	qa := schema.FormatAnswers(answers)
	if qa == "" {
		qa = "(no answers provided)"
	}
	if s.IsTableOnly() {
		return Assembled{
			System:      tablePrompt(s, qa, supplementary, c),
			Instruction: fmt.Sprintf("Generate the %s table now. Output nothing except the heading and the table.", s.TableTitle()),
			TableOnly:   true,
		}
	}
	return Assembled{
		System: structuredPrompt(s, qa, supplementary, c),
		Instruction: fmt.Sprintf("Write the complete %s now. Elevate the answers into polished professional prose; "+
			"do not copy them verbatim. Use exactly the section headings listed in the schema.", c.documentType(s)),
	}
}

// HasSupplement reports whether supplementary content should be shown to the writer.
func HasSupplement(supplementary string) bool {
	t := strings.TrimSpace(supplementary)
	return t != "" && !strings.EqualFold(strings.TrimSuffix(t, "."), AllCovered)
}

func structuredPrompt(s *schema.Schema, qa, supplementary string, c Context) string {
	docType := c.documentType(s)
	var sb strings.Builder
	sb.WriteString(WriterRole + "\n")
	fmt.Fprintf(&sb, "Department: %s\nDocument Type: %s\n", c.department(), docType)
	fmt.Fprintf(&sb, "\nTask: Write a complete, audit-ready %s that reads as if a seasoned professional wrote it.\n", docType)

	sb.WriteString(divider)
	sb.WriteString("### WRITING RULES")
	sb.WriteString(divider)
	sb.WriteString("- Treat the answers as raw input. Rewrite and expand them into clear professional prose.\n")
	sb.WriteString("- Give every section real substance: several sentences, lists or tables where they help.\n")
	sb.WriteString("- When no answer covers a section, infer reasonable content from the department and the other answers.\n")
	sb.WriteString("- Sections typed `table` must be real Markdown tables with the exact columns and realistic rows.\n")
	sb.WriteString("- Never use placeholders such as [Company Name], [TBD], [Insert here] or Lorem ipsum.\n")

	sb.WriteString(divider)
	sb.WriteString("### DOCUMENT SCHEMA")
	sb.WriteString(divider)
	sb.WriteString(s.RenderOutline())
	sb.WriteString("\n")

	if req := s.Required(); len(req) > 0 {
		sb.WriteString(divider)
		sb.WriteString("### REQUIRED HEADINGS (use verbatim, exactly once, and no others)")
		sb.WriteString(divider)
		for i, r := range req {
			if r.IsTable() && len(r.Columns) > 0 {
				fmt.Fprintf(&sb, "%d. %s (table: %s)\n", i+1, r.Title, schema.TableHeader(r.Columns))
				continue
			}
			fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Title)
		}
		sb.WriteString("Parent section titles and the document title may also appear as headings. Do not invent any other heading.\n")
	}

	sb.WriteString(divider)
	sb.WriteString("### QUESTIONS & ANSWERS")
	sb.WriteString(divider)
	sb.WriteString(qa)
	sb.WriteString("\n")

	if HasSupplement(supplementary) {
		sb.WriteString(divider)
		sb.WriteString("### SUPPLEMENTARY CONTENT (sections the answers do not cover)")
		sb.WriteString(divider)
		sb.WriteString(strings.TrimSpace(supplementary))
		sb.WriteString("\n")
	}

	sb.WriteString(divider)
	sb.WriteString("### OUTPUT FORMAT")
	sb.WriteString(divider)
	sb.WriteString("- Output only Markdown, with no commentary.\n")
	fmt.Fprintf(&sb, "- Start with a level-1 heading: # %s\n", docType)
	sb.WriteString("- Use ## for major sections and ### for subsections.\n")
	sb.WriteString("- End with a one-line version and date note that is not a heading.\n")
	return sb.String()
}

func tablePrompt(s *schema.Schema, qa, supplementary string, c Context) string {
	title := s.TableTitle()
	columns := s.TableColumns()
	header := schema.TableHeader(columns)
	separator := schema.TableSeparator(len(columns))

	var sb strings.Builder
	sb.WriteString(TableRole + "\n")
	fmt.Fprintf(&sb, "Department: %s\n\n", c.department())
	sb.WriteString("Produce a single Markdown table with EXACTLY these columns:\n\n")
	fmt.Fprintf(&sb, "%s\n%s\n", header, separator)

	sb.WriteString("\n### Rules\n")
	fmt.Fprintf(&sb, "1. The first line of output must be: # %s\n", title)
	sb.WriteString("2. Immediately after the heading, output the table.\n")
	sb.WriteString("3. Use the exact column headers above. Do not rename, reorder or add columns.\n")
	fmt.Fprintf(&sb, "4. Write between %d and %d realistic rows based on the answers below.\n", MinTableRows, MaxTableRows)

	sb.WriteString("\n### Prohibited\n")
	sb.WriteString("- introductions, descriptions or explanatory paragraphs\n")
	sb.WriteString("- any heading other than the title line\n")
	sb.WriteString("- bullet lists describing what the table contains\n")
	sb.WriteString("- metadata or version footers, or commentary after the table\n")

	sb.WriteString("\n### Answers\n")
	sb.WriteString(qa)
	sb.WriteString("\n")
	if HasSupplement(supplementary) {
		sb.WriteString("\n### Additional Context\n")
		sb.WriteString(strings.TrimSpace(supplementary))
		sb.WriteString("\n")
	}

	sb.WriteString("\n### Output Format\n")
	fmt.Fprintf(&sb, "# %s\n\n%s\n%s\n| value | ... |\n", title, header, separator)
	return sb.String()
}
