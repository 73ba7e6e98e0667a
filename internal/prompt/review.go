package prompt

import (
	"fmt"
	"strings"

	"docforge/internal/schema"
)

// ReviewCriteria are the dimensions the reviewer scores from 1 to 5.
var ReviewCriteria = []string{"completeness", "professionalism", "depth", "actionability", "structure"}

// Gap builds the coverage-analysis prompt.
func Gap(s *schema.Schema, answers []schema.AnswerItem, c Context) (system, user string) {
	var sb strings.Builder
	sb.WriteString(GapRole + "\n")
	fmt.Fprintf(&sb, "Department: %s\nDocument Type: %s\n\n", c.department(), c.documentType(s))
	sb.WriteString("Compare the document schema with the answers already given. For every schema section whose answers are missing or too thin ")
	sb.WriteString("to write from, propose one follow-up question.\n\n")
	sb.WriteString("Return ONLY a JSON array. Each element must look like:\n")
	sb.WriteString(`{"question": "...", "category": "...", "answer_type": "text", "section_covered": "<exact schema section title>"}` + "\n")
	sb.WriteString("Allowed answer_type values: text, select, multi_select, structured_list.\n")
	sb.WriteString("Return [] when every section is covered.\n")

	qa := schema.FormatAnswers(answers)
	if qa == "" {
		qa = "(no answers provided)"
	}
	var ub strings.Builder
	ub.WriteString("## Schema\n")
	ub.WriteString(s.RenderOutline())
	ub.WriteString("\n\n## Answers\n")
	ub.WriteString(qa)
	ub.WriteString("\n")
	return sb.String(), ub.String()
}

// Review builds the scored quality review prompt.
func Review(document string, s *schema.Schema, c Context) (system, user string) {
	var sb strings.Builder
	sb.WriteString(ReviewerRole + "\n")
	fmt.Fprintf(&sb, "Department: %s\nDocument Type: %s\n\n", c.department(), c.documentType(s))
	sb.WriteString("Score EACH criterion from 1 (terrible) to 5 (excellent):\n")
	sb.WriteString("1. completeness: covers every expected section\n")
	sb.WriteString("2. professionalism: reads like an industry-grade document, no placeholder text\n")
	sb.WriteString("3. depth: sections are substantive\n")
	sb.WriteString("4. actionability: concrete, specific details\n")
	sb.WriteString("5. structure: well-formed Markdown headings, lists and tables\n\n")
	sb.WriteString("Return ONLY this JSON:\n")
	sb.WriteString("```json\n")
	sb.WriteString(`{"scores": {"completeness": 0, "professionalism": 0, "depth": 0, "actionability": 0, "structure": 0}, ` +
		`"overall_score": 0, "passed": true, "issues": [], "suggestions": []}` + "\n")
	sb.WriteString("```\n")
	sb.WriteString("passed is true when overall_score >= 3.\n")

	return sb.String(), "## Document to review\n\n" + document
}

// Repair builds the fix-up prompt. The original generation prompt is kept
// as system context so the schema rules still apply.
func Repair(original, document string, issues, suggestions []string) (system, user string) {
	system = RepairRole + "\nReturn the complete corrected document, not a diff, and no commentary.\n\n" + original

	var ub strings.Builder
	ub.WriteString("The document below failed quality review. Fix every issue and return the full corrected document.\n")
	ub.WriteString("\n## Issues\n")
	writeBullets(&ub, issues)
	ub.WriteString("\n## Suggestions\n")
	writeBullets(&ub, suggestions)
	ub.WriteString("\n## Current document\n\n")
	ub.WriteString(document)
	ub.WriteString("\n")
	return system, ub.String()
}

func writeBullets(sb *strings.Builder, items []string) {
	if len(items) == 0 {
		sb.WriteString("- (none)\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
}
