package prompt

import (
	"strings"
	"testing"

	"docforge/internal/schema"

	"github.com/stretchr/testify/assert"
)

func sampleSchema() *schema.Schema {
	return &schema.Schema{
		DocumentName: "Onboarding Plan",
		Sections: []schema.Section{
			{Title: "Plan", Subsections: []schema.Subsection{
				{Title: "Scope", Order: 2},
				{Title: "Goals", Order: 1},
				{Title: "Timeline", Type: schema.TypeTable, Columns: []string{"Week", "Focus"}, Order: 3},
			}},
		},
	}
}

func sampleAnswers() []schema.AnswerItem {
	return []schema.AnswerItem{
		{Question: "Who joins?", Answer: schema.TextAnswer("Two engineers"), Category: "People"},
		{Question: "Budget?", Answer: schema.TextAnswer(""), Category: "Money"},
	}
}

func TestAssemble_Structured(t *testing.T) {
	a := Assemble(sampleSchema(), sampleAnswers(), "Scope: answer pending", Context{DocumentType: "Onboarding Plan", Department: "Engineering"})

	assert.False(t, a.TableOnly)
	assert.True(t, strings.HasPrefix(a.System, WriterRole))
	assert.Contains(t, a.System, "Department: Engineering")
	assert.Contains(t, a.System, "1. Goals\n2. Scope\n3. Timeline (table: | Week | Focus |)")
	assert.Contains(t, a.System, "**Q:** Who joins?")
	assert.NotContains(t, a.System, "Budget?")
	assert.Contains(t, a.System, "SUPPLEMENTARY CONTENT")
	assert.Contains(t, a.System, "Scope: answer pending")
	assert.Contains(t, a.System, "# Onboarding Plan")
	assert.Contains(t, a.Instruction, "do not copy them verbatim")
}

func TestAssemble_SkipsSentinelSupplement(t *testing.T) {
	for _, sup := range []string{"", "  ", AllCovered, "all sections covered."} {
		a := Assemble(sampleSchema(), sampleAnswers(), sup, Context{})
		assert.NotContains(t, a.System, "SUPPLEMENTARY CONTENT", "supplement %q", sup)
	}
}

func TestAssemble_TableOnly(t *testing.T) {
	s := &schema.Schema{
		DocumentType: "Change Request Log",
		Sections:     []schema.Section{{Type: schema.TypeTable, Columns: []string{"ID", "Date", "Status"}}},
	}
	a := Assemble(s, sampleAnswers(), "", Context{Department: "IT"})

	assert.True(t, a.TableOnly)
	assert.True(t, strings.HasPrefix(a.System, TableRole))
	assert.Contains(t, a.System, "| ID | Date | Status |\n|---|---|---|")
	assert.Contains(t, a.System, "The first line of output must be: # Change Request Log")
	assert.Contains(t, a.System, "between 4 and 12 realistic rows")
	assert.Contains(t, a.System, "metadata or version footers")
	assert.NotContains(t, a.System, WriterRole)
}

func TestAssemble_EmptySchemaFallsBackToOutlineText(t *testing.T) {
	a := Assemble(&schema.Schema{}, nil, "", Context{})
	assert.Contains(t, a.System, "No schema sections available")
	assert.Contains(t, a.System, "(no answers provided)")
	assert.NotContains(t, a.System, "REQUIRED HEADINGS")
}

func TestRepair(t *testing.T) {
	system, user := Repair("ORIGINAL PROMPT", "# Doc", []string{"Missing required section: 'Scope'"}, nil)
	assert.True(t, strings.HasPrefix(system, RepairRole))
	assert.Contains(t, system, "ORIGINAL PROMPT")
	assert.Contains(t, user, "- Missing required section: 'Scope'")
	assert.Contains(t, user, "## Suggestions\n- (none)")
	assert.Contains(t, user, "# Doc")
}

func TestGapAndReview(t *testing.T) {
	system, user := Gap(sampleSchema(), sampleAnswers(), Context{})
	assert.True(t, strings.HasPrefix(system, GapRole))
	assert.Contains(t, system, "section_covered")
	assert.Contains(t, user, "## Plan")

	system, user = Review("# Doc body", sampleSchema(), Context{})
	assert.True(t, strings.HasPrefix(system, ReviewerRole))
	for _, c := range ReviewCriteria {
		assert.Contains(t, system, c)
	}
	assert.Contains(t, user, "# Doc body")
}
