package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeading(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"### 4.1. Customer Impact", "customer impact"},
		{"customer impact", "customer impact"},
		{"## 2 Scope & Objectives!", "scope objectives"},
		{"#   Risk   Register  ", "risk register"},
		{"## Überblick (DE)", "überblick de"},
		{"## 10.2.3 Roll-out Plan", "rollout plan"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHeading(tt.in), tt.in)
	}
}

func TestHeadings(t *testing.T) {
	doc := "# Title\nintro\n  ## Scope\ntext\n###Objective\n"
	hs := Headings(doc)
	require.Len(t, hs, 3)
	assert.Equal(t, Heading{Line: 0, Level: 1, Raw: "# Title", Title: "Title"}, hs[0])
	assert.Equal(t, 2, hs[1].Line)
	assert.Equal(t, "Scope", hs[1].Title)
	assert.Equal(t, 3, hs[2].Level)
	assert.Equal(t, "Objective", hs[2].Title)
}

func TestBlockAndTables(t *testing.T) {
	doc := "## Plan\n| Owner | Due |\n|---|:---:|\n| Ana | Q3 |\n## Next\ntext"
	lines := Lines(doc)
	hs := Headings(doc)
	block := Block(lines, hs, 0)
	require.Len(t, block, 3)
	assert.True(t, HasTable(block))
	assert.Equal(t, []string{"Owner", "Due"}, HeaderCells(block))

	assert.False(t, HasTable(Block(lines, hs, 1)))
	assert.Nil(t, Block(lines, hs, 5))
}

func TestIsSeparatorRow(t *testing.T) {
	assert.True(t, IsSeparatorRow("|---|---|"))
	assert.True(t, IsSeparatorRow("| :--- | ---: | :-: |"))
	assert.False(t, IsSeparatorRow("| a | b |"))
	assert.False(t, IsSeparatorRow("---"))
	assert.False(t, IsSeparatorRow("| |"))
}

func TestSameColumns(t *testing.T) {
	assert.True(t, SameColumns([]string{"ID", "Due  Date"}, []string{"id", " due date "}))
	assert.False(t, SameColumns([]string{"ID", "Date"}, []string{"Date", "ID"}))
	assert.False(t, SameColumns([]string{"ID", "Date", "Status"}, []string{"ID", "Date"}))
}

func TestSplitLevel(t *testing.T) {
	doc := "# Doc\npreamble\n## One\nbody one\n### Nested\nmore\n## Two\nbody two\n"
	secs := SplitLevel(doc, 2)
	require.Len(t, secs, 2)
	assert.Equal(t, "One", secs[0].Title)
	assert.Equal(t, "body one\n### Nested\nmore", secs[0].Content)
	assert.Equal(t, "Two", secs[1].Title)
	assert.Equal(t, "body two", secs[1].Content)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "# Doc\ntext", StripFences("```markdown\n# Doc\ntext\n```"))
	assert.Equal(t, "# Doc", StripFences("```\n# Doc\n```\n"))
	assert.Equal(t, "plain", StripFences("  plain  "))
}
