package markdown

import (
	"bufio"
	"regexp"
	"strings"
)

// Heading is a Markdown heading line found in a document.
type Heading struct {
	Line  int    // zero-based line index
	Level int    // number of leading '#'
	Raw   string // trimmed line as written
	Title string // text after the '#' markers
}

// Section is a heading plus everything up to the next heading of the same level.
type Section struct {
	Title   string
	Level   int
	Content string
}

var (
	numericPrefix = regexp.MustCompile(`^\d+(\.\d+)*\.?\s*`)
	punctuation   = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	separatorCell = regexp.MustCompile(`^:?-+:?$`)
)

// Lines splits text into lines without trailing carriage returns.
func Lines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// Headings returns every line whose trimmed text starts with '#'.
func Headings(text string) []Heading {
	var out []Heading
	for i, line := range Lines(text) {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
		out = append(out, Heading{
			Line:  i,
			Level: level,
			Raw:   trimmed,
			Title: strings.TrimSpace(trimmed[level:]),
		})
	}
	return out
}

// NormalizeHeading reduces a heading to a comparable form: no '#'
// markers, no leading numbering such as "4.1.", no punctuation,
// lower case, single spaces.
func NormalizeHeading(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimLeft(s, "#"))
	s = numericPrefix.ReplaceAllString(s, "")
	s = punctuation.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Block returns the lines after heading idx up to the next heading.
func Block(lines []string, headings []Heading, idx int) []string {
	if idx < 0 || idx >= len(headings) {
		return nil
	}
	start := headings[idx].Line + 1
	end := len(lines)
	if idx+1 < len(headings) {
		end = headings[idx+1].Line
	}
	if start > end {
		return nil
	}
	return lines[start:end]
}

// TableLines keeps the lines that start with a pipe.
func TableLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		if t := strings.TrimSpace(l); strings.HasPrefix(t, "|") {
			out = append(out, t)
		}
	}
	return out
}

// SplitRow returns the non-empty trimmed cells of a table row.
func SplitRow(line string) []string {
	var cells []string
	for _, c := range strings.Split(line, "|") {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

// IsSeparatorRow reports whether line is a header separator such as |---|:--:|.
func IsSeparatorRow(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "|") {
		return false
	}
	cells := SplitRow(t)
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !separatorCell.MatchString(strings.ReplaceAll(c, " ", "")) {
			return false
		}
	}
	return true
}

// HasTable reports whether block contains a pipe table with a separator row.
func HasTable(block []string) bool {
	for _, l := range TableLines(block) {
		if IsSeparatorRow(l) {
			return true
		}
	}
	return false
}

// HeaderCells returns the cells of the first pipe line in block.
func HeaderCells(block []string) []string {
	rows := TableLines(block)
	if len(rows) == 0 {
		return nil
	}
	return SplitRow(rows[0])
}

// NormalizeCell lower-cases a table cell and collapses its whitespace.
func NormalizeCell(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// SameColumns compares two column lists position by position,
// ignoring case and whitespace differences.
func SameColumns(expected, actual []string) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if NormalizeCell(expected[i]) != NormalizeCell(actual[i]) {
			return false
		}
	}
	return true
}

// SplitLevel parses text into sections opened by headings of exactly the
// given level. Deeper headings stay inside their parent section and any
// text before the first matching heading is dropped.
func SplitLevel(text string, level int) []Section {
	var sections []Section
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var current *Section
	var buf strings.Builder
	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(buf.String())
		sections = append(sections, *current)
		buf.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if l := headingLevel(trimmed); l == level {
			flush()
			current = &Section{Title: strings.TrimSpace(trimmed[l:]), Level: l}
			continue
		}
		if current != nil {
			buf.WriteString(line + "\n")
		}
	}
	flush()
	return sections
}

// headingLevel returns the ATX level of a heading line, or 0.
func headingLevel(trimmed string) int {
	level := 0
	for _, ch := range trimmed {
		if ch != '#' {
			break
		}
		level++
	}
	if level == 0 || level > 6 || len(trimmed) <= level || trimmed[level] != ' ' {
		return 0
	}
	return level
}

// StripFences removes a Markdown code fence wrapped around the whole text.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.Index(text, "\n"); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
