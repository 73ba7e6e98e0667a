package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type AnswerType string

const (
	AnswerText           AnswerType = "text"
	AnswerSelect         AnswerType = "select"
	AnswerMultiSelect    AnswerType = "multi_select"
	AnswerStructuredList AnswerType = "structured_list"
)

const defaultCategory = "General"

// Answer holds either a free-text answer or a list of selected values.
type Answer struct {
	Text string
	List []string
}

func TextAnswer(s string) Answer        { return Answer{Text: s} }
func ListAnswer(items ...string) Answer { return Answer{List: items} }

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.List != nil {
		return json.Marshal(a.List)
	}
	return json.Marshal(a.Text)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	*a = Answer{}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []interface{}
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		a.List = make([]string, 0, len(items))
		for _, it := range items {
			a.List = append(a.List, fmt.Sprint(it))
		}
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		a.Text = s
		return nil
	}
	a.Text = fmt.Sprint(v)
	return nil
}

// String renders the answer as prompt text; lists are comma-joined.
func (a Answer) String() string {
	if a.List == nil {
		return a.Text
	}
	return strings.Join(a.List, ", ")
}

// AnswerItem is one answered (or pending) question.
type AnswerItem struct {
	Question   string                   `json:"question"`
	Answer     Answer                   `json:"answer"`
	Category   string                   `json:"category,omitempty"`
	AnswerType AnswerType               `json:"answer_type,omitempty"`
	Rows       []map[string]interface{} `json:"answers,omitempty"`
}

// Answered reports whether the item carries usable content.
func (it AnswerItem) Answered() bool {
	if it.AnswerType == AnswerStructuredList && len(it.Rows) > 0 {
		return true
	}
	return strings.TrimSpace(it.Answer.String()) != ""
}

func (it AnswerItem) category() string {
	if c := strings.TrimSpace(it.Category); c != "" {
		return c
	}
	return defaultCategory
}

// FilterAnswered drops unanswered items while keeping input order.
func FilterAnswered(items []AnswerItem) []AnswerItem {
	out := make([]AnswerItem, 0, len(items))
	for _, it := range items {
		if it.Answered() {
			out = append(out, it)
		}
	}
	return out
}

// FormatAnswers renders answered items as Markdown, opening a
// "### Category" block whenever the category changes.
func FormatAnswers(items []AnswerItem) string {
	var lines []string
	current := ""
	for _, it := range FilterAnswered(items) {
		if cat := it.category(); cat != current {
			current = cat
			lines = append(lines, "", "### "+cat)
		}
		value := strings.TrimSpace(it.Answer.String())
		if it.AnswerType == AnswerStructuredList && len(it.Rows) > 0 {
			if data, err := json.MarshalIndent(it.Rows, "", "  "); err == nil {
				value = string(data)
			}
		}
		lines = append(lines, "**Q:** "+strings.TrimSpace(it.Question), "**A:** "+value, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// LoadAnswers reads a JSON or YAML list of answer items.
func LoadAnswers(path string) ([]AnswerItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers %s: %w", path, err)
	}
	return ParseAnswers(data, FormatFromPath(path))
}

func ParseAnswers(data []byte, format Format) ([]AnswerItem, error) {
	raw, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}
	var items []AnswerItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return items, nil
}
