package schema

import (
	"sort"
	"strings"
)

// FieldType is the content kind of a section or subsection.
type FieldType string

const (
	TypeText  FieldType = "text"
	TypeTable FieldType = "table"
)

// DefaultTableTitle is used when neither the table section nor the document names itself.
const DefaultTableTitle = "Data Table"

type Subsection struct {
	Title   string    `json:"title"`
	Type    FieldType `json:"type,omitempty"`
	Columns []string  `json:"columns,omitempty"`
	Order   int       `json:"order,omitempty"`
}

type Section struct {
	Title       string       `json:"title,omitempty"`
	Type        FieldType    `json:"type,omitempty"`
	Columns     []string     `json:"columns,omitempty"`
	Order       int          `json:"order,omitempty"`
	Subsections []Subsection `json:"subsections,omitempty"`
}

// QuestionCategory is the legacy flat outline used before sections existed.
type QuestionCategory struct {
	Category string `json:"category"`
	Order    int    `json:"order"`
}

// Schema describes the structure a generated document must follow.
type Schema struct {
	DocumentName       string             `json:"document_name,omitempty"`
	DocumentType       string             `json:"document_type,omitempty"`
	Sections           []Section          `json:"sections,omitempty"`
	QuestionCategories []QuestionCategory `json:"question_categories,omitempty"`
}

// Requirement is one heading the generated document must contain.
type Requirement struct {
	Title   string
	Type    FieldType
	Columns []string
	Parent  string
}

func (r Requirement) IsTable() bool { return r.Type == TypeTable }

func (s Section) isTableOnly() bool {
	return s.Type == TypeTable && len(s.Subsections) == 0
}

// IsTableOnly reports whether the whole document is a single table.
// A schema without sections is empty, not table-only.
func (s *Schema) IsTableOnly() bool {
	if s == nil || len(s.Sections) == 0 {
		return false
	}
	for _, sec := range s.Sections {
		if !sec.isTableOnly() {
			return false
		}
	}
	return true
}

// TableColumns returns the columns of the first table section.
func (s *Schema) TableColumns() []string {
	if s == nil {
		return nil
	}
	for _, sec := range s.Sections {
		if sec.Type == TypeTable {
			return append([]string(nil), sec.Columns...)
		}
	}
	return nil
}

// TableTitle resolves the heading of a table-only document: the first
// titled table section, then the document name, then the document type.
func (s *Schema) TableTitle() string {
	if s == nil {
		return DefaultTableTitle
	}
	for _, sec := range s.Sections {
		if sec.Type != TypeTable {
			continue
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			return title
		}
	}
	if name := strings.TrimSpace(s.DocumentName); name != "" {
		return name
	}
	if typ := strings.TrimSpace(s.DocumentType); typ != "" {
		return typ
	}
	return DefaultTableTitle
}

// Required flattens the schema into the ordered list of headings the
// document must contain. Parent section titles are organisational only;
// a section without subsections contributes its own title.
func (s *Schema) Required() []Requirement {
	if s == nil {
		return nil
	}
	var out []Requirement
	for _, sec := range s.orderedSections() {
		if len(sec.Subsections) == 0 {
			title := strings.TrimSpace(sec.Title)
			if title == "" {
				continue
			}
			out = append(out, Requirement{
				Title:   title,
				Type:    typeOrText(sec.Type),
				Columns: append([]string(nil), sec.Columns...),
			})
			continue
		}
		subs := append([]Subsection(nil), sec.Subsections...)
		sort.SliceStable(subs, func(i, j int) bool { return subs[i].Order < subs[j].Order })
		for _, sub := range subs {
			title := strings.TrimSpace(sub.Title)
			if title == "" {
				continue
			}
			out = append(out, Requirement{
				Title:   title,
				Type:    typeOrText(sub.Type),
				Columns: append([]string(nil), sub.Columns...),
				Parent:  strings.TrimSpace(sec.Title),
			})
		}
	}
	return out
}

// ParentTitles lists the non-empty titles of top-level sections that own subsections.
func (s *Schema) ParentTitles() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, sec := range s.Sections {
		if t := strings.TrimSpace(sec.Title); t != "" && len(sec.Subsections) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Slice returns a copy of the schema narrowed to the i-th section.
func (s *Schema) Slice(i int) (*Schema, bool) {
	if s == nil || i < 0 || i >= len(s.Sections) {
		return nil, false
	}
	return &Schema{
		DocumentName: s.DocumentName,
		DocumentType: s.DocumentType,
		Sections:     []Section{s.Sections[i]},
	}, true
}

func (s *Schema) orderedSections() []Section {
	secs := append([]Section(nil), s.Sections...)
	sort.SliceStable(secs, func(i, j int) bool { return secs[i].Order < secs[j].Order })
	return secs
}

func typeOrText(t FieldType) FieldType {
	if t == "" {
		return TypeText
	}
	return t
}
