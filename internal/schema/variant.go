package schema

import "strings"

// Variant is the closed set of document shapes the pipeline handles.
// It is either TableOnly or Structured.
type Variant interface {
	variant()
}

// TableOnly is a document that consists of exactly one table.
type TableOnly struct {
	Title   string
	Columns []string
}

// Structured is a document made of titled sections and subsections.
type Structured struct {
	DocumentName string
	DocumentType string
	Parents      []string
	Required     []Requirement
}

func (TableOnly) variant()  {}
func (Structured) variant() {}

// Classify normalises the schema into one of the two variants.
func (s *Schema) Classify() Variant {
	if s.IsTableOnly() {
		return TableOnly{Title: s.TableTitle(), Columns: s.TableColumns()}
	}
	if s == nil {
		return Structured{}
	}
	return Structured{
		DocumentName: strings.TrimSpace(s.DocumentName),
		DocumentType: strings.TrimSpace(s.DocumentType),
		Parents:      s.ParentTitles(),
		Required:     s.Required(),
	}
}
