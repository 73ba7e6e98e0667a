package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a schema or answers file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const documentSchemaURL = "https://docforge.local/schema/document.json"

//go:embed document.schema.json
var documentSchemaJSON []byte

var (
	compileOnce     sync.Once
	compiledSchema  *jsonschema.Schema
	compileSchemaEr error
)

// FormatFromPath picks the format by file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and validates a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	s, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a schema document and validates it against the embedded
// document JSON Schema before mapping it onto Schema.
func Parse(data []byte, format Format) (*Schema, error) {
	raw, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	validator, err := loadCompiledSchema()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(generic); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &s, nil
}

// Marshal encodes the schema as indented JSON.
func (s *Schema) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func loadCompiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft7
		if err := compiler.AddResource(documentSchemaURL, bytes.NewReader(documentSchemaJSON)); err != nil {
			compileSchemaEr = fmt.Errorf("add document schema: %w", err)
			return
		}
		compiledSchema, compileSchemaEr = compiler.Compile(documentSchemaURL)
	})
	return compiledSchema, compileSchemaEr
}

// toJSON normalises YAML input to JSON so one decoder path serves both.
func toJSON(data []byte, format Format) ([]byte, error) {
	if format != FormatYAML {
		return data, nil
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml to json: %w", err)
	}
	return out, nil
}
