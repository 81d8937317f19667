package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Format is a catalog serialisation.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

//go:embed schema/catalog.schema.json
var schemaJSON []byte

var (
	schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)
	validate     = validator.New()
)

// ValidationError lists every problem found in a catalog document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid catalog: " + strings.Join(e.Problems, "; ")
}

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses, schema-checks and validates a catalog document.
func Decode(data []byte, format Format) (Document, error) {
	var generic any
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return Document{}, fmt.Errorf("parse yaml catalog: %w", err)
		}
		if err := checkSchema(gojsonschema.NewGoLoader(generic)); err != nil {
			return Document{}, err
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("decode yaml catalog: %w", err)
		}
	default:
		if err := checkSchema(gojsonschema.NewBytesLoader(data)); err != nil {
			return Document{}, err
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("decode json catalog: %w", err)
		}
	}
	if err := validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ve := &ValidationError{}
			for _, fe := range verrs {
				ve.Problems = append(ve.Problems, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
			return Document{}, ve
		}
		return Document{}, err
	}
	return doc, nil
}

// Encode serialises a document.
func Encode(doc Document, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Parse decodes data into a ready snapshot.
func Parse(data []byte, format Format) (*Snapshot, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(doc)
}

func checkSchema(doc gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, doc)
	if err != nil {
		return fmt.Errorf("validate catalog schema: %w", err)
	}
	if result.Valid() {
		return nil
	}
	ve := &ValidationError{}
	for _, desc := range result.Errors() {
		ve.Problems = append(ve.Problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	sort.Strings(ve.Problems)
	return ve
}
