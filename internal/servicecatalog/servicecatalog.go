// Package servicecatalog serves the table of platform APIs published to
// the front end. Rows come from a CSV, JSON or YAML file with loosely named
// columns.
package servicecatalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Service is one catalog row.
type Service struct {
	ServiceName    string `json:"service_name" mapstructure:"service_name"`
	Method         string `json:"method" mapstructure:"method"`
	Path           string `json:"path" mapstructure:"path"`
	Summary        string `json:"summary,omitempty" mapstructure:"summary"`
	RequestSchema  any    `json:"request_schema" mapstructure:"request_schema"`
	ResponseSchema any    `json:"response_schema" mapstructure:"response_schema"`
	Owner          string `json:"owner,omitempty" mapstructure:"owner"`
	Version        string `json:"version,omitempty" mapstructure:"version"`
	Tags           any    `json:"tags" mapstructure:"tags"`
}

// canonKeys lists accepted header spellings per field, in preference order.
var canonKeys = []struct {
	canon    string
	variants []string
}{
	{"service_name", []string{"service_name", "name", "api_name", "service"}},
	{"method", []string{"method", "http_method", "verb"}},
	{"path", []string{"path", "endpoint", "route", "url"}},
	{"summary", []string{"summary", "description", "desc"}},
	{"request_schema", []string{"request_schema", "request", "request_fields", "request_body"}},
	{"response_schema", []string{"response_schema", "response", "response_fields", "response_body"}},
	{"owner", []string{"owner", "team", "contact"}},
	{"version", []string{"version", "ver"}},
	{"tags", []string{"tags", "label", "labels"}},
}

var jsonishFields = []string{"request_schema", "response_schema", "tags"}

// ErrUnsupportedFormat is returned for files that are not CSV, JSON or YAML.
var ErrUnsupportedFormat = errors.New("unsupported service catalog format")

// LoadFile reads a catalog file. The format follows the extension.
func LoadFile(path string) ([]Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service catalog %s: %w", path, err)
	}
	return Parse(data, strings.ToLower(filepath.Ext(path)))
}

// Parse decodes catalog rows. ext is ".csv", ".json", ".yaml" or ".yml".
func Parse(data []byte, ext string) ([]Service, error) {
	var (
		header []string
		rows   []map[string]any
		err    error
	)
	switch ext {
	case ".csv":
		header, rows, err = readCSV(data)
	case ".json":
		err = json.Unmarshal(data, &rows)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rows)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode service catalog: %w", err)
	}
	if len(rows) == 0 {
		return []Service{}, nil
	}
	if header == nil {
		header = headerOf(rows)
	}

	mapping := canonMap(header)
	if !hasRequired(mapping) {
		// Unrecognised headers: take the first three columns positionally.
		if len(header) < 3 || ext != ".csv" {
			return []Service{}, nil
		}
		mapping["service_name"], mapping["method"], mapping["path"] = header[0], header[1], header[2]
	}

	out := make([]Service, 0, len(rows))
	for i, row := range rows {
		svc, err := decodeRow(row, mapping)
		if err != nil {
			return nil, fmt.Errorf("service catalog row %d: %w", i+1, err)
		}
		if svc.ServiceName == "" || svc.Path == "" {
			continue
		}
		out = append(out, svc)
	}
	return out, nil
}

func decodeRow(row map[string]any, mapping map[string]string) (Service, error) {
	canon := make(map[string]any, len(mapping))
	for field, col := range mapping {
		canon[field] = row[col]
	}
	for _, field := range jsonishFields {
		canon[field] = coerceJSONish(canon[field])
	}

	var svc Service
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &svc,
		WeaklyTypedInput: true,
		ZeroFields:       true,
	})
	if err != nil {
		return Service{}, err
	}
	if err := dec.Decode(canon); err != nil {
		return Service{}, err
	}
	svc.ServiceName = strings.TrimSpace(svc.ServiceName)
	svc.Path = strings.TrimSpace(svc.Path)
	svc.Method = strings.ToUpper(strings.TrimSpace(svc.Method))
	if svc.Method == "" {
		svc.Method = "GET"
	}
	svc.Summary = strings.TrimSpace(svc.Summary)
	svc.Owner = strings.TrimSpace(svc.Owner)
	svc.Version = strings.TrimSpace(svc.Version)
	return svc, nil
}

// coerceJSONish parses string cells holding JSON. Blank cells become nil
// and other strings are kept verbatim.
func coerceJSONish(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err == nil {
		return parsed
	}
	return s
}

func normHeader(col string) string {
	r := strings.NewReplacer(" ", "", "-", "", "_", "")
	return r.Replace(strings.ToLower(strings.TrimSpace(col)))
}

// canonMap maps canonical fields to the source column that carries them.
func canonMap(header []string) map[string]string {
	cols := make(map[string]string, len(header))
	for _, h := range header {
		if _, seen := cols[normHeader(h)]; !seen {
			cols[normHeader(h)] = h
		}
	}
	mapping := make(map[string]string)
	for _, ck := range canonKeys {
		for _, v := range ck.variants {
			if col, ok := cols[normHeader(v)]; ok {
				mapping[ck.canon] = col
				break
			}
		}
	}
	return mapping
}

func hasRequired(mapping map[string]string) bool {
	for _, k := range []string{"service_name", "method", "path"} {
		if _, ok := mapping[k]; !ok {
			return false
		}
	}
	return true
}

func headerOf(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	var header []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			header = append(header, k)
		}
	}
	return header
}

func readCSV(data []byte) ([]string, []map[string]any, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var rows []map[string]any
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// Registry serves the catalog file, re-reading it when it changes on disk.
type Registry struct {
	Path string

	mu       sync.Mutex
	modTime  time.Time
	size     int64
	services []Service
}

// NewRegistry creates a registry over path. An empty path serves nothing.
func NewRegistry(path string) *Registry {
	return &Registry{Path: strings.TrimSpace(path)}
}

// List returns the current rows. A missing file yields an empty catalog.
func (r *Registry) List() ([]Service, error) {
	if r == nil || r.Path == "" {
		return []Service{}, nil
	}
	info, err := os.Stat(r.Path)
	if errors.Is(err, os.ErrNotExist) {
		return []Service{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat service catalog: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.services != nil && info.ModTime().Equal(r.modTime) && info.Size() == r.size {
		return r.services, nil
	}
	services, err := LoadFile(r.Path)
	if err != nil {
		return nil, err
	}
	r.services, r.modTime, r.size = services, info.ModTime(), info.Size()
	return services, nil
}
