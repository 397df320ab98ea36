package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Column declares one column of a descriptor file.
type Column struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	Nullable bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
}

// Descriptor is the on-disk form of a column layout:
//
//	columns:
//	  - name: id
//	    type: Int32
//	  - name: name
//	    type: Nullable(String)
type Descriptor struct {
	Columns  []Column          `yaml:"columns" json:"columns"`
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// LoadDescriptor reads a descriptor file; .json files are decoded as JSON,
// anything else as YAML.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor file: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return ParseDescriptor(data, format)
}

// ParseDescriptor decodes a descriptor in the given format (yaml or json).
func ParseDescriptor(data []byte, format string) (*Descriptor, error) {
	var d Descriptor
	switch format {
	case "json":
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to parse JSON descriptor: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to parse YAML descriptor: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported descriptor format %q", format)
	}
	if len(d.Columns) == 0 {
		return nil, fmt.Errorf("descriptor declares no columns")
	}
	return &d, nil
}

// ArrowSchema resolves the declared columns into an Arrow schema.
func (d *Descriptor) ArrowSchema() (*arrow.Schema, error) {
	seen := make(map[string]struct{}, len(d.Columns))
	fields := make([]arrow.Field, 0, len(d.Columns))
	for i, c := range d.Columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}

		dt, wrapped, err := ParseType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		fields = append(fields, arrow.Field{Name: c.Name, Type: dt, Nullable: c.Nullable || wrapped})
	}

	var md *arrow.Metadata
	if len(d.Metadata) > 0 {
		m := arrow.MetadataFrom(d.Metadata)
		md = &m
	}
	return arrow.NewSchema(fields, md), nil
}

// DescriptorFromArrow renders s as a descriptor, using the Nullable(T)
// notation for nullable columns.
func DescriptorFromArrow(s *arrow.Schema) *Descriptor {
	d := &Descriptor{Columns: make([]Column, 0, s.NumFields())}
	for _, f := range s.Fields() {
		d.Columns = append(d.Columns, Column{Name: f.Name, Type: FormatType(f)})
	}
	if md := s.Metadata(); md.Len() > 0 {
		d.Metadata = make(map[string]string, md.Len())
		for i, k := range md.Keys() {
			d.Metadata[k] = md.Values()[i]
		}
	}
	return d
}
