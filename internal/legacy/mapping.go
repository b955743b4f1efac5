// Package legacy loads the plant's historical CSV exports into the legacy tables that
// feed the production ledger and job views.
package legacy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ColumnType controls how raw CSV values are cleaned.
type ColumnType string

const (
	TypeText      ColumnType = "text"
	TypeInt       ColumnType = "int"
	TypeDecimal   ColumnType = "decimal"
	TypeDate      ColumnType = "date"
	TypeTimestamp ColumnType = "timestamp"
)

// Column is a target table column.
type Column struct {
	Name string     `yaml:"name"`
	Type ColumnType `yaml:"type"`
}

// FileSpec maps one CSV file onto one table.
type FileSpec struct {
	File    string   `yaml:"file"`
	Table   string   `yaml:"table"`
	Columns []Column `yaml:"columns"`
}

// Mapping is the import configuration. Overrides map raw CSV headers to column names
// and take precedence over inferred names.
type Mapping struct {
	Overrides map[string]string `yaml:"overrides"`
	Files     []FileSpec        `yaml:"files"`
}

// LoadMapping reads and validates a YAML mapping file.
func LoadMapping(path string) (Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Mapping{}, fmt.Errorf("read legacy mapping: %w", err)
	}
	return ParseMapping(raw)
}

// ParseMapping decodes and validates mapping YAML.
func ParseMapping(raw []byte) (Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Mapping{}, fmt.Errorf("decode legacy mapping: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Mapping{}, err
	}
	return m, nil
}

// Validate checks that every file names a table and columns with known types.
func (m Mapping) Validate() error {
	if len(m.Files) == 0 {
		return fmt.Errorf("legacy mapping: no files configured")
	}
	for _, f := range m.Files {
		if f.File == "" || f.Table == "" {
			return fmt.Errorf("legacy mapping: file and table are required")
		}
		if len(f.Columns) == 0 {
			return fmt.Errorf("legacy mapping: %s has no columns", f.File)
		}
		seen := make(map[string]bool, len(f.Columns))
		for _, c := range f.Columns {
			switch c.Type {
			case TypeText, TypeInt, TypeDecimal, TypeDate, TypeTimestamp:
			default:
				return fmt.Errorf("legacy mapping: %s.%s has unknown type %q", f.Table, c.Name, c.Type)
			}
			if seen[c.Name] {
				return fmt.Errorf("legacy mapping: %s.%s listed twice", f.Table, c.Name)
			}
			seen[c.Name] = true
		}
	}
	return nil
}

func (f FileSpec) column(name string) (Column, bool) {
	for _, c := range f.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
