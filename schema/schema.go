package schema

import (
	"fmt"
)

type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeNumber   FieldType = "number"
	FieldTypeInt      FieldType = "int"
	FieldTypeFloat    FieldType = "float"
	FieldTypeBool     FieldType = "bool"
	FieldTypeDateTime FieldType = "datetime"
	FieldTypeJSON     FieldType = "json"
	FieldTypeAny      FieldType = "any"
)

// ParseFieldType accepts the loose type names used in JSON model
// definitions ("String", "Number", "boolean", "date", ...).
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "string", "String", "text":
		return FieldTypeString, nil
	case "number", "Number":
		return FieldTypeNumber, nil
	case "int", "integer", "Integer":
		return FieldTypeInt, nil
	case "float", "double", "Double":
		return FieldTypeFloat, nil
	case "bool", "boolean", "Boolean":
		return FieldTypeBool, nil
	case "date", "Date", "datetime", "DateTime":
		return FieldTypeDateTime, nil
	case "object", "Object", "json", "array", "Array":
		return FieldTypeJSON, nil
	case "any", "":
		return FieldTypeAny, nil
	default:
		return "", fmt.Errorf("unknown field type %q", s)
	}
}

type Field struct {
	Name       string
	Type       FieldType
	PrimaryKey bool
	Nullable   bool
	Map        string // column or document key override
}

// Schema describes one model. Relations are declared through a Registry.
type Schema struct {
	Name      string
	TableName string
	Fields    []Field
}

func New(name string) *Schema {
	return &Schema{Name: name}
}

func (s *Schema) WithTableName(name string) *Schema {
	s.TableName = name
	return s
}

func (s *Schema) AddField(field Field) *Schema {
	s.Fields = append(s.Fields, field)
	return s
}

func (s *Schema) GetField(name string) (*Field, error) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], nil
		}
	}
	return nil, fmt.Errorf("field %s not found in model %s", name, s.Name)
}

// HasField reports whether name is a declared field.
func (s *Schema) HasField(name string) bool {
	_, err := s.GetField(name)
	return err == nil
}

// IDField returns the primary key field name, "id" unless declared otherwise.
func (s *Schema) IDField() string {
	for _, f := range s.Fields {
		if f.PrimaryKey {
			return f.Name
		}
	}
	return DefaultIDField
}

// FieldNames lists declared fields in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	seen := make(map[string]bool, len(s.Fields))
	primaryKeys := 0
	for _, field := range s.Fields {
		if seen[field.Name] {
			return fmt.Errorf("model %s: duplicate field %s", s.Name, field.Name)
		}
		seen[field.Name] = true
		if field.PrimaryKey {
			primaryKeys++
		}
	}
	if primaryKeys > 1 {
		return fmt.Errorf("model %s: composite primary keys are not supported", s.Name)
	}
	return nil
}

// DefaultIDField is the primary key of models that do not declare one.
const DefaultIDField = "id"
