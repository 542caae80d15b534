package types

import (
	"fmt"
	"sync"
	"unicode"

	"github.com/jinzhu/inflection"
	"github.com/rediwo/redi-eager/utils"
)

// FieldMapper maps model and field names onto table and column names.
type FieldMapper interface {
	ModelToTable(model string) string
	FieldToColumn(model, field string) string
	ColumnToField(model, column string) string
}

// DefaultFieldMapper uses snake_case columns and pluralized snake_case
// tables unless a model registers explicit names.
type DefaultFieldMapper struct {
	mu      sync.RWMutex
	tables  map[string]string
	columns map[string]map[string]string // model -> field -> column
	fields  map[string]map[string]string // model -> column -> field
}

func NewDefaultFieldMapper() *DefaultFieldMapper {
	return &DefaultFieldMapper{
		tables:  make(map[string]string),
		columns: make(map[string]map[string]string),
		fields:  make(map[string]map[string]string),
	}
}

// SetTable overrides the table name for a model.
func (m *DefaultFieldMapper) SetTable(model, table string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[model] = table
}

// SetColumn overrides the column name for one field.
func (m *DefaultFieldMapper) SetColumn(model, field, column string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.columns[model] == nil {
		m.columns[model] = make(map[string]string)
		m.fields[model] = make(map[string]string)
	}
	m.columns[model][field] = column
	m.fields[model][column] = field
}

func (m *DefaultFieldMapper) ModelToTable(model string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tables[model]; ok {
		return t
	}
	return ModelNameToTableName(model)
}

func (m *DefaultFieldMapper) FieldToColumn(model, field string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.columns[model][field]; ok {
		return c
	}
	return utils.ToSnakeCase(field)
}

func (m *DefaultFieldMapper) ColumnToField(model, column string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.fields[model][column]; ok {
		return f
	}
	return utils.ToCamelCase(column)
}

// ModelNameToTableName converts a model name to its default table name:
// "AccessToken" -> "access_tokens".
func ModelNameToTableName(model string) string {
	return inflection.Plural(utils.ToSnakeCase(model))
}

// ValidateFieldName checks that name is usable as a field or column name.
func ValidateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("field name cannot be empty")
	}

	for i, r := range name {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return fmt.Errorf("field name %q must start with a letter or underscore", name)
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return fmt.Errorf("field name %q can only contain letters, digits, and underscores", name)
		}
	}

	return nil
}
