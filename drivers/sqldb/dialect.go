package sqldb

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

// Dialect holds what differs between the SQL databases.
type Dialect struct {
	Type       types.DriverType
	DriverName string // database/sql driver name
	// Placeholder is the bind variable style for squirrel.
	Placeholder sq.PlaceholderFormat
	// QuoteChar wraps identifiers.
	QuoteChar string
	// Returning means INSERT ... RETURNING yields the new id.
	Returning bool
	// MaxOffsetLimit is the LIMIT used when only OFFSET is set, for
	// databases that reject a bare OFFSET.
	MaxOffsetLimit uint64

	Capabilities types.Capabilities

	columnTypes map[schema.FieldType]string
	autoID      string
}

var (
	SQLite = &Dialect{
		Type:           types.DriverSQLite,
		DriverName:     "sqlite3",
		Placeholder:    sq.Question,
		QuoteChar:      "`",
		Returning:      true,
		MaxOffsetLimit: 1<<63 - 1,
		Capabilities: types.Capabilities{
			BatchedKeyLookup:        true,
			AdHocSortOnBatchedQuery: true,
			MaxKeysPerBatch:         999,
		},
		columnTypes: map[schema.FieldType]string{
			schema.FieldTypeString:   "TEXT",
			schema.FieldTypeNumber:   "NUMERIC",
			schema.FieldTypeInt:      "INTEGER",
			schema.FieldTypeFloat:    "REAL",
			schema.FieldTypeBool:     "INTEGER",
			schema.FieldTypeDateTime: "DATETIME",
			schema.FieldTypeJSON:     "TEXT",
		},
		autoID: "INTEGER PRIMARY KEY AUTOINCREMENT",
	}

	MySQL = &Dialect{
		Type:           types.DriverMySQL,
		DriverName:     "mysql",
		Placeholder:    sq.Question,
		QuoteChar:      "`",
		MaxOffsetLimit: 1<<64 - 1,
		Capabilities: types.Capabilities{
			BatchedKeyLookup:        true,
			AdHocSortOnBatchedQuery: true,
			MaxKeysPerBatch:         65535,
		},
		columnTypes: map[schema.FieldType]string{
			schema.FieldTypeString:   "VARCHAR(255)",
			schema.FieldTypeNumber:   "DOUBLE",
			schema.FieldTypeInt:      "BIGINT",
			schema.FieldTypeFloat:    "DOUBLE",
			schema.FieldTypeBool:     "BOOLEAN",
			schema.FieldTypeDateTime: "DATETIME",
			schema.FieldTypeJSON:     "JSON",
		},
		autoID: "BIGINT AUTO_INCREMENT PRIMARY KEY",
	}

	PostgreSQL = &Dialect{
		Type:        types.DriverPostgreSQL,
		DriverName:  "postgres",
		Placeholder: sq.Dollar,
		QuoteChar:   `"`,
		Returning:   true,
		Capabilities: types.Capabilities{
			BatchedKeyLookup:        true,
			AdHocSortOnBatchedQuery: true,
			MaxKeysPerBatch:         65535,
		},
		columnTypes: map[schema.FieldType]string{
			schema.FieldTypeString:   "TEXT",
			schema.FieldTypeNumber:   "DOUBLE PRECISION",
			schema.FieldTypeInt:      "BIGINT",
			schema.FieldTypeFloat:    "DOUBLE PRECISION",
			schema.FieldTypeBool:     "BOOLEAN",
			schema.FieldTypeDateTime: "TIMESTAMP",
			schema.FieldTypeJSON:     "JSONB",
		},
		autoID: "BIGSERIAL PRIMARY KEY",
	}
)

// DialectFor returns the dialect of a driver type.
func DialectFor(t types.DriverType) (*Dialect, error) {
	switch t {
	case types.DriverSQLite:
		return SQLite, nil
	case types.DriverMySQL:
		return MySQL, nil
	case types.DriverPostgreSQL:
		return PostgreSQL, nil
	default:
		return nil, fmt.Errorf("no SQL dialect for driver %s", t)
	}
}

func (d *Dialect) Quote(name string) string {
	return d.QuoteChar + strings.ReplaceAll(name, d.QuoteChar, d.QuoteChar+d.QuoteChar) + d.QuoteChar
}

func (d *Dialect) columnType(t schema.FieldType) string {
	if ct, ok := d.columnTypes[t]; ok {
		return ct
	}
	return d.columnTypes[schema.FieldTypeString]
}
