package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/rediwo/redi-eager/logger"
	"github.com/rediwo/redi-eager/registry"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	for _, d := range []*Dialect{SQLite, MySQL, PostgreSQL} {
		dialect := d
		registry.Register(dialect.Type, func(ctx context.Context, nativeURI string) (types.Backend, error) {
			return Open(ctx, dialect, nativeURI, WithLogger(logger.GetGlobalLogger()))
		})
	}
	registry.RegisterURIParser(NewSQLiteURIParser())
	registry.RegisterURIParser(NewMySQLURIParser())
	registry.RegisterURIParser(NewPostgreSQLURIParser())
}

// DefaultConnectTimeout bounds the ping retries in Open.
const DefaultConnectTimeout = 10 * time.Second

// DB is a SQL backend over database/sql.
type DB struct {
	db      *sql.DB
	dialect *Dialect
	mapper  types.FieldMapper
	// idFields holds primary keys other than "id", by model.
	idFields map[string]string
	logger   *logger.QueryLogger
	caps     types.Capabilities

	connectTimeout time.Duration
}

// Option configures a DB
type Option func(*DB)

// WithLogger sets the logger for SQL statements
func WithLogger(l logger.Logger) Option {
	return func(d *DB) { d.logger = logger.NewQueryLogger(l) }
}

// WithFieldMapper sets the model to table name mapper
func WithFieldMapper(m types.FieldMapper) Option {
	return func(d *DB) { d.mapper = m }
}

// WithCapabilities overrides what the dialect reports.
func WithCapabilities(caps types.Capabilities) Option {
	return func(d *DB) { d.caps = caps }
}

// WithConnectTimeout bounds the initial ping
func WithConnectTimeout(timeout time.Duration) Option {
	return func(d *DB) { d.connectTimeout = timeout }
}

// New wraps an open *sql.DB.
func New(db *sql.DB, dialect *Dialect, opts ...Option) *DB {
	d := &DB{
		db:             db,
		dialect:        dialect,
		mapper:         types.NewDefaultFieldMapper(),
		idFields:       make(map[string]string),
		logger:         logger.NewQueryLogger(nil),
		caps:           dialect.Capabilities,
		connectTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open connects with the dialect's driver and pings until the database
// answers or the connect timeout passes.
func Open(ctx context.Context, dialect *Dialect, dsn string, opts ...Option) (*DB, error) {
	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Type, err)
	}
	if dialect == SQLite && strings.Contains(dsn, ":memory:") {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	d := New(db, dialect, opts...)
	if err := d.ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) ping(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = d.connectTimeout

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := d.db.PingContext(ctx)
		if err != nil {
			d.logger.Warn("ping %s failed (attempt %d): %v", d.dialect.Type, attempt, err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return fmt.Errorf("failed to ping %s database: %w", d.dialect.Type, err)
	}
	return nil
}

// DriverType returns the dialect's driver type
func (d *DB) DriverType() types.DriverType { return d.dialect.Type }

// Capabilities returns the dialect's capabilities
func (d *DB) Capabilities() types.Capabilities { return d.caps }

// Dialect returns the SQL dialect
func (d *DB) Dialect() *Dialect { return d.dialect }

// SQL returns the underlying connection pool
func (d *DB) SQL() *sql.DB { return d.db }

// Close closes the connection pool
func (d *DB) Close() error {
	return d.db.Close()
}

// UseSchemas takes primary keys from every model of reg, and table and
// column overrides when the default field mapper is in use.
func (d *DB) UseSchemas(reg *schema.Registry) {
	for _, name := range reg.Models() {
		s, _ := reg.Schema(name)
		d.idFields[s.Name] = s.IDField()
	}
	m, ok := d.mapper.(*types.DefaultFieldMapper)
	if !ok {
		return
	}
	for _, name := range reg.Models() {
		s, _ := reg.Schema(name)
		if s.TableName != "" {
			m.SetTable(s.Name, s.TableName)
		}
		for _, f := range s.Fields {
			if f.Map != "" {
				m.SetColumn(s.Name, f.Name, f.Map)
			}
		}
	}
}

func (d *DB) table(model string) string {
	return d.dialect.Quote(d.mapper.ModelToTable(model))
}

func (d *DB) column(model string) func(string) string {
	return func(field string) string {
		return d.dialect.Quote(d.mapper.FieldToColumn(model, field))
	}
}

// selectSQL builds the SELECT for a find.
func (d *DB) selectSQL(model string, where types.Condition, opts types.FindOptions) (string, []any, error) {
	column := d.column(model)

	columns := []string{"*"}
	if len(opts.Fields) > 0 {
		columns = make([]string, len(opts.Fields))
		for i, f := range opts.Fields {
			columns[i] = column(f)
		}
	}

	builder := sq.Select(columns...).From(d.table(model)).PlaceholderFormat(d.dialect.Placeholder)
	if where != nil {
		pred, err := conditionToSQL(where, column)
		if err != nil {
			return "", nil, err
		}
		builder = builder.Where(pred)
	}
	for _, ob := range opts.Order {
		builder = builder.OrderBy(column(ob.Field) + " " + ob.Direction.String())
	}
	if opts.Limit > 0 {
		builder = builder.Limit(uint64(opts.Limit))
	}
	if opts.Skip > 0 {
		if opts.Limit <= 0 && d.dialect.MaxOffsetLimit > 0 {
			builder = builder.Limit(d.dialect.MaxOffsetLimit)
		}
		builder = builder.Offset(uint64(opts.Skip))
	}
	return builder.ToSql()
}

// Find runs a SELECT for model filtered by where
func (d *DB) Find(ctx context.Context, model string, where types.Condition, opts types.FindOptions) ([]types.Record, error) {
	query, args, err := d.selectSQL(model, where, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build query for %s: %w", model, err)
	}

	start := time.Now()
	rows, err := d.db.QueryContext(ctx, query, args...)
	d.logger.LogSQL(query, args, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", model, err)
	}
	defer rows.Close()

	return d.scanRecords(model, rows)
}

func (d *DB) scanRecords(model string, rows *sql.Rows) ([]types.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	fields := make([]string, len(cols))
	for i, c := range cols {
		fields[i] = d.mapper.ColumnToField(model, c)
	}

	var out []types.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", model, err)
		}
		rec := make(types.Record, len(cols))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rec[fields[i]] = v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Create inserts data and returns it with the generated id.
func (d *DB) Create(ctx context.Context, model string, data types.Record) (types.Record, error) {
	column := d.column(model)
	idField := d.idField(model)

	fields := make([]string, 0, len(data))
	for f := range data {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	columns := make([]string, len(fields))
	values := make([]any, len(fields))
	for i, f := range fields {
		columns[i] = column(f)
		values[i] = data[f]
	}

	query, args, err := d.insertSQL(model, columns, values)
	if err != nil {
		return nil, fmt.Errorf("failed to build insert for %s: %w", model, err)
	}

	rec := data.Clone()
	start := time.Now()
	if d.dialect.Returning {
		query += " RETURNING " + column(idField)
		var id any
		err = d.db.QueryRowContext(ctx, query, args...).Scan(&id)
		d.logger.LogSQL(query, args, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s: %w", model, err)
		}
		if b, ok := id.([]byte); ok {
			id = string(b)
		}
		rec[idField] = id
		return rec, nil
	}

	res, err := d.db.ExecContext(ctx, query, args...)
	d.logger.LogSQL(query, args, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", model, err)
	}
	if _, ok := rec[idField]; !ok {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read id of %s: %w", model, err)
		}
		rec[idField] = id
	}
	return rec, nil
}

func (d *DB) insertSQL(model string, columns []string, values []any) (string, []any, error) {
	if len(columns) == 0 {
		// squirrel refuses an insert without values
		if d.dialect == MySQL {
			return "INSERT INTO " + d.table(model) + " () VALUES ()", nil, nil
		}
		return "INSERT INTO " + d.table(model) + " DEFAULT VALUES", nil, nil
	}
	return sq.Insert(d.table(model)).
		Columns(columns...).
		Values(values...).
		PlaceholderFormat(d.dialect.Placeholder).
		ToSql()
}

func (d *DB) idField(model string) string {
	if f, ok := d.idFields[model]; ok {
		return f
	}
	return schema.DefaultIDField
}

// Sync creates a table for every model of reg that does not have one.
// Models without declared fields get only their id column.
func (d *DB) Sync(ctx context.Context, reg *schema.Registry) error {
	d.UseSchemas(reg)
	for _, name := range reg.Models() {
		s, _ := reg.Schema(name)
		stmt := d.createTableSQL(s)
		start := time.Now()
		_, err := d.db.ExecContext(ctx, stmt)
		d.logger.LogSQL(stmt, nil, time.Since(start))
		if err != nil {
			return fmt.Errorf("failed to create table for %s: %w", name, err)
		}
	}
	return nil
}

func (d *DB) createTableSQL(s *schema.Schema) string {
	column := d.column(s.Name)
	idField := s.IDField()

	defs := []string{column(idField) + " " + d.dialect.autoID}
	for _, f := range s.Fields {
		if f.Name == idField {
			continue
		}
		defs = append(defs, column(f.Name)+" "+d.dialect.columnType(f.Type))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.table(s.Name), strings.Join(defs, ", "))
}
