package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rediwo/redi-eager/logger"
	"github.com/rediwo/redi-eager/registry"
	"github.com/rediwo/redi-eager/types"
	"github.com/rediwo/redi-eager/utils"
)

func init() {
	registry.Register(types.DriverMemory, func(ctx context.Context, nativeURI string) (types.Backend, error) {
		caps, err := parseCapabilities(nativeURI)
		if err != nil {
			return nil, err
		}
		return New(WithCapabilities(caps), WithLogger(logger.GetGlobalLogger())), nil
	})
	registry.RegisterURIParser(NewMemoryURIParser())
}

// ErrBatchedLookup is returned by Find when a key set filter reaches a
// backend configured without batched key lookup.
var ErrBatchedLookup = errors.New("memory: batched key lookup disabled")

// DefaultCapabilities is a fully capable backend.
var DefaultCapabilities = types.Capabilities{
	BatchedKeyLookup:        true,
	AdHocSortOnBatchedQuery: true,
}

// DB is an in-process backend. Records are kept per model in insertion
// order; ids are assigned from a per-model counter when missing.
type DB struct {
	mu      sync.RWMutex
	tables  map[string][]types.Record
	nextID  map[string]int64
	idField map[string]string

	caps   types.Capabilities
	logger *logger.QueryLogger
	closed bool
}

// Option configures a DB
type Option func(*DB)

// WithCapabilities overrides the advertised capabilities
func WithCapabilities(caps types.Capabilities) Option {
	return func(db *DB) { db.caps = caps }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(db *DB) { db.logger = logger.NewQueryLogger(l) }
}

// WithIDField sets the primary key field of model. The default is "id".
func WithIDField(model, field string) Option {
	return func(db *DB) { db.idField[model] = field }
}

// New creates an empty in-memory database
func New(opts ...Option) *DB {
	db := &DB{
		tables:  make(map[string][]types.Record),
		nextID:  make(map[string]int64),
		idField: make(map[string]string),
		caps:    DefaultCapabilities,
		logger:  logger.NewQueryLogger(nil),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// DriverType returns the driver type
func (db *DB) DriverType() types.DriverType { return types.DriverMemory }

// Capabilities returns the advertised capabilities
func (db *DB) Capabilities() types.Capabilities {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.caps
}

// SetCapabilities switches what the backend reports and enforces.
func (db *DB) SetCapabilities(caps types.Capabilities) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.caps = caps
}

// Close releases all stored records
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	return nil
}

func (db *DB) idFieldOf(model string) string {
	if f, ok := db.idField[model]; ok {
		return f
	}
	return "id"
}

// Create stores a copy of data and returns it with its id filled in.
func (db *DB) Create(ctx context.Context, model string, data types.Record) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, fmt.Errorf("memory: database is closed")
	}

	rec := data.Clone()
	idField := db.idFieldOf(model)
	if id, ok := rec[idField]; !ok || id == nil {
		db.nextID[model]++
		rec[idField] = db.nextID[model]
	} else {
		if utils.IsInteger(id) {
			db.nextID[model] = max(db.nextID[model], utils.ToInt64(id))
		}
		for _, existing := range db.tables[model] {
			if utils.Equal(existing[idField], id) {
				return nil, fmt.Errorf("memory: duplicate %s %v for model %s", idField, id, model)
			}
		}
	}
	db.tables[model] = append(db.tables[model], rec)
	return rec.Clone(), nil
}

// Save replaces the record with the same id, or creates it.
func (db *DB) Save(ctx context.Context, model string, data types.Record) (types.Record, error) {
	idField := db.idFieldOf(model)
	id := data[idField]
	if id != nil {
		db.mu.Lock()
		for i, existing := range db.tables[model] {
			if utils.Equal(existing[idField], id) {
				rec := data.Clone()
				db.tables[model][i] = rec
				db.mu.Unlock()
				return rec.Clone(), nil
			}
		}
		db.mu.Unlock()
	}
	return db.Create(ctx, model, data)
}

// Destroy deletes every record matching where and returns how many went.
// A nil where deletes all records of model.
func (db *DB) Destroy(ctx context.Context, model string, where types.Condition) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	kept := db.tables[model][:0]
	removed := 0
	for _, rec := range db.tables[model] {
		if where == nil || where.Match(rec) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	db.tables[model] = kept
	return removed, nil
}

// Count returns the number of records matching where.
func (db *DB) Count(ctx context.Context, model string, where types.Condition) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()

	n := 0
	for _, rec := range db.tables[model] {
		if where == nil || where.Match(rec) {
			n++
		}
	}
	return n, nil
}

// Find filters, sorts, windows and projects the records of model.
// Batched queries ignore order, limit and skip unless the backend is
// configured with AdHocSortOnBatchedQuery.
func (db *DB) Find(ctx context.Context, model string, where types.Condition, opts types.FindOptions) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	db.mu.RLock()
	caps := db.caps
	closed := db.closed
	var matched []types.Record
	for _, rec := range db.tables[model] {
		if where == nil || where.Match(rec) {
			matched = append(matched, rec.Clone())
		}
	}
	db.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("memory: database is closed")
	}

	batched := keySetSize(where) > 1
	if batched && !caps.BatchedKeyLookup {
		return nil, fmt.Errorf("%w: %s", ErrBatchedLookup, where)
	}
	if caps.MaxKeysPerBatch > 0 && keySetSize(where) > caps.MaxKeysPerBatch {
		return nil, fmt.Errorf("memory: %d keys exceed the batch maximum of %d", keySetSize(where), caps.MaxKeysPerBatch)
	}

	if !batched || caps.AdHocSortOnBatchedQuery {
		types.SortRecords(matched, opts.Order)
		matched = types.Paginate(matched, opts.Skip, opts.Limit)
	}

	out := make([]types.Record, len(matched))
	for i, rec := range matched {
		out[i] = rec.Project(opts.Fields)
	}

	filter := ""
	if where != nil {
		filter = where.String()
	}
	db.logger.LogFind(model, filter, len(out), time.Since(start))
	return out, nil
}

// keySetSize is the largest inq set anywhere in cond.
func keySetSize(cond types.Condition) int {
	switch c := cond.(type) {
	case *types.FieldCondition:
		if c.Op == types.OpIn {
			return len(c.Values())
		}
	case *types.AndCondition:
		return maxKeySet(c.Conditions)
	case *types.OrCondition:
		return maxKeySet(c.Conditions)
	case *types.NotCondition:
		return keySetSize(c.Condition)
	}
	return 0
}

func maxKeySet(conds []types.Condition) int {
	n := 0
	for _, c := range conds {
		n = max(n, keySetSize(c))
	}
	return n
}
