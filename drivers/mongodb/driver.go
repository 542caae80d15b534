package mongodb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rediwo/redi-eager/logger"
	"github.com/rediwo/redi-eager/registry"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	registry.Register(types.DriverMongoDB, func(ctx context.Context, nativeURI string) (types.Backend, error) {
		return Open(ctx, nativeURI, WithLogger(logger.GetGlobalLogger()))
	})
	registry.RegisterURIParser(NewMongoDBURIParser())
}

// DefaultCapabilities: $in filters, server side sort and paging on any query.
var DefaultCapabilities = types.Capabilities{
	BatchedKeyLookup:        true,
	AdHocSortOnBatchedQuery: true,
}

const (
	idKey              = "_id"
	sequenceCollection = "redi_sequences"

	DefaultConnectTimeout = 10 * time.Second
)

// DB is a MongoDB backend. Each model is stored in a collection named
// after the model, with the model's id field kept in _id.
type DB struct {
	client   *mongo.Client
	database *mongo.Database
	idFields map[string]string
	logger   *logger.QueryLogger
	caps     types.Capabilities

	connectTimeout time.Duration
}

// Option configures a DB
type Option func(*DB)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(d *DB) { d.logger = logger.NewQueryLogger(l) }
}

// WithCapabilities overrides the advertised capabilities
func WithCapabilities(caps types.Capabilities) Option {
	return func(d *DB) { d.caps = caps }
}

// WithConnectTimeout bounds connecting and the initial ping
func WithConnectTimeout(timeout time.Duration) Option {
	return func(d *DB) { d.connectTimeout = timeout }
}

// Open connects to the database named in uri and pings it with retries.
func Open(ctx context.Context, uri string, opts ...Option) (*DB, error) {
	dbName, err := databaseName(uri)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	d := New(client, dbName, opts...)
	if err := d.ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return d, nil
}

// New wraps a connected client.
func New(client *mongo.Client, dbName string, opts ...Option) *DB {
	d := &DB{
		client:         client,
		database:       client.Database(dbName),
		idFields:       make(map[string]string),
		logger:         logger.NewQueryLogger(nil),
		caps:           DefaultCapabilities,
		connectTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DB) ping(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = d.connectTimeout

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := d.client.Ping(ctx, nil)
		if err != nil {
			d.logger.Warn("ping mongodb failed (attempt %d): %v", attempt, err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return nil
}

func databaseName(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid URI format: %w", err)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", fmt.Errorf("database name is required in MongoDB URI")
	}
	return name, nil
}

// DriverType returns the driver type
func (d *DB) DriverType() types.DriverType { return types.DriverMongoDB }

// Capabilities returns the advertised capabilities
func (d *DB) Capabilities() types.Capabilities { return d.caps }

// Database returns the underlying database handle
func (d *DB) Database() *mongo.Database { return d.database }

// Close disconnects the client
func (d *DB) Close() error {
	return d.client.Disconnect(context.Background())
}

// UseSchemas takes the primary key of every model in reg.
func (d *DB) UseSchemas(reg *schema.Registry) {
	for _, name := range reg.Models() {
		s, _ := reg.Schema(name)
		d.idFields[s.Name] = s.IDField()
	}
}

func (d *DB) idField(model string) string {
	if f, ok := d.idFields[model]; ok {
		return f
	}
	return schema.DefaultIDField
}

func (d *DB) keyMapper(model string) func(string) string {
	idField := d.idField(model)
	return func(field string) string {
		if field == idField {
			return idKey
		}
		return field
	}
}

// findOptions converts FindOptions into driver options.
func (d *DB) findOptions(model string, opts types.FindOptions) *options.FindOptions {
	key := d.keyMapper(model)
	fo := options.Find()
	if len(opts.Order) > 0 {
		sort := make(bson.D, len(opts.Order))
		for i, ob := range opts.Order {
			dir := 1
			if ob.Direction == types.DESC {
				dir = -1
			}
			sort[i] = bson.E{Key: key(ob.Field), Value: dir}
		}
		fo.SetSort(sort)
	}
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}
	if opts.Skip > 0 {
		fo.SetSkip(int64(opts.Skip))
	}
	if len(opts.Fields) > 0 {
		proj := bson.M{}
		for _, f := range opts.Fields {
			proj[key(f)] = 1
		}
		fo.SetProjection(proj)
	}
	return fo
}

// Find queries the collection of model filtered by where
func (d *DB) Find(ctx context.Context, model string, where types.Condition, opts types.FindOptions) ([]types.Record, error) {
	filter, err := ToBSON(where, d.keyMapper(model))
	if err != nil {
		return nil, fmt.Errorf("failed to build filter for %s: %w", model, err)
	}

	start := time.Now()
	cursor, err := d.database.Collection(model).Find(ctx, filter, d.findOptions(model, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", model, err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", model, err)
	}
	d.logger.LogFind(model, filterString(where), len(docs), time.Since(start))

	idField := d.idField(model)
	out := make([]types.Record, len(docs))
	for i, doc := range docs {
		out[i] = toRecord(doc, idField)
	}
	return out, nil
}

func filterString(where types.Condition) string {
	if where == nil {
		return ""
	}
	return where.String()
}

// Create inserts data. A missing id is drawn from a per-collection
// sequence so ids stay comparable with the SQL backends.
func (d *DB) Create(ctx context.Context, model string, data types.Record) (types.Record, error) {
	idField := d.idField(model)
	rec := data.Clone()
	if rec[idField] == nil {
		id, err := d.nextSequence(ctx, model)
		if err != nil {
			return nil, err
		}
		rec[idField] = id
	}

	doc := bson.M{}
	for k, v := range rec {
		if k == idField {
			k = idKey
		}
		doc[k] = v
	}
	if _, err := d.database.Collection(model).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", model, err)
	}
	return rec, nil
}

func (d *DB) nextSequence(ctx context.Context, model string) (int64, error) {
	var result struct {
		Value int64 `bson:"value"`
	}
	err := d.database.Collection(sequenceCollection).FindOneAndUpdate(ctx,
		bson.M{idKey: model},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&result)
	if err != nil {
		return 0, fmt.Errorf("failed to generate id for %s: %w", model, err)
	}
	return result.Value, nil
}

// toRecord renames _id and converts driver types into plain values.
func toRecord(doc bson.M, idField string) types.Record {
	rec := make(types.Record, len(doc))
	for k, v := range doc {
		if k == idKey {
			k = idField
		}
		rec[k] = plainValue(v)
	}
	return rec
}

func plainValue(v any) any {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case int32:
		return int64(x)
	case primitive.DateTime:
		return x.Time()
	case bson.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plainValue(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = plainValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainValue(e)
		}
		return out
	default:
		return v
	}
}
