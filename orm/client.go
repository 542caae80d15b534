package orm

import (
	"context"
	"fmt"

	"github.com/rediwo/redi-eager/include"
	"github.com/rediwo/redi-eager/logger"
	"github.com/rediwo/redi-eager/models"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

// ErrModelNotFound is returned for a model the registry does not define.
var ErrModelNotFound = schema.ErrModelNotFound

// Client runs finds against a backend and resolves includes onto the
// results.
type Client struct {
	backend  types.Backend
	registry *schema.Registry
	resolver *include.Resolver
	logger   logger.Logger

	includeOpts []include.Option
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*Client)

// WithLogger sets the client logger
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.OrNull(l)
		c.includeOpts = append(c.includeOpts, include.WithLogger(l))
	}
}

// WithIncludeOptions passes options through to the include resolver.
func WithIncludeOptions(opts ...include.Option) ClientOption {
	return func(c *Client) { c.includeOpts = append(c.includeOpts, opts...) }
}

// WithInqLimit bounds the keys per batched include query.
func WithInqLimit(n int) ClientOption {
	return WithIncludeOptions(include.WithInqLimit(n))
}

// NewClient creates a client over backend for the models in registry
func NewClient(backend types.Backend, registry *schema.Registry, opts ...ClientOption) *Client {
	c := &Client{
		backend:  backend,
		registry: registry,
		logger:   logger.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resolver = include.New(backend, registry, c.includeOpts...)
	return c
}

// Backend returns the storage backend
func (c *Client) Backend() types.Backend { return c.backend }

// Registry returns the model registry
func (c *Client) Registry() *schema.Registry { return c.registry }

// Resolver returns the include resolver shared by all models
func (c *Client) Resolver() *include.Resolver { return c.resolver }

// Model returns a query handle for modelName.
func (c *Client) Model(modelName string) *Model {
	return &Model{client: c, name: modelName}
}

// Include resolves raw onto instances that were loaded elsewhere.
func (c *Client) Include(ctx context.Context, instances []*models.Instance, raw any) error {
	return c.resolver.Include(ctx, instances, raw)
}

// Close closes the backend
func (c *Client) Close() error {
	return c.backend.Close()
}

// Model queries one model.
type Model struct {
	client *Client
	name   string
}

// Name returns the model name
func (m *Model) Name() string { return m.name }

func (m *Model) schema() (*schema.Schema, error) {
	s, ok := m.client.registry.Schema(m.name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, m.name)
	}
	return s, nil
}

// Find returns every instance matching raw, a filter object or JSON string,
// with its includes resolved.
func (m *Model) Find(ctx context.Context, raw any) ([]*models.Instance, error) {
	f, err := ParseFilter(raw)
	if err != nil {
		return nil, err
	}
	return m.FindWith(ctx, f)
}

// FindWith runs an already parsed filter.
func (m *Model) FindWith(ctx context.Context, f *Filter) ([]*models.Instance, error) {
	s, err := m.schema()
	if err != nil {
		return nil, err
	}

	opts := f.findOptions()
	if len(opts.Fields) > 0 && len(f.Include) > 0 {
		opts.Fields = appendMissing(opts.Fields, m.client.resolver.RequiredFields(s.Name, f.Include)...)
	}

	records, err := m.client.backend.Find(ctx, s.Name, f.Where, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", s.Name, err)
	}
	instances := models.FromRecords(s.Name, records)

	if err := m.client.resolver.Resolve(ctx, instances, f.Include); err != nil {
		return nil, err
	}
	return instances, nil
}

// FindOne returns the first match, or nil when nothing matches.
func (m *Model) FindOne(ctx context.Context, raw any) (*models.Instance, error) {
	f, err := ParseFilter(raw)
	if err != nil {
		return nil, err
	}
	f.Limit = 1
	found, err := m.FindWith(ctx, f)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// FindByID looks an instance up by primary key. raw may carry fields and
// include; its where is combined with the id match.
func (m *Model) FindByID(ctx context.Context, id any, raw any) (*models.Instance, error) {
	s, err := m.schema()
	if err != nil {
		return nil, err
	}
	f, err := ParseFilter(raw)
	if err != nil {
		return nil, err
	}
	f.Where = types.And(types.Eq(m.client.registry.IDField(s.Name), id), f.Where)
	f.Limit = 1
	found, err := m.FindWith(ctx, f)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// Create stores data and returns the new instance.
func (m *Model) Create(ctx context.Context, data types.Record) (*models.Instance, error) {
	s, err := m.schema()
	if err != nil {
		return nil, err
	}
	rec, err := m.client.backend.Create(ctx, s.Name, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", s.Name, err)
	}
	m.client.logger.Debug("created %s %v", s.Name, rec[m.client.registry.IDField(s.Name)])
	return models.NewInstance(s.Name, rec), nil
}

func appendMissing(fields []string, extra ...string) []string {
	out := append([]string(nil), fields...)
	for _, e := range extra {
		found := false
		for _, f := range out {
			if f == e {
				found = true
				break
			}
		}
		if !found {
			out = append(out, e)
		}
	}
	return out
}
