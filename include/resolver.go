package include

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rediwo/redi-eager/logger"
	"github.com/rediwo/redi-eager/models"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the queries and sibling relations in flight
// for one resolution step.
const DefaultConcurrency = 8

// RelationProvider describes the relations of each model.
// *schema.Registry implements it.
type RelationProvider interface {
	Relation(model, name string) (*schema.Relation, bool)
	IDField(model string) string
}

// Resolver attaches related records to already loaded instances with one
// batched query per relation hop, instead of one per parent.
type Resolver struct {
	finder         types.Finder
	provider       RelationProvider
	logger         logger.Logger
	observer       Observer
	tracerProvider trace.TracerProvider
	inqLimit       int
	concurrency    int
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger used for debug and skip messages
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) { r.logger = logger.OrNull(l) }
}

// WithInqLimit caps the number of keys in one IN query. 0 is unbounded.
func WithInqLimit(n int) Option {
	return func(r *Resolver) { r.inqLimit = n }
}

// WithConcurrency bounds parallel queries; 0 or less removes the bound.
func WithConcurrency(n int) Option {
	return func(r *Resolver) { r.concurrency = n }
}

// WithObserver registers an observer for plans, queries and skips
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		if o == nil {
			o = NopObserver{}
		}
		r.observer = o
	}
}

// WithTracerProvider sets where spans go. Without it the global provider
// is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Resolver) { r.tracerProvider = tp }
}

// New creates a resolver reading through finder and provider
func New(finder types.Finder, provider RelationProvider, opts ...Option) *Resolver {
	r := &Resolver{
		finder:      finder,
		provider:    provider,
		logger:      logger.GetGlobalLogger(),
		observer:    NopObserver{},
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// nodeResult is the outcome of one node over one group of parents. Nothing
// touches the parents until commit.
type nodeResult struct {
	node   *Node
	rel    *schema.Relation // nil when the relation was skipped
	values map[*models.Instance]any
	nested []*nodeResult
}

// Include normalizes raw and resolves it onto parents.
func (r *Resolver) Include(ctx context.Context, parents []*models.Instance, raw any) error {
	spec, err := Normalize(raw)
	if err != nil {
		return err
	}
	return r.Resolve(ctx, parents, spec)
}

// Resolve loads every relation in spec and caches it on parents. Parents
// may be of different models. Unknown relations and relations with
// includes disabled are skipped. A spec with a nil or unnamed node is
// rejected with a MalformedSpecError. On error no parent is modified.
func (r *Resolver) Resolve(ctx context.Context, parents []*models.Instance, spec Spec) (err error) {
	if err := validate(spec, "include"); err != nil {
		return err
	}
	parents = compact(parents)
	if len(parents) == 0 || len(spec) == 0 {
		return nil
	}

	pass := uuid.NewString()
	ctx, span := r.startSpan(ctx, "include.Resolve",
		attribute.String("include.pass", pass),
		attribute.String("include.spec", spec.String()),
		attribute.Int("include.parents", len(parents)),
	)
	defer func() { finishSpan(span, err) }()

	r.logger.Debug("include pass %s: %s on %d parents", pass, spec, len(parents))

	results, err := r.resolveSpec(ctx, parents, spec)
	if err != nil {
		r.logger.Warn("include pass %s failed: %v", pass, err)
		return err
	}
	commit(results)
	return nil
}

// resolveSpec runs every node of spec against parents grouped by model.
// Results come back in group then spec order.
func (r *Resolver) resolveSpec(ctx context.Context, parents []*models.Instance, spec Spec) ([]*nodeResult, error) {
	names, groups := groupByModel(parents)

	results := make([]*nodeResult, len(names)*len(spec))
	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for gi, model := range names {
		for ni, node := range spec {
			g.Go(func() error {
				res, err := r.resolveNode(gctx, model, groups[model], node)
				if err != nil {
					return err
				}
				results[gi*len(spec)+ni] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Resolver) resolveNode(ctx context.Context, model string, parents []*models.Instance, node *Node) (res *nodeResult, err error) {
	res = &nodeResult{node: node}

	rel, ok := r.provider.Relation(model, node.Relation)
	if !ok || rel.DisableInclude {
		reason := SkipUnknown
		if ok {
			reason = SkipDisabled
		}
		r.observer.RelationSkipped(model, node.Relation, reason)
		r.logger.Debug("include %s.%s skipped: %s", model, node.Relation, reason)
		return res, nil
	}
	handler, ok := handlers[rel.Kind]
	if !ok {
		r.observer.RelationSkipped(model, node.Relation, SkipUnknown)
		return res, nil
	}

	j := &job{model: model, rel: rel, parents: parents, node: node, scope: node.scope()}
	ctx, span := r.startSpan(ctx, "include.relation",
		attribute.String("include.model", model),
		attribute.String("include.relation", rel.Name),
		attribute.String("include.kind", string(rel.Kind)),
		attribute.Int("include.parents", len(parents)),
	)
	defer func() {
		span.SetAttributes(
			attribute.Int("include.keys", j.keys),
			attribute.Int("include.pages", j.pages),
		)
		finishSpan(span, err)
	}()

	out, err := handler(r, ctx, j)
	if err != nil {
		var qe *QueryError
		if !errors.As(err, &qe) {
			err = &QueryError{Model: model, Relation: rel.Name, Target: rel.Target, Err: err}
		}
		return nil, err
	}

	res.rel = rel
	res.values = out.values
	if len(node.Include) > 0 && len(out.children) > 0 {
		nested, err := r.resolveSpec(ctx, out.children, node.Include)
		if err != nil {
			return nil, err
		}
		res.nested = nested
	}
	return res, nil
}

// RequiredFields lists the fields of model that resolving spec reads from
// each parent. Callers projecting parents with a fields list add these so
// the links survive.
func (r *Resolver) RequiredFields(model string, spec Spec) []string {
	var fields []string
	for _, node := range spec {
		rel, ok := r.provider.Relation(model, node.Relation)
		if !ok || rel.DisableInclude {
			continue
		}
		fields = append(fields, rel.OwnerKey())
		if rel.Kind == schema.BelongsTo && rel.Polymorphic != nil {
			fields = append(fields, rel.Polymorphic.Discriminator)
		}
	}
	return dedupeStrings(fields)
}

func groupByModel(parents []*models.Instance) ([]string, map[string][]*models.Instance) {
	var order []string
	groups := make(map[string][]*models.Instance)
	for _, p := range parents {
		m := p.Model()
		if _, ok := groups[m]; !ok {
			order = append(order, m)
		}
		groups[m] = append(groups[m], p)
	}
	return order, groups
}

// compact drops nil parents and repeated pointers.
func compact(parents []*models.Instance) []*models.Instance {
	seen := make(map[*models.Instance]struct{}, len(parents))
	out := make([]*models.Instance, 0, len(parents))
	for _, p := range parents {
		if p == nil {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
