package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrModelNotFound is returned when a model name is not registered.
var ErrModelNotFound = errors.New("model not found")

type declaration struct {
	kind RelationKind
	opts RelationOptions
	poly *Polymorphic
}

// Registry holds model schemas and their relation declarations. It is the
// relation metadata provider consulted by the include resolver.
type Registry struct {
	mu        sync.RWMutex
	schemas   map[string]*Schema
	folded    map[string]string // lowercase name -> registered name
	relations map[string]map[string]*declaration
	order     map[string][]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		schemas:   make(map[string]*Schema),
		folded:    make(map[string]string),
		relations: make(map[string]map[string]*declaration),
		order:     make(map[string][]string),
	}
}

// Define registers or replaces a model schema.
func (r *Registry) Define(s *Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Name] = s
	r.folded[strings.ToLower(s.Name)] = s.Name
	return nil
}

// Schema looks up a model, falling back to a case-insensitive match so
// inferred names like "Accesstoken" find "AccessToken".
func (r *Registry) Schema(model string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(model)
}

func (r *Registry) lookup(model string) (*Schema, bool) {
	if s, ok := r.schemas[model]; ok {
		return s, true
	}
	if name, ok := r.folded[strings.ToLower(model)]; ok {
		return r.schemas[name], true
	}
	return nil, false
}

func (r *Registry) canonical(model string) string {
	if s, ok := r.lookup(model); ok {
		return s.Name
	}
	return model
}

func (r *Registry) idField(model string) string {
	if s, ok := r.lookup(model); ok {
		return s.IDField()
	}
	return DefaultIDField
}

// IDField returns the primary key field of model.
func (r *Registry) IDField(model string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idField(model)
}

// Models lists registered model names in sorted order.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddRelation declares a relation named name on model.
func (r *Registry) AddRelation(model, name string, kind RelationKind, opts RelationOptions) error {
	if name == "" {
		return fmt.Errorf("relation on %s needs a name", model)
	}
	poly, err := parsePolymorphic(name, opts.Polymorphic)
	if err != nil {
		return fmt.Errorf("relation %s.%s: %w", model, name, err)
	}
	if kind == HasMany && opts.Through != "" {
		kind = HasManyThrough
	}
	if kind.Through() && poly != nil {
		return fmt.Errorf("relation %s.%s: polymorphic %s is not supported", model, name, kind)
	}
	if kind == HasManyThrough && opts.Through == "" {
		return fmt.Errorf("relation %s.%s: hasManyThrough needs a through model", model, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.lookup(model)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModelNotFound, model)
	}
	model = s.Name

	if kind == HasAndBelongsToMany {
		if err := r.defineJoinModel(model, name, &opts); err != nil {
			return err
		}
	}

	if r.relations[model] == nil {
		r.relations[model] = make(map[string]*declaration)
	}
	if _, exists := r.relations[model][name]; !exists {
		r.order[model] = append(r.order[model], name)
	}
	r.relations[model][name] = &declaration{kind: kind, opts: opts, poly: poly}
	return nil
}

// defineJoinModel registers the implicit join model of a
// hasAndBelongsToMany relation unless one already exists.
func (r *Registry) defineJoinModel(model, name string, opts *RelationOptions) error {
	target := opts.Model
	if target == "" {
		target = ModelNameFromRelation(name)
	}
	target = r.canonical(target)
	if opts.Through == "" {
		opts.Through = JoinModelName(model, target)
	}
	if _, ok := r.lookup(opts.Through); ok {
		return nil
	}

	fk := opts.ForeignKey
	if fk == "" {
		fk = DefaultForeignKey(model)
	}
	keyThrough := opts.KeyThrough
	if keyThrough == "" {
		keyThrough = DefaultForeignKey(target)
	}
	join := New(opts.Through).
		AddField(NewField(DefaultIDField).Number().PrimaryKey().Build()).
		AddField(NewField(fk).Number().Build()).
		AddField(NewField(keyThrough).Number().Build())
	r.schemas[join.Name] = join
	r.folded[strings.ToLower(join.Name)] = join.Name
	return nil
}

// BelongsTo defines a belongsTo relation on model
func (r *Registry) BelongsTo(model, name string, opts RelationOptions) error {
	return r.AddRelation(model, name, BelongsTo, opts)
}

// HasOne defines a hasOne relation on model
func (r *Registry) HasOne(model, name string, opts RelationOptions) error {
	return r.AddRelation(model, name, HasOne, opts)
}

// HasMany defines a hasMany relation on model
func (r *Registry) HasMany(model, name string, opts RelationOptions) error {
	return r.AddRelation(model, name, HasMany, opts)
}

// HasAndBelongsToMany defines a hasAndBelongsToMany relation on model
func (r *Registry) HasAndBelongsToMany(model, name string, opts RelationOptions) error {
	return r.AddRelation(model, name, HasAndBelongsToMany, opts)
}

// RelationNames lists the relations of model in declaration order.
func (r *Registry) RelationNames(model string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := r.order[r.canonical(model)]
	return append([]string(nil), names...)
}

// Relation describes the relation name of model with every default key
// filled in. ok is false when no such relation is declared.
func (r *Registry) Relation(model, name string) (*Relation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	model = r.canonical(model)
	d, ok := r.relations[model][name]
	if !ok {
		return nil, false
	}
	opts := d.opts

	rel := &Relation{
		Name:           name,
		Kind:           d.kind,
		Model:          model,
		ForeignKey:     opts.ForeignKey,
		References:     opts.References,
		DisableInclude: opts.DisableInclude,
	}
	if d.poly != nil {
		p := *d.poly
		rel.Polymorphic = &p
	}

	if opts.Model != "" {
		rel.Target = r.canonical(opts.Model)
	}

	switch d.kind {
	case BelongsTo:
		if rel.Polymorphic != nil {
			if rel.ForeignKey == "" {
				rel.ForeignKey = DefaultForeignKey(rel.Polymorphic.As)
			}
			if rel.References == "" && rel.Target != "" {
				rel.References = r.idField(rel.Target)
			}
			break
		}
		if rel.Target == "" {
			rel.Target = r.canonical(ModelNameFromRelation(name))
		}
		if rel.ForeignKey == "" {
			rel.ForeignKey = DefaultForeignKey(name)
		}
		if rel.References == "" {
			rel.References = r.idField(rel.Target)
		}

	case HasOne, HasMany:
		if rel.Target == "" {
			rel.Target = r.canonical(ModelNameFromRelation(name))
		}
		if rel.ForeignKey == "" {
			if rel.Polymorphic != nil {
				rel.ForeignKey = DefaultForeignKey(rel.Polymorphic.As)
			} else {
				rel.ForeignKey = DefaultForeignKey(model)
			}
		}
		if rel.References == "" {
			rel.References = r.idField(model)
		}

	case HasManyThrough, HasAndBelongsToMany:
		if rel.Target == "" {
			rel.Target = r.canonical(ModelNameFromRelation(name))
		}
		rel.Through = r.canonical(opts.Through)
		if rel.ForeignKey == "" {
			rel.ForeignKey = DefaultForeignKey(model)
		}
		if rel.References == "" {
			rel.References = r.idField(model)
		}
		rel.KeyThrough = opts.KeyThrough
		if rel.KeyThrough == "" {
			rel.KeyThrough = DefaultForeignKey(rel.Target)
		}
		rel.TargetKey = r.idField(rel.Target)
	}

	return rel, true
}
