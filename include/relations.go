package include

import (
	"context"
	"sort"

	"github.com/rediwo/redi-eager/models"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
	"github.com/rediwo/redi-eager/utils"
)

// job is one relation node applied to one group of same-model parents.
type job struct {
	model   string
	rel     *schema.Relation
	parents []*models.Instance
	node    *Node
	scope   Scope

	keys  int
	pages int
}

type relationHandler func(r *Resolver, ctx context.Context, j *job) (*relationResult, error)

var handlers = map[schema.RelationKind]relationHandler{
	schema.BelongsTo:           (*Resolver).resolveBelongsTo,
	schema.HasOne:              (*Resolver).resolveHasMany,
	schema.HasMany:             (*Resolver).resolveHasMany,
	schema.HasManyThrough:      (*Resolver).resolveThrough,
	schema.HasAndBelongsToMany: (*Resolver).resolveThrough,
}

// fetchChildren runs a planned hop for the node's target and returns the
// children sorted by the scope order whether or not the backend sorted.
func (r *Resolver) fetchChildren(ctx context.Context, j *job, target string, plan *BatchPlan, childKey string, extra types.Condition) ([]*models.Instance, pushdown, error) {
	pd := planPushdown(j.rel.Kind, j.scope, r.finder.Capabilities(), plan)

	opts := types.FindOptions{Fields: r.childFields(target, childKey, j, !pd.order)}
	if pd.order {
		opts.Order = j.scope.Order
	}
	if pd.window {
		opts.Limit, opts.Skip = j.scope.Limit, j.scope.Skip
	}

	records, err := r.fetch(ctx, j, target, plan, types.And(j.scope.Where, extra), opts)
	if err != nil {
		return nil, pd, err
	}
	if !pd.order {
		types.SortRecords(records, j.scope.Order)
	}
	return models.FromRecords(target, records), pd, nil
}

// childFields is the projection for fetched children: the scope fields
// plus every key the merge and nested includes need. nil means all fields.
func (r *Resolver) childFields(target, childKey string, j *job, sortDeferred bool) []string {
	if len(j.scope.Fields) == 0 {
		return nil
	}
	fields := append([]string(nil), j.scope.Fields...)
	fields = append(fields, childKey)
	fields = append(fields, r.RequiredFields(target, j.node.Include)...)
	if sortDeferred {
		for _, ob := range j.scope.Order {
			fields = append(fields, ob.Field)
		}
	}
	return dedupeStrings(fields)
}

// resolveBelongsTo looks up targets by the foreign key held on each parent.
// Parents with a nil key resolve to nil without a query.
func (r *Resolver) resolveBelongsTo(ctx context.Context, j *job) (*relationResult, error) {
	rel := j.rel
	res := newRelationResult(j.parents)
	for _, p := range j.parents {
		res.setOne(p, nil)
	}

	targets, byTarget := r.belongsToTargets(j)
	for _, target := range targets {
		parents := byTarget[target]
		refKey := rel.References
		if refKey == "" || rel.Polymorphic != nil {
			refKey = r.provider.IDField(target)
		}

		keys := make([]any, len(parents))
		for i, p := range parents {
			keys[i] = p.Get(rel.ForeignKey)
		}
		plan := r.newPlan(j, target, refKey, keys)
		if plan.Empty() {
			continue
		}

		children, _, err := r.fetchChildren(ctx, j, target, plan, refKey, nil)
		if err != nil {
			return nil, err
		}
		index := firstByKey(children, refKey)
		for _, p := range parents {
			if child, ok := lookup(index, p.Get(rel.ForeignKey)); ok {
				res.setOne(p, child)
			}
		}
	}
	return res, nil
}

// belongsToTargets groups parents with a non-nil foreign key by target
// model. Polymorphic relations read the target from the discriminator.
func (r *Resolver) belongsToTargets(j *job) ([]string, map[string][]*models.Instance) {
	rel := j.rel
	var order []string
	groups := make(map[string][]*models.Instance)
	for _, p := range j.parents {
		if p.Get(rel.ForeignKey) == nil {
			continue
		}
		target := rel.Target
		if rel.Polymorphic != nil {
			target = utils.ToString(p.Get(rel.Polymorphic.Discriminator))
			if target == "" {
				continue
			}
		}
		if _, ok := groups[target]; !ok {
			order = append(order, target)
		}
		groups[target] = append(groups[target], p)
	}
	return order, groups
}

// resolveHasMany handles hasOne and hasMany: children carry the parent key.
func (r *Resolver) resolveHasMany(ctx context.Context, j *job) (*relationResult, error) {
	rel := j.rel
	res := newRelationResult(j.parents)

	keys := make([]any, len(j.parents))
	for i, p := range j.parents {
		keys[i] = p.Get(rel.References)
	}
	plan := r.newPlan(j, rel.Target, rel.ForeignKey, keys)

	var children []*models.Instance
	var pd pushdown
	if !plan.Empty() {
		var extra types.Condition
		if rel.Polymorphic != nil {
			extra = types.Eq(rel.Polymorphic.Discriminator, j.model)
		}
		var err error
		children, pd, err = r.fetchChildren(ctx, j, rel.Target, plan, rel.ForeignKey, extra)
		if err != nil {
			return nil, err
		}
	}

	groups := groupByKey(children, rel.ForeignKey)
	for _, p := range j.parents {
		group, _ := lookup(groups, p.Get(rel.References))
		group = window(group, j.scope, pd)
		if rel.Kind == schema.HasOne {
			var first *models.Instance
			if len(group) > 0 {
				first = group[0]
			}
			res.setOne(p, first)
			continue
		}
		res.setMany(p, rel.Target, group)
	}
	return res, nil
}

// resolveThrough handles hasManyThrough and hasAndBelongsToMany in two
// batched hops: join records by parent key, then targets by the keys the
// join records point at.
func (r *Resolver) resolveThrough(ctx context.Context, j *job) (*relationResult, error) {
	rel := j.rel
	res := newRelationResult(j.parents)

	keys := make([]any, len(j.parents))
	for i, p := range j.parents {
		keys[i] = p.Get(rel.References)
	}
	throughPlan := r.newPlan(j, rel.Through, rel.ForeignKey, keys)

	var links []types.Record
	if !throughPlan.Empty() {
		var err error
		links, err = r.fetch(ctx, j, rel.Through, throughPlan, nil,
			types.FindOptions{Fields: []string{rel.ForeignKey, rel.KeyThrough}})
		if err != nil {
			return nil, err
		}
	}

	linksByParent := make(map[string][]any)
	targetKeys := make([]any, 0, len(links))
	for _, link := range links {
		pk, tk := link[rel.ForeignKey], link[rel.KeyThrough]
		if pk == nil || tk == nil {
			continue
		}
		k := utils.KeyOf(pk)
		linksByParent[k] = append(linksByParent[k], tk)
		targetKeys = append(targetKeys, tk)
	}

	var targets []*models.Instance
	if len(targetKeys) > 0 {
		targetPlan := r.newPlan(j, rel.Target, rel.TargetKey, targetKeys)
		var err error
		targets, _, err = r.fetchChildren(ctx, j, rel.Target, targetPlan, rel.TargetKey, nil)
		if err != nil {
			return nil, err
		}
	}

	index := firstByKey(targets, rel.TargetKey)
	rank := make(map[*models.Instance]int, len(targets))
	for i, t := range targets {
		rank[t] = i
	}

	for _, p := range j.parents {
		linked, _ := lookup(linksByParent, p.Get(rel.References))
		var group []*models.Instance
		seen := make(map[*models.Instance]struct{}, len(linked))
		for _, tk := range linked {
			t, ok := lookup(index, tk)
			if !ok {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			group = append(group, t)
		}
		if len(j.scope.Order) > 0 {
			sort.SliceStable(group, func(a, b int) bool { return rank[group[a]] < rank[group[b]] })
		}
		res.setMany(p, rel.Target, window(group, j.scope, pushdown{}))
	}
	return res, nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
