package include

import (
	"github.com/rediwo/redi-eager/models"
	"github.com/rediwo/redi-eager/types"
	"github.com/rediwo/redi-eager/utils"
)

// relationResult is what one relation contributes before commit: a value
// per parent and the distinct children that got attached.
type relationResult struct {
	values   map[*models.Instance]any
	children []*models.Instance
	seen     map[*models.Instance]struct{}
}

func newRelationResult(parents []*models.Instance) *relationResult {
	return &relationResult{
		values: make(map[*models.Instance]any, len(parents)),
		seen:   make(map[*models.Instance]struct{}),
	}
}

func (r *relationResult) setOne(parent, child *models.Instance) {
	r.values[parent] = child
	if child != nil {
		r.addChild(child)
	}
}

func (r *relationResult) setMany(parent *models.Instance, model string, children []*models.Instance) {
	items := append([]*models.Instance(nil), children...)
	r.values[parent] = models.NewCollection(model, items)
	for _, c := range items {
		r.addChild(c)
	}
}

func (r *relationResult) addChild(c *models.Instance) {
	if _, dup := r.seen[c]; dup {
		return
	}
	r.seen[c] = struct{}{}
	r.children = append(r.children, c)
}

// groupByKey indexes instances by the canonical value of field, keeping
// fetch order inside each group. Instances without the field are dropped.
func groupByKey(instances []*models.Instance, field string) map[string][]*models.Instance {
	groups := make(map[string][]*models.Instance)
	for _, inst := range instances {
		v := inst.Get(field)
		if v == nil {
			continue
		}
		k := utils.KeyOf(v)
		groups[k] = append(groups[k], inst)
	}
	return groups
}

// firstByKey indexes the first instance for each value of field.
func firstByKey(instances []*models.Instance, field string) map[string]*models.Instance {
	index := make(map[string]*models.Instance, len(instances))
	for _, inst := range instances {
		v := inst.Get(field)
		if v == nil {
			continue
		}
		k := utils.KeyOf(v)
		if _, exists := index[k]; !exists {
			index[k] = inst
		}
	}
	return index
}

// lookup returns the group for a parent key value; nil keys match nothing.
func lookup[T any](index map[string]T, key any) (T, bool) {
	var zero T
	if key == nil {
		return zero, false
	}
	v, ok := index[utils.KeyOf(key)]
	return v, ok
}

// window applies per-parent skip and limit unless the backend already did.
func window(items []*models.Instance, scope Scope, pd pushdown) []*models.Instance {
	if pd.window {
		return items
	}
	return types.Paginate(items, scope.Skip, scope.Limit)
}

// commit writes every resolved relation into its parents, walking results
// in spec order so relations attach in the order they were requested.
// It runs only after the whole pass succeeded.
func commit(results []*nodeResult) {
	for _, res := range results {
		if res == nil || res.rel == nil {
			continue
		}
		for parent, v := range res.values {
			parent.CacheRelation(res.node.Relation, v)
		}
		commit(res.nested)
	}
}
