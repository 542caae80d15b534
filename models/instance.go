package models

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/rediwo/redi-eager/types"
)

// Instance is one loaded record plus the relations resolved onto it.
//
// Data is what the backend stored. Relations live in a separate cache that
// never reaches Data, so saving an instance cannot persist included models.
// ToObject and MarshalJSON expose both, relations under their own names.
type Instance struct {
	model string
	data  types.Record

	mu        sync.RWMutex
	relations map[string]any // *Instance (nil allowed) or *Collection
	relOrder  []string
}

// NewInstance creates an instance of model holding data
func NewInstance(model string, data types.Record) *Instance {
	if data == nil {
		data = types.Record{}
	}
	return &Instance{model: model, data: data}
}

// FromRecords wraps backend records as instances of model.
func FromRecords(model string, records []types.Record) []*Instance {
	out := make([]*Instance, len(records))
	for i, r := range records {
		out[i] = NewInstance(model, r)
	}
	return out
}

// Model returns the model name
func (i *Instance) Model() string { return i.model }

// Get returns a stored field value.
func (i *Instance) Get(field string) any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.data[field]
}

// Set assigns a field value
func (i *Instance) Set(field string, value any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.data[field] = value
}

// Data returns a copy of the stored fields without any relation.
func (i *Instance) Data() types.Record {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.data.Clone()
}

// CacheRelation stores a resolved relation. value is an *Instance (nil
// for an empty to-one) or a *Collection.
func (i *Instance) CacheRelation(name string, value any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.relations == nil {
		i.relations = make(map[string]any)
	}
	if _, exists := i.relations[name]; !exists {
		i.relOrder = append(i.relOrder, name)
	}
	i.relations[name] = value
}

// Related returns the cached value of a relation. ok is false when the
// relation was never resolved on this instance.
func (i *Instance) Related(name string) (any, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, ok := i.relations[name]
	return v, ok
}

// HasRelated reports whether the relation was resolved.
func (i *Instance) HasRelated(name string) bool {
	_, ok := i.Related(name)
	return ok
}

// One returns a resolved to-one relation, or nil.
func (i *Instance) One(name string) *Instance {
	v, _ := i.Related(name)
	inst, _ := v.(*Instance)
	return inst
}

// Many returns a resolved to-many relation. It never returns nil.
func (i *Instance) Many(name string) *Collection {
	v, _ := i.Related(name)
	if c, ok := v.(*Collection); ok && c != nil {
		return c
	}
	return NewCollection("", nil)
}

// RelationNames lists resolved relations in the order they were cached.
func (i *Instance) RelationNames() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]string(nil), i.relOrder...)
}

// ToObject is the plain projection: stored fields in key order followed by
// resolved relations in resolution order, projected recursively.
func (i *Instance) ToObject() types.Object {
	i.mu.RLock()
	defer i.mu.RUnlock()

	keys := make([]string, 0, len(i.data))
	for k := range i.data {
		if _, shadowed := i.relations[k]; !shadowed {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	obj := make(types.Object, 0, len(keys)+len(i.relOrder))
	for _, k := range keys {
		obj = append(obj, types.Entry{Key: k, Value: i.data[k]})
	}
	for _, name := range i.relOrder {
		obj = append(obj, types.Entry{Key: name, Value: projectRelated(i.relations[name])})
	}
	return obj
}

func projectRelated(v any) any {
	switch val := v.(type) {
	case *Instance:
		if val == nil {
			return nil
		}
		return val.ToObject()
	case *Collection:
		return val.ToObjects()
	default:
		return v
	}
}

// ToMap is ToObject as a plain map.
func (i *Instance) ToMap() map[string]any {
	return i.ToObject().Map()
}

func (i *Instance) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.ToObject())
}
