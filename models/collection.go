package models

import (
	"encoding/json"

	"github.com/rediwo/redi-eager/types"
)

// Collection is the ordered result of a to-many relation.
type Collection struct {
	model string
	items []*Instance
}

// NewCollection creates a collection of model instances
func NewCollection(model string, items []*Instance) *Collection {
	if items == nil {
		items = []*Instance{}
	}
	return &Collection{model: model, items: items}
}

// Model returns the model name
func (c *Collection) Model() string { return c.model }

// Len returns the number of instances
func (c *Collection) Len() int { return len(c.items) }

// At returns the i-th item.
func (c *Collection) At(i int) *Instance { return c.items[i] }

// Items returns a copy of the item slice.
func (c *Collection) Items() []*Instance {
	return append([]*Instance(nil), c.items...)
}

// First returns the first instance or nil
func (c *Collection) First() *Instance {
	if len(c.items) == 0 {
		return nil
	}
	return c.items[0]
}

// Append adds instances to the end of the collection.
func (c *Collection) Append(items ...*Instance) {
	c.items = append(c.items, items...)
}

// Where filters the already loaded items in memory.
func (c *Collection) Where(cond types.Condition) *Collection {
	if cond == nil {
		return NewCollection(c.model, c.Items())
	}
	var out []*Instance
	for _, item := range c.items {
		if cond.Match(item.Data()) {
			out = append(out, item)
		}
	}
	return NewCollection(c.model, out)
}

// Records returns the stored data of every item.
func (c *Collection) Records() []types.Record {
	out := make([]types.Record, len(c.items))
	for i, item := range c.items {
		out[i] = item.Data()
	}
	return out
}

// ToObjects projects every item. The result is never nil.
func (c *Collection) ToObjects() []any {
	out := make([]any, len(c.items))
	for i, item := range c.items {
		out[i] = item.ToObject()
	}
	return out
}

func (c *Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToObjects())
}
