package types

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rediwo/redi-eager/utils"
)

// Record is one stored entity as plain field values.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Project keeps only the named fields. An empty list keeps everything.
func (r Record) Project(fields []string) Record {
	if len(fields) == 0 {
		return r.Clone()
	}
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Order is a sort direction.
type Order int

const (
	ASC Order = iota
	DESC
)

func (o Order) String() string {
	if o == DESC {
		return "DESC"
	}
	return "ASC"
}

// OrderBy sorts on one field.
type OrderBy struct {
	Field     string
	Direction Order
}

func (o OrderBy) String() string {
	return o.Field + " " + o.Direction.String()
}

// FindOptions shapes a find beyond its filter. Zero Limit means no limit.
type FindOptions struct {
	Fields []string
	Order  []OrderBy
	Limit  int
	Skip   int
}

func (o FindOptions) String() string {
	var parts []string
	if len(o.Fields) > 0 {
		parts = append(parts, "fields="+strings.Join(o.Fields, ","))
	}
	if len(o.Order) > 0 {
		ords := make([]string, len(o.Order))
		for i, ob := range o.Order {
			ords[i] = ob.String()
		}
		parts = append(parts, "order="+strings.Join(ords, ","))
	}
	if o.Limit > 0 {
		parts = append(parts, fmt.Sprintf("limit=%d", o.Limit))
	}
	if o.Skip > 0 {
		parts = append(parts, fmt.Sprintf("skip=%d", o.Skip))
	}
	return strings.Join(parts, " ")
}

// Capabilities are what a backend reports about batched lookups.
type Capabilities struct {
	// BatchedKeyLookup means "field IN (...)" filters are supported.
	BatchedKeyLookup bool
	// AdHocSortOnBatchedQuery means order, limit and skip can be applied
	// server side on a batched query.
	AdHocSortOnBatchedQuery bool
	// MaxKeysPerBatch is the largest IN set the backend accepts; 0 is unbounded.
	MaxKeysPerBatch int
}

// Finder executes primitive reads. It is all the include resolver needs.
type Finder interface {
	Find(ctx context.Context, model string, where Condition, opts FindOptions) ([]Record, error)
	Capabilities() Capabilities
}

// Backend is an opened storage backend.
type Backend interface {
	Finder
	Create(ctx context.Context, model string, data Record) (Record, error)
	DriverType() DriverType
	Close() error
}

// SortRecords sorts in place by order. The sort is stable, so records
// equal on every order field keep their fetch order.
func SortRecords(records []Record, order []OrderBy) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, ob := range order {
			c := utils.Compare(records[i][ob.Field], records[j][ob.Field])
			if c == 0 {
				continue
			}
			if ob.Direction == DESC {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// Paginate applies skip then limit. limit <= 0 means no limit.
func Paginate[T any](items []T, skip, limit int) []T {
	if skip > 0 {
		if skip >= len(items) {
			return items[:0]
		}
		items = items[skip:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
