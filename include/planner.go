package include

import (
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
	"github.com/rediwo/redi-eager/utils"
)

// BatchPlan is the set of key values to look up for one relation hop and
// how to split it into queries.
type BatchPlan struct {
	KeyField  string
	KeyValues []any
	// PageSize bounds the keys per query; 0 means a single query.
	PageSize int
	// Point issues one equality query per key for backends without
	// batched key lookup.
	Point bool
}

// NewBatchPlan deduplicates values, drops nils and keeps first-seen order.
func NewBatchPlan(keyField string, values []any, pageSize int) *BatchPlan {
	seen := make(map[string]struct{}, len(values))
	keys := make([]any, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		k := utils.KeyOf(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, v)
	}
	if pageSize < 0 {
		pageSize = 0
	}
	return &BatchPlan{KeyField: keyField, KeyValues: keys, PageSize: pageSize}
}

func (p *BatchPlan) Empty() bool { return len(p.KeyValues) == 0 }

// Pages splits the keys into query-sized chunks.
func (p *BatchPlan) Pages() [][]any {
	if p.Empty() {
		return nil
	}
	size := p.PageSize
	if p.Point {
		size = 1
	}
	if size <= 0 || size >= len(p.KeyValues) {
		return [][]any{p.KeyValues}
	}
	pages := make([][]any, 0, (len(p.KeyValues)+size-1)/size)
	for start := 0; start < len(p.KeyValues); start += size {
		end := min(start+size, len(p.KeyValues))
		pages = append(pages, p.KeyValues[start:end])
	}
	return pages
}

// PageCount is len(Pages()) without building them.
func (p *BatchPlan) PageCount() int {
	n := len(p.KeyValues)
	size := p.PageSize
	if p.Point {
		size = 1
	}
	if n == 0 {
		return 0
	}
	if size <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// SingleKeyPages reports whether every query targets exactly one key, so
// per-parent limit and skip can run on the backend.
func (p *BatchPlan) SingleKeyPages() bool {
	return len(p.KeyValues) <= 1 || p.Point || p.PageSize == 1
}

// Condition is the filter for one page ANDed with the scope filter.
func (p *BatchPlan) Condition(page []any, where types.Condition) types.Condition {
	if len(page) == 1 {
		return types.And(types.Eq(p.KeyField, page[0]), where)
	}
	return types.And(types.In(p.KeyField, page), where)
}

// effectivePageSize combines the configured inqLimit with the backend's
// own maximum. Zero means unbounded.
func effectivePageSize(inqLimit int, caps types.Capabilities) int {
	size := inqLimit
	if caps.MaxKeysPerBatch > 0 && (size <= 0 || size > caps.MaxKeysPerBatch) {
		size = caps.MaxKeysPerBatch
	}
	if size < 0 {
		return 0
	}
	return size
}

// pushdown says which parts of a scope the backend applies itself.
type pushdown struct {
	order  bool
	window bool
}

// planPushdown decides where sort, limit and skip run. Order is pushed
// when the backend can sort batched queries; limit and skip additionally
// need every query to cover a single parent key. Through relations sort
// and window after the join, so nothing is pushed for them.
func planPushdown(kind schema.RelationKind, scope Scope, caps types.Capabilities, plan *BatchPlan) pushdown {
	if kind.Through() || !caps.AdHocSortOnBatchedQuery {
		return pushdown{}
	}
	pd := pushdown{order: len(scope.Order) > 0}
	if scope.Limit > 0 || scope.Skip > 0 {
		pd.window = (kind == schema.HasMany || kind == schema.HasOne) && plan.SingleKeyPages()
	}
	return pd
}
