package include

import (
	"context"
	"time"

	"github.com/rediwo/redi-eager/types"
	"golang.org/x/sync/errgroup"
)

// fetch runs every page of plan against target and concatenates the
// results in page order. Pages run concurrently; the first failure cancels
// the rest and is returned as a QueryError.
func (r *Resolver) fetch(ctx context.Context, j *job, target string, plan *BatchPlan, where types.Condition, opts types.FindOptions) ([]types.Record, error) {
	pages := plan.Pages()
	if len(pages) == 0 {
		return nil, nil
	}

	results := make([][]types.Record, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, page := range pages {
		g.Go(func() error {
			cond := plan.Condition(page, where)
			start := time.Now()
			records, err := r.finder.Find(gctx, target, cond, opts)
			r.observer.QueryIssued(target, len(page), time.Since(start), err)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &QueryError{Model: j.model, Relation: j.rel.Name, Target: target, Err: err}
	}

	total := 0
	for _, page := range results {
		total += len(page)
	}
	out := make([]types.Record, 0, total)
	for _, page := range results {
		out = append(out, page...)
	}
	return out, nil
}

// newPlan builds the plan for one hop and reports it.
func (r *Resolver) newPlan(j *job, target, keyField string, keys []any) *BatchPlan {
	caps := r.finder.Capabilities()
	plan := NewBatchPlan(keyField, keys, effectivePageSize(r.inqLimit, caps))
	plan.Point = !caps.BatchedKeyLookup

	j.keys += len(plan.KeyValues)
	j.pages += plan.PageCount()
	r.observer.BatchPlanned(PlanInfo{
		Model:    j.model,
		Relation: j.rel.Name,
		Kind:     j.rel.Kind,
		Target:   target,
		Parents:  len(j.parents),
		Keys:     len(plan.KeyValues),
		Pages:    plan.PageCount(),
		Point:    plan.Point,
	})
	r.logger.Debug("include %s.%s (%s) -> %s: %d parents, %d keys on %s, %d queries",
		j.model, j.rel.Name, j.rel.Kind, target, len(j.parents), len(plan.KeyValues), keyField, plan.PageCount())
	return plan
}
