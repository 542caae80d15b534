package metrics

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rediwo/redi-eager/drivers/memory"
	"github.com/rediwo/redi-eager/include"
	"github.com/rediwo/redi-eager/models"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorEvents(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.BatchPlanned(include.PlanInfo{Kind: schema.HasMany, Parents: 5, Keys: 3, Pages: 1})
	c.BatchPlanned(include.PlanInfo{Kind: schema.BelongsTo, Parents: 2, Keys: 2, Pages: 2, Point: true})
	c.QueryIssued("Post", 3, time.Millisecond, nil)
	c.QueryIssued("Post", 3, time.Millisecond, errors.New("boom"))
	c.RelationSkipped("User", "accesstokens", include.SkipDisabled)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.batches.WithLabelValues("hasMany", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.batches.WithLabelValues("belongsTo", "true")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.saved))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queries.WithLabelValues("Post", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queries.WithLabelValues("Post", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.skipped.WithLabelValues("disabled")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.keysPerBatch))
}

func TestCollectorWithResolver(t *testing.T) {
	ctx := context.Background()
	reg := schema.NewRegistry()
	require.NoError(t, reg.LoadJSON([]byte(`[
		{"name": "User", "relations": {"posts": {"type": "hasMany", "model": "Post", "foreignKey": "userId"}}},
		{"name": "Post", "properties": {"title": "string", "userId": "number"}}
	]`)))

	db := memory.New()
	for i := 0; i < 3; i++ {
		_, err := db.Create(ctx, "User", types.Record{})
		require.NoError(t, err)
	}
	_, err := db.Create(ctx, "Post", types.Record{"title": "a", "userId": int64(1)})
	require.NoError(t, err)

	recs, err := db.Find(ctx, "User", nil, types.FindOptions{})
	require.NoError(t, err)
	users := models.FromRecords("User", recs)

	promReg := prometheus.NewRegistry()
	c := NewCollector(promReg)
	r := include.New(db, reg, include.WithObserver(c))
	require.NoError(t, r.Include(ctx, users, []any{"posts", "bogus"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.queries.WithLabelValues("Post", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.saved))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.skipped.WithLabelValues(include.SkipUnknown)))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, promReg))
	assert.Contains(t, buf.String(), "redi_eager_include_queries_total{model=\"Post\",outcome=\"success\"} 1")
	assert.Contains(t, buf.String(), "redi_eager_include_relations_skipped_total{reason=\"unknown\"} 1")
}
