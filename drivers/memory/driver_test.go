package memory

import (
	"context"
	"testing"

	"github.com/rediwo/redi-eager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPosts(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	for _, p := range []types.Record{
		{"title": "b", "userId": int64(1)},
		{"title": "a", "userId": int64(2)},
		{"title": "c", "userId": int64(1)},
	} {
		_, err := db.Create(ctx, "Post", p)
		require.NoError(t, err)
	}
}

func TestCreateAssignsIDs(t *testing.T) {
	db := New()
	ctx := context.Background()

	rec, err := db.Create(ctx, "User", types.Record{"name": "A"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec["id"])

	rec, err = db.Create(ctx, "User", types.Record{"id": int64(10), "name": "B"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec["id"])

	rec, err = db.Create(ctx, "User", types.Record{"name": "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), rec["id"])

	_, err = db.Create(ctx, "User", types.Record{"id": int64(10)})
	assert.Error(t, err)
}

func TestCreateLargeIDs(t *testing.T) {
	db := New()
	ctx := context.Background()
	const big = int64(1) << 53

	_, err := db.Create(ctx, "User", types.Record{"id": big})
	require.NoError(t, err)
	_, err = db.Create(ctx, "User", types.Record{"id": big + 1})
	require.NoError(t, err)

	recs, err := db.Find(ctx, "User", types.Eq("id", big+1), types.FindOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, big+1, recs[0]["id"])
}

func TestCreateCopiesInput(t *testing.T) {
	db := New()
	data := types.Record{"name": "A"}
	_, err := db.Create(context.Background(), "User", data)
	require.NoError(t, err)
	assert.NotContains(t, data, "id")
}

func TestFind(t *testing.T) {
	db := New()
	seedPosts(t, db)
	ctx := context.Background()

	t.Run("filter and order", func(t *testing.T) {
		recs, err := db.Find(ctx, "Post", types.Eq("userId", 1), types.FindOptions{
			Order: []types.OrderBy{{Field: "title", Direction: types.DESC}},
		})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "c", recs[0]["title"])
		assert.Equal(t, "b", recs[1]["title"])
	})

	t.Run("projection", func(t *testing.T) {
		recs, err := db.Find(ctx, "Post", nil, types.FindOptions{Fields: []string{"title"}})
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, types.Record{"title": "b"}, recs[0])
	})

	t.Run("window", func(t *testing.T) {
		recs, err := db.Find(ctx, "Post", nil, types.FindOptions{
			Order: []types.OrderBy{{Field: "title"}},
			Skip:  1,
			Limit: 1,
		})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "b", recs[0]["title"])
	})

	t.Run("results are copies", func(t *testing.T) {
		recs, err := db.Find(ctx, "Post", nil, types.FindOptions{})
		require.NoError(t, err)
		recs[0]["title"] = "changed"
		again, err := db.Find(ctx, "Post", nil, types.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, "b", again[0]["title"])
	})

	t.Run("unknown model is empty", func(t *testing.T) {
		recs, err := db.Find(ctx, "Nope", nil, types.FindOptions{})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func TestFindHonorsCapabilities(t *testing.T) {
	db := New()
	seedPosts(t, db)
	ctx := context.Background()
	batch := types.In("userId", []any{int64(1), int64(2)})
	order := types.FindOptions{Order: []types.OrderBy{{Field: "title"}}}

	t.Run("no batched lookup", func(t *testing.T) {
		db.SetCapabilities(types.Capabilities{})
		_, err := db.Find(ctx, "Post", batch, order)
		assert.ErrorIs(t, err, ErrBatchedLookup)

		recs, err := db.Find(ctx, "Post", types.In("userId", []any{int64(2)}), order)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("no ad hoc sort ignores order on batches", func(t *testing.T) {
		db.SetCapabilities(types.Capabilities{BatchedKeyLookup: true})
		recs, err := db.Find(ctx, "Post", batch, order)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, []any{"b", "a", "c"}, []any{recs[0]["title"], recs[1]["title"], recs[2]["title"]})
	})

	t.Run("max keys", func(t *testing.T) {
		db.SetCapabilities(types.Capabilities{BatchedKeyLookup: true, MaxKeysPerBatch: 1})
		_, err := db.Find(ctx, "Post", batch, order)
		assert.Error(t, err)
	})
}

func TestSaveAndDestroy(t *testing.T) {
	db := New()
	seedPosts(t, db)
	ctx := context.Background()

	_, err := db.Save(ctx, "Post", types.Record{"id": int64(1), "title": "z", "userId": int64(1)})
	require.NoError(t, err)
	recs, err := db.Find(ctx, "Post", types.Eq("id", 1), types.FindOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "z", recs[0]["title"])

	n, err := db.Destroy(ctx, "Post", types.Eq("userId", 1))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := db.Count(ctx, "Post", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClosed(t *testing.T) {
	db := New()
	require.NoError(t, db.Close())
	_, err := db.Find(context.Background(), "Post", nil, types.FindOptions{})
	assert.Error(t, err)
}

func TestURIParser(t *testing.T) {
	p := NewMemoryURIParser()

	native, err := p.ParseURI("memory://?batched=false&maxKeys=3")
	require.NoError(t, err)
	caps, err := parseCapabilities(native)
	require.NoError(t, err)
	assert.Equal(t, types.Capabilities{AdHocSortOnBatchedQuery: true, MaxKeysPerBatch: 3}, caps)

	_, err = p.ParseURI("memory://?colour=red")
	assert.Error(t, err)
	_, err = p.ParseURI("sqlite://x.db")
	assert.Error(t, err)
	_, err = p.ParseURI("memory://?maxKeys=-1")
	assert.Error(t, err)

	assert.Equal(t, []string{"memory"}, p.GetSupportedSchemes())
	assert.Equal(t, types.DriverMemory, p.GetDriverType())
}
