package script

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rediwo/redi-eager/drivers/memory"
	"github.com/rediwo/redi-eager/orm"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogModels = `[
	{
		"name": "User",
		"properties": {"name": "string"},
		"relations": {"posts": {"type": "hasMany", "model": "Post", "foreignKey": "userId"}}
	},
	{
		"name": "Post",
		"properties": {"title": "string", "userId": "number"},
		"relations": {"author": {"type": "belongsTo", "model": "User", "foreignKey": "userId"}}
	}
]`

func newRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.LoadJSON([]byte(blogModels)))
	client := orm.NewClient(memory.New(), reg)

	ctx := context.Background()
	for _, name := range []string{"User A", "User B"} {
		_, err := client.Model("User").Create(ctx, types.Record{"name": name})
		require.NoError(t, err)
	}
	for _, p := range []types.Record{
		{"title": "Post A", "userId": int64(1)},
		{"title": "Post B", "userId": int64(1)},
		{"title": "Post C", "userId": int64(2)},
	} {
		_, err := client.Model("Post").Create(ctx, p)
		require.NoError(t, err)
	}
	return New(client, opts...)
}

func TestRunFindWithInclude(t *testing.T) {
	r := newRuntime(t)

	result, err := r.Run(context.Background(), "find.js", `
		const eager = require('redi/eager');
		(async () => {
			const users = await eager.model('User').find({
				where: {name: 'User A'},
				include: {relation: 'posts', scope: {order: 'title DESC', fields: ['title']}},
			});
			return users;
		})();
	`)
	require.NoError(t, err)

	users, ok := result.([]any)
	require.True(t, ok, "got %T", result)
	require.Len(t, users, 1)
	user := users[0].(types.Object)

	posts, found := user.Get("posts")
	require.True(t, found)
	require.Len(t, posts, 2)
	first := posts.([]any)[0].(types.Object)
	title, _ := first.Get("title")
	assert.Equal(t, "Post B", title)
	_, hasID := first.Get("id")
	assert.False(t, hasID)
}

func TestRunShortcutsAndCreate(t *testing.T) {
	r := newRuntime(t)

	result, err := r.Run(context.Background(), "create.js", `
		const {create, findById, findOne} = require('redi/eager');
		(async () => {
			const post = await create('Post', {title: 'Post D', userId: 2});
			const found = await findById('Post', post.id, {include: 'author'});
			const none = await findOne('Post', {where: {title: 'missing'}});
			return {title: found.title, author: found.author.name, none: none};
		})();
	`)
	require.NoError(t, err)
	assert.Equal(t, types.Object{
		{Key: "title", Value: "Post D"},
		{Key: "author", Value: "User B"},
		{Key: "none", Value: nil},
	}, result)
}

func TestRunRelationWrites(t *testing.T) {
	r := newRuntime(t)

	result, err := r.Run(context.Background(), "related.js", `
		const eager = require('redi/eager');
		(async () => {
			const post = await eager.model('User').createRelated(2, 'posts', {title: 'Post E'});
			const user = await eager.findById('User', 2, {include: {relation: 'posts', scope: {order: 'title'}}});
			return {userId: post.userId, titles: user.posts.map(p => p.title)};
		})();
	`)
	require.NoError(t, err)
	assert.Equal(t, types.Object{
		{Key: "userId", Value: int64(2)},
		{Key: "titles", Value: []any{"Post C", "Post E"}},
	}, result)

	_, err = r.Run(context.Background(), "add.js", `
		require('redi/eager').addRelated('User', 1, 'posts', 1);
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNSUPPORTED_RELATION")

	_, err = r.Run(context.Background(), "missing.js", `
		require('redi/eager').createRelated('User', 1, 'comments', {});
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RELATION_NOT_FOUND")
}

func TestRunConsole(t *testing.T) {
	var out bytes.Buffer
	r := newRuntime(t, WithOutput(&out))

	_, err := r.Run(context.Background(), "log.js", `
		const eager = require('redi/eager');
		console.log('models:', eager.models.join(','));
	`)
	require.NoError(t, err)
	assert.Equal(t, "models: Post,User\n", out.String())
}

func TestRunRejectsMalformedInclude(t *testing.T) {
	r := newRuntime(t)

	_, err := r.Run(context.Background(), "bad.js", `
		require('redi/eager').find('User', {include: {relation: 42}});
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MALFORMED_INCLUDE")
}

func TestRunUnknownModelThrows(t *testing.T) {
	r := newRuntime(t)

	_, err := r.Run(context.Background(), "unknown.js", `require('redi/eager').model('Nope')`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nope")
}

func TestRunCanceled(t *testing.T) {
	r := newRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, "loop.js", `for (;;) {}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interrupted")
}

func TestRunKeepsKeyOrder(t *testing.T) {
	r := newRuntime(t)

	result, err := r.Run(context.Background(), "order.js", `({b: 1, a: [2, 'x'], c: {z: true, y: null}})`)
	require.NoError(t, err)
	assert.Equal(t, types.Object{
		{Key: "b", Value: int64(1)},
		{Key: "a", Value: []any{int64(2), "x"}},
		{Key: "c", Value: types.Object{{Key: "z", Value: true}, {Key: "y", Value: nil}}},
	}, result)
}
