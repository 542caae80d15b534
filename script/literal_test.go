package script

import (
	"testing"

	"github.com/rediwo/redi-eager/orm"
	"github.com/rediwo/redi-eager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalLiteral(t *testing.T) {
	t.Run("object literal keeps key order", func(t *testing.T) {
		v, err := EvalLiteral(`{include: {owner: 'posts'}, limit: 2, order: "name DESC"}`)
		require.NoError(t, err)
		assert.Equal(t, types.Object{
			{Key: "include", Value: types.Object{{Key: "owner", Value: "posts"}}},
			{Key: "limit", Value: int64(2)},
			{Key: "order", Value: "name DESC"},
		}, v)
	})

	t.Run("json", func(t *testing.T) {
		v, err := EvalLiteral(`{"where": {"id": 1}, "include": ["posts"]}`)
		require.NoError(t, err)
		assert.Equal(t, types.Object{
			{Key: "where", Value: types.Object{{Key: "id", Value: int64(1)}}},
			{Key: "include", Value: []any{"posts"}},
		}, v)
	})

	t.Run("parses as a filter", func(t *testing.T) {
		v, err := EvalLiteral(`{include: {relation: 'posts', scope: {order: 'title DESC', limit: 1}}}`)
		require.NoError(t, err)
		f, err := orm.ParseFilter(v)
		require.NoError(t, err)
		assert.Equal(t, []string{"posts"}, f.Include.Names())
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := EvalLiteral(`{include: `)
		require.Error(t, err)
	})
}
