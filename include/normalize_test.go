package include

import (
	"errors"
	"testing"

	"github.com/rediwo/redi-eager/filter"
	"github.com/rediwo/redi-eager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"nil", nil, ""},
		{"string", "posts", "posts"},
		{"dotted path", "owner.posts.author", "owner{posts{author}}"},
		{"string slice", []string{"posts", "passports"}, "posts, passports"},
		{"mixed array", []any{"posts", map[string]any{"owner": "posts"}}, "posts, owner{posts}"},
		{"mapping to string", map[string]any{"owner": "posts"}, "owner{posts}"},
		{"mapping to array", map[string]any{"owner": []any{"posts", "passports"}}, "owner{posts, passports}"},
		{"mapping keys sorted", map[string]any{"posts": true, "owner": true}, "owner, posts"},
		{"false omits", map[string]any{"posts": true, "profile": false, "owner": nil}, "posts"},
		{"dotted key", map[string]any{"owner.posts": "author"}, "owner{posts{author}}"},
		{"scoped", map[string]any{"relation": "posts"}, "posts"},
		{"scoped nested", map[string]any{
			"relation": "owner",
			"scope":    map[string]any{"include": "posts"},
		}, "owner{posts}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.String())
		})
	}
}

func TestNormalizeKeepsObjectOrder(t *testing.T) {
	raw, err := ParseJSON([]byte(`{"posts": true, "owner": "posts", "profile": true}`))
	require.NoError(t, err)

	spec, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "owner", "profile"}, spec.Names())
}

func TestNormalizeScope(t *testing.T) {
	spec, err := Normalize(map[string]any{
		"relation": "posts",
		"scope": map[string]any{
			"where":  map[string]any{"title": map[string]any{"like": "Post%"}},
			"order":  []any{"title DESC", "id"},
			"limit":  2,
			"offset": 1,
			"fields": map[string]any{"title": true, "body": false},
		},
	})
	require.NoError(t, err)
	require.Len(t, spec, 1)

	scope := spec[0].Scope
	require.NotNil(t, scope)
	assert.Equal(t, "title LIKE Post%", scope.Where.String())
	assert.Equal(t, []types.OrderBy{{Field: "title", Direction: types.DESC}, {Field: "id"}}, scope.Order)
	assert.Equal(t, 2, scope.Limit)
	assert.Equal(t, 1, scope.Skip)
	assert.Equal(t, []string{"title"}, scope.Fields)
}

func TestNormalizeScopeOnDottedRelation(t *testing.T) {
	spec, err := Normalize(map[string]any{
		"relation": "owner.posts",
		"scope":    map[string]any{"limit": 1},
	})
	require.NoError(t, err)
	assert.Nil(t, spec[0].Scope)
	require.Len(t, spec[0].Include, 1)
	assert.Equal(t, 1, spec[0].Include[0].Scope.Limit)
}

func TestNormalizeMergesDuplicates(t *testing.T) {
	spec, err := Normalize([]any{
		map[string]any{"relation": "posts", "scope": map[string]any{"limit": 1}},
		map[string]any{"owner": "posts"},
		map[string]any{"relation": "posts", "scope": map[string]any{"limit": 3, "include": "author"}},
		"owner.passports",
	})
	require.NoError(t, err)
	assert.Equal(t, "posts{author}, owner{posts, passports}", spec.String())
	assert.Equal(t, 3, spec[0].Scope.Limit)
}

func TestNormalizeMergeKeepsEarlierScope(t *testing.T) {
	spec, err := Normalize([]any{
		map[string]any{"relation": "posts", "scope": map[string]any{"limit": 1}},
		"posts.author",
	})
	require.NoError(t, err)
	require.Len(t, spec, 1)
	assert.Equal(t, 1, spec[0].Scope.Limit)
	assert.Equal(t, "posts{author}", spec.String())
}

func TestNormalizeDoesNotShareNodes(t *testing.T) {
	in := Spec{{Relation: "posts", Include: Spec{{Relation: "author"}}}}
	out, err := Normalize(in)
	require.NoError(t, err)
	out[0].Include[0].Relation = "changed"
	assert.Equal(t, "author", in[0].Include[0].Relation)
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		path string
	}{
		{"number", 42, "include"},
		{"empty path segment", "owner..posts", "include"},
		{"empty name", "", "include"},
		{"array item", []any{"posts", 7}, "include[1]"},
		{"relation not string", map[string]any{"relation": 1}, "include.relation"},
		{"scope not object", map[string]any{"relation": "posts", "scope": "x"}, "include.scope"},
		{"bad limit", map[string]any{"relation": "posts", "scope": map[string]any{"limit": -1}}, "include.scope.limit"},
		{"bad order", map[string]any{"relation": "posts", "scope": map[string]any{"order": 5}}, "include.scope.order"},
		{"node without name", Spec{{Relation: ""}}, "include[0]"},
		{"nil node", Spec{nil}, "include[0]"},
		{"unknown scope key", map[string]any{"relation": "posts", "scope": map[string]any{"limt": 1}}, "include.scope.limt"},
		{"unknown nested scope key", map[string]any{"owner": map[string]any{
			"relation": "posts", "scope": map[string]any{"sort": "title"},
		}}, "include.owner.scope.sort"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			require.Error(t, err)
			var me *MalformedSpecError
			require.True(t, errors.As(err, &me), "got %T", err)
			assert.Equal(t, tt.path, me.Path)
		})
	}
}

func TestNormalizeErrorUnwrapsFilterError(t *testing.T) {
	_, err := Normalize(map[string]any{
		"relation": "posts",
		"scope":    map[string]any{"where": map[string]any{"title": map[string]any{"bogus": 1}}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, filter.ErrInvalidWhere))
}
