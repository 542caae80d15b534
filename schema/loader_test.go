package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelsJSON = `[
  {
    "name": "Challenger",
    "properties": {"name": "string"},
    "relations": {"gameParticipations": {"type": "hasMany", "model": "GameParticipation", "foreignKey": ""}}
  },
  {
    "name": "GameParticipation",
    "properties": {"date": "date", "challengerId": {"type": "number"}},
    "relations": {
      "challenger": {"type": "belongsTo", "model": "Challenger"},
      "results": {"type": "hasMany", "model": "Result"}
    }
  },
  {
    "name": "Result",
    "properties": {"points": "number", "code": {"type": "string", "id": true, "column": "result_code"}},
    "relations": {
      "gameParticipation": {"type": "belongsTo", "model": "GameParticipation", "options": {"disableInclude": true}},
      "owner": {"type": "belongsTo", "polymorphic": {"as": "owner", "foreignKey": "ownerRef", "discriminator": "ownerKind"}}
    }
  }
]`

func TestLoadJSON(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.LoadJSON([]byte(modelsJSON)))

	assert.Equal(t, []string{"Challenger", "GameParticipation", "Result"}, r.Models())

	rel, ok := r.Relation("Challenger", "gameParticipations")
	require.True(t, ok)
	assert.Equal(t, "challengerId", rel.ForeignKey)

	rel, ok = r.Relation("GameParticipation", "results")
	require.True(t, ok)
	assert.Equal(t, "gameParticipationId", rel.ForeignKey)

	rel, ok = r.Relation("Result", "gameParticipation")
	require.True(t, ok)
	assert.True(t, rel.DisableInclude)

	rel, ok = r.Relation("Result", "owner")
	require.True(t, ok)
	assert.Equal(t, "ownerRef", rel.ForeignKey)
	assert.Equal(t, "ownerKind", rel.Polymorphic.Discriminator)

	result, ok := r.Schema("Result")
	require.True(t, ok)
	assert.Equal(t, "code", result.IDField())
	code, err := result.GetField("code")
	require.NoError(t, err)
	assert.Equal(t, "result_code", code.Map)
	assert.Equal(t, FieldTypeString, code.Type)

	// primary key of the target drives the default references
	rel, ok = r.Relation("GameParticipation", "results")
	require.True(t, ok)
	assert.Equal(t, "id", rel.References)
}

func TestLoadJSONSingleObject(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.LoadJSON([]byte(`{"name": "City", "properties": {"name": "string"}}`)))
	_, ok := r.Schema("city")
	assert.True(t, ok)
}

func TestLoadJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `[{"name": }]`},
		{"missing name", `[{"properties": {}}]`},
		{"bad type", `[{"name": "A", "properties": {"x": "blob"}}]`},
		{"bad relation type", `[{"name": "A", "relations": {"b": {"type": "manyToMany"}}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewRegistry().LoadJSON([]byte(tt.data)))
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.json")
	require.NoError(t, os.WriteFile(path, []byte(modelsJSON), 0o644))

	r := NewRegistry()
	require.NoError(t, r.LoadFile(path))
	assert.Len(t, r.Models(), 3)

	assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "missing.json")))
}
