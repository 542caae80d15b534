package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixtureRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, name := range []string{"User", "Profile", "AccessToken", "Passport", "Post", "Assembly", "Part"} {
		require.NoError(t, r.Define(New(name)))
	}

	require.NoError(t, r.BelongsTo("Passport", "owner", RelationOptions{Model: "User"}))
	require.NoError(t, r.HasMany("User", "passports", RelationOptions{ForeignKey: "ownerId"}))
	require.NoError(t, r.HasMany("User", "posts", RelationOptions{ForeignKey: "userId"}))
	require.NoError(t, r.HasMany("User", "accesstokens", RelationOptions{ForeignKey: "userId", DisableInclude: true}))
	require.NoError(t, r.BelongsTo("Profile", "user", RelationOptions{Model: "User"}))
	require.NoError(t, r.HasOne("User", "profile", RelationOptions{ForeignKey: "userId"}))
	require.NoError(t, r.BelongsTo("Post", "author", RelationOptions{Model: "User", ForeignKey: "userId"}))
	require.NoError(t, r.HasAndBelongsToMany("Assembly", "parts", RelationOptions{Model: "Part"}))
	require.NoError(t, r.HasAndBelongsToMany("Part", "assemblies", RelationOptions{Model: "Assembly"}))
	return r
}

func TestRelationDefaults(t *testing.T) {
	r := newFixtureRegistry(t)

	owner, ok := r.Relation("Passport", "owner")
	require.True(t, ok)
	assert.Equal(t, BelongsTo, owner.Kind)
	assert.Equal(t, "User", owner.Target)
	assert.Equal(t, "ownerId", owner.ForeignKey)
	assert.Equal(t, "id", owner.References)
	assert.Equal(t, "ownerId", owner.OwnerKey())
	assert.Equal(t, "id", owner.ChildKey())

	posts, ok := r.Relation("User", "posts")
	require.True(t, ok)
	assert.Equal(t, HasMany, posts.Kind)
	assert.Equal(t, "Post", posts.Target)
	assert.Equal(t, "id", posts.OwnerKey())
	assert.Equal(t, "userId", posts.ChildKey())

	profile, ok := r.Relation("User", "profile")
	require.True(t, ok)
	assert.True(t, profile.Kind.ToOne())
	assert.Equal(t, "Profile", profile.Target)

	user, ok := r.Relation("Profile", "user")
	require.True(t, ok)
	assert.Equal(t, "userId", user.ForeignKey)
}

func TestRelationTargetIsCaseInsensitive(t *testing.T) {
	r := newFixtureRegistry(t)

	tokens, ok := r.Relation("User", "accesstokens")
	require.True(t, ok)
	assert.Equal(t, "AccessToken", tokens.Target)
	assert.True(t, tokens.DisableInclude)
}

func TestHasAndBelongsToManyJoinModel(t *testing.T) {
	r := newFixtureRegistry(t)

	parts, ok := r.Relation("Assembly", "parts")
	require.True(t, ok)
	assert.Equal(t, HasAndBelongsToMany, parts.Kind)
	assert.True(t, parts.Kind.Through())
	assert.Equal(t, "AssemblyPart", parts.Through)
	assert.Equal(t, "assemblyId", parts.ForeignKey)
	assert.Equal(t, "partId", parts.KeyThrough)
	assert.Equal(t, "id", parts.TargetKey)

	assemblies, ok := r.Relation("Part", "assemblies")
	require.True(t, ok)
	assert.Equal(t, "AssemblyPart", assemblies.Through)
	assert.Equal(t, "partId", assemblies.ForeignKey)
	assert.Equal(t, "assemblyId", assemblies.KeyThrough)

	join, ok := r.Schema("AssemblyPart")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "assemblyId", "partId"}, join.FieldNames())
}

func TestHasManyThrough(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"Physician", "Patient", "Appointment"} {
		require.NoError(t, r.Define(New(name)))
	}
	require.NoError(t, r.HasMany("Physician", "patients", RelationOptions{Through: "Appointment"}))

	rel, ok := r.Relation("Physician", "patients")
	require.True(t, ok)
	assert.Equal(t, HasManyThrough, rel.Kind)
	assert.Equal(t, "Appointment", rel.Through)
	assert.Equal(t, "physicianId", rel.ForeignKey)
	assert.Equal(t, "patientId", rel.KeyThrough)
}

func TestPolymorphicRelations(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"Picture", "Author", "Reader"} {
		require.NoError(t, r.Define(New(name)))
	}
	require.NoError(t, r.BelongsTo("Picture", "imageable", RelationOptions{Polymorphic: true}))
	require.NoError(t, r.HasMany("Author", "pictures", RelationOptions{Polymorphic: "imageable"}))

	imageable, ok := r.Relation("Picture", "imageable")
	require.True(t, ok)
	assert.Empty(t, imageable.Target)
	assert.Equal(t, "imageableId", imageable.ForeignKey)
	assert.Equal(t, "imageableType", imageable.Polymorphic.Discriminator)

	pictures, ok := r.Relation("Author", "pictures")
	require.True(t, ok)
	assert.Equal(t, "Picture", pictures.Target)
	assert.Equal(t, "imageableId", pictures.ForeignKey)
	assert.Equal(t, "imageableType", pictures.Polymorphic.Discriminator)
}

func TestRelationLookupMisses(t *testing.T) {
	r := newFixtureRegistry(t)

	_, ok := r.Relation("User", "nope")
	assert.False(t, ok)
	_, ok = r.Relation("Ghost", "posts")
	assert.False(t, ok)

	err := r.HasMany("Ghost", "posts", RelationOptions{})
	assert.ErrorIs(t, err, ErrModelNotFound)

	err = r.AddRelation("User", "x", HasManyThrough, RelationOptions{})
	assert.Error(t, err)
}

func TestRelationNamesKeepDeclarationOrder(t *testing.T) {
	r := newFixtureRegistry(t)
	assert.Equal(t, []string{"passports", "posts", "accesstokens", "profile"}, r.RelationNames("User"))
}

func TestSchemaIDField(t *testing.T) {
	s := New("Book").AddField(NewField("isbn").PrimaryKey().Build())
	assert.Equal(t, "isbn", s.IDField())
	assert.Equal(t, "id", New("Other").IDField())

	dup := New("Dup").AddField(NewField("a").Build()).AddField(NewField("a").Build())
	assert.Error(t, dup.Validate())
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "userId", DefaultForeignKey("User"))
	assert.Equal(t, "ownerId", DefaultForeignKey("owner"))
	assert.Equal(t, "Post", ModelNameFromRelation("posts"))
	assert.Equal(t, "Assembly", ModelNameFromRelation("assemblies"))
	assert.Equal(t, "AssemblyPart", JoinModelName("Part", "Assembly"))
	assert.Equal(t, "DoctorPatient", JoinModelName("Doctor", "Patient"))
}
