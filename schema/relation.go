package schema

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/rediwo/redi-eager/utils"
)

// RelationKind is the closed set of relation types the include resolver
// dispatches on.
type RelationKind string

const (
	BelongsTo           RelationKind = "belongsTo"
	HasOne              RelationKind = "hasOne"
	HasMany             RelationKind = "hasMany"
	HasManyThrough      RelationKind = "hasManyThrough"
	HasAndBelongsToMany RelationKind = "hasAndBelongsToMany"
)

func ParseRelationKind(s string) (RelationKind, error) {
	switch RelationKind(s) {
	case BelongsTo, HasOne, HasMany, HasManyThrough, HasAndBelongsToMany:
		return RelationKind(s), nil
	default:
		return "", fmt.Errorf("unknown relation type %q", s)
	}
}

// ToOne reports whether the relation resolves to a single record.
func (k RelationKind) ToOne() bool {
	return k == BelongsTo || k == HasOne
}

// Through reports whether the relation goes through a join model.
func (k RelationKind) Through() bool {
	return k == HasManyThrough || k == HasAndBelongsToMany
}

// Polymorphic describes a relation whose target model is chosen per record.
//
// For belongsTo the Discriminator field lives on the owning model and holds
// the target model name. For hasOne and hasMany it lives on the target and
// must equal the owning model name.
type Polymorphic struct {
	As            string
	Discriminator string
}

// Relation is the resolved, immutable descriptor of one named relation.
//
// Key fields by kind:
//
//	belongsTo:        owner.ForeignKey  -> target.References
//	hasOne, hasMany:  owner.References  -> target.ForeignKey
//	through kinds:    owner.References  -> through.ForeignKey,
//	                  through.KeyThrough -> target.TargetKey
type Relation struct {
	Name           string
	Kind           RelationKind
	Model          string
	Target         string // empty for polymorphic belongsTo
	ForeignKey     string
	References     string
	Through        string
	KeyThrough     string
	TargetKey      string
	Polymorphic    *Polymorphic
	DisableInclude bool
}

// OwnerKey is the field on owning records that links to the target side.
func (r *Relation) OwnerKey() string {
	if r.Kind == BelongsTo {
		return r.ForeignKey
	}
	return r.References
}

// ChildKey is the field on fetched records (the through records for
// through kinds) that the owner key is matched against.
func (r *Relation) ChildKey() string {
	if r.Kind == BelongsTo {
		return r.References
	}
	return r.ForeignKey
}

func (r *Relation) String() string {
	return fmt.Sprintf("%s.%s (%s %s)", r.Model, r.Name, r.Kind, r.targetLabel())
}

func (r *Relation) targetLabel() string {
	if r.Target == "" {
		return "polymorphic"
	}
	return r.Target
}

// RelationOptions declares a relation. Empty fields take default names.
type RelationOptions struct {
	Model      string
	ForeignKey string
	References string
	Through    string
	KeyThrough string
	// Polymorphic is either true, a string naming the "as" prefix, or a
	// *Polymorphic with explicit names.
	Polymorphic    any
	DisableInclude bool
}

// DefaultForeignKey is the loopback style key name for a model or relation:
// "User" -> "userId", "owner" -> "ownerId".
func DefaultForeignKey(name string) string {
	return utils.LowerFirst(name) + "Id"
}

// ModelNameFromRelation infers a target model from a relation name:
// "posts" -> "Post", "owner" -> "Owner".
func ModelNameFromRelation(name string) string {
	return utils.UpperFirst(inflection.Singular(name))
}

// JoinModelName names the implicit join model of a hasAndBelongsToMany
// relation by concatenating both model names alphabetically.
func JoinModelName(a, b string) string {
	if strings.ToLower(a) > strings.ToLower(b) {
		a, b = b, a
	}
	return a + b
}

func parsePolymorphic(relationName string, v any) (*Polymorphic, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if !p {
			return nil, nil
		}
		return &Polymorphic{As: relationName, Discriminator: relationName + "Type"}, nil
	case string:
		return &Polymorphic{As: p, Discriminator: p + "Type"}, nil
	case *Polymorphic:
		out := *p
		if out.As == "" {
			out.As = relationName
		}
		if out.Discriminator == "" {
			out.Discriminator = out.As + "Type"
		}
		return &out, nil
	case Polymorphic:
		return parsePolymorphic(relationName, &p)
	default:
		return nil, fmt.Errorf("invalid polymorphic option %T", v)
	}
}
