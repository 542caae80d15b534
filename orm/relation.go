package orm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rediwo/redi-eager/models"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
)

var (
	// ErrRelationNotFound is returned for a relation the owner's model
	// does not declare.
	ErrRelationNotFound = errors.New("relation not found")

	// ErrUnsupportedRelation is returned when a write does not apply to
	// the relation kind.
	ErrUnsupportedRelation = errors.New("operation not supported for relation")
)

// Relation writes related records through one relation of an owner, so
// callers never deal with foreign key or join model names.
type Relation struct {
	client *Client
	owner  *models.Instance
	rel    *schema.Relation
}

// Relation returns a write handle for the relation name of owner.
func (c *Client) Relation(owner *models.Instance, name string) (*Relation, error) {
	if owner == nil {
		return nil, fmt.Errorf("relation %s: owner is nil", name)
	}
	rel, ok := c.registry.Relation(owner.Model(), name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrRelationNotFound, owner.Model(), name)
	}
	return &Relation{client: c, owner: owner, rel: rel}, nil
}

// Descriptor returns the relation being written through.
func (r *Relation) Descriptor() *schema.Relation { return r.rel }

// Create stores a target record linked to the owner. For hasMany and
// hasOne the foreign key (and discriminator of a polymorphic relation) is
// set on data. For through kinds the target is created first and then
// linked with a new through record. belongsTo is not supported, the link
// lives on the owner.
func (r *Relation) Create(ctx context.Context, data types.Record) (*models.Instance, error) {
	if r.rel.Kind == schema.BelongsTo {
		return nil, fmt.Errorf("%w: create on %s", ErrUnsupportedRelation, r.rel)
	}
	ownerKey, err := r.ownerKey()
	if err != nil {
		return nil, err
	}

	switch r.rel.Kind {
	case schema.HasMany, schema.HasOne:
		rec := data.Clone()
		rec[r.rel.ForeignKey] = ownerKey
		if p := r.rel.Polymorphic; p != nil {
			rec[p.Discriminator] = r.owner.Model()
		}
		return r.create(ctx, r.rel.Target, rec)
	default:
		target, err := r.create(ctx, r.rel.Target, data)
		if err != nil {
			return nil, err
		}
		if _, err := r.Add(ctx, target); err != nil {
			return nil, err
		}
		return target, nil
	}
}

// Add links an existing target to the owner by creating a through record
// and returns that record. Only through kinds support Add.
func (r *Relation) Add(ctx context.Context, target *models.Instance) (*models.Instance, error) {
	if !r.rel.Kind.Through() {
		return nil, fmt.Errorf("%w: add on %s", ErrUnsupportedRelation, r.rel)
	}
	if target == nil {
		return nil, fmt.Errorf("add on %s: target is nil", r.rel)
	}
	if target.Model() != r.rel.Target {
		return nil, fmt.Errorf("add on %s: target is a %s", r.rel, target.Model())
	}
	ownerKey, err := r.ownerKey()
	if err != nil {
		return nil, err
	}
	targetKey := target.Get(r.rel.TargetKey)
	if targetKey == nil {
		return nil, fmt.Errorf("add on %s: target has no %s", r.rel, r.rel.TargetKey)
	}

	return r.create(ctx, r.rel.Through, types.Record{
		r.rel.ForeignKey: ownerKey,
		r.rel.KeyThrough: targetKey,
	})
}

func (r *Relation) ownerKey() (any, error) {
	key := r.owner.Get(r.rel.References)
	if key == nil {
		return nil, fmt.Errorf("%s: owner has no %s", r.rel, r.rel.References)
	}
	return key, nil
}

func (r *Relation) create(ctx context.Context, model string, data types.Record) (*models.Instance, error) {
	return r.client.Model(model).Create(ctx, data)
}
