package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Definition is a model definition in the JSON shape used by model files:
//
//	{
//	  "name": "Passport",
//	  "properties": {"number": "string", "ownerId": {"type": "number"}},
//	  "relations": {"owner": {"type": "belongsTo", "model": "User"}}
//	}
type Definition struct {
	Name       string                        `json:"name"`
	Table      string                        `json:"table,omitempty"`
	Properties map[string]json.RawMessage    `json:"properties"`
	Relations  map[string]RelationDefinition `json:"relations,omitempty"`
}

type RelationDefinition struct {
	Type        string          `json:"type"`
	Model       string          `json:"model,omitempty"`
	ForeignKey  string          `json:"foreignKey,omitempty"`
	PrimaryKey  string          `json:"primaryKey,omitempty"`
	Through     string          `json:"through,omitempty"`
	KeyThrough  string          `json:"keyThrough,omitempty"`
	Polymorphic json.RawMessage `json:"polymorphic,omitempty"`
	Options     struct {
		DisableInclude bool `json:"disableInclude,omitempty"`
	} `json:"options,omitempty"`
}

type propertyDefinition struct {
	Type     string `json:"type"`
	ID       bool   `json:"id"`
	Required bool   `json:"required"`
	Column   string `json:"column"`
}

// LoadFile reads model definitions from a JSON file into the registry.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model definitions: %w", err)
	}
	return r.LoadJSON(data)
}

// LoadJSON accepts a single definition or an array of them. All models are
// defined before any relation is declared, so definitions may reference
// each other in any order.
func (r *Registry) LoadJSON(data []byte) error {
	var defs []Definition
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var def Definition
		if err := json.Unmarshal(trimmed, &def); err != nil {
			return fmt.Errorf("failed to parse model definition: %w", err)
		}
		defs = []Definition{def}
	} else if err := json.Unmarshal(trimmed, &defs); err != nil {
		return fmt.Errorf("failed to parse model definitions: %w", err)
	}

	for _, def := range defs {
		s, err := def.Schema()
		if err != nil {
			return err
		}
		if err := r.Define(s); err != nil {
			return err
		}
	}

	for _, def := range defs {
		names := make([]string, 0, len(def.Relations))
		for name := range def.Relations {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			rd := def.Relations[name]
			kind, err := ParseRelationKind(rd.Type)
			if err != nil {
				return fmt.Errorf("model %s relation %s: %w", def.Name, name, err)
			}
			poly, polyKey, err := rd.polymorphic()
			if err != nil {
				return fmt.Errorf("model %s relation %s: %w", def.Name, name, err)
			}
			fk := rd.ForeignKey
			if fk == "" {
				fk = polyKey
			}
			opts := RelationOptions{
				Model:          rd.Model,
				ForeignKey:     fk,
				References:     rd.PrimaryKey,
				Through:        rd.Through,
				KeyThrough:     rd.KeyThrough,
				Polymorphic:    poly,
				DisableInclude: rd.Options.DisableInclude,
			}
			if err := r.AddRelation(def.Name, name, kind, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

// Schema converts the definition's properties into a Schema. Property
// values are either a type name or an object with type, id, required and
// column keys.
func (d Definition) Schema() (*Schema, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("model definition without a name")
	}
	s := New(d.Name).WithTableName(d.Table)

	names := make([]string, 0, len(d.Properties))
	for name := range d.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw := d.Properties[name]
		var prop propertyDefinition
		if err := json.Unmarshal(raw, &prop.Type); err != nil {
			if err := json.Unmarshal(raw, &prop); err != nil {
				return nil, fmt.Errorf("model %s property %s: %w", d.Name, name, err)
			}
		}
		ft, err := ParseFieldType(prop.Type)
		if err != nil {
			return nil, fmt.Errorf("model %s property %s: %w", d.Name, name, err)
		}
		fb := NewField(name)
		fb.field.Type = ft
		if prop.ID {
			fb.PrimaryKey()
		}
		if prop.Required {
			fb.Required()
		}
		if prop.Column != "" {
			fb.Map(prop.Column)
		}
		s.AddField(fb.Build())
	}
	return s, nil
}

// polymorphic decodes true, "as", or {"as", "foreignKey", "discriminator"}.
// The returned key is the foreignKey given inside the object form.
func (rd RelationDefinition) polymorphic() (any, string, error) {
	if len(rd.Polymorphic) == 0 {
		return nil, "", nil
	}
	var v any
	if err := json.Unmarshal(rd.Polymorphic, &v); err != nil {
		return nil, "", err
	}
	switch p := v.(type) {
	case bool, string, nil:
		return p, "", nil
	case map[string]any:
		out := &Polymorphic{}
		out.As, _ = p["as"].(string)
		out.Discriminator, _ = p["discriminator"].(string)
		fk, _ := p["foreignKey"].(string)
		return out, fk, nil
	default:
		return nil, "", fmt.Errorf("invalid polymorphic value %v", v)
	}
}
