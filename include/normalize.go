package include

import (
	"fmt"
	"strings"

	"github.com/rediwo/redi-eager/filter"
	"github.com/rediwo/redi-eager/types"
)

// Normalize turns a raw include value into a Spec. Accepted shapes:
//
//	"posts"                                   one relation
//	"owner.posts"                             nested path
//	["posts", "profile"]                      several relations
//	{"owner": "posts"}                        relation -> nested include
//	{"posts": true, "profile": false}         true includes, false omits
//	{"relation": "posts", "scope": {...}}     scoped relation
//
// Scopes accept where, order, limit, skip (or offset), fields and include;
// any other scope key is malformed.
// Relation names are not checked here; unknown names are skipped during
// resolution. Repeated names at one level merge: the later scope wins and
// nested includes are concatenated.
func Normalize(raw any) (Spec, error) {
	spec, err := normalize(raw, "include")
	if err != nil {
		return nil, err
	}
	if err := validate(spec, "include"); err != nil {
		return nil, err
	}
	return merge(spec), nil
}

func validate(spec Spec, path string) error {
	for i, n := range spec {
		if n == nil || strings.TrimSpace(n.Relation) == "" {
			return &MalformedSpecError{Path: fmt.Sprintf("%s[%d]", path, i), Reason: "node has no relation name"}
		}
		if err := validate(n.Include, path+"."+n.Relation); err != nil {
			return err
		}
	}
	return nil
}

func normalize(raw any, path string) (Spec, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case Spec:
		return v, nil
	case *Node:
		if v == nil {
			return nil, nil
		}
		return Spec{v}, nil
	case string:
		root, _, err := parsePath(v, path)
		if err != nil {
			return nil, err
		}
		return Spec{root}, nil
	case []string:
		var out Spec
		for i, name := range v {
			root, _, err := parsePath(name, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, root)
		}
		return out, nil
	case []any:
		var out Spec
		for i, item := range v {
			spec, err := normalize(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, spec...)
		}
		return out, nil
	}

	entries, ok := types.Entries(raw)
	if !ok {
		return nil, &MalformedSpecError{Path: path, Reason: fmt.Sprintf("unsupported value of type %T", raw)}
	}
	if _, scoped := types.Object(entries).Get("relation"); scoped {
		node, err := normalizeScoped(types.Object(entries), path)
		if err != nil {
			return nil, err
		}
		return Spec{node}, nil
	}

	var out Spec
	for _, e := range entries {
		entryPath := path + "." + e.Key
		if e.Value == nil {
			continue
		}
		if b, isBool := e.Value.(bool); isBool && !b {
			continue
		}

		root, leaf, err := parsePath(e.Key, entryPath)
		if err != nil {
			return nil, err
		}
		if _, isBool := e.Value.(bool); !isBool {
			nested, err := normalize(e.Value, entryPath)
			if err != nil {
				return nil, err
			}
			leaf.Include = append(leaf.Include, nested...)
		}
		out = append(out, root)
	}
	return out, nil
}

// normalizeScoped handles {"relation": name, "scope": {...}}.
func normalizeScoped(obj types.Object, path string) (*Node, error) {
	rel, _ := obj.Get("relation")
	name, ok := rel.(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, &MalformedSpecError{Path: path + ".relation", Reason: "relation must be a non-empty string"}
	}
	root, leaf, err := parsePath(name, path+".relation")
	if err != nil {
		return nil, err
	}

	rawScope, _ := obj.Get("scope")
	if rawScope == nil {
		return root, nil
	}
	scopeEntries, ok := types.Entries(rawScope)
	if !ok {
		return nil, &MalformedSpecError{Path: path + ".scope", Reason: fmt.Sprintf("scope must be an object, got %T", rawScope)}
	}

	scope, nested, err := parseScope(scopeEntries, path+".scope")
	if err != nil {
		return nil, err
	}
	leaf.Scope = scope
	leaf.Include = append(leaf.Include, nested...)
	return root, nil
}

func parseScope(entries []types.Entry, path string) (*Scope, Spec, error) {
	scope := &Scope{}
	var nested Spec

	for _, e := range entries {
		keyPath := path + "." + e.Key
		var err error
		switch e.Key {
		case "where":
			scope.Where, err = filter.ParseWhere(e.Value)
		case "order":
			scope.Order, err = filter.ParseOrder(e.Value)
		case "limit":
			scope.Limit, err = filter.ParseCount(e.Key, e.Value)
		case "skip", "offset":
			scope.Skip, err = filter.ParseCount(e.Key, e.Value)
		case "fields":
			scope.Fields, err = filter.ParseFields(e.Value)
		case "include":
			nested, err = normalize(e.Value, keyPath)
			if err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, &MalformedSpecError{Path: keyPath, Reason: fmt.Sprintf("unknown scope key %q", e.Key)}
		}
		if err != nil {
			return nil, nil, &MalformedSpecError{Path: keyPath, Reason: err.Error(), Err: err}
		}
	}
	return scope, nested, nil
}

// parsePath expands "a.b.c" into a chain of nodes and returns its root and
// leaf.
func parsePath(name, path string) (root, leaf *Node, err error) {
	parts := strings.Split(name, ".")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, nil, &MalformedSpecError{Path: path, Reason: fmt.Sprintf("empty relation name in %q", name)}
		}
		node := &Node{Relation: part}
		if root == nil {
			root = node
		} else {
			leaf.Include = Spec{node}
		}
		leaf = node
	}
	return root, leaf, nil
}

// merge collapses repeated relation names and copies every node, so the
// resolver never shares a node with the caller.
func merge(spec Spec) Spec {
	if len(spec) == 0 {
		return nil
	}
	out := make(Spec, 0, len(spec))
	index := make(map[string]int, len(spec))
	for _, n := range spec {
		if i, ok := index[n.Relation]; ok {
			existing := out[i]
			combined := &Node{
				Relation: n.Relation,
				Scope:    existing.Scope,
				Include:  append(append(Spec{}, existing.Include...), n.Include...),
			}
			if n.Scope != nil {
				combined.Scope = n.Scope
			}
			out[i] = combined
			continue
		}
		index[n.Relation] = len(out)
		out = append(out, &Node{Relation: n.Relation, Scope: n.Scope, Include: n.Include})
	}
	for _, n := range out {
		n.Include = merge(n.Include)
	}
	return out
}
