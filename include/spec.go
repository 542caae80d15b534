package include

import (
	"strings"

	"github.com/rediwo/redi-eager/types"
)

// Spec is an ordered list of relations to resolve. Order is observable:
// relations attach to each parent in spec order.
type Spec []*Node

// Node names one relation, how to scope its fetch, and what to include
// beneath it.
type Node struct {
	Relation string
	Scope    *Scope
	Include  Spec
}

// Scope filters, sorts and windows a relation's children. Limit and Skip
// are per parent; zero means unset.
type Scope struct {
	Where  types.Condition
	Order  []types.OrderBy
	Limit  int
	Skip   int
	Fields []string
}

// Object is an include or filter object that keeps key order.
type Object = types.Object

// ParseJSON decodes a JSON include or filter document keeping object key
// order, ready for Normalize.
func ParseJSON(data []byte) (any, error) {
	return types.ParseJSON(data)
}

// Names lists the relation names at the top level.
func (s Spec) Names() []string {
	names := make([]string, len(s))
	for i, n := range s {
		names[i] = n.Relation
	}
	return names
}

// String renders s in dotted form: "owner{posts}, profile".
func (s Spec) String() string {
	parts := make([]string, len(s))
	for i, n := range s {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

func (n *Node) String() string {
	if len(n.Include) == 0 {
		return n.Relation
	}
	return n.Relation + "{" + n.Include.String() + "}"
}

func (n *Node) scope() Scope {
	if n.Scope == nil {
		return Scope{}
	}
	return *n.Scope
}
