// Package extract locates the function around the cursor and collects the
// declarations inside it.
package extract

import "github.com/jward/contexthelper/internal/syntax"

// DeclarationKind classifies a collected declaration.
type DeclarationKind int

const (
	Variable DeclarationKind = iota
	Method
	Type
	Namespace
)

func (k DeclarationKind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Method:
		return "method"
	case Type:
		return "type"
	case Namespace:
		return "namespace"
	}
	return "unknown"
}

// Declaration is one declaration observed during a single extraction pass.
// Name is the qualified name the declaration contributes to a query; it is
// empty for local and anonymous types.
type Declaration struct {
	Kind DeclarationKind
	Name string
	Node syntax.Node
}

// DeclarationSet is an ordered list of declarations in pre-order traversal order.
type DeclarationSet []Declaration

// Names returns the Name of each declaration of kind k, in order.
func (s DeclarationSet) Names(k DeclarationKind) []string {
	var out []string
	for _, d := range s {
		if d.Kind == k {
			out = append(out, d.Name)
		}
	}
	return out
}
