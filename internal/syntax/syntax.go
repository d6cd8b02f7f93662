// Package syntax defines the syntax-tree contract the analysis pipeline
// consumes. Trees are owned by the provider (tree-sitter, a host editor, or
// an in-memory builder); analysis only reads them for the duration of one pass.
package syntax

// Kind classifies a node for declaration collection.
type Kind int

const (
	// KindOther is plain syntax that declares nothing (blocks, expressions, tokens).
	KindOther Kind = iota
	// KindFunction is a function, method, constructor or lambda.
	KindFunction
	// KindVariable is a local variable, field or parameter.
	KindVariable
	// KindType is a class, interface, struct or other type declaration.
	KindType
	// KindNamespace is a package or namespace declaration.
	KindNamespace
	// KindUnsupported is a declaration-like construct with no handling rule.
	KindUnsupported
)

var kindNames = [...]string{
	KindOther:       "other",
	KindFunction:    "function",
	KindVariable:    "variable",
	KindType:        "type",
	KindNamespace:   "namespace",
	KindUnsupported: "unsupported",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Node is one element of a syntax tree.
type Node interface {
	// Parent returns the enclosing node, or nil at the root.
	Parent() Node
	// Children returns the ordered child nodes.
	Children() []Node
	Kind() Kind
	// Type is the provider's raw node type, used in diagnostics.
	Type() string
	// DeclaredTypeQualifiedName reports the qualified name of a variable's
	// explicitly declared type. It returns false for inferred or primitive types.
	DeclaredTypeQualifiedName() (string, bool)
	// QualifiedName reports a type declaration's own qualified name.
	QualifiedName() (string, bool)
	StartByte() int
	EndByte() int
}

// Tree is a parsed source file.
type Tree interface {
	Root() Node
	// NodeAt returns the deepest node whose byte range contains offset.
	NodeAt(offset int) (Node, bool)
	// Language is the canonical language name, e.g. "java".
	Language() string
	// Separators lists the namespace separator characters of qualified names.
	Separators() string
}

// Ancestors returns n's ancestors from nearest to farthest, n excluded.
func Ancestors(n Node) []Node {
	var out []Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		out = append(out, p)
	}
	return out
}

// Size returns the number of nodes in the subtree rooted at n.
func Size(n Node) int {
	count := 0
	stack := []Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, cur.Children()...)
	}
	return count
}
