package syntax

// MemNode is an in-memory Node for trees supplied by a host editor or built
// in tests. Build trees top-down with NewNode and Add; Add sets parent links.
type MemNode struct {
	kind          Kind
	typ           string
	parent        *MemNode
	children      []*MemNode
	declaredType  string
	hasDeclared   bool
	qualifiedName string
	hasQualified  bool
	start, end    int
}

// NewNode creates a detached node spanning [start, end).
func NewNode(kind Kind, typ string, start, end int) *MemNode {
	return &MemNode{kind: kind, typ: typ, start: start, end: end}
}

// Add appends children and returns n for chaining.
func (n *MemNode) Add(children ...*MemNode) *MemNode {
	for _, c := range children {
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

// WithDeclaredType sets the qualified name of a variable's declared type.
func (n *MemNode) WithDeclaredType(name string) *MemNode {
	n.declaredType, n.hasDeclared = name, true
	return n
}

// WithQualifiedName sets a type declaration's qualified name.
func (n *MemNode) WithQualifiedName(name string) *MemNode {
	n.qualifiedName, n.hasQualified = name, true
	return n
}

func (n *MemNode) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *MemNode) Children() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *MemNode) Kind() Kind     { return n.kind }
func (n *MemNode) Type() string   { return n.typ }
func (n *MemNode) StartByte() int { return n.start }
func (n *MemNode) EndByte() int   { return n.end }

func (n *MemNode) DeclaredTypeQualifiedName() (string, bool) {
	return n.declaredType, n.hasDeclared
}

func (n *MemNode) QualifiedName() (string, bool) {
	return n.qualifiedName, n.hasQualified
}

// MemTree is a Tree over MemNodes.
type MemTree struct {
	root       *MemNode
	language   string
	separators string
}

// NewMemTree wraps root as a Tree. Separators default to ".".
func NewMemTree(root *MemNode, language, separators string) *MemTree {
	if separators == "" {
		separators = "."
	}
	return &MemTree{root: root, language: language, separators: separators}
}

func (t *MemTree) Root() Node         { return t.root }
func (t *MemTree) Language() string   { return t.language }
func (t *MemTree) Separators() string { return t.separators }

// NodeAt descends from the root to the deepest node containing offset.
func (t *MemTree) NodeAt(offset int) (Node, bool) {
	if t.root == nil || offset < t.root.start || offset >= t.root.end {
		return nil, false
	}
	cur := t.root
	for {
		next := (*MemNode)(nil)
		for _, c := range cur.children {
			if offset >= c.start && offset < c.end {
				next = c
				break
			}
		}
		if next == nil {
			return cur, true
		}
		cur = next
	}
}
