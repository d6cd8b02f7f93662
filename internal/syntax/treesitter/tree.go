// Package treesitter provides syntax.Tree implementations backed by
// tree-sitter grammars.
package treesitter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/contexthelper/internal/syntax"
)

// fileIndex holds per-file facts needed to qualify type names.
type fileIndex struct {
	pkg     string
	imports map[string]string // simple name or package alias -> qualified name / import path
	types   map[string]string // top-level type simple name -> qualified name
}

// Tree is a parsed source file. It implements syntax.Tree.
type Tree struct {
	tree  *sitter.Tree
	src   []byte
	lang  string
	spec  *languageSpec
	root  *node
	index fileIndex
}

// Parse parses src with the grammar for lang.
func Parse(ctx context.Context, lang string, src []byte) (*Tree, error) {
	spec, ok := specFor(lang)
	if !ok {
		return nil, fmt.Errorf("treesitter: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(spec.grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("treesitter: parse %s: %w", lang, err)
	}

	t := &Tree{tree: tree, src: src, lang: lang, spec: spec}
	t.root = &node{n: tree.RootNode(), tree: t}
	t.index = spec.index(t)
	return t, nil
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	t.tree.Close()
}

func (t *Tree) Root() syntax.Node   { return t.root }
func (t *Tree) Language() string    { return t.lang }
func (t *Tree) Separators() string  { return t.spec.separators }
func (t *Tree) text(n *node) string { return n.n.Content(t.src) }

// NodeAt descends from the root to the deepest named node containing offset.
// Parent links are recorded on the way down.
func (t *Tree) NodeAt(offset int) (syntax.Node, bool) {
	if offset < 0 || offset >= len(t.src) {
		return nil, false
	}
	cur := t.root
	for {
		var next *node
		for _, c := range cur.namedChildren() {
			if offset >= c.StartByte() && offset < c.EndByte() {
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

// node wraps a tree-sitter node together with the parent it was reached from.
type node struct {
	n        *sitter.Node
	parent   *node
	tree     *Tree
	children []*node
	loaded   bool
}

func (n *node) namedChildren() []*node {
	if !n.loaded {
		count := int(n.n.NamedChildCount())
		n.children = make([]*node, 0, count)
		for i := 0; i < count; i++ {
			c := n.n.NamedChild(i)
			if c == nil {
				continue
			}
			n.children = append(n.children, &node{n: c, parent: n, tree: n.tree})
		}
		n.loaded = true
	}
	return n.children
}

// field returns the child stored under a grammar field name, or nil.
func (n *node) field(name string) *node {
	c := n.n.ChildByFieldName(name)
	if c == nil {
		return nil
	}
	return &node{n: c, parent: n, tree: n.tree}
}

// firstNamedOfType returns the first named child whose type is in types.
func (n *node) firstNamedOfType(types ...string) *node {
	for _, c := range n.namedChildren() {
		for _, typ := range types {
			if c.Type() == typ {
				return c
			}
		}
	}
	return nil
}

func (n *node) Parent() syntax.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) Children() []syntax.Node {
	kids := n.namedChildren()
	out := make([]syntax.Node, len(kids))
	for i, c := range kids {
		out[i] = c
	}
	return out
}

func (n *node) Kind() syntax.Kind {
	if k, ok := n.tree.spec.kinds[n.Type()]; ok {
		return k
	}
	return syntax.KindOther
}

func (n *node) Type() string   { return n.n.Type() }
func (n *node) StartByte() int { return int(n.n.StartByte()) }
func (n *node) EndByte() int   { return int(n.n.EndByte()) }
func (n *node) Text() string   { return n.tree.text(n) }

func (n *node) DeclaredTypeQualifiedName() (string, bool) {
	if n.Kind() != syntax.KindVariable {
		return "", false
	}
	return n.tree.spec.declaredType(n.tree, n)
}

func (n *node) QualifiedName() (string, bool) {
	if n.Kind() != syntax.KindType {
		return "", false
	}
	return n.tree.spec.qualifiedName(n.tree, n)
}

// insideFunction reports whether any ancestor of n is a function.
func (n *node) insideFunction() bool {
	for p := n.parent; p != nil; p = p.parent {
		if p.Kind() == syntax.KindFunction {
			return true
		}
	}
	return false
}
