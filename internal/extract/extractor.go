package extract

import (
	"go.uber.org/zap"

	cherrors "github.com/jward/contexthelper/internal/errors"
	"github.com/jward/contexthelper/internal/logging"
	"github.com/jward/contexthelper/internal/syntax"
)

// FindEnclosingFunction resolves offset in tree and returns the nearest
// function node containing it.
func FindEnclosingFunction(tree syntax.Tree, offset int) (syntax.Node, error) {
	if tree == nil {
		return nil, cherrors.Newf(cherrors.NoEditorContext, "no syntax tree")
	}
	n, ok := tree.NodeAt(offset)
	if !ok || n == nil {
		return nil, cherrors.Newf(cherrors.NoEditorContext, "offset %d does not resolve to a node", offset)
	}
	fn := FindEnclosingFunctionFrom(n)
	if fn == nil {
		return nil, cherrors.Newf(cherrors.NoEnclosingFunction, "offset %d is outside any function", offset)
	}
	return fn, nil
}

// FindEnclosingFunctionFrom walks from n (inclusive) towards the root and
// returns the first function node, or nil.
func FindEnclosingFunctionFrom(n syntax.Node) syntax.Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Kind() == syntax.KindFunction {
			return cur
		}
	}
	return nil
}

// Extractor collects declarations from a function subtree.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor returns an Extractor that reports skipped nodes to logger.
// A nil logger discards them.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logging.OrNop(logger)}
}

// CollectDeclarations traverses fn in pre-order, fn included, and classifies
// every node it visits.
func (e *Extractor) CollectDeclarations(fn syntax.Node) DeclarationSet {
	var out DeclarationSet
	if fn == nil {
		return out
	}
	stack := []syntax.Node{fn}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if d, ok := e.classify(n); ok {
			out = append(out, d)
		}

		kids := n.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

func (e *Extractor) classify(n syntax.Node) (Declaration, bool) {
	switch n.Kind() {
	case syntax.KindOther, syntax.KindFunction, syntax.KindNamespace:
		return Declaration{}, false
	case syntax.KindVariable:
		name, ok := n.DeclaredTypeQualifiedName()
		if !ok || name == "" {
			return Declaration{}, false
		}
		return Declaration{Kind: Type, Name: name, Node: n}, true
	case syntax.KindType:
		// Local and anonymous types are kept with an empty name.
		name, _ := n.QualifiedName()
		return Declaration{Kind: Type, Name: name, Node: n}, true
	default:
		e.logger.Warn("skipping node with no declaration rule",
			zap.String("code", string(cherrors.UnexpectedDeclarationKind)),
			zap.String("kind", n.Kind().String()),
			zap.String("node_type", n.Type()),
			zap.Int("start", n.StartByte()))
		return Declaration{}, false
	}
}
