package treesitter

import (
	"path"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/contexthelper/internal/syntax"
)

// goBuiltinTypes are predeclared and carry no searchable qualified name.
var goBuiltinTypes = map[string]bool{
	"bool": true, "byte": true, "rune": true, "string": true, "error": true, "any": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"float32": true, "float64": true, "complex64": true, "complex128": true, "comparable": true,
}

func goSpec(grammar *sitter.Language) *languageSpec {
	return &languageSpec{
		grammar:    grammar,
		separators: "./",
		kinds: map[string]syntax.Kind{
			"function_declaration":  syntax.KindFunction,
			"method_declaration":    syntax.KindFunction,
			"var_spec":              syntax.KindVariable,
			"const_spec":            syntax.KindVariable,
			"parameter_declaration": syntax.KindVariable,
			"field_declaration":     syntax.KindVariable,
			"short_var_declaration": syntax.KindVariable,
			"type_spec":             syntax.KindType,
			"package_clause":        syntax.KindNamespace,
			"import_spec":           syntax.KindUnsupported,
		},
		index:         goIndex,
		declaredType:  goDeclaredType,
		qualifiedName: goQualifiedName,
	}
}

// goIndex records the package name and the local name of every import.
func goIndex(t *Tree) fileIndex {
	idx := fileIndex{imports: map[string]string{}, types: map[string]string{}}
	var visit func(n *node)
	visit = func(n *node) {
		switch n.Type() {
		case "package_clause":
			if id := n.firstNamedOfType("package_identifier"); id != nil {
				idx.pkg = id.Text()
			}
			return
		case "import_spec":
			pathNode := n.field("path")
			if pathNode == nil {
				return
			}
			importPath, err := strconv.Unquote(pathNode.Text())
			if err != nil {
				return
			}
			local := path.Base(importPath)
			if alias := n.field("name"); alias != nil {
				local = alias.Text()
			}
			idx.imports[local] = importPath
			return
		}
		for _, c := range n.namedChildren() {
			visit(c)
		}
	}
	for _, c := range t.root.namedChildren() {
		if c.Type() == "package_clause" || c.Type() == "import_declaration" {
			visit(c)
		}
	}
	return idx
}

func goDeclaredType(t *Tree, n *node) (string, bool) {
	typeNode := n.field("type")
	if typeNode == nil {
		// short_var_declaration and untyped var/const specs infer their type.
		return "", false
	}
	return goResolveType(t, typeNode)
}

func goResolveType(t *Tree, n *node) (string, bool) {
	switch n.Type() {
	case "type_identifier":
		name := n.Text()
		if goBuiltinTypes[name] {
			return "", false
		}
		return qualify(t.index.pkg, name), true
	case "qualified_type":
		pkg, name := n.field("package"), n.field("name")
		if pkg == nil || name == nil {
			return "", false
		}
		importPath, ok := t.index.imports[pkg.Text()]
		if !ok {
			importPath = pkg.Text()
		}
		return importPath + "." + name.Text(), true
	case "pointer_type", "parenthesized_type":
		if kids := n.namedChildren(); len(kids) > 0 {
			return goResolveType(t, kids[0])
		}
	case "slice_type", "array_type":
		if elem := n.field("element"); elem != nil {
			return goResolveType(t, elem)
		}
	case "map_type", "channel_type":
		if val := n.field("value"); val != nil {
			return goResolveType(t, val)
		}
	case "generic_type":
		if base := n.field("type"); base != nil {
			return goResolveType(t, base)
		}
	}
	return "", false
}

// goQualifiedName qualifies package-level type specs with the package name.
// Types declared inside a function or closure body are local and have no
// qualified name.
func goQualifiedName(t *Tree, n *node) (string, bool) {
	name := n.field("name")
	if name == nil || n.insideFunction() {
		return "", false
	}
	for p := n.parent; p != nil; p = p.parent {
		if p.Type() == "func_literal" {
			return "", false
		}
	}
	return qualify(t.index.pkg, name.Text()), true
}
