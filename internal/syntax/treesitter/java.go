package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/contexthelper/internal/syntax"
)

// javaLang holds the java.lang types visible without an import.
var javaLang = map[string]bool{
	"Object": true, "String": true, "StringBuilder": true, "StringBuffer": true,
	"Integer": true, "Long": true, "Short": true, "Byte": true, "Character": true,
	"Boolean": true, "Double": true, "Float": true, "Number": true, "Math": true,
	"System": true, "Thread": true, "Runnable": true, "Exception": true,
	"RuntimeException": true, "Error": true, "Throwable": true, "Iterable": true,
	"Class": true, "Enum": true, "Record": true, "Void": true, "Comparable": true,
	"CharSequence": true, "AutoCloseable": true, "Process": true,
	"IllegalArgumentException": true, "IllegalStateException": true,
	"NullPointerException": true, "IndexOutOfBoundsException": true,
	"UnsupportedOperationException": true, "InterruptedException": true,
}

var javaTypeDecls = []string{
	"class_declaration", "interface_declaration", "enum_declaration", "record_declaration",
}

func javaSpec(grammar *sitter.Language) *languageSpec {
	kinds := map[string]syntax.Kind{
		"method_declaration":              syntax.KindFunction,
		"constructor_declaration":         syntax.KindFunction,
		"compact_constructor_declaration": syntax.KindFunction,
		"local_variable_declaration":      syntax.KindVariable,
		"field_declaration":               syntax.KindVariable,
		"formal_parameter":                syntax.KindVariable,
		"spread_parameter":                syntax.KindVariable,
		"catch_formal_parameter":          syntax.KindVariable,
		"resource":                        syntax.KindVariable,
		"package_declaration":             syntax.KindNamespace,
		"import_declaration":              syntax.KindUnsupported,
		"enum_constant":                   syntax.KindUnsupported,
		"annotation_type_declaration":     syntax.KindUnsupported,
		"module_declaration":              syntax.KindUnsupported,
	}
	for _, t := range javaTypeDecls {
		kinds[t] = syntax.KindType
	}
	return &languageSpec{
		grammar:       grammar,
		separators:    ".",
		kinds:         kinds,
		index:         javaIndex,
		declaredType:  javaDeclaredType,
		qualifiedName: javaQualifiedName,
	}
}

// javaIndex collects the package name, single-type imports and top-level types.
func javaIndex(t *Tree) fileIndex {
	idx := fileIndex{imports: map[string]string{}, types: map[string]string{}}
	for _, c := range t.root.namedChildren() {
		switch c.Type() {
		case "package_declaration":
			if name := c.firstNamedOfType("scoped_identifier", "identifier"); name != nil {
				idx.pkg = name.Text()
			}
		case "import_declaration":
			text := strings.TrimSpace(c.Text())
			text = strings.TrimSuffix(strings.TrimPrefix(text, "import"), ";")
			text = strings.Join(strings.Fields(text), "")
			if strings.HasPrefix(text, "static") || strings.HasSuffix(text, ".*") {
				continue
			}
			if i := strings.LastIndex(text, "."); i >= 0 {
				idx.imports[text[i+1:]] = text
			}
		}
	}
	for _, c := range t.root.namedChildren() {
		if isJavaTypeDecl(c.Type()) {
			if name := c.field("name"); name != nil {
				idx.types[name.Text()] = qualify(idx.pkg, name.Text())
			}
		}
	}
	return idx
}

func isJavaTypeDecl(typ string) bool {
	for _, t := range javaTypeDecls {
		if t == typ {
			return true
		}
	}
	return false
}

// javaDeclaredType finds the type element of a variable-like node and
// resolves its innermost component reference.
func javaDeclaredType(t *Tree, n *node) (string, bool) {
	typeNode := n.field("type")
	if typeNode == nil {
		switch n.Type() {
		case "catch_formal_parameter":
			if ct := n.firstNamedOfType("catch_type"); ct != nil && len(ct.namedChildren()) > 0 {
				typeNode = ct.namedChildren()[0]
			}
		default:
			typeNode = n.firstNamedOfType("type_identifier", "scoped_type_identifier", "generic_type", "array_type")
		}
	}
	if typeNode == nil {
		return "", false
	}
	return javaResolveType(t, typeNode)
}

func javaResolveType(t *Tree, n *node) (string, bool) {
	switch n.Type() {
	case "type_identifier":
		name := n.Text()
		if name == "var" {
			return "", false
		}
		return javaResolveSimple(t, name), true
	case "scoped_type_identifier":
		text := strings.Join(strings.Fields(n.Text()), "")
		first, rest, found := strings.Cut(text, ".")
		if found && first != "" && isUpper(first[0]) {
			return javaResolveSimple(t, first) + "." + rest, true
		}
		return text, true
	case "generic_type":
		if base := n.firstNamedOfType("type_identifier", "scoped_type_identifier"); base != nil {
			return javaResolveType(t, base)
		}
	case "array_type":
		if elem := n.field("element"); elem != nil {
			return javaResolveType(t, elem)
		}
	case "annotated_type":
		kids := n.namedChildren()
		if len(kids) > 0 {
			return javaResolveType(t, kids[len(kids)-1])
		}
	}
	// integral_type, floating_point_type, boolean_type, void_type
	return "", false
}

func javaResolveSimple(t *Tree, name string) string {
	if q, ok := t.index.imports[name]; ok {
		return q
	}
	if q, ok := t.index.types[name]; ok {
		return q
	}
	if javaLang[name] {
		return "java.lang." + name
	}
	return qualify(t.index.pkg, name)
}

// javaQualifiedName builds package.Outer.Inner for member and top-level
// types. Types declared inside a method body, a lambda or an anonymous
// class body have no qualified name.
func javaQualifiedName(t *Tree, n *node) (string, bool) {
	name := n.field("name")
	if name == nil || n.insideFunction() {
		return "", false
	}
	parts := []string{name.Text()}
	for p := n.parent; p != nil; p = p.parent {
		if p.Type() == "object_creation_expression" || p.Type() == "lambda_expression" {
			return "", false
		}
		if isJavaTypeDecl(p.Type()) {
			if pn := p.field("name"); pn != nil {
				parts = append([]string{pn.Text()}, parts...)
			}
		}
	}
	return qualify(t.index.pkg, strings.Join(parts, ".")), true
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
