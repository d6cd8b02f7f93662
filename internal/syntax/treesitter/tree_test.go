package treesitter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/contexthelper/internal/syntax"
)

const javaTestSource = `package com.example;

import java.util.List;
import java.util.*;
import com.example.widgets.Button;

public class Panel {
    private Button primary;

    public void render(List<String> names, int count) {
        var inferred = names.size();
        Button b = new Button();
        String[] labels = new String[count];
        class Local {}
        System.out.println(b);
    }

    static class Inner {}
}
`

const goTestSource = `package server

import (
	"net/http"
	ctx "context"
)

type Server struct {
	client *http.Client
}

func (s *Server) Handle(c ctx.Context, req *http.Request) error {
	var count int
	var resp []*http.Response
	local := 1
	type scratch struct{}
	return nil
}
`

func parseTest(t *testing.T, lang, src string) *Tree {
	t.Helper()
	tree, err := Parse(context.Background(), lang, []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

// nodesOfType collects every node of the given raw type in pre-order.
func nodesOfType(root syntax.Node, typ string) []syntax.Node {
	var out []syntax.Node
	stack := []syntax.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type() == typ {
			out = append(out, n)
		}
		kids := n.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

func declaredTypes(nodes []syntax.Node) []string {
	var out []string
	for _, n := range nodes {
		if name, ok := n.DeclaredTypeQualifiedName(); ok {
			out = append(out, name)
		} else {
			out = append(out, "-")
		}
	}
	return out
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"Main.java", "java", true},
		{"main.go", "go", true},
		{"MAIN.JAVA", "java", true},
		{"script.py", "", false},
		{"README", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	_, err := Parse(context.Background(), "cobol", []byte("IDENTIFICATION DIVISION."))
	require.Error(t, err)
}

func TestJava_NodeAtWalksToMethod(t *testing.T) {
	t.Parallel()
	tree := parseTest(t, "java", javaTestSource)

	offset := strings.Index(javaTestSource, "println(b)") + len("println(")
	n, ok := tree.NodeAt(offset)
	require.True(t, ok)
	assert.Equal(t, "identifier", n.Type())

	var fn syntax.Node
	for _, a := range syntax.Ancestors(n) {
		if a.Kind() == syntax.KindFunction {
			fn = a
			break
		}
	}
	require.NotNil(t, fn)
	assert.Equal(t, "method_declaration", fn.Type())

	_, ok = tree.NodeAt(len(javaTestSource))
	assert.False(t, ok)
}

func TestJava_DeclaredTypes(t *testing.T) {
	t.Parallel()
	tree := parseTest(t, "java", javaTestSource)
	root := tree.Root()

	params := nodesOfType(root, "formal_parameter")
	assert.Equal(t, []string{"java.util.List", "-"}, declaredTypes(params))

	locals := nodesOfType(root, "local_variable_declaration")
	assert.Equal(t, []string{"-", "com.example.widgets.Button", "java.lang.String"}, declaredTypes(locals))

	fields := nodesOfType(root, "field_declaration")
	assert.Equal(t, []string{"com.example.widgets.Button"}, declaredTypes(fields))
	assert.Equal(t, syntax.KindVariable, fields[0].Kind())
}

func TestJava_TypeQualifiedNames(t *testing.T) {
	t.Parallel()
	tree := parseTest(t, "java", javaTestSource)

	classes := nodesOfType(tree.Root(), "class_declaration")
	require.Len(t, classes, 3)

	name, ok := classes[0].QualifiedName()
	require.True(t, ok)
	assert.Equal(t, "com.example.Panel", name)

	_, ok = classes[1].QualifiedName()
	assert.False(t, ok, "local classes have no qualified name")

	name, ok = classes[2].QualifiedName()
	require.True(t, ok)
	assert.Equal(t, "com.example.Panel.Inner", name)
}

func TestJava_Kinds(t *testing.T) {
	t.Parallel()
	tree := parseTest(t, "java", javaTestSource)
	root := tree.Root()

	assert.Equal(t, syntax.KindNamespace, nodesOfType(root, "package_declaration")[0].Kind())
	assert.Equal(t, syntax.KindUnsupported, nodesOfType(root, "import_declaration")[0].Kind())
	assert.Equal(t, syntax.KindOther, nodesOfType(root, "block")[0].Kind())
	assert.Nil(t, root.Parent())
	assert.Equal(t, ".", tree.Separators())
	assert.Equal(t, "java", tree.Language())
}

func TestGo_DeclaredTypes(t *testing.T) {
	t.Parallel()
	tree := parseTest(t, "go", goTestSource)
	root := tree.Root()

	params := nodesOfType(root, "parameter_declaration")
	// receiver, c ctx.Context, req *http.Request
	assert.Equal(t, []string{"server.Server", "context.Context", "net/http.Request"}, declaredTypes(params))

	vars := nodesOfType(root, "var_spec")
	assert.Equal(t, []string{"-", "net/http.Response"}, declaredTypes(vars))

	shorts := nodesOfType(root, "short_var_declaration")
	assert.Equal(t, []string{"-"}, declaredTypes(shorts))

	fields := nodesOfType(root, "field_declaration")
	assert.Equal(t, []string{"net/http.Client"}, declaredTypes(fields))
	assert.Equal(t, "./", tree.Separators())
}

func TestGo_TypeQualifiedNames(t *testing.T) {
	t.Parallel()
	tree := parseTest(t, "go", goTestSource)

	specs := nodesOfType(tree.Root(), "type_spec")
	require.Len(t, specs, 2)

	name, ok := specs[0].QualifiedName()
	require.True(t, ok)
	assert.Equal(t, "server.Server", name)

	_, ok = specs[1].QualifiedName()
	assert.False(t, ok)
}

const javaLambdaSource = `package app;

import java.util.List;

class View {
    void render(List<String> items) {
        items.forEach(x -> { System.out.println(x); });
        Runnable r = () -> { class Scratch {} };
    }
}
`

const goClosureSource = `package app

import "net/http"

func F(c *http.Client) {
	go func() { println(1) }()
	_ = func() { type scratch struct{} }
}
`

// enclosingFunction returns the nearest KindFunction ancestor of n, n included.
func enclosingFunction(n syntax.Node) syntax.Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Kind() == syntax.KindFunction {
			return cur
		}
	}
	return nil
}

func TestJava_LambdaIsNotAFunction(t *testing.T) {
	t.Parallel()
	tree := parseTest(t, "java", javaLambdaSource)

	n, ok := tree.NodeAt(strings.Index(javaLambdaSource, "println(x)"))
	require.True(t, ok)
	fn := enclosingFunction(n)
	require.NotNil(t, fn)
	assert.Equal(t, "method_declaration", fn.Type())

	lambdas := nodesOfType(tree.Root(), "lambda_expression")
	require.Len(t, lambdas, 2)
	assert.Equal(t, syntax.KindOther, lambdas[0].Kind())

	classes := nodesOfType(tree.Root(), "class_declaration")
	require.Len(t, classes, 2)
	_, ok = classes[1].QualifiedName()
	assert.False(t, ok, "classes declared in a lambda are local")
}

func TestGo_ClosureIsNotAFunction(t *testing.T) {
	t.Parallel()
	tree := parseTest(t, "go", goClosureSource)

	n, ok := tree.NodeAt(strings.Index(goClosureSource, "println(1)"))
	require.True(t, ok)
	fn := enclosingFunction(n)
	require.NotNil(t, fn)
	assert.Equal(t, "function_declaration", fn.Type())

	literals := nodesOfType(tree.Root(), "func_literal")
	require.Len(t, literals, 2)
	assert.Equal(t, syntax.KindOther, literals[0].Kind())

	specs := nodesOfType(tree.Root(), "type_spec")
	require.Len(t, specs, 1)
	_, ok = specs[0].QualifiedName()
	assert.False(t, ok)
}
