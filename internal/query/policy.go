package query

import (
	"context"
	"fmt"
	"strings"

	cherrors "github.com/jward/contexthelper/internal/errors"
	"github.com/jward/contexthelper/internal/extract"
	"github.com/jward/contexthelper/internal/runtime"
)

// Policy decides which declarations contribute to the query.
type Policy interface {
	Build(ctx context.Context, decls extract.DeclarationSet, separators string) (Query, error)
}

// FirstDeclaration is the default policy: the first named type declaration.
type FirstDeclaration struct{}

func (FirstDeclaration) Build(_ context.Context, decls extract.DeclarationSet, separators string) (Query, error) {
	return Build(decls, separators)
}

// ScriptPolicy builds the query with a Risor script. The script sees the
// globals declarations (a list of {kind, name} maps) and separators, and
// its last expression must be a string or a list of strings.
type ScriptPolicy struct {
	rt   *runtime.Runtime
	path string
}

// NewScriptPolicy returns a policy running the script at path through rt.
func NewScriptPolicy(rt *runtime.Runtime, path string) *ScriptPolicy {
	return &ScriptPolicy{rt: rt, path: path}
}

func (p *ScriptPolicy) Build(ctx context.Context, decls extract.DeclarationSet, separators string) (Query, error) {
	records := make([]runtime.Record, len(decls))
	for i, d := range decls {
		records[i] = runtime.Record{"kind": d.Kind.String(), "name": d.Name}
	}
	result, err := p.rt.RunScript(ctx, p.path, map[string]any{
		"declarations": runtime.RecordList(records),
		"separators":   separators,
	})
	if err != nil {
		return Query{}, fmt.Errorf("query: policy %s: %w", p.path, err)
	}
	values, err := runtime.ToStrings(result)
	if err != nil {
		return Query{}, fmt.Errorf("query: policy %s result: %w", p.path, err)
	}

	var tokens []string
	for _, v := range values {
		tokens = append(tokens, strings.Fields(v)...)
	}
	q := Query{Tokens: tokens}
	if q.Empty() {
		return Query{}, cherrors.Newf(cherrors.InsufficientContext,
			"policy %s produced no tokens from %d declaration(s)", p.path, len(decls))
	}
	return q, nil
}

// ForName resolves a configured policy name. "" and "first" select
// FirstDeclaration; a name ending in .risor is a script path; any other
// name is a bundled script under policy/.
func ForName(name string, rt *runtime.Runtime) (Policy, error) {
	switch {
	case name == "" || name == "first":
		return FirstDeclaration{}, nil
	case rt == nil:
		return nil, fmt.Errorf("query: policy %q needs a script runtime", name)
	case strings.HasSuffix(name, ".risor"):
		return NewScriptPolicy(rt, name), nil
	}
	path := runtime.PolicyScriptPath(name)
	if _, err := rt.LoadScript(path); err != nil {
		return nil, fmt.Errorf("query: unknown policy %q: %w", name, err)
	}
	return NewScriptPolicy(rt, path), nil
}
