// Package query turns collected declarations into a search query.
package query

import (
	"strings"

	cherrors "github.com/jward/contexthelper/internal/errors"
	"github.com/jward/contexthelper/internal/extract"
	"github.com/jward/contexthelper/internal/runtime"
)

// Query is an ordered list of search tokens. A built Query always has at
// least one token.
type Query struct {
	Tokens []string
}

// String joins the tokens with single spaces.
func (q Query) String() string {
	return strings.Join(q.Tokens, " ")
}

// Empty reports whether q has no tokens.
func (q Query) Empty() bool {
	return len(q.Tokens) == 0
}

// Build selects the first Type declaration with a non-empty name and splits
// that name on separators.
func Build(decls extract.DeclarationSet, separators string) (Query, error) {
	for _, d := range decls {
		if d.Kind != extract.Type || d.Name == "" {
			continue
		}
		if tokens := runtime.SplitName(d.Name, separators); len(tokens) > 0 {
			return Query{Tokens: tokens}, nil
		}
	}
	return Query{}, cherrors.Newf(cherrors.InsufficientContext,
		"no named type among %d declaration(s)", len(decls))
}
