package treesitter

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/jward/contexthelper/internal/syntax"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".java": "java",
	".go":   "go",
}

// languageSpec holds the grammar and the per-language classification rules.
type languageSpec struct {
	grammar    *sitter.Language
	separators string
	kinds      map[string]syntax.Kind
	// index builds the file-level lookup tables (package, imports, top-level types).
	index func(t *Tree) fileIndex
	// declaredType resolves the explicit declared type of a variable node.
	declaredType func(t *Tree, n *node) (string, bool)
	// qualifiedName resolves a type declaration's own qualified name.
	qualifiedName func(t *Tree, n *node) (string, bool)
}

// langToSpec maps language names to their specs.
// Lazily initialized on first call via sync.Once.
var (
	langToSpec map[string]*languageSpec
	specsOnce  sync.Once
)

func initSpecs() {
	specsOnce.Do(func() {
		langToSpec = map[string]*languageSpec{
			"java": javaSpec(java.GetLanguage()),
			"go":   goSpec(golang.GetLanguage()),
		}
	})
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

func specFor(lang string) (*languageSpec, bool) {
	initSpecs()
	s, ok := langToSpec[lang]
	return s, ok
}
