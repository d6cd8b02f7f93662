package contexthelper

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"go.uber.org/zap"

	"github.com/jward/contexthelper/internal/config"
	cherrors "github.com/jward/contexthelper/internal/errors"
	"github.com/jward/contexthelper/internal/extract"
	"github.com/jward/contexthelper/internal/logging"
	"github.com/jward/contexthelper/internal/lookup"
	"github.com/jward/contexthelper/internal/query"
	"github.com/jward/contexthelper/internal/runtime"
	"github.com/jward/contexthelper/internal/store"
	"github.com/jward/contexthelper/internal/syntax"
	"github.com/jward/contexthelper/internal/syntax/treesitter"
	"github.com/jward/contexthelper/internal/threadtree"
	"github.com/jward/contexthelper/scripts"
)

// Helper runs the pipeline from a cursor position to a thread tree:
// enclosing function, declarations, query, search, and lazily fetched answers.
type Helper struct {
	cfg       config.Config
	client    lookup.Client
	logger    *zap.Logger
	store     *store.Store
	ownsStore bool
	policy    query.Policy
	runtime   *runtime.Runtime
	scriptsFS fs.FS
	extractor *extract.Extractor

	listeners []RootListener
	gens      threadtree.Generations

	mu      sync.Mutex
	current *Session
}

// RootListener is told about every session that becomes current. It runs on
// the goroutine that completed the search.
type RootListener func(s *Session)

// Option configures a Helper.
type Option func(*Helper)

// WithLookupClient replaces the backend selected by the configuration.
func WithLookupClient(c lookup.Client) Option {
	return func(h *Helper) {
		h.client = c
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(h *Helper) {
		h.logger = l
	}
}

// WithStore records session history in s. The caller keeps ownership.
func WithStore(s *store.Store) Option {
	return func(h *Helper) {
		h.store = s
	}
}

// WithPolicy replaces the query policy named by the configuration.
func WithPolicy(p query.Policy) Option {
	return func(h *Helper) {
		h.policy = p
	}
}

// WithRootListener registers fn to receive each new current session.
func WithRootListener(fn RootListener) Option {
	return func(h *Helper) {
		h.listeners = append(h.listeners, fn)
	}
}

// WithScriptsFS loads policy scripts from fsys instead of the bundled set.
func WithScriptsFS(fsys fs.FS) Option {
	return func(h *Helper) {
		h.scriptsFS = fsys
	}
}

// New validates cfg and builds a Helper. Without WithStore, a store is
// opened at cfg.DBPath when it is set.
func New(cfg config.Config, opts ...Option) (*Helper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Helper{cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.OrNop(h.logger)
	h.extractor = extract.NewExtractor(h.logger.Named("extract"))

	if h.scriptsFS == nil {
		h.scriptsFS = scripts.FS
	}
	h.runtime = runtime.NewRuntime("",
		runtime.WithRuntimeFS(h.scriptsFS),
		runtime.WithRuntimeLogger(h.logger))

	if h.policy == nil {
		p, err := query.ForName(cfg.Policy, h.runtime)
		if err != nil {
			return nil, fmt.Errorf("contexthelper: %w", err)
		}
		h.policy = p
	}

	if h.client == nil {
		c, err := lookup.New(cfg, lookup.WithLogger(h.logger))
		if err != nil {
			return nil, fmt.Errorf("contexthelper: create lookup client: %w", err)
		}
		h.client = c
	}

	if h.store == nil && cfg.DBPath != "" {
		s, err := store.NewStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("contexthelper: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("contexthelper: migrate: %w", err)
		}
		h.store, h.ownsStore = s, true
	}
	return h, nil
}

// Close closes the current session and any store the Helper opened.
func (h *Helper) Close() error {
	h.mu.Lock()
	cur := h.current
	h.current = nil
	h.mu.Unlock()
	if cur != nil {
		cur.Close()
	}
	if h.ownsStore {
		return h.store.Close()
	}
	return nil
}

// Config returns the configuration the Helper was built with.
func (h *Helper) Config() config.Config { return h.cfg }

// Analyze parses src and builds the query for the cursor at offset.
func (h *Helper) Analyze(ctx context.Context, path string, src []byte, offset int) (*Analysis, error) {
	tree, err := h.parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return h.AnalyzeTree(ctx, tree, offset)
}

// AnalyzeTree builds the query for a tree owned by the caller. No node of
// tree is retained in the result.
func (h *Helper) AnalyzeTree(ctx context.Context, tree syntax.Tree, offset int) (*Analysis, error) {
	fn, err := extract.FindEnclosingFunction(tree, offset)
	if err != nil {
		return nil, err
	}
	decls := h.extractor.CollectDeclarations(fn)
	q, err := h.policy.Build(ctx, decls, tree.Separators())
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Language:      tree.Language(),
		Offset:        offset,
		FunctionType:  fn.Type(),
		FunctionStart: fn.StartByte(),
		FunctionEnd:   fn.EndByte(),
		Query:         q.String(),
		Tokens:        q.Tokens,
	}
	for _, d := range decls {
		a.Declarations = append(a.Declarations, DeclarationSummary{Kind: d.Kind.String(), Name: d.Name})
	}
	h.logger.Debug("analyzed cursor",
		zap.String("language", a.Language),
		zap.Int("offset", offset),
		zap.Int("declarations", len(decls)),
		zap.String("query", a.Query))
	return a, nil
}

func (h *Helper) parse(ctx context.Context, path string, src []byte) (*treesitter.Tree, error) {
	lang, ok := treesitter.LanguageForFile(path)
	if !ok {
		return nil, cherrors.Newf(cherrors.NoEditorContext, "unsupported file type: %s", path)
	}
	tree, err := treesitter.Parse(ctx, lang, src)
	if err != nil {
		return nil, cherrors.New(cherrors.NoEditorContext, "parse "+path, err)
	}
	return tree, nil
}

// Analysis is the result of the synchronous analysis pass.
type Analysis struct {
	Language      string               `json:"language"`
	Offset        int                  `json:"offset"`
	FunctionType  string               `json:"function_type"`
	FunctionStart int                  `json:"function_start"`
	FunctionEnd   int                  `json:"function_end"`
	Declarations  []DeclarationSummary `json:"declarations"`
	Query         string               `json:"query"`
	Tokens        []string             `json:"tokens"`
}

// DeclarationSummary is a collected declaration without its syntax node.
type DeclarationSummary struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}
