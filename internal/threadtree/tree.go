// Package threadtree exposes search results as a lazily paginated tree:
// threads under a root list, and the first page of answers under each thread.
package threadtree

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jward/contexthelper/internal/logging"
	"github.com/jward/contexthelper/internal/lookup"
)

// ErrNoSuchChild is returned by ChildAt for an index outside the node's children.
var ErrNoSuchChild = errors.New("threadtree: no such child")

// ErrClosed is returned for fetches on a closed tree.
var ErrClosed = errors.New("threadtree: tree closed")

// Fetcher loads the first pageSize answers of a thread.
type Fetcher interface {
	FetchAnswers(ctx context.Context, threadID int64, pageSize int) ([]lookup.Answer, error)
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger for fetch failures and stale completions.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) {
		t.logger = l
	}
}

// WithFetchListener registers fn to be called after a thread's answers are
// cached. fn runs on the fetching goroutine.
func WithFetchListener(fn func(threadID int64)) Option {
	return func(t *Tree) {
		t.onFetched = fn
	}
}

// Tree is the read-only data source handed to renderers. The root list is
// fixed at construction; answers are fetched on first access and cached.
// Tree is safe for concurrent use.
type Tree struct {
	session  Session
	root     *ThreadsNode
	threads  []*ThreadNode
	fetcher  Fetcher
	pageSize int

	logger    *zap.Logger
	onFetched func(threadID int64)

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu      sync.RWMutex
	answers map[int64][]*AnswerNode
	states  map[int64]State
}

// New builds a tree over threads. pageSize bounds how many answers are ever
// fetched per thread and must be positive.
func New(session Session, threads []lookup.Thread, fetcher Fetcher, pageSize int, opts ...Option) *Tree {
	if pageSize < 1 {
		pageSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tree{
		session:  session,
		root:     &ThreadsNode{Threads: threads},
		fetcher:  fetcher,
		pageSize: pageSize,
		ctx:      ctx,
		cancel:   cancel,
		answers:  make(map[int64][]*AnswerNode),
		states:   make(map[int64]State),
	}
	t.threads = make([]*ThreadNode, len(threads))
	for i, th := range threads {
		t.threads[i] = &ThreadNode{Index: i, Thread: th}
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.OrNop(t.logger)
	return t
}

// Root returns the root list node.
func (t *Tree) Root() *ThreadsNode { return t.root }

// Threads returns the search results in backend order.
func (t *Tree) Threads() []lookup.Thread { return t.root.Threads }

// Generation returns the generation of the owning session.
func (t *Tree) Generation() uint64 { return t.session.Generation }

// PageSize returns the answer page size.
func (t *Tree) PageSize() int { return t.pageSize }

// Stale reports whether a newer session has replaced this tree's session.
func (t *Tree) Stale() bool { return t.session.stale() }

// Close cancels in-flight fetches. Later fetches fail with ErrClosed.
func (t *Tree) Close() {
	t.cancel()
}

// ChildCount returns the number of children of node.
func (t *Tree) ChildCount(node Node) int {
	switch n := node.(type) {
	case *ThreadsNode:
		return len(n.Threads)
	case *ThreadNode:
		return max(0, min(n.Thread.AnswerCount, t.pageSize))
	}
	return 0
}

// IsLeaf reports whether node can never have children.
func (t *Tree) IsLeaf(node Node) bool {
	switch n := node.(type) {
	case *ThreadsNode:
		return len(n.Threads) == 0
	case *ThreadNode:
		return n.Thread.AnswerCount <= 0
	}
	return true
}

// ChildAt returns the index-th child of node. For a thread, the first call
// fetches the thread's answers; later calls are served from the cache.
func (t *Tree) ChildAt(ctx context.Context, node Node, index int) (Node, error) {
	switch n := node.(type) {
	case *ThreadsNode:
		if index < 0 || index >= len(n.Threads) {
			return nil, fmt.Errorf("%w: thread index %d of %d", ErrNoSuchChild, index, len(n.Threads))
		}
		if n == t.root {
			return t.threads[index], nil
		}
		return &ThreadNode{Index: index, Thread: n.Threads[index]}, nil
	case *ThreadNode:
		if index < 0 || index >= t.ChildCount(n) {
			return nil, fmt.Errorf("%w: answer index %d of thread %d", ErrNoSuchChild, index, n.Thread.ID)
		}
		answers, err := t.answersFor(ctx, n.Thread.ID)
		if err != nil {
			return nil, err
		}
		if index >= len(answers) {
			return nil, fmt.Errorf("%w: thread %d has %d fetched answer(s)", ErrNoSuchChild, n.Thread.ID, len(answers))
		}
		return answers[index], nil
	}
	return nil, fmt.Errorf("%w: %T has no children", ErrNoSuchChild, node)
}

// State returns the fetch state of a thread's answers.
func (t *Tree) State(threadID int64) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[threadID]
}

// Answers returns the cached answers of a thread, if any.
func (t *Tree) Answers(threadID int64) ([]lookup.Answer, bool) {
	t.mu.RLock()
	nodes, ok := t.answers[threadID]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}
	out := make([]lookup.Answer, len(nodes))
	for i, n := range nodes {
		out[i] = n.Answer
	}
	return out, true
}

// answersFor returns the cached page or joins the single in-flight fetch.
func (t *Tree) answersFor(ctx context.Context, threadID int64) ([]*AnswerNode, error) {
	t.mu.RLock()
	cached, ok := t.answers[threadID]
	t.mu.RUnlock()
	if ok {
		return cached, nil
	}

	ch := t.group.DoChan(strconv.FormatInt(threadID, 10), func() (any, error) {
		return t.fetch(threadID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]*AnswerNode), nil
	}
}

// fetch runs at most once at a time per thread. It uses the tree's own
// context so an impatient caller does not abort the shared fetch.
func (t *Tree) fetch(threadID int64) ([]*AnswerNode, error) {
	t.mu.Lock()
	if cached, ok := t.answers[threadID]; ok {
		t.mu.Unlock()
		return cached, nil
	}
	if t.ctx.Err() != nil {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.states[threadID] = Fetching
	t.mu.Unlock()

	answers, err := t.fetcher.FetchAnswers(t.ctx, threadID, t.pageSize)
	if err == nil && t.ctx.Err() != nil {
		err = ErrClosed
	}
	if err != nil {
		t.setState(threadID, Unfetched)
		t.logger.Debug("answer fetch failed", zap.Int64("thread_id", threadID), zap.Error(err))
		return nil, err
	}

	if len(answers) > t.pageSize {
		answers = answers[:t.pageSize]
	}
	nodes := make([]*AnswerNode, len(answers))
	for i, a := range answers {
		nodes[i] = &AnswerNode{Index: i, ThreadID: threadID, Answer: a}
	}

	if t.session.stale() {
		t.setState(threadID, Unfetched)
		t.logger.Debug("dropping answers for stale session",
			zap.Int64("thread_id", threadID), zap.Uint64("generation", t.session.Generation))
		return nodes, nil
	}

	t.mu.Lock()
	t.answers[threadID] = nodes
	t.states[threadID] = Cached
	t.mu.Unlock()

	if t.onFetched != nil {
		t.onFetched(threadID)
	}
	return nodes, nil
}

func (t *Tree) setState(threadID int64, s State) {
	t.mu.Lock()
	t.states[threadID] = s
	t.mu.Unlock()
}
