package contexthelper

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cherrors "github.com/jward/contexthelper/internal/errors"
	"github.com/jward/contexthelper/internal/lookup"
	"github.com/jward/contexthelper/internal/store"
	"github.com/jward/contexthelper/internal/syntax"
	"github.com/jward/contexthelper/internal/threadtree"
)

// ErrSuperseded is returned by Assist when a newer session started while
// this one was searching. The superseded result is discarded.
var ErrSuperseded = errors.New("contexthelper: session superseded")

// NoResultsMessage is shown when a search succeeds with no threads.
const NoResultsMessage = "No matching StackOverflow questions were found."

// Session is one help request: the analysis, the search results and the
// lazily fetched answers.
type Session struct {
	ID         string
	Generation uint64
	File       string
	Offset     int
	Analysis   *Analysis
	Tree       *threadtree.Tree
	// Notice is the LookupFailure that left the tree empty, if any.
	Notice    error
	CreatedAt time.Time
}

// Message returns the text to show instead of results, or "".
func (s *Session) Message() string {
	if s.Notice != nil {
		return cherrors.UserMessage(cherrors.LookupFailure)
	}
	if len(s.Tree.Threads()) == 0 {
		return NoResultsMessage
	}
	return ""
}

// Stale reports whether a newer session has replaced s.
func (s *Session) Stale() bool { return s.Tree.Stale() }

// Close stops in-flight answer fetches.
func (s *Session) Close() { s.Tree.Close() }

// Result is delivered by AssistAsync.
type Result struct {
	Session *Session
	Err     error
}

// Assist analyzes src at offset, searches, and installs the resulting thread
// tree as the current session. Analysis failures abort with a coded error; a
// search failure yields an empty tree with Notice set.
func (h *Helper) Assist(ctx context.Context, path string, src []byte, offset int) (*Session, error) {
	tree, err := h.parse(ctx, path, src)
	if err != nil {
		h.recordFailure(path, "", offset, err)
		return nil, err
	}
	defer tree.Close()
	return h.AssistTree(ctx, tree, path, offset)
}

// AssistTree is Assist for a tree owned by the caller.
func (h *Helper) AssistTree(ctx context.Context, tree syntax.Tree, file string, offset int) (*Session, error) {
	analysis, err := h.AnalyzeTree(ctx, tree, offset)
	if err != nil {
		h.recordFailure(file, tree.Language(), offset, err)
		return nil, err
	}

	gen := h.gens.Next()
	threads, notice := h.client.Search(ctx, analysis.Query)
	if notice != nil {
		threads = nil
		h.logger.Warn("search failed", zap.String("query", analysis.Query), zap.Error(notice))
	}

	sess := &Session{
		ID:         uuid.NewString(),
		Generation: gen,
		File:       file,
		Offset:     offset,
		Analysis:   analysis,
		Notice:     notice,
		CreatedAt:  time.Now().UTC(),
	}
	sess.Tree = threadtree.New(
		threadtree.Session{Generation: gen, Clock: &h.gens},
		threads, h.client, h.cfg.PageSize,
		threadtree.WithLogger(h.logger.Named("threadtree")),
	)

	if !h.install(sess) {
		sess.Close()
		return nil, ErrSuperseded
	}
	h.record(sess, threads)
	for _, fn := range h.listeners {
		fn(sess)
	}
	return sess, nil
}

// AssistAsync runs Assist on its own goroutine. The channel receives exactly
// one Result and is then closed.
func (h *Helper) AssistAsync(ctx context.Context, path string, src []byte, offset int) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		sess, err := h.Assist(ctx, path, src, offset)
		ch <- Result{Session: sess, Err: err}
	}()
	return ch
}

// Current returns the current session, or nil.
func (h *Helper) Current() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// install makes sess current unless a newer session has started.
func (h *Helper) install(sess *Session) bool {
	h.mu.Lock()
	if h.gens.Current() != sess.Generation {
		h.mu.Unlock()
		return false
	}
	prev := h.current
	h.current = sess
	h.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return true
}

func (h *Helper) record(sess *Session, threads []lookup.Thread) {
	if h.store == nil {
		return
	}
	status := store.StatusOK
	if code, ok := cherrors.CodeOf(sess.Notice); ok {
		status = string(code)
	}
	_, err := h.store.InsertSession(&store.Session{
		ID:        sess.ID,
		File:      sess.File,
		Offset:    sess.Offset,
		Language:  sess.Analysis.Language,
		Query:     sess.Analysis.Query,
		Backend:   string(h.cfg.Backend),
		Status:    status,
		CreatedAt: sess.CreatedAt,
	})
	if err != nil {
		h.logger.Warn("record session", zap.Error(err))
		return
	}
	rows := make([]store.SessionThread, len(threads))
	for i, th := range threads {
		rows[i] = store.SessionThread{ThreadID: th.ID, Title: th.Title, Link: th.Link, AnswerCount: th.AnswerCount}
	}
	if err := h.store.InsertSessionThreads(sess.ID, rows); err != nil {
		h.logger.Warn("record session threads", zap.Error(err))
	}
}

func (h *Helper) recordFailure(file, language string, offset int, cause error) {
	if h.store == nil {
		return
	}
	status := "ERROR"
	if code, ok := cherrors.CodeOf(cause); ok {
		status = string(code)
	}
	_, err := h.store.InsertSession(&store.Session{
		File:     file,
		Offset:   offset,
		Language: language,
		Backend:  string(h.cfg.Backend),
		Status:   status,
	})
	if err != nil {
		h.logger.Warn("record failed session", zap.Error(err))
	}
}

// RecordClick notes that the user opened a thread, or one of its answers
// when answerID is non-nil.
func (h *Helper) RecordClick(sess *Session, threadID int64, answerID *int64) error {
	if h.store == nil || sess == nil {
		return nil
	}
	_, err := h.store.RecordClick(&store.Click{SessionID: sess.ID, ThreadID: threadID, AnswerID: answerID})
	return err
}

// Prefetch fetches every thread's answers in the current session with up
// to workers concurrent requests.
func (s *Session) Prefetch(ctx context.Context, workers int) error {
	return s.Tree.Expand(ctx, workers)
}
