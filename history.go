package contexthelper

import (
	"errors"
	"fmt"

	"github.com/jward/contexthelper/internal/store"
)

// ErrNoHistory is returned by History queries when no store is configured.
var ErrNoHistory = errors.New("contexthelper: no history store configured")

// History provides read access to recorded sessions.
type History struct {
	store *store.Store
}

// History returns the history query API. Queries fail with ErrNoHistory
// when the Helper has no store.
func (h *Helper) History() *History {
	return &History{store: h.store}
}

// NewHistory returns a History over s.
func NewHistory(s *store.Store) *History {
	return &History{store: s}
}

// SessionSummary is a recorded session with its threads.
type SessionSummary struct {
	Session *SessionRecord
	Threads []*SessionThread
	Clicks  []*Click
}

// Recent returns up to limit sessions, newest first.
func (q *History) Recent(limit int) ([]*SessionRecord, error) {
	if q.store == nil {
		return nil, ErrNoHistory
	}
	if limit <= 0 {
		limit = 20
	}
	sessions, err := q.store.RecentSessions(limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	return sessions, nil
}

// Session returns a recorded session with its threads and clicks, or nil
// if id is unknown.
func (q *History) Session(id string) (*SessionSummary, error) {
	if q.store == nil {
		return nil, ErrNoHistory
	}
	sess, err := q.store.SessionByID(id)
	if err != nil {
		return nil, fmt.Errorf("history: session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}
	threads, err := q.store.SessionThreads(id)
	if err != nil {
		return nil, fmt.Errorf("history: session threads: %w", err)
	}
	clicks, err := q.store.ClicksBySession(id)
	if err != nil {
		return nil, fmt.Errorf("history: session clicks: %w", err)
	}
	return &SessionSummary{Session: sess, Threads: threads, Clicks: clicks}, nil
}

// TopQueries returns the most frequent successful queries.
func (q *History) TopQueries(limit int) ([]QueryCount, error) {
	if q.store == nil {
		return nil, ErrNoHistory
	}
	if limit <= 0 {
		limit = 10
	}
	counts, err := q.store.TopQueries(limit)
	if err != nil {
		return nil, fmt.Errorf("history: top queries: %w", err)
	}
	return counts, nil
}

// Prune deletes the given sessions with their threads and clicks.
func (q *History) Prune(ids ...string) error {
	if q.store == nil {
		return ErrNoHistory
	}
	if err := q.store.DeleteSessions(ids); err != nil {
		return fmt.Errorf("history: prune: %w", err)
	}
	return nil
}
