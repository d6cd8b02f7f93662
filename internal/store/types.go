package store

import "time"

// Status values for Session.Status besides error codes.
const (
	StatusOK = "ok"
)

type Session struct {
	ID          string
	File        string
	Offset      int
	Language    string
	Query       string
	Backend     string
	Status      string // StatusOK or the error code that ended the session
	ThreadCount int
	CreatedAt   time.Time
}

type SessionThread struct {
	SessionID   string
	Ordinal     int
	ThreadID    int64
	Title       string
	Link        string
	AnswerCount int
}

type Click struct {
	ID        int64
	SessionID string
	ThreadID  int64
	AnswerID  *int64 // nil when the thread itself was opened
	ClickedAt time.Time
}

// QueryCount is the number of sessions that issued a query.
type QueryCount struct {
	Query string
	Count int
}
