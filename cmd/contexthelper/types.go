package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
	// Code is the stable error code when Error is a coded failure.
	Code string `json:"code,omitempty"`
}

// CLISession is a JSON-friendly help session.
type CLISession struct {
	ID       string      `json:"id"`
	File     string      `json:"file"`
	Offset   int         `json:"offset"`
	Query    string      `json:"query"`
	Message  string      `json:"message,omitempty"`
	Threads  []CLIThread `json:"threads"`
	PageSize int         `json:"page_size"`
}

// CLIThread is a thread with the answers fetched for it, if any.
type CLIThread struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Link        string      `json:"link,omitempty"`
	Score       int         `json:"score"`
	AnswerCount int         `json:"answer_count"`
	Answers     []CLIAnswer `json:"answers,omitempty"`
}

// CLIAnswer is a JSON-friendly answer.
type CLIAnswer struct {
	ID         int64  `json:"id"`
	Score      int    `json:"score"`
	IsAccepted bool   `json:"is_accepted"`
	Body       string `json:"body"`
}

// CLIHistoryEntry is one recorded session.
type CLIHistoryEntry struct {
	ID          string `json:"id"`
	File        string `json:"file"`
	Offset      int    `json:"offset"`
	Language    string `json:"language,omitempty"`
	Query       string `json:"query,omitempty"`
	Backend     string `json:"backend"`
	Status      string `json:"status"`
	ThreadCount int    `json:"thread_count"`
	CreatedAt   string `json:"created_at"`
}

// CLIQueryCount is a query with the number of sessions that issued it.
type CLIQueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}
