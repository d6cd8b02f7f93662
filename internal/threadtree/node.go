package threadtree

import "github.com/jward/contexthelper/internal/lookup"

// Node is an element of the thread tree: *ThreadsNode, *ThreadNode or *AnswerNode.
type Node interface {
	isNode()
}

// ThreadsNode is the root list of search results.
type ThreadsNode struct {
	Threads []lookup.Thread
}

// ThreadNode is one search result.
type ThreadNode struct {
	Index  int
	Thread lookup.Thread
}

// AnswerNode is one fetched answer of a thread.
type AnswerNode struct {
	Index    int
	ThreadID int64
	Answer   lookup.Answer
}

func (*ThreadsNode) isNode() {}
func (*ThreadNode) isNode()  {}
func (*AnswerNode) isNode()  {}

// State is the fetch state of one thread's answers.
type State int

const (
	Unfetched State = iota
	Fetching
	Cached
)

func (s State) String() string {
	switch s {
	case Unfetched:
		return "unfetched"
	case Fetching:
		return "fetching"
	case Cached:
		return "cached"
	}
	return "unknown"
}
