package threadtree

import "sync/atomic"

// Clock reports the generation of the newest session.
type Clock interface {
	Current() uint64
}

// Session ties a tree to the session that created it. A tree only writes
// fetched answers while Clock still reports Generation. A nil Clock never
// goes stale.
type Session struct {
	Generation uint64
	Clock      Clock
}

func (s Session) stale() bool {
	return s.Clock != nil && s.Clock.Current() != s.Generation
}

// Generations is a monotonically increasing session counter.
type Generations struct {
	n atomic.Uint64
}

// Next starts a new generation and returns it.
func (g *Generations) Next() uint64 {
	return g.n.Add(1)
}

// Current returns the newest generation.
func (g *Generations) Current() uint64 {
	return g.n.Load()
}
