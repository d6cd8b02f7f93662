// Package contexthelper finds Q&A threads relevant to the code around a
// cursor. It parses the source file with tree-sitter, finds the function
// enclosing the cursor, turns the declarations inside it into a search
// query, and exposes the matching threads as a lazily paginated tree.
//
// # Pipeline
//
//  1. Analyze: locate the enclosing function, collect its declarations in
//     pre-order, and build a query from the first named type (for example
//     com.example.Widget becomes "com example Widget"). This pass is
//     synchronous and keeps no syntax node past its return.
//
//  2. Search: the configured lookup backend (keyed site API or web-search
//     scraping) returns threads ordered by relevance.
//
//  3. Browse: the [Tree] lists the threads. A thread's answers are fetched
//     on first access, at most [Config].PageSize of them, and cached for the
//     session. Concurrent accesses to one thread share a single fetch.
//
// # Usage
//
//	cfg, err := contexthelper.LoadConfig("")
//	if err != nil { ... }
//	h, err := contexthelper.New(cfg)
//	if err != nil { ... }
//	defer h.Close()
//
//	sess, err := h.Assist(ctx, "Panel.java", src, offset)
//	if err != nil { ... }
//	if msg := sess.Message(); msg != "" { ... }
//
//	root := sess.Tree.Root()
//	for i := range sess.Tree.ChildCount(root) {
//		thread, _ := sess.Tree.ChildAt(ctx, root, i)
//		answer, err := sess.Tree.ChildAt(ctx, thread, 0)
//		...
//	}
//
// # Sessions
//
// Each Assist call starts a new session and replaces the previous one.
// Answer fetches still in flight for a replaced session complete without
// touching any cache. Listeners registered with [WithRootListener] receive
// each new session once its search has finished.
//
// When a store is configured, sessions, their threads and the items the
// user opened are recorded; [History] queries them.
package contexthelper
