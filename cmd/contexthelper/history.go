package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/contexthelper"
	"github.com/jward/contexthelper/internal/config"
	"github.com/jward/contexthelper/internal/store"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded help sessions",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a recorded session with its threads and clicks",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyTopCmd = &cobra.Command{
	Use:   "top",
	Short: "List the most frequent queries",
	Args:  cobra.NoArgs,
	RunE:  runHistoryTop,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune <id>...",
	Short: "Delete recorded sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistoryPrune,
}

func init() {
	historyCmd.PersistentFlags().IntVar(&flagHistoryLimit, "limit", 20, "maximum number of rows")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyTopCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

// openStore opens the history database. Only db_path is read from the
// configuration, unvalidated, so a missing API key does not block history
// queries.
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	configured := ""
	if flagDB == "" {
		cfg, err := config.Read(flagConfig)
		if err != nil {
			return nil, err
		}
		configured = cfg.DBPath
	}
	dbPath := resolveDBPath(findRepoRoot(cwd), configured)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'contexthelper assist' first)", dbPath)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("history", err)
	}
	defer s.Close()

	sessions, err := contexthelper.NewHistory(s).Recent(flagHistoryLimit)
	if err != nil {
		return outputError("history", err)
	}
	entries := make([]CLIHistoryEntry, len(sessions))
	for i, sess := range sessions {
		entries[i] = historyToCLI(sess)
	}
	total := len(entries)
	return outputResult(CLIResult{Command: "history", Results: entries, TotalCount: &total})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("history show", err)
	}
	defer s.Close()

	summary, err := contexthelper.NewHistory(s).Session(args[0])
	if err != nil {
		return outputError("history show", err)
	}
	if summary == nil {
		return outputError("history show", fmt.Errorf("no session %q", args[0]))
	}

	out := CLISession{
		ID:      summary.Session.ID,
		File:    summary.Session.File,
		Offset:  summary.Session.Offset,
		Query:   summary.Session.Query,
		Threads: make([]CLIThread, len(summary.Threads)),
	}
	for i, th := range summary.Threads {
		out.Threads[i] = CLIThread{ID: th.ThreadID, Title: th.Title, Link: th.Link, AnswerCount: th.AnswerCount}
	}
	return outputResult(CLIResult{Command: "history show", Results: out})
}

func runHistoryTop(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("history top", err)
	}
	defer s.Close()

	counts, err := contexthelper.NewHistory(s).TopQueries(flagHistoryLimit)
	if err != nil {
		return outputError("history top", err)
	}
	out := make([]CLIQueryCount, len(counts))
	for i, c := range counts {
		out[i] = CLIQueryCount{Query: c.Query, Count: c.Count}
	}
	return outputResult(CLIResult{Command: "history top", Results: out})
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("history prune", err)
	}
	defer s.Close()

	if err := contexthelper.NewHistory(s).Prune(args...); err != nil {
		return outputError("history prune", err)
	}
	n := len(args)
	return outputResult(CLIResult{Command: "history prune", Results: args, TotalCount: &n})
}

func historyToCLI(sess *store.Session) CLIHistoryEntry {
	return CLIHistoryEntry{
		ID:          sess.ID,
		File:        sess.File,
		Offset:      sess.Offset,
		Language:    sess.Language,
		Query:       sess.Query,
		Backend:     sess.Backend,
		Status:      sess.Status,
		ThreadCount: sess.ThreadCount,
		CreatedAt:   sess.CreatedAt.UTC().Format(time.RFC3339),
	}
}
