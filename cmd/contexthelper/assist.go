package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/contexthelper"
	"github.com/jward/contexthelper/internal/config"
	"github.com/jward/contexthelper/internal/threadtree"
)

var (
	flagOffset    int
	flagLine      int
	flagCol       int
	flagAnswers   bool
	flagWorkers   int
	flagNoHistory bool
)

var assistCmd = &cobra.Command{
	Use:   "assist <file>",
	Short: "Search for threads matching the code at a position",
	Long:  "Analyzes the function enclosing the cursor, searches the Q&A site and prints the matching threads. Lines and columns are 0-based; columns count bytes.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssist,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Show the query built for a position without searching",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	for _, cmd := range []*cobra.Command{assistCmd, analyzeCmd} {
		cmd.Flags().IntVar(&flagOffset, "offset", -1, "byte offset of the cursor")
		cmd.Flags().IntVar(&flagLine, "line", -1, "cursor line (used with --col)")
		cmd.Flags().IntVar(&flagCol, "col", 0, "cursor column")
	}
	assistCmd.Flags().BoolVar(&flagAnswers, "answers", false, "fetch and print the answers of every thread")
	assistCmd.Flags().IntVar(&flagWorkers, "workers", 4, "concurrent answer fetches with --answers")
	assistCmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "do not record the session")
}

// cursor reads the source file and resolves the cursor flags to a byte offset.
func cursor(file string) (string, []byte, int, error) {
	path, err := resolveFilePath(file)
	if err != nil {
		return "", nil, 0, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	switch {
	case flagOffset >= 0:
		return path, src, flagOffset, nil
	case flagLine >= 0:
		offset, err := offsetAt(src, flagLine, flagCol)
		if err != nil {
			return "", nil, 0, err
		}
		return path, src, offset, nil
	}
	return "", nil, 0, fmt.Errorf("requires --offset or --line/--col")
}

// offsetAt converts a 0-based line and byte column to a byte offset.
func offsetAt(src []byte, line, col int) (int, error) {
	if line < 0 || col < 0 {
		return 0, fmt.Errorf("invalid position %d:%d: must be non-negative", line, col)
	}
	start := 0
	for i := 0; i < line; i++ {
		nl := bytes.IndexByte(src[start:], '\n')
		if nl < 0 {
			return 0, fmt.Errorf("line %d out of range", line)
		}
		start += nl + 1
	}
	end := len(src)
	if nl := bytes.IndexByte(src[start:], '\n'); nl >= 0 {
		end = start + nl
	}
	if start+col > end {
		return 0, fmt.Errorf("column %d out of range on line %d", col, line)
	}
	return start + col, nil
}

func newHelper(cfg config.Config, record bool) (*contexthelper.Helper, error) {
	if record {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting cwd: %w", err)
		}
		cfg.DBPath = resolveDBPath(findRepoRoot(cwd), cfg.DBPath)
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(cfg.DBPath), err)
		}
	} else {
		cfg.DBPath = ""
	}
	return contexthelper.New(cfg, contexthelper.WithLogger(logger))
}

func runAssist(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return outputError("assist", err)
	}
	path, src, offset, err := cursor(args[0])
	if err != nil {
		return outputError("assist", err)
	}

	h, err := newHelper(cfg, !flagNoHistory)
	if err != nil {
		return outputError("assist", err)
	}
	defer h.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := h.Assist(ctx, path, src, offset)
	if err != nil {
		return outputError("assist", err)
	}

	out, err := sessionToCLI(ctx, sess, flagAnswers, flagWorkers)
	if err != nil {
		return outputError("assist", err)
	}
	total := len(out.Threads)
	return outputResult(CLIResult{Command: "assist", Results: out, TotalCount: &total})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return outputError("analyze", err)
	}
	path, src, offset, err := cursor(args[0])
	if err != nil {
		return outputError("analyze", err)
	}
	h, err := newHelper(cfg, false)
	if err != nil {
		return outputError("analyze", err)
	}
	defer h.Close()

	a, err := h.Analyze(context.Background(), path, src, offset)
	if err != nil {
		return outputError("analyze", err)
	}
	return outputResult(CLIResult{Command: "analyze", Results: *a})
}

// sessionToCLI walks the thread tree the way an interactive viewer would.
// With answers set, every thread is expanded first.
func sessionToCLI(ctx context.Context, sess *contexthelper.Session, answers bool, workers int) (CLISession, error) {
	tree := sess.Tree
	out := CLISession{
		ID:       sess.ID,
		File:     sess.File,
		Offset:   sess.Offset,
		Query:    sess.Analysis.Query,
		Message:  sess.Message(),
		Threads:  []CLIThread{},
		PageSize: tree.PageSize(),
	}
	if answers {
		if err := sess.Prefetch(ctx, workers); err != nil {
			logger.Warn("prefetch failed", zap.Error(err))
		}
	}

	root := tree.Root()
	for i := 0; i < tree.ChildCount(root); i++ {
		child, err := tree.ChildAt(ctx, root, i)
		if err != nil {
			return CLISession{}, err
		}
		th := child.(*threadtree.ThreadNode)
		ct := CLIThread{
			ID:          th.Thread.ID,
			Title:       th.Thread.Title,
			Link:        th.Thread.Link,
			Score:       th.Thread.Score,
			AnswerCount: th.Thread.AnswerCount,
		}
		if answers {
			ct.Answers = answersToCLI(ctx, tree, th)
		}
		out.Threads = append(out.Threads, ct)
	}
	return out, nil
}

// answersToCLI collects the answers of th. A failed fetch leaves the thread
// without answers; a page shorter than answer_count ends the list.
func answersToCLI(ctx context.Context, tree *threadtree.Tree, th *threadtree.ThreadNode) []CLIAnswer {
	var out []CLIAnswer
	for j := 0; j < tree.ChildCount(th); j++ {
		node, err := tree.ChildAt(ctx, th, j)
		if errors.Is(err, threadtree.ErrNoSuchChild) {
			break
		}
		if err != nil {
			logger.Warn("answer fetch failed", zap.Int64("thread_id", th.Thread.ID), zap.Error(err))
			break
		}
		a := node.(*threadtree.AnswerNode).Answer
		out = append(out, CLIAnswer{ID: a.ID, Score: a.Score, IsAccepted: a.IsAccepted, Body: a.Body})
	}
	return out
}
