package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/net/html"

	"github.com/jward/contexthelper"
	cherrors "github.com/jward/contexthelper/internal/errors"
)

// formatSessionText prints the threads of a session as an indented outline.
func formatSessionText(w io.Writer, s CLISession) {
	fmt.Fprintf(w, "Query: %s\n", s.Query)
	if s.Message != "" {
		fmt.Fprintf(w, "%s\n", s.Message)
		return
	}
	fmt.Fprintln(w)
	for _, th := range s.Threads {
		fmt.Fprintf(w, "[%d] %s (score %d, %d answers)\n", th.ID, th.Title, th.Score, th.AnswerCount)
		if th.Link != "" {
			fmt.Fprintf(w, "    %s\n", th.Link)
		}
		for _, a := range th.Answers {
			accepted := ""
			if a.IsAccepted {
				accepted = ", accepted"
			}
			fmt.Fprintf(w, "    - answer %d (score %d%s)\n", a.ID, a.Score, accepted)
			for _, line := range strings.Split(plainText(a.Body), "\n") {
				if strings.TrimSpace(line) != "" {
					fmt.Fprintf(w, "      %s\n", line)
				}
			}
		}
	}
}

// formatAnalysisText prints the analysis of a cursor position.
func formatAnalysisText(w io.Writer, a contexthelper.Analysis) {
	fmt.Fprintf(w, "Language: %s\n", a.Language)
	fmt.Fprintf(w, "Function: %s [%d, %d)\n", a.FunctionType, a.FunctionStart, a.FunctionEnd)
	fmt.Fprintf(w, "Query: %s\n", a.Query)
	if len(a.Declarations) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME")
	for _, d := range a.Declarations {
		fmt.Fprintf(tw, "%s\t%s\n", d.Kind, d.Name)
	}
	tw.Flush()
}

// formatHistoryText formats recorded sessions as aligned columns.
func formatHistoryText(w io.Writer, entries []CLIHistoryEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tTHREADS\tQUERY\tFILE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s:%d\n",
			e.ID, e.CreatedAt, e.Status, e.ThreadCount, e.Query, e.File, e.Offset)
	}
	tw.Flush()
}

// formatQueryCountsText formats query frequencies as aligned columns.
func formatQueryCountsText(w io.Writer, counts []CLIQueryCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNT\tQUERY")
	for _, c := range counts {
		fmt.Fprintf(tw, "%d\t%s\n", c.Count, c.Query)
	}
	tw.Flush()
}

// plainText strips markup from an answer body, keeping line structure.
func plainText(body string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "p", "br", "pre", "li", "div", "h1", "h2", "h3", "blockquote":
				b.WriteByte('\n')
			}
		}
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to w.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLISession:
		formatSessionText(w, v)
	case contexthelper.Analysis:
		formatAnalysisText(w, v)
	case []CLIHistoryEntry:
		formatHistoryText(w, v)
	case []CLIQueryCount:
		formatQueryCountsText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// stdout receives command results.
var stdout io.Writer = os.Stdout

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(stdout, result)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr, using the user-facing
// message for coded errors.
func outputError(command string, err error) error {
	errorHandled = true
	code, coded := cherrors.CodeOf(err)
	if flagFormat == "text" {
		if coded {
			fmt.Fprintf(os.Stderr, "%s\n", cherrors.UserMessage(code))
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
		Code:    string(code),
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
