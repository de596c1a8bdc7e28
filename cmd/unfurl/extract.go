package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/unfurl"
)

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	res, err := deps.Engine.Extract(deps.Ctx, c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", unfurl.ErrorMessage(err))
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printMetadata(deps.Stdout, res.Metadata)
	if res.Weak {
		fmt.Fprintln(deps.Stdout, "quality:     weak")
	}
	if c.Trace {
		printTrace(deps.Stdout, res.Attempt)
	}
	return nil
}

func printMetadata(w io.Writer, m unfurl.PageMetadata) {
	fmt.Fprintf(w, "title:       %s\n", m.Title)
	fmt.Fprintf(w, "description: %s\n", m.Description)
	fmt.Fprintf(w, "image:       %s\n", m.Image)
	fmt.Fprintf(w, "favicon:     %s\n", m.Favicon)
}

func printTrace(w io.Writer, a *unfurl.ExtractionAttempt) {
	if a == nil {
		return
	}
	fmt.Fprintf(w, "attempts:    %d\n", a.AttemptsUsed)
	for _, e := range a.Trace {
		line := fmt.Sprintf("  #%d %-16s %8s", e.Attempt, e.Strategy, e.Duration.Round(time.Millisecond))
		if len(e.Filled) > 0 {
			line += fmt.Sprintf(" filled=%v", e.Filled)
		}
		if e.Err != "" {
			line += " err=" + e.Err
		}
		fmt.Fprintln(w, line)
	}
}
