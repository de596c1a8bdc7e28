package main

import (
	"fmt"
	"sync"

	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/extract"
)

// Run executes the refresh command.
func (c *RefreshCmd) Run(deps *Dependencies) error {
	if c.Concurrency > 0 {
		deps.Refresher.Concurrency = c.Concurrency
	}

	var mu sync.Mutex
	progress := func(event extract.RefreshEvent) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case event.Error != nil:
			fmt.Fprintf(deps.Stderr, "  fail %s: %s\n", event.Code, unfurl.ErrorMessage(event.Error))
		case event.Weak:
			fmt.Fprintf(deps.Stdout, "  weak %s (%s)\n", event.Code, event.URL)
		default:
			fmt.Fprintf(deps.Stdout, "  ok   %s\n", event.Code)
		}
	}

	result, err := deps.Refresher.Refresh(deps.Ctx, unfurl.RefreshContext{
		Forced:    c.Force,
		IsCrawler: c.Crawler,
	}, progress)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error refreshing: %v\n", err)
		return err
	}

	fmt.Fprintf(deps.Stdout, "Checked %d links: %d refreshed (%d still weak), %d failed\n",
		result.Checked, result.Refreshed, result.Weak, result.Failed)
	return nil
}
