package main

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/unfurl"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	res, err := deps.Resolver.Resolve(deps.Ctx, c.Code, unfurl.RefreshContext{
		Forced:    c.Force,
		IsCrawler: c.Crawler,
	})
	if err != nil {
		if unfurl.ErrorCode(err) == unfurl.ENOTFOUND {
			fmt.Fprintf(deps.Stderr, "error: link %q not found. Use 'unfurl list' to see stored links.\n", c.Code)
		} else {
			fmt.Fprintf(deps.Stderr, "error: %s\n", unfurl.ErrorMessage(err))
		}
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Link)
	}

	fmt.Fprintf(deps.Stdout, "%s -> %s\n", res.Link.Code, res.Link.OriginalURL)
	printMetadata(deps.Stdout, res.Link.Metadata)
	switch {
	case res.TimedOut:
		fmt.Fprintln(deps.Stdout, "source:      cached (refresh timed out)")
	case res.Refreshed:
		fmt.Fprintln(deps.Stdout, "source:      refreshed")
	default:
		fmt.Fprintln(deps.Stdout, "source:      cached")
	}
	return nil
}
