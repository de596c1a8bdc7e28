package main

import (
	"fmt"

	"github.com/fwojciec/unfurl"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	links, err := deps.Links.FindLinks(deps.Ctx, unfurl.LinkFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", unfurl.ErrorMessage(err))
		return err
	}

	if len(links) == 0 {
		fmt.Fprintln(deps.Stdout, "No links found. Use 'unfurl add' to create one.")
		return nil
	}

	for _, l := range links {
		title := l.Metadata.Title
		if title == "" {
			title = "(no title)"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %s\n", l.Code, l.NormalizedURL, title)
	}

	return nil
}
