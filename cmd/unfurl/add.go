package main

import (
	"fmt"

	"github.com/fwojciec/unfurl"
)

// Run executes the add command.
func (c *AddCmd) Run(deps *Dependencies) error {
	normalized, err := unfurl.NormalizeURL(c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", unfurl.ErrorMessage(err))
		return err
	}

	link := &unfurl.LinkRecord{
		Code:          c.Code,
		OriginalURL:   c.URL,
		NormalizedURL: normalized,
	}
	if !c.NoExtract && deps.Engine != nil {
		link.Metadata = deps.Engine.ExtractMetadata(deps.Ctx, normalized)
	}

	if err := deps.Links.CreateLink(deps.Ctx, link); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", unfurl.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Added link %q -> %s\n", link.Code, link.NormalizedURL)
	if link.Metadata.Title != "" {
		fmt.Fprintf(deps.Stdout, "  %s\n", link.Metadata.Title)
	}
	return nil
}
