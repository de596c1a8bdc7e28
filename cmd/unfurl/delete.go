package main

import (
	"fmt"

	"github.com/fwojciec/unfurl"
)

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm deletion\n")
		return unfurl.Errorf(unfurl.EINVALID, "use --force to confirm deletion")
	}

	if err := deps.Links.DeleteLink(deps.Ctx, c.Code); err != nil {
		if unfurl.ErrorCode(err) == unfurl.ENOTFOUND {
			fmt.Fprintf(deps.Stderr, "error: link %q not found. Use 'unfurl list' to see stored links.\n", c.Code)
		} else {
			fmt.Fprintf(deps.Stderr, "error: %s\n", unfurl.ErrorMessage(err))
		}
		return err
	}

	fmt.Fprintf(deps.Stdout, "Deleted link %q\n", c.Code)
	return nil
}
