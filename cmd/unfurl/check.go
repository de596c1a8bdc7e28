package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/unfurl"
)

// Run executes the check command.
func (c *CheckCmd) Run(deps *Dependencies) error {
	link, err := deps.Links.FindLinkByCode(deps.Ctx, c.Code)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", unfurl.ErrorMessage(err))
		return err
	}

	policy := deps.Config.StalenessPolicy()
	now := time.Now()

	fmt.Fprintf(deps.Stdout, "%s -> %s\n", link.Code, link.NormalizedURL)
	fmt.Fprintf(deps.Stdout, "age:     %s\n", now.Sub(link.LastUpdatedAt).Round(time.Second))
	fmt.Fprintf(deps.Stdout, "weak:    %s\n", yesNo(unfurl.IsWeak(&link.Metadata)))
	if missing := link.Metadata.Missing(); len(missing) > 0 {
		fmt.Fprintf(deps.Stdout, "missing: %v\n", missing)
	}
	fmt.Fprintf(deps.Stdout, "refresh for crawlers: %s\n", yesNo(policy.ShouldRefresh(link, now, unfurl.RefreshContext{IsCrawler: true})))
	fmt.Fprintf(deps.Stdout, "refresh for visitors: %s\n", yesNo(policy.ShouldRefresh(link, now, unfurl.RefreshContext{})))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
