package main

import (
	"context"
	"time"

	unfurlhttp "github.com/fwojciec/unfurl/http"
)

// shutdownTimeout bounds graceful shutdown of the preview server.
const shutdownTimeout = 10 * time.Second

// Run executes the serve command. It blocks until the context is cancelled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	s := unfurlhttp.NewServer(c.Addr, deps.Engine, deps.Resolver)
	s.Links = deps.Links
	s.Logger = deps.Logger

	errc := make(chan error, 1)
	go func() { errc <- s.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-deps.Ctx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		return err
	}
	return <-errc
}
