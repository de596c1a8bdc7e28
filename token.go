package unfurl

import "context"

// TokenCounter measures how much of a model's prompt budget text uses.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
