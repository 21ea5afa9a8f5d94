// Package answer abstracts the service that turns assembled evidence into
// natural-language prose.
package answer

import "context"

// Generator produces prose from the original question and evidence excerpts.
type Generator interface {
	Generate(ctx context.Context, question string, evidence []string) (string, error)
	Ping(ctx context.Context) error
}
