// Package ai holds the provider-neutral contract for language-model calls and
// helpers for reading loosely formatted model output.
package ai

import "context"

// Generator sends a system instruction and a user message to a language
// model and returns its textual answer.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}
