// Package embedadapter declares the narrow Embedding Adapter contract the
// vector engine calls through (spec.md §6). Concrete embedding providers
// are external collaborators and are out of scope here (spec.md §1
// Non-goals: "concrete embedding model implementations").
package embedadapter

import "context"

// Embedder turns texts into fixed-length numeric vectors. Implementations
// must be idempotent per (model, text) but may be non-deterministic; a call
// either returns valid, uniform-length vectors or a reportable error.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
