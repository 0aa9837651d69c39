// Package providers implements embedding backends behind a small registry,
// so the harness can be pointed at different embedding services without code
// changes.
package providers

import (
	"context"
	"fmt"
	"sync"
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbedderFactory builds an Embedder from provider-specific options.
type EmbedderFactory func(config map[string]interface{}) (Embedder, error)

var (
	embedderRegistry = make(map[string]EmbedderFactory)
	registryMu       sync.RWMutex
)

// RegisterEmbedder makes a factory available under the given provider name.
func RegisterEmbedder(name string, factory EmbedderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	embedderRegistry[name] = factory
}

// GetEmbedderFactory looks up a registered provider.
func GetEmbedderFactory(name string) (EmbedderFactory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := embedderRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown embedder provider: %s", name)
	}
	return factory, nil
}
