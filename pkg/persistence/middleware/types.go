// Package middleware wraps a ports.CanvasStore to transform checkpoints on
// their way to and from the backend.
package middleware

import "github.com/aretw0/intheflow/pkg/ports"

// Middleware allows wrapping a CanvasStore to add behavior.
type Middleware func(ports.CanvasStore) ports.CanvasStore

// Chain applies middlewares so that the first one listed is the outermost.
func Chain(store ports.CanvasStore, mws ...Middleware) ports.CanvasStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
