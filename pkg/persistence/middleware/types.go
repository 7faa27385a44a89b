// Package middleware wraps an Archive to transform dispatches before they are stored.
package middleware

import "github.com/aretw0/concierge/pkg/ports"

// Middleware allows wrapping an Archive to add behavior.
type Middleware func(ports.Archive) ports.Archive

// Chain applies mws so that the first one sees a dispatch first.
func Chain(archive ports.Archive, mws ...Middleware) ports.Archive {
	for i := len(mws) - 1; i >= 0; i-- {
		archive = mws[i](archive)
	}
	return archive
}
