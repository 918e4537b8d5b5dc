package server

import "context"

// Server is a long-running listener owned by the application lifecycle.
type Server interface {
	// Start blocks until the server stops.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
