// Package lifecycle starts and stops the long-running parts of the server.
package lifecycle

import "context"

// Component is a long-running part of the server.
type Component interface {
	// Start must return once the component is ready; background work keeps
	// running until Stop.
	Start(ctx context.Context) error

	// Stop must return once in-flight work has finished or ctx expires.
	Stop(ctx context.Context) error

	// Name is used in log lines and errors. Must not be empty.
	Name() string
}
