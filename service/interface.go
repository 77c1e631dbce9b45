package service

// Service defines the lifecycle interface for long-running subsystems
// Services own playback devices, preset watchers and network listeners
//
// Lifecycle:
//  1. Construction (via factory)
//  2. Init(args...) - configuration plus resources published by dependencies
//  3. Start() - launch background goroutines
//  4. [runtime operation]
//  5. Stop() - halt goroutines, release resources
type Service interface {
	// Name returns the unique identifier for this service
	Name() string

	// Dependencies returns names of services that must Init before this one
	// Return nil or empty slice if no dependencies
	Dependencies() []string

	// Init configures the service from optional args
	// Args are the service's own configuration followed by every resource
	// contributed so far, services pick what they need by type
	Init(args ...any) error

	// Start begins service operation (launches goroutines if any)
	// Called after all services have initialized
	Start() error

	// Stop halts service operation and releases resources
	// Must be idempotent - safe to call multiple times
	Stop() error
}

// ResourcePublisher is a callback for services to contribute shared handles
type ResourcePublisher func(resource any)

// ResourceContributor is implemented by services exposing handles to dependents
// Optional interface - services not implementing it are skipped
type ResourceContributor interface {
	Contribute(publish ResourcePublisher)
}

// Find returns the first arg of type T
func Find[T any](args []any) (T, bool) {
	for _, a := range args {
		if v, ok := a.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
