package container

import "fmt"

// Lifetime controls how instances produced by a registration are reused.
type Lifetime int

const (
	// Transient services are constructed anew on every resolution.
	// This is the default lifetime.
	Transient Lifetime = iota

	// Singleton services are constructed lazily on first resolution and
	// cached for the lifetime of the container.
	Singleton
)

// String returns the lifetime's lowercase name.
func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	default:
		return fmt.Sprintf("Lifetime(%d)", int(l))
	}
}
