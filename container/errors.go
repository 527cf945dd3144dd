package container

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ── Registration-time sentinels ───────────────────────────────────────────────

var (
	// ErrNotAFunction is returned when a constructor argument is not a function.
	ErrNotAFunction = errors.New("container: constructor must be a function")

	// ErrInvalidConstructor is returned when a constructor has the wrong shape.
	// Valid shapes are func(deps...) T and func(deps...) (T, error).
	ErrInvalidConstructor = errors.New("container: constructor must return the service, or the service and an error")

	// ErrNilInstance is returned when a nil value is passed to RegisterInstance.
	ErrNilInstance = errors.New("container: instance must not be nil")

	// ErrTransientInstance is returned when an instance registration asks for
	// the Transient lifetime. A pre-built instance has no transient variant.
	ErrTransientInstance = errors.New("container: instance registrations are always singletons")

	// ErrInvalidServiceToken is returned when a service token is not a typed
	// nil pointer such as (*Mailer)(nil).
	ErrInvalidServiceToken = errors.New("container: service must be a pointer token, e.g. (*Mailer)(nil)")

	// ErrSelfAlias is returned when a service is aliased to itself.
	ErrSelfAlias = errors.New("container: service cannot be aliased to itself")

	// ErrInvalidDecorator is returned when an Extend argument is not a function
	// whose first parameter and single return value name the decorated service.
	ErrInvalidDecorator = errors.New("container: decorator must be a function returning the type of its first parameter")
)

// ── Typed errors ──────────────────────────────────────────────────────────────

// NotRegisteredError is returned when resolution (or Lookup) requests a
// (service type, name) pair with no matching registration.
type NotRegisteredError struct {
	Type reflect.Type
	Name string
}

func (e NotRegisteredError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("container: no registration for %s (name %q)", e.Type, e.Name)
	}
	return fmt.Sprintf("container: no registration for %s", e.Type)
}

// DuplicateRegistrationError is returned when a (service type, name) pair is
// registered a second time without WithReplace. The original registration is
// left intact.
type DuplicateRegistrationError struct {
	Type reflect.Type
	Name string
}

func (e DuplicateRegistrationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("container: %s (name %q) is already registered", e.Type, e.Name)
	}
	return fmt.Sprintf("container: %s is already registered", e.Type)
}

// CircularDependencyError is returned when the dependency graph reaches back
// into a service that is still being resolved. Chain holds the ordered path
// from the first occurrence of the repeated service back to itself, so
// A depending on B depending on A reports [A, B, A].
type CircularDependencyError struct {
	Chain []reflect.Type
}

func (e CircularDependencyError) Error() string {
	names := make([]string, len(e.Chain))
	for i, t := range e.Chain {
		names[i] = t.String()
	}
	return "container: circular dependency detected: " + strings.Join(names, " -> ")
}

// ConstructionError wraps an error returned by a constructor after its
// dependencies were satisfied. The constructor's own error is never swallowed;
// unwrap it with errors.Is / errors.As.
type ConstructionError struct {
	Type reflect.Type
	Name string
	Err  error
}

func (e ConstructionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("container: constructing %s (name %q): %v", e.Type, e.Name, e.Err)
	}
	return fmt.Sprintf("container: constructing %s: %v", e.Type, e.Err)
}

func (e ConstructionError) Unwrap() error { return e.Err }

// TypeMismatchError is returned by the generic Resolve helpers when the
// resolved instance cannot be asserted to the requested type parameter. It
// usually indicates an alias pointing at an incompatible registration.
type TypeMismatchError struct {
	Requested reflect.Type
	Got       reflect.Type
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("container: resolved %s is not assignable to requested %s", e.Got, e.Requested)
}
