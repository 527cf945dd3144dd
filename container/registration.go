package container

import (
	"fmt"
	"reflect"
)

// ── Keys & tokens ─────────────────────────────────────────────────────────────

// key identifies a registration: the service type plus an optional name.
type key struct {
	typ  reflect.Type
	name string
}

func (k key) String() string {
	if k.name != "" {
		return k.typ.String() + ":" + k.name
	}
	return k.typ.String()
}

// serviceToken converts a pointer token into the service type it names.
// A pointer-to-interface token names the interface ((*Mailer)(nil) → Mailer);
// a pointer-to-concrete token names the pointer type itself
// ((*UserService)(nil) → *UserService, the type constructors return).
func serviceToken(token any) (reflect.Type, error) {
	if token == nil {
		return nil, ErrInvalidServiceToken
	}
	t := reflect.TypeOf(token)
	if t.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("%w, got %s", ErrInvalidServiceToken, t)
	}
	if t.Elem().Kind() == reflect.Interface {
		return t.Elem(), nil
	}
	return t, nil
}

// assignable reports whether an implementation type satisfies a service type.
func assignable(impl, service reflect.Type) bool {
	if service.Kind() == reflect.Interface {
		return impl.Implements(service)
	}
	return impl.AssignableTo(service)
}

// ── Construction strategies ───────────────────────────────────────────────────

// strategy is the tagged variant selecting how a registration produces values.
type strategy int

const (
	strategyConstructor strategy = iota // invoke ctor with resolved parameters
	strategyInstance                    // return the stored pre-built instance
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// ── Registration ──────────────────────────────────────────────────────────────

// Registration describes how one service is constructed and reused: the
// construction strategy, the lifetime, and the optional name. Registrations
// are created by the Register* methods and retrieved via Lookup.
type Registration struct {
	serviceType reflect.Type // the identifier the service is registered under
	implType    reflect.Type // the concrete type the strategy produces
	name        string
	lifetime    Lifetime

	strategy   strategy
	ctor       reflect.Value
	paramTypes []reflect.Type // ctor parameters, in declaration order
	returnsErr bool           // ctor has a trailing error return
	instance   reflect.Value  // set for strategyInstance only
}

// ServiceType returns the identifier the service is registered under.
func (r *Registration) ServiceType() reflect.Type { return r.serviceType }

// Name returns the registration's disambiguating name, or "".
func (r *Registration) Name() string { return r.name }

// Lifetime returns the registration's lifetime.
func (r *Registration) Lifetime() Lifetime { return r.lifetime }

// Dependencies returns the ordered list of types the registration's
// constructor requires. Instance registrations have none.
func (r *Registration) Dependencies() []reflect.Type {
	if r.strategy != strategyConstructor {
		return nil
	}
	deps := make([]reflect.Type, len(r.paramTypes))
	copy(deps, r.paramTypes)
	return deps
}

// newConstructorRegistration validates ctor and wraps it in a Registration.
// Valid constructors are func(deps...) T and func(deps...) (T, error).
func newConstructorRegistration(ctor any, o options) (*Registration, error) {
	if ctor == nil {
		return nil, ErrNotAFunction
	}
	v := reflect.ValueOf(ctor)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w, got %s", ErrNotAFunction, t)
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w (variadic constructors are not supported)", ErrInvalidConstructor)
	}

	var returnsErr bool
	switch t.NumOut() {
	case 1:
		if t.Out(0) == errType {
			return nil, ErrInvalidConstructor
		}
	case 2:
		if t.Out(0) == errType || t.Out(1) != errType {
			return nil, ErrInvalidConstructor
		}
		returnsErr = true
	default:
		return nil, fmt.Errorf("%w, got %d return values", ErrInvalidConstructor, t.NumOut())
	}

	params := make([]reflect.Type, t.NumIn())
	for i := range params {
		params[i] = t.In(i)
	}

	return &Registration{
		serviceType: t.Out(0),
		implType:    t.Out(0),
		name:        o.name,
		lifetime:    o.lifetime,
		strategy:    strategyConstructor,
		ctor:        v,
		paramTypes:  params,
		returnsErr:  returnsErr,
	}, nil
}

// ── Options ───────────────────────────────────────────────────────────────────

// Option configures a registration or lookup.
type Option func(*options)

type options struct {
	name        string
	lifetime    Lifetime
	lifetimeSet bool
	replace     bool
}

// WithName stores the registration under a disambiguating name, allowing
// multiple registrations for the same service type.
//
//	c.Register(NewDevConfig, container.WithName("dev"))
//	c.Register(NewProdConfig, container.WithName("prod"))
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLifetime sets the registration's lifetime. The default is Transient.
//
//	c.Register(NewLogger, container.WithLifetime(container.Singleton))
func WithLifetime(l Lifetime) Option {
	return func(o *options) {
		o.lifetime = l
		o.lifetimeSet = true
	}
}

// WithReplace allows overwriting an existing registration for the same
// (service type, name) pair. Any cached singleton is dropped so the service
// is rebuilt with the new registration. Without WithReplace, re-registration
// fails with DuplicateRegistrationError.
func WithReplace() Option {
	return func(o *options) { o.replace = true }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
