package container

import (
	"fmt"
	"reflect"
	"sync"
)

// Container is the dependency-injection engine: a registry mapping service
// types (plus optional names) to construction strategies, and a resolver that
// builds fully-wired object graphs on demand.
//
// It supports:
//   - Register / RegisterAs / RegisterInstance — constructor- and
//     instance-based registration, Transient or Singleton lifetime
//   - Resolve / ResolveNamed (plus generic helpers) — recursive graph
//     resolution with circular-dependency detection
//   - Alias (resolve one identifier through another's registration)
//   - Tag / Tagged (group services and resolve the group)
//   - Extend (decorate resolved instances)
//   - Contextual binding (when A needs B, give it C)
type Container struct {
	mu sync.RWMutex

	// (service type, name) → registration descriptor
	registrations map[key]*Registration

	// materialized singletons, one per (service type, name)
	instances map[key]reflect.Value

	// alias key → canonical key
	aliases map[key]key

	// tag → registered keys, in Tag call order
	tags map[string][]key

	// consumer type → dependency type → override registration
	contextual map[reflect.Type]map[reflect.Type]*Registration

	// service key → decorators, applied in Extend call order
	extenders map[key][]decorator

	// buildMu serializes graph construction so every singleton is built at
	// most once even when several goroutines race on first use. Resolution
	// of an already-materialized singleton bypasses it entirely.
	buildMu sync.Mutex
}

// decorator wraps a resolved instance; extra parameters after the service
// itself are resolved from the container.
type decorator struct {
	fn         reflect.Value
	paramTypes []reflect.Type
}

// New creates an empty container.
func New() *Container {
	return &Container{
		registrations: make(map[key]*Registration),
		instances:     make(map[key]reflect.Value),
		aliases:       make(map[key]key),
		tags:          make(map[string][]key),
		contextual:    make(map[reflect.Type]map[reflect.Type]*Registration),
		extenders:     make(map[key][]decorator),
	}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register registers a constructor function. The service identifier is the
// constructor's return type; its parameters are the service's dependencies,
// resolved from the container in declaration order when the service is built.
// Constructors may return the service alone or the service and an error.
//
//	c.Register(NewUserService)                                        // transient
//	c.Register(NewLogger, container.WithLifetime(container.Singleton)) // cached
func (c *Container) Register(ctor any, opts ...Option) error {
	o := applyOptions(opts)
	reg, err := newConstructorRegistration(ctor, o)
	if err != nil {
		return err
	}
	return c.put(reg, o.replace)
}

// RegisterAs registers a constructor under an abstract identifier given as a
// pointer token. The constructor's return type must satisfy it.
//
//	c.RegisterAs(NewSMTPMailer, (*Mailer)(nil), container.WithLifetime(container.Singleton))
func (c *Container) RegisterAs(ctor any, service any, opts ...Option) error {
	o := applyOptions(opts)
	reg, err := newConstructorRegistration(ctor, o)
	if err != nil {
		return err
	}
	svcType, err := serviceToken(service)
	if err != nil {
		return err
	}
	if !assignable(reg.implType, svcType) {
		return fmt.Errorf("container: %s is not assignable to %s", reg.implType, svcType)
	}
	reg.serviceType = svcType
	return c.put(reg, o.replace)
}

// RegisterInstance registers a pre-built value under its own type. Instance
// registrations are implicitly singletons; requesting a Transient lifetime
// fails with ErrTransientInstance.
//
//	c.RegisterInstance(cfg)
func (c *Container) RegisterInstance(instance any, opts ...Option) error {
	o := applyOptions(opts)
	reg, err := newInstanceRegistration(instance, o)
	if err != nil {
		return err
	}
	return c.put(reg, o.replace)
}

// RegisterInstanceAs registers a pre-built value under an abstract identifier.
//
//	c.RegisterInstanceAs(&memoryCache{}, (*Cache)(nil))
func (c *Container) RegisterInstanceAs(instance any, service any, opts ...Option) error {
	o := applyOptions(opts)
	reg, err := newInstanceRegistration(instance, o)
	if err != nil {
		return err
	}
	svcType, err := serviceToken(service)
	if err != nil {
		return err
	}
	if !assignable(reg.implType, svcType) {
		return fmt.Errorf("container: %s is not assignable to %s", reg.implType, svcType)
	}
	reg.serviceType = svcType
	return c.put(reg, o.replace)
}

func newInstanceRegistration(instance any, o options) (*Registration, error) {
	if instance == nil {
		return nil, ErrNilInstance
	}
	if o.lifetimeSet && o.lifetime != Singleton {
		return nil, ErrTransientInstance
	}
	v := reflect.ValueOf(instance)
	return &Registration{
		serviceType: v.Type(),
		implType:    v.Type(),
		name:        o.name,
		lifetime:    Singleton,
		strategy:    strategyInstance,
		instance:    v,
	}, nil
}

// put stores the registration, enforcing the duplicate policy.
func (c *Container) put(reg *Registration, replace bool) error {
	k := key{typ: reg.serviceType, name: reg.name}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.registrations[k]; exists && !replace {
		return DuplicateRegistrationError{Type: k.typ, Name: k.name}
	}
	// Drop a stale singleton so a replaced registration is rebuilt.
	delete(c.instances, k)
	c.registrations[k] = reg
	return nil
}

// ── Lookup & maintenance ──────────────────────────────────────────────────────

// Lookup returns the registration stored for a service token, following
// aliases. It fails with NotRegisteredError if no matching entry exists.
func (c *Container) Lookup(service any, opts ...Option) (*Registration, error) {
	svcType, err := serviceToken(service)
	if err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	k := c.canonical(key{typ: svcType, name: o.name})
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, ok := c.registrations[k]
	if !ok {
		return nil, NotRegisteredError{Type: k.typ, Name: k.name}
	}
	return reg, nil
}

// Bound reports whether a service token has a registration.
func (c *Container) Bound(service any, opts ...Option) bool {
	_, err := c.Lookup(service, opts...)
	return err == nil
}

// Resolved reports whether a singleton has been materialized for the token.
func (c *Container) Resolved(service any, opts ...Option) bool {
	svcType, err := serviceToken(service)
	if err != nil {
		return false
	}
	o := applyOptions(opts)
	k := c.canonical(key{typ: svcType, name: o.name})
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[k]
	return ok
}

// Forget removes the registration and any cached instance for a token.
func (c *Container) Forget(service any, opts ...Option) {
	svcType, err := serviceToken(service)
	if err != nil {
		return
	}
	o := applyOptions(opts)
	k := c.canonical(key{typ: svcType, name: o.name})
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.registrations, k)
	delete(c.instances, k)
	delete(c.extenders, k)
}

// Flush resets the entire container.
func (c *Container) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrations = make(map[key]*Registration)
	c.instances = make(map[key]reflect.Value)
	c.aliases = make(map[key]key)
	c.tags = make(map[string][]key)
	c.contextual = make(map[reflect.Type]map[reflect.Type]*Registration)
	c.extenders = make(map[key][]decorator)
}

// Registrations returns the keys of all stored registrations (for debugging).
func (c *Container) Registrations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.registrations))
	for k := range c.registrations {
		out = append(out, k.String())
	}
	return out
}

// ── Aliases ───────────────────────────────────────────────────────────────────

// Alias makes one service identifier resolve through another's registration.
//
//	c.RegisterAs(NewConsoleLogger, (*Logger)(nil))
//	c.Alias((*io.Writer)(nil), (*Logger)(nil)) // only if the impl satisfies both
func (c *Container) Alias(alias any, target any) error {
	aType, err := serviceToken(alias)
	if err != nil {
		return err
	}
	tType, err := serviceToken(target)
	if err != nil {
		return err
	}
	if aType == tType {
		return ErrSelfAlias
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[key{typ: aType}] = key{typ: tType}
	return nil
}

// canonical resolves an alias to its canonical key. Callers must not hold mu.
func (c *Container) canonical(k key) key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if target, ok := c.aliases[k]; ok {
		return target
	}
	return k
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates service tokens with a named group.
//
//	c.Tag("reports", (*CPUReport)(nil), (*MemReport)(nil))
func (c *Container) Tag(tag string, services ...any) error {
	keys := make([]key, 0, len(services))
	for _, svc := range services {
		t, err := serviceToken(svc)
		if err != nil {
			return err
		}
		keys = append(keys, key{typ: t})
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], keys...)
	return nil
}

// Tagged resolves every service registered under a tag, in Tag call order.
func (c *Container) Tagged(tag string) ([]any, error) {
	c.mu.RLock()
	keys := make([]key, len(c.tags[tag]))
	copy(keys, c.tags[tag])
	c.mu.RUnlock()

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		v, err := c.resolveType(k.typ, k.name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend registers a decorator for a service. The decorator is a function
// whose first parameter and single return value are the service type; any
// further parameters are resolved from the container. Decorators run after
// construction, in Extend call order. A singleton that has already been
// materialized is re-wrapped in place.
//
//	c.Extend(func(l Logger) Logger { return &timestampLogger{inner: l} })
func (c *Container) Extend(dec any, opts ...Option) error {
	if dec == nil {
		return ErrInvalidDecorator
	}
	v := reflect.ValueOf(dec)
	t := v.Type()
	if t.Kind() != reflect.Func || t.IsVariadic() ||
		t.NumIn() < 1 || t.NumOut() != 1 || t.Out(0) != t.In(0) {
		return ErrInvalidDecorator
	}
	o := applyOptions(opts)
	k := c.canonical(key{typ: t.In(0), name: o.name})

	params := make([]reflect.Type, t.NumIn()-1)
	for i := range params {
		params[i] = t.In(i + 1)
	}
	d := decorator{fn: v, paramTypes: params}

	// Hold buildMu across the cached-instance re-wrap so the decorator's own
	// dependency resolution does not race with in-flight construction.
	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	c.mu.Lock()
	c.extenders[k] = append(c.extenders[k], d)
	cached, ok := c.instances[k]
	c.mu.Unlock()

	if ok {
		wrapped, err := c.applyDecorator(d, cached, &resolutionFrame{})
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.instances[k] = wrapped
		c.mu.Unlock()
	}
	return nil
}
