package container

import (
	"fmt"
	"reflect"
)

// ── Resolution frame ──────────────────────────────────────────────────────────

// resolutionFrame is the ephemeral state of one top-level resolution call: the
// ordered stack of keys currently being resolved. It exists solely for cycle
// detection and is shared by every recursive call inside the same resolution,
// so cycles crossing branches are caught too.
type resolutionFrame struct {
	stack []key
}

func (f *resolutionFrame) index(k key) int {
	for i, e := range f.stack {
		if e == k {
			return i
		}
	}
	return -1
}

func (f *resolutionFrame) push(k key) { f.stack = append(f.stack, k) }
func (f *resolutionFrame) pop()       { f.stack = f.stack[:len(f.stack)-1] }

// cycle returns the ordered path from the first occurrence of k back to k.
func (f *resolutionFrame) cycle(k key, from int) []reflect.Type {
	chain := make([]reflect.Type, 0, len(f.stack)-from+1)
	for _, e := range f.stack[from:] {
		chain = append(chain, e.typ)
	}
	return append(chain, k.typ)
}

// ── Public resolution API ─────────────────────────────────────────────────────

// Resolve produces a fully-wired instance for the service named by a pointer
// token, recursively constructing its dependencies.
//
//	svc, err := c.Resolve((*Mailer)(nil))
//
// Prefer the generic helper where the concrete type is known:
//
//	mailer, err := container.Resolve[Mailer](c)
func (c *Container) Resolve(service any) (any, error) {
	svcType, err := serviceToken(service)
	if err != nil {
		return nil, err
	}
	return c.resolveType(svcType, "")
}

// ResolveNamed resolves the registration stored under a disambiguating name.
func (c *Container) ResolveNamed(service any, name string) (any, error) {
	svcType, err := serviceToken(service)
	if err != nil {
		return nil, err
	}
	return c.resolveType(svcType, name)
}

// resolveType is the shared entry point for all top-level resolutions.
func (c *Container) resolveType(t reflect.Type, name string) (any, error) {
	k := c.canonical(key{typ: t, name: name})

	// Fast path: an already-materialized singleton needs no locking beyond a
	// read lock, and no dependency re-resolution.
	c.mu.RLock()
	if v, ok := c.instances[k]; ok {
		c.mu.RUnlock()
		return v.Interface(), nil
	}
	c.mu.RUnlock()

	// Slow path: serialize construction. This closes the check-then-act race
	// on the singleton cache, guaranteeing at-most-once construction per
	// (service type, name) under concurrent first use.
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	v, err := c.resolveKey(k, &resolutionFrame{})
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// ── Recursive resolver ────────────────────────────────────────────────────────

// resolveKey is the depth-first recursive resolver. The caller holds buildMu.
func (c *Container) resolveKey(k key, f *resolutionFrame) (reflect.Value, error) {
	k = c.canonical(k)

	// A key already on the frame means the graph reaches back into itself.
	if i := f.index(k); i >= 0 {
		return reflect.Value{}, CircularDependencyError{Chain: f.cycle(k, i)}
	}

	c.mu.RLock()
	if v, ok := c.instances[k]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	reg, ok := c.registrations[k]
	c.mu.RUnlock()
	if !ok {
		return reflect.Value{}, NotRegisteredError{Type: k.typ, Name: k.name}
	}

	f.push(k)
	v, err := c.build(reg, f)
	f.pop()
	if err != nil {
		return reflect.Value{}, err
	}

	v, err = c.applyExtenders(k, v, f)
	if err != nil {
		return reflect.Value{}, err
	}

	// Cache writes happen only after the whole subtree succeeded, so a failed
	// resolution never leaves a partial instance behind.
	if reg.lifetime == Singleton {
		c.mu.Lock()
		c.instances[k] = v
		c.mu.Unlock()
	}
	return v, nil
}

// build dispatches on the registration's construction strategy.
func (c *Container) build(reg *Registration, f *resolutionFrame) (reflect.Value, error) {
	switch reg.strategy {
	case strategyInstance:
		return reg.instance, nil

	case strategyConstructor:
		args := make([]reflect.Value, len(reg.paramTypes))
		for i, pt := range reg.paramTypes {
			var (
				v   reflect.Value
				err error
			)
			if override := c.getContextual(reg, pt); override != nil {
				v, err = c.build(override, f)
			} else {
				v, err = c.resolveKey(key{typ: pt}, f)
			}
			if err != nil {
				return reflect.Value{}, fmt.Errorf("container: resolving %s dependency %s: %w",
					reg.serviceType, pt, err)
			}
			args[i] = v
		}

		out := reg.ctor.Call(args)
		if reg.returnsErr && !out[1].IsNil() {
			return reflect.Value{}, ConstructionError{
				Type: reg.serviceType,
				Name: reg.name,
				Err:  out[1].Interface().(error),
			}
		}
		return out[0], nil

	default:
		return reflect.Value{}, fmt.Errorf("container: unknown construction strategy %d", reg.strategy)
	}
}

// getContextual returns the override registration for (consumer, dependency),
// or nil. The consumer matches by its service identifier or implementation type.
func (c *Container) getContextual(consumer *Registration, dep reflect.Type) *Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.contextual[consumer.serviceType]; ok {
		if reg, ok := m[dep]; ok {
			return reg
		}
	}
	if consumer.implType != consumer.serviceType {
		if m, ok := c.contextual[consumer.implType]; ok {
			if reg, ok := m[dep]; ok {
				return reg
			}
		}
	}
	return nil
}

// applyExtenders wraps a freshly built instance with its registered decorators.
func (c *Container) applyExtenders(k key, v reflect.Value, f *resolutionFrame) (reflect.Value, error) {
	c.mu.RLock()
	decs := c.extenders[k]
	c.mu.RUnlock()
	var err error
	for _, d := range decs {
		if v, err = c.applyDecorator(d, v, f); err != nil {
			return reflect.Value{}, err
		}
	}
	return v, nil
}

func (c *Container) applyDecorator(d decorator, v reflect.Value, f *resolutionFrame) (reflect.Value, error) {
	args := make([]reflect.Value, 0, 1+len(d.paramTypes))
	args = append(args, v)
	for _, pt := range d.paramTypes {
		dep, err := c.resolveKey(key{typ: pt}, f)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("container: resolving decorator dependency %s: %w", pt, err)
		}
		args = append(args, dep)
	}
	return d.fn.Call(args)[0], nil
}

// ── Generic helpers ───────────────────────────────────────────────────────────

// typeFor returns the reflect.Type of T, including interface types.
func typeFor[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Resolve is the generic resolution entry point.
//
//	repo, err := container.Resolve[*UserRepository](c)
//	mailer, err := container.Resolve[Mailer](c)
func Resolve[T any](c *Container) (T, error) {
	return ResolveNamed[T](c, "")
}

// ResolveNamed resolves the registration of T stored under name.
func ResolveNamed[T any](c *Container, name string) (T, error) {
	var zero T
	v, err := c.resolveType(typeFor[T](), name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, TypeMismatchError{Requested: typeFor[T](), Got: reflect.TypeOf(v)}
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure. Intended for composition
// roots where a wiring error is fatal.
func MustResolve[T any](c *Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

// MustResolveNamed is like ResolveNamed but panics on failure.
func MustResolveNamed[T any](c *Container, name string) T {
	v, err := ResolveNamed[T](c, name)
	if err != nil {
		panic(err)
	}
	return v
}
