package container

import (
	"fmt"
	"reflect"
)

// ContextualBuilder implements the fluent contextual binding API.
//
//	// while PhotoService is being built, Filesystem resolves to an S3 impl
//	err := c.When((*PhotoService)(nil)).
//	    Needs((*Filesystem)(nil)).
//	    Give(NewS3Filesystem)
type ContextualBuilder struct {
	container *Container
	consumer  reflect.Type
	dep       reflect.Type
	err       error
}

// When starts a contextual binding chain for a consumer. The consumer may be
// named by its service identifier or by its concrete implementation type.
func (c *Container) When(consumer any) *ContextualBuilder {
	t, err := serviceToken(consumer)
	return &ContextualBuilder{container: c, consumer: t, err: err}
}

// Needs specifies which dependency the consumer's binding overrides.
func (b *ContextualBuilder) Needs(dep any) *ContextualBuilder {
	if b.err != nil {
		return b
	}
	b.dep, b.err = serviceToken(dep)
	return b
}

// Give installs the constructor used when the consumer resolves the
// dependency. Contextual constructions are always transient and never touch
// the singleton cache.
func (b *ContextualBuilder) Give(ctor any) error {
	if err := b.ready(); err != nil {
		return err
	}
	reg, err := newConstructorRegistration(ctor, options{})
	if err != nil {
		return err
	}
	if !assignable(reg.implType, b.dep) {
		return fmt.Errorf("container: %s is not assignable to %s", reg.implType, b.dep)
	}
	reg.serviceType = b.dep
	b.install(reg)
	return nil
}

// GiveValue is a shorthand for Give when the override is a pre-built value.
//
//	c.When((*PhotoService)(nil)).Needs((*Filesystem)(nil)).GiveValue(localFS)
func (b *ContextualBuilder) GiveValue(value any) error {
	if err := b.ready(); err != nil {
		return err
	}
	reg, err := newInstanceRegistration(value, options{})
	if err != nil {
		return err
	}
	if !assignable(reg.implType, b.dep) {
		return fmt.Errorf("container: %s is not assignable to %s", reg.implType, b.dep)
	}
	reg.serviceType = b.dep
	b.install(reg)
	return nil
}

func (b *ContextualBuilder) ready() error {
	if b.err != nil {
		return b.err
	}
	if b.dep == nil {
		return fmt.Errorf("%w (call Needs before Give)", ErrInvalidServiceToken)
	}
	return nil
}

func (b *ContextualBuilder) install(reg *Registration) {
	c := b.container
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.contextual[b.consumer]; !ok {
		c.contextual[b.consumer] = make(map[reflect.Type]*Registration)
	}
	c.contextual[b.consumer][b.dep] = reg
}
