// Package container provides a reflective dependency-injection container
// for Go: a registry mapping service types to construction strategies, and a
// resolver that builds fully-wired object graphs on demand.
//
// # Overview
//
// Services are registered as constructor functions whose parameters are their
// dependencies. The resolver walks the dependency graph depth-first, builds
// instances in dependency order, caches singletons, and rejects cyclic graphs
// with the full offending path.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register constructors, instances, and providers
//  3. Boot providers (if used) — safe to resolve everything after this
//  4. Resolve services
//
// # Registration
//
//	// Transient — new instance every resolution (default)
//	c.Register(NewUserService)
//
//	// Singleton — created once on first use, then cached
//	c.Register(NewLogger, container.WithLifetime(container.Singleton))
//
//	// Abstract identifier — register a constructor under an interface
//	c.RegisterAs(NewSMTPMailer, (*Mailer)(nil))
//
//	// Pre-built value — implicitly a singleton
//	c.RegisterInstance(cfg)
//
//	// Named — multiple registrations of one type
//	c.Register(NewDevDB, container.WithName("dev"), container.WithLifetime(container.Singleton))
//	c.Register(NewProdDB, container.WithName("prod"), container.WithLifetime(container.Singleton))
//
// Re-registering an existing (type, name) pair fails with
// DuplicateRegistrationError unless WithReplace is given.
//
// # Resolution
//
//	// Generic (preferred — no type assertion required)
//	svc, err := container.Resolve[*UserService](c)
//	db, err := container.ResolveNamed[*DB](c, "dev")
//
//	// Token form
//	raw, err := c.Resolve((*Mailer)(nil))
//
// Dependencies are resolved in the constructor's parameter order, left to
// right. A dependency with no registration fails the whole call with
// NotRegisteredError; a cycle fails it with CircularDependencyError carrying
// the path, e.g. "A -> B -> A". No partial graph is ever returned or cached.
//
// # Contextual Binding
//
//	c.When((*PhotoService)(nil)).
//	    Needs((*Filesystem)(nil)).
//	    Give(NewS3Filesystem)
//
// # Tags
//
//	c.Tag("reports", (*CPUReport)(nil), (*MemReport)(nil))
//	reports, err := c.Tagged("reports") // []any
//
// # Extend / Decorate
//
//	c.Extend(func(l Logger) Logger {
//	    return &timestampLogger{inner: l}
//	})
//
// # Service Providers
//
//	type AppProvider struct{ container.BaseProvider }
//
//	func (p *AppProvider) Register(app *container.Container) error {
//	    return app.Register(NewMailer, container.WithLifetime(container.Singleton))
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&AppProvider{})
//	registry.Boot()
//
// # Concurrency
//
// Registration and resolution are safe for concurrent use. Resolution of an
// already-materialized singleton is a read-locked fast path; graph
// construction is serialized by a container-level mutex, which guarantees
// every singleton is constructed at most once even when goroutines race on
// first use. Registration is typically completed before resolution begins.
// Constructors must not register or extend services on the same container.
package container
