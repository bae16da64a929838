// Package container provides a dependency-injection container that autowires
// object graphs from constructor signatures, plus a service provider system.
//
// # Overview
//
// A container holds named components. A component is registered as a live
// value, a factory, or a *Class describing a constructor. Type-backed and
// factory entries are built on first Get and cached, so every key resolves to
// one instance per container.
//
// Go has no runtime parameter names or union types, so a constructor is
// described once by a Class: its inputs become a list of Param descriptors,
// each with a name, one or more accepted type names and an optional default.
//
// # Container Lifecycle
//
//  1. Create: c := container.Create(cfg)
//  2. Register providers: registry.Register(&MyProvider{})
//  3. Boot: registry.Boot()
//  4. Serve requests
//
// # Registration
//
//	// Live value
//	c.Set("clock", clock.Real{})
//
//	// Factory, invoked once
//	c.Set("answer", func() any { return 42 })
//
//	// Autowired class, keyed by its type name
//	c.Set(container.NameOf[*Mailer](), container.NewClass(NewMailer))
//
//	// Explicit arguments bypass autowiring for the named parameters
//	c.Set("report", container.NewClass(NewReport, container.Arg("title")), container.Args{"title": "Q3"})
//
// # Autowiring
//
// Each constructor parameter is resolved in declaration order:
//
//  1. an explicit argument is used verbatim;
//  2. a parameter of type *Container receives the container itself;
//  3. a single named type is resolved with Get(typeName), falling back to the default;
//  4. a union tries its non-primitive candidates in order and the first success wins;
//  5. a primitive without an argument or default is unresolvable.
//
//	c.Set("cache", container.NewClass(NewCache,
//	    container.Arg("store", container.NameOf[*RedisStore](), container.NameOf[*MemoryStore]()),
//	    container.Arg("ttl").Default(time.Minute),
//	))
//
// # Resolving
//
//	raw, err := c.Get("cache")
//	cache, err := container.Resolve[*Cache](c, "cache")
//
// # Call memoization
//
//	v, err := c.Cache("user:42", repo.Find, 42)
//
// The memo is keyed by key alone. A later call with different arguments
// returns the first result.
//
// # Service Providers
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(app *container.Container) error {
//	    app.Set("mailer", container.NewClass(mail.New))
//	    return nil
//	}
//
//	registry := container.NewProviderRegistry(c)
//	if err := registry.Register(&MailProvider{}); err != nil { ... }
//	if err := registry.Boot(); err != nil { ... }
//
// Deferred providers return true from IsDeferred and list their keys in
// Provides. They are registered on the first Get of one of those keys.
package container
