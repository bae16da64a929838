package container

import (
	"fmt"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the registration of related components.
//
// Register is called when the provider is added (or, for deferred providers,
// on first resolution of one of the keys it provides). Boot is called after
// every eager provider has been registered, so it may resolve components
// registered elsewhere.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(app *container.Container) error {
//	    app.Set("mailer", container.NewClass(mail.New))
//	    return nil
//	}
type ServiceProvider interface {
	// Register puts components into the container. Do not resolve other
	// components here, use Boot for that.
	Register(app *Container) error

	// Boot runs after all eager providers are registered.
	Boot(app *Container) error

	// Provides lists the keys a deferred provider registers.
	Provides() []string

	// IsDeferred reports whether Register should wait until one of the
	// Provides keys is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op implementation of Boot, Provides and
// IsDeferred.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(app *container.Container) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string      { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots ServiceProviders against one
// container, including deferred providers.
type ProviderRegistry struct {
	mu         sync.Mutex
	app        *Container
	eager      []ServiceProvider
	booted     bool
	registered map[ServiceProvider]bool

	// deferred provider → registration outcome, shared by all its keys
	loads map[ServiceProvider]*deferredLoad
}

type deferredLoad struct {
	once sync.Once
	err  error
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
		loads:      make(map[ServiceProvider]*deferredLoad),
	}
}

// Register adds a provider. Eager providers are registered immediately, and
// booted immediately too when the registry has already booted. Adding the
// same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		r.loads[provider] = &deferredLoad{}
		r.mu.Unlock()
		r.interceptDeferred(provider)
		return nil
	}

	r.eager = append(r.eager, provider)
	booted := r.booted
	r.mu.Unlock()

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("register %T: %w", provider, err)
	}
	if booted {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// interceptDeferred installs a factory for each deferred key. The first Get
// of any of them registers (and, after Boot, boots) the provider, which
// replaces the factories with its real entries.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) {
	for _, key := range provider.Provides() {
		var stub *entry
		r.app.Set(key, Factory(func(c *Container) (any, error) {
			if err := r.load(provider); err != nil {
				return nil, err
			}
			if c.entryOf(key) == stub {
				return nil, fmt.Errorf("deferred provider %T did not register '%s'", provider, key)
			}
			return c.Get(key)
		}))
		stub = r.app.entryOf(key)
	}
}

func (r *ProviderRegistry) load(provider ServiceProvider) error {
	r.mu.Lock()
	l := r.loads[provider]
	r.mu.Unlock()

	l.once.Do(func() {
		if err := provider.Register(r.app); err != nil {
			l.err = fmt.Errorf("register %T: %w", provider, err)
			return
		}
		r.mu.Lock()
		booted := r.booted
		r.mu.Unlock()
		if booted {
			if err := provider.Boot(r.app); err != nil {
				l.err = fmt.Errorf("boot %T: %w", provider, err)
			}
		}
	})
	return l.err
}

// Boot calls Boot on every eager provider, stopping at the first error.
// Later calls are no-ops.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// Booted reports whether Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the eager providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}
