package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-mvc/framework/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

type eagerProvider struct {
	container.BaseProvider
	registerCalls int
	bootCalls     int
}

func (p *eagerProvider) Register(app *container.Container) error {
	p.registerCalls++
	app.Set("eager-svc", func() any { return "eager" })
	return nil
}

func (p *eagerProvider) Boot(_ *container.Container) error {
	p.bootCalls++
	return nil
}

// deferredProvider is only registered when "deferred-svc" is first resolved.
type deferredProvider struct {
	container.BaseProvider
	registerCalls int
	bootCalls     int
}

func (p *deferredProvider) Register(app *container.Container) error {
	p.registerCalls++
	app.Set("deferred-svc", func() any { return "deferred-value" })
	app.Set("deferred-other", "other")
	return nil
}

func (p *deferredProvider) Boot(_ *container.Container) error {
	p.bootCalls++
	return nil
}

func (p *deferredProvider) IsDeferred() bool { return true }
func (p *deferredProvider) Provides() []string {
	return []string{"deferred-svc", "deferred-other"}
}

// forgetfulProvider claims a key it never registers.
type forgetfulProvider struct{ container.BaseProvider }

func (p *forgetfulProvider) Register(_ *container.Container) error { return nil }
func (p *forgetfulProvider) IsDeferred() bool                      { return true }
func (p *forgetfulProvider) Provides() []string                    { return []string{"ghost"} }

// brokenDeferredProvider registers a factory that always fails.
type brokenDeferredProvider struct{ container.BaseProvider }

func (p *brokenDeferredProvider) Register(app *container.Container) error {
	app.Set("view", container.Factory(func(*container.Container) (any, error) {
		return nil, errors.New("no templates")
	}))
	return nil
}
func (p *brokenDeferredProvider) IsDeferred() bool   { return true }
func (p *brokenDeferredProvider) Provides() []string { return []string{"view"} }

type failingProvider struct {
	container.BaseProvider
	registerErr error
	bootErr     error
}

func (p *failingProvider) Register(_ *container.Container) error { return p.registerErr }
func (p *failingProvider) Boot(_ *container.Container) error     { return p.bootErr }

// multiProvider registers multiple keys.
type multiProvider struct {
	container.BaseProvider
}

func (p *multiProvider) Register(app *container.Container) error {
	app.Set("alpha", "α")
	app.Set("beta", container.NewClass(func() string { return "β" }))
	return nil
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_EagerProvider(t *testing.T) {
	t.Parallel()

	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	require.Equal(t, 1, p.registerCalls)
	require.Zero(t, p.bootCalls, "Boot must wait for registry.Boot")

	require.NoError(t, reg.Boot())
	require.Equal(t, 1, p.bootCalls)

	got, err := c.Get("eager-svc")
	require.NoError(t, err)
	require.Equal(t, "eager", got)
}

func TestRegistry_BootIsIdempotent(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(container.New())
	require.False(t, reg.Booted())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Boot())
	require.NoError(t, reg.Boot())

	require.True(t, reg.Booted())
	require.Equal(t, 1, p.bootCalls)
}

func TestRegistry_DuplicateRegisterIgnored(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(container.New())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Register(p))

	require.Equal(t, 1, p.registerCalls)
	require.Len(t, reg.Providers(), 1)
}

func TestRegistry_RegisterAfterBootBootsImmediately(t *testing.T) {
	t.Parallel()

	reg := container.NewProviderRegistry(container.New())
	require.NoError(t, reg.Boot())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	require.Equal(t, 1, p.bootCalls)
}

func TestRegistry_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	t.Run("register", func(t *testing.T) {
		t.Parallel()
		reg := container.NewProviderRegistry(container.New())
		err := reg.Register(&failingProvider{registerErr: boom})
		require.ErrorIs(t, err, boom)
	})

	t.Run("boot", func(t *testing.T) {
		t.Parallel()
		reg := container.NewProviderRegistry(container.New())
		require.NoError(t, reg.Register(&failingProvider{bootErr: boom}))
		require.ErrorIs(t, reg.Boot(), boom)
	})
}

// ── Deferred providers ────────────────────────────────────────────────────────

func TestRegistry_DeferredProvider(t *testing.T) {
	t.Parallel()

	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &deferredProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Boot())

	require.Zero(t, p.registerCalls, "deferred provider must wait for first Get")
	require.True(t, c.Has("deferred-svc"))
	require.Empty(t, reg.Providers())

	got, err := c.Get("deferred-svc")
	require.NoError(t, err)
	require.Equal(t, "deferred-value", got)

	got, err = c.Get("deferred-other")
	require.NoError(t, err)
	require.Equal(t, "other", got)

	require.Equal(t, 1, p.registerCalls)
	require.Equal(t, 1, p.bootCalls)
}

func TestRegistry_DeferredProviderMissingKey(t *testing.T) {
	t.Parallel()

	c := container.New()
	reg := container.NewProviderRegistry(c)
	require.NoError(t, reg.Register(&forgetfulProvider{}))

	_, err := c.Get("ghost")
	require.ErrorIs(t, err, container.ErrContainer)
	require.ErrorContains(t, err, "did not register 'ghost'")
}

func TestRegistry_DeferredProviderFailureNamesKeyOnce(t *testing.T) {
	t.Parallel()

	c := container.New()
	reg := container.NewProviderRegistry(c)
	require.NoError(t, reg.Register(&brokenDeferredProvider{}))
	require.NoError(t, reg.Boot())

	_, err := c.Get("view")
	require.ErrorIs(t, err, container.ErrConstruction)
	require.EqualError(t, err, "error creating component 'view': no templates")
}

// ── Multiple providers ────────────────────────────────────────────────────────

func TestRegistry_MultipleProviders(t *testing.T) {
	t.Parallel()

	c := container.New()
	reg := container.NewProviderRegistry(c)
	require.NoError(t, reg.Register(&multiProvider{}))
	require.NoError(t, reg.Register(&eagerProvider{}))
	require.NoError(t, reg.Boot())

	for key, want := range map[string]string{"alpha": "α", "beta": "β", "eager-svc": "eager"} {
		got, err := container.Resolve[string](c, key)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

// ── BaseProvider defaults ─────────────────────────────────────────────────────

func TestBaseProvider_Defaults(t *testing.T) {
	t.Parallel()

	var p container.BaseProvider
	require.NoError(t, p.Boot(container.New()))
	require.False(t, p.IsDeferred())
	require.Empty(t, p.Provides())
}
