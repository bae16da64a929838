package providers

import (
	"context"
	"log/slog"

	"github.com/km-arc/go-mvc/framework/config"
	"github.com/km-arc/go-mvc/framework/container"
	gohttp "github.com/km-arc/go-mvc/framework/http"
	"github.com/km-arc/go-mvc/framework/loader"
	"github.com/km-arc/go-mvc/framework/logger"
	"github.com/km-arc/go-mvc/framework/routing"
	"github.com/km-arc/go-mvc/framework/session"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the application configuration.
//
// Bound components:
//   - "config" → *config.Config
//   - "app"    → *config.AppConfig
//
// When Config is nil the configuration is loaded from EnvFiles.
type ConfigServiceProvider struct {
	container.BaseProvider
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Load(p.EnvFiles...)
	}
	app.Set("config", cfg)
	app.Set("app", &cfg.App)
	alias(app, "config", container.NameOf[*config.Config]())
	return nil
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the router and the controller classes it
// resolves controllers from.
//
// Bound components:
//   - "router"      → *routing.Router
//   - "controllers" → *routing.ControllerRegistry
type RoutingServiceProvider struct {
	container.BaseProvider
	Controllers *routing.ControllerRegistry

	// Routes is a compiled route table shared by every container. Without
	// it each container starts from an empty router.
	Routes *routing.Router
}

func (p *RoutingServiceProvider) Register(app *container.Container) error {
	controllers := p.Controllers
	if controllers == nil {
		controllers = routing.NewControllerRegistry()
	}
	app.Set("controllers", controllers)
	app.Set("router", container.Factory(func(c *container.Container) (any, error) {
		if p.Routes != nil {
			return p.Routes.WithContainer(c), nil
		}
		return routing.New(c, controllers), nil
	}))
	alias(app, "router", container.NameOf[*routing.Router]())
	return nil
}

// ── ViewServiceProvider ───────────────────────────────────────────────────────

// ViewServiceProvider registers the template engine. It is deferred: the
// engine is only registered once something asks for "view".
//
// Bound components:
//   - "view" → *gohttp.ViewEngine
type ViewServiceProvider struct {
	container.BaseProvider
	Dir  string   // template directory, default: "./views"
	Exts []string // file extensions, default: gohttp.DefaultExtensions
}

func (p *ViewServiceProvider) Register(app *container.Container) error {
	dir := p.Dir
	if dir == "" {
		dir = "./views"
	}
	app.Set("view", gohttp.NewViewEngine(dir, p.Exts...))
	return nil
}

func (p *ViewServiceProvider) Provides() []string { return []string{"view"} }
func (p *ViewServiceProvider) IsDeferred() bool   { return true }

// ── LoaderServiceProvider ─────────────────────────────────────────────────────

// LoaderServiceProvider registers the model and library loader.
//
// Bound components:
//   - "loader" → *loader.Loader
type LoaderServiceProvider struct {
	container.BaseProvider
	Catalog *loader.Catalog
}

func (p *LoaderServiceProvider) Register(app *container.Container) error {
	catalog := p.Catalog
	if catalog == nil {
		catalog = loader.NewCatalog()
	}
	app.Set("loader", container.Factory(func(c *container.Container) (any, error) {
		return loader.New(c, catalog), nil
	}))
	alias(app, "loader", container.NameOf[*loader.Loader]())
	return nil
}

// ── LoggerServiceProvider ─────────────────────────────────────────────────────

// LoggerServiceProvider binds the structured logger, or a no-op logger when
// Logger is nil.
//
// Bound components:
//   - "logger" → *slog.Logger
type LoggerServiceProvider struct {
	container.BaseProvider
	Logger *slog.Logger
}

func (p *LoggerServiceProvider) Register(app *container.Container) error {
	log := p.Logger
	if log == nil {
		log = logger.NewNope()
	}
	app.Set("logger", log)
	alias(app, "logger", container.NameOf[*slog.Logger]())
	return nil
}

// ── SessionServiceProvider ────────────────────────────────────────────────────

// SessionServiceProvider starts the client session on first use. It is
// deferred, so requests that never touch the session never load it.
//
// Bound components:
//   - "session" → *session.Session
//
// The session is started from the "request" component's cookies; the caller
// commits it once the request is handled.
type SessionServiceProvider struct {
	container.BaseProvider
	Manager *session.Manager
}

func (p *SessionServiceProvider) Register(app *container.Container) error {
	m := p.Manager
	if m == nil {
		m = session.NewManager(nil)
	}
	app.Set("session", container.Factory(func(c *container.Container) (any, error) {
		if !c.Has("request") {
			return m.Start(context.Background(), nil)
		}
		req, err := container.Resolve[*gohttp.Request](c, "request")
		if err != nil {
			return nil, err
		}
		return m.Start(req.Raw().Context(), req.Raw())
	}))
	alias(app, "session", container.NameOf[*session.Session]())
	return nil
}

func (p *SessionServiceProvider) Provides() []string {
	return []string{"session", container.NameOf[*session.Session]()}
}
func (p *SessionServiceProvider) IsDeferred() bool { return true }

// alias registers key again under its type name so constructors taking that
// type are autowired with the same instance.
func alias(app *container.Container, key, typeName string) {
	app.Set(typeName, container.Factory(func(c *container.Container) (any, error) {
		return c.Get(key)
	}))
}
