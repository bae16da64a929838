// Package app runs the request-response cycle: one container per request,
// routed to a controller action, its output sent back or turned into an
// error page.
package app

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-mvc/framework/config"
	"github.com/km-arc/go-mvc/framework/container"
	gohttp "github.com/km-arc/go-mvc/framework/http"
	"github.com/km-arc/go-mvc/framework/loader"
	"github.com/km-arc/go-mvc/framework/logger"
	"github.com/km-arc/go-mvc/framework/metrics"
	"github.com/km-arc/go-mvc/framework/providers"
	"github.com/km-arc/go-mvc/framework/routing"
	"github.com/km-arc/go-mvc/framework/session"
)

const shutdownTimeout = 10 * time.Second

// StatusCoder lets an error returned by an action pick its HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// Application runs one request-response cycle per request. Each request gets
// a fresh container seeded from the configuration and the framework
// providers; the controller and action come from the matched route.
type Application struct {
	cfg         *config.Config
	log         *slog.Logger
	metrics     *metrics.Metrics
	controllers *routing.ControllerRegistry
	catalog     *loader.Catalog
	store       session.Store
	sessions    *session.Manager

	mu        sync.RWMutex
	providers []container.ServiceProvider
	routes    *routing.Router // compiled from cfg.HTTP.Routes on first use
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the application logger. The default discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(a *Application) { a.log = log }
}

// WithMetrics sets the dispatch metrics. Without it nothing is recorded and
// no metrics endpoint is mounted.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Application) { a.metrics = m }
}

// WithSessionStore sets where sessions are kept. The default is process
// memory.
func WithSessionStore(store session.Store) Option {
	return func(a *Application) { a.store = store }
}

// WithProvider adds a service provider registered into every request
// container after the framework providers.
func WithProvider(p container.ServiceProvider) Option {
	return func(a *Application) { a.providers = append(a.providers, p) }
}

// New creates an application. A nil cfg is loaded from the environment.
func New(cfg *config.Config, opts ...Option) *Application {
	if cfg == nil {
		cfg = config.Load()
	}
	a := &Application{
		cfg:         cfg,
		log:         logger.NewNope(),
		controllers: routing.NewControllerRegistry(),
		catalog:     loader.NewCatalog(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.sessions = session.NewManager(a.store,
		session.WithCookieName(cfg.Session.Cookie),
		session.WithLifetime(cfg.Session.Lifetime),
		session.WithSecure(cfg.Session.Secure),
		session.WithSecret(cfg.App.Key),
	)
	return a
}

// Config returns the application configuration.
func (a *Application) Config() *config.Config { return a.cfg }

// Configure merges overrides over the HTTP configuration and returns the
// result. Call it before serving.
func (a *Application) Configure(overrides config.HTTPConfig) config.HTTPConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes = nil
	return a.cfg.Configure(overrides)
}

// Controllers returns the registry controllers are resolved from.
//
//	application.Controllers().Register(controllers.NewUserController)
func (a *Application) Controllers() *routing.ControllerRegistry { return a.controllers }

// Catalog returns the models and libraries the loader can build.
func (a *Application) Catalog() *loader.Catalog { return a.catalog }

// Sessions returns the manager request sessions are started from.
func (a *Application) Sessions() *session.Manager { return a.sessions }

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.log }

// Register adds a service provider for every subsequent request.
func (a *Application) Register(p container.ServiceProvider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.providers = append(a.providers, p)
}

// DefaultComponents lists the components every request container holds,
// keyed by name, with the type each one resolves to.
func DefaultComponents() map[string]string {
	return map[string]string{
		"config":   container.NameOf[*config.Config](),
		"request":  container.NameOf[*gohttp.Request](),
		"response": container.NameOf[*gohttp.Response](),
		"router":   container.NameOf[*routing.Router](),
		"view":     container.NameOf[*gohttp.ViewEngine](),
		"loader":   container.NameOf[*loader.Loader](),
		"logger":   container.NameOf[*slog.Logger](),
		"metrics":  container.NameOf[*metrics.Metrics](),
		"session":  container.NameOf[*session.Session](),
	}
}

// ── Request cycle ────────────────────────────────────────────────────────────

// Handle runs one request: match the URI against the compiled routes,
// resolve the controller, dispatch the action, commit the session and send
// its output. Every
// failure ends on the error page.
func (a *Application) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			a.fail(w, r, fmt.Errorf("panic: %v", rec))
		}
	}()

	req := gohttp.NewRequest(r)
	res := gohttp.NewResponse()
	res.AddHeaders(a.cfg.HTTP.Headers)
	res.SetCompression(a.cfg.HTTP.Compression)

	c, err := a.newContainer(r, req, res)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	m, err := a.dispatch(c, req, res)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.commitSession(r.Context(), c, res); err != nil {
		a.fail(w, r, err)
		return
	}

	if err := res.Send(w, r.Header.Get("Accept-Encoding")); err != nil {
		a.log.ErrorContext(r.Context(), "send response", slog.String("error", err.Error()))
		return
	}

	elapsed := time.Since(start)
	a.metrics.Observe(m.Controller, m.Action, res.StatusCode(), elapsed)
	a.log.InfoContext(r.Context(), "dispatched",
		slog.String("controller", m.Controller),
		slog.String("action", m.Action),
		slog.Int("status", res.StatusCode()),
		slog.Duration("duration", elapsed),
	)
}

func (a *Application) dispatch(c *container.Container, req *gohttp.Request, res *gohttp.Response) (routing.Match, error) {
	router, err := container.Resolve[*routing.Router](c, "router")
	if err != nil {
		return routing.Match{}, err
	}

	m, err := router.Match(req.URI())
	if err != nil {
		if errors.Is(err, routing.ErrNotFound) {
			a.metrics.Miss()
		}
		return routing.Match{}, err
	}
	req.SetParams(m.Parameters)

	ctrl, err := router.ResolveController(m)
	if err != nil {
		return m, err
	}
	out, err := router.Dispatch(ctrl)
	if err != nil {
		return m, err
	}

	// actions that wrote through the response component return nothing
	if out != nil {
		if err := res.SetOutput(out); err != nil {
			return m, err
		}
	}
	return m, nil
}

// commitSession saves the session if the request started one and adds its
// cookie to the response.
func (a *Application) commitSession(ctx context.Context, c *container.Container, res *gohttp.Response) error {
	if !c.Resolved("session") {
		return nil
	}
	s, err := container.Resolve[*session.Session](c, "session")
	if err != nil {
		return err
	}
	cookie, err := a.sessions.Commit(ctx, s)
	if err != nil {
		return err
	}
	if cookie != nil {
		res.SetCookie(cookie)
	}
	return nil
}

// compiledRoutes returns the route table pushed from the configuration,
// compiling it once. Configure discards it.
func (a *Application) compiledRoutes() (*routing.Router, error) {
	a.mu.RLock()
	routes := a.routes
	a.mu.RUnlock()
	if routes != nil {
		return routes, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.routes != nil {
		return a.routes, nil
	}
	routes = routing.New(nil, a.controllers)
	if err := routes.Push(a.cfg.HTTP.Routes); err != nil {
		return nil, err
	}
	a.routes = routes
	return routes, nil
}

// newContainer builds the per-request container.
func (a *Application) newContainer(r *http.Request, req *gohttp.Request, res *gohttp.Response) (*container.Container, error) {
	routes, err := a.compiledRoutes()
	if err != nil {
		return nil, err
	}
	c := container.Create(a.cfg)

	log := a.log
	if id := middleware.GetReqID(r.Context()); id != "" {
		log = log.With(slog.String("request_id", id))
	}

	registry := container.NewProviderRegistry(c)
	list := []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: a.cfg},
		&providers.LoggerServiceProvider{Logger: log},
		&providers.RoutingServiceProvider{Controllers: a.controllers, Routes: routes},
		&providers.ViewServiceProvider{Dir: a.cfg.HTTP.Views},
		&providers.LoaderServiceProvider{Catalog: a.catalog},
		&providers.SessionServiceProvider{Manager: a.sessions},
	}
	a.mu.RLock()
	list = append(list, a.providers...)
	a.mu.RUnlock()

	for _, p := range list {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	c.Set("request", req)
	c.Set(container.NameOf[*gohttp.Request](), req)
	c.Set("response", res)
	c.Set(container.NameOf[*gohttp.Response](), res)
	c.Set("metrics", a.metrics)

	if err := registry.Boot(); err != nil {
		return nil, err
	}
	return c, nil
}

// ── Failures ─────────────────────────────────────────────────────────────────

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><title>{{ .Status }} {{ .Title }}</title></head>
<body>
<h1>{{ .Status }} {{ .Title }}</h1>
<p>{{ .Message }}</p>
<small>{{ .ID }}</small>
</body>
</html>
`))

// StatusOf maps an error to its HTTP status: missing routes and resources
// give 404, bad parameters 400 and anything else 500.
func StatusOf(err error) int {
	var sc StatusCoder
	switch {
	case errors.As(err, &sc):
		return sc.StatusCode()
	case errors.Is(err, routing.ErrNotFound), errors.Is(err, loader.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, routing.ErrInvalidArgument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail renders the error page. It is the only place request failures are
// turned into responses.
func (a *Application) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	id := uuid.NewString()

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	a.log.Log(r.Context(), level, "request failed",
		slog.String("error_id", id),
		slog.String("uri", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	a.metrics.Failure(status)

	message := http.StatusText(status)
	if a.cfg.App.Debug {
		message = err.Error()
	}

	res := gohttp.NewResponse()
	res.AddHeaders(a.cfg.HTTP.Headers)
	if wantsJSON(r) {
		_ = res.JSON(status, map[string]any{"message": message, "id": id})
	} else {
		var page strings.Builder
		_ = errorPage.Execute(&page, map[string]any{
			"Status": status, "Title": http.StatusText(status), "Message": message, "ID": id,
		})
		res.SetStatusCode(status)
		_ = res.SetOutput(page.String())
	}
	if err := res.Send(w, ""); err != nil {
		a.log.ErrorContext(r.Context(), "send error page", slog.String("error", err.Error()))
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// ── Serving ──────────────────────────────────────────────────────────────────

// Handler returns the chi mux serving the application: request ids, real
// client IPs and panic recovery around a catch-all route into Handle, plus
// the metrics endpoint and static files when configured.
func (a *Application) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	if a.metrics != nil && a.cfg.HTTP.MetricsPath != "" {
		mux.Method(http.MethodGet, a.cfg.HTTP.MetricsPath, a.metrics.Handler())
	}
	if a.cfg.HTTP.Static != "" {
		files := http.StripPrefix("/static/", http.FileServer(http.Dir(a.cfg.HTTP.Static)))
		mux.With(middleware.Compress(5)).Handle("/static/*", files)
	}

	mux.HandleFunc("/*", a.Handle)
	return mux
}

// Run serves the application on the configured port until ctx is cancelled,
// then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.cfg.App.Port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a.serve(ctx, srv, srv.ListenAndServe)
}

func (a *Application) serve(ctx context.Context, srv *http.Server, listen func() error) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("server started",
			slog.String("app", a.cfg.App.Name),
			slog.String("addr", srv.Addr),
			slog.String("env", a.cfg.App.Env),
		)
		if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		a.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
