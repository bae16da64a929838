package routing

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/km-arc/go-mvc/framework/container"
)

// Target is what a URI pattern resolves to.
type Target struct {
	Controller string `yaml:"controller" json:"controller"`
	Action     string `yaml:"action" json:"action"`
}

// Match is the outcome of matching a concrete URI. Parameters holds the
// placeholder captures and is empty, never nil, for literal patterns.
type Match struct {
	Controller string            `json:"controller"`
	Action     string            `json:"action"`
	Parameters map[string]string `json:"parameters"`
}

// Router maps URI patterns to controller actions, resolves controllers
// through a ControllerResolver and dispatches actions with parameter binding.
//
// Routes are expected to be added at bootstrap, before the first Match.
type Router struct {
	container *container.Container
	resolver  ControllerResolver
	table     *table
}

// table is the compiled route table. Routers derived with WithContainer
// share one table.
type table struct {
	mu     sync.RWMutex
	routes map[string]Target
	static map[string]Target // placeholder-free patterns
	tree   *node
}

// New creates an empty router. c is used to build controllers; resolver maps
// controller identifiers to classes and may be nil, in which case every
// controller lookup fails.
func New(c *container.Container, resolver ControllerResolver) *Router {
	return &Router{
		container: c,
		resolver:  resolver,
		table: &table{
			routes: make(map[string]Target),
			static: make(map[string]Target),
			tree:   newNode(),
		},
	}
}

// WithContainer returns a router that builds controllers from c and shares
// r's compiled route table and resolver. Routes added through either router
// are visible to both.
//
//	compiled := routing.New(nil, controllers)
//	_ = compiled.Push(routes)
//	perRequest := compiled.WithContainer(c)
func (r *Router) WithContainer(c *container.Container) *Router {
	return &Router{container: c, resolver: r.resolver, table: r.table}
}

// ── Route table ──────────────────────────────────────────────────────────────

// Add registers one pattern. Placeholders take the form {name} and capture
// one segment, either whole ("/user/{id}") or inside a literal
// ("/files/{name}.txt"). Re-adding a pattern replaces its target.
func (r *Router) Add(uri string, target Target) error {
	if uri == "" {
		return &Error{Kind: ErrInvalidArgument, Msg: "route uri must not be empty"}
	}
	if target.Controller == "" || target.Action == "" {
		return &Error{Kind: ErrInvalidArgument, Msg: "route '" + uri + "' must define a controller and an action"}
	}

	segs, dynamic, err := compile(uri)
	if err != nil {
		return &Error{Kind: ErrInvalidArgument, Msg: "invalid route '" + uri + "'", Cause: err}
	}

	t := r.table
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[uri] = target
	if dynamic {
		t.tree.insert(uri, segs, target)
	} else {
		t.static[uri] = target
	}
	return nil
}

// Push adds every route of the map in sorted URI order, stopping at the
// first invalid one.
//
//	err := router.Push(map[string]routing.Target{
//	    "/":          {Controller: "Home", Action: "index"},
//	    "/user/{id}": {Controller: "User", Action: "show"},
//	})
func (r *Router) Push(routes map[string]Target) error {
	for _, uri := range slices.Sorted(maps.Keys(routes)) {
		if err := r.Add(uri, routes[uri]); err != nil {
			return err
		}
	}
	return nil
}

// Routes returns a copy of the route table.
func (r *Router) Routes() map[string]Target {
	r.table.mu.RLock()
	defer r.table.mu.RUnlock()
	return maps.Clone(r.table.routes)
}

// Get returns the target registered under exactly uri. It does no pattern
// matching.
func (r *Router) Get(uri string) (Target, bool) {
	r.table.mu.RLock()
	defer r.table.mu.RUnlock()
	t, ok := r.table.routes[uri]
	return t, ok
}

// ── Matching ─────────────────────────────────────────────────────────────────

// Match finds the route for uri. A placeholder-free pattern equal to uri
// wins outright; otherwise the most specific placeholder pattern is chosen,
// literal segments taking precedence over placeholders at every position.
func (r *Router) Match(uri string) (Match, error) {
	tbl := r.table
	tbl.mu.RLock()
	defer tbl.mu.RUnlock()

	if t, ok := tbl.static[uri]; ok {
		return Match{Controller: t.Controller, Action: t.Action, Parameters: map[string]string{}}, nil
	}

	l, values := tbl.tree.lookup(strings.Split(uri, "/"), nil)
	if l == nil {
		return Match{}, &Error{Kind: ErrNotFound, Msg: "no route matches '" + uri + "'"}
	}

	params := make(map[string]string, len(l.names))
	for i, name := range l.names {
		params[name] = values[i]
	}
	return Match{Controller: l.target.Controller, Action: l.target.Action, Parameters: params}, nil
}
