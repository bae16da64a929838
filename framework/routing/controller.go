package routing

import (
	"maps"
	"reflect"
	"strings"
	"sync"

	"github.com/km-arc/go-mvc/framework/container"
)

// Controller is implemented by every application controller through an
// embedded BaseController.
//
//	type UserController struct{ routing.BaseController }
//
//	func NewUserController(c *container.Container) *UserController {
//	    return &UserController{BaseController: routing.NewBaseController(c)}
//	}
type Controller interface {
	// Container returns the container the controller was built from.
	Container() *container.Container

	// Component resolves a named component from that container.
	Component(name string) (any, error)

	// Match returns the route match being dispatched.
	Match() Match

	// SetMatch assigns the route match. ResolveController calls it.
	SetMatch(m Match)

	base() *BaseController
}

var controllerType = reflect.TypeFor[Controller]()

// BaseController holds the per-request state shared by all controllers.
type BaseController struct {
	container *container.Container
	match     Match
}

// NewBaseController returns a BaseController bound to c.
func NewBaseController(c *container.Container) BaseController {
	return BaseController{container: c, match: Match{Parameters: map[string]string{}}}
}

func (b *BaseController) Container() *container.Container { return b.container }

// Component returns the component registered under name. A missing
// component yields an error matching container.ErrNotFound.
func (b *BaseController) Component(name string) (any, error) {
	if b.container == nil {
		return nil, &container.NotFoundError{Key: name}
	}
	return b.container.Get(name)
}

func (b *BaseController) Match() Match { return b.match }

func (b *BaseController) SetMatch(m Match) {
	if m.Parameters == nil {
		m.Parameters = map[string]string{}
	}
	b.match = m
}

func (b *BaseController) base() *BaseController { return b }

// ── Resolution ───────────────────────────────────────────────────────────────

// ControllerResolver maps a controller identifier from a route to the class
// that builds it.
type ControllerResolver interface {
	Lookup(id string) (*container.Class, bool)
}

// ControllerRegistry is a ControllerResolver backed by a static map.
// Controllers are keyed by their bare type name; Lookup also accepts the
// name without its "Controller" suffix.
//
//	reg := routing.NewControllerRegistry()
//	reg.Register(controllers.NewUserController) // "User" and "UserController"
type ControllerRegistry struct {
	mu      sync.RWMutex
	classes map[string]*container.Class
}

// NewControllerRegistry creates an empty registry.
func NewControllerRegistry() *ControllerRegistry {
	return &ControllerRegistry{classes: make(map[string]*container.Class)}
}

// Register describes ctor as a class and adds it under its bare type name,
// which it returns.
func (r *ControllerRegistry) Register(ctor any, params ...container.Param) string {
	class := container.NewClass(ctor, params...)
	id := bareName(class)
	r.Add(id, class)
	return id
}

// Add puts class under id, replacing any previous class.
func (r *ControllerRegistry) Add(id string, class *container.Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[id] = class
}

// Lookup returns the class registered under id or under id + "Controller".
func (r *ControllerRegistry) Lookup(id string) (*container.Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if class, ok := r.classes[id]; ok {
		return class, true
	}
	class, ok := r.classes[id+"Controller"]
	return class, ok
}

// Classes returns a copy of the registered identifiers and classes.
func (r *ControllerRegistry) Classes() map[string]*container.Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.classes)
}

func bareName(class *container.Class) string {
	if t := class.Type(); t != nil {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Name() != "" {
			return t.Name()
		}
	}
	name := strings.TrimLeft(class.Name(), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ResolveController builds the controller named by m and assigns m to it.
// Controllers are built per call and never cached in the container.
func (r *Router) ResolveController(m Match) (Controller, error) {
	if m.Controller == "" {
		return nil, &Error{Kind: ErrInvalidArgument, Msg: "no controller defined in route"}
	}
	if m.Action == "" {
		return nil, &Error{Kind: ErrInvalidArgument, Msg: "no action defined in route"}
	}

	var (
		class *container.Class
		ok    bool
	)
	if r.resolver != nil {
		class, ok = r.resolver.Lookup(m.Controller)
	}
	if !ok || class == nil {
		return nil, &Error{Kind: ErrRuntime, Msg: "controller '" + m.Controller + "' not found"}
	}
	if !class.Instantiable() {
		return nil, &Error{Kind: ErrRuntime, Msg: "controller class not found: " + m.Controller}
	}
	if !class.Type().Implements(controllerType) {
		return nil, &Error{Kind: ErrRuntime, Msg: "controller does not extend the base Controller"}
	}

	c := r.container
	if c == nil {
		c = container.New()
	}
	instance, err := c.Make(class, nil)
	if err != nil {
		return nil, &Error{Kind: ErrRuntime, Msg: "cannot create controller '" + m.Controller + "'", Cause: err}
	}
	ctrl, ok := instance.(Controller)
	if !ok || isNil(instance) {
		return nil, &Error{Kind: ErrRuntime, Msg: "controller class not found: " + m.Controller}
	}
	// a controller embedding a nil *BaseController has no state to bind
	b := ctrl.base()
	if b == nil {
		return nil, &Error{Kind: ErrRuntime, Msg: "controller does not extend the base Controller"}
	}
	if b.container == nil {
		b.container = c
	}
	ctrl.SetMatch(m)
	return ctrl, nil
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return !rv.IsValid()
}
