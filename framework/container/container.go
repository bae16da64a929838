package container

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ── Entry types ──────────────────────────────────────────────────────────────

// Factory builds a component from the container it is registered in.
type Factory func(c *Container) (any, error)

// Args holds explicit constructor arguments keyed by parameter name. They are
// passed verbatim and bypass autowiring for those parameters.
type Args map[string]any

// Config is the bootstrap configuration consumed by Create. The value itself
// is registered as the "config" component.
type Config interface {
	Components() map[string]any
}

// entry is one registration: a live instance, a *Class or a factory.
type entry struct {
	value any
	args  Args
}

// ── Container ────────────────────────────────────────────────────────────────

// Container holds named components, builds type-backed entries by autowiring
// their constructors and caches every resolved instance.
//
// Registration is expected to finish before concurrent resolution starts.
// Maps are lock-guarded but construction runs unlocked, so two goroutines
// resolving the same unresolved key at once may both build it.
type Container struct {
	mu sync.RWMutex

	// key → registration
	entries map[string]*entry

	// key → resolved instance
	instances map[string]any

	// key → parameter overrides set through When
	contextual map[string]Args

	// memoized call results, see Cache
	memo   map[string]any
	flight singleflight.Group
}

// New creates an empty container.
func New() *Container {
	return &Container{
		entries:    make(map[string]*entry),
		instances:  make(map[string]any),
		contextual: make(map[string]Args),
		memo:       make(map[string]any),
	}
}

// Create builds a container, registers cfg under "config" and registers every
// component cfg lists.
//
//	c := container.Create(cfg)
//	router, err := container.Resolve[*routing.Router](c, "router")
func Create(cfg Config) *Container {
	c := New()
	c.Set("config", cfg)
	if cfg == nil {
		return c
	}
	for key, value := range cfg.Components() {
		c.Set(key, value)
	}
	return c
}

// ── Registration ─────────────────────────────────────────────────────────────

// Set registers value under key, replacing any previous entry and dropping
// its cached instance. value may be a *Class, a Factory, a func() any, a
// func() (any, error) or a live instance. args are merged and used verbatim
// for the named constructor parameters of a *Class.
//
//	c.Set("clock", time.Now)                       // live value (a func(), not a factory)
//	c.Set("mailer", container.NewClass(NewMailer))  // autowired on first Get
//	c.Set("answer", func() any { return 42 })       // factory
//	c.Set("report", container.NewClass(NewReport), container.Args{"title": "Q3"})
func (c *Container) Set(key string, value any, args ...Args) {
	var merged Args
	for _, a := range args {
		if merged == nil {
			merged = make(Args, len(a))
		}
		maps.Copy(merged, a)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, args: merged}
	delete(c.instances, key)
}

func (c *Container) entryOf(key string) *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

// Has reports whether key has an entry or a cached instance.
func (c *Container) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, hasEntry := c.entries[key]
	_, hasInstance := c.instances[key]
	return hasEntry || hasInstance
}

// Resolved reports whether key has been resolved and its instance cached.
func (c *Container) Resolved(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[key]
	return ok
}

// Remove drops the entry, the cached instance and any contextual overrides
// for key.
func (c *Container) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	delete(c.instances, key)
	delete(c.contextual, key)
}

// Clear drops every entry, cached instance and memoized result.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.instances = make(map[string]any)
	c.contextual = make(map[string]Args)
	c.memo = make(map[string]any)
}

// List returns the registered keys in sorted order.
func (c *Container) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries)+len(c.instances))
	for k := range c.entries {
		keys = append(keys, k)
	}
	for k := range c.instances {
		if _, ok := c.entries[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// ── Resolution ───────────────────────────────────────────────────────────────

// Get resolves key. Cached instances are returned as is; otherwise the entry
// is materialized (instance kept, factory invoked, class autowired), cached
// and returned.
func (c *Container) Get(key string) (any, error) {
	return c.resolve(key, nil)
}

// resolve is Get with the chain of keys currently under construction.
func (c *Container) resolve(key string, path []string) (any, error) {
	c.mu.RLock()
	if inst, ok := c.instances[key]; ok {
		c.mu.RUnlock()
		return inst, nil
	}
	e, ok := c.entries[key]
	given := c.contextual[key]
	c.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Key: key}
	}

	if slices.Contains(path, key) {
		chain := append(slices.Clone(path), key)
		return nil, &Error{Key: key, Kind: ErrCircularDependency, Err: errors.New(strings.Join(chain, " -> "))}
	}

	if len(given) > 0 {
		args := make(Args, len(e.args)+len(given))
		maps.Copy(args, e.args)
		maps.Copy(args, given)
		e = &entry{value: e.value, args: args}
	}

	instance, err := c.materialize(key, e, append(slices.Clip(path), key))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.instances[key] = instance
	c.mu.Unlock()
	return instance, nil
}

func (c *Container) materialize(key string, e *entry, path []string) (any, error) {
	switch v := e.value.(type) {
	case *Class:
		instance, err := c.build(v, e.args, path)
		if err != nil {
			return nil, wrap(key, err)
		}
		return instance, nil
	case Factory:
		return c.invoke(key, func() (any, error) { return v(c) })
	case func(*Container) (any, error):
		return c.invoke(key, func() (any, error) { return v(c) })
	case func() (any, error):
		return c.invoke(key, v)
	case func() any:
		return c.invoke(key, func() (any, error) { return v(), nil })
	default:
		return v, nil
	}
}

// invoke runs a factory, converting a returned error or a panic into *Error.
func (c *Container) invoke(key string, fn func() (any, error)) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Key: key, Kind: ErrConstruction, Err: fmt.Errorf("factory panicked: %v", r)}
		}
	}()

	instance, err = fn()
	if err != nil {
		return nil, wrap(key, err)
	}
	return instance, nil
}

// Make builds class without registering or caching it. Each call runs the
// constructor again; dependencies are still resolved (and cached) through
// the container.
func (c *Container) Make(class *Class, args Args) (any, error) {
	instance, err := c.build(class, args, nil)
	if err != nil {
		return nil, wrap(class.Name(), err)
	}
	return instance, nil
}

// ── Generics helpers ─────────────────────────────────────────────────────────

// Resolve calls Get and type-asserts the result.
//
//	router, err := container.Resolve[*routing.Router](c, "router")
func Resolve[T any](c *Container, key string) (T, error) {
	var zero T
	instance, err := c.Get(key)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &Error{Key: key, Kind: ErrConstruction,
			Err: fmt.Errorf("resolved to %T, not %s", instance, reflect.TypeFor[T]())}
	}
	return typed, nil
}

// MustResolve is Resolve that panics on failure. Use it in bootstrap code
// where a missing component is a programming error.
func MustResolve[T any](c *Container, key string) T {
	typed, err := Resolve[T](c, key)
	if err != nil {
		panic(err)
	}
	return typed
}
