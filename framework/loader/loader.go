// Package loader builds application models and libraries by name and keeps
// one instance of each per container.
package loader

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/km-arc/go-mvc/framework/container"
)

// ErrNotFound is returned when no class is registered under the requested name.
var ErrNotFound = errors.New("loader: resource not found")

// NotFoundError names the class that was looked up.
type NotFoundError struct {
	Class string
}

func (e *NotFoundError) Error() string { return "resource class not found: " + e.Class }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Catalog holds the classes the loader can build. Models are registered
// under their type name with the "Model" suffix ("UserModel"), libraries
// under their plain type name.
type Catalog struct {
	mu      sync.RWMutex
	classes map[string]*container.Class
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{classes: make(map[string]*container.Class)}
}

// Register describes ctor as a class and adds it under the bare name of the
// type it returns, which is also returned.
func (c *Catalog) Register(ctor any, params ...container.Param) string {
	class := container.NewClass(ctor, params...)
	name := class.Name()
	if t := class.Type(); t != nil {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Name() != "" {
			name = t.Name()
		}
	}
	c.Add(name, class)
	return name
}

// Add puts class under name.
func (c *Catalog) Add(name string, class *container.Class) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes[name] = class
}

func (c *Catalog) lookup(name string) (*container.Class, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	class, ok := c.classes[name]
	return class, ok
}

// Loader resolves models and libraries through a container. Instances are
// memoized with Container.Cache, so repeated loads return the same value.
type Loader struct {
	container *container.Container
	catalog   *Catalog
}

// New creates a loader building classes from catalog with c.
func New(c *container.Container, catalog *Catalog) *Loader {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Loader{container: c, catalog: catalog}
}

// Model returns the model registered as name + "Model".
//
//	users, err := l.Model("User") // *models.UserModel
func (l *Loader) Model(name string) (any, error) {
	return l.load("model:"+name, name+"Model")
}

// Library returns the library registered as name.
func (l *Loader) Library(name string) (any, error) {
	return l.load("library:"+name, name)
}

func (l *Loader) load(key, class string) (any, error) {
	c, ok := l.catalog.lookup(class)
	if !ok {
		return nil, &NotFoundError{Class: class}
	}
	return l.container.Cache(key, func() (any, error) {
		return l.container.Make(c, nil)
	})
}

// Load is Model or Library with the result asserted to T.
//
//	users, err := loader.Load[*models.UserModel](l.Model, "User")
func Load[T any](fn func(string) (any, error), name string) (T, error) {
	var zero T
	v, err := fn(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("loader: %s resolved to %T", name, v)
	}
	return typed, nil
}
