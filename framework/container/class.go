package container

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

var (
	errorType     = reflect.TypeFor[error]()
	containerType = reflect.TypeFor[*Container]()
)

// Param describes one constructor parameter: its name, the set of type names
// it accepts (more than one makes it a union) and an optional default value.
//
//	container.Arg("store", container.NameOf[*RedisStore](), container.NameOf[*MemoryStore]())
//	container.Arg("timeout").Default(30)
type Param struct {
	Name         string
	Types        []string
	DefaultValue any
	HasDefault   bool
}

// Arg declares a named parameter. With no types the parameter inherits the
// type name of the matching constructor input.
func Arg(name string, types ...string) Param {
	return Param{Name: name, Types: types}
}

// Default returns a copy of p that falls back to v when nothing else resolves.
func (p Param) Default(v any) Param {
	p.DefaultValue = v
	p.HasDefault = true
	return p
}

func (p Param) union() bool { return len(p.Types) > 1 }

// param is a Param bound to the Go type of the constructor input it feeds.
type param struct {
	Param
	in reflect.Type
}

// Class describes a constructible type: a constructor function and the
// parameter list the autowiring resolver walks. Registering a *Class under a
// key makes the key type-backed: Get builds it on first use and caches it.
type Class struct {
	name     string
	ctor     reflect.Value
	declared []Param
	abstract bool
	invalid  error

	once   sync.Once
	params []param
	err    error
}

// NewClass describes the type built by ctor. ctor must be a function
// returning T or (T, error); the class name is TypeName(T). Without params
// the parameter list is derived from the constructor's input types and the
// parameters are named arg0, arg1, ...
//
//	c.Set(container.NameOf[*Mailer](), container.NewClass(NewMailer))
//	c.Set("report", container.NewClass(NewReport,
//	    container.Arg("title").Default("untitled"),
//	    container.Arg("source", container.NameOf[*DB](), container.NameOf[*CSV]()),
//	))
func NewClass(ctor any, params ...Param) *Class {
	v := reflect.ValueOf(ctor)
	c := &Class{ctor: v, declared: params}

	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		c.name = fmt.Sprintf("%T", ctor)
		c.invalid = fmt.Errorf("constructor of '%s' is not a function", c.name)
		return c
	}

	t := v.Type()
	switch {
	case t.NumOut() == 0:
		c.name = t.String()
		c.invalid = fmt.Errorf("constructor '%s' returns nothing", c.name)
	case t.NumOut() > 2 || (t.NumOut() == 2 && t.Out(1) != errorType):
		c.name = TypeName(t.Out(0))
		c.invalid = fmt.Errorf("constructor of '%s' must return T or (T, error)", c.name)
	case t.IsVariadic():
		c.name = TypeName(t.Out(0))
		c.invalid = fmt.Errorf("constructor of '%s' is variadic", c.name)
	default:
		c.name = TypeName(t.Out(0))
	}
	return c
}

// Abstract describes a type that can be named in constructor signatures but
// never instantiated, e.g. an interface with no bound implementation.
func Abstract(name string) *Class {
	return &Class{name: name, abstract: true}
}

// AbstractOf is Abstract(NameOf[T]()).
func AbstractOf[T any]() *Class {
	return Abstract(NameOf[T]())
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Type returns the Go type the constructor produces, or nil for abstract and
// invalid classes.
func (c *Class) Type() reflect.Type {
	if c.abstract || c.invalid != nil {
		return nil
	}
	return c.ctor.Type().Out(0)
}

// Instantiable reports whether the class can be built at all.
func (c *Class) Instantiable() bool {
	return !c.abstract && c.invalid == nil
}

// Params returns the resolved parameter descriptors.
func (c *Class) Params() ([]Param, error) {
	ps, err := c.descriptors()
	if err != nil {
		return nil, err
	}
	out := make([]Param, len(ps))
	for i, p := range ps {
		out[i] = p.Param
	}
	return out, nil
}

// descriptors computes the parameter list once per class.
func (c *Class) descriptors() ([]param, error) {
	c.once.Do(func() {
		t := c.ctor.Type()
		n := t.NumIn()
		if len(c.declared) > 0 && len(c.declared) != n {
			c.err = fmt.Errorf("constructor of '%s' declares %d parameters, descriptor lists %d", c.name, n, len(c.declared))
			return
		}

		c.params = make([]param, n)
		for i := range n {
			in := t.In(i)
			p := Param{Name: fmt.Sprintf("arg%d", i)}
			if len(c.declared) > 0 {
				p = c.declared[i]
				if p.Name == "" {
					p.Name = fmt.Sprintf("arg%d", i)
				}
			}
			if len(p.Types) == 0 {
				p.Types = []string{TypeName(in)}
			}
			c.params[i] = param{Param: p, in: in}
		}
	})
	return c.params, c.err
}

// call invokes the constructor, turning a returned error or a panic into err.
func (c *Class) call(in []reflect.Value) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor of '%s' panicked: %v", c.name, r)
		}
	}()

	out := c.ctor.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// TypeName returns the name under which values of t are looked up when a
// constructor declares a parameter of that type. Named types are qualified
// by their import path, e.g. "*example.com/app/mail.Mailer", so two packages
// with the same name never share a key.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	if name := t.Name(); name != "" {
		if pkg := t.PkgPath(); pkg != "" {
			return pkg + "." + name
		}
		return name
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + TypeName(t.Elem())
	case reflect.Slice:
		return "[]" + TypeName(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + TypeName(t.Elem())
	case reflect.Map:
		return "map[" + TypeName(t.Key()) + "]" + TypeName(t.Elem())
	}
	return t.String()
}

// NameOf returns TypeName for T.
//
//	c.Set(container.NameOf[*Mailer](), container.NewClass(NewMailer))
func NameOf[T any]() string {
	return TypeName(reflect.TypeFor[T]())
}

var scalarNames = map[string]struct{}{
	"bool": {}, "string": {}, "byte": {}, "rune": {},
	"int": {}, "int8": {}, "int16": {}, "int32": {}, "int64": {},
	"uint": {}, "uint8": {}, "uint16": {}, "uint32": {}, "uint64": {}, "uintptr": {},
	"float32": {}, "float64": {}, "complex64": {}, "complex128": {},
	"any": {}, "interface {}": {}, "error": {},
}

// primitive reports whether a declared type name can never be autowired:
// builtin scalars and unnamed composite types.
func primitive(name string) bool {
	if _, ok := scalarNames[name]; ok {
		return true
	}
	for _, prefix := range []string{"[]", "map[", "chan ", "<-chan ", "func(", "struct {", "["} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
