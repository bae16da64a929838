package container

import (
	"errors"
	"fmt"
	"reflect"
)

// build instantiates class by resolving every constructor parameter in
// declaration order. Returned errors carry no key; callers attach it.
func (c *Container) build(class *Class, args Args, path []string) (any, error) {
	if class == nil {
		return nil, &Error{Kind: ErrNotInstantiable, Owner: "nil"}
	}
	if class.abstract {
		return nil, &Error{Kind: ErrNotInstantiable, Owner: class.name}
	}
	if class.invalid != nil {
		return nil, &Error{Kind: ErrNotInstantiable, Owner: class.name, Err: class.invalid}
	}

	params, err := class.descriptors()
	if err != nil {
		return nil, &Error{Kind: ErrNotInstantiable, Owner: class.name, Err: err}
	}

	in := make([]reflect.Value, len(params))
	for i, p := range params {
		v, err := c.resolveParam(class, p, args, path)
		if err != nil {
			return nil, err
		}
		in[i] = v
	}

	instance, err := class.call(in)
	if err != nil {
		return nil, &Error{Kind: ErrConstruction, Owner: class.name, Err: err}
	}
	return instance, nil
}

// resolveParam applies the autowiring rules to one parameter:
//  1. an explicit argument is used verbatim;
//  2. a parameter typed as the container receives the container itself;
//  3. a single named type is looked up by name, then falls back to the default;
//  4. a union tries each non-primitive candidate in order, first success wins;
//  5. anything else needs a default.
func (c *Container) resolveParam(class *Class, p param, args Args, path []string) (reflect.Value, error) {
	if v, ok := args[p.Name]; ok {
		rv, err := assign(v, p.in)
		if err != nil {
			return reflect.Value{}, c.paramError(class, p, ErrUnresolvedParameter, err)
		}
		return rv, nil
	}

	if p.union() {
		return c.resolveUnion(class, p, path)
	}

	name := p.Types[0]
	if name == TypeName(containerType) {
		rv, err := assign(c, p.in)
		if err != nil {
			return reflect.Value{}, c.paramError(class, p, ErrUnresolvedParameter, err)
		}
		return rv, nil
	}

	if !primitive(name) {
		rv, err := c.lookup(name, p.in, path)
		if err == nil {
			return rv, nil
		}
		if p.HasDefault {
			return c.defaultValue(class, p)
		}
		return reflect.Value{}, c.paramError(class, p, ErrUnresolvedParameter, err)
	}

	if p.HasDefault {
		return c.defaultValue(class, p)
	}
	return reflect.Value{}, c.paramError(class, p, ErrUnresolvedParameter, nil)
}

func (c *Container) resolveUnion(class *Class, p param, path []string) (reflect.Value, error) {
	var last error
	for _, name := range p.Types {
		if primitive(name) {
			continue
		}
		if name == TypeName(containerType) {
			rv, err := assign(c, p.in)
			if err == nil {
				return rv, nil
			}
			last = err
			continue
		}
		rv, err := c.lookup(name, p.in, path)
		if err == nil {
			return rv, nil
		}
		last = err
	}

	if p.HasDefault {
		return c.defaultValue(class, p)
	}
	return reflect.Value{}, c.paramError(class, p, ErrUnresolvedUnion, last)
}

// lookup resolves a component by type name and checks it fits into in.
func (c *Container) lookup(name string, in reflect.Type, path []string) (reflect.Value, error) {
	instance, err := c.resolve(name, path)
	if err != nil {
		return reflect.Value{}, err
	}
	rv, err := assign(instance, in)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("component '%s': %w", name, err)
	}
	return rv, nil
}

func (c *Container) defaultValue(class *Class, p param) (reflect.Value, error) {
	rv, err := assign(p.DefaultValue, p.in)
	if err != nil {
		return reflect.Value{}, c.paramError(class, p, ErrUnresolvedParameter, fmt.Errorf("default value: %w", err))
	}
	return rv, nil
}

func (c *Container) paramError(class *Class, p param, kind, cause error) error {
	return &Error{Kind: kind, Owner: class.name, Param: p.Name, Err: cause}
}

var errNotAssignable = errors.New("not assignable")

// assign converts v into a value of type t. Numeric kinds convert between
// each other; everything else must be directly assignable.
func assign(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: nil to %s", errNotAssignable, t)
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if numeric(rv.Kind()) && numeric(t.Kind()) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s to %s", errNotAssignable, rv.Type(), t)
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
