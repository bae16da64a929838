package container

import (
	"fmt"
	"reflect"
)

// Cache memoizes fn(args...) under key. The first call for a key invokes fn
// and stores its result; later calls return that result without invoking fn,
// whatever args they pass. The memo is independent of component entries.
//
// fn may be any function. Its last result, when of type error and non-nil,
// is returned and nothing is stored. Concurrent first calls for one key
// share a single invocation.
//
//	user, err := c.Cache("user:42", repo.Find, 42)
func (c *Container) Cache(key string, fn any, args ...any) (any, error) {
	if v, ok := c.memoized(key); ok {
		return v, nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		if v, ok := c.memoized(key); ok {
			return v, nil
		}
		out, err := call(fn, args)
		if err != nil {
			return nil, &Error{Key: key, Kind: ErrConstruction, Err: err}
		}
		c.mu.Lock()
		c.memo[key] = out
		c.mu.Unlock()
		return out, nil
	})
	return v, err
}

func (c *Container) memoized(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.memo[key]
	return v, ok
}

// call invokes fn with args through reflection.
func call(fn any, args []any) (result any, err error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, fmt.Errorf("%T is not callable", fn)
	}
	ft := fv.Type()

	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("callable expects at least %d arguments, got %d", fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("callable expects %d arguments, got %d", fixed, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		t := ft.In(min(i, ft.NumIn()-1))
		if ft.IsVariadic() && i >= fixed {
			t = t.Elem()
		}
		v, err := assign(a, t)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = v
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callable panicked: %v", r)
		}
	}()

	out := fv.Call(in)
	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		if !out[n-1].IsNil() {
			return nil, out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}
