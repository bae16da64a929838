package routing

import (
	"encoding"
	"fmt"
	"maps"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	paramsMapType   = reflect.TypeFor[map[string]string]()
	textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()
	errorType       = reflect.TypeFor[error]()
	stringType      = reflect.TypeFor[string]()
)

// reserved names are controller plumbing, never actions.
var reserved = map[string]struct{}{
	"Container": {}, "Component": {}, "Match": {}, "SetMatch": {},
}

// Dispatch invokes the action named by ctrl.Match() and returns its result
// unchanged.
//
// The action is the exported method whose name equals the action, or the
// action with its first letter upper-cased ("list" runs List). It may take
// no argument, a map[string]string receiving the route parameters, or a
// struct (or pointer to struct) whose fields are bound by name:
//
//	type showArgs struct {
//	    ID     int    `param:"id"`
//	    Format string `param:"format" default:"html"`
//	}
//
//	func (c *UserController) Show(args showArgs) (string, error)
//
// A field takes its tag name (or its name with a lower-cased first word),
// falls back to the default tag and otherwise keeps its zero value.
// Parameters without a matching field are ignored. Results may be none, a
// value, an error, or a value and an error.
func (r *Router) Dispatch(ctrl Controller) (any, error) {
	if ctrl == nil || isNil(ctrl) || ctrl.base() == nil {
		return nil, &Error{Kind: ErrInvalidArgument, Msg: "no controller to dispatch"}
	}

	m := ctrl.Match()
	method, ok := actionMethod(ctrl, m.Action)
	if !ok {
		return nil, &Error{Kind: ErrRuntime,
			Msg: fmt.Sprintf("action method '%s' not found in controller '%T'", m.Action, ctrl)}
	}

	in, err := bindArgs(method.Type(), m)
	if err != nil {
		return nil, err
	}
	if in == nil && method.Type().NumIn() > 0 {
		return nil, &Error{Kind: ErrRuntime,
			Msg: fmt.Sprintf("action method '%s' in controller '%T' has an unsupported signature", m.Action, ctrl)}
	}
	return results(method.Call(in))
}

func actionMethod(ctrl Controller, action string) (reflect.Value, bool) {
	if action == "" {
		return reflect.Value{}, false
	}
	v := reflect.ValueOf(ctrl)
	for _, name := range []string{action, exported(action)} {
		if _, skip := reserved[name]; skip {
			continue
		}
		if method := v.MethodByName(name); method.IsValid() {
			return method, true
		}
	}
	return reflect.Value{}, false
}

func exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

// bindArgs builds the argument list for an action. It returns nil for an
// unsupported signature.
func bindArgs(ft reflect.Type, m Match) ([]reflect.Value, error) {
	if ft.NumIn() == 0 {
		return []reflect.Value{}, nil
	}
	if ft.NumIn() > 1 || ft.IsVariadic() {
		return nil, nil
	}

	at := ft.In(0)
	if at == paramsMapType {
		params := maps.Clone(m.Parameters)
		if params == nil {
			params = map[string]string{}
		}
		return []reflect.Value{reflect.ValueOf(params)}, nil
	}

	st := at
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, nil
	}

	ptr := reflect.New(st)
	if err := bindStruct(ptr.Elem(), m.Parameters); err != nil {
		return nil, err
	}
	if at.Kind() == reflect.Pointer {
		return []reflect.Value{ptr}, nil
	}
	return []reflect.Value{ptr.Elem()}, nil
}

func bindStruct(v reflect.Value, params map[string]string) error {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("param")
		if name == "-" {
			continue
		}
		if name == "" {
			name = unexported(f.Name)
		}

		raw, ok := params[name]
		if !ok {
			raw, ok = f.Tag.Lookup("default")
		}
		if !ok {
			continue
		}
		if err := setField(v.Field(i), raw); err != nil {
			return &Error{Kind: ErrInvalidArgument,
				Msg: fmt.Sprintf("invalid value '%s' for parameter '%s'", raw, name), Cause: err}
		}
	}
	return nil
}

// unexported lower-cases the leading capital run of a field name:
// "ID" becomes "id", "UserID" "userID" and "URLPath" "urlPath".
func unexported(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n > 1 && n < len(runes) {
		n--
	}
	for i := range n {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// setField converts raw into the kind of f.
func setField(f reflect.Value, raw string) error {
	if f.CanAddr() && f.Addr().Type().Implements(textUnmarshaler) {
		return f.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw))
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		f.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, f.Type().Bits())
		if err != nil {
			return err
		}
		f.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, f.Type().Bits())
		if err != nil {
			return err
		}
		f.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, f.Type().Bits())
		if err != nil {
			return err
		}
		f.SetFloat(n)
	case reflect.Slice:
		if f.Type().Elem() != stringType {
			return fmt.Errorf("unsupported field type %s", f.Type())
		}
		var parts []string
		if raw != "" {
			parts = strings.Split(raw, ",")
		}
		f.Set(reflect.ValueOf(parts).Convert(f.Type()))
	case reflect.Pointer:
		elem := reflect.New(f.Type().Elem())
		if err := setField(elem.Elem(), raw); err != nil {
			return err
		}
		f.Set(elem)
	default:
		return fmt.Errorf("unsupported field type %s", f.Type())
	}
	return nil
}

// results maps an action's return values to (value, error).
func results(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errorType {
			if out[0].IsNil() {
				return nil, nil
			}
			return nil, out[0].Interface().(error)
		}
		return out[0].Interface(), nil
	default:
		last := out[len(out)-1]
		var err error
		if last.Type() == errorType && !last.IsNil() {
			err = last.Interface().(error)
		}
		return out[0].Interface(), err
	}
}
