package routing_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-mvc/framework/container"
	"github.com/km-arc/go-mvc/framework/routing"
)

// ── fixtures ─────────────────────────────────────────────────────────────────

type TestController struct {
	routing.BaseController
}

func NewTestController(c *container.Container) *TestController {
	return &TestController{BaseController: routing.NewBaseController(c)}
}

func (c *TestController) Index() string { return "Action executed" }

type partialArgs struct {
	Param1 string `param:"param1" default:"default1"`
	Param2 string `param:"param2" default:"default2"`
}

func (c *TestController) Partial(args partialArgs) string {
	return fmt.Sprintf("param1 = %s, param2 = %s", args.Param1, args.Param2)
}

type showArgs struct {
	ID      int
	Verbose bool     `param:"verbose" default:"false"`
	Tags    []string `param:"tags"`
	Ratio   *float64 `param:"ratio"`
	Ignored string   `param:"-"`
}

func (c *TestController) Show(args *showArgs) (showArgs, error) { return *args, nil }

func (c *TestController) Raw(params map[string]string) map[string]string { return params }

func (c *TestController) Fail() error { return errTestAction }

func (c *TestController) Pair() (string, error) { return "", errTestAction }

func (c *TestController) Noop() {}

func (c *TestController) TooMany(a, b string) string { return a + b }

var errTestAction = errors.New("action failed")

// Repo is a dependency autowired into UserController.
type Repo struct{ users []string }

type UserController struct {
	routing.BaseController
	repo *Repo
}

func NewUserController(c *container.Container, repo *Repo) *UserController {
	return &UserController{BaseController: routing.NewBaseController(c), repo: repo}
}

func (c *UserController) List() string { return strings.Join(c.repo.users, ",") }

type PlainController struct{}

// HollowController embeds the base by pointer and never sets it.
type HollowController struct {
	*routing.BaseController
}

func (c *HollowController) Index() string { return "hollow" }

type PointerController struct {
	*routing.BaseController
}

func NewPointerController(c *container.Container) *PointerController {
	base := routing.NewBaseController(c)
	return &PointerController{BaseController: &base}
}

func (c *PointerController) Index() string { return "pointer" }

func NewPlainController() *PlainController { return &PlainController{} }

func dispatchable(action string, params map[string]string) *TestController {
	ctrl := NewTestController(container.New())
	ctrl.SetMatch(routing.Match{Controller: "Test", Action: action, Parameters: params})
	return ctrl
}

// ── BaseController ───────────────────────────────────────────────────────────

func TestBaseController(t *testing.T) {
	t.Parallel()

	c := container.New()
	c.Set("logger", "a logger")
	ctrl := NewTestController(c)

	require.Same(t, c, ctrl.Container())
	require.NotNil(t, ctrl.Match().Parameters)
	require.Empty(t, ctrl.Match().Parameters)

	v, err := ctrl.Component("logger")
	require.NoError(t, err)
	require.Equal(t, "a logger", v)

	_, err = ctrl.Component("nonexistent")
	require.ErrorIs(t, err, container.ErrNotFound)
	require.EqualError(t, err, "component 'nonexistent' not found")

	m := routing.Match{Controller: "Test", Action: "index", Parameters: map[string]string{"id": "1"}}
	ctrl.SetMatch(m)
	require.Equal(t, m, ctrl.Match())
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestControllerRegistry(t *testing.T) {
	t.Parallel()

	reg := routing.NewControllerRegistry()
	require.Equal(t, "TestController", reg.Register(NewTestController))

	for _, id := range []string{"Test", "TestController"} {
		class, ok := reg.Lookup(id)
		require.True(t, ok, id)
		require.Equal(t, "*github.com/km-arc/go-mvc/framework/routing_test.TestController", class.Name())
	}

	_, ok := reg.Lookup("Missing")
	require.False(t, ok)
	require.Len(t, reg.Classes(), 1)
}

// ── ResolveController ────────────────────────────────────────────────────────

func TestResolveController(t *testing.T) {
	t.Parallel()

	c := container.New()
	c.Set(container.NameOf[*Repo](), &Repo{users: []string{"ann", "bob"}})

	reg := routing.NewControllerRegistry()
	reg.Register(NewTestController)
	reg.Register(NewUserController)
	reg.Register(NewPlainController)
	reg.Register(func() *HollowController { return &HollowController{} })
	reg.Register(NewPointerController)
	reg.Add("Empty", container.Abstract("EmptyController"))
	reg.Add("Broken", container.NewClass(func() (*TestController, error) { return nil, errors.New("boom") }))

	r := routing.New(c, reg)

	t.Run("base case", func(t *testing.T) {
		t.Parallel()

		m := routing.Match{Controller: "Test", Action: "index"}
		ctrl, err := r.ResolveController(m)
		require.NoError(t, err)
		require.IsType(t, &TestController{}, ctrl)
		require.Same(t, c, ctrl.Container())
		require.Equal(t, "index", ctrl.Match().Action)
		require.NotNil(t, ctrl.Match().Parameters)

		again, err := r.ResolveController(m)
		require.NoError(t, err)
		require.NotSame(t, ctrl, again)
	})

	t.Run("autowired dependency", func(t *testing.T) {
		t.Parallel()

		ctrl, err := r.ResolveController(routing.Match{Controller: "User", Action: "list"})
		require.NoError(t, err)

		out, err := r.Dispatch(ctrl)
		require.NoError(t, err)
		require.Equal(t, "ann,bob", out)
	})

	cases := map[string]struct {
		match routing.Match
		kind  error
		msg   string
	}{
		"missing controller": {routing.Match{Action: "index"}, routing.ErrInvalidArgument, "no controller defined in route"},
		"missing action":     {routing.Match{Controller: "Test"}, routing.ErrInvalidArgument, "no action defined in route"},
		"unknown controller": {routing.Match{Controller: "NonExistent", Action: "index"}, routing.ErrRuntime, "controller 'NonExistent' not found"},
		"not a controller":   {routing.Match{Controller: "Plain", Action: "index"}, routing.ErrRuntime, "controller does not extend the base Controller"},
		"abstract class":     {routing.Match{Controller: "Empty", Action: "index"}, routing.ErrRuntime, "controller class not found: Empty"},
		"nil embedded base":  {routing.Match{Controller: "Hollow", Action: "index"}, routing.ErrRuntime, "controller does not extend the base Controller"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := r.ResolveController(tc.match)
			require.ErrorIs(t, err, tc.kind)
			require.EqualError(t, err, tc.msg)
		})
	}

	t.Run("pointer embedded base", func(t *testing.T) {
		t.Parallel()

		ctrl, err := r.ResolveController(routing.Match{Controller: "Pointer", Action: "index"})
		require.NoError(t, err)
		require.Same(t, c, ctrl.Container())

		out, err := r.Dispatch(ctrl)
		require.NoError(t, err)
		require.Equal(t, "pointer", out)
	})

	t.Run("constructor failure", func(t *testing.T) {
		t.Parallel()

		_, err := r.ResolveController(routing.Match{Controller: "Broken", Action: "index"})
		require.ErrorIs(t, err, routing.ErrRuntime)
		require.ErrorIs(t, err, container.ErrContainer)
		require.ErrorContains(t, err, "boom")
	})

	t.Run("no resolver", func(t *testing.T) {
		t.Parallel()

		_, err := routing.New(c, nil).ResolveController(routing.Match{Controller: "Test", Action: "index"})
		require.ErrorIs(t, err, routing.ErrRuntime)
	})
}

// ── Dispatch ─────────────────────────────────────────────────────────────────

func TestDispatch(t *testing.T) {
	t.Parallel()

	r := newRouter()

	t.Run("no arguments", func(t *testing.T) {
		t.Parallel()
		out, err := r.Dispatch(dispatchable("index", nil))
		require.NoError(t, err)
		require.Equal(t, "Action executed", out)
	})

	t.Run("defaults fill missing parameters", func(t *testing.T) {
		t.Parallel()
		out, err := r.Dispatch(dispatchable("partial", map[string]string{"param1": "value1", "extra": "x"}))
		require.NoError(t, err)
		require.Equal(t, "param1 = value1, param2 = default2", out)
	})

	t.Run("typed binding", func(t *testing.T) {
		t.Parallel()
		out, err := r.Dispatch(dispatchable("show", map[string]string{
			"id": "7", "verbose": "true", "tags": "a,b", "ratio": "0.5", "Ignored": "x",
		}))
		require.NoError(t, err)

		args := out.(showArgs)
		require.Equal(t, 7, args.ID)
		require.True(t, args.Verbose)
		require.Equal(t, []string{"a", "b"}, args.Tags)
		require.NotNil(t, args.Ratio)
		require.InDelta(t, 0.5, *args.Ratio, 1e-9)
		require.Empty(t, args.Ignored)
	})

	t.Run("conversion failure", func(t *testing.T) {
		t.Parallel()
		_, err := r.Dispatch(dispatchable("show", map[string]string{"id": "seven"}))
		require.ErrorIs(t, err, routing.ErrInvalidArgument)
		require.ErrorContains(t, err, "invalid value 'seven' for parameter 'id'")
	})

	t.Run("parameter map", func(t *testing.T) {
		t.Parallel()
		params := map[string]string{"id": "1"}
		out, err := r.Dispatch(dispatchable("raw", params))
		require.NoError(t, err)
		require.Equal(t, params, out)
	})

	t.Run("action errors are returned verbatim", func(t *testing.T) {
		t.Parallel()
		for _, action := range []string{"fail", "pair"} {
			_, err := r.Dispatch(dispatchable(action, nil))
			require.Same(t, errTestAction, err)
		}
	})

	t.Run("no results", func(t *testing.T) {
		t.Parallel()
		out, err := r.Dispatch(dispatchable("Noop", nil))
		require.NoError(t, err)
		require.Nil(t, out)
	})

	t.Run("missing action", func(t *testing.T) {
		t.Parallel()
		_, err := r.Dispatch(dispatchable("missing", nil))
		require.ErrorIs(t, err, routing.ErrRuntime)
		require.EqualError(t, err, "action method 'missing' not found in controller '*routing_test.TestController'")
	})

	t.Run("plumbing is not an action", func(t *testing.T) {
		t.Parallel()
		for _, action := range []string{"container", "setMatch", "Component"} {
			_, err := r.Dispatch(dispatchable(action, nil))
			require.ErrorIs(t, err, routing.ErrRuntime, action)
		}
	})

	t.Run("unsupported signature", func(t *testing.T) {
		t.Parallel()
		_, err := r.Dispatch(dispatchable("tooMany", nil))
		require.ErrorIs(t, err, routing.ErrRuntime)
	})

	t.Run("nil controller", func(t *testing.T) {
		t.Parallel()
		_, err := r.Dispatch(nil)
		require.ErrorIs(t, err, routing.ErrInvalidArgument)

		_, err = r.Dispatch(&HollowController{})
		require.ErrorIs(t, err, routing.ErrInvalidArgument)
	})
}
