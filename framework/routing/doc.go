// Package routing maps URI patterns to controller actions.
//
// A Router holds a table of patterns, each pointing at a Target (controller
// identifier and action). Match resolves a concrete URI to a Match with the
// placeholder values it captured, ResolveController builds the controller
// through the container and Dispatch calls the action with the captured
// parameters bound to its arguments.
//
//	r := routing.New(c, registry)
//	_ = r.Push(routes)
//	m, err := r.Match("/user/42")
//	ctrl, err := r.ResolveController(m)
//	out, err := r.Dispatch(ctrl)
package routing
