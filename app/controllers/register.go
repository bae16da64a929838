// Package controllers holds the example application's controllers.
package controllers

import "github.com/km-arc/go-mvc/framework/routing"

// Register adds every controller of the application to reg.
func Register(reg *routing.ControllerRegistry) {
	reg.Register(NewHomeController)
	reg.Register(NewUserController)
}
