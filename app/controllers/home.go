package controllers

import (
	"github.com/km-arc/go-mvc/framework/config"
	"github.com/km-arc/go-mvc/framework/container"
	gohttp "github.com/km-arc/go-mvc/framework/http"
	"github.com/km-arc/go-mvc/framework/routing"
)

// HomeController serves the landing pages.
type HomeController struct {
	routing.BaseController
	cfg *config.Config
}

func NewHomeController(c *container.Container, cfg *config.Config) *HomeController {
	return &HomeController{BaseController: routing.NewBaseController(c), cfg: cfg}
}

// Index renders views/home inside the application layout.
func (h *HomeController) Index() (string, error) {
	view, err := container.Resolve[*gohttp.ViewEngine](h.Container(), "view")
	if err != nil {
		return "", err
	}
	return view.RenderWithLayout("layouts/app", "home", map[string]any{
		"Name": h.cfg.App.Name,
		"Env":  h.cfg.App.Env,
	})
}

type helloArgs struct {
	Name string `param:"name" default:"stranger"`
}

// Hello greets the name captured by the route.
func (h *HomeController) Hello(args helloArgs) string {
	return "Hello, " + args.Name + "!"
}
