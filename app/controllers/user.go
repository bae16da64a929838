package controllers

import (
	"log/slog"
	"strings"

	"github.com/km-arc/go-mvc/app/models"
	"github.com/km-arc/go-mvc/framework/container"
	gohttp "github.com/km-arc/go-mvc/framework/http"
	"github.com/km-arc/go-mvc/framework/loader"
	"github.com/km-arc/go-mvc/framework/routing"
)

// UserController exposes the user model as JSON.
type UserController struct {
	routing.BaseController
	loader *loader.Loader
	req    *gohttp.Request
	res    *gohttp.Response
	log    *slog.Logger
}

func NewUserController(
	c *container.Container,
	l *loader.Loader,
	req *gohttp.Request,
	res *gohttp.Response,
	log *slog.Logger,
) *UserController {
	return &UserController{BaseController: routing.NewBaseController(c), loader: l, req: req, res: res, log: log}
}

func (u *UserController) users() (*models.UserModel, error) {
	return loader.Load[*models.UserModel](u.loader.Model, "User")
}

// List sends every user.
func (u *UserController) List() error {
	users, err := u.users()
	if err != nil {
		return err
	}
	return u.res.Success(users.All())
}

type showArgs struct {
	ID int `param:"id"`
}

// Show returns one user, encoded as JSON by the response.
func (u *UserController) Show(args showArgs) (models.User, error) {
	users, err := u.users()
	if err != nil {
		return models.User{}, err
	}
	return users.Find(args.ID)
}

// Create adds a user from a JSON or form body.
func (u *UserController) Create() error {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := u.req.Bind(&body); err != nil {
		return &routing.Error{Kind: routing.ErrInvalidArgument, Msg: "invalid user payload", Cause: err}
	}
	if strings.TrimSpace(body.Name) == "" {
		return &routing.Error{Kind: routing.ErrInvalidArgument, Msg: "name is required"}
	}

	users, err := u.users()
	if err != nil {
		return err
	}
	created := users.Create(body.Name, body.Email)
	u.log.Info("user created", slog.Int("id", created.ID))
	return u.res.Created(created)
}
