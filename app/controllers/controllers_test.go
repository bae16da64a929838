package controllers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-mvc/app/controllers"
	"github.com/km-arc/go-mvc/app/models"
	"github.com/km-arc/go-mvc/framework/app"
	"github.com/km-arc/go-mvc/framework/config"
)

func newHandler(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{App: config.AppConfig{Name: "Demo", Env: "testing", Debug: true}}
	cfg.HTTP = config.DefaultHTTP()
	require.NoError(t, cfg.LoadFile("../../config/app.yaml"))
	cfg.Configure(config.HTTPConfig{Views: "../../views", Static: "../../public"})

	a := app.New(cfg)
	controllers.Register(a.Controllers())
	users := models.NewUserModel()
	a.Catalog().Register(func() *models.UserModel { return users })
	return a.Handler()
}

func do(t *testing.T, h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func TestHomeController(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "<h1>Welcome to Demo</h1>")
	require.Contains(t, rr.Body.String(), "<title>Demo</title>")
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/hello/Ann", nil))
	require.Equal(t, "Hello, Ann!", rr.Body.String())

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/hello", nil))
	require.Equal(t, "Hello, stranger!", rr.Body.String())
}

func TestUserController(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Data []models.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/users/2", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"id":2,"name":"Bob","email":"bob@example.com"}`, rr.Body.String())

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/users/99", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "user 99 not found")

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/users/abc", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUserController_Create(t *testing.T) {
	t.Parallel()
	h := newHandler(t)

	r := httptest.NewRequest(http.MethodPost, "/users/create", strings.NewReader(`{"name":"Carol","email":"carol@example.com"}`))
	r.Header.Set("Content-Type", "application/json")
	rr := do(t, h, r)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.JSONEq(t, `{"data":{"id":3,"name":"Carol","email":"carol@example.com"}}`, rr.Body.String())

	// the model outlives the request
	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/users/3", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	form := url.Values{"name": {"<b>Dave</b>"}, "email": {"dave@example.com"}}
	r = httptest.NewRequest(http.MethodPost, "/users/create", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = do(t, h, r)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), `"name":"Dave"`)

	r = httptest.NewRequest(http.MethodPost, "/users/create", strings.NewReader(`{"email":"x@example.com"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	rr = do(t, h, r)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "name is required")
}

func TestStaticFiles(t *testing.T) {
	t.Parallel()

	rr := do(t, newHandler(t), httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "font-family")
}
