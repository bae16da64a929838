package http_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	gohttp "github.com/km-arc/go-mvc/framework/http"
)

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestViewEngine_Render(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemplate(t, dir, "test.html", "Hello, {{ .name }}!")
	writeTemplate(t, dir, "empty.html", "No data needed")
	writeTemplate(t, dir, "admin/dashboard.tmpl", "Dashboard: {{ .title }}")
	writeTemplate(t, dir, "both.html", "html")
	writeTemplate(t, dir, "both.tmpl", "tmpl")

	ve := gohttp.NewViewEngine(dir)
	require.Equal(t, dir, ve.Dir())

	out, err := ve.Render("test", map[string]any{"name": "World"})
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", out)

	out, err = ve.Render("empty", nil)
	require.NoError(t, err)
	require.Equal(t, "No data needed", out)

	out, err = ve.Render("admin/dashboard", map[string]any{"title": "Admin"})
	require.NoError(t, err)
	require.Equal(t, "Dashboard: Admin", out)

	// extensions are tried in order
	out, err = ve.Render("both", nil)
	require.NoError(t, err)
	require.Equal(t, "html", out)

	out, err = gohttp.NewViewEngine(dir, ".tmpl", ".html").Render("both", nil)
	require.NoError(t, err)
	require.Equal(t, "tmpl", out)
}

func TestViewEngine_Escapes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemplate(t, dir, "echo.html", "{{ .v }}")

	out, err := gohttp.NewViewEngine(dir).Render("echo", map[string]any{"v": "<b>x</b>"})
	require.NoError(t, err)
	require.Equal(t, "&lt;b&gt;x&lt;/b&gt;", out)
}

func TestViewEngine_NotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemplate(t, dir, "dir.html/keep.html", "x")
	ve := gohttp.NewViewEngine(dir)

	for _, name := range []string{"nonexistent", "../secret", "/etc/passwd", "dir"} {
		_, err := ve.Render(name, nil)
		require.ErrorIs(t, err, gohttp.ErrTemplateNotFound, name)
		require.ErrorContains(t, err, "template file not found: "+name)
	}
}

func TestViewEngine_RenderErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemplate(t, dir, "broken.html", "{{ .x ")
	writeTemplate(t, dir, "call.html", "{{ .Missing.Field }}")

	ve := gohttp.NewViewEngine(dir)
	_, err := ve.Render("broken", nil)
	require.ErrorContains(t, err, "parse template broken")

	_, err = ve.Render("call", struct{}{})
	require.ErrorContains(t, err, "render template call")
}

func TestViewEngine_Layout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemplate(t, dir, "layouts/app.html", `<main>{{ template "content" . }}</main>`)
	writeTemplate(t, dir, "home.html", `{{ define "content" }}Hi {{ .name }}{{ end }}`)

	ve := gohttp.NewViewEngine(dir)
	out, err := ve.RenderWithLayout("layouts/app", "home", map[string]any{"name": "Ann"})
	require.NoError(t, err)
	require.Equal(t, "<main>Hi Ann</main>", out)

	rr := httptest.NewRecorder()
	ve.ViewWithLayout(rr, "layouts/app", "home", map[string]any{"name": "Ann"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "<main>Hi Ann</main>", rr.Body.String())

	rr = httptest.NewRecorder()
	ve.View(rr, "missing", nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
