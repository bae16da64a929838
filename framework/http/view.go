package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrTemplateNotFound is returned by Render when no file matches a name.
var ErrTemplateNotFound = errors.New("template file not found")

// DefaultExtensions are tried in order when NewViewEngine gets none.
var DefaultExtensions = []string{".html", ".tmpl"}

// ── View / Templates ─────────────────────────────────────────────────────────

// ViewEngine renders html/template files from a directory.
type ViewEngine struct {
	dir  string
	exts []string
}

// NewViewEngine creates a ViewEngine.
// dir is the templates directory (e.g. "./views"); exts are tried in order.
func NewViewEngine(dir string, exts ...string) *ViewEngine {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	return &ViewEngine{dir: dir, exts: exts}
}

// Dir returns the templates directory.
func (ve *ViewEngine) Dir() string { return ve.dir }

// Render executes the template called name with data and returns the output.
// Names may contain subdirectories ("admin/dashboard").
//
//	html, err := engine.Render("home", map[string]any{"title": "Home"})
func (ve *ViewEngine) Render(name string, data any) (string, error) {
	path, err := ve.find(name)
	if err != nil {
		return "", err
	}
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderWithLayout executes layout with the blocks of name defined.
func (ve *ViewEngine) RenderWithLayout(layout, name string, data any) (string, error) {
	layoutPath, err := ve.find(layout)
	if err != nil {
		return "", err
	}
	viewPath, err := ve.find(name)
	if err != nil {
		return "", err
	}
	tmpl, err := template.ParseFiles(layoutPath, viewPath)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, filepath.Base(layoutPath), data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// View renders a template straight to w.
//
//	engine.View(w, "home", map[string]any{"title": "Home"})
func (ve *ViewEngine) View(w http.ResponseWriter, name string, data any) {
	out, err := ve.Render(name, data)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// ViewWithLayout renders a template with a base layout straight to w.
func (ve *ViewEngine) ViewWithLayout(w http.ResponseWriter, layout, name string, data any) {
	out, err := ve.RenderWithLayout(layout, name, data)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// find returns the first existing file for name, refusing paths that leave dir.
func (ve *ViewEngine) find(name string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	for _, ext := range ve.exts {
		path := filepath.Join(ve.dir, rel+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}
