package http

import (
	"encoding/json"
	"errors"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

const maxMemory = 32 << 20 // 32 MB

var (
	strictPolicy *bluemonday.Policy
	policyOnce   sync.Once
)

// Clean strips every HTML tag from s and escapes what remains, leaving
// plain text safe to echo back.
func Clean(s string) string {
	policyOnce.Do(func() { strictPolicy = bluemonday.StrictPolicy() })
	return strictPolicy.Sanitize(s)
}

var knownMethods = map[string]struct{}{
	http.MethodGet: {}, http.MethodHead: {}, http.MethodPost: {}, http.MethodPut: {},
	http.MethodPatch: {}, http.MethodDelete: {}, http.MethodOptions: {},
}

// Request wraps *http.Request. Query, form and cookie values are sanitized
// once, when the request is wrapped.
type Request struct {
	raw     *http.Request
	query   map[string]string
	post    map[string]string
	cookies map[string]string
	params  map[string]string
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	req := &Request{
		raw:     r,
		query:   cleanValues(r.URL.Query()),
		cookies: make(map[string]string),
		params:  make(map[string]string),
	}

	switch {
	case strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data"):
		if err := r.ParseMultipartForm(maxMemory); err == nil && r.MultipartForm != nil {
			req.post = cleanValues(r.MultipartForm.Value)
		}
	case r.Body != nil && !strings.Contains(r.Header.Get("Content-Type"), "application/json"):
		if err := r.ParseForm(); err == nil {
			req.post = cleanValues(r.PostForm)
		}
	}
	if req.post == nil {
		req.post = make(map[string]string)
	}

	for _, c := range r.Cookies() {
		req.cookies[Clean(c.Name)] = Clean(c.Value)
	}
	return req
}

func cleanValues(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, vals := range values {
		if len(vals) > 0 {
			out[Clean(k)] = Clean(vals[0])
		}
	}
	return out
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// ── Request line ─────────────────────────────────────────────────────────────

// URI returns the request path without the query string.
func (req *Request) URI() string {
	if req.raw.URL == nil || req.raw.URL.Path == "" {
		return "/"
	}
	return req.raw.URL.Path
}

// Method returns the HTTP method, or GET when the method is not a standard one.
func (req *Request) Method() string {
	m := strings.ToUpper(req.raw.Method)
	if _, ok := knownMethods[m]; ok {
		return m
	}
	return http.MethodGet
}

func (req *Request) IsGet() bool  { return req.Method() == http.MethodGet }
func (req *Request) IsPost() bool { return req.Method() == http.MethodPost }

// ── Input helpers ────────────────────────────────────────────────────────────

// Query returns a sanitized query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	return lookup(req.query, key, fallback)
}

// Post returns a sanitized form value from the request body.
func (req *Request) Post(key string, fallback ...string) string {
	return lookup(req.post, key, fallback)
}

// Cookie returns a sanitized cookie value.
func (req *Request) Cookie(key string, fallback ...string) string {
	return lookup(req.cookies, key, fallback)
}

// Input returns a body value, or the query value when the body has none.
func (req *Request) Input(key string, fallback ...string) string {
	if v, ok := req.post[key]; ok && v != "" {
		return v
	}
	return lookup(req.query, key, fallback)
}

// Has returns true if the key is present and non-empty in the body or query.
func (req *Request) Has(key string) bool {
	return req.Input(key) != ""
}

// QueryAll, PostAll and Cookies return copies of the sanitized maps.
func (req *Request) QueryAll() map[string]string { return maps.Clone(req.query) }
func (req *Request) PostAll() map[string]string  { return maps.Clone(req.post) }
func (req *Request) Cookies() map[string]string  { return maps.Clone(req.cookies) }

// All returns query and body values, body values winning.
func (req *Request) All() map[string]string {
	out := maps.Clone(req.query)
	maps.Copy(out, req.post)
	return out
}

func lookup(m map[string]string, key string, fallback []string) string {
	v := m[key]
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// ── Route parameters ─────────────────────────────────────────────────────────

// SetParams stores the placeholder values of the matched route.
func (req *Request) SetParams(params map[string]string) {
	req.params = maps.Clone(params)
	if req.params == nil {
		req.params = make(map[string]string)
	}
}

// Param returns a route placeholder value.
func (req *Request) Param(key string) string { return req.params[key] }

// ── Headers ──────────────────────────────────────────────────────────────────

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// BearerToken extracts the token from Authorization: Bearer <token>.
func (req *Request) BearerToken() string {
	auth := req.raw.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// IP returns the client IP (respects RealIP middleware).
func (req *Request) IP() string {
	return req.raw.RemoteAddr
}

// ContentType returns the Content-Type header value.
func (req *Request) ContentType() string {
	return req.raw.Header.Get("Content-Type")
}

// IsJSON returns true when the request expects a JSON response.
func (req *Request) IsJSON() bool {
	return strings.Contains(req.raw.Header.Get("Accept"), "application/json") ||
		strings.Contains(req.ContentType(), "application/json")
}

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes a JSON body into v, or the sanitized form values for any
// other content type. Form fields map through `json:"name"` tags.
func (req *Request) Bind(v any) error {
	if strings.Contains(req.ContentType(), "application/json") {
		return req.bindJSON(v)
	}
	b, err := json.Marshal(req.post)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (req *Request) bindJSON(v any) error {
	if req.raw.Body == nil {
		return errors.New("empty request body")
	}
	defer req.raw.Body.Close()
	body, err := io.ReadAll(req.raw.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	return json.Unmarshal(body, v)
}

// ── File uploads ─────────────────────────────────────────────────────────────

// File returns an uploaded file by field name.
func (req *Request) File(key string) (*multipart.FileHeader, error) {
	if err := req.parseMultipart(); err != nil {
		return nil, err
	}
	fhs := req.raw.MultipartForm.File[key]
	if len(fhs) == 0 {
		return nil, http.ErrMissingFile
	}
	return fhs[0], nil
}

// Files returns all uploaded files keyed by field name.
func (req *Request) Files() (map[string][]*multipart.FileHeader, error) {
	if err := req.parseMultipart(); err != nil {
		return nil, err
	}
	return maps.Clone(req.raw.MultipartForm.File), nil
}

func (req *Request) parseMultipart() error {
	if req.raw.MultipartForm == nil {
		if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
			return err
		}
	}
	if req.raw.MultipartForm == nil {
		return errors.New("no multipart form")
	}
	return nil
}
