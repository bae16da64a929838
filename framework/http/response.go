package http

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// ErrNilOutput is returned by SetOutput for a nil payload.
var ErrNilOutput = errors.New("output cannot be null")

// ── Response ─────────────────────────────────────────────────────────────────

// Response buffers a status code, raw header lines and a body until Send
// writes them out.
type Response struct {
	status  int
	headers []string
	output  []byte
	level   int
}

// NewResponse creates an empty 200 response without compression.
func NewResponse() *Response {
	return &Response{status: http.StatusOK}
}

// SetStatusCode sets the status written by Send.
func (res *Response) SetStatusCode(code int) { res.status = code }

// StatusCode returns the status written by Send.
func (res *Response) StatusCode() int { return res.status }

// ── Headers ──────────────────────────────────────────────────────────────────

// AddHeader appends a raw "Name: value" header line.
//
//	res.AddHeader("Content-Type: text/plain; charset=utf-8")
func (res *Response) AddHeader(header string) {
	res.headers = append(res.headers, header)
}

// SetCookie appends a Set-Cookie header for c. Invalid cookies are dropped.
func (res *Response) SetCookie(c *http.Cookie) {
	if v := c.String(); v != "" {
		res.AddHeader("Set-Cookie: " + v)
	}
}

// AddHeaders appends several raw header lines in order.
func (res *Response) AddHeaders(headers []string) {
	res.headers = append(res.headers, headers...)
}

// Headers returns a copy of the header lines.
func (res *Response) Headers() []string { return slices.Clone(res.headers) }

func (res *Response) hasHeader(name string) bool {
	for _, h := range res.headers {
		k, _, _ := strings.Cut(h, ":")
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return true
		}
	}
	return false
}

// ── Output ───────────────────────────────────────────────────────────────────

// SetOutput replaces the body. Strings, byte slices, fmt.Stringer values
// and errors are written as text; anything else is encoded as JSON and the
// Content-Type set accordingly.
func (res *Response) SetOutput(v any) error {
	switch out := v.(type) {
	case nil:
		return ErrNilOutput
	case string:
		res.output = []byte(out)
	case []byte:
		res.output = slices.Clone(out)
	case fmt.Stringer:
		res.output = []byte(out.String())
	case error:
		res.output = []byte(out.Error())
	default:
		b, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		res.output = b
		if !res.hasHeader("Content-Type") {
			res.AddHeader("Content-Type: application/json")
		}
	}
	return nil
}

// AddOutput appends s to the body.
func (res *Response) AddOutput(s string) {
	res.output = append(res.output, s...)
}

// Output returns the uncompressed body.
func (res *Response) Output() string { return string(res.output) }

// JSON replaces the body with the JSON encoding of data.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	res.status = status
	res.output = b
	if !res.hasHeader("Content-Type") {
		res.AddHeader("Content-Type: application/json")
	}
	return nil
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) error {
	return res.JSON(http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func (res *Response) Created(v any) error {
	return res.JSON(http.StatusCreated, envelope{"data": v})
}

// NoContent sends 204 with an empty body.
func (res *Response) NoContent() {
	res.status = http.StatusNoContent
	res.output = nil
}

// NotFound sends 404 {"message": "Not found."}
func (res *Response) NotFound() error {
	return res.Error(http.StatusNotFound, "Not found.")
}

// ServerError sends 500 {"message": "Server Error."}
func (res *Response) ServerError() error {
	return res.Error(http.StatusInternalServerError, "Server Error.")
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) error {
	return res.JSON(status, envelope{"message": message})
}

// ── Compression ──────────────────────────────────────────────────────────────

// SetCompression sets the gzip level. Levels outside 1..9 disable compression.
func (res *Response) SetCompression(level int) { res.level = level }

// Compression returns the configured gzip level.
func (res *Response) Compression() int { return res.level }

// CompressOutput returns the body, gzipped when compression is enabled, not
// skipped and accepted by the client. On compression the matching
// Content-Encoding header is added.
func (res *Response) CompressOutput(acceptEncoding string, skip bool) ([]byte, error) {
	if skip || res.level < gzip.BestSpeed || res.level > gzip.BestCompression {
		return res.output, nil
	}
	encoding := detectEncoding(acceptEncoding)
	if encoding == "" {
		return res.output, nil
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, res.level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(res.output); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	res.AddHeader("Content-Encoding: " + encoding)
	return buf.Bytes(), nil
}

// detectEncoding picks the gzip token the client advertised.
func detectEncoding(acceptEncoding string) string {
	switch {
	case strings.Contains(acceptEncoding, "x-gzip"):
		return "x-gzip"
	case strings.Contains(acceptEncoding, "gzip"):
		return "gzip"
	}
	return ""
}

// ── Redirects ────────────────────────────────────────────────────────────────

// Redirect sets a Location header and a redirect status.
//
//	res.Redirect("/dashboard", http.StatusFound)
func (res *Response) Redirect(url string, code int) {
	if code < 300 || code > 399 {
		code = http.StatusFound
	}
	res.AddHeader("Location: " + url)
	res.status = code
}

// RedirectBack redirects to the Referer of r, or to fallback.
func (res *Response) RedirectBack(r *http.Request, fallback string) {
	ref := r.Referer()
	if ref == "" {
		ref = fallback
	}
	res.Redirect(ref, http.StatusFound)
}

// ── Send ─────────────────────────────────────────────────────────────────────

// Send writes headers, status and the (possibly compressed) body to w.
func (res *Response) Send(w http.ResponseWriter, acceptEncoding string) error {
	body, err := res.CompressOutput(acceptEncoding, false)
	if err != nil {
		return fmt.Errorf("compress output: %w", err)
	}

	for _, h := range res.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			continue
		}
		w.Header().Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	if len(res.output) > 0 && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(res.status)
	_, err = w.Write(body)
	return err
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any
