// Package http serves the walletlog pages.
//
// This file implements the builder used by every handler to render a page:
// status, title, form errors, and page data are collected fluently and
// the template is executed into a buffer before anything is written.
package http

import (
	"bytes"
	"html/template"
	"net/http"

	"walletlog/internal/log"
)

// PageResponseBuilder renders one page template inside the base layout.
type PageResponseBuilder struct {
	renderer   *renderer
	page       string
	statusCode int
	view       pageView
	headers    map[string]string
}

// pageView is the value every template receives.
type pageView struct {
	Title         string
	Authenticated bool
	Error         string
	Notice        string
	Errors        map[string]string
	Data          any
}

// NewPage starts a response for page with a 200 status.
func (s *Server) NewPage(r *http.Request, page, title string) *PageResponseBuilder {
	return &PageResponseBuilder{
		renderer:   s.renderer,
		page:       page,
		statusCode: http.StatusOK,
		view: pageView{
			Title:         title,
			Authenticated: s.sessions.Authenticated(r.Context()),
		},
		headers: make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *PageResponseBuilder) Status(code int) *PageResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the page-specific template data.
func (b *PageResponseBuilder) Data(data any) *PageResponseBuilder {
	b.view.Data = data
	return b
}

// Error sets the banner message shown above the page.
func (b *PageResponseBuilder) Error(msg string) *PageResponseBuilder {
	b.view.Error = msg
	return b
}

// Notice sets an informational banner.
func (b *PageResponseBuilder) Notice(msg string) *PageResponseBuilder {
	b.view.Notice = msg
	return b
}

// FieldErrors attaches per-field validation messages.
func (b *PageResponseBuilder) FieldErrors(errs map[string]string) *PageResponseBuilder {
	b.view.Errors = errs
	return b
}

// Header adds a custom header to the response.
func (b *PageResponseBuilder) Header(name, value string) *PageResponseBuilder {
	b.headers[name] = value
	return b
}

// Write renders the page. A template failure becomes a plain 500.
func (b *PageResponseBuilder) Write(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := b.renderer.render(&buf, b.page, b.view); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldComponent, log.ComponentTemplate,
			log.FieldOperation, log.OpRender,
			"template", b.page,
			log.FieldError, err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = buf.WriteTo(w)
}

// ErrorResponse writes a minimal HTML error without the page layout.
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`))
}

// MethodNotAllowedError writes a 405 with the Allow header.
func MethodNotAllowedError(w http.ResponseWriter, allowedMethods string) {
	w.Header().Set("Allow", allowedMethods)
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// RedirectSeeOther sends the browser to target with a GET.
func RedirectSeeOther(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
