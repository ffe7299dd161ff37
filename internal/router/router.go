package router

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"walletlog/internal/log"
)

// PageResolver maps a page to the handler that renders it.
type PageResolver func(Page) http.Handler

// Guard applies Decide to every request for meta. It never calls the API.
func Guard(meta Meta, probe SessionProbe, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := Decide(meta, probe(r))
		if !d.Proceed() {
			log.NewStructuredLogger(log.FromContext(r.Context())).LogGateRedirect(r.Context(), r, d.Redirect)
			http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// New registers every route on a fresh mux.Router. Pages serve GET and
// POST; the handler decides which methods it accepts.
func New(table []Route, resolve PageResolver, probe SessionProbe) (*mux.Router, error) {
	if probe == nil {
		return nil, fmt.Errorf("router: nil session probe")
	}
	r := mux.NewRouter()
	for _, rt := range table {
		h := resolve(rt.Page)
		if h == nil {
			return nil, fmt.Errorf("router: no handler for page %q (%s)", rt.Page, rt.Path)
		}
		route := r.Handle(rt.Path, Guard(rt.Meta, probe, h)).Methods(http.MethodGet, http.MethodHead, http.MethodPost)
		if rt.Name != "" {
			route.Name(rt.Name)
		}
	}
	return r, nil
}

// URL builds the path of a named route.
func URL(r *mux.Router, name string, pairs ...string) (string, error) {
	route := r.Get(name)
	if route == nil {
		return "", fmt.Errorf("router: unknown route %q", name)
	}
	u, err := route.URL(pairs...)
	if err != nil {
		return "", err
	}
	return u.Path, nil
}
