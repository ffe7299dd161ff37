// Package router holds the static route table and the navigation guard
// that keeps anonymous visitors out of pages that need a session.
package router

import "net/http"

// LoginPath is where the guard sends visitors without a session.
const LoginPath = "/login"

// Page identifies the view a route renders.
type Page string

const (
	PageLanding     Page = "landing"
	PageRegister    Page = "register"
	PageLogin       Page = "login"
	PageDashboard   Page = "dashboard"
	PageHome        Page = "home"
	PageAddExpense  Page = "add_expense"
	PageEditExpense Page = "edit_expense"
	PageSummary     Page = "summary"
)

// Meta is the per-route metadata the guard reads.
type Meta struct {
	RequiresAuth bool
}

// Route describes one navigable page.
type Route struct {
	Path string
	Name string
	Page Page
	Meta Meta
}

var routes = []Route{
	{Path: "/", Page: PageLanding},
	{Path: "/register", Page: PageRegister},
	{Path: LoginPath, Page: PageLogin},
	{Path: "/dashboard", Page: PageDashboard, Meta: Meta{RequiresAuth: true}},
	{Path: "/home", Page: PageHome, Meta: Meta{RequiresAuth: true}},
	{Path: "/add", Name: "AddExpense", Page: PageAddExpense, Meta: Meta{RequiresAuth: true}},
	{Path: "/edit/{id}", Name: "EditExpense", Page: PageEditExpense, Meta: Meta{RequiresAuth: true}},
	{Path: "/summary", Page: PageSummary, Meta: Meta{RequiresAuth: true}},
}

// Routes returns a copy of the route table.
func Routes() []Route {
	return append([]Route(nil), routes...)
}

// Decision is the outcome of a navigation check. An empty Redirect means
// the navigation proceeds.
type Decision struct {
	Redirect string
}

// Proceed reports whether navigation continues to the requested page.
func (d Decision) Proceed() bool { return d.Redirect == "" }

// Decide redirects to the login page only when the route needs a session
// and there is none.
func Decide(meta Meta, hasSession bool) Decision {
	if meta.RequiresAuth && !hasSession {
		return Decision{Redirect: LoginPath}
	}
	return Decision{}
}

// SessionProbe reports whether the request carries a session token.
type SessionProbe func(r *http.Request) bool
