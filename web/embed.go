// Package web bundles the page templates and stylesheet into the binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Templates returns the page templates rooted at their directory, so a
// page is opened as "home.html".
func Templates() fs.FS { return mustSub(templatesFS, "templates") }

// Static returns the assets served under /static/.
func Static() fs.FS { return mustSub(staticFS, "static") }

// mustSub only fails for an invalid path, which the embed patterns rule out.
func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
