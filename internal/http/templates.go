package http

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"walletlog/internal/core"
	"walletlog/internal/palette"
)

// Page template names, as files under web/templates.
const (
	tmplLanding     = "landing.html"
	tmplLogin       = "login.html"
	tmplRegister    = "register.html"
	tmplDashboard   = "dashboard.html"
	tmplHome        = "home.html"
	tmplExpenseForm = "expense_form.html"
	tmplSummary     = "summary.html"
	tmplError       = "error.html"
)

var pageTemplates = []string{
	tmplLanding, tmplLogin, tmplRegister, tmplDashboard,
	tmplHome, tmplExpenseForm, tmplSummary, tmplError,
}

// renderer holds one template set per page. Each set is the shared layout
// and partials plus the page's own "content" block.
type renderer struct {
	pages map[string]*template.Template
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"color":      palette.Color,
		"categories": palette.Categories,
		"money":      func(m core.Money) string { return formatMoney(m.Cents) },
		// css marks palette colors as safe style values.
		"css": func(s string) template.CSS { return template.CSS(s) },
	}
}

func newRenderer(fsys fs.FS) (*renderer, error) {
	layout, err := template.New("base").Funcs(templateFuncs()).ParseFS(fsys, "base.html", "partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pageTemplates))}
	for _, name := range pageTemplates {
		t, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(fsys, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *renderer) render(w io.Writer, page string, view pageView) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page template %q", page)
	}
	return t.ExecuteTemplate(w, "base", view)
}
