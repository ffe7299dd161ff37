package http

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"walletlog/internal/api"
	"walletlog/internal/core"
	"walletlog/internal/log"
	"walletlog/internal/router"
)

type (
	homeView struct {
		Filter   filterView
		Expenses []core.Expense
		Total    core.Money
	}

	filterView struct {
		Date     string
		Category string
	}

	expenseFormView struct {
		Action string
		Form   ExpenseForm
	}
)

// sortByDateDesc orders items newest first, keeping API order for ties.
func sortByDateDesc(items []core.Expense) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date.Time)
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	page := s.NewPage(r, tmplHome, "Expenses")
	filter, err := ParseExpenseFilter(r.URL.Query())
	if err != nil {
		page.Error("Ignoring the date filter: use the YYYY-MM-DD format.")
	}
	view := homeView{Filter: filterView{Date: filter.Date.String(), Category: filter.Category}}

	ctx, cancel := s.apiContext(r)
	defer cancel()
	items, err := s.api.ListExpenses(ctx, filter)
	if err != nil {
		status, msg, redirected := s.apiFailure(w, r, log.OpList, err)
		if redirected {
			return
		}
		page.Status(status).Error(msg).Data(view).Write(w, r)
		return
	}

	sortByDateDesc(items)
	view.Expenses = items
	view.Total = totalOf(items)
	page.Data(view).Write(w, r)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead, http.MethodPost) {
		return
	}
	action, _ := router.URL(s.router, "AddExpense")

	if r.Method != http.MethodPost {
		form := ExpenseForm{Date: core.Date{Time: s.now()}.Format(core.DateLayout)}
		s.NewPage(r, tmplExpenseForm, "Add expense").
			Data(expenseFormView{Action: action, Form: form}).
			Write(w, r)
		return
	}
	if !ParseFormOrFail(w, r) {
		return
	}

	form := ParseExpenseForm(r.PostForm)
	render := func(status int, msg string, errs FormErrors) {
		s.NewPage(r, tmplExpenseForm, "Add expense").Status(status).Error(msg).FieldErrors(errs).
			Data(expenseFormView{Action: action, Form: form}).
			Write(w, r)
	}

	exp, errs := form.Expense()
	if errs.Any() {
		render(http.StatusUnprocessableEntity, "", errs)
		return
	}

	ctx, cancel := s.apiContext(r)
	defer cancel()
	created, err := s.api.AddExpense(ctx, exp)
	if err != nil {
		status, msg, redirected := s.apiFailure(w, r, log.OpCreate, err)
		if !redirected {
			render(status, msg, nil)
		}
		return
	}

	s.appMetrics.mutations.Add(1)
	log.NewStructuredLogger(log.FromContext(r.Context())).LogExpenseMutation(r.Context(),
		log.OpCreate, created.ID, created.Description, created.Amount.Cents, created.Category)
	RedirectSeeOther(w, r, "/home")
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead, http.MethodPost) {
		return
	}
	id := mux.Vars(r)["id"]
	action, _ := router.URL(s.router, "EditExpense", "id", id)
	ctx, cancel := s.apiContext(r)
	defer cancel()

	if r.Method != http.MethodPost {
		exp, err := s.api.GetExpense(ctx, id)
		if err != nil {
			status, msg, redirected := s.apiFailure(w, r, log.OpRead, err)
			if redirected {
				return
			}
			status, msg = expenseNotFound(status, msg)
			s.NewPage(r, tmplError, "Edit expense").Status(status).Error(msg).Write(w, r)
			return
		}
		s.NewPage(r, tmplExpenseForm, "Edit expense").
			Data(expenseFormView{Action: action, Form: FormFromExpense(exp)}).
			Write(w, r)
		return
	}
	if !ParseFormOrFail(w, r) {
		return
	}

	form := ParseExpenseForm(r.PostForm)
	render := func(status int, msg string, errs FormErrors) {
		s.NewPage(r, tmplExpenseForm, "Edit expense").Status(status).Error(msg).FieldErrors(errs).
			Data(expenseFormView{Action: action, Form: form}).
			Write(w, r)
	}

	exp, errs := form.Expense()
	if errs.Any() {
		render(http.StatusUnprocessableEntity, "", errs)
		return
	}
	exp.ID = id

	updated, err := s.api.UpdateExpense(ctx, api.PatchFrom(exp))
	if err != nil {
		status, msg, redirected := s.apiFailure(w, r, log.OpUpdate, err)
		if redirected {
			return
		}
		status, msg = expenseNotFound(status, msg)
		s.NewPage(r, tmplError, "Edit expense").Status(status).Error(msg).Write(w, r)
		return
	}

	s.appMetrics.mutations.Add(1)
	log.NewStructuredLogger(log.FromContext(r.Context())).LogExpenseMutation(r.Context(),
		log.OpUpdate, updated.ID, updated.Description, updated.Amount.Cents, updated.Category)
	RedirectSeeOther(w, r, "/home")
}

// expenseNotFound reports an API rejection of an expense id as a missing
// expense. Transport failures pass through unchanged.
func expenseNotFound(status int, msg string) (int, string) {
	if status == http.StatusUnprocessableEntity {
		return http.StatusNotFound, "Expense not found."
	}
	return status, msg
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, cancel := s.apiContext(r)
	defer cancel()

	deleted, err := s.api.DeleteExpense(ctx, id)
	if err != nil {
		status, msg, redirected := s.apiFailure(w, r, log.OpDelete, err)
		if redirected {
			return
		}
		status, msg = expenseNotFound(status, msg)
		s.NewPage(r, tmplError, "Delete expense").Status(status).Error(msg).Write(w, r)
		return
	}

	if !deleted {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Delete matched no expense",
			log.FieldComponent, log.ComponentExpense,
			log.FieldOperation, log.OpDelete,
			log.FieldExpenseID, id)
	} else {
		s.appMetrics.mutations.Add(1)
		log.NewStructuredLogger(log.FromContext(r.Context())).LogExpenseMutation(r.Context(),
			log.OpDelete, id, "", 0, "")
	}
	RedirectSeeOther(w, r, "/home")
}
