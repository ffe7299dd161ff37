package http

import (
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"walletlog/internal/api"
	"walletlog/internal/core"
	"walletlog/internal/log"
)

// recentLimit is how many expenses the dashboard lists.
const recentLimit = 5

type (
	dashboardView struct {
		Summary core.Summary
		Bars    []barRow
		Recent  []core.Expense
	}

	summaryView struct {
		Start   string
		End     string
		Summary *core.Summary
		Largest *core.CategoryAmount
		Bars    []barRow
	}
)

// handleDashboard loads the current month summary and the latest expenses
// in parallel.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	start, end := core.Date{Time: s.now()}.MonthBounds()
	ctx, cancel := s.apiContext(r)
	defer cancel()

	var (
		summary core.Summary
		recent  []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.api.ExpenseSummary(gctx, start, end)
		return err
	})
	g.Go(func() error {
		items, err := s.api.ListExpenses(gctx, api.ExpenseFilter{})
		if err != nil {
			return err
		}
		sortByDateDesc(items)
		if len(items) > recentLimit {
			items = items[:recentLimit]
		}
		recent = items
		return nil
	})

	page := s.NewPage(r, tmplDashboard, "Dashboard")
	if err := g.Wait(); err != nil {
		status, msg, redirected := s.apiFailure(w, r, log.OpSummary, err)
		if redirected {
			return
		}
		page.Status(status).Error(msg).Write(w, r)
		return
	}

	page.Data(dashboardView{
		Summary: summary,
		Bars:    chartBars(summary.ByCategory),
		Recent:  recent,
	}).Write(w, r)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	page := s.NewPage(r, tmplSummary, "Summary")
	start, end, err := ParseSummaryRange(r.URL.Query(), s.now())
	view := summaryView{Start: start.String(), End: end.String()}
	if err != nil {
		msg := "Dates must use the YYYY-MM-DD format."
		if errors.Is(err, ErrReversedRange) {
			msg = "The end date must not be before the start date."
		}
		page.Status(http.StatusUnprocessableEntity).Error(msg).Data(view).Write(w, r)
		return
	}

	ctx, cancel := s.apiContext(r)
	defer cancel()
	summary, err := s.api.ExpenseSummary(ctx, start, end)
	if err != nil {
		status, msg, redirected := s.apiFailure(w, r, log.OpSummary, err)
		if redirected {
			return
		}
		page.Status(status).Error(msg).Data(view).Write(w, r)
		return
	}

	view.Summary = &summary
	if largest, ok := summary.Largest(); ok {
		view.Largest = &largest
	}
	view.Bars = chartBars(summary.ByCategory)
	page.Data(view).Write(w, r)
}
