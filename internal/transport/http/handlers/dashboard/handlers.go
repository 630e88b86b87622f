package dashboardhandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/domain/leave"
	"leaveportal/internal/platform/apiclient"
	"leaveportal/internal/transport/http/web"
)

const (
	balancesPageSize = 100
	recentPageSize   = 10
	widgetPageSize   = 5
	recentSort       = "createdAt,desc"
)

type Handler struct {
	render *web.Renderer
	leave  *leave.Service
	now    func() time.Time
}

func NewHandler(render *web.Renderer, leaveSvc *leave.Service) *Handler {
	return &Handler{render: render, leave: leaveSvc, now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) { web.Redirect(w, r, "/dashboard") })
	r.Get("/dashboard", h.handleDashboard)
}

type dashboardData struct {
	Year           int
	Balances       []leave.Balance
	Recent         []leave.Application
	Holidays       []leave.Holiday
	OnLeave        []leave.Application
	PendingReviews int64
}

// load fetches every widget concurrently; the first failure wins.
func (h *Handler) load(ctx context.Context, user auth.User) (dashboardData, error) {
	data := dashboardData{Year: h.now().Year()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		page, err := h.leave.MyBalances(ctx, data.Year, apiclient.PageParams{Size: balancesPageSize})
		data.Balances = page.Content
		return err
	})
	g.Go(func() error {
		page, err := h.leave.MyApplications(ctx, apiclient.PageParams{Size: recentPageSize, Sort: recentSort})
		data.Recent = page.Content
		return err
	})
	g.Go(func() error {
		page, err := h.leave.UpcomingHolidays(ctx, apiclient.PageParams{Size: widgetPageSize})
		data.Holidays = page.Content
		return err
	})
	g.Go(func() error {
		page, err := h.leave.CurrentlyOnLeave(ctx, apiclient.PageParams{Size: recentPageSize})
		data.OnLeave = page.Content
		return err
	})
	if user.Role.CanReview() {
		g.Go(func() error {
			page, err := h.leave.PendingApplications(ctx, apiclient.PageParams{Size: 1})
			data.PendingReviews = page.TotalElements
			return err
		})
	}

	err := g.Wait()
	return data, err
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := web.CurrentUser(r.Context())
	data, err := h.load(r.Context(), user)
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "dashboard", web.Page{Title: "Dashboard", Active: "dashboard", Data: data})
}
