package reportshandler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/domain/leave"
	"leaveportal/internal/domain/reports"
	"leaveportal/internal/platform/validation"
	"leaveportal/internal/transport/http/middleware"
	"leaveportal/internal/transport/http/shared"
	"leaveportal/internal/transport/http/web"
)

type Handler struct {
	render  *web.Renderer
	reports *reports.Service
	now     func() time.Time
}

func NewHandler(render *web.Renderer, svc *reports.Service) *Handler {
	return &Handler{render: render, reports: svc, now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermReportsRead, h.render))
		r.Get("/admin/reports", h.handleReports)
		r.Get("/admin/reports/download", h.handleDownload)
	})
}

type reportsData struct {
	Statuses []leave.Status
	Years    []int
	Query    string
}

func (h *Handler) page(r *http.Request) web.Page {
	year := h.now().Year()
	years := make([]int, 0, 5)
	for y := year + 1; y >= year-3; y-- {
		years = append(years, y)
	}
	query := r.URL.Query()
	query.Del("format")
	form := map[string]string{"year": query.Get("year"), "status": query.Get("status")}
	if form["year"] == "" {
		form["year"] = strconv.Itoa(year)
	}
	return web.Page{
		Title:  "Reports",
		Active: "reports",
		Form:   form,
		Data:   reportsData{Statuses: leave.Statuses, Years: years, Query: query.Encode()},
	}
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "reports", h.page(r))
}

func parseFilter(q url.Values, fallbackYear int) (reports.Filter, error) {
	filter := reports.Filter{
		Year:   shared.ParseYear(q.Get("year"), fallbackYear),
		Status: strings.ToUpper(strings.TrimSpace(q.Get("status"))),
	}
	v := validation.New()
	if filter.Status != "" {
		known := false
		for _, s := range leave.Statuses {
			known = known || string(s) == filter.Status
		}
		v.Check(known, "status", "Unknown status")
	}
	return filter, v.Err()
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	format, err := reports.ParseFormat(r.URL.Query().Get("format"))
	if errors.Is(err, reports.ErrUnknownFormat) {
		v := validation.New()
		v.Add("format", "Please choose Excel or CSV")
		err = v.Err()
	}
	var filter reports.Filter
	if err == nil {
		filter, err = parseFilter(r.URL.Query(), h.now().Year())
	}
	var report *reports.Report
	if err == nil {
		report, err = h.reports.Download(r.Context(), format, filter)
	}
	if err != nil {
		h.render.Fail(w, r, err, "reports", h.page(r))
		return
	}
	defer report.Body.Close()
	web.Attachment(w, report.ContentType, report.FileName, report.Body)
}
