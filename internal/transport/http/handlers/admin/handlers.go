package adminhandler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/domain/leave"
	"leaveportal/internal/platform/apiclient"
	"leaveportal/internal/platform/validation"
	"leaveportal/internal/transport/http/middleware"
	"leaveportal/internal/transport/http/shared"
	"leaveportal/internal/transport/http/web"
)

const (
	adminPageSize    = 20
	maxAdminPageSize = 100
)

// UserDirectory lists the accounts whose balances an admin can manage.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]auth.User, error)
}

type Handler struct {
	render *web.Renderer
	leave  *leave.Service
	users  UserDirectory
	now    func() time.Time
}

func NewHandler(render *web.Renderer, leaveSvc *leave.Service, users UserDirectory) *Handler {
	return &Handler{render: render, leave: leaveSvc, users: users, now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermLeaveTypes, h.render))
		r.Get("/admin/leave-types", h.handleLeaveTypes)
		r.Post("/admin/leave-types", h.handleCreateLeaveType)
		r.Get("/admin/leave-types/{typeID}/edit", h.handleEditLeaveTypePage)
		r.Post("/admin/leave-types/{typeID}/edit", h.handleEditLeaveType)
		r.Post("/admin/leave-types/{typeID}/delete", h.handleDeleteLeaveType)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermHolidays, h.render))
		r.Get("/admin/holidays", h.handleHolidays)
		r.Post("/admin/holidays", h.handleCreateHoliday)
		r.Get("/admin/holidays/{holidayID}/edit", h.handleEditHolidayPage)
		r.Post("/admin/holidays/{holidayID}/edit", h.handleEditHoliday)
		r.Post("/admin/holidays/{holidayID}/delete", h.handleDeleteHoliday)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermBalances, h.render))
		r.Get("/admin/balances", h.handleBalances)
		r.Post("/admin/balances/initialize", h.handleInitializeBalances)
		r.Post("/admin/balances/{balanceID}/adjust", h.handleAdjustBalance)
		r.Get("/admin/balances/{balanceID}/adjustments", h.handleAdjustments)
	})
	r.With(middleware.RequirePermission(auth.PermRequestSearch, h.render)).Get("/admin/requests", h.handleSearch)
}

// Leave types

type leaveTypesData struct {
	Page leave.Page[leave.LeaveType]
}

func (h *Handler) leaveTypesPage(r *http.Request) (web.Page, error) {
	page, err := h.leave.LeaveTypes(r.Context(), shared.ParsePagination(r, adminPageSize, maxAdminPageSize))
	if err != nil {
		return web.Page{}, err
	}
	return web.Page{Title: "Leave types", Active: "types", Data: leaveTypesData{Page: page}}, nil
}

func (h *Handler) handleLeaveTypes(w http.ResponseWriter, r *http.Request) {
	page, err := h.leaveTypesPage(r)
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	page.Form = map[string]string{"isActive": "true"}
	h.render.Render(w, r, http.StatusOK, "admin_leave_types", page)
}

func decodeLeaveType(r *http.Request) (leave.LeaveTypeInput, error) {
	var in leave.LeaveTypeInput
	if err := shared.DecodeForm(r, &in); err != nil {
		return in, err
	}
	v := validation.New()
	v.Struct(in)
	return in, v.Err()
}

func (h *Handler) handleCreateLeaveType(w http.ResponseWriter, r *http.Request) {
	in, err := decodeLeaveType(r)
	if err == nil {
		_, err = h.leave.CreateLeaveType(r.Context(), in)
	}
	if err != nil {
		page, loadErr := h.leaveTypesPage(r)
		if loadErr != nil {
			h.render.PageError(w, r, loadErr)
			return
		}
		h.render.Fail(w, r, err, "admin_leave_types", page)
		return
	}
	web.SetFlash(w, web.FlashSuccess, "Leave type created")
	web.Redirect(w, r, "/admin/leave-types")
}

type leaveTypeEditData struct {
	LeaveType leave.LeaveType
}

func leaveTypeForm(t leave.LeaveType) map[string]string {
	form := map[string]string{
		"name":             t.Name,
		"description":      t.Description,
		"annualAllocation": t.AnnualAllocation.String(),
		"accrualRate":      t.AccrualRate.String(),
		"requiresDocument": strconv.FormatBool(t.RequiresDocument),
		"requiresReason":   strconv.FormatBool(t.RequiresReason),
		"isActive":         strconv.FormatBool(t.IsActive),
	}
	if t.MaxCarryoverDays != nil {
		form["maxCarryoverDays"] = t.MaxCarryoverDays.String()
	}
	if t.CarryoverExpiryMonth > 0 {
		form["carryoverExpiryMonth"] = strconv.Itoa(t.CarryoverExpiryMonth)
	}
	if t.CarryoverExpiryDay > 0 {
		form["carryoverExpiryDay"] = strconv.Itoa(t.CarryoverExpiryDay)
	}
	return form
}

func (h *Handler) handleEditLeaveTypePage(w http.ResponseWriter, r *http.Request) {
	t, err := h.leave.GetLeaveType(r.Context(), chi.URLParam(r, "typeID"))
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "admin_leave_type_edit", web.Page{
		Title:  "Edit leave type",
		Active: "types",
		Form:   leaveTypeForm(t),
		Data:   leaveTypeEditData{LeaveType: t},
	})
}

func (h *Handler) handleEditLeaveType(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "typeID")
	in, err := decodeLeaveType(r)
	if err == nil {
		_, err = h.leave.UpdateLeaveType(r.Context(), id, in)
	}
	if err != nil {
		page := web.Page{Title: "Edit leave type", Active: "types", Data: leaveTypeEditData{LeaveType: leave.LeaveType{ID: id, Name: in.Name}}}
		h.render.Fail(w, r, err, "admin_leave_type_edit", page)
		return
	}
	web.SetFlash(w, web.FlashSuccess, "Leave type updated")
	web.Redirect(w, r, "/admin/leave-types")
}

func (h *Handler) handleDeleteLeaveType(w http.ResponseWriter, r *http.Request) {
	h.flashAndReturn(w, r, h.leave.DeleteLeaveType(r.Context(), chi.URLParam(r, "typeID")), "Leave type deleted", "/admin/leave-types")
}

// flashAndReturn reports the outcome of a one-button action as a toast.
func (h *Handler) flashAndReturn(w http.ResponseWriter, r *http.Request, err error, success, path string) {
	switch {
	case err == nil:
		web.SetFlash(w, web.FlashSuccess, success)
	case errors.Is(err, apiclient.ErrUnauthorized):
		web.SessionExpired(w, r)
		return
	default:
		web.SetFlash(w, web.FlashError, apiclient.Message(err))
	}
	web.Redirect(w, r, path)
}

// Holidays

type holidaysData struct {
	Year     int
	Page     leave.Page[leave.Holiday]
	PrevYear int
	NextYear int
}

func (h *Handler) holidaysPage(r *http.Request) (web.Page, error) {
	year := shared.ParseYear(r.URL.Query().Get("year"), h.now().Year())
	page, err := h.leave.HolidaysByYear(r.Context(), year, shared.ParsePagination(r, maxAdminPageSize, maxAdminPageSize))
	if err != nil {
		return web.Page{}, err
	}
	return web.Page{
		Title:  "Public holidays",
		Active: "holidays",
		Data:   holidaysData{Year: year, Page: page, PrevYear: year - 1, NextYear: year + 1},
	}, nil
}

func (h *Handler) handleHolidays(w http.ResponseWriter, r *http.Request) {
	page, err := h.holidaysPage(r)
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "admin_holidays", page)
}

func decodeHoliday(r *http.Request) (leave.HolidayInput, error) {
	var in leave.HolidayInput
	if err := shared.DecodeForm(r, &in); err != nil {
		return in, err
	}
	v := validation.New()
	v.Struct(in)
	return in, v.Err()
}

func holidayYear(in leave.HolidayInput, fallback int) int {
	if d, err := leave.ParseDate(in.Date); err == nil {
		return d.Year()
	}
	return fallback
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	in, err := decodeHoliday(r)
	if err == nil {
		_, err = h.leave.CreateHoliday(r.Context(), in)
	}
	if err != nil {
		page, loadErr := h.holidaysPage(r)
		if loadErr != nil {
			h.render.PageError(w, r, loadErr)
			return
		}
		h.render.Fail(w, r, err, "admin_holidays", page)
		return
	}
	web.SetFlash(w, web.FlashSuccess, "Holiday created")
	web.Redirect(w, r, "/admin/holidays?year="+strconv.Itoa(holidayYear(in, h.now().Year())))
}

type holidayEditData struct {
	Holiday leave.Holiday
}

func (h *Handler) handleEditHolidayPage(w http.ResponseWriter, r *http.Request) {
	holiday, err := h.leave.GetHoliday(r.Context(), chi.URLParam(r, "holidayID"))
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "admin_holiday_edit", web.Page{
		Title:  "Edit holiday",
		Active: "holidays",
		Form: map[string]string{
			"name":        holiday.Name,
			"date":        leave.FormatDate(holiday.Date),
			"description": holiday.Description,
			"isRecurring": strconv.FormatBool(holiday.IsRecurring),
		},
		Data: holidayEditData{Holiday: holiday},
	})
}

func (h *Handler) handleEditHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "holidayID")
	in, err := decodeHoliday(r)
	if err == nil {
		_, err = h.leave.UpdateHoliday(r.Context(), id, in)
	}
	if err != nil {
		page := web.Page{Title: "Edit holiday", Active: "holidays", Data: holidayEditData{Holiday: leave.Holiday{ID: id, Name: in.Name}}}
		h.render.Fail(w, r, err, "admin_holiday_edit", page)
		return
	}
	web.SetFlash(w, web.FlashSuccess, "Holiday updated")
	web.Redirect(w, r, "/admin/holidays?year="+strconv.Itoa(holidayYear(in, h.now().Year())))
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	year := shared.ParseYear(r.PostFormValue("year"), h.now().Year())
	err := h.leave.DeleteHoliday(r.Context(), chi.URLParam(r, "holidayID"))
	h.flashAndReturn(w, r, err, "Holiday deleted", "/admin/holidays?year="+strconv.Itoa(year))
}

// Balances

type balancesData struct {
	Users    []auth.User
	UserID   string
	Year     int
	Balances []leave.Balance
}

func (h *Handler) balancesPage(r *http.Request, userID string, year int) (web.Page, error) {
	data := balancesData{UserID: userID, Year: year}
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		return web.Page{}, err
	}
	data.Users = users
	if userID != "" {
		page, err := h.leave.UserBalances(r.Context(), userID, year, apiclient.PageParams{Size: maxAdminPageSize})
		if err != nil {
			return web.Page{}, err
		}
		data.Balances = page.Content
	}
	return web.Page{Title: "Leave balances", Active: "balances", Data: data}, nil
}

func balancesPath(userID string, year int) string {
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	q.Set("year", strconv.Itoa(year))
	return "/admin/balances?" + q.Encode()
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	year := shared.ParseYear(r.URL.Query().Get("year"), h.now().Year())
	page, err := h.balancesPage(r, userID, year)
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "admin_balances", page)
}

func (h *Handler) handleInitializeBalances(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PostFormValue("userId"))
	year := shared.ParseYear(r.PostFormValue("year"), h.now().Year())
	if userID == "" {
		web.SetFlash(w, web.FlashError, "Please select a user")
		web.Redirect(w, r, balancesPath("", year))
		return
	}
	err := h.leave.InitializeBalances(r.Context(), userID, year)
	h.flashAndReturn(w, r, err, "Balances initialized for "+strconv.Itoa(year), balancesPath(userID, year))
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	balanceID := chi.URLParam(r, "balanceID")
	userID := strings.TrimSpace(r.PostFormValue("userId"))
	year := shared.ParseYear(r.PostFormValue("year"), h.now().Year())

	in, err := leave.ValidateAdjustment(r.PostFormValue("adjustmentAmount"), r.PostFormValue("reason"))
	if err == nil {
		_, err = h.leave.AdjustBalance(r.Context(), balanceID, in)
	}
	if err != nil {
		page, loadErr := h.balancesPage(r, userID, year)
		if loadErr != nil {
			h.render.PageError(w, r, loadErr)
			return
		}
		page.Form = web.FormValues(r)
		page.Form["balanceId"] = balanceID
		h.render.Fail(w, r, err, "admin_balances", page)
		return
	}
	web.SetFlash(w, web.FlashSuccess, "Balance adjusted")
	web.Redirect(w, r, balancesPath(userID, year))
}

type adjustmentsData struct {
	Balance leave.Balance
	Page    leave.Page[leave.Adjustment]
}

func (h *Handler) handleAdjustments(w http.ResponseWriter, r *http.Request) {
	balanceID := chi.URLParam(r, "balanceID")
	balance, err := h.leave.GetBalance(r.Context(), balanceID)
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	page, err := h.leave.Adjustments(r.Context(), balanceID, shared.ParsePagination(r, adminPageSize, maxAdminPageSize))
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "admin_adjustments", web.Page{
		Title:  "Balance adjustments",
		Active: "balances",
		Data:   adjustmentsData{Balance: balance, Page: page},
	})
}

// Search

type searchData struct {
	Statuses []leave.Status
	Types    []leave.LeaveType
	Users    []auth.User
	Page     leave.Page[leave.Application]
	Query    string
}

// parseSearch reads the search form. mode=approved lists approved leave
// overlapping the date range instead of filtering.
func parseSearch(q url.Values) (leave.Filter, bool, error) {
	filter := leave.Filter{
		Status:      leave.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		UserID:      strings.TrimSpace(q.Get("userId")),
		LeaveTypeID: strings.TrimSpace(q.Get("leaveTypeId")),
		StartDate:   strings.TrimSpace(q.Get("startDate")),
		EndDate:     strings.TrimSpace(q.Get("endDate")),
	}
	approvedOnly := q.Get("mode") == "approved"

	v := validation.New()
	for field, raw := range map[string]string{"startDate": filter.StartDate, "endDate": filter.EndDate} {
		if raw == "" {
			continue
		}
		_, err := leave.ParseDate(raw)
		v.Check(err == nil, field, leave.MsgInvalidDate)
	}
	if approvedOnly {
		v.Required("startDate", filter.StartDate, leave.MsgSelectDates)
		v.Required("endDate", filter.EndDate, leave.MsgSelectDates)
	}
	if filter.Status != "" {
		known := false
		for _, s := range leave.Statuses {
			known = known || s == filter.Status
		}
		v.Check(known, "status", "Unknown status")
	}
	return filter, approvedOnly, v.Err()
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	data := searchData{Statuses: leave.Statuses}
	types, err := h.leave.LeaveTypes(r.Context(), apiclient.PageParams{Size: maxAdminPageSize})
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	data.Types = types.Content
	if data.Users, err = h.users.ListUsers(r.Context()); err != nil {
		h.render.PageError(w, r, err)
		return
	}

	query := r.URL.Query()
	query.Del("page")
	data.Query = query.Encode()

	page := web.Page{Title: "Search leave requests", Active: "search", Form: map[string]string{}}
	for key := range query {
		page.Form[key] = query.Get(key)
	}

	filter, approvedOnly, err := parseSearch(r.URL.Query())
	if err != nil {
		page.Data = data
		h.render.Fail(w, r, err, "admin_requests", page)
		return
	}

	params := shared.ParsePagination(r, adminPageSize, maxAdminPageSize)
	if approvedOnly {
		data.Page, err = h.leave.ApprovedInRange(r.Context(), filter.StartDate, filter.EndDate, params)
	} else {
		data.Page, err = h.leave.FilterApplications(r.Context(), filter, params)
	}
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	page.Data = data
	h.render.Render(w, r, http.StatusOK, "admin_requests", page)
}
