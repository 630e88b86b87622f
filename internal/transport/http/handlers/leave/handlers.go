package leavehandler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/domain/leave"
	"leaveportal/internal/domain/reports"
	"leaveportal/internal/platform/apiclient"
	"leaveportal/internal/platform/config"
	"leaveportal/internal/platform/validation"
	"leaveportal/internal/transport/http/middleware"
	"leaveportal/internal/transport/http/shared"
	"leaveportal/internal/transport/http/web"
)

const (
	listPageSize    = 10
	maxListPageSize = 100
	typesPageSize   = 100
	exportPageSize  = 1000
	defaultSort     = "createdAt,desc"
	multipartMemory = 8 << 20
)

const (
	SubmittedMessage = "Leave application submitted successfully"
	UpdatedMessage   = "Leave application updated successfully"
	CancelledMessage = "Leave application cancelled"
	ApprovedMessage  = "Leave application approved"
	RejectedMessage  = "Leave application rejected"
	NotEditable      = "Only pending applications can be edited"
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
	r.Route("/leave", func(r chi.Router) {
		r.Get("/my", h.handleMyApplications)
		r.Get("/export.xlsx", h.handleExport)
		r.Get("/export.csv", h.handleExportCSV)
		r.With(middleware.RequirePermission(auth.PermLeaveApply, h.render)).Get("/apply", h.handleApplyPage)
		r.With(middleware.RequirePermission(auth.PermLeaveApply, h.render)).Post("/apply", h.handleApply)
		r.With(middleware.RequirePermission(auth.PermLeaveReview, h.render)).Get("/approvals", h.handleApprovals)
		r.Get("/{requestID}", h.handleDetail)
		r.Get("/{requestID}/pdf", h.handlePDF)
		r.Get("/{requestID}/edit", h.handleEditPage)
		r.Post("/{requestID}/edit", h.handleEdit)
		r.Post("/{requestID}/cancel", h.handleCancel)
		r.With(middleware.RequirePermission(auth.PermLeaveReview, h.render)).Post("/{requestID}/review", h.handleReview)
	})
}

type listData struct {
	Page leave.Page[leave.Application]
}

func (h *Handler) handleMyApplications(w http.ResponseWriter, r *http.Request) {
	params := shared.ParsePagination(r, listPageSize, maxListPageSize)
	if params.Sort == "" {
		params.Sort = defaultSort
	}
	page, err := h.leave.MyApplications(r.Context(), params)
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "leave_my", web.Page{Title: "My leave", Active: "my", Data: listData{Page: page}})
}

func (h *Handler) handleApprovals(w http.ResponseWriter, r *http.Request) {
	page, err := h.leave.PendingApplications(r.Context(), shared.ParsePagination(r, listPageSize, maxListPageSize))
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "approvals", web.Page{Title: "Approvals", Active: "approvals", Data: listData{Page: page}})
}

type formData struct {
	Types       []leave.LeaveType
	Application *leave.Application
	MaxMB       int
	TotalDays   int
}

func (h *Handler) activeTypes(r *http.Request) ([]leave.LeaveType, error) {
	page, err := h.leave.ActiveLeaveTypes(r.Context(), apiclient.PageParams{Size: typesPageSize})
	return page.Content, err
}

// totalDays is the inclusive count shown beside the dates; 0 until both
// dates parse into a valid range.
func totalDays(start, end string) int {
	s, err := leave.ParseDate(start)
	if err != nil {
		return 0
	}
	e, err := leave.ParseDate(end)
	if err != nil {
		return 0
	}
	days, err := leave.CalculateDays(s, e)
	if err != nil {
		return 0
	}
	return days
}

// isPreview reports whether the form was posted with the "Calculate total
// days" button rather than the submit button.
func isPreview(r *http.Request) bool {
	return r.FormValue("preview") != ""
}

// preview re-renders the form with the validated day count and sends nothing.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request, title string, data formData, req leave.ApplicationRequest) {
	data.TotalDays = req.Days
	page := formPage(title, data)
	page.Form = web.FormValues(r)
	h.render.Render(w, r, http.StatusOK, "leave_form", page)
}

func formPage(title string, data formData) web.Page {
	data.MaxMB = config.MaxDocumentBytes / (1024 * 1024)
	return web.Page{Title: title, Active: "apply", Data: data}
}

func (h *Handler) handleApplyPage(w http.ResponseWriter, r *http.Request) {
	types, err := h.activeTypes(r)
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "leave_form", formPage("Apply for leave", formData{Types: types}))
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	types, err := h.activeTypes(r)
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	data := formData{Types: types}

	in, err := readApplication(r)
	if err != nil {
		h.render.Fail(w, r, err, "leave_form", formPage("Apply for leave", data))
		return
	}
	data.TotalDays = totalDays(in.StartDate, in.EndDate)
	page := formPage("Apply for leave", data)
	req, err := leave.ValidateApplication(in, types)
	if err != nil {
		h.render.Fail(w, r, err, "leave_form", page)
		return
	}
	if isPreview(r) {
		h.preview(w, r, "Apply for leave", data, req)
		return
	}
	app, err := h.leave.Apply(r.Context(), req)
	if err != nil {
		h.render.Fail(w, r, err, "leave_form", page)
		return
	}
	web.SetFlash(w, web.FlashSuccess, SubmittedMessage)
	if app.ID != "" {
		web.Redirect(w, r, "/leave/"+app.ID)
		return
	}
	web.Redirect(w, r, "/leave/my")
}

// editable loads a request the current user may still change.
func (h *Handler) editable(w http.ResponseWriter, r *http.Request) (leave.Application, bool) {
	id := chi.URLParam(r, "requestID")
	app, err := h.leave.GetApplication(r.Context(), id)
	if err != nil {
		h.render.PageError(w, r, err)
		return leave.Application{}, false
	}
	user, _ := web.CurrentUser(r.Context())
	if !app.IsOwnedBy(user.ID) || !app.Status.IsCancellable() {
		web.SetFlash(w, web.FlashError, NotEditable)
		web.Redirect(w, r, "/leave/"+id)
		return leave.Application{}, false
	}
	return app, true
}

func applicationForm(app leave.Application) map[string]string {
	return map[string]string{
		"leaveTypeId": app.LeaveTypeID,
		"startDate":   leave.FormatDate(app.StartDate),
		"endDate":     leave.FormatDate(app.EndDate),
		"reason":      app.Reason,
	}
}

func (h *Handler) handleEditPage(w http.ResponseWriter, r *http.Request) {
	app, ok := h.editable(w, r)
	if !ok {
		return
	}
	types, err := h.activeTypes(r)
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	page := formPage("Edit leave application", formData{
		Types:       types,
		Application: &app,
		TotalDays:   totalDays(leave.FormatDate(app.StartDate), leave.FormatDate(app.EndDate)),
	})
	page.Form = applicationForm(app)
	h.render.Render(w, r, http.StatusOK, "leave_form", page)
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	app, ok := h.editable(w, r)
	if !ok {
		return
	}
	types, err := h.activeTypes(r)
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	data := formData{Types: types, Application: &app}

	in, err := readApplication(r)
	if err != nil {
		h.render.Fail(w, r, err, "leave_form", formPage("Edit leave application", data))
		return
	}
	data.TotalDays = totalDays(in.StartDate, in.EndDate)
	page := formPage("Edit leave application", data)
	if app.DocumentURL != "" {
		types = documentOnFile(types, app.LeaveTypeID)
	}
	req, err := leave.ValidateApplication(in, types)
	if err != nil {
		h.render.Fail(w, r, err, "leave_form", page)
		return
	}
	if isPreview(r) {
		h.preview(w, r, "Edit leave application", data, req)
		return
	}
	if _, err := h.leave.Update(r.Context(), app.ID, req); err != nil {
		h.render.Fail(w, r, err, "leave_form", page)
		return
	}
	web.SetFlash(w, web.FlashSuccess, UpdatedMessage)
	web.Redirect(w, r, "/leave/"+app.ID)
}

// documentOnFile relaxes the document requirement of the leave type the
// request already carries a document for.
func documentOnFile(types []leave.LeaveType, typeID string) []leave.LeaveType {
	out := make([]leave.LeaveType, len(types))
	copy(out, types)
	for i := range out {
		if out[i].ID == typeID {
			out[i].RequiresDocument = false
		}
	}
	return out
}

// readApplication reads the apply/edit form. The document is read up to one
// byte past the limit so oversize files are reported, not truncated.
func readApplication(r *http.Request) (leave.ApplicationInput, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			v := validation.New()
			v.Add("document", leave.MsgFileTooLarge)
			return leave.ApplicationInput{}, v.Err()
		}
		return leave.ApplicationInput{}, fmt.Errorf("parse application form: %w", err)
	}
	in := leave.ApplicationInput{
		LeaveTypeID: r.FormValue("leaveTypeId"),
		StartDate:   r.FormValue("startDate"),
		EndDate:     r.FormValue("endDate"),
		Reason:      r.FormValue("reason"),
	}

	file, header, err := r.FormFile("document")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return in, nil
	}
	if err != nil {
		return in, fmt.Errorf("read document: %w", err)
	}
	defer file.Close()
	doc, err := readDocument(file, header)
	if err != nil {
		return in, err
	}
	in.Document = doc
	return in, nil
}

func readDocument(file multipart.File, header *multipart.FileHeader) (*leave.Document, error) {
	doc := &leave.Document{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	if doc.Size > config.MaxDocumentBytes {
		return doc, nil
	}
	data, err := io.ReadAll(io.LimitReader(file, config.MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc.Data = data
	doc.Size = int64(len(data))
	return doc, nil
}

type detailData struct {
	Application leave.Application
	CanEdit     bool
	CanReview   bool
	ReturnTo    string
}

func (h *Handler) detailPage(r *http.Request, app leave.Application) web.Page {
	user, _ := web.CurrentUser(r.Context())
	return web.Page{
		Title:  "Leave application",
		Active: "my",
		Data: detailData{
			Application: app,
			CanEdit:     app.IsOwnedBy(user.ID) && app.Status.IsCancellable(),
			CanReview:   user.Role.CanReview() && app.Status.IsReviewable(),
			ReturnTo:    "/leave/" + app.ID,
		},
	}
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	app, err := h.leave.GetApplication(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "leave_detail", h.detailPage(r, app))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestID")
	user, _ := web.CurrentUser(r.Context())
	err := h.leave.Cancel(r.Context(), user, id)
	switch {
	case err == nil:
		web.SetFlash(w, web.FlashSuccess, CancelledMessage)
		web.Redirect(w, r, "/leave/my")
	case errors.Is(err, leave.ErrNotCancellable):
		web.SetFlash(w, web.FlashError, "Only your own pending applications can be cancelled")
		web.Redirect(w, r, "/leave/"+id)
	case errors.Is(err, apiclient.ErrUnauthorized):
		web.SessionExpired(w, r)
	default:
		web.SetFlash(w, web.FlashError, apiclient.Message(err))
		web.Redirect(w, r, "/leave/"+id)
	}
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestID")
	user, _ := web.CurrentUser(r.Context())
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, http.StatusBadRequest, shared.InvalidFormMessage)
		return
	}
	review := leave.Review{
		Decision: leave.Decision(r.PostFormValue("decision")),
		Comment:  r.PostFormValue("comment"),
	}
	returnTo := safeReturn(r.PostFormValue("returnTo"), "/leave/approvals")

	app, err := h.leave.Review(r.Context(), user, id, review)
	switch {
	case err == nil:
		message := ApprovedMessage
		if app.Status == leave.StatusRejected {
			message = RejectedMessage
		}
		web.SetFlash(w, web.FlashSuccess, message)
		web.Redirect(w, r, returnTo)
	case errors.Is(err, leave.ErrNotReviewer):
		h.render.Forbidden(w, r)
	case errors.Is(err, leave.ErrNotReviewable):
		web.SetFlash(w, web.FlashError, "This application has already been processed")
		web.Redirect(w, r, returnTo)
	default:
		current, loadErr := h.leave.GetApplication(r.Context(), id)
		if loadErr != nil {
			h.render.PageError(w, r, loadErr)
			return
		}
		page := h.detailPage(r, current)
		if data, ok := page.Data.(detailData); ok {
			data.ReturnTo = returnTo
			page.Data = data
		}
		h.render.Fail(w, r, err, "leave_detail", page)
	}
}

// safeReturn keeps redirects on this site's leave pages.
func safeReturn(path, fallback string) string {
	if strings.HasPrefix(path, "/leave/") && !strings.HasPrefix(path, "//") && !strings.ContainsAny(path, "\\\r\n") {
		return path
	}
	return fallback
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	app, err := h.leave.GetApplication(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := reports.ApplicationPDF(&buf, app); err != nil {
		slog.Error("render leave pdf", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		h.render.Error(w, r, http.StatusInternalServerError, apiclient.UnexpectedMessage)
		return
	}
	web.Attachment(w, "application/pdf", fmt.Sprintf("leave-request-%s.pdf", app.ID), &buf)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	apps, err := h.leave.MyApplications(r.Context(), apiclient.PageParams{Size: exportPageSize, Sort: defaultSort})
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	balances, err := h.leave.MyBalances(r.Context(), now.Year(), apiclient.PageParams{Size: typesPageSize})
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := reports.ApplicationsXLSX(&buf, apps.Content, balances.Content); err != nil {
		slog.Error("render leave export", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		h.render.Error(w, r, http.StatusInternalServerError, apiclient.UnexpectedMessage)
		return
	}
	web.Attachment(w, reports.FormatExcel.ContentType(), reports.FileName("my-leave", "xlsx", now), &buf)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	apps, err := h.leave.MyApplications(r.Context(), apiclient.PageParams{Size: exportPageSize, Sort: defaultSort})
	if err != nil {
		h.render.PageError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := reports.ApplicationsCSV(&buf, apps.Content); err != nil {
		slog.Error("render leave csv", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		h.render.Error(w, r, http.StatusInternalServerError, apiclient.UnexpectedMessage)
		return
	}
	web.Attachment(w, reports.FormatCSV.ContentType(), reports.FileName("my-leave", "csv", h.now()), &buf)
}
