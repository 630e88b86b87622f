package leave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/platform/apiclient"
)

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

type Page[T any] = apiclient.Page[T]

// ---- leave requests ----

func (s *Service) GetApplication(ctx context.Context, id string) (Application, error) {
	var out APIApplication
	if err := s.client.JSON(ctx, http.MethodGet, "/leave-requests/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return Application{}, err
	}
	return MapApplication(out), nil
}

func (s *Service) Apply(ctx context.Context, req ApplicationRequest) (Application, error) {
	var out APIApplication
	if err := s.client.Multipart(ctx, http.MethodPost, "/leave-requests", nil, applicationFields(req), documentPart(req.Document), &out); err != nil {
		return Application{}, err
	}
	return MapApplication(out), nil
}

// Update replaces a pending request. The API reads the fields both from the
// multipart body and from a JSON "dto" query parameter.
func (s *Service) Update(ctx context.Context, id string, req ApplicationRequest) (Application, error) {
	fields := applicationFields(req)
	dto, err := json.Marshal(fields)
	if err != nil {
		return Application{}, fmt.Errorf("encode update: %w", err)
	}
	query := url.Values{"dto": []string{string(dto)}}

	var out APIApplication
	if err := s.client.Multipart(ctx, http.MethodPut, "/leave-requests/"+url.PathEscape(id), query, fields, documentPart(req.Document), &out); err != nil {
		return Application{}, err
	}
	return MapApplication(out), nil
}

// Cancel withdraws the caller's own request after re-reading it.
func (s *Service) Cancel(ctx context.Context, user auth.User, id string) error {
	current, err := s.GetApplication(ctx, id)
	if err != nil {
		return err
	}
	if !current.IsOwnedBy(user.ID) || !current.Status.IsCancellable() {
		return ErrNotCancellable
	}
	return s.client.JSON(ctx, http.MethodDelete, "/leave-requests/"+url.PathEscape(id), nil, nil, nil)
}

// Review records a decision. The form is checked before any call; the
// request is then re-read so a decision is never sent against one that has
// already left the reviewable set.
func (s *Service) Review(ctx context.Context, user auth.User, id string, review Review) (Application, error) {
	review, err := ValidateReview(user, review)
	if err != nil {
		return Application{}, err
	}
	current, err := s.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if !current.Status.IsReviewable() {
		return Application{}, ErrNotReviewable
	}

	var out APIApplication
	if err := s.client.JSON(ctx, http.MethodPut, "/leave-requests/"+url.PathEscape(id)+"/review", nil, review, &out); err != nil {
		return Application{}, err
	}
	return MapApplication(out), nil
}

func (s *Service) MyApplications(ctx context.Context, params apiclient.PageParams) (Page[Application], error) {
	return s.applications(ctx, "/leave-requests/my-requests", params.Apply(nil))
}

func (s *Service) PendingApplications(ctx context.Context, params apiclient.PageParams) (Page[Application], error) {
	return s.applications(ctx, "/leave-requests/pending", params.Apply(nil))
}

func (s *Service) FilterApplications(ctx context.Context, filter Filter, params apiclient.PageParams) (Page[Application], error) {
	query := params.Apply(nil)
	raw, err := json.Marshal(filter)
	if err != nil {
		return Page[Application]{}, fmt.Errorf("encode filter: %w", err)
	}
	query.Set("filter", string(raw))
	return s.applications(ctx, "/leave-requests/filter", query)
}

func (s *Service) CurrentlyOnLeave(ctx context.Context, params apiclient.PageParams) (Page[Application], error) {
	return s.applications(ctx, "/leave-requests/currently-on-leave", params.Apply(nil))
}

func (s *Service) ApprovedInRange(ctx context.Context, start, end string, params apiclient.PageParams) (Page[Application], error) {
	query := params.Apply(nil)
	query.Set("startDate", start)
	query.Set("endDate", end)
	return s.applications(ctx, "/leave-requests/approved", query)
}

func (s *Service) applications(ctx context.Context, path string, query url.Values) (Page[Application], error) {
	var page Page[APIApplication]
	if err := s.client.JSON(ctx, http.MethodGet, path, query, nil, &page); err != nil {
		return Page[Application]{}, err
	}
	return apiclient.MapPage(page, MapApplication), nil
}

func applicationFields(req ApplicationRequest) map[string]string {
	return map[string]string{
		"leaveTypeId": req.LeaveTypeID,
		"startDate":   FormatDate(req.StartDate),
		"endDate":     FormatDate(req.EndDate),
		"reason":      req.Reason,
	}
}

func documentPart(doc *Document) *apiclient.FilePart {
	if doc == nil || len(doc.Data) == 0 {
		return nil
	}
	return &apiclient.FilePart{
		Field:       "document",
		FileName:    doc.FileName,
		ContentType: documentType(doc.FileName, doc.ContentType),
		Data:        doc.Data,
	}
}

// ---- leave types ----

func (s *Service) GetLeaveType(ctx context.Context, id string) (LeaveType, error) {
	var out APILeaveType
	if err := s.client.JSON(ctx, http.MethodGet, "/leave-types/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return LeaveType{}, err
	}
	return MapLeaveType(out), nil
}

func (s *Service) LeaveTypes(ctx context.Context, params apiclient.PageParams) (Page[LeaveType], error) {
	return s.leaveTypes(ctx, "/leave-types", params)
}

func (s *Service) ActiveLeaveTypes(ctx context.Context, params apiclient.PageParams) (Page[LeaveType], error) {
	page, err := s.leaveTypes(ctx, "/leave-types/active", params)
	if err != nil {
		return page, err
	}
	active := page.Content[:0]
	for _, t := range page.Content {
		if t.IsActive {
			active = append(active, t)
		}
	}
	page.Content = active
	return page, nil
}

func (s *Service) leaveTypes(ctx context.Context, path string, params apiclient.PageParams) (Page[LeaveType], error) {
	var page Page[APILeaveType]
	if err := s.client.JSON(ctx, http.MethodGet, path, params.Apply(nil), nil, &page); err != nil {
		return Page[LeaveType]{}, err
	}
	return apiclient.MapPage(page, MapLeaveType), nil
}

func (s *Service) CreateLeaveType(ctx context.Context, in LeaveTypeInput) (LeaveType, error) {
	var out APILeaveType
	if err := s.client.JSON(ctx, http.MethodPost, "/leave-types", nil, in, &out); err != nil {
		return LeaveType{}, err
	}
	return MapLeaveType(out), nil
}

func (s *Service) UpdateLeaveType(ctx context.Context, id string, in LeaveTypeInput) (LeaveType, error) {
	var out APILeaveType
	if err := s.client.JSON(ctx, http.MethodPut, "/leave-types/"+url.PathEscape(id), nil, in, &out); err != nil {
		return LeaveType{}, err
	}
	return MapLeaveType(out), nil
}

func (s *Service) DeleteLeaveType(ctx context.Context, id string) error {
	return s.client.JSON(ctx, http.MethodDelete, "/leave-types/"+url.PathEscape(id), nil, nil, nil)
}

// ---- balances ----

func (s *Service) GetBalance(ctx context.Context, id string) (Balance, error) {
	var out APIBalance
	if err := s.client.JSON(ctx, http.MethodGet, "/leave-balances/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return Balance{}, err
	}
	return MapBalance(out), nil
}

func (s *Service) MyBalances(ctx context.Context, year int, params apiclient.PageParams) (Page[Balance], error) {
	return s.balances(ctx, "/leave-balances/my-balances", year, params)
}

func (s *Service) UserBalances(ctx context.Context, userID string, year int, params apiclient.PageParams) (Page[Balance], error) {
	return s.balances(ctx, "/leave-balances/users/"+url.PathEscape(userID), year, params)
}

func (s *Service) balances(ctx context.Context, path string, year int, params apiclient.PageParams) (Page[Balance], error) {
	query := params.Apply(nil)
	if year > 0 {
		query.Set("year", strconv.Itoa(year))
	}
	var page Page[APIBalance]
	if err := s.client.JSON(ctx, http.MethodGet, path, query, nil, &page); err != nil {
		return Page[Balance]{}, err
	}
	return apiclient.MapPage(page, MapBalance), nil
}

func (s *Service) AdjustBalance(ctx context.Context, balanceID string, in AdjustmentInput) (Adjustment, error) {
	body := map[string]any{
		"adjustmentAmount": json.Number(in.AdjustmentAmount.String()),
		"reason":           in.Reason,
	}
	var out APIAdjustment
	if err := s.client.JSON(ctx, http.MethodPost, "/leave-balances/"+url.PathEscape(balanceID)+"/adjust", nil, body, &out); err != nil {
		return Adjustment{}, err
	}
	return MapAdjustment(out), nil
}

func (s *Service) Adjustments(ctx context.Context, balanceID string, params apiclient.PageParams) (Page[Adjustment], error) {
	var page Page[APIAdjustment]
	if err := s.client.JSON(ctx, http.MethodGet, "/leave-balances/"+url.PathEscape(balanceID)+"/adjustments", params.Apply(nil), nil, &page); err != nil {
		return Page[Adjustment]{}, err
	}
	return apiclient.MapPage(page, MapAdjustment), nil
}

func (s *Service) InitializeBalances(ctx context.Context, userID string, year int) error {
	query := url.Values{"year": []string{strconv.Itoa(year)}}
	return s.client.JSON(ctx, http.MethodPost, "/leave-balances/users/"+url.PathEscape(userID)+"/initialize", query, nil, nil)
}

// ---- public holidays ----

func (s *Service) GetHoliday(ctx context.Context, id string) (Holiday, error) {
	var out APIHoliday
	if err := s.client.JSON(ctx, http.MethodGet, "/public-holidays/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return Holiday{}, err
	}
	return MapHoliday(out), nil
}

func (s *Service) Holidays(ctx context.Context, params apiclient.PageParams) (Page[Holiday], error) {
	return s.holidays(ctx, "/public-holidays", params)
}

func (s *Service) HolidaysByYear(ctx context.Context, year int, params apiclient.PageParams) (Page[Holiday], error) {
	return s.holidays(ctx, "/public-holidays/year/"+strconv.Itoa(year), params)
}

func (s *Service) UpcomingHolidays(ctx context.Context, params apiclient.PageParams) (Page[Holiday], error) {
	return s.holidays(ctx, "/public-holidays/upcoming", params)
}

func (s *Service) holidays(ctx context.Context, path string, params apiclient.PageParams) (Page[Holiday], error) {
	var page Page[APIHoliday]
	if err := s.client.JSON(ctx, http.MethodGet, path, params.Apply(nil), nil, &page); err != nil {
		return Page[Holiday]{}, err
	}
	return apiclient.MapPage(page, MapHoliday), nil
}

func (s *Service) CreateHoliday(ctx context.Context, in HolidayInput) (Holiday, error) {
	var out APIHoliday
	if err := s.client.JSON(ctx, http.MethodPost, "/public-holidays", nil, in, &out); err != nil {
		return Holiday{}, err
	}
	return MapHoliday(out), nil
}

func (s *Service) UpdateHoliday(ctx context.Context, id string, in HolidayInput) (Holiday, error) {
	var out APIHoliday
	if err := s.client.JSON(ctx, http.MethodPut, "/public-holidays/"+url.PathEscape(id), nil, in, &out); err != nil {
		return Holiday{}, err
	}
	return MapHoliday(out), nil
}

func (s *Service) DeleteHoliday(ctx context.Context, id string) error {
	return s.client.JSON(ctx, http.MethodDelete, "/public-holidays/"+url.PathEscape(id), nil, nil, nil)
}
