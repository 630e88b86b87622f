package leave

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Wire shapes as the API sends them. Every field that has a legacy alias
// keeps both names so the mappers can prefer the canonical one.
//
//	Application field   canonical          alias                 default
//	-----------------   ---------          -----                 -------
//	NumberOfDays        numberOfDays       days                  0
//	UserID              userId             employeeId            ""
//	UserName            userName           employeeName          ""
//	LeaveTypeName       leaveTypeName      leaveType (string     ""
//	                                       or {name})
//	LeaveTypeID         leaveTypeId        leaveType.id          ""
//	ReviewedBy          reviewedBy         approverId            ""
//	ReviewerName        reviewerName       approverName          ""
//	ReviewerComment     reviewerComment    approvalComments      ""
//	ReviewedAt          reviewedAt         approvedAt/rejectedAt nil
//	DocumentURL         documentUrl        documents[0]          ""
//	CreatedAt           createdAt          submittedAt           nil
//	ApprovedAt          reviewedAt when APPROVED, else approvedAt
//	RejectedAt          reviewedAt when REJECTED, else rejectedAt
//
//	Balance field       canonical          alias                 default
//	TotalAllocated      totalAllocated     totalDays             0
//	CarriedOverDays     carriedOverDays    carryoverDays         0
//	AvailableDays       availableDays      -                     nil
//
//	LeaveType field     canonical          alias                 default
//	AnnualAllocation    annualAllocation   maxDays               0
//	IsActive            isActive           active                true
type APIApplication struct {
	ID               string              `json:"id"`
	UserID           string              `json:"userId"`
	EmployeeID       string              `json:"employeeId"`
	UserName         string              `json:"userName"`
	EmployeeName     string              `json:"employeeName"`
	LeaveTypeID      string              `json:"leaveTypeId"`
	LeaveTypeName    string              `json:"leaveTypeName"`
	LeaveType        json.RawMessage     `json:"leaveType"`
	StartDate        string              `json:"startDate"`
	EndDate          string              `json:"endDate"`
	NumberOfDays     decimal.NullDecimal `json:"numberOfDays"`
	Days             decimal.NullDecimal `json:"days"`
	Reason           string              `json:"reason"`
	Status           string              `json:"status"`
	ReviewedBy       string              `json:"reviewedBy"`
	ApproverID       string              `json:"approverId"`
	ReviewerName     string              `json:"reviewerName"`
	ApproverName     string              `json:"approverName"`
	ReviewedAt       string              `json:"reviewedAt"`
	ApprovedAt       string              `json:"approvedAt"`
	RejectedAt       string              `json:"rejectedAt"`
	ReviewerComment  string              `json:"reviewerComment"`
	ApprovalComments string              `json:"approvalComments"`
	DocumentURL      string              `json:"documentUrl"`
	Documents        []string            `json:"documents"`
	CreatedAt        string              `json:"createdAt"`
	SubmittedAt      string              `json:"submittedAt"`
	UpdatedAt        string              `json:"updatedAt"`
}

type APIBalance struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	LeaveTypeID     string              `json:"leaveTypeId"`
	LeaveTypeName   string              `json:"leaveTypeName"`
	LeaveType       json.RawMessage     `json:"leaveType"`
	Year            int                 `json:"year"`
	TotalAllocated  decimal.NullDecimal `json:"totalAllocated"`
	TotalDays       decimal.NullDecimal `json:"totalDays"`
	UsedDays        decimal.NullDecimal `json:"usedDays"`
	PendingDays     decimal.NullDecimal `json:"pendingDays"`
	AvailableDays   decimal.NullDecimal `json:"availableDays"`
	CarriedOverDays decimal.NullDecimal `json:"carriedOverDays"`
	CarryoverDays   decimal.NullDecimal `json:"carryoverDays"`
	AccruedDays     decimal.NullDecimal `json:"accruedDays"`
	LastAccrualDate string              `json:"lastAccrualDate"`
}

type APILeaveType struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name"`
	Description          string              `json:"description"`
	AnnualAllocation     decimal.NullDecimal `json:"annualAllocation"`
	MaxDays              decimal.NullDecimal `json:"maxDays"`
	AccrualRate          decimal.NullDecimal `json:"accrualRate"`
	RequiresDocument     bool                `json:"requiresDocument"`
	RequiresReason       bool                `json:"requiresReason"`
	MaxCarryoverDays     decimal.NullDecimal `json:"maxCarryoverDays"`
	CarryoverExpiryMonth int                 `json:"carryoverExpiryMonth"`
	CarryoverExpiryDay   int                 `json:"carryoverExpiryDay"`
	IsActive             *bool               `json:"isActive"`
	Active               *bool               `json:"active"`
}

type APIHoliday struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Year        int    `json:"year"`
	Description string `json:"description"`
	IsRecurring bool   `json:"isRecurring"`
	Recurring   bool   `json:"recurring"`
}

type APIAdjustment struct {
	ID               string              `json:"id"`
	LeaveBalanceID   string              `json:"leaveBalanceId"`
	AdjustedBy       string              `json:"adjustedBy"`
	AdjustmentAmount decimal.NullDecimal `json:"adjustmentAmount"`
	Reason           string              `json:"reason"`
	PreviousBalance  decimal.NullDecimal `json:"previousBalance"`
	NewBalance       decimal.NullDecimal `json:"newBalance"`
	CreatedAt        string              `json:"createdAt"`
}

func MapApplication(in APIApplication) Application {
	typeRef := parseTypeRef(in.LeaveType)
	out := Application{
		ID:              in.ID,
		UserID:          firstNonEmpty(in.UserID, in.EmployeeID),
		UserName:        firstNonEmpty(in.UserName, in.EmployeeName),
		LeaveTypeID:     firstNonEmpty(in.LeaveTypeID, typeRef.ID),
		LeaveTypeName:   firstNonEmpty(in.LeaveTypeName, typeRef.Name),
		Reason:          in.Reason,
		Status:          Status(strings.ToUpper(strings.TrimSpace(in.Status))),
		ReviewedBy:      firstNonEmpty(in.ReviewedBy, in.ApproverID),
		ReviewerName:    firstNonEmpty(in.ReviewerName, in.ApproverName),
		ReviewerComment: firstNonEmpty(in.ReviewerComment, in.ApprovalComments),
		UpdatedAt:       parseTimestamp(in.UpdatedAt),
	}
	if out.Status == "" {
		out.Status = StatusPending
	}

	if t, err := ParseDate(in.StartDate); err == nil {
		out.StartDate = t
	}
	if t, err := ParseDate(in.EndDate); err == nil {
		out.EndDate = t
	}
	out.NumberOfDays = firstDecimal(in.NumberOfDays, in.Days)

	out.DocumentURL = in.DocumentURL
	if out.DocumentURL == "" && len(in.Documents) > 0 {
		out.DocumentURL = in.Documents[0]
	}

	out.CreatedAt = parseTimestamp(firstNonEmpty(in.CreatedAt, in.SubmittedAt))
	out.ReviewedAt = parseTimestamp(in.ReviewedAt)
	approvedAt := parseTimestamp(in.ApprovedAt)
	rejectedAt := parseTimestamp(in.RejectedAt)
	if out.ReviewedAt == nil {
		switch out.Status {
		case StatusApproved:
			out.ReviewedAt = approvedAt
		case StatusRejected:
			out.ReviewedAt = rejectedAt
		}
	}
	switch out.Status {
	case StatusApproved:
		out.ApprovedAt = out.ReviewedAt
	case StatusRejected:
		out.RejectedAt = out.ReviewedAt
	}

	out.EmployeeID = out.UserID
	out.Days = out.NumberOfDays
	out.SubmittedAt = out.CreatedAt
	out.ApproverID = out.ReviewedBy
	out.ApprovalComments = out.ReviewerComment
	if out.DocumentURL != "" {
		out.Documents = []string{out.DocumentURL}
	}
	return out
}

func MapBalance(in APIBalance) Balance {
	typeRef := parseTypeRef(in.LeaveType)
	out := Balance{
		ID:              in.ID,
		UserID:          in.UserID,
		LeaveTypeID:     firstNonEmpty(in.LeaveTypeID, typeRef.ID),
		LeaveTypeName:   firstNonEmpty(in.LeaveTypeName, typeRef.Name),
		Year:            in.Year,
		TotalAllocated:  firstDecimal(in.TotalAllocated, in.TotalDays),
		UsedDays:        firstDecimal(in.UsedDays),
		PendingDays:     firstDecimal(in.PendingDays),
		CarriedOverDays: firstDecimal(in.CarriedOverDays, in.CarryoverDays),
		AccruedDays:     firstDecimal(in.AccruedDays),
		LastAccrualDate: parseTimestamp(in.LastAccrualDate),
	}
	// Available is the server's figure; nil when it was not sent.
	if in.AvailableDays.Valid {
		v := in.AvailableDays.Decimal
		out.AvailableDays = &v
	}
	out.TotalDays = out.TotalAllocated
	out.CarryoverDays = out.CarriedOverDays
	return out
}

func MapLeaveType(in APILeaveType) LeaveType {
	out := LeaveType{
		ID:                   in.ID,
		Name:                 strings.TrimSpace(in.Name),
		Description:          in.Description,
		AnnualAllocation:     firstDecimal(in.AnnualAllocation, in.MaxDays),
		AccrualRate:          firstDecimal(in.AccrualRate),
		RequiresDocument:     in.RequiresDocument,
		RequiresReason:       in.RequiresReason,
		CarryoverExpiryMonth: in.CarryoverExpiryMonth,
		CarryoverExpiryDay:   in.CarryoverExpiryDay,
		IsActive:             true,
	}
	if in.MaxCarryoverDays.Valid {
		v := in.MaxCarryoverDays.Decimal
		out.MaxCarryoverDays = &v
	}
	switch {
	case in.IsActive != nil:
		out.IsActive = *in.IsActive
	case in.Active != nil:
		out.IsActive = *in.Active
	}
	out.MaxDays = out.AnnualAllocation
	return out
}

func MapHoliday(in APIHoliday) Holiday {
	out := Holiday{
		ID:          in.ID,
		Name:        strings.TrimSpace(in.Name),
		Year:        in.Year,
		Description: in.Description,
		IsRecurring: in.IsRecurring || in.Recurring,
	}
	if t, err := ParseDate(in.Date); err == nil {
		out.Date = t
		if out.Year == 0 {
			out.Year = t.Year()
		}
	}
	return out
}

func MapAdjustment(in APIAdjustment) Adjustment {
	return Adjustment{
		ID:               in.ID,
		LeaveBalanceID:   in.LeaveBalanceID,
		AdjustedBy:       in.AdjustedBy,
		AdjustmentAmount: firstDecimal(in.AdjustmentAmount),
		Reason:           in.Reason,
		PreviousBalance:  firstDecimal(in.PreviousBalance),
		NewBalance:       firstDecimal(in.NewBalance),
		CreatedAt:        parseTimestamp(in.CreatedAt),
	}
}

type typeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// parseTypeRef reads a leaveType that is either a plain name or an object.
func parseTypeRef(raw json.RawMessage) typeRef {
	if len(raw) == 0 {
		return typeRef{}
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return typeRef{Name: strings.TrimSpace(name)}
	}
	var ref typeRef
	if err := json.Unmarshal(raw, &ref); err == nil {
		return ref
	}
	return typeRef{}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func parseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstDecimal(values ...decimal.NullDecimal) decimal.Decimal {
	for _, v := range values {
		if v.Valid {
			return v.Decimal
		}
	}
	return decimal.Zero
}
