package leave

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

var Statuses = []Status{StatusRequested, StatusPending, StatusApproved, StatusRejected, StatusCancelled}

// IsReviewable reports whether a manager may still decide on the request.
func (s Status) IsReviewable() bool {
	return s == StatusRequested || s == StatusPending
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// IsCancellable reports whether the owner may still withdraw the request.
func (s Status) IsCancellable() bool {
	return s.IsReviewable()
}

type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Application is the client view of a leave request. Legacy names
// (EmployeeID, Days, SubmittedAt, ApproverID, ApprovalComments) are
// filled from their canonical counterparts.
type Application struct {
	ID              string
	UserID          string
	UserName        string
	LeaveTypeID     string
	LeaveTypeName   string
	StartDate       time.Time
	EndDate         time.Time
	NumberOfDays    decimal.Decimal
	Reason          string
	Status          Status
	ReviewedBy      string
	ReviewerName    string
	ReviewedAt      *time.Time
	ReviewerComment string
	DocumentURL     string
	CreatedAt       *time.Time
	UpdatedAt       *time.Time

	EmployeeID       string
	Days             decimal.Decimal
	SubmittedAt      *time.Time
	Documents        []string
	ApproverID       string
	ApprovalComments string
	ApprovedAt       *time.Time
	RejectedAt       *time.Time
}

func (a Application) IsOwnedBy(userID string) bool {
	return userID != "" && a.UserID == userID
}

type Balance struct {
	ID              string
	UserID          string
	LeaveTypeID     string
	LeaveTypeName   string
	Year            int
	TotalAllocated  decimal.Decimal
	UsedDays        decimal.Decimal
	PendingDays     decimal.Decimal
	AvailableDays   *decimal.Decimal
	CarriedOverDays decimal.Decimal
	AccruedDays     decimal.Decimal
	LastAccrualDate *time.Time

	TotalDays     decimal.Decimal
	CarryoverDays decimal.Decimal
}

// UsedPercent is the share of the allocation already used, clamped to 0..100.
func (b Balance) UsedPercent() int {
	if !b.TotalAllocated.IsPositive() {
		return 0
	}
	pct := b.UsedDays.Div(b.TotalAllocated).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

type LeaveType struct {
	ID                   string
	Name                 string
	Description          string
	AnnualAllocation     decimal.Decimal
	AccrualRate          decimal.Decimal
	RequiresDocument     bool
	RequiresReason       bool
	MaxCarryoverDays     *decimal.Decimal
	CarryoverExpiryMonth int
	CarryoverExpiryDay   int
	IsActive             bool

	MaxDays decimal.Decimal
}

type Holiday struct {
	ID          string
	Name        string
	Date        time.Time
	Year        int
	Description string
	IsRecurring bool
}

type Adjustment struct {
	ID               string
	LeaveBalanceID   string
	AdjustedBy       string
	AdjustmentAmount decimal.Decimal
	Reason           string
	PreviousBalance  decimal.Decimal
	NewBalance       decimal.Decimal
	CreatedAt        *time.Time
}

// Document is an attachment chosen for upload.
type Document struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
}

// ApplicationInput is the apply/edit form as submitted. Dates stay raw so
// validation can report unparseable input per field.
type ApplicationInput struct {
	LeaveTypeID string
	StartDate   string
	EndDate     string
	Reason      string
	Document    *Document
}

// ApplicationRequest is a validated ApplicationInput.
type ApplicationRequest struct {
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	Days        int
	Reason      string
	Document    *Document
}

type Review struct {
	Decision Decision `json:"decision"`
	Comment  string   `json:"comment,omitempty"`
}

// Filter narrows the admin search over all leave requests.
type Filter struct {
	Status      Status `json:"status,omitempty"`
	UserID      string `json:"userId,omitempty"`
	LeaveTypeID string `json:"leaveTypeId,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

func (f Filter) IsZero() bool {
	return f == Filter{}
}

type LeaveTypeInput struct {
	Name                 string          `form:"name" json:"name" validate:"required,min=2,max=100" msg:"Name must be between 2 and 100 characters"`
	Description          string          `form:"description" json:"description,omitempty" validate:"max=500"`
	AnnualAllocation     decimal.Decimal `form:"annualAllocation" json:"annualAllocation" validate:"gte=0,lte=365" msg:"Annual allocation must be between 0 and 365 days"`
	AccrualRate          decimal.Decimal `form:"accrualRate" json:"accrualRate" validate:"gte=0" msg:"Accrual rate cannot be negative"`
	RequiresDocument     bool            `form:"requiresDocument" json:"requiresDocument"`
	RequiresReason       bool            `form:"requiresReason" json:"requiresReason"`
	MaxCarryoverDays     decimal.Decimal `form:"maxCarryoverDays" json:"maxCarryoverDays" validate:"gte=0" msg:"Carryover days cannot be negative"`
	CarryoverExpiryMonth int             `form:"carryoverExpiryMonth" json:"carryoverExpiryMonth,omitempty" validate:"omitempty,min=1,max=12" msg:"Expiry month must be between 1 and 12"`
	CarryoverExpiryDay   int             `form:"carryoverExpiryDay" json:"carryoverExpiryDay,omitempty" validate:"omitempty,min=1,max=31" msg:"Expiry day must be between 1 and 31"`
	IsActive             bool            `form:"isActive" json:"isActive"`
}

// MarshalJSON sends the day figures as JSON numbers rather than strings.
func (in LeaveTypeInput) MarshalJSON() ([]byte, error) {
	type plain LeaveTypeInput
	return json.Marshal(struct {
		plain
		AnnualAllocation json.Number `json:"annualAllocation"`
		AccrualRate      json.Number `json:"accrualRate"`
		MaxCarryoverDays json.Number `json:"maxCarryoverDays"`
	}{
		plain:            plain(in),
		AnnualAllocation: json.Number(in.AnnualAllocation.String()),
		AccrualRate:      json.Number(in.AccrualRate.String()),
		MaxCarryoverDays: json.Number(in.MaxCarryoverDays.String()),
	})
}

type HolidayInput struct {
	Name        string `form:"name" json:"name" validate:"required,min=2,max=100" msg:"Name must be between 2 and 100 characters"`
	Date        string `form:"date" json:"date" validate:"required,datetime=2006-01-02" msg:"Please enter a valid date"`
	Description string `form:"description" json:"description,omitempty" validate:"max=500"`
	IsRecurring bool   `form:"isRecurring" json:"isRecurring"`
}

type AdjustmentInput struct {
	AdjustmentAmount decimal.Decimal `json:"adjustmentAmount"`
	Reason           string          `json:"reason"`
}
