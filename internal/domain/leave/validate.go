package leave

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/platform/config"
	"leaveportal/internal/platform/validation"
)

const (
	MsgSelectDates       = "Please select start and end dates"
	MsgEndBeforeStart    = "End date must be after start date"
	MsgInvalidRange      = "Invalid date range"
	MsgInvalidDate       = "Please enter a valid date"
	MsgSelectLeaveType   = "Please select a leave type"
	MsgUnknownLeaveType  = "The selected leave type is not available"
	MsgReasonRequired    = "Reason is required"
	MsgDocumentRequired  = "Documents are required"
	MsgFileTooLarge      = "File size must be less than 10MB"
	MsgFileType          = "Invalid file type. Please upload PDF, DOC, DOCX, JPG, or PNG files"
	MsgRejectNeedsReason = "Comments are required when rejecting an application"
	MsgInvalidDecision   = "Please choose approve or reject"
	MsgAdjustmentAmount  = "Please enter a non-zero number of days"
	MsgAdjustmentReason  = "Please give a reason for the adjustment"
)

var (
	ErrNotReviewer    = errors.New("only managers and admins can review leave requests")
	ErrNotReviewable  = errors.New("this leave request has already been reviewed")
	ErrNotCancellable = errors.New("only your own pending leave requests can be cancelled")
)

var allowedDocumentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// Browsers sometimes send an empty or generic content type; fall back to
// the extension in that case.
var documentExtensions = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// ValidateDocument is the upload pre-flight: size limit and MIME allow-list.
func ValidateDocument(name string, size int64, contentType string) error {
	v := validation.New()
	checkDocument(v, name, size, contentType)
	return v.Err()
}

func checkDocument(v *validation.Validator, name string, size int64, contentType string) {
	if size > config.MaxDocumentBytes {
		v.Add("document", MsgFileTooLarge)
		return
	}
	if !allowedDocumentTypes[documentType(name, contentType)] {
		v.Add("document", MsgFileType)
	}
}

func documentType(name, contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return documentExtensions[strings.ToLower(filepath.Ext(name))]
}

// ValidateApplication checks an apply/edit submission against the selected
// leave type's rules. types should be the active leave types offered in the
// form. Nothing is sent when this fails.
func ValidateApplication(in ApplicationInput, types []LeaveType) (ApplicationRequest, error) {
	v := validation.New()
	req := ApplicationRequest{
		LeaveTypeID: strings.TrimSpace(in.LeaveTypeID),
		Reason:      strings.TrimSpace(in.Reason),
		Document:    in.Document,
	}

	var selected *LeaveType
	if v.Required("leaveTypeId", req.LeaveTypeID, MsgSelectLeaveType) {
		for i := range types {
			if types[i].ID == req.LeaveTypeID && types[i].IsActive {
				selected = &types[i]
				break
			}
		}
		v.Check(selected != nil, "leaveTypeId", MsgUnknownLeaveType)
	}

	hasStart := v.Required("startDate", in.StartDate, MsgSelectDates)
	hasEnd := v.Required("endDate", in.EndDate, MsgSelectDates)
	if hasStart && hasEnd {
		start, startErr := ParseDate(in.StartDate)
		end, endErr := ParseDate(in.EndDate)
		v.Check(startErr == nil, "startDate", MsgInvalidDate)
		v.Check(endErr == nil, "endDate", MsgInvalidDate)
		if startErr == nil && endErr == nil {
			days, err := CalculateDays(start, end)
			switch {
			case errors.Is(err, ErrEndBeforeStart):
				v.Add("endDate", MsgEndBeforeStart)
			case err != nil:
				v.Add("endDate", MsgInvalidRange)
			default:
				req.StartDate, req.EndDate, req.Days = start, end, days
			}
		}
	}

	if selected != nil {
		if selected.RequiresReason {
			v.Required("reason", req.Reason, MsgReasonRequired)
		}
		if selected.RequiresDocument && (in.Document == nil || in.Document.Size == 0) {
			v.Add("document", MsgDocumentRequired)
		}
	}
	if in.Document != nil && in.Document.Size > 0 {
		checkDocument(v, in.Document.FileName, in.Document.Size, in.Document.ContentType)
	}

	if err := v.Err(); err != nil {
		return ApplicationRequest{}, err
	}
	if in.Document != nil && in.Document.Size == 0 {
		req.Document = nil
	}
	return req, nil
}

// ValidateReview checks the reviewer's role and the decision form. A role
// failure is ErrNotReviewer; form problems are *validation.Error.
func ValidateReview(user auth.User, review Review) (Review, error) {
	if !user.Role.CanReview() {
		return Review{}, ErrNotReviewer
	}

	v := validation.New()
	review.Decision = Decision(strings.ToUpper(strings.TrimSpace(string(review.Decision))))
	review.Comment = strings.TrimSpace(review.Comment)
	switch review.Decision {
	case DecisionApprove:
	case DecisionReject:
		v.Required("comment", review.Comment, MsgRejectNeedsReason)
	default:
		v.Add("decision", MsgInvalidDecision)
	}
	if err := v.Err(); err != nil {
		return Review{}, err
	}
	return review, nil
}

// ValidateAdjustment parses a balance adjustment form. Negative amounts
// deduct days.
func ValidateAdjustment(rawAmount, reason string) (AdjustmentInput, error) {
	v := validation.New()
	in := AdjustmentInput{Reason: strings.TrimSpace(reason)}
	amount, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
	v.Check(err == nil && !amount.IsZero(), "adjustmentAmount", MsgAdjustmentAmount)
	v.Required("reason", in.Reason, MsgAdjustmentReason)
	if err := v.Err(); err != nil {
		return AdjustmentInput{}, err
	}
	in.AdjustmentAmount = amount
	return in, nil
}
