package reports

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"leaveportal/internal/domain/leave"
)

// ApplicationPDF renders a printable summary of one leave request.
func ApplicationPDF(w io.Writer, app leave.Application) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Leave request "+app.ID, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Request")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	line := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(45, 8, label)
		pdf.SetFont("Helvetica", "", 12)
		pdf.MultiCell(0, 8, tr(value), "", "L", false)
	}

	line("Reference", app.ID)
	line("Employee", app.UserName)
	line("Leave type", app.LeaveTypeName)
	line("Period", fmt.Sprintf("%s to %s", leave.FormatDate(app.StartDate), leave.FormatDate(app.EndDate)))
	line("Days", app.NumberOfDays.String())
	line("Status", string(app.Status))
	line("Submitted", formatTime(app.CreatedAt))
	line("Reason", app.Reason)
	pdf.Ln(4)
	line("Reviewed by", firstOf(app.ReviewerName, app.ReviewedBy))
	line("Reviewed at", formatTime(app.ReviewedAt))
	line("Comment", app.ReviewerComment)
	line("Document", app.DocumentURL)

	return pdf.Output(w)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
