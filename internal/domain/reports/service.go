package reports

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leaveportal/internal/platform/apiclient"
)

type Format string

const (
	FormatExcel Format = "excel"
	FormatCSV   Format = "csv"
)

var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat accepts the format names used in links ("excel", "xlsx", "csv").
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "excel", "xlsx":
		return FormatExcel, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", ErrUnknownFormat
}

func (f Format) Extension() string {
	if f == FormatCSV {
		return "csv"
	}
	return "xlsx"
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filter narrows the server-side leave request report.
type Filter struct {
	Year   int
	Status string
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if f.Year > 0 {
		q.Set("year", strconv.Itoa(f.Year))
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		q.Set("status", strings.ToUpper(s))
	}
	return q
}

// Report is a generated file ready to stream to the browser.
type Report struct {
	FileName    string
	ContentType string
	*apiclient.Blob
}

type Service struct {
	client *apiclient.Client
	now    func() time.Time
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client, now: time.Now}
}

// Download fetches the backend report. The caller closes Report.Body.
func (s *Service) Download(ctx context.Context, format Format, filter Filter) (*Report, error) {
	blob, err := s.client.Download(ctx, "/reports/leave-requests/"+string(format), filter.query())
	if err != nil {
		return nil, err
	}
	contentType := blob.ContentType
	if contentType == "" || strings.HasPrefix(contentType, "application/json") {
		contentType = format.ContentType()
	}
	return &Report{
		FileName:    FileName("leave-report", format.Extension(), s.now()),
		ContentType: contentType,
		Blob:        blob,
	}, nil
}

// FileName stamps prefix with a local timestamp, e.g.
// leave-report-20250601-153000.xlsx.
func FileName(prefix, ext string, at time.Time) string {
	return fmt.Sprintf("%s-%s.%s", prefix, at.Format("20060102-150405"), ext)
}
