// Package export formats completion data as CSV or JSON files.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", domain.ErrUnsupportedFormat
}

const (
	TypeAnalytics = "analytics"
	TypeBatch     = "batch"
)

// Row is one exported day. UserID is only set in batch exports.
type Row struct {
	UserID string `json:"userId,omitempty"`
	domain.TaskCompletionData
}

type Metadata struct {
	ExportedAt   time.Time          `json:"exportedAt"`
	TotalRecords int                `json:"totalRecords"`
	DateRange    *domain.DateWindow `json:"dateRange"`
}

type Payload struct {
	UserID     string           `json:"userId,omitempty"`
	UserIDs    []string         `json:"userIds,omitempty"`
	ExportType string           `json:"exportType"`
	TimeRange  domain.TimeRange `json:"timeRange"`
	Data       []Row            `json:"data"`
	Metadata   Metadata         `json:"metadata"`
}

func NewPayload(userID string, tr domain.TimeRange, data []domain.TaskCompletionData, now time.Time) Payload {
	rows := lo.Map(data, func(d domain.TaskCompletionData, _ int) Row {
		return Row{TaskCompletionData: d}
	})
	return Payload{
		UserID:     userID,
		ExportType: TypeAnalytics,
		TimeRange:  tr,
		Data:       rows,
		Metadata:   metadataFor(rows, now),
	}
}

// MergeBatch concatenates per-user payloads in the given order. The combined
// date range is computed from the parsed dates of every row.
func MergeBatch(payloads []Payload, tr domain.TimeRange, now time.Time) Payload {
	var rows []Row
	userIDs := make([]string, 0, len(payloads))
	for _, p := range payloads {
		userIDs = append(userIDs, p.UserID)
		for _, r := range p.Data {
			r.UserID = p.UserID
			rows = append(rows, r)
		}
	}
	if rows == nil {
		rows = []Row{}
	}
	return Payload{
		UserIDs:    userIDs,
		ExportType: TypeBatch,
		TimeRange:  tr,
		Data:       rows,
		Metadata:   metadataFor(rows, now),
	}
}

func metadataFor(rows []Row, now time.Time) Metadata {
	md := Metadata{ExportedAt: now.UTC(), TotalRecords: len(rows)}
	dates := lo.Map(rows, func(r Row, _ int) domain.Date { return r.Date })
	if start, end, ok := domain.MinMaxDates(dates); ok {
		md.DateRange = &domain.DateWindow{Start: start, End: end}
	}
	return md
}

// Validate reports whether raw is an export payload with every required
// top-level field present.
func Validate(raw []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	for _, key := range []string{"exportType", "timeRange", "data", "metadata"} {
		if _, ok := fields[key]; !ok {
			return false
		}
	}
	_, single := fields["userId"]
	_, batch := fields["userIds"]
	return single || batch
}

func timestamp(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("%s_%03d", now.Format("20060102_150405"), now.Nanosecond()/int(time.Millisecond))
}

func Filename(userID string, tr domain.TimeRange, f Format, now time.Time) string {
	return fmt.Sprintf("90hard_analytics_%s_%s_%s.%s", userID, tr, timestamp(now), f)
}

func BatchFilename(users int, tr domain.TimeRange, f Format, now time.Time) string {
	return fmt.Sprintf("90hard_batch_%dusers_%s_%s.%s", users, tr, timestamp(now), f)
}
