package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

var csvHeader = []string{
	"Date", "Workout1", "Workout2", "Diet", "Water", "Reading", "Photo", "Completion%", "Completed Tasks",
}

func Encode(p Payload, f Format, includeMetadata bool) ([]byte, error) {
	switch f {
	case FormatCSV:
		return CSV(p, includeMetadata)
	case FormatJSON:
		return JSON(p)
	}
	return nil, domain.ErrUnsupportedFormat
}

// CSV renders one line per row under a fixed header. Batch rows keep the
// same shape; the users they belong to are listed in the metadata block.
func CSV(p Payload, includeMetadata bool) ([]byte, error) {
	var buf bytes.Buffer
	if includeMetadata {
		writeComments(&buf, p)
	}

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, r := range p.Data {
		rec := []string{
			r.Date.String(),
			flag(r.Workout1), flag(r.Workout2), flag(r.Diet),
			flag(r.Water), flag(r.Reading), flag(r.Photo),
			strconv.Itoa(r.CompletionPercentage),
			strconv.Itoa(r.CompletedTasks),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeComments(buf *bytes.Buffer, p Payload) {
	buf.WriteString("# 90 Hard Analytics Export\n")
	if p.ExportType == TypeBatch {
		fmt.Fprintf(buf, "# Users: %d\n", len(p.UserIDs))
		fmt.Fprintf(buf, "# User IDs: %s\n", strings.Join(p.UserIDs, ", "))
	} else {
		fmt.Fprintf(buf, "# User ID: %s\n", p.UserID)
	}
	fmt.Fprintf(buf, "# Time Range: %s\n", p.TimeRange)
	fmt.Fprintf(buf, "# Export Date: %s\n", p.Metadata.ExportedAt.Format(time.RFC3339))
	fmt.Fprintf(buf, "# Total Records: %d\n", p.Metadata.TotalRecords)
	if dr := p.Metadata.DateRange; dr != nil {
		fmt.Fprintf(buf, "# Date Range: %s to %s\n", dr.Start, dr.End)
	} else {
		buf.WriteString("# Date Range: none\n")
	}
	buf.WriteString("#\n")
}

func JSON(p Payload) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
