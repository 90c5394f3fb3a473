package export

import (
	"fmt"
	"io"
	"time"

	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/security"
	"axiapac.com/timeclock/store"
	"axiapac.com/timeclock/utils"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Punches"

var Columns = []string{
	"Event UUID", "Type", "Job", "User", "Timestamp (UTC)", "Device Time",
	"Latitude", "Longitude", "Accuracy (m)", "Address", "Status", "Encrypted", "Created", "Updated",
}

// Summary counts what went into a workbook.
type Summary struct {
	Rows       int
	Unreadable int
}

// WriteTimesheet writes records as an .xlsx workbook to w. Records that cannot
// be decoded with key keep their uuid and status columns; the rest are blank.
func WriteTimesheet(w io.Writer, records []model.TimeEventRecord, key *security.Key) (Summary, error) {
	var summary Summary

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return summary, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return summary, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return summary, fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(SheetName, "A1", last+"1", bold); err != nil {
		return summary, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return summary, fmt.Errorf("freeze header: %w", err)
	}

	for i := range records {
		rec := &records[i]
		row := recordRow(rec, key)
		if row == nil {
			summary.Unreadable++
			row = []any{rec.EventUUID, "", "", "", "", "", "", "", "", "", string(rec.Status), encrypted(rec), millis(rec.CreatedAt), millis(rec.UpdatedAt)}
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return summary, fmt.Errorf("write row %d: %w", i+2, err)
		}
		summary.Rows++
	}

	if err := f.SetColWidth(SheetName, "A", "A", 38); err != nil {
		return summary, err
	}
	if err := f.SetColWidth(SheetName, "E", "F", 26); err != nil {
		return summary, err
	}

	if _, err := f.WriteTo(w); err != nil {
		return summary, fmt.Errorf("write workbook: %w", err)
	}
	return summary, nil
}

func recordRow(rec *model.TimeEventRecord, key *security.Key) []any {
	evt, err := store.DecodeRecord(rec, key)
	if err != nil {
		return nil
	}
	return []any{
		evt.EventUUID,
		string(evt.Type),
		evt.JobID,
		evt.UserID,
		evt.TimestampUTC.UTC().Format(time.RFC3339),
		evt.DeviceTime,
		evt.GPS.Lat,
		evt.GPS.Lng,
		evt.GPS.AccuracyM,
		utils.Format(evt.GPS.Address),
		string(rec.Status),
		encrypted(rec),
		millis(rec.CreatedAt),
		millis(rec.UpdatedAt),
	}
}

func encrypted(rec *model.TimeEventRecord) string {
	return utils.FormatBoolean(rec.Encrypted(), "yes", "no")
}

func millis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
