// Package export renders tracking history as an XLSX workbook.
package export

import (
	"bytes"
	"fmt"
	"time"

	"babyhabits/internal/domain/tracking"
	"github.com/xuri/excelize/v2"
)

const (
	SheetFeedings = "Feedings"
	SheetSleeps   = "Sleeps"
	SheetDiapers  = "Diapers"
	SheetWeights  = "Weights"

	timeLayout = "2006-01-02 15:04"
)

type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]interface{}
}

// Workbook writes one sheet per record type, times rendered in loc.
func Workbook(history tracking.History, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	sheets := []sheet{
		feedingSheet(history.FeedingSessions, loc),
		sleepSheet(history.SleepSessions, loc),
		diaperSheet(history.DiaperEvents, loc),
		weightSheet(history.WeightEntries, loc),
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheets[0].name); err != nil {
		return nil, fmt.Errorf("rename first sheet: %w", err)
	}
	for _, s := range sheets[1:] {
		if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", s.name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for _, s := range sheets {
		if err := writeSheet(f, s, headerStyle); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	headers := make([]interface{}, len(s.headers))
	for i, header := range s.headers {
		headers[i] = header
	}
	if err := f.SetSheetRow(s.name, "A1", &headers); err != nil {
		return fmt.Errorf("write %s header: %w", s.name, err)
	}

	last, err := excelize.CoordinatesToCellName(len(s.headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", s.name, err)
	}

	for i, width := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, col, col, width); err != nil {
			return fmt.Errorf("set %s column width: %w", s.name, err)
		}
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(s.name, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", s.name, i+2, err)
		}
	}

	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func feedingSheet(sessions []tracking.FeedingSession, loc *time.Location) sheet {
	s := sheet{
		name:    SheetFeedings,
		headers: []string{"Start", "End", "Minutes", "Type", "Side", "Amount (ml)", "Note"},
		widths:  []float64{18, 18, 10, 14, 10, 12, 40},
	}
	for _, session := range sessions {
		s.rows = append(s.rows, []interface{}{
			formatTime(session.StartTime, loc),
			formatOptionalTime(session.EndTime, loc),
			optionalInt(session.Duration),
			string(session.Kind()),
			string(session.Side),
			optionalFloat(session.Amount),
			session.Note,
		})
	}
	return s
}

func sleepSheet(sessions []tracking.SleepSession, loc *time.Location) sheet {
	s := sheet{
		name:    SheetSleeps,
		headers: []string{"Start", "End", "Minutes", "Note"},
		widths:  []float64{18, 18, 10, 40},
	}
	for _, session := range sessions {
		s.rows = append(s.rows, []interface{}{
			formatTime(session.StartTime, loc),
			formatOptionalTime(session.EndTime, loc),
			optionalInt(session.Duration),
			session.Note,
		})
	}
	return s
}

func diaperSheet(events []tracking.DiaperEvent, loc *time.Location) sheet {
	s := sheet{
		name:    SheetDiapers,
		headers: []string{"Time", "Type", "Color", "Texture", "Mucus", "Note"},
		widths:  []float64{18, 10, 10, 10, 8, 40},
	}
	for _, event := range events {
		mucus := ""
		if event.HasMucus != nil {
			mucus = "No"
			if *event.HasMucus {
				mucus = "Yes"
			}
		}
		s.rows = append(s.rows, []interface{}{
			formatTime(event.Timestamp, loc),
			string(event.Type),
			optionalString(event.Color),
			optionalString(event.Texture),
			mucus,
			event.Note,
		})
	}
	return s
}

func weightSheet(entries []tracking.WeightEntry, loc *time.Location) sheet {
	s := sheet{
		name:    SheetWeights,
		headers: []string{"Time", "Grams", "Note"},
		widths:  []float64{18, 10, 40},
	}
	for _, entry := range entries {
		s.rows = append(s.rows, []interface{}{
			formatTime(entry.Timestamp, loc),
			entry.WeightGrams,
			entry.Note,
		})
	}
	return s
}

func formatTime(value time.Time, loc *time.Location) string {
	return value.In(loc).Format(timeLayout)
}

func formatOptionalTime(value *time.Time, loc *time.Location) string {
	if value == nil {
		return ""
	}
	return formatTime(*value, loc)
}

func optionalInt(value *int) interface{} {
	if value == nil {
		return ""
	}
	return *value
}

func optionalFloat(value *float64) interface{} {
	if value == nil {
		return ""
	}
	return *value
}

func optionalString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
