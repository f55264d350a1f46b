package export

import (
	"bytes"
	"testing"
	"time"

	"babyhabits/internal/domain/tracking"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookSheets(t *testing.T) {
	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	end := start.Add(25 * time.Minute)
	duration := 25
	amount := 120.0
	color := "yellow"
	mucus := true

	history := tracking.History{
		From: start.Add(-24 * time.Hour),
		To:   start.Add(24 * time.Hour),
		FeedingSessions: []tracking.FeedingSession{
			{ID: "f1", StartTime: start, EndTime: &end, Duration: &duration, Side: tracking.SideBottle, Amount: &amount, Note: "formula"},
			{ID: "f2", StartTime: start.Add(3 * time.Hour), Side: tracking.SideLeft},
		},
		DiaperEvents: []tracking.DiaperEvent{
			{ID: "d1", Timestamp: start, Type: tracking.DiaperMixed, Color: &color, HasMucus: &mucus},
		},
		WeightEntries: []tracking.WeightEntry{
			{ID: "w1", Timestamp: start, WeightGrams: 3200},
		},
	}

	loc := time.FixedZone("CET", 3600)
	data, err := Workbook(history, loc)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{SheetFeedings, SheetSleeps, SheetDiapers, SheetWeights}, f.GetSheetList())

	rows, err := f.GetRows(SheetFeedings)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Start", rows[0][0])
	require.Equal(t, "2024-03-10 09:00", rows[1][0])
	require.Equal(t, "25", rows[1][2])
	require.Equal(t, "bottle", rows[1][3])
	require.Equal(t, "breastfeeding", rows[2][3])

	rows, err = f.GetRows(SheetDiapers)
	require.NoError(t, err)
	require.Equal(t, []string{"2024-03-10 09:00", "mixed", "yellow", "", "Yes"}, rows[1])

	rows, err = f.GetRows(SheetSleeps)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = f.GetRows(SheetWeights)
	require.NoError(t, err)
	require.Equal(t, "3200", rows[1][1])
}
