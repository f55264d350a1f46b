package tracking

import "time"

type Stats struct {
	Feeding FeedingStats
	Sleep   SleepStats
	Diaper  DiaperStats
	Weight  WeightStats
}

type FeedingStats struct {
	Total          int
	Completed      int
	Active         int
	Breast         int
	Bottle         int
	Food           int
	BottleAmount   float64
	TotalMinutes   int
	AverageMinutes int
	LastStart      *time.Time
}

type SleepStats struct {
	Total          int
	Completed      int
	Active         int
	TotalMinutes   int
	LongestMinutes int
}

type DiaperStats struct {
	Total int
	Wet   int
	Dirty int
	Mixed int
	Last  *time.Time
}

type WeightStats struct {
	Count  int
	Latest *WeightEntry
}

// ComputeStats derives same-day statistics from loaded data plus the open
// sessions. An open session that started before today is still counted as
// active. It performs no I/O.
func ComputeStats(data TodayData, openFeeding *FeedingSession, openSleep *SleepSession) Stats {
	return Stats{
		Feeding: feedingStats(data.FeedingSessions, openFeeding),
		Sleep:   sleepStats(data.SleepSessions, openSleep),
		Diaper:  diaperStats(data.DiaperEvents),
		Weight:  weightStats(data.WeightEntries),
	}
}

func feedingStats(sessions []FeedingSession, open *FeedingSession) FeedingStats {
	var stats FeedingStats
	openSeen := false

	for i := range sessions {
		session := sessions[i]
		stats.Total++
		if session.IsOpen() {
			stats.Active++
		} else {
			stats.Completed++
			if session.Duration != nil {
				stats.TotalMinutes += *session.Duration
			}
		}
		if open != nil && session.ID == open.ID {
			openSeen = true
		}

		switch session.Kind() {
		case KindBottle:
			stats.Bottle++
			if session.Amount != nil {
				stats.BottleAmount += *session.Amount
			}
		case KindFood:
			stats.Food++
		default:
			stats.Breast++
		}

		if stats.LastStart == nil || session.StartTime.After(*stats.LastStart) {
			start := session.StartTime
			stats.LastStart = &start
		}
	}

	if open != nil && !openSeen {
		stats.Total++
		stats.Active++
	}
	if stats.Completed > 0 {
		stats.AverageMinutes = stats.TotalMinutes / stats.Completed
	}
	return stats
}

func sleepStats(sessions []SleepSession, open *SleepSession) SleepStats {
	var stats SleepStats
	openSeen := false

	for _, session := range sessions {
		stats.Total++
		if open != nil && session.ID == open.ID {
			openSeen = true
		}
		if session.IsOpen() {
			stats.Active++
			continue
		}
		stats.Completed++
		if session.Duration == nil {
			continue
		}
		stats.TotalMinutes += *session.Duration
		if *session.Duration > stats.LongestMinutes {
			stats.LongestMinutes = *session.Duration
		}
	}

	if open != nil && !openSeen {
		stats.Total++
		stats.Active++
	}
	return stats
}

func diaperStats(events []DiaperEvent) DiaperStats {
	var stats DiaperStats
	for _, event := range events {
		stats.Total++
		if event.IsWet() {
			stats.Wet++
		}
		if event.IsDirty() {
			stats.Dirty++
		}
		if event.Type == DiaperMixed {
			stats.Mixed++
		}
		if stats.Last == nil || event.Timestamp.After(*stats.Last) {
			ts := event.Timestamp
			stats.Last = &ts
		}
	}
	return stats
}

func weightStats(entries []WeightEntry) WeightStats {
	stats := WeightStats{Count: len(entries)}
	for i := range entries {
		if stats.Latest == nil || entries[i].Timestamp.After(stats.Latest.Timestamp) {
			latest := entries[i]
			stats.Latest = &latest
		}
	}
	return stats
}
