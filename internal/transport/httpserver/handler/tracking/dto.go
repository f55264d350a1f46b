package tracking

import (
	"time"

	trackingdomain "babyhabits/internal/domain/tracking"
	"babyhabits/internal/transport/httpserver/handler/common"
)

type feedingResponse struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Side      string     `json:"side"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Duration  *int       `json:"duration"`
	Amount    *float64   `json:"amount"`
	Note      string     `json:"note"`
	CreatedBy string     `json:"created_by"`
}

type sleepResponse struct {
	ID        string     `json:"id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Duration  *int       `json:"duration"`
	Note      string     `json:"note"`
	CreatedBy string     `json:"created_by"`
}

type diaperResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Color     *string   `json:"color"`
	Texture   *string   `json:"texture"`
	HasMucus  *bool     `json:"has_mucus"`
	Note      string    `json:"note"`
	CreatedBy string    `json:"created_by"`
}

type weightResponse struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	WeightGrams int       `json:"weight_grams"`
	Note        string    `json:"note"`
	CreatedBy   string    `json:"created_by"`
}

type todayResponse struct {
	Day            string            `json:"day"`
	Feedings       []feedingResponse `json:"feedings"`
	Sleeps         []sleepResponse   `json:"sleeps"`
	Diapers        []diaperResponse  `json:"diapers"`
	Weights        []weightResponse  `json:"weights"`
	CurrentFeeding *feedingResponse  `json:"current_feeding"`
	CurrentSleep   *sleepResponse    `json:"current_sleep"`
	Stats          statsResponse     `json:"stats"`
}

type statsResponse struct {
	Feeding struct {
		Total          int        `json:"total"`
		Completed      int        `json:"completed"`
		Active         int        `json:"active"`
		Breast         int        `json:"breast"`
		Bottle         int        `json:"bottle"`
		Food           int        `json:"food"`
		BottleAmount   float64    `json:"bottle_amount"`
		TotalMinutes   int        `json:"total_minutes"`
		AverageMinutes int        `json:"average_minutes"`
		LastStart      *time.Time `json:"last_start"`
	} `json:"feeding"`
	Sleep struct {
		Total          int `json:"total"`
		Completed      int `json:"completed"`
		Active         int `json:"active"`
		TotalMinutes   int `json:"total_minutes"`
		LongestMinutes int `json:"longest_minutes"`
	} `json:"sleep"`
	Diaper struct {
		Total int        `json:"total"`
		Wet   int        `json:"wet"`
		Dirty int        `json:"dirty"`
		Mixed int        `json:"mixed"`
		Last  *time.Time `json:"last"`
	} `json:"diaper"`
	Weight struct {
		Count  int             `json:"count"`
		Latest *weightResponse `json:"latest"`
	} `json:"weight"`
}

func toFeedingResponse(session trackingdomain.FeedingSession) feedingResponse {
	return feedingResponse{
		ID:        session.ID,
		Kind:      string(session.Kind()),
		Side:      string(session.Side),
		StartTime: session.StartTime,
		EndTime:   session.EndTime,
		Duration:  session.Duration,
		Amount:    session.Amount,
		Note:      session.Note,
		CreatedBy: session.CreatedBy,
	}
}

func toSleepResponse(session trackingdomain.SleepSession) sleepResponse {
	return sleepResponse{
		ID:        session.ID,
		StartTime: session.StartTime,
		EndTime:   session.EndTime,
		Duration:  session.Duration,
		Note:      session.Note,
		CreatedBy: session.CreatedBy,
	}
}

func toDiaperResponse(event trackingdomain.DiaperEvent) diaperResponse {
	return diaperResponse{
		ID:        event.ID,
		Timestamp: event.Timestamp,
		Type:      string(event.Type),
		Color:     event.Color,
		Texture:   event.Texture,
		HasMucus:  event.HasMucus,
		Note:      event.Note,
		CreatedBy: event.CreatedBy,
	}
}

func toWeightResponse(entry trackingdomain.WeightEntry) weightResponse {
	return weightResponse{
		ID:          entry.ID,
		Timestamp:   entry.Timestamp,
		WeightGrams: entry.WeightGrams,
		Note:        entry.Note,
		CreatedBy:   entry.CreatedBy,
	}
}

func toTodayResponse(data trackingdomain.TodayData, stats trackingdomain.Stats, feeding *trackingdomain.FeedingSession, sleep *trackingdomain.SleepSession) todayResponse {
	response := todayResponse{
		Day:      data.Day.Format(common.DateLayout),
		Feedings: make([]feedingResponse, 0, len(data.FeedingSessions)),
		Sleeps:   make([]sleepResponse, 0, len(data.SleepSessions)),
		Diapers:  make([]diaperResponse, 0, len(data.DiaperEvents)),
		Weights:  make([]weightResponse, 0, len(data.WeightEntries)),
		Stats:    toStatsResponse(stats),
	}
	for _, session := range data.FeedingSessions {
		response.Feedings = append(response.Feedings, toFeedingResponse(session))
	}
	for _, session := range data.SleepSessions {
		response.Sleeps = append(response.Sleeps, toSleepResponse(session))
	}
	for _, event := range data.DiaperEvents {
		response.Diapers = append(response.Diapers, toDiaperResponse(event))
	}
	for _, entry := range data.WeightEntries {
		response.Weights = append(response.Weights, toWeightResponse(entry))
	}
	if feeding != nil {
		current := toFeedingResponse(*feeding)
		response.CurrentFeeding = &current
	}
	if sleep != nil {
		current := toSleepResponse(*sleep)
		response.CurrentSleep = &current
	}
	return response
}

func toStatsResponse(stats trackingdomain.Stats) statsResponse {
	var response statsResponse

	response.Feeding.Total = stats.Feeding.Total
	response.Feeding.Completed = stats.Feeding.Completed
	response.Feeding.Active = stats.Feeding.Active
	response.Feeding.Breast = stats.Feeding.Breast
	response.Feeding.Bottle = stats.Feeding.Bottle
	response.Feeding.Food = stats.Feeding.Food
	response.Feeding.BottleAmount = stats.Feeding.BottleAmount
	response.Feeding.TotalMinutes = stats.Feeding.TotalMinutes
	response.Feeding.AverageMinutes = stats.Feeding.AverageMinutes
	response.Feeding.LastStart = stats.Feeding.LastStart

	response.Sleep.Total = stats.Sleep.Total
	response.Sleep.Completed = stats.Sleep.Completed
	response.Sleep.Active = stats.Sleep.Active
	response.Sleep.TotalMinutes = stats.Sleep.TotalMinutes
	response.Sleep.LongestMinutes = stats.Sleep.LongestMinutes

	response.Diaper.Total = stats.Diaper.Total
	response.Diaper.Wet = stats.Diaper.Wet
	response.Diaper.Dirty = stats.Diaper.Dirty
	response.Diaper.Mixed = stats.Diaper.Mixed
	response.Diaper.Last = stats.Diaper.Last

	response.Weight.Count = stats.Weight.Count
	if stats.Weight.Latest != nil {
		latest := toWeightResponse(*stats.Weight.Latest)
		response.Weight.Latest = &latest
	}
	return response
}
