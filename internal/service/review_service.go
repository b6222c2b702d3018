package service

import (
	"time"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
)

// ReviewResult composes experiment metadata, coarse progress stats and the
// derived insights into one payload.
type ReviewResult struct {
	ExperimentID   string         `json:"experiment_id"`
	Title          string         `json:"title"`
	Status         string         `json:"status"`
	TotalCheckIns  int            `json:"total_check_ins"`
	DaysCovered    int            `json:"days_covered"`
	CompletionRate *float64       `json:"completion_rate,omitempty"`
	Summaries      []FieldSummary `json:"summaries"`
	Trends         []FieldTrend   `json:"trends"`
}

// BuildReview derives the review payload. Results are never persisted;
// every request recomputes from the stored check-ins. CompletionRate is only
// reported when the experiment has a start date, as check-ins over elapsed
// days (capped at 1).
func BuildReview(experiment *db.Experiment, fields []db.Field, checkIns []db.CheckIn, now time.Time) ReviewResult {
	review := ReviewResult{
		ExperimentID:  experiment.PublicID,
		Title:         experiment.Title,
		Status:        experiment.Status,
		TotalCheckIns: len(checkIns),
		Summaries:     Summarize(fields, checkIns),
		Trends:        AnalyzeTrends(fields, checkIns),
	}

	days := make(map[string]bool, len(checkIns))
	for _, checkIn := range checkIns {
		days[formatTrendDate(checkIn.CheckinDate)] = true
	}
	review.DaysCovered = len(days)

	if experiment.StartDate != nil {
		start := NormalizeToUTCDay(*experiment.StartDate)
		end := NormalizeToUTCDay(now)
		if experiment.EndDate != nil {
			if capped := NormalizeToUTCDay(*experiment.EndDate); capped.Before(end) {
				end = capped
			}
		}
		if !end.Before(start) {
			elapsed := int(end.Sub(start).Hours()/24) + 1
			rate := float64(review.TotalCheckIns) / float64(elapsed)
			if rate > 1 {
				rate = 1
			}
			review.CompletionRate = &rate
		}
	}

	return review
}
