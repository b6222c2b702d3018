package service

import (
	"sort"
	"strings"
	"time"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
)

// Trend heuristic tuning. The leading and trailing windows each span a
// quarter of the series, and the window means must differ by more than 5%
// of the series range before a direction is reported; smaller movements are
// treated as noise.
const (
	TrendNoiseThreshold = 0.05
	TrendWindowFraction = 0.25
	trendDateLayout     = "2006-01-02"
)

// TrendDirection is a coarse verdict over a time-ordered series.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendFlat       TrendDirection = "flat"
	// Emoji and yes-rate trends use the up/down vocabulary; the semantics
	// are identical to increasing/decreasing.
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
)

// DatedCount is one point of a per-day counting series.
type DatedCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DatedOption is one point of a per-day categorical series. Option is empty
// on days without a selection.
type DatedOption struct {
	Date   string `json:"date"`
	Option string `json:"option"`
}

// FieldTrend carries one per-field trend, tagged by Type. Only the output
// matching Type is populated: Direction for number, MoodTrend for emoji,
// YesTrend for yesno, CountOverTime for text, DominantOverTime for select.
// Categorical data gets a raw series instead of a verdict; inventing an
// ordering over unordered options would be meaningless.
type FieldTrend struct {
	FieldID uint   `json:"field_id"`
	Label   string `json:"label"`
	Type    string `json:"type"`

	Direction        TrendDirection `json:"direction,omitempty"`
	MoodTrend        TrendDirection `json:"mood_trend,omitempty"`
	YesTrend         TrendDirection `json:"yes_trend,omitempty"`
	CountOverTime    []DatedCount   `json:"count_over_time,omitempty"`
	DominantOverTime []DatedOption  `json:"dominant_over_time,omitempty"`
}

// AnalyzeTrends computes one trend per field over the experiment's
// check-ins. Check-ins are evaluated in chronological order regardless of
// input order. Unknown field types degrade to text-like counting.
func AnalyzeTrends(fields []db.Field, checkIns []db.CheckIn) []FieldTrend {
	ordered := make([]db.CheckIn, len(checkIns))
	copy(ordered, checkIns)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CheckinDate.Before(ordered[j].CheckinDate)
	})

	trends := make([]FieldTrend, 0, len(fields))
	for _, field := range fields {
		trend := FieldTrend{FieldID: field.ID, Label: field.Label, Type: field.Type}

		switch field.Type {
		case db.FieldTypeNumber:
			trend.Direction = numericDirection(numericSeries(field.ID, ordered))
		case db.FieldTypeEmoji:
			trend.MoodTrend = asMood(numericDirection(numericSeries(field.ID, ordered)))
		case db.FieldTypeYesNo:
			trend.YesTrend = yesRateDirection(boolSeries(field.ID, ordered))
		case db.FieldTypeSelect:
			trend.DominantOverTime = dominantOverTime(field.ID, ordered)
		default:
			trend.CountOverTime = countOverTime(field.ID, ordered)
		}

		trends = append(trends, trend)
	}

	return trends
}

// numericDirection compares the mean of the leading quarter of a series
// against the trailing quarter, normalized by the series range.
func numericDirection(values []float64) TrendDirection {
	if len(values) < 2 {
		return TrendFlat
	}

	window := trendWindow(len(values))
	leading := mean(values[:window])
	trailing := mean(values[len(values)-window:])

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	valueRange := hi - lo
	if valueRange == 0 {
		// Constant series; keep the division defined so the verdict is flat.
		valueRange = 1
	}

	normalizedDiff := (trailing - leading) / valueRange
	switch {
	case normalizedDiff > TrendNoiseThreshold:
		return TrendIncreasing
	case normalizedDiff < -TrendNoiseThreshold:
		return TrendDecreasing
	default:
		return TrendFlat
	}
}

// yesRateDirection applies the same quarter split to a boolean series,
// comparing yes rates instead of range-normalized values.
func yesRateDirection(values []bool) TrendDirection {
	if len(values) < 2 {
		return TrendFlat
	}

	window := trendWindow(len(values))
	leading := yesRate(values[:window])
	trailing := yesRate(values[len(values)-window:])

	diff := trailing - leading
	switch {
	case diff > TrendNoiseThreshold:
		return TrendUp
	case diff < -TrendNoiseThreshold:
		return TrendDown
	default:
		return TrendFlat
	}
}

func trendWindow(n int) int {
	window := int(float64(n) * TrendWindowFraction)
	if window < 1 {
		window = 1
	}
	return window
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func yesRate(values []bool) float64 {
	yes := 0
	for _, v := range values {
		if v {
			yes++
		}
	}
	return float64(yes) / float64(len(values))
}

func asMood(direction TrendDirection) TrendDirection {
	switch direction {
	case TrendIncreasing:
		return TrendUp
	case TrendDecreasing:
		return TrendDown
	default:
		return TrendFlat
	}
}

func numericSeries(fieldID uint, ordered []db.CheckIn) []float64 {
	var values []float64
	for _, checkIn := range ordered {
		for _, row := range checkIn.Responses {
			if row.FieldID == fieldID && row.ResponseNumber != nil {
				values = append(values, *row.ResponseNumber)
			}
		}
	}
	return values
}

func boolSeries(fieldID uint, ordered []db.CheckIn) []bool {
	var values []bool
	for _, checkIn := range ordered {
		for _, row := range checkIn.Responses {
			if row.FieldID == fieldID && row.ResponseBool != nil {
				values = append(values, *row.ResponseBool)
			}
		}
	}
	return values
}

func countOverTime(fieldID uint, ordered []db.CheckIn) []DatedCount {
	series := make([]DatedCount, 0, len(ordered))
	for _, checkIn := range ordered {
		count := 0
		for _, row := range checkIn.Responses {
			if row.FieldID == fieldID && row.ResponseText != nil && strings.TrimSpace(*row.ResponseText) != "" {
				count++
			}
		}
		series = append(series, DatedCount{Date: formatTrendDate(checkIn.CheckinDate), Count: count})
	}
	return series
}

func dominantOverTime(fieldID uint, ordered []db.CheckIn) []DatedOption {
	series := make([]DatedOption, 0, len(ordered))
	for _, checkIn := range ordered {
		option := ""
		for _, row := range checkIn.Responses {
			if row.FieldID == fieldID && row.SelectedOption != nil {
				option = *row.SelectedOption
				break
			}
		}
		series = append(series, DatedOption{Date: formatTrendDate(checkIn.CheckinDate), Option: option})
	}
	return series
}

func formatTrendDate(t time.Time) string {
	return t.UTC().Format(trendDateLayout)
}
