package service

import (
	"testing"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
)

func TestNumericDirectionConstantSeries(t *testing.T) {
	if got := numericDirection([]float64{5, 5, 5, 5, 5}); got != TrendFlat {
		t.Fatalf("expected flat for constant series, got %s", got)
	}
}

func TestNumericDirectionIncreasing(t *testing.T) {
	// Leading quarter mean 1, trailing quarter mean 9, range 8,
	// normalized diff 1.0.
	if got := numericDirection([]float64{1, 1, 1, 1, 9, 9, 9, 9}); got != TrendIncreasing {
		t.Fatalf("expected increasing, got %s", got)
	}
}

func TestNumericDirectionDecreasing(t *testing.T) {
	if got := numericDirection([]float64{9, 9, 9, 9, 1, 1, 1, 1}); got != TrendDecreasing {
		t.Fatalf("expected decreasing, got %s", got)
	}
}

func TestNumericDirectionShortSeries(t *testing.T) {
	if got := numericDirection([]float64{7}); got != TrendFlat {
		t.Fatalf("expected flat for single value, got %s", got)
	}
	if got := numericDirection(nil); got != TrendFlat {
		t.Fatalf("expected flat for empty series, got %s", got)
	}
}

func TestNumericDirectionNoiseFiltered(t *testing.T) {
	// Diff is 2% of the range, below the 5% threshold.
	if got := numericDirection([]float64{50, 50, 100, 0, 50, 51}); got != TrendFlat {
		t.Fatalf("expected flat for sub-threshold movement, got %s", got)
	}
}

func TestYesRateDirectionUp(t *testing.T) {
	if got := yesRateDirection([]bool{false, false, true, true, true, true}); got != TrendUp {
		t.Fatalf("expected up, got %s", got)
	}
}

func TestYesRateDirectionShortSeries(t *testing.T) {
	if got := yesRateDirection([]bool{true}); got != TrendFlat {
		t.Fatalf("expected flat for single observation, got %s", got)
	}
}

func TestAnalyzeTrendsNumberDirection(t *testing.T) {
	fields := []db.Field{numberField(1, false, nil, nil)}
	checkIns := []db.CheckIn{
		checkInOn("2026-08-01", numberResponse(1, 3)),
		checkInOn("2026-08-02", numberResponse(1, 9)),
	}

	trend := AnalyzeTrends(fields, checkIns)[0]
	if trend.Direction != TrendIncreasing {
		t.Fatalf("expected increasing, got %s", trend.Direction)
	}
}

func TestAnalyzeTrendsSortsByDate(t *testing.T) {
	fields := []db.Field{numberField(1, false, nil, nil)}
	// Reverse input order must not flip the verdict.
	checkIns := []db.CheckIn{
		checkInOn("2026-08-02", numberResponse(1, 9)),
		checkInOn("2026-08-01", numberResponse(1, 3)),
	}

	trend := AnalyzeTrends(fields, checkIns)[0]
	if trend.Direction != TrendIncreasing {
		t.Fatalf("expected increasing after reordering, got %s", trend.Direction)
	}
}

func TestAnalyzeTrendsEmojiMood(t *testing.T) {
	field := fieldOfType(1, db.FieldTypeEmoji, false)
	field.EmojiCount = intPtr(5)
	fields := []db.Field{field}
	checkIns := []db.CheckIn{
		checkInOn("2026-08-01", numberResponse(1, 5)),
		checkInOn("2026-08-02", numberResponse(1, 4)),
		checkInOn("2026-08-03", numberResponse(1, 2)),
		checkInOn("2026-08-04", numberResponse(1, 1)),
	}

	trend := AnalyzeTrends(fields, checkIns)[0]
	if trend.MoodTrend != TrendDown {
		t.Fatalf("expected mood down, got %s", trend.MoodTrend)
	}
	if trend.Direction != "" {
		t.Fatalf("emoji trend must not set the numeric direction, got %s", trend.Direction)
	}
}

func TestAnalyzeTrendsTextCountOverTime(t *testing.T) {
	fields := []db.Field{fieldOfType(1, db.FieldTypeText, false)}
	checkIns := []db.CheckIn{
		checkInOn("2026-08-01", db.FieldResponse{FieldID: 1, ResponseText: strPtr("note")}),
		checkInOn("2026-08-02"),
	}

	trend := AnalyzeTrends(fields, checkIns)[0]
	if len(trend.CountOverTime) != 2 {
		t.Fatalf("expected one point per check-in, got %d", len(trend.CountOverTime))
	}
	if trend.CountOverTime[0].Date != "2026-08-01" || trend.CountOverTime[0].Count != 1 {
		t.Fatalf("unexpected first point: %+v", trend.CountOverTime[0])
	}
	if trend.CountOverTime[1].Count != 0 {
		t.Fatalf("expected zero count on empty day, got %+v", trend.CountOverTime[1])
	}
}

func TestAnalyzeTrendsSelectDominantOverTime(t *testing.T) {
	field := fieldOfType(1, db.FieldTypeSelect, false)
	field.SelectOptions = []string{"A", "B"}
	fields := []db.Field{field}
	checkIns := []db.CheckIn{
		checkInOn("2026-08-01", db.FieldResponse{FieldID: 1, SelectedOption: strPtr("B")}),
		checkInOn("2026-08-02"),
	}

	trend := AnalyzeTrends(fields, checkIns)[0]
	if len(trend.DominantOverTime) != 2 {
		t.Fatalf("expected one point per check-in, got %d", len(trend.DominantOverTime))
	}
	if trend.DominantOverTime[0].Option != "B" {
		t.Fatalf("unexpected option: %+v", trend.DominantOverTime[0])
	}
	if trend.DominantOverTime[1].Option != "" {
		t.Fatalf("expected empty option on day without selection, got %+v", trend.DominantOverTime[1])
	}
}
