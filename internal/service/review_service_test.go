package service

import (
	"testing"
	"time"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
)

func TestBuildReviewWithoutStartDate(t *testing.T) {
	experiment := &db.Experiment{PublicID: "exp-1", Title: "Sleep quality", Status: db.ExperimentStatusDraft}
	fields := []db.Field{numberField(1, false, nil, nil)}
	checkIns := []db.CheckIn{
		checkInOn("2025-06-02", numberResponse(1, 3)),
		checkInOn("2025-06-03", numberResponse(1, 9)),
	}

	review := BuildReview(experiment, fields, checkIns, time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))

	if review.TotalCheckIns != 2 || review.DaysCovered != 2 {
		t.Fatalf("unexpected counts: %+v", review)
	}
	if review.CompletionRate != nil {
		t.Fatal("expected no completion rate without a start date")
	}
	if len(review.Summaries) != 1 || len(review.Trends) != 1 {
		t.Fatalf("expected insights embedded, got %d summaries and %d trends",
			len(review.Summaries), len(review.Trends))
	}
}

func TestBuildReviewCompletionRate(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	experiment := &db.Experiment{
		PublicID:  "exp-1",
		Title:     "Sleep quality",
		Status:    db.ExperimentStatusActive,
		StartDate: &start,
	}
	fields := []db.Field{numberField(1, false, nil, nil)}
	checkIns := []db.CheckIn{
		checkInOn("2025-06-01", numberResponse(1, 5)),
		checkInOn("2025-06-02", numberResponse(1, 6)),
	}

	// Four elapsed days, two check-ins.
	review := BuildReview(experiment, fields, checkIns, time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC))
	if review.CompletionRate == nil {
		t.Fatal("expected a completion rate")
	}
	if *review.CompletionRate != 0.5 {
		t.Fatalf("expected rate 0.5, got %v", *review.CompletionRate)
	}
}

func TestBuildReviewCompletionRateCappedByEndDate(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	experiment := &db.Experiment{
		PublicID:  "exp-1",
		Title:     "Sleep quality",
		Status:    db.ExperimentStatusCompleted,
		StartDate: &start,
		EndDate:   &end,
	}
	fields := []db.Field{numberField(1, false, nil, nil)}
	checkIns := []db.CheckIn{
		checkInOn("2025-06-01", numberResponse(1, 5)),
		checkInOn("2025-06-02", numberResponse(1, 6)),
	}

	// Elapsed days stop at the end date even long after it passed.
	review := BuildReview(experiment, fields, checkIns, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	if review.CompletionRate == nil || *review.CompletionRate != 1 {
		t.Fatalf("expected full completion, got %+v", review.CompletionRate)
	}
}
