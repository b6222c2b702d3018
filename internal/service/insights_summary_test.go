package service

import (
	"testing"
	"time"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
)

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func checkInOn(day string, responses ...db.FieldResponse) db.CheckIn {
	date, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return db.CheckIn{CheckinDate: date, Responses: responses}
}

func numberResponse(fieldID uint, value float64) db.FieldResponse {
	return db.FieldResponse{FieldID: fieldID, ResponseNumber: floatPtr(value)}
}

func TestSummarizeNumberZeroCase(t *testing.T) {
	fields := []db.Field{numberField(1, false, nil, nil)}

	summaries := Summarize(fields, nil)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}

	number := summaries[0].Number
	if number == nil {
		t.Fatal("expected number summary")
	}
	if number.Count != 0 || number.Min != 0 || number.Max != 0 || number.Avg != 0 {
		t.Fatalf("expected all zeroes for empty series, got %+v", number)
	}
}

func TestSummarizeNumber(t *testing.T) {
	fields := []db.Field{numberField(1, false, nil, nil)}
	checkIns := []db.CheckIn{
		checkInOn("2026-08-01", numberResponse(1, 3)),
		checkInOn("2026-08-02", numberResponse(1, 9)),
		checkInOn("2026-08-03"), // absent response stays out of denominators
	}

	number := Summarize(fields, checkIns)[0].Number
	if number.Count != 2 {
		t.Fatalf("expected count 2, got %d", number.Count)
	}
	if number.Min != 3 || number.Max != 9 || number.Avg != 6 {
		t.Fatalf("unexpected stats: %+v", number)
	}
}

func TestSummarizeYesNoPercentage(t *testing.T) {
	fields := []db.Field{fieldOfType(1, db.FieldTypeYesNo, false)}
	checkIns := []db.CheckIn{
		checkInOn("2026-08-01", db.FieldResponse{FieldID: 1, ResponseBool: boolPtr(true)}),
		checkInOn("2026-08-02", db.FieldResponse{FieldID: 1, ResponseBool: boolPtr(true)}),
		checkInOn("2026-08-03", db.FieldResponse{FieldID: 1, ResponseBool: boolPtr(false)}),
	}

	yesNo := Summarize(fields, checkIns)[0].YesNo
	if yesNo.Count != 3 || yesNo.YesCount != 2 || yesNo.NoCount != 1 {
		t.Fatalf("unexpected counts: %+v", yesNo)
	}
	// 2/3 rounded to one decimal place.
	if yesNo.YesPercentage != 66.7 {
		t.Fatalf("expected 66.7, got %g", yesNo.YesPercentage)
	}
}

func TestSummarizeYesNoEmpty(t *testing.T) {
	fields := []db.Field{fieldOfType(1, db.FieldTypeYesNo, false)}

	yesNo := Summarize(fields, nil)[0].YesNo
	if yesNo.YesPercentage != 0 {
		t.Fatalf("expected 0 percentage on empty series, got %g", yesNo.YesPercentage)
	}
}

func TestSummarizeEmojiDistribution(t *testing.T) {
	field := fieldOfType(1, db.FieldTypeEmoji, false)
	field.EmojiCount = intPtr(5)
	fields := []db.Field{field}
	checkIns := []db.CheckIn{
		checkInOn("2026-08-01", numberResponse(1, 4)),
		checkInOn("2026-08-02", numberResponse(1, 4)),
		checkInOn("2026-08-03", numberResponse(1, 2)),
	}

	emoji := Summarize(fields, checkIns)[0].Emoji
	if emoji.Count != 3 {
		t.Fatalf("expected count 3, got %d", emoji.Count)
	}
	if emoji.Distribution["4"] != 2 || emoji.Distribution["2"] != 1 {
		t.Fatalf("unexpected distribution: %v", emoji.Distribution)
	}
	want := (4.0 + 4.0 + 2.0) / 3.0
	if emoji.AvgScore != want {
		t.Fatalf("expected avg %g, got %g", want, emoji.AvgScore)
	}
}

func TestSummarizeSelectExcludesBlanks(t *testing.T) {
	field := fieldOfType(1, db.FieldTypeSelect, false)
	field.SelectOptions = []string{"A", "B"}
	fields := []db.Field{field}
	checkIns := []db.CheckIn{
		checkInOn("2026-08-01", db.FieldResponse{FieldID: 1, SelectedOption: strPtr("A")}),
		checkInOn("2026-08-02", db.FieldResponse{FieldID: 1, SelectedOption: strPtr("")}),
		checkInOn("2026-08-03", db.FieldResponse{FieldID: 1, SelectedOption: strPtr("A")}),
	}

	sel := Summarize(fields, checkIns)[0].Select
	if sel.Count != 3 {
		t.Fatalf("expected count 3 including blank, got %d", sel.Count)
	}
	if sel.OptionCounts["A"] != 2 {
		t.Fatalf("expected A counted twice, got %v", sel.OptionCounts)
	}
	if _, ok := sel.OptionCounts[""]; ok {
		t.Fatal("blank selection must not appear in option counts")
	}
}

func TestSummarizeTextCountsNonEmpty(t *testing.T) {
	fields := []db.Field{fieldOfType(1, db.FieldTypeText, false)}
	checkIns := []db.CheckIn{
		checkInOn("2026-08-01", db.FieldResponse{FieldID: 1, ResponseText: strPtr("slept early")}),
		checkInOn("2026-08-02", db.FieldResponse{FieldID: 1, ResponseText: strPtr("  ")}),
	}

	text := Summarize(fields, checkIns)[0].Text
	if text.ResponseCount != 1 {
		t.Fatalf("expected 1 non-empty response, got %d", text.ResponseCount)
	}
}

func TestSummarizeUnknownTypeFallsBackToText(t *testing.T) {
	fields := []db.Field{fieldOfType(1, "slider", false)}
	checkIns := []db.CheckIn{
		checkInOn("2026-08-01", db.FieldResponse{FieldID: 1, ResponseText: strPtr("3")}),
	}

	summary := Summarize(fields, checkIns)[0]
	if summary.Text == nil || summary.Text.ResponseCount != 1 {
		t.Fatalf("expected text-like fallback, got %+v", summary)
	}
}
