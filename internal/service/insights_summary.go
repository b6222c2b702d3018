package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
)

// FieldSummary carries one per-field aggregate, tagged by Type. Only the
// block matching Type is populated.
type FieldSummary struct {
	FieldID uint   `json:"field_id"`
	Label   string `json:"label"`
	Type    string `json:"type"`

	Text   *TextSummary   `json:"text,omitempty"`
	Number *NumberSummary `json:"number,omitempty"`
	YesNo  *YesNoSummary  `json:"yesno,omitempty"`
	Emoji  *EmojiSummary  `json:"emoji,omitempty"`
	Select *SelectSummary `json:"select,omitempty"`
}

// TextSummary counts non-empty free-text responses.
type TextSummary struct {
	ResponseCount int `json:"response_count"`
}

// NumberSummary aggregates present numeric responses. All fields are zero
// when no response exists so empty experiments never produce NaN.
type NumberSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

// YesNoSummary reports the yes rate to one decimal place.
type YesNoSummary struct {
	Count         int     `json:"count"`
	YesCount      int     `json:"yes_count"`
	NoCount       int     `json:"no_count"`
	YesPercentage float64 `json:"yes_percentage"`
}

// EmojiSummary maps stringified levels to occurrence counts.
type EmojiSummary struct {
	Count        int            `json:"count"`
	AvgScore     float64        `json:"avg_score"`
	Distribution map[string]int `json:"distribution"`
}

// SelectSummary counts responses per option. Blank selections count toward
// Count but are excluded from OptionCounts.
type SelectSummary struct {
	Count        int            `json:"count"`
	OptionCounts map[string]int `json:"option_counts"`
}

// Summarize computes one summary per field over all present responses.
// Absent responses never enter a denominator. Unknown field types degrade
// to text-like counting so old data keeps rendering instead of failing.
func Summarize(fields []db.Field, checkIns []db.CheckIn) []FieldSummary {
	byField := responsesByField(checkIns)

	summaries := make([]FieldSummary, 0, len(fields))
	for _, field := range fields {
		summary := FieldSummary{FieldID: field.ID, Label: field.Label, Type: field.Type}
		rows := byField[field.ID]

		switch field.Type {
		case db.FieldTypeNumber:
			summary.Number = summarizeNumber(rows)
		case db.FieldTypeYesNo:
			summary.YesNo = summarizeYesNo(rows)
		case db.FieldTypeEmoji:
			summary.Emoji = summarizeEmoji(rows)
		case db.FieldTypeSelect:
			summary.Select = summarizeSelect(rows)
		default:
			summary.Text = summarizeText(rows)
		}

		summaries = append(summaries, summary)
	}

	return summaries
}

func responsesByField(checkIns []db.CheckIn) map[uint][]db.FieldResponse {
	byField := make(map[uint][]db.FieldResponse)
	for _, checkIn := range checkIns {
		for _, row := range checkIn.Responses {
			byField[row.FieldID] = append(byField[row.FieldID], row)
		}
	}
	return byField
}

func summarizeText(rows []db.FieldResponse) *TextSummary {
	summary := &TextSummary{}
	for _, row := range rows {
		if row.ResponseText != nil && strings.TrimSpace(*row.ResponseText) != "" {
			summary.ResponseCount++
		}
	}
	return summary
}

func summarizeNumber(rows []db.FieldResponse) *NumberSummary {
	summary := &NumberSummary{}
	sum := 0.0
	for _, row := range rows {
		if row.ResponseNumber == nil {
			continue
		}
		value := *row.ResponseNumber
		if summary.Count == 0 {
			summary.Min = value
			summary.Max = value
		} else {
			summary.Min = math.Min(summary.Min, value)
			summary.Max = math.Max(summary.Max, value)
		}
		summary.Count++
		sum += value
	}
	if summary.Count > 0 {
		summary.Avg = sum / float64(summary.Count)
	}
	return summary
}

func summarizeYesNo(rows []db.FieldResponse) *YesNoSummary {
	summary := &YesNoSummary{}
	for _, row := range rows {
		if row.ResponseBool == nil {
			continue
		}
		summary.Count++
		if *row.ResponseBool {
			summary.YesCount++
		} else {
			summary.NoCount++
		}
	}
	if summary.Count > 0 {
		summary.YesPercentage = math.Round(float64(summary.YesCount)/float64(summary.Count)*1000) / 10
	}
	return summary
}

func summarizeEmoji(rows []db.FieldResponse) *EmojiSummary {
	summary := &EmojiSummary{Distribution: map[string]int{}}
	sum := 0.0
	for _, row := range rows {
		if row.ResponseNumber == nil {
			continue
		}
		level := int(*row.ResponseNumber)
		summary.Count++
		sum += float64(level)
		summary.Distribution[strconv.Itoa(level)]++
	}
	if summary.Count > 0 {
		summary.AvgScore = sum / float64(summary.Count)
	}
	return summary
}

func summarizeSelect(rows []db.FieldResponse) *SelectSummary {
	summary := &SelectSummary{OptionCounts: map[string]int{}}
	for _, row := range rows {
		if row.SelectedOption == nil {
			continue
		}
		summary.Count++
		if option := strings.TrimSpace(*row.SelectedOption); option != "" {
			summary.OptionCounts[option]++
		}
	}
	return summary
}
