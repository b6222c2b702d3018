package service

import (
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
)

// ResponseValue is the typed payload of one field response. The concrete
// types below are the only implementations, one per value channel, so a
// response can never carry two channels at once.
type ResponseValue interface {
	responseValue()
}

// TextValue carries a free-text answer.
type TextValue struct {
	Text string
}

// NumberValue carries a numeric answer or an emoji level.
type NumberValue struct {
	Number float64
}

// BoolValue carries a yes/no answer.
type BoolValue struct {
	Bool bool
}

// SelectValue carries one chosen option of a select field.
type SelectValue struct {
	Option string
}

func (TextValue) responseValue()   {}
func (NumberValue) responseValue() {}
func (BoolValue) responseValue()   {}
func (SelectValue) responseValue() {}

// SubmittedResponse pairs a field with its proposed value. A nil Value
// models an omitted response, which the validator synthesizes for required
// fields so omission cannot pass silently.
type SubmittedResponse struct {
	FieldID uint
	Value   ResponseValue
}

// ResponseFromRow converts a stored response row back into union form.
// Rows written through the validated path populate exactly one channel;
// a fully empty row maps to an absent value.
func ResponseFromRow(row db.FieldResponse) SubmittedResponse {
	resp := SubmittedResponse{FieldID: row.FieldID}
	switch {
	case row.ResponseText != nil:
		resp.Value = TextValue{Text: *row.ResponseText}
	case row.ResponseNumber != nil:
		resp.Value = NumberValue{Number: *row.ResponseNumber}
	case row.ResponseBool != nil:
		resp.Value = BoolValue{Bool: *row.ResponseBool}
	case row.SelectedOption != nil:
		resp.Value = SelectValue{Option: *row.SelectedOption}
	}
	return resp
}

// rowFromResponse materializes a union value into a row for storage.
// Absent values produce no row; callers skip them.
func rowFromResponse(checkInID uint, resp SubmittedResponse) (db.FieldResponse, bool) {
	row := db.FieldResponse{CheckInID: checkInID, FieldID: resp.FieldID}
	switch v := resp.Value.(type) {
	case TextValue:
		row.ResponseText = &v.Text
	case NumberValue:
		row.ResponseNumber = &v.Number
	case BoolValue:
		row.ResponseBool = &v.Bool
	case SelectValue:
		row.SelectedOption = &v.Option
	default:
		return db.FieldResponse{}, false
	}
	return row, true
}
