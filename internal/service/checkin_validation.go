package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
)

// ValidationError describes the first rejected response of a submission.
type ValidationError struct {
	FieldID uint   `json:"field_id"`
	Reason  string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %d: %s", e.FieldID, e.Reason)
}

// ValidateResponses checks a full proposed response set against the
// experiment's field definitions and returns the first violation, or nil
// when every required field is satisfied and every submitted response is
// well typed. The function is pure; callers run it on creation and again on
// every replace, always against the complete proposed set.
func ValidateResponses(fields []db.Field, responses []SubmittedResponse) *ValidationError {
	fieldByID := make(map[uint]db.Field, len(fields))
	for _, field := range fields {
		fieldByID[field.ID] = field
	}

	submitted := make(map[uint]bool, len(responses))
	for _, resp := range responses {
		if _, ok := fieldByID[resp.FieldID]; !ok {
			return &ValidationError{FieldID: resp.FieldID, Reason: "field does not belong to this experiment"}
		}
		submitted[resp.FieldID] = true
	}

	// A required field with no submitted response is validated as absent so
	// omission fails instead of passing silently.
	for _, field := range fields {
		if !field.Required || submitted[field.ID] {
			continue
		}
		if verr := validateResponse(field, SubmittedResponse{FieldID: field.ID}); verr != nil {
			return verr
		}
	}

	for _, resp := range responses {
		if verr := validateResponse(fieldByID[resp.FieldID], resp); verr != nil {
			return verr
		}
	}

	return nil
}

func validateResponse(field db.Field, resp SubmittedResponse) *ValidationError {
	fail := func(reason string) *ValidationError {
		return &ValidationError{FieldID: field.ID, Reason: reason}
	}

	switch field.Type {
	case db.FieldTypeText:
		if resp.Value == nil {
			if field.Required {
				return fail("a text response is required")
			}
			return nil
		}
		text, ok := resp.Value.(TextValue)
		if !ok {
			return fail("response must be text")
		}
		if field.Required && strings.TrimSpace(text.Text) == "" {
			return fail("a text response is required")
		}
		return nil

	case db.FieldTypeNumber:
		if resp.Value == nil {
			if field.Required {
				return fail("a numeric response is required")
			}
			return nil
		}
		num, ok := resp.Value.(NumberValue)
		if !ok {
			return fail("response must be a number")
		}
		if math.IsNaN(num.Number) || math.IsInf(num.Number, 0) {
			return fail("response must be a finite number")
		}
		if field.MinValue != nil && num.Number < *field.MinValue {
			return fail(fmt.Sprintf("value must be at least %g", *field.MinValue))
		}
		if field.MaxValue != nil && num.Number > *field.MaxValue {
			return fail(fmt.Sprintf("value must be at most %g", *field.MaxValue))
		}
		return nil

	case db.FieldTypeYesNo:
		if resp.Value == nil {
			if field.Required {
				return fail("a yes/no response is required")
			}
			return nil
		}
		if _, ok := resp.Value.(BoolValue); !ok {
			return fail("response must be yes or no")
		}
		return nil

	case db.FieldTypeEmoji:
		if field.Required && resp.Value == nil {
			return fail("an emoji response is required")
		}
		// A broken field definition fails validation too, not only a bad
		// response value.
		if field.EmojiCount == nil || *field.EmojiCount <= 0 {
			return fail("emoji field has no valid level count configured")
		}
		if resp.Value == nil {
			return nil
		}
		num, ok := resp.Value.(NumberValue)
		if !ok {
			return fail("response must be an emoji level")
		}
		if num.Number != math.Trunc(num.Number) {
			return fail("emoji level must be a whole number")
		}
		level := int(num.Number)
		if level < 1 || level > *field.EmojiCount {
			return fail(fmt.Sprintf("emoji level must be between 1 and %d", *field.EmojiCount))
		}
		return nil

	case db.FieldTypeSelect:
		if resp.Value == nil {
			if field.Required {
				return fail("a selection is required")
			}
			return nil
		}
		sel, ok := resp.Value.(SelectValue)
		if !ok {
			return fail("response must be a selection")
		}
		if sel.Option == "" {
			if field.Required {
				return fail("a selection is required")
			}
			return nil
		}
		for _, option := range field.SelectOptions {
			if option == sel.Option {
				return nil
			}
		}
		return fail(fmt.Sprintf("%q is not one of the allowed options", sel.Option))

	default:
		return fail(fmt.Sprintf("unknown field type %q", field.Type))
	}
}
