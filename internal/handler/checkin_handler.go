package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/service"
)

const summaryGenerationTimeout = 15 * time.Second

type checkInRequest struct {
	Date      string            `json:"date" binding:"required"`
	Notes     string            `json:"notes"`
	AISummary string            `json:"ai_summary"`
	Responses []responsePayload `json:"responses"`
}

// responsePayload is the wire shape of one field response. Exactly one value
// key may be set; an entry with no value keys models an explicit absence.
type responsePayload struct {
	FieldID uint     `json:"field_id" binding:"required"`
	Text    *string  `json:"text,omitempty"`
	Number  *float64 `json:"number,omitempty"`
	YesNo   *bool    `json:"yesno,omitempty"`
	Option  *string  `json:"option,omitempty"`
}

// UpsertCheckIn validates and writes the check-in for the given day,
// replacing the day's response set when one already exists.
func (a *API) UpsertCheckIn(c *gin.Context) {
	experiment, ok := a.ownedExperiment(c)
	if !ok {
		return
	}

	input, fields, ok := a.parseCheckInInput(c, experiment)
	if !ok {
		return
	}

	a.maybeGenerateSummary(c, experiment, fields, &input)

	checkIn, verr, err := a.checkIns.Upsert(experiment, fields, input)
	if verr != nil {
		respondValidationError(c, verr)
		return
	}
	if err != nil {
		handleCheckInError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_in": checkInToPayload(*checkIn)})
}

// UpdateCheckIn rewrites one check-in by id, including date changes.
func (a *API) UpdateCheckIn(c *gin.Context) {
	experiment, ok := a.ownedExperiment(c)
	if !ok {
		return
	}

	checkInID, err := parseUintParam(c, "checkinId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid check-in id")
		return
	}

	input, fields, ok := a.parseCheckInInput(c, experiment)
	if !ok {
		return
	}

	checkIn, verr, err := a.checkIns.Update(experiment, fields, checkInID, input)
	if verr != nil {
		respondValidationError(c, verr)
		return
	}
	if err != nil {
		handleCheckInError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_in": checkInToPayload(*checkIn)})
}

// ListCheckIns returns the experiment's check-ins, optionally for one day.
func (a *API) ListCheckIns(c *gin.Context) {
	experiment, ok := a.ownedExperiment(c)
	if !ok {
		return
	}

	var date *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = &parsed
	}

	checkIns, err := a.checkIns.List(experiment.ID, date)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list check-ins")
		return
	}

	items := make([]gin.H, 0, len(checkIns))
	for _, checkIn := range checkIns {
		items = append(items, checkInToPayload(checkIn))
	}
	c.JSON(http.StatusOK, gin.H{"check_ins": items})
}

// GetCheckIn returns one check-in with its responses.
func (a *API) GetCheckIn(c *gin.Context) {
	experiment, ok := a.ownedExperiment(c)
	if !ok {
		return
	}

	checkInID, err := parseUintParam(c, "checkinId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid check-in id")
		return
	}

	checkIn, err := a.checkIns.Get(experiment.ID, checkInID)
	if err != nil {
		handleCheckInError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_in": checkInToPayload(*checkIn)})
}

// DeleteCheckIn removes one check-in and its responses.
func (a *API) DeleteCheckIn(c *gin.Context) {
	experiment, ok := a.ownedExperiment(c)
	if !ok {
		return
	}

	checkInID, err := parseUintParam(c, "checkinId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid check-in id")
		return
	}

	if err := a.checkIns.Delete(experiment.ID, checkInID); err != nil {
		handleCheckInError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ExportCheckIns streams the experiment's check-in history as an xlsx file.
func (a *API) ExportCheckIns(c *gin.Context) {
	experiment, ok := a.ownedExperiment(c)
	if !ok {
		return
	}

	fields, err := a.experiments.Fields(experiment.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load fields")
		return
	}
	checkIns, err := a.checkIns.List(experiment.ID, nil)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load check-ins")
		return
	}

	workbook, err := service.BuildCheckInWorkbook(experiment, fields, checkIns)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to build export")
		return
	}
	defer workbook.Close()

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to build export")
		return
	}

	filename := fmt.Sprintf("experiment-%s.xlsx", experiment.PublicID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

func (a *API) parseCheckInInput(c *gin.Context, experiment *db.Experiment) (service.CheckInInput, []db.Field, bool) {
	var payload checkInRequest
	if !bindJSON(c, &payload, "check-in date is required") {
		return service.CheckInInput{}, nil, false
	}

	day, err := parseDate(payload.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return service.CheckInInput{}, nil, false
	}

	responses := make([]service.SubmittedResponse, 0, len(payload.Responses))
	for _, resp := range payload.Responses {
		value, err := responseValueFromPayload(resp)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return service.CheckInInput{}, nil, false
		}
		responses = append(responses, service.SubmittedResponse{FieldID: resp.FieldID, Value: value})
	}

	fields, err := a.experiments.Fields(experiment.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load fields")
		return service.CheckInInput{}, nil, false
	}

	return service.CheckInInput{
		Date:      day,
		Notes:     payload.Notes,
		AISummary: payload.AISummary,
		Responses: responses,
	}, fields, true
}

// responseValueFromPayload maps a wire response onto the tagged union,
// rejecting entries that populate more than one value channel.
func responseValueFromPayload(resp responsePayload) (service.ResponseValue, error) {
	var value service.ResponseValue
	channels := 0

	if resp.Text != nil {
		value = service.TextValue{Text: *resp.Text}
		channels++
	}
	if resp.Number != nil {
		value = service.NumberValue{Number: *resp.Number}
		channels++
	}
	if resp.YesNo != nil {
		value = service.BoolValue{Bool: *resp.YesNo}
		channels++
	}
	if resp.Option != nil {
		value = service.SelectValue{Option: *resp.Option}
		channels++
	}

	if channels > 1 {
		return nil, fmt.Errorf("response for field %d populates more than one value", resp.FieldID)
	}
	return value, nil
}

// maybeGenerateSummary fills in an AI summary for check-ins submitted
// without one. Best effort: a generation failure is logged and the write
// continues with an empty summary.
func (a *API) maybeGenerateSummary(c *gin.Context, experiment *db.Experiment, fields []db.Field, input *service.CheckInInput) {
	if a.summaries == nil || input.AISummary != "" {
		return
	}
	if input.Notes == "" && len(input.Responses) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), summaryGenerationTimeout)
	defer cancel()

	summary, err := a.summaries.GenerateCheckInSummary(ctx, service.CheckInSummaryInput{
		ExperimentTitle: experiment.Title,
		Date:            formatDate(input.Date),
		Notes:           input.Notes,
		ResponseLines:   responseLines(fields, input.Responses),
	})
	if err != nil {
		if !errors.Is(err, service.ErrAINotConfigured) {
			log.Printf("check-in summary generation failed: %v", err)
		}
		return
	}
	input.AISummary = summary
}

func responseLines(fields []db.Field, responses []service.SubmittedResponse) []string {
	labels := make(map[uint]string, len(fields))
	for _, field := range fields {
		labels[field.ID] = field.Label
	}

	lines := make([]string, 0, len(responses))
	for _, resp := range responses {
		label := labels[resp.FieldID]
		switch v := resp.Value.(type) {
		case service.TextValue:
			lines = append(lines, fmt.Sprintf("%s: %s", label, v.Text))
		case service.NumberValue:
			lines = append(lines, fmt.Sprintf("%s: %g", label, v.Number))
		case service.BoolValue:
			answer := "no"
			if v.Bool {
				answer = "yes"
			}
			lines = append(lines, fmt.Sprintf("%s: %s", label, answer))
		case service.SelectValue:
			lines = append(lines, fmt.Sprintf("%s: %s", label, v.Option))
		}
	}
	return lines
}

func respondValidationError(c *gin.Context, verr *service.ValidationError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":    "invalid field response",
		"field_id": verr.FieldID,
		"reason":   verr.Reason,
	})
}

func handleCheckInError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCheckInNotFound):
		respondError(c, http.StatusNotFound, "check-in not found")
	case errors.Is(err, service.ErrCheckInDayTaken):
		respondError(c, http.StatusConflict, "a check-in already exists for that day")
	case errors.Is(err, service.ErrExperimentNotActive),
		errors.Is(err, service.ErrExperimentNotStarted):
		respondError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

func checkInToPayload(checkIn db.CheckIn) gin.H {
	responses := make([]gin.H, 0, len(checkIn.Responses))
	for _, row := range checkIn.Responses {
		responses = append(responses, responseRowToPayload(row))
	}

	payload := gin.H{
		"id":        checkIn.ID,
		"date":      formatDate(checkIn.CheckinDate),
		"notes":     checkIn.Notes,
		"responses": responses,
	}
	if checkIn.Notes != "" {
		payload["notes_html"] = renderMarkdown(checkIn.Notes)
	}
	if checkIn.AISummary != "" {
		payload["ai_summary"] = checkIn.AISummary
	}
	return payload
}

func responseRowToPayload(row db.FieldResponse) gin.H {
	payload := gin.H{"field_id": row.FieldID}
	switch v := service.ResponseFromRow(row).Value.(type) {
	case service.TextValue:
		payload["text"] = v.Text
	case service.NumberValue:
		payload["number"] = v.Number
	case service.BoolValue:
		payload["yesno"] = v.Bool
	case service.SelectValue:
		payload["option"] = v.Option
	}
	return payload
}
