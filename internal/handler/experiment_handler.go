package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/service"
)

type experimentRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	OrgID       *uint  `json:"org_id"`
}

type fieldRequest struct {
	Label         string   `json:"label" binding:"required"`
	Type          string   `json:"type" binding:"required"`
	Required      bool     `json:"required"`
	MinValue      *float64 `json:"min_value"`
	MaxValue      *float64 `json:"max_value"`
	EmojiCount    *int     `json:"emoji_count"`
	SelectOptions []string `json:"select_options"`
	DisplayOrder  int      `json:"display_order"`
}

// CreateExperiment stores a new experiment for the caller.
func (a *API) CreateExperiment(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}

	input, ok := a.parseExperimentInput(c)
	if !ok {
		return
	}

	experiment, err := a.experiments.Create(user.ID, input)
	if err != nil {
		handleExperimentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"experiment": experimentToPayload(*experiment)})
}

// ListExperiments returns the caller's experiments.
func (a *API) ListExperiments(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}

	experiments, err := a.experiments.List(user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list experiments")
		return
	}

	items := make([]gin.H, 0, len(experiments))
	for _, experiment := range experiments {
		items = append(items, experimentToPayload(experiment))
	}
	c.JSON(http.StatusOK, gin.H{"experiments": items})
}

// GetExperiment returns one owned experiment with its fields.
func (a *API) GetExperiment(c *gin.Context) {
	experiment, ok := a.ownedExperiment(c)
	if !ok {
		return
	}

	fields, err := a.experiments.Fields(experiment.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load fields")
		return
	}

	payload := experimentToPayload(*experiment)
	payload["fields"] = fieldsToPayload(fields)
	c.JSON(http.StatusOK, gin.H{"experiment": payload})
}

// UpdateExperiment replaces an owned experiment's attributes.
func (a *API) UpdateExperiment(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}

	input, ok := a.parseExperimentInput(c)
	if !ok {
		return
	}

	experiment, err := a.experiments.Update(c.Param("id"), user.ID, input)
	if err != nil {
		handleExperimentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"experiment": experimentToPayload(*experiment)})
}

// DeleteExperiment removes an owned experiment entirely.
func (a *API) DeleteExperiment(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}

	if err := a.experiments.Delete(c.Param("id"), user.ID); err != nil {
		handleExperimentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AddField appends a field definition to an owned experiment.
func (a *API) AddField(c *gin.Context) {
	experiment, ok := a.ownedExperiment(c)
	if !ok {
		return
	}

	var payload fieldRequest
	if !bindJSON(c, &payload, "field label and type are required") {
		return
	}

	field, err := a.experiments.AddField(experiment, fieldInputFromRequest(payload))
	if err != nil {
		handleExperimentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": fieldToPayload(*field)})
}

// UpdateField replaces a field definition on an owned experiment.
func (a *API) UpdateField(c *gin.Context) {
	experiment, ok := a.ownedExperiment(c)
	if !ok {
		return
	}

	fieldID, err := parseUintParam(c, "fieldId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid field id")
		return
	}

	var payload fieldRequest
	if !bindJSON(c, &payload, "field label and type are required") {
		return
	}

	field, err := a.experiments.UpdateField(experiment, fieldID, fieldInputFromRequest(payload))
	if err != nil {
		handleExperimentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": fieldToPayload(*field)})
}

// DeleteField removes a field definition from an owned experiment.
func (a *API) DeleteField(c *gin.Context) {
	experiment, ok := a.ownedExperiment(c)
	if !ok {
		return
	}

	fieldID, err := parseUintParam(c, "fieldId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid field id")
		return
	}

	if err := a.experiments.DeleteField(experiment, fieldID); err != nil {
		handleExperimentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ownedExperiment resolves the :id path param against the caller's
// experiments. Absent and not-owned both answer 404 so experiment ids
// cannot be probed.
func (a *API) ownedExperiment(c *gin.Context) (*db.Experiment, bool) {
	user, ok := a.currentUser(c)
	if !ok {
		return nil, false
	}

	experiment, err := a.experiments.GetOwned(c.Param("id"), user.ID)
	if err != nil {
		handleExperimentError(c, err)
		return nil, false
	}
	return experiment, true
}

func (a *API) parseExperimentInput(c *gin.Context) (service.ExperimentInput, bool) {
	var payload experimentRequest
	if !bindJSON(c, &payload, "experiment title is required") {
		return service.ExperimentInput{}, false
	}

	input := service.ExperimentInput{
		Title:       payload.Title,
		Description: payload.Description,
		Status:      payload.Status,
		OrgID:       payload.OrgID,
	}

	if payload.StartDate != "" {
		start, err := parseDate(payload.StartDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
			return service.ExperimentInput{}, false
		}
		input.StartDate = &start
	}
	if payload.EndDate != "" {
		end, err := parseDate(payload.EndDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
			return service.ExperimentInput{}, false
		}
		input.EndDate = &end
	}

	return input, true
}

func fieldInputFromRequest(payload fieldRequest) service.FieldInput {
	return service.FieldInput{
		Label:         payload.Label,
		Type:          payload.Type,
		Required:      payload.Required,
		MinValue:      payload.MinValue,
		MaxValue:      payload.MaxValue,
		EmojiCount:    payload.EmojiCount,
		SelectOptions: payload.SelectOptions,
		DisplayOrder:  payload.DisplayOrder,
	}
}

func handleExperimentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExperimentNotFound):
		respondError(c, http.StatusNotFound, "experiment not found")
	case errors.Is(err, service.ErrFieldNotFound):
		respondError(c, http.StatusNotFound, "field not found")
	case errors.Is(err, service.ErrFieldsLocked):
		respondError(c, http.StatusConflict, "fields are locked once the experiment has check-ins")
	case errors.Is(err, service.ErrInvalidFieldConfig),
		errors.Is(err, service.ErrInvalidExperimentStatus):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

func experimentToPayload(experiment db.Experiment) gin.H {
	payload := gin.H{
		"id":          experiment.PublicID,
		"title":       experiment.Title,
		"description": experiment.Description,
		"status":      experiment.Status,
		"created_at":  experiment.CreatedAt.UTC().Format(time.RFC3339),
	}
	if experiment.StartDate != nil {
		payload["start_date"] = formatDate(*experiment.StartDate)
	}
	if experiment.EndDate != nil {
		payload["end_date"] = formatDate(*experiment.EndDate)
	}
	if experiment.OrgID != nil {
		payload["org_id"] = *experiment.OrgID
	}
	return payload
}

func fieldsToPayload(fields []db.Field) []gin.H {
	items := make([]gin.H, 0, len(fields))
	for _, field := range fields {
		items = append(items, fieldToPayload(field))
	}
	return items
}

func fieldToPayload(field db.Field) gin.H {
	payload := gin.H{
		"id":            field.ID,
		"label":         field.Label,
		"type":          field.Type,
		"required":      field.Required,
		"display_order": field.DisplayOrder,
	}
	if field.MinValue != nil {
		payload["min_value"] = *field.MinValue
	}
	if field.MaxValue != nil {
		payload["max_value"] = *field.MaxValue
	}
	if field.EmojiCount != nil {
		payload["emoji_count"] = *field.EmojiCount
	}
	if len(field.SelectOptions) > 0 {
		payload["select_options"] = field.SelectOptions
	}
	return payload
}
