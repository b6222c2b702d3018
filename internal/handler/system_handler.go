package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/service"
)

type settingsRequest struct {
	SiteName  string `json:"site_name"`
	AIBaseURL string `json:"ai_base_url"`
	AIAPIKey  string `json:"ai_api_key"`
	AIModel   string `json:"ai_model"`
}

// GetSettings returns the operator settings; super admin only. The API key
// is reported as a presence flag, never echoed back.
func (a *API) GetSettings(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}
	if !user.SuperAdmin {
		respondError(c, http.StatusForbidden, "super admin required")
		return
	}

	settings, err := a.system.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": gin.H{
		"site_name":      settings.SiteName,
		"ai_base_url":    settings.AIBaseURL,
		"ai_key_present": settings.AIAPIKey != "",
		"ai_model":       settings.AIModel,
	}})
}

// UpdateSettings replaces the operator settings; super admin only.
func (a *API) UpdateSettings(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}
	if !user.SuperAdmin {
		respondError(c, http.StatusForbidden, "super admin required")
		return
	}

	var payload settingsRequest
	if !bindJSON(c, &payload, "invalid settings payload") {
		return
	}

	if err := a.system.UpdateSettings(service.SystemSettings{
		SiteName:  payload.SiteName,
		AIBaseURL: payload.AIBaseURL,
		AIAPIKey:  payload.AIAPIKey,
		AIModel:   payload.AIModel,
	}); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
