package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/service"
)

type orgRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

type memberRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// CreateOrg stores an organisation with the caller as its first org_admin.
func (a *API) CreateOrg(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}

	var payload orgRequest
	if !bindJSON(c, &payload, "organization name and slug are required") {
		return
	}

	org, err := a.orgs.Create(payload.Name, payload.Slug, *user)
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to create organization")
		return
	}
	c.JSON(http.StatusOK, gin.H{"organization": gin.H{"id": org.ID, "name": org.Name, "slug": org.Slug}})
}

// GetOrgOverview returns the anonymized aggregate; any member may read it.
func (a *API) GetOrgOverview(c *gin.Context) {
	_, orgID, ok := a.orgCaller(c, db.OrgRoleMember)
	if !ok {
		return
	}

	overview, err := a.orgs.Overview(orgID)
	if err != nil {
		handleOrgError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": overview})
}

// ListOrgMembers returns memberships; requires team_manager or better.
func (a *API) ListOrgMembers(c *gin.Context) {
	_, orgID, ok := a.orgCaller(c, db.OrgRoleTeamManager)
	if !ok {
		return
	}

	members, err := a.orgs.Members(orgID)
	if err != nil {
		handleOrgError(c, err)
		return
	}

	items := make([]gin.H, 0, len(members))
	for _, member := range members {
		items = append(items, gin.H{
			"user_id":      member.UserID,
			"username":     member.User.Username,
			"display_name": member.User.DisplayName,
			"role":         member.Role,
		})
	}
	c.JSON(http.StatusOK, gin.H{"members": items})
}

// AddOrgMember attaches a user; requires org_admin.
func (a *API) AddOrgMember(c *gin.Context) {
	_, orgID, ok := a.orgCaller(c, db.OrgRoleAdmin)
	if !ok {
		return
	}

	var payload memberRequest
	if !bindJSON(c, &payload, "user_id and role are required") {
		return
	}

	member, err := a.orgs.AddMember(orgID, payload.UserID, payload.Role)
	if err != nil {
		handleOrgError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": gin.H{"user_id": member.UserID, "role": member.Role}})
}

// UpdateOrgMemberRole changes a member's role under the last-admin guard.
func (a *API) UpdateOrgMemberRole(c *gin.Context) {
	user, orgID, ok := a.orgCaller(c, "")
	if !ok {
		return
	}

	targetID, err := parseUintParam(c, "userId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid user id")
		return
	}

	var payload roleRequest
	if !bindJSON(c, &payload, "role is required") {
		return
	}

	member, err := a.orgs.UpdateRole(orgID, *user, targetID, payload.Role)
	if err != nil {
		handleOrgError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": gin.H{"user_id": member.UserID, "role": member.Role}})
}

// RemoveOrgMember detaches a member under the last-admin guard.
func (a *API) RemoveOrgMember(c *gin.Context) {
	user, orgID, ok := a.orgCaller(c, "")
	if !ok {
		return
	}

	targetID, err := parseUintParam(c, "userId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := a.orgs.RemoveMember(orgID, *user, targetID); err != nil {
		handleOrgError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// orgCaller resolves the caller and the :orgId param, optionally enforcing a
// minimum role up front. An empty minRole defers the check to the service.
func (a *API) orgCaller(c *gin.Context, minRole string) (*db.User, uint, bool) {
	user, ok := a.currentUser(c)
	if !ok {
		return nil, 0, false
	}

	orgID, err := parseUintParam(c, "orgId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid organization id")
		return nil, 0, false
	}

	if minRole != "" {
		if err := a.orgs.RequireRole(orgID, *user, minRole); err != nil {
			handleOrgError(c, err)
			return nil, 0, false
		}
	}

	return user, orgID, true
}

func handleOrgError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrgNotFound),
		errors.Is(err, service.ErrMembershipNotFound):
		respondError(c, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrOrgForbidden):
		respondError(c, http.StatusForbidden, "insufficient role")
	case errors.Is(err, service.ErrOrgRoleInvalid):
		respondError(c, http.StatusBadRequest, "invalid role")
	case errors.Is(err, service.ErrLastOrgAdmin):
		respondError(c, http.StatusConflict, "organization must keep at least one org_admin")
	default:
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}
