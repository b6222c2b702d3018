package handler

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
)

func createOrg(t *testing.T, sc *sessionClient) uint {
	t.Helper()

	w := sc.do(t, http.MethodPost, "/api/v1/orgs", map[string]any{
		"name": "Lumi Lab",
		"slug": "lumi-lab",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create org failed with status %d: %s", w.Code, w.Body.String())
	}

	var payload struct {
		Organization struct {
			ID uint `json:"id"`
		} `json:"organization"`
	}
	decodeBody(t, w, &payload)
	if payload.Organization.ID == 0 {
		t.Fatalf("expected org id in response: %s", w.Body.String())
	}
	return payload.Organization.ID
}

func userID(t *testing.T, username string) uint {
	t.Helper()
	var user db.User
	if err := db.DB.Where("username = ?", username).First(&user).Error; err != nil {
		t.Fatalf("failed to load user %s: %v", username, err)
	}
	return user.ID
}

func TestOrgMemberEndpointsEnforceRoles(t *testing.T) {
	engine, _, cleanup := setupTestRouter(t)
	defer cleanup()

	admin := registerClient(t, engine, "admin")
	member := registerClient(t, engine, "member")
	orgID := createOrg(t, admin)
	orgPath := fmt.Sprintf("/api/v1/orgs/%d", orgID)

	w := admin.do(t, http.MethodPost, orgPath+"/members", map[string]any{
		"user_id": userID(t, "member"),
		"role":    db.OrgRoleMember,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add member failed with status %d: %s", w.Code, w.Body.String())
	}

	// Members can read the overview but not the roster.
	if w := member.do(t, http.MethodGet, orgPath+"/overview", nil); w.Code != http.StatusOK {
		t.Fatalf("overview for member failed with status %d: %s", w.Code, w.Body.String())
	}
	if w := member.do(t, http.MethodGet, orgPath+"/members", nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for member roster read, got %d", w.Code)
	}
	if w := member.do(t, http.MethodPost, orgPath+"/members", map[string]any{
		"user_id": 99, "role": db.OrgRoleMember,
	}); w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for member adding members, got %d", w.Code)
	}

	// Outsiders see a 403 even for the overview.
	outsider := registerClient(t, engine, "outsider")
	if w := outsider.do(t, http.MethodGet, orgPath+"/overview", nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for outsider, got %d", w.Code)
	}

	var roster struct {
		Members []struct {
			UserID uint   `json:"user_id"`
			Role   string `json:"role"`
		} `json:"members"`
	}
	w = admin.do(t, http.MethodGet, orgPath+"/members", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("roster for admin failed with status %d: %s", w.Code, w.Body.String())
	}
	decodeBody(t, w, &roster)
	if len(roster.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(roster.Members))
	}
}

func TestOrgLastAdminGuardOverHTTP(t *testing.T) {
	engine, _, cleanup := setupTestRouter(t)
	defer cleanup()

	admin := registerClient(t, engine, "admin")
	orgID := createOrg(t, admin)
	adminID := userID(t, "admin")

	path := fmt.Sprintf("/api/v1/orgs/%d/members/%d", orgID, adminID)

	w := admin.do(t, http.MethodPut, path+"/role", map[string]any{"role": db.OrgRoleMember})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409 demoting the last admin, got %d: %s", w.Code, w.Body.String())
	}

	w = admin.do(t, http.MethodDelete, path, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409 removing the last admin, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSettingsRequireSuperAdmin(t *testing.T) {
	engine, _, cleanup := setupTestRouter(t)
	defer cleanup()

	regular := registerClient(t, engine, "alice")
	if w := regular.do(t, http.MethodGet, "/api/v1/admin/settings", nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for regular user, got %d", w.Code)
	}

	root := registerClient(t, engine, "root")
	if err := db.DB.Model(&db.User{}).Where("username = ?", "root").
		Update("super_admin", true).Error; err != nil {
		t.Fatalf("failed to promote root: %v", err)
	}

	w := root.do(t, http.MethodPut, "/api/v1/admin/settings", map[string]any{
		"site_name":   "Self Lab",
		"ai_base_url": "https://ai.example.com/v1",
		"ai_api_key":  "sk-test",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update settings failed with status %d: %s", w.Code, w.Body.String())
	}

	w = root.do(t, http.MethodGet, "/api/v1/admin/settings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get settings failed with status %d: %s", w.Code, w.Body.String())
	}

	var payload struct {
		Settings struct {
			SiteName     string `json:"site_name"`
			AIKeyPresent bool   `json:"ai_key_present"`
		} `json:"settings"`
	}
	decodeBody(t, w, &payload)
	if payload.Settings.SiteName != "Self Lab" || !payload.Settings.AIKeyPresent {
		t.Fatalf("unexpected settings payload: %s", w.Body.String())
	}
	// The raw key must never round-trip.
	if body := w.Body.String(); strings.Contains(body, "sk-test") {
		t.Fatalf("api key leaked in response: %s", body)
	}
}
