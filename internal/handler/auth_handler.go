package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const sessionUserKey = "user_id"

type credentialsPayload struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// Register creates an account and opens a session for it.
func (a *API) Register(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "username and password are required") {
		return
	}

	username := strings.TrimSpace(payload.Username)
	if username == "" || strings.TrimSpace(payload.Password) == "" {
		respondError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	var existing db.User
	err := a.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		respondError(c, http.StatusConflict, "username is taken")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusInternalServerError, "failed to create account")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to create account")
		return
	}

	user := db.User{
		Username:    username,
		Password:    string(hashed),
		DisplayName: strings.TrimSpace(payload.DisplayName),
	}
	if err := a.db.Create(&user).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to create account")
		return
	}

	if !openSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userToPayload(user)})
}

// Login verifies credentials and opens a session.
func (a *API) Login(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "username and password are required") {
		return
	}

	var user db.User
	if err := a.db.Where("username = ?", strings.TrimSpace(payload.Username)).
		First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if !openSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userToPayload(user)})
}

// Logout clears the session.
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to clear session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me returns the calling identity.
func (a *API) Me(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userToPayload(*user)})
}

// AuthRequired rejects requests without a resolvable caller identity before
// any data access happens.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get(sessionUserKey) == nil {
			respondError(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentUser loads the session's user row. Writes a 401 and returns false
// when the identity cannot be resolved.
func (a *API) currentUser(c *gin.Context) (*db.User, bool) {
	session := sessions.Default(c)
	raw := session.Get(sessionUserKey)
	userID, ok := raw.(uint)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		c.Abort()
		return nil, false
	}

	var user db.User
	if err := a.db.First(&user, userID).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		c.Abort()
		return nil, false
	}
	return &user, true
}

func openSession(c *gin.Context, user db.User) bool {
	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return false
	}
	return true
}

func userToPayload(user db.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"display_name": user.DisplayName,
		"super_admin":  user.SuperAdmin,
	}
}
