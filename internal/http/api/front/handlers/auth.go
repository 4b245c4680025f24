package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/optilift/entitlements/internal/config"
	"github.com/optilift/entitlements/internal/models"
	"github.com/optilift/entitlements/internal/plan"
	"github.com/optilift/entitlements/internal/profile"
	"github.com/optilift/entitlements/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthHandler serves signup and login for end users.
type AuthHandler struct {
	db       *gorm.DB
	jwtCfg   config.JWTConfig
	profiles *profile.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, profiles *profile.Service) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, profiles: profiles}
}

// signupRequest defines the request body for user signup.
type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Signup creates a credential account, bootstraps a free profile, and
// returns a session token.
func (h *AuthHandler) Signup(c *gin.Context) {
	var body signupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	password := strings.TrimSpace(body.Password)
	if len(password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	user := models.User{
		Username: username,
		Name:     strings.TrimSpace(body.Name),
		Email:    strings.TrimSpace(body.Email),
		Password: hash,
		Active:   true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		var existing models.User
		if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&existing).Error; errFind == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}

	p, errEnsure := h.profiles.Ensure(c.Request.Context(), identityForUser(&user), plan.Free)
	if errEnsure != nil {
		log.WithError(errEnsure).WithField("user_id", user.ID).Warn("signup: bootstrap profile failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bootstrap profile failed"})
		return
	}

	token, errToken := security.IssueUserToken(h.jwtCfg.Secret, p.ID, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":   token,
		"profile": formatProfile(p),
	})
}

// loginRequest defines the request body for user login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials, ensures the profile exists, stamps the login
// time, and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing credentials"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !security.CheckPassword(user.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.Active || user.Disabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}

	identity := identityForUser(&user)
	p, errEnsure := h.profiles.Ensure(c.Request.Context(), identity, plan.Free)
	if errEnsure != nil {
		log.WithError(errEnsure).WithField("user_id", user.ID).Warn("login: ensure profile failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ensure profile failed"})
		return
	}
	if stamped, errStamp := h.profiles.RecordLogin(c.Request.Context(), identity.ID); errStamp == nil {
		p = stamped
	} else {
		log.WithError(errStamp).WithField("user_id", user.ID).Warn("login: stamp login failed")
	}

	token, errToken := security.IssueUserToken(h.jwtCfg.Secret, identity.ID, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"profile": formatProfile(p),
	})
}
