package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /api/calendar/auth — start the admin Google Calendar connect flow.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if a.OAuth == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google Calendar not configured"})
		return
	}

	state := fmt.Sprintf("connect_%d", time.Now().Unix())
	c.JSON(http.StatusOK, gin.H{
		"auth_url": a.OAuth.AuthCodeURL(state),
		"state":    state,
	})
}

// GET /oauth2callback — Google redirects here; the token is persisted and
// never echoed back.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if a.OAuth == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google Calendar not configured"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}

	if err := a.OAuth.Exchange(c.Request.Context(), code); err != nil {
		a.Log.Error("oauth exchange failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}

	a.Log.Info("google calendar connected")
	c.JSON(http.StatusOK, gin.H{"message": "Authorization successful"})
}
