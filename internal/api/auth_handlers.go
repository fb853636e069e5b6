package api

import (
	"errors"
	"net/http"
	"net/url"

	"sentinel-panel/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *handlers) login(c *gin.Context) {
	authURL, err := h.auth.BeginLogin()
	if err != nil {
		h.logger.Error("begin login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start login"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authUrl": authURL})
}

func (h *handlers) callback(c *gin.Context) {
	result, err := h.auth.HandleCallback(c.Request.Context(), auth.CallbackInput{
		Code:  c.Query("code"),
		State: c.Query("state"),
		Error: c.Query("error"),
	})
	if err != nil {
		c.Redirect(http.StatusFound, h.dashboardURL(auth.ErrorCode(err)))
		return
	}

	h.setCookie(c, result.Token)
	c.Redirect(http.StatusFound, h.dashboardURL(""))
}

func (h *handlers) me(c *gin.Context) {
	data, err := h.gate.Authenticate(h.cookieToken(c))
	if err != nil {
		if errors.Is(err, auth.ErrSessionExpired) {
			h.clearCookie(c)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired", "code": auth.ErrorCode(err)})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated", "code": auth.ErrorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": data.User, "guilds": data.Guilds})
}

func (h *handlers) logout(c *gin.Context) {
	if token := h.cookieToken(c); token != "" {
		h.auth.Logout(token)
	}
	h.clearCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// dashboardURL appends ?error=code when code is set. Tokens never appear in
// the redirect.
func (h *handlers) dashboardURL(code string) string {
	if code == "" {
		return h.cfg.DashboardURL
	}
	target, err := url.Parse(h.cfg.DashboardURL)
	if err != nil {
		return h.cfg.DashboardURL + "?error=" + url.QueryEscape(code)
	}
	query := target.Query()
	query.Set("error", code)
	target.RawQuery = query.Encode()
	return target.String()
}

func (h *handlers) cookieToken(c *gin.Context) string {
	token, err := c.Cookie(h.cfg.CookieName)
	if err != nil {
		return ""
	}
	return token
}

func (h *handlers) setCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, token, int(h.cfg.CookieMaxAge.Seconds()), "/", "", h.secure(c), true)
}

func (h *handlers) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, "", -1, "/", "", h.secure(c), true)
}

func (h *handlers) secure(c *gin.Context) bool {
	return h.cfg.SecureCookie || c.Request.TLS != nil
}
