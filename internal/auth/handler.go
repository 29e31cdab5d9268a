package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Repo   *Repo
	Tokens TokenService
}

func NewHandler(repo *Repo, tokens TokenService) *Handler {
	return &Handler{Repo: repo, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/token", h.token)
}

// token exchanges Basic credentials for a service token, so automation
// callers don't have to send the password on every request.
func (h *Handler) token(c *gin.Context) {
	username, password, ok := c.Request.BasicAuth()
	if !ok {
		c.Header("WWW-Authenticate", `Basic realm="authorsync"`)
		c.JSON(http.StatusUnauthorized, gin.H{"code": "Unauthorized", "message": "basic credentials required"})
		return
	}

	user, err := h.Repo.GetByUsername(c.Request.Context(), username)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "Unauthorized", "message": "invalid credentials"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "Unauthorized", "message": "invalid credentials"})
		return
	}

	token, exp, err := h.Tokens.Sign(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "TokenError", "message": "token signing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp,
		"role":       user.Role,
	})
}
