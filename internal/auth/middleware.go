package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const CtxUserKey = "auth_user"

// Middleware authenticates the request before any handler runs. Two
// schemes are accepted: HTTP Basic against the users table, and a bearer
// service token. Both must carry an editing role.
func Middleware(repo *Repo, tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if username, password, ok := c.Request.BasicAuth(); ok {
			user, err := repo.GetByUsername(c.Request.Context(), username)
			if err != nil || user == nil {
				unauthorized(c, "invalid credentials")
				return
			}
			if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
				unauthorized(c, "invalid credentials")
				return
			}
			if !user.CanEdit() {
				forbidden(c)
				return
			}
			c.Set(CtxUserKey, user.Username)
			c.Next()
			return
		}

		h := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(h), "bearer ") {
			raw := strings.TrimSpace(h[len("Bearer "):])
			claims, err := tokens.Parse(raw)
			if err != nil {
				unauthorized(c, "invalid token")
				return
			}
			u := User{Username: claims.Username, Role: claims.Role}
			if !u.CanEdit() {
				forbidden(c)
				return
			}
			c.Set(CtxUserKey, claims.Username)
			c.Next()
			return
		}

		unauthorized(c, "missing credentials")
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Basic realm="authorsync"`)
	c.JSON(http.StatusUnauthorized, gin.H{"code": "Unauthorized", "message": msg})
	c.Abort()
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"code": "Forbidden", "message": "edit capability required"})
	c.Abort()
}
