package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// RequireSession resolves the session from the named cookie, or from a bearer
// token when the cookie is absent.
func RequireSession(issuer *Issuer, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(cookieName)
		if token == "" {
			authz := c.GetHeader("Authorization")
			if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
		session, err := issuer.Decode(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequireRole rejects sessions whose role is not listed. It must run after
// RequireSession.
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		for _, r := range roles {
			if session.Role == r {
				c.Next()
				return
			}
		}
		msg := "Forbidden"
		if len(roles) == 1 {
			msg = "User is not a " + strings.ToLower(string(roles[0]))
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msg})
	}
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}
