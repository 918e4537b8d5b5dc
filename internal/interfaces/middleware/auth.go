package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-realtime-template/internal/domain/user"
	"go-realtime-template/internal/port/inbound"
)

const currentUserKey = "current_user"

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireUser resolves the bearer token to a user and stores it on the
// context. Any failure answers 401.
func RequireUser(users inbound.UserUseCase) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.Request)
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			AbortWithDetail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}

		u, err := users.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			AbortWithDetail(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		c.Set(currentUserKey, u)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireUser.
func CurrentUser(c *gin.Context) *user.User {
	u, _ := c.Get(currentUserKey)
	current, _ := u.(*user.User)
	return current
}
