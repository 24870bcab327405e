package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/models"
	"gorm.io/gorm"
)

const userKey = "auth.user"

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the token query parameter used by websocket clients.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Authenticate verifies token and loads the active user it names.
func Authenticate(ctx context.Context, db *gorm.DB, iss *Issuer, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.Unauthenticatedf("No token provided. Authorization denied.")
	}
	claims, err := iss.Verify(token)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.Unauthenticated, Message: "Invalid or expired token.", Err: err}
	}
	var user models.User
	err = db.WithContext(ctx).Where("id = ?", claims.UserID()).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthenticatedf("User not found or inactive.")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "auth: load user")
	}
	if !user.IsActive {
		return nil, apperr.Unauthenticatedf("User not found or inactive.")
	}
	return &user, nil
}

// RequireUser rejects requests without a valid token for an active user and
// stores the user on the context.
func RequireUser(db *gorm.DB, iss *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := Authenticate(c.Request.Context(), db, iss, TokenFromRequest(c.Request))
		if err != nil {
			kind := apperr.KindOf(err)
			c.AbortWithStatusJSON(kind.HTTPStatus(), gin.H{
				"success": false,
				"message": apperr.PublicMessage(err),
			})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireRole rejects authenticated users whose role is not listed.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required.",
			})
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Access denied. Insufficient permissions.",
		})
	}
}

// CurrentUser returns the user stored by RequireUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
