package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxUserClaims = "market_user_claims"

// RequireUserToken returns a Gin middleware that enforces a valid user session Bearer token.
//
// On success it injects the *UserTokenClaims into the context under the
// "market_user_claims" key.
func RequireUserToken(tokens *UserTokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer user token required",
			})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid user token: " + err.Error(),
			})
			return
		}

		c.Set(ctxUserClaims, claims)
		c.Next()
	}
}

// RequireAdmin returns a Gin middleware that enforces a valid admin Bearer
// token. Only tokens with Role="admin" are accepted. The market uses this to
// gate the abuse moderation queue (AbuseDesk.Queue/Resolve) — filing a
// report stays open to any authenticated user, but triaging the queue does
// not.
func RequireAdmin(tokens *UserTokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "admin Bearer token required",
			})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token: " + err.Error(),
			})
			return
		}

		if claims.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin role required",
			})
			return
		}

		c.Set(ctxUserClaims, claims)
		c.Next()
	}
}

// UserClaimsFromCtx retrieves the user token claims injected by
// RequireUserToken or RequireAdmin. Returns nil if no user token is present
// in the context.
func UserClaimsFromCtx(c *gin.Context) *UserTokenClaims {
	v, _ := c.Get(ctxUserClaims)
	claims, _ := v.(*UserTokenClaims)
	return claims
}
