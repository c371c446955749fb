// Package middleware - Authentication middleware.
//
// Bearer token authentication with a pluggable validator. Production runs
// the JWT validator; development and tests can swap in the mock.
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/pkg/logger"
)

const (
	// AuthUserIDKey is the context key holding the authenticated user ID
	AuthUserIDKey = "auth_user_id"
	// AuthUserRoleKey is the context key holding the user's role
	AuthUserRoleKey = "auth_user_role"
)

// AuthConfig configures the authentication middleware.
type AuthConfig struct {
	// TokenValidator validates the bearer token and returns its claims
	TokenValidator func(token string) (*AuthClaims, error)
	// SkipPaths lists paths that do not require authentication
	SkipPaths []string
}

// AuthClaims holds the identity carried by an access token.
type AuthClaims struct {
	UserID string
	Email  string
	Role   string
	Exp    time.Time
}

// Auth verifies the Authorization header on every request.
//
// Flow:
// 1. Extract the token from the Authorization header
// 2. Validate it through TokenValidator
// 3. Store the identity on the gin context and the request context
// 4. Continue, or abort with 401
func Auth(config *AuthConfig) gin.HandlerFunc {
	skipMap := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithUnauthorized(c, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithUnauthorized(c, "Invalid authorization header format")
			return
		}

		token := parts[1]
		if token == "" {
			abortWithUnauthorized(c, "Token is required")
			return
		}

		claims, err := config.TokenValidator(token)
		if err != nil {
			abortWithUnauthorized(c, "Invalid or expired token")
			return
		}

		if claims.Exp.Before(time.Now()) {
			abortWithUnauthorized(c, "Token has expired")
			return
		}

		c.Set(AuthUserIDKey, claims.UserID)
		c.Set(AuthUserRoleKey, claims.Role)

		ctx := logger.WithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// abortWithUnauthorized sends a 401 response.
func abortWithUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
		"request_id": GetRequestID(c),
		"timestamp":  time.Now().UTC(),
	})
}

// RequireRole allows only the listed roles past this point.
//
// Runs after Auth. Role gating here is a first filter; staff-only use cases
// re-check the actor's privileges against the database.
func RequireRole(roles ...string) gin.HandlerFunc {
	roleMap := make(map[string]bool)
	for _, role := range roles {
		roleMap[role] = true
	}

	return func(c *gin.Context) {
		userRole := GetAuthUserRole(c)
		if userRole == "" {
			abortWithForbidden(c, "User role not found")
			return
		}

		if !roleMap[userRole] {
			abortWithForbidden(c, "Insufficient permissions")
			return
		}

		c.Next()
	}
}

// abortWithForbidden sends a 403 response.
func abortWithForbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "FORBIDDEN",
			"message": message,
		},
		"request_id": GetRequestID(c),
		"timestamp":  time.Now().UTC(),
	})
}

// ============================================
// JWT Token Validator
// ============================================

// jwtClaims is the wire shape of an access token.
type jwtClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTTokenValidator builds a TokenValidator that verifies HS256 tokens
// signed with secret and issued by issuer.
func JWTTokenValidator(secret, issuer string) func(token string) (*AuthClaims, error) {
	key := []byte(secret)

	return func(token string) (*AuthClaims, error) {
		parsed, err := jwt.ParseWithClaims(token, &jwtClaims{},
			func(t *jwt.Token) (interface{}, error) {
				return key, nil
			},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		)
		if err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}

		claims, ok := parsed.Claims.(*jwtClaims)
		if !ok || claims.Subject == "" {
			return nil, fmt.Errorf("token carries no subject")
		}

		return &AuthClaims{
			UserID: claims.Subject,
			Email:  claims.Email,
			Role:   claims.Role,
			Exp:    claims.ExpiresAt.Time,
		}, nil
	}
}

// SignToken issues an HS256 access token for the given identity. Tests sign
// their fixtures with it; production tokens come from the auth service.
func SignToken(secret, issuer, userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ============================================
// Helper functions for reading auth data
// ============================================

// GetAuthUserID returns the authenticated user's ID.
func GetAuthUserID(c *gin.Context) uuid.UUID {
	if id, exists := c.Get(AuthUserIDKey); exists {
		if strID, ok := id.(string); ok {
			if uid, err := uuid.Parse(strID); err == nil {
				return uid
			}
		}
	}
	return uuid.Nil
}

// GetAuthUserRole returns the authenticated user's role.
func GetAuthUserRole(c *gin.Context) string {
	if role, exists := c.Get(AuthUserRoleKey); exists {
		if strRole, ok := role.(string); ok {
			return strRole
		}
	}
	return ""
}

// ============================================
// Development/Testing Helpers
// ============================================

// MockTokenValidator treats the token as a user ID. Development only.
func MockTokenValidator(token string) (*AuthClaims, error) {
	return &AuthClaims{
		UserID: token,
		Email:  "test@example.com",
		Role:   "user",
		Exp:    time.Now().Add(24 * time.Hour),
	}, nil
}

// StaffMockTokenValidator is MockTokenValidator with the staff role.
func StaffMockTokenValidator(token string) (*AuthClaims, error) {
	return &AuthClaims{
		UserID: token,
		Email:  "staff@example.com",
		Role:   "staff",
		Exp:    time.Now().Add(24 * time.Hour),
	}, nil
}
