// jwt.go provides JWT authentication and the combined API-key-or-JWT check.
package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

const tokenLifetime = 72 * time.Hour

// JWTClaims extends standard JWT claims with user info.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a new JWT token for a user.
func GenerateJWT(user *models.User, secret string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates and parses a JWT token string. Only HS256 is accepted.
func ParseJWT(tokenString, secret string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(h, "Bearer "), true
}

// authenticateJWT resolves a bearer token to its user.
func authenticateJWT(c *gin.Context, store AuthStore, secret string) (*models.User, bool) {
	tokenString, ok := bearerToken(c)
	if !ok {
		return nil, false
	}
	claims, err := ParseJWT(tokenString, secret)
	if err != nil {
		return nil, false
	}
	user, err := store.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, false
	}
	c.Set(string(userContextKey), user)
	return user, true
}

// JWTAuth returns middleware that requires a valid JWT Bearer token.
// Account management (API keys) uses it, so a leaked API key can't mint more.
func JWTAuth(store AuthStore, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := authenticateJWT(c, store, jwtSecret); !ok {
			abortUnauthorized(c, "Missing, invalid or expired token. Use 'Authorization: Bearer <token>'")
			return
		}
		c.Next()
	}
}

// DualAuth returns middleware that accepts EITHER an API key OR a JWT token.
func DualAuth(store AuthStore, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rawKey := c.GetHeader("X-API-Key"); rawKey != "" {
			if _, ok := authenticateAPIKey(c, store, rawKey); ok {
				c.Next()
				return
			}
		}

		if _, ok := authenticateJWT(c, store, jwtSecret); ok {
			c.Next()
			return
		}

		abortUnauthorized(c, "Provide a valid X-API-Key header or Authorization: Bearer <token>")
	}
}

// GetUser retrieves the JWT-authenticated user from the request context.
func GetUser(c *gin.Context) *models.User {
	val, exists := c.Get(string(userContextKey))
	if !exists {
		return nil
	}
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}
