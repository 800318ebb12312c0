package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by RequireAuth.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// Claims is the payload of an access token.
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and checks HS256 access tokens.
type Auth struct {
	secret []byte
	ttl    time.Duration
}

// NewAuth returns an Auth signing with secret; tokens live for ttl.
func NewAuth(secret string, ttl time.Duration) *Auth {
	return &Auth{secret: []byte(secret), ttl: ttl}
}

func (a *Auth) GenerateToken(userID uint, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Auth) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// authenticate validates the bearer token and stores its claims on the
// context. It aborts the request and returns false when the token is bad.
func (a *Auth) authenticate(c *gin.Context) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
		return false
	}

	claims, err := a.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return false
	}

	// Store claims in context for downstream handlers
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextRole, claims.Role)
	return true
}

// RequireAuth ensures a valid JWT is present
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.authenticate(c) {
			c.Next()
		}
	}
}

// RequireRole ensures the JWT is valid and carries one of roles.
func (a *Auth) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authenticate(c) {
			return
		}

		role := c.GetString(ContextRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// UserID returns the authenticated user id stored by RequireAuth.
func UserID(c *gin.Context) uint {
	return c.MustGet(ContextUserID).(uint)
}
