package api

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Constants for context keys
const (
	ContextUserIDKey = "userID"
)

// supabaseClaims is the payload of an access token issued by the hosted
// auth service. The subject is the user id.
type supabaseClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var (
	errNoToken        = errors.New("missing access token")
	errMalformedToken = errors.New("authorization header format must be Bearer {token}")
)

// tokenVerifier checks access tokens against the shared signing secret.
type tokenVerifier struct {
	secret     []byte
	cookieName string
}

// extract reads the token from the Authorization header, falling back to
// the session cookie.
func (v *tokenVerifier) extract(c *gin.Context) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return "", errMalformedToken
		}
		return parts[1], nil
	}
	if v.cookieName != "" {
		if cookie, err := c.Cookie(v.cookieName); err == nil && cookie != "" {
			return cookie, nil
		}
	}
	return "", errNoToken
}

// verify parses tokenString and returns the user id.
func (v *tokenVerifier) verify(tokenString string) (string, error) {
	claims := &supabaseClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token or missing subject")
	}
	if claims.ExpiresAt == nil {
		return "", errors.New("token has no expiry")
	}
	return claims.Subject, nil
}

// AuthMiddleware creates a Gin middleware that requires a valid session.
func AuthMiddleware(jwtSecret, cookieName string) gin.HandlerFunc {
	v := &tokenVerifier{secret: []byte(jwtSecret), cookieName: cookieName}
	return func(c *gin.Context) {
		tokenString, err := v.extract(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		userID, err := v.verify(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, "Invalid token")
			}
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the user id when a valid session is present
// and lets the request through either way. A present but invalid token is
// still rejected.
func OptionalAuthMiddleware(jwtSecret, cookieName string) gin.HandlerFunc {
	v := &tokenVerifier{secret: []byte(jwtSecret), cookieName: cookieName}
	return func(c *gin.Context) {
		tokenString, err := v.extract(c)
		if errors.Is(err, errNoToken) {
			c.Next()
			return
		}
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		userID, err := v.verify(tokenString)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// Helper function to get User ID from context (used by handlers).
// Returns "" for anonymous requests.
func getUserIDFromContext(c *gin.Context) string {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return ""
	}
	id, _ := idRaw.(string)
	return id
}

// RequestLogger logs one line per request at a level that follows the status.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("remote_ip", c.ClientIP()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if uid := getUserIDFromContext(c); uid != "" {
			fields = append(fields, zap.String("userId", uid))
		}
		if ce := logger.Check(levelForStatus(status), "http request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func levelForStatus(code int) zapcore.Level {
	if code >= 500 {
		return zapcore.ErrorLevel
	}
	if code >= 400 {
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// Recovery guards handlers against panics and returns a 500 response.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic",
					zap.Any("panic", v),
					zap.String("path", c.Request.URL.Path),
					zap.String("stack", string(debug.Stack())))
				abortWithError(c, http.StatusInternalServerError, "Internal server error")
			}
		}()
		c.Next()
	}
}
