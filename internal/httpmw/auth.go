package httpmw

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ServiceClaims identifies the calling service in an inter-service token,
// adapted from the teacher's UserClaims (which identified an end user; this
// fleet has no end-user accounts, only services and one shared operator).
type ServiceClaims struct {
	Service string `json:"svc"`
	jwt.RegisteredClaims
}

// SignServiceToken mints a short-lived token the caller presents on its next
// inter-service HTTP request.
func SignServiceToken(secret, service string, ttl time.Duration) (string, error) {
	claims := ServiceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseServiceToken(tokenStr, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ServiceClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Service, nil
}

const callerServiceKey = "callerService"

// ServiceAuth verifies the Authorization: Bearer <jwt> header carries a
// service token signed with secret. Used on the analyst, risk and executor
// endpoints that the orchestrator calls in its synchronous modes.
func ServiceAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		svc, err := parseServiceToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid service token"})
			return
		}
		c.Set(callerServiceKey, svc)
		c.Next()
	}
}

// CallerService returns the authenticated caller's service name.
func CallerService(c *gin.Context) string { return c.GetString(callerServiceKey) }

// AdminAuth checks the X-Admin-Token header against the secret loaded from
// tokenFile, gating the operator control-plane routes (the orchestrator's
// PnL reset, halt/unhalt, stream/DLQ and /chat routes, and the optimizer's
// approval route).
func AdminAuth(tokenFile string) gin.HandlerFunc {
	return func(c *gin.Context) {
		want, err := readAdminToken(tokenFile)
		if err != nil || want == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin token not configured"})
			return
		}
		got := c.GetHeader("X-Admin-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
			return
		}
		c.Next()
	}
}

func readAdminToken(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
