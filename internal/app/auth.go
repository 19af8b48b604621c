package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"interview-scheduler/internal/logger"
)

type Role string

const (
	RoleRecruiter Role = "recruiter"
	RoleCandidate Role = "candidate"
)

const principalKey = "principal"

// Principal is the authenticated caller. ProfileID is set for candidates only.
type Principal struct {
	UserID    string
	Role      Role
	ProfileID string
}

func (p Principal) CanView(inv *Invitation) bool {
	switch p.Role {
	case RoleRecruiter:
		return inv.RecruiterID == p.UserID
	case RoleCandidate:
		return inv.CandidateProfileID == p.ProfileID
	default:
		return false
	}
}

// Claims are issued by the marketplace's identity service.
type Claims struct {
	Role      Role   `json:"role"`
	ProfileID string `json:"profile_id,omitempty"`
	jwt.RegisteredClaims
}

var validMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

func parseToken(tokenStr string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithLeeway(5*time.Second), jwt.WithValidMethods(validMethods))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// AuthMiddleware accepts HMAC-signed bearer JWTs and stores the caller's Principal on the
// gin context.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		claims, err := parseToken(parts[1], secret)
		if err != nil || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Role != RoleRecruiter && claims.Role != RoleCandidate {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		p := Principal{UserID: claims.Subject, Role: claims.Role, ProfileID: claims.ProfileID}
		if p.Role == RoleCandidate && p.ProfileID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "candidate token without profile"})
			return
		}
		c.Set(principalKey, p)

		fields := logger.LogFields{}
		if p.Role == RoleRecruiter {
			fields.RecruiterID = logger.Ptr(p.UserID)
		} else {
			fields.CandidateProfileID = logger.Ptr(p.ProfileID)
		}
		c.Request = c.Request.WithContext(logger.WithLogFields(c.Request.Context(), fields))
		c.Next()
	}
}

// RequireRole rejects authenticated callers of the wrong role with 403.
func RequireRole(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		if p.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("%s role required", role)})
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// IssueToken signs a token for p. The identity service owns issuance in production; this is
// used by tooling and tests.
func IssueToken(secret []byte, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:      p.Role,
		ProfileID: p.ProfileID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

const oauthStateAudience = "calendar-connect"

// signState binds an OAuth round trip to the recruiter who started it.
func signState(secret []byte, recruiterID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   recruiterID,
		Audience:  jwt.ClaimStrings{oauthStateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseState(secret []byte, state string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithAudience(oauthStateAudience), jwt.WithValidMethods(validMethods))
	if err != nil {
		return "", fmt.Errorf("%w: invalid oauth state: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", errors.Join(ErrUnauthorized, errors.New("oauth state without subject"))
	}
	return claims.Subject, nil
}
