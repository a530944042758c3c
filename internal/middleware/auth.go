package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/floorpro/measure-backend-go/pkg/response"
)

// Context keys set by Auth
const (
	WorkspaceKey = "workspace_id"
	UserKey      = "user_id"
)

// WorkspaceHeader selects the workspace when authentication is disabled
const WorkspaceHeader = "X-Workspace-ID"

// DefaultWorkspace is used when auth is disabled and no header is sent
const DefaultWorkspace = "default"

var errMissingWorkspace = errors.New("token has no workspace_id claim")

// Claims are the bearer token claims the service relies on. Tokens are issued
// elsewhere.
type Claims struct {
	WorkspaceID string `json:"workspace_id"`
	jwt.RegisteredClaims
}

// Auth verifies HS256 bearer tokens and stores the workspace and user in the
// context. An empty secret disables verification.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		if secret == "" {
			ws := c.GetHeader(WorkspaceHeader)
			if ws == "" {
				ws = DefaultWorkspace
			}
			c.Set(WorkspaceKey, ws)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			response.Unauthorized(c, "Missing bearer token")
			return
		}

		var claims Claims
		if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}); err != nil {
			response.Error(c, 401, "Invalid token", err)
			return
		}
		if claims.WorkspaceID == "" {
			response.Error(c, 401, "Invalid token", errMissingWorkspace)
			return
		}

		c.Set(WorkspaceKey, claims.WorkspaceID)
		c.Set(UserKey, claims.Subject)
		c.Next()
	}
}

// WorkspaceID returns the workspace of the request
func WorkspaceID(c *gin.Context) string {
	return c.GetString(WorkspaceKey)
}

// UserID returns the token subject, empty when auth is disabled
func UserID(c *gin.Context) string {
	return c.GetString(UserKey)
}

// SignToken issues a token for tests and local tooling
func SignToken(secret, workspaceID, subject string) (string, error) {
	claims := Claims{
		WorkspaceID:      workspaceID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
