package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/joegr/ReTurni/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParsePolicies(t *testing.T) {
	policies, err := ParsePolicies(map[string]string{
		"leaderboards": "public",
		"reviews":      "required",
		"audit":        "required:system:view_audit",
		"tournaments":  "optional",
	})
	require.NoError(t, err)

	assert.Equal(t, Policy{Mode: PolicyPublic}, policies["leaderboards"])
	assert.Equal(t, Policy{Mode: PolicyRequired}, policies["reviews"])
	assert.Equal(t, Policy{Mode: PolicyRequired, Permission: models.PermissionSystemViewAudit}, policies["audit"])
	assert.Equal(t, Policy{Mode: PolicyOptional}, policies["tournaments"])

	// Unconfigured services fall back to the optional zero value.
	assert.Equal(t, Policy{Mode: PolicyOptional}, policies["elo"])
}

func TestParsePoliciesRejectsUnknownValues(t *testing.T) {
	_, err := ParsePolicies(map[string]string{"audit": "admin-only"})
	assert.Error(t, err)

	_, err = ParsePolicies(map[string]string{"audit": "required:"})
	assert.Error(t, err)
}

func TestServiceAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stack := newAuthStack(t)

	viewerToken, err := stack.tokens.IssueAccessToken("user-1", "viewer@tournament.com", models.RoleViewer, "")
	require.NoError(t, err)
	adminToken, err := stack.tokens.IssueAccessToken("user-2", "admin@tournament.com", models.RoleAdmin, "")
	require.NoError(t, err)

	policies := map[string]Policy{
		"leaderboards": {Mode: PolicyPublic},
		"reviews":      {Mode: PolicyRequired},
		"audit":        {Mode: PolicyRequired, Permission: models.PermissionSystemViewAudit},
	}

	router := gin.New()
	router.Use(RequestID(zaptest.NewLogger(t), "1.0.0"))
	router.Any("/api/v1/:service/*path", ServiceAuth(stack.auth, policies), func(c *gin.Context) {
		principal := PrincipalFromContext(c)
		subject := ""
		if principal != nil {
			subject = principal.SubjectID
		}
		c.JSON(http.StatusOK, gin.H{"subject": subject})
	})

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{name: "public service anonymous", path: "/api/v1/leaderboards/top", wantStatus: http.StatusOK},
		{name: "optional service anonymous", path: "/api/v1/tournaments/1", wantStatus: http.StatusOK},
		{name: "optional service bad token still passes", path: "/api/v1/tournaments/1", token: "garbage", wantStatus: http.StatusOK},
		{name: "required service anonymous", path: "/api/v1/reviews/1", wantStatus: http.StatusUnauthorized, wantCode: models.CodeUnauthorized},
		{name: "required service with token", path: "/api/v1/reviews/1", token: viewerToken, wantStatus: http.StatusOK},
		{name: "audit as viewer", path: "/api/v1/audit/logs", token: viewerToken, wantStatus: http.StatusForbidden, wantCode: models.CodeForbidden},
		{name: "audit anonymous", path: "/api/v1/audit/logs", wantStatus: http.StatusUnauthorized, wantCode: models.CodeUnauthorized},
		{name: "audit as admin", path: "/api/v1/audit/logs", token: adminToken, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				resp := decodeEnvelope(t, w)
				assert.False(t, resp.Success)
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				assert.NotEmpty(t, resp.RequestID)
			}
		})
	}
}
