package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kural1554/Finance/internal/auth"
	"github.com/kural1554/Finance/internal/domain/staff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(jwt *auth.JWTManager, allowBearer bool, min staff.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", RequireAuth(jwt, allowBearer), RequireRole(min), func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"username": actor.Username, "role": actor.Role.String()})
	})
	return r
}

func mint(t *testing.T, jwt *auth.JWTManager, role, tokenType string) string {
	t.Helper()
	token, err := jwt.Mint(auth.Subject{UserID: "u-1", Username: "priya", Role: role}, "sess-1", tokenType, time.Minute)
	require.NoError(t, err)
	return token
}

func TestRequireAuthAcceptsCookie(t *testing.T) {
	jwt := auth.NewJWTManager("issuer", "aud", "secret")
	r := newTestEngine(jwt, false, staff.RoleStaff)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: mint(t, jwt, "MANAGER", auth.TokenTypeAccess)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"priya","role":"MANAGER"}`, w.Body.String())
}

func TestRequireAuthBearerOnlyWhenEnabled(t *testing.T) {
	jwt := auth.NewJWTManager("issuer", "aud", "secret")
	token := mint(t, jwt, "STAFF", auth.TokenTypeAccess)

	for _, tc := range []struct {
		allow bool
		want  int
	}{{false, http.StatusUnauthorized}, {true, http.StatusOK}} {
		r := newTestEngine(jwt, tc.allow, staff.RoleStaff)
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "allowBearer=%v", tc.allow)
	}
}

func TestRequireAuthRejectsRefreshTokens(t *testing.T) {
	jwt := auth.NewJWTManager("issuer", "aud", "secret")
	r := newTestEngine(jwt, true, staff.RoleStaff)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+mint(t, jwt, "ADMIN", auth.TokenTypeRefresh))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleFollowsHierarchy(t *testing.T) {
	jwt := auth.NewJWTManager("issuer", "aud", "secret")
	r := newTestEngine(jwt, true, staff.RoleManager)

	cases := map[string]int{
		"STAFF":    http.StatusForbidden,
		"MANAGER":  http.StatusOK,
		"ADMIN":    http.StatusOK,
		"BORROWER": http.StatusUnauthorized,
	}
	for role, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+mint(t, jwt, role, auth.TokenTypeAccess))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "role %s", role)
	}
}
