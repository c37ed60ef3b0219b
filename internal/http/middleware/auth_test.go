package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careconnect/internal/auth"
)

func newIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	issuer, err := auth.NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	return issuer
}

func bearer(t *testing.T, issuer *auth.Issuer, role string, perms ...string) string {
	t.Helper()
	token, _, err := issuer.Issue("user-1", role, perms)
	require.NoError(t, err)
	return "Bearer " + token
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateMissingHeader(t *testing.T) {
	called := false
	rec := httptest.NewRecorder()
	Authenticate(newIssuer(t))(okHandler(&called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthenticateNilParser(t *testing.T) {
	called := false
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	Authenticate(nil)(okHandler(&called)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateInvalidToken(t *testing.T) {
	other, err := auth.NewIssuer("other", time.Hour)
	require.NoError(t, err)
	called := false
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, other, auth.RoleAdmin))
	rec := httptest.NewRecorder()
	Authenticate(newIssuer(t))(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthenticateStoresClaims(t *testing.T) {
	issuer := newIssuer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, issuer, auth.RolePatient))
	rec := httptest.NewRecorder()

	var role string
	Authenticate(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		role = claims.Role
	})).ServeHTTP(rec, req)

	assert.Equal(t, auth.RolePatient, role)
}

func TestOptionalAuthenticateAllowsAnonymous(t *testing.T) {
	issuer := newIssuer(t)
	rec := httptest.NewRecorder()
	var authenticated bool
	OptionalAuthenticate(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, authenticated = ClaimsFromContext(r.Context())
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, authenticated)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, issuer, auth.RoleAdmin))
	OptionalAuthenticate(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, authenticated = ClaimsFromContext(r.Context())
	})).ServeHTTP(rec, req)
	assert.True(t, authenticated)
}

func TestRequireRole(t *testing.T) {
	issuer := newIssuer(t)
	tests := []struct {
		name string
		role string
		want int
	}{
		{"admin allowed", auth.RoleAdmin, http.StatusOK},
		{"superadmin inherits admin", auth.RoleSuperAdmin, http.StatusOK},
		{"patient forbidden", auth.RolePatient, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", bearer(t, issuer, tt.role))
			rec := httptest.NewRecorder()
			chain := Authenticate(issuer)(RequireRole(auth.RoleAdmin)(okHandler(&called)))
			chain.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireRoleWithoutClaims(t *testing.T) {
	called := false
	rec := httptest.NewRecorder()
	RequireRole(auth.RoleAdmin)(okHandler(&called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermission(t *testing.T) {
	issuer := newIssuer(t)
	called := false

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Authorization", bearer(t, issuer, auth.RoleAdmin, auth.PermManagePatients))
	rec := httptest.NewRecorder()
	Authenticate(issuer)(RequirePermission(auth.PermManageDoctors)(okHandler(&called))).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)

	req.Header.Set("Authorization", bearer(t, issuer, auth.RoleAdmin, auth.PermManageDoctors))
	rec = httptest.NewRecorder()
	Authenticate(issuer)(RequirePermission(auth.PermManageDoctors)(okHandler(&called))).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}
