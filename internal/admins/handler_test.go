package admins

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careconnect/internal/auth"
	"github.com/wolfman30/careconnect/internal/http/middleware"
)

func TestAdminRoutes(t *testing.T) {
	svc, issuer := newTestService(t)
	h := NewHandler(svc, nil)
	root, err := svc.Create(t.Context(), CreateRequest{Name: "Root", Email: "root@example.com", Password: "root-pass", Role: auth.RoleSuperAdmin})
	require.NoError(t, err)
	rootToken, _, err := issuer.Issue(root.ID, auth.RoleSuperAdmin, nil)
	require.NoError(t, err)
	adminToken, _, err := issuer.Issue("someone", auth.RoleAdmin, nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(issuer))
		r.With(middleware.RequireRole(auth.RoleAdmin)).Get("/all", h.List)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleSuperAdmin))
			r.Post("/create", h.Create)
			r.Put("/{id}/permissions", h.UpdatePermissions)
			r.Delete("/{id}", h.Delete)
		})
	})

	do := func(method, path, token string, body any) *httptest.ResponseRecorder {
		var raw []byte
		if body != nil {
			raw, _ = json.Marshal(body)
		}
		req := httptest.NewRequest(method, path, bytes.NewReader(raw))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	create := CreateRequest{Name: "Ops", Email: "ops@example.com", Password: "admin-pass"}
	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "/create", adminToken, create).Code)

	w := do(http.MethodPost, "/create", rootToken, create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created adminResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotContains(t, w.Body.String(), "password")

	assert.Equal(t, http.StatusConflict, do(http.MethodPost, "/create", rootToken, create).Code)

	w = do(http.MethodPut, "/"+created.Admin.ID+"/permissions", rootToken, PermissionsRequest{Permissions: Permissions{ManagePricing: true}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"managePricing":true`)

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/all", adminToken, nil).Code)

	w = do(http.MethodPost, "/login", "", LoginRequest{Email: "ops@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusBadRequest, do(http.MethodDelete, "/"+root.ID, rootToken, nil).Code)
	assert.Equal(t, http.StatusOK, do(http.MethodDelete, "/"+created.Admin.ID, rootToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodDelete, "/missing", rootToken, nil).Code)
}
