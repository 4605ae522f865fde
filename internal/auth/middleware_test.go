package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokenService struct {
	claims *TokenClaims
	err    error
}

func (s stubTokenService) CreateToken(uuid.UUID, string, time.Duration) (string, error) {
	return "stub", nil
}

func (s stubTokenService) VerifyToken(string) (*TokenClaims, error) {
	return s.claims, s.err
}

func protectedHandler(t *testing.T, called *bool, wantID uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		id, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, wantID, id)

		email, ok := GetUserEmailFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "a@x.com", email)

		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_ValidToken(t *testing.T) {
	svc := newTestJWT(t)
	id := uuid.New()
	token, err := svc.CreateToken(id, "a@x.com", time.Hour)
	require.NoError(t, err)

	var called bool
	h := NewMiddleware(svc).RequireAuth(protectedHandler(t, &called, id))

	req := httptest.NewRequest(http.MethodPatch, "/api/users/"+id.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_Rejects(t *testing.T) {
	svc := newTestJWT(t)

	expired := newTestJWT(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.CreateToken(uuid.New(), "a@x.com", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		svc    TokenService
	}{
		{name: "missing header", header: "", svc: svc},
		{name: "wrong scheme", header: "Basic abc", svc: svc},
		{name: "empty token", header: "Bearer ", svc: svc},
		{name: "garbage token", header: "Bearer abc.def.ghi", svc: svc},
		{name: "expired token", header: "Bearer " + expiredToken, svc: svc},
		{name: "non uuid subject", header: "Bearer x", svc: stubTokenService{claims: &TokenClaims{UserID: "42", Email: "a@x.com"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			h := NewMiddleware(tt.svc).RequireAuth(protectedHandler(t, &called, uuid.Nil))

			req := httptest.NewRequest(http.MethodPatch, "/api/users/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"message":"Authentication failed."}`, rec.Body.String())
		})
	}
}

func TestRequireAuth_PreflightPassesThrough(t *testing.T) {
	var called bool
	h := NewMiddleware(stubTokenService{err: ErrInvalidToken}).RequireAuth(protectedHandler(t, &called, uuid.Nil))

	req := httptest.NewRequest(http.MethodOptions, "/api/users/1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
