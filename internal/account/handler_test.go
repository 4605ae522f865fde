package account

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/accounts-api/internal/auth"
	"github.com/redmonkez12/accounts-api/internal/logging"
)

func TestHandler_UpdateUserLogsCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.service.Signup(ctx, validSignup("a@x.com"))
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := &logging.Logger{Logger: slog.New(slog.NewJSONHandler(&logs, nil))}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", a.User.ID.String())

	reqCtx := context.WithValue(ctx, chi.RouteCtxKey, rctx)
	reqCtx = context.WithValue(reqCtx, logging.LoggerContextKey, logger)
	reqCtx = context.WithValue(reqCtx, auth.UserIDContextKey, a.User.ID)
	reqCtx = context.WithValue(reqCtx, auth.UserEmailContextKey, "a@x.com")

	req := httptest.NewRequest(http.MethodPatch, "/api/users/"+a.User.ID.String(), strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	NewHandler(f.service, 1<<20).UpdateUser(rec, req.WithContext(reqCtx))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, logs.String(), `"caller_email":"a@x.com"`)
	assert.Contains(t, logs.String(), a.User.ID.String())
}
