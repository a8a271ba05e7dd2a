package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
	"velvet/pkg/requestcontext"
)

type stubValidator struct {
	claims *TokenClaims
	err    error
}

func (s *stubValidator) ValidateToken(string) (*TokenClaims, error) {
	return s.claims, s.err
}

func run(t *testing.T, validator TokenValidator, authHeader string) (*httptest.ResponseRecorder, id.ActorID, id.Role) {
	t.Helper()
	var gotActor id.ActorID
	var gotRole id.Role
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = requestcontext.ActorID(r.Context())
		gotRole = requestcontext.Role(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := RequireAuth(validator, slog.New(slog.DiscardHandler))(next)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/claims", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	handler.ServeHTTP(rec, req)
	return rec, gotActor, gotRole
}

func TestRequireAuth(t *testing.T) {
	actorID := id.NewActorID()

	t.Run("valid token resolves actor and role", func(t *testing.T) {
		v := &stubValidator{claims: &TokenClaims{ActorID: actorID.String(), Role: "moderator"}}
		rec, gotActor, gotRole := run(t, v, "Bearer good-token")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, actorID, gotActor)
		assert.Equal(t, id.RoleModerator, gotRole)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		v := &stubValidator{claims: &TokenClaims{ActorID: actorID.String(), Role: "user"}}
		rec, _, _ := run(t, v, "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "unauthorized")
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		v := &stubValidator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}
		rec, _, _ := run(t, v, "Bearer bad-token")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		v := &stubValidator{claims: &TokenClaims{ActorID: actorID.String(), Role: "superuser"}}
		rec, _, _ := run(t, v, "Bearer good-token")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed actor id is rejected", func(t *testing.T) {
		v := &stubValidator{claims: &TokenClaims{ActorID: "not-a-uuid", Role: "user"}}
		rec, _, _ := run(t, v, "Bearer good-token")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
