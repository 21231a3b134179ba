package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
	"gatekeeper/pkg/testutil"
)

type stubValidator struct {
	claims *IdentityClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*IdentityClaims, error) {
	return v.claims, v.err
}

type countingTracker struct {
	limit    int
	failures map[string]int
	reasons  []string
}

func (t *countingTracker) Failed(_ context.Context, clientIP, reason string) bool {
	t.failures[clientIP]++
	t.reasons = append(t.reasons, reason)
	return t.failures[clientIP] > t.limit
}

func newRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/admission", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.WithClientIP(req, "192.0.2.1")
}

func TestRequireIdentity(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("valid token sets actor", func(t *testing.T) {
		v := stubValidator{claims: &IdentityClaims{Email: "dev@acme.com", EmailVerified: true}}
		var actor string
		h := RequireIdentity(v, nil, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor = requestcontext.Actor(r.Context())
			require.True(t, requestcontext.EmailVerified(r.Context()))
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, newRequest("tok"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "dev@acme.com", actor)
	})

	t.Run("missing header", func(t *testing.T) {
		tracker := &countingTracker{limit: 5, failures: map[string]int{}}
		h := RequireIdentity(stubValidator{}, tracker, logger)(http.NotFoundHandler())

		w := httptest.NewRecorder()
		h.ServeHTTP(w, newRequest(""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`, w.Body.String())
		assert.Equal(t, []string{"missing token"}, tracker.reasons)
	})

	t.Run("unverified email", func(t *testing.T) {
		v := stubValidator{claims: &IdentityClaims{Email: "dev@acme.com", EmailVerified: false}}
		h := RequireIdentity(v, nil, logger)(http.NotFoundHandler())

		w := httptest.NewRecorder()
		h.ServeHTTP(w, newRequest("tok"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("repeated failures are throttled", func(t *testing.T) {
		tracker := &countingTracker{limit: 2, failures: map[string]int{}}
		v := stubValidator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}
		h := RequireIdentity(v, tracker, logger)(http.NotFoundHandler())

		var codes []int
		for range 3 {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, newRequest("bad"))
			codes = append(codes, w.Code)
		}
		assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
		assert.Equal(t, "invalid token", tracker.reasons[0])
	})
}
