package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	adminmodels "gatekeeper/internal/adminauth/models"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/logger"
	rlmodels "gatekeeper/internal/ratelimit/models"
)

type AppSuite struct {
	suite.Suite
	app    *App
	server *httptest.Server
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) SetupTest() {
	cfg := config.Config{
		Environment: "test",
		Auth:        config.Auth{JWTSecret: "test-secret", Issuer: "idp", Audience: "gatekeeper"},
		RateLimit: config.RateLimitConfig{
			LoginMax: 3, LoginWindow: time.Minute,
			APIMax: 100, APIWindow: time.Minute,
			WhitelistCheckMax: 50, WhitelistCheckWindow: time.Minute,
		},
	}
	var buf bytes.Buffer
	a, err := Build(context.Background(), cfg, logger.NewWithWriter(&buf, "error"))
	s.Require().NoError(err)
	s.app = a
	s.server = httptest.NewServer(a.Router())

	ctx := context.Background()
	_, err = a.Admission.InitPolicy(ctx)
	s.Require().NoError(err)
	_, err = a.Admins.Bootstrap(ctx, "admin@acme.com", adminmodels.AllPermissions())
	s.Require().NoError(err)
}

func (s *AppSuite) TearDownTest() {
	s.server.Close()
	s.NoError(s.app.Close())
}

func (s *AppSuite) do(method, path, email string, body any) *http.Response {
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.server.URL+path, rdr)
	s.Require().NoError(err)
	if email != "" {
		token, err := s.app.Tokens.GenerateIdentityToken(email, true, time.Minute)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *AppSuite) TestHealthAndMetrics() {
	resp := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *AppSuite) TestSelfServiceFlow() {
	resp := s.do(http.MethodGet, "/v1/admission", "new@acme.com", nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp = s.do(http.MethodPut, "/v1/admin/policy", "admin@acme.com", map[string]any{
		"allowed_domains":  []string{"acme.com"},
		"allowed_emails":   []string{},
		"allow_new_users":  true,
		"require_approval": false,
	})
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/v1/admission", "new@acme.com", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("X-Request-ID"))
}

func (s *AppSuite) TestAdminRoutesRequireCapability() {
	resp := s.do(http.MethodGet, "/v1/admin/policy", "someone@acme.com", nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *AppSuite) TestFailedTokensAreRateLimited() {
	var codes []int
	for range 4 {
		req, err := http.NewRequest(http.MethodGet, s.server.URL+"/v1/admission", nil)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer not-a-token")
		resp, err := http.DefaultClient.Do(req)
		s.Require().NoError(err)
		_ = resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	s.Equal([]int{
		http.StatusUnauthorized, http.StatusUnauthorized, http.StatusUnauthorized,
		http.StatusTooManyRequests,
	}, codes)
}

func TestBuildReturnsBackendErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{
			name: "unreachable database",
			mutate: func(c *config.Config) {
				c.Database.URL = "postgres://u:p@127.0.0.1:1/gatekeeper?sslmode=disable&connect_timeout=1"
			},
		},
		{
			name: "malformed redis url",
			mutate: func(c *config.Config) {
				c.Redis.URL = "ftp://not-redis"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{
				Environment: "test",
				Auth:        config.Auth{JWTSecret: "test-secret"},
			}
			tt.mutate(&cfg)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var buf bytes.Buffer
			var (
				a   *App
				err error
			)
			require.NotPanics(t, func() {
				a, err = Build(ctx, cfg, logger.NewWithWriter(&buf, "error"))
			})
			require.Error(t, err)
			assert.Nil(t, a)
		})
	}
}

func TestLimits(t *testing.T) {
	cfg := Limits(config.RateLimitConfig{
		LoginMax: 2, LoginWindow: time.Minute,
		APIMax: 10, APIWindow: time.Second,
	})

	login, ok := cfg.Get(rlmodels.ClassLogin)
	require.True(t, ok)
	assert.Equal(t, rlmodels.Limit{Window: time.Minute, MaxCount: 2}, login)

	check, ok := cfg.Get(rlmodels.ClassWhitelistCheck)
	require.True(t, ok)
	assert.Equal(t, rlmodels.Limit{Window: time.Minute, MaxCount: 50}, check, "zero overrides keep the default")
}
