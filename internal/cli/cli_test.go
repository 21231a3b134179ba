package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/app"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/logger"
	rlmodels "gatekeeper/internal/ratelimit/models"
)

const seedDoc = `
policy:
  allowed_domains: [acme.com]
  allow_new_users: true
  require_approval: true
whitelist:
  - email: partner@partner.org
admins:
  - email: root@acme.com
`

type CLISuite struct {
	suite.Suite
	app      *app.App
	restore  func(context.Context) (*app.App, error)
	seedPath string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	cfg := config.Config{
		Environment: "test",
		Auth:        config.Auth{JWTSecret: "test-secret"},
	}
	a, err := app.Build(context.Background(), cfg, logger.NewWithWriter(io.Discard, "error"))
	s.Require().NoError(err)
	s.app = a

	s.restore = openApp
	openApp = func(context.Context) (*app.App, error) { return s.app, nil }

	s.seedPath = filepath.Join(s.T().TempDir(), "seed.yaml")
	s.Require().NoError(os.WriteFile(s.seedPath, []byte(seedDoc), 0o600))
}

func (s *CLISuite) TearDownTest() {
	openApp = s.restore
}

// run executes args with every package flag reset to its default.
func (s *CLISuite) run(args ...string) (string, error) {
	actorFlag = ""
	initPolicyPath = ""
	adminPermissions = nil
	whitelistRole = string(models.RoleUser)
	requestsStatus = string(models.StatusPending)
	eventsKind = ""
	eventsLimit = 50
	resetClass = string(rlmodels.ClassLogin)
	tokenTTL = time.Hour
	tokenUnverified = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *CLISuite) TestInitDefault() {
	out, err := s.run("init")
	s.Require().NoError(err)
	s.Contains(out, "Default policy created.")

	out, err = s.run("init")
	s.Require().NoError(err)
	s.Contains(out, "nothing to do")
}

func (s *CLISuite) TestInitFromSeed() {
	out, err := s.run("init", "--policy", s.seedPath)
	s.Require().NoError(err)
	s.Contains(out, "1 domains, 0 emails, 2 whitelist entries, 1 admins")

	ok, err := s.app.Admins.IsAdmin(context.Background(), "root@acme.com")
	s.Require().NoError(err)
	s.True(ok)

	out, err = s.run("policy", "--actor", "root@acme.com")
	s.Require().NoError(err)
	s.Contains(out, "acme.com")
	s.Contains(out, "require approval: true")
}

func (s *CLISuite) TestInitRejectsBadSeed() {
	bad := filepath.Join(s.T().TempDir(), "bad.yaml")
	s.Require().NoError(os.WriteFile(bad, []byte("policy:\n  allow_everyone: true\n"), 0o600))

	_, err := s.run("init", "--policy", bad)
	s.Error(err)
}

func (s *CLISuite) TestWhitelistCommands() {
	_, err := s.run("init", "--policy", s.seedPath)
	s.Require().NoError(err)

	out, err := s.run("whitelist", "add", "Bob@Partner.org", "--actor", "root@acme.com")
	s.Require().NoError(err)
	s.Contains(out, "Whitelisted bob@partner.org as user")

	out, err = s.run("whitelist", "list", "--actor", "root@acme.com")
	s.Require().NoError(err)
	s.Contains(out, "bob@partner.org")
	s.Contains(out, "partner@partner.org")

	_, err = s.run("whitelist", "remove", "bob@partner.org", "--actor", "root@acme.com")
	s.Require().NoError(err)

	_, err = s.run("whitelist", "add", "eve@partner.org")
	s.EqualError(err, "--actor is required")

	_, err = s.run("whitelist", "add", "eve@partner.org", "--actor", "eve@acme.com")
	s.Error(err)
}

func (s *CLISuite) TestRequestCommands() {
	_, err := s.run("init", "--policy", s.seedPath)
	s.Require().NoError(err)

	access, err := s.app.Admission.RequestAccess(context.Background(), "carol@gmail.com")
	s.Require().NoError(err)
	s.Require().NotNil(access.Request)
	id := access.Request.ID

	out, err := s.run("requests", "list", "--actor", "root@acme.com")
	s.Require().NoError(err)
	s.Contains(out, id)

	out, err = s.run("requests", "approve", id, "--actor", "root@acme.com")
	s.Require().NoError(err)
	s.Contains(out, "carol@gmail.com approved")

	_, err = s.run("requests", "reject", id, "--actor", "root@acme.com")
	s.Error(err, "a processed request cannot be processed again")

	out, err = s.run("requests", "list", "--status", "all", "--actor", "root@acme.com")
	s.Require().NoError(err)
	s.Contains(out, "approved")

	_, err = s.run("requests", "list", "--status", "done", "--actor", "root@acme.com")
	s.Error(err)
}

func (s *CLISuite) TestAdminCommands() {
	out, err := s.run("admin", "add", "ops@acme.com", "--permissions", "viewAnalytics")
	s.Require().NoError(err)
	s.Contains(out, "Admin ops@acme.com added (viewAnalytics)")

	out, err = s.run("admin", "list")
	s.Require().NoError(err)
	s.Contains(out, "ops@acme.com")

	out, err = s.run("events", "--actor", "ops@acme.com", "--kind", "policy-change")
	s.Require().NoError(err)
	s.NotContains(out, "No security events.")

	_, err = s.run("whitelist", "list", "--actor", "ops@acme.com")
	s.Error(err, "viewAnalytics does not grant manageWhitelist")

	_, err = s.run("admin", "remove", "ops@acme.com")
	s.Require().NoError(err)

	_, err = s.run("events", "--actor", "ops@acme.com")
	s.Error(err)

	_, err = s.run("admin", "add", "ops@acme.com", "--permissions", "everything")
	s.Error(err)
}

func (s *CLISuite) TestRatelimitReset() {
	ctx := context.Background()
	for range 6 {
		_, err := s.app.Limiter.Check(ctx, "10.0.0.1", rlmodels.ClassLogin)
		s.Require().NoError(err)
	}
	res, err := s.app.Limiter.Check(ctx, "10.0.0.1", rlmodels.ClassLogin)
	s.Require().NoError(err)
	s.False(res.Allowed)

	out, err := s.run("ratelimit", "reset", "10.0.0.1")
	s.Require().NoError(err)
	s.Contains(out, "Reset login window for 10.0.0.1")

	res, err = s.app.Limiter.Check(ctx, "10.0.0.1", rlmodels.ClassLogin)
	s.Require().NoError(err)
	s.True(res.Allowed)

	_, err = s.run("ratelimit", "reset", "10.0.0.1", "--class", "bogus")
	s.Error(err)
}

func (s *CLISuite) TestTokenIssue() {
	s.T().Setenv("JWT_SECRET", "test-secret")
	s.T().Setenv("ENVIRONMENT", "development")

	out, err := s.run("token", "issue", "dev@acme.com", "--ttl", "5m")
	s.Require().NoError(err)
	s.NotEmpty(out)

	s.T().Setenv("ENVIRONMENT", "production")
	s.T().Setenv("JWT_SECRET", "prod-secret")
	_, err = s.run("token", "issue", "dev@acme.com")
	s.Error(err)
}
