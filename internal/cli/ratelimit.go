package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gatekeeper/internal/app"
	jwttoken "gatekeeper/internal/jwt_token"
	"gatekeeper/internal/platform/config"
	rlmodels "gatekeeper/internal/ratelimit/models"
)

var (
	resetClass      string
	tokenTTL        time.Duration
	tokenUnverified bool
)

func init() {
	rootCmd.AddCommand(ratelimitCmd, tokenCmd)
	ratelimitCmd.AddCommand(ratelimitResetCmd)
	ratelimitResetCmd.Flags().StringVar(&resetClass, "class", string(rlmodels.ClassLogin), "Limit class: login, api or whitelist_check")
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime (e.g., 15m, 1h)")
	tokenIssueCmd.Flags().BoolVar(&tokenUnverified, "unverified", false, "Issue a token whose email is not verified")
}

var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Inspect and reset rate limit windows",
}

var ratelimitResetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Clear the window for a key (client IP or email)",
	Args:  cobra.ExactArgs(1),
	RunE:  runRatelimitReset,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Development identity tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <email>",
	Short: "Sign an identity token with JWT_SECRET for local testing",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenIssue,
}

func runRatelimitReset(cmd *cobra.Command, args []string) error {
	class, err := rlmodels.ParseLimitClass(resetClass)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.Limiter.Reset(ctx, args[0], class); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %s window for %s\n", class, args[0])
		return nil
	})
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return errors.New("token issue is disabled in production")
	}
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	token, err := tokens.GenerateIdentityToken(args[0], !tokenUnverified, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
