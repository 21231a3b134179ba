package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gatekeeper/internal/app"
	"gatekeeper/internal/audit"
)

var (
	eventsKind  string
	eventsLimit int
)

func init() {
	rootCmd.AddCommand(policyCmd, eventsCmd)
	eventsCmd.Flags().StringVar(&eventsKind, "kind", "", "Only events of this kind")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "Maximum events to show")
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show the current domain policy (requires manageWhitelist)",
	Args:  cobra.NoArgs,
	RunE:  runPolicy,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent security events, newest first (requires viewAnalytics)",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func runPolicy(cmd *cobra.Command, args []string) error {
	actor, err := requireActor()
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		p, err := a.Admission.GetPolicy(ctx, actor)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "allowed domains:  %s\n", list(p.AllowedDomains))
		fmt.Fprintf(out, "allowed emails:   %s\n", list(p.AllowedEmails))
		fmt.Fprintf(out, "allow new users:  %t\n", p.AllowNewUsers)
		fmt.Fprintf(out, "require approval: %t\n", p.RequireApproval)
		fmt.Fprintf(out, "updated:          %s by %s\n", p.UpdatedAt.Format("2006-01-02 15:04"), p.UpdatedBy)
		return nil
	})
}

func runEvents(cmd *cobra.Command, args []string) error {
	actor, err := requireActor()
	if err != nil {
		return err
	}
	filter := audit.Filter{Limit: eventsLimit}
	if eventsKind != "" {
		if filter.Kind, err = audit.ParseEventKind(eventsKind); err != nil {
			return err
		}
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		events, err := a.Admission.ListEvents(ctx, actor, filter)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No security events.")
			return nil
		}
		for _, ev := range events {
			fmt.Fprintf(out, "%s  %-16s %-30s %s\n", ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Kind, truncate(ev.Actor, 30), ev.Detail)
		}
		return nil
	})
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
