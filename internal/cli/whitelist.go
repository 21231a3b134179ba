package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/app"
)

var whitelistRole string

func init() {
	rootCmd.AddCommand(whitelistCmd)
	whitelistCmd.AddCommand(whitelistAddCmd, whitelistRemoveCmd, whitelistListCmd)
	whitelistAddCmd.Flags().StringVar(&whitelistRole, "role", string(models.RoleUser), "Role for the entry: user or admin")
}

var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Manage explicit whitelist entries (requires manageWhitelist)",
}

var whitelistAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Whitelist an email",
	Args:  cobra.ExactArgs(1),
	RunE:  runWhitelistAdd,
}

var whitelistRemoveCmd = &cobra.Command{
	Use:   "remove <email>",
	Short: "Remove a whitelist entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runWhitelistRemove,
}

var whitelistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List whitelist entries",
	Args:  cobra.NoArgs,
	RunE:  runWhitelistList,
}

func runWhitelistAdd(cmd *cobra.Command, args []string) error {
	actor, err := requireActor()
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		entry, err := a.Admission.AddToWhitelist(ctx, actor, args[0], models.Role(whitelistRole))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Whitelisted %s as %s\n", entry.Email, entry.Role)
		return nil
	})
}

func runWhitelistRemove(cmd *cobra.Command, args []string) error {
	actor, err := requireActor()
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.Admission.RemoveFromWhitelist(ctx, actor, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	})
}

func runWhitelistList(cmd *cobra.Command, args []string) error {
	actor, err := requireActor()
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		entries, err := a.Admission.ListWhitelist(ctx, actor)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No whitelist entries.")
			return nil
		}
		fmt.Fprintf(out, "%-35s %-6s %-25s %s\n", "EMAIL", "ROLE", "ADDED BY", "ADDED")
		for _, e := range entries {
			fmt.Fprintf(out, "%-35s %-6s %-25s %s\n", e.Email, e.Role, truncate(e.AddedBy, 25), e.AddedAt.Format("2006-01-02 15:04"))
		}
		return nil
	})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
