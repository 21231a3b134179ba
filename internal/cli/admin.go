package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	adminmodels "gatekeeper/internal/adminauth/models"
	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/app"
)

var adminPermissions []string

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminAddCmd, adminRemoveCmd, adminListCmd)
	adminAddCmd.Flags().StringSliceVar(&adminPermissions, "permissions", nil, "Capabilities to grant: manageWhitelist, viewAnalytics, manageUsers (default: all)")
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin records",
	Long:  "Admin records are bootstrap state: these commands run as the system and need no --actor.",
}

var adminAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Create or replace an admin and whitelist it with the admin role",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminAdd,
}

var adminRemoveCmd = &cobra.Command{
	Use:   "remove <email>",
	Short: "Deactivate an admin",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminRemove,
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admin records",
	Args:  cobra.NoArgs,
	RunE:  runAdminList,
}

func parsePermissions(names []string) (adminmodels.Permissions, error) {
	if len(names) == 0 {
		return adminmodels.AllPermissions(), nil
	}
	caps := make([]adminmodels.Capability, 0, len(names))
	for _, n := range names {
		c, err := adminmodels.ParseCapability(strings.TrimSpace(n))
		if err != nil {
			return adminmodels.Permissions{}, err
		}
		caps = append(caps, c)
	}
	return adminmodels.PermissionsFrom(caps), nil
}

func runAdminAdd(cmd *cobra.Command, args []string) error {
	perms, err := parsePermissions(adminPermissions)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		rec, err := a.Admins.Bootstrap(ctx, args[0], perms)
		if err != nil {
			return err
		}
		if _, err := a.Admission.GrantEntry(ctx, rec.Email, models.RoleAdmin); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Admin %s added (%s)\n", rec.Email, capabilities(rec.Permissions))
		return nil
	})
}

func runAdminRemove(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.Admins.Deactivate(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Admin %s deactivated\n", args[0])
		return nil
	})
}

func runAdminList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		recs, err := a.Admins.List(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, "No admins.")
			return nil
		}
		fmt.Fprintf(out, "%-35s %-8s %s\n", "EMAIL", "ACTIVE", "PERMISSIONS")
		for _, r := range recs {
			fmt.Fprintf(out, "%-35s %-8t %s\n", r.Email, r.Active, capabilities(r.Permissions))
		}
		return nil
	})
}

func capabilities(p adminmodels.Permissions) string {
	var names []string
	for _, c := range []adminmodels.Capability{
		adminmodels.CapManageWhitelist,
		adminmodels.CapViewAnalytics,
		adminmodels.CapManageUsers,
	} {
		if p.Has(c) {
			names = append(names, string(c))
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
