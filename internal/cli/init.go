package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gatekeeper/internal/admission/seed"
	"gatekeeper/internal/app"
)

var initPolicyPath string

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initPolicyPath, "policy", "", "Seed file with policy, whitelist and admins (YAML)")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default policy or apply a seed file",
	Long:  "Without --policy, stores the default policy when none exists.\nWith --policy, replaces the policy, writes the whitelist and bootstraps the listed admins in one run.",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	var f *seed.File
	if initPolicyPath != "" {
		var err error
		if f, err = seed.Load(initPolicyPath); err != nil {
			return err
		}
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		out := cmd.OutOrStdout()
		if f == nil {
			created, err := a.Admission.InitPolicy(ctx)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintln(out, "Default policy created.")
			} else {
				fmt.Fprintln(out, "Policy already exists; nothing to do.")
			}
			return nil
		}

		for _, admin := range f.Admins {
			if _, err := a.Admins.Bootstrap(ctx, admin.Email, admin.AdminPermissions()); err != nil {
				return fmt.Errorf("failed to bootstrap admin %s: %w", admin.Email, err)
			}
		}
		p, err := a.Admission.SeedPolicy(ctx, f.Policy, f.Entries())
		if err != nil {
			return fmt.Errorf("failed to apply seed: %w", err)
		}
		fmt.Fprintf(out, "Policy applied: %d domains, %d emails, %d whitelist entries, %d admins\n",
			len(p.AllowedDomains), len(p.AllowedEmails), len(f.Entries()), len(f.Admins))
		return nil
	})
}
