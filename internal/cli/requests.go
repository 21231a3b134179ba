package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/app"
)

var requestsStatus string

func init() {
	rootCmd.AddCommand(requestsCmd)
	requestsCmd.AddCommand(requestsListCmd, requestsApproveCmd, requestsRejectCmd)
	requestsListCmd.Flags().StringVar(&requestsStatus, "status", string(models.StatusPending), "Filter by status: pending, approved, rejected or all")
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Review admission requests (requires manageUsers)",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admission requests, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runRequestsList,
}

var requestsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending request and whitelist its email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd, args[0], models.ActionApprove)
	},
}

var requestsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd, args[0], models.ActionReject)
	},
}

func runRequestsList(cmd *cobra.Command, args []string) error {
	actor, err := requireActor()
	if err != nil {
		return err
	}
	var status models.RequestStatus
	if requestsStatus != "all" {
		if status, err = models.ParseRequestStatus(requestsStatus); err != nil {
			return err
		}
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		reqs, err := a.Admission.ListRequests(ctx, actor, status)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(reqs) == 0 {
			fmt.Fprintln(out, "No admission requests.")
			return nil
		}
		fmt.Fprintf(out, "%-36s %-35s %-9s %s\n", "ID", "EMAIL", "STATUS", "REQUESTED")
		for _, r := range reqs {
			fmt.Fprintf(out, "%-36s %-35s %-9s %s\n", r.ID, r.Email, r.Status, r.RequestedAt.Format("2006-01-02 15:04"))
		}
		return nil
	})
}

func runProcess(cmd *cobra.Command, id string, action models.Action) error {
	actor, err := requireActor()
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		req, err := a.Admission.ProcessRequest(ctx, actor, id, action)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Request %s for %s %s\n", req.ID, req.Email, req.Status)
		return nil
	})
}
