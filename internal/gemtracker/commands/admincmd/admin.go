package admincmd

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/gemtracker/internal/gemtracker/commands/common"
)

func New(runtime common.Runtime, stdout io.Writer, handle common.HandleResponseFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Maintenance operations.",
	}

	rebuildCmd := &cobra.Command{
		Use:     "rebuild",
		Short:   "Rebuild the sqlite projection.",
		Long:    "Recompute kit summaries and pick history rows from the stored documents.",
		Example: strings.TrimSpace(`gemtracker admin rebuild`),
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			resp, reqErr := c.RebuildProjection(context.Background())
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}

	reconcileCmd := &cobra.Command{
		Use:     "reconcile",
		Short:   "Keep only the latest active design.",
		Long:    "Revert every in progress design except the most recently started one.",
		Example: strings.TrimSpace(`gemtracker admin reconcile`),
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			resp, reqErr := c.ReconcileActiveDesigns(context.Background())
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}

	adminCmd.AddCommand(rebuildCmd, reconcileCmd)
	return adminCmd
}

// NewStats returns the top-level stats command.
func NewStats(runtime common.Runtime, stdout io.Writer, handle common.HandleResponseFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics.",
		Long:  "Totals of kits per bucket and completed designs across the collection.",
		Example: strings.TrimSpace(`gemtracker stats
gemtracker --output json stats`),
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			resp, reqErr := c.OverallStats(context.Background())
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
}
