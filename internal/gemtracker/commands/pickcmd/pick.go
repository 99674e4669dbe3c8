package pickcmd

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/gemtracker/internal/client"
	"github.com/simonjohansson/gemtracker/internal/gemtracker/commands/common"
)

func New(runtime common.Runtime, stdout io.Writer, handle common.HandleResponseFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	pickCmd := &cobra.Command{
		Use:     "pick",
		Aliases: []string{"picks"},
		Short:   "Pick a random kit and browse pick history.",
	}

	randomCmd := &cobra.Command{
		Use:     "random",
		Aliases: []string{"roll"},
		Short:   "Pick a random unfinished kit.",
		Long:    "Choose one kit that is not complete and record the pick in history.",
		Example: strings.TrimSpace(`gemtracker pick random`),
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			resp, reqErr := c.PickRandomKit(context.Background())
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}

	historyCmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"ls"},
		Short:   "List past picks, newest first.",
		Example: strings.TrimSpace(`gemtracker pick history
gemtracker pick ls --limit 5`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			params := &client.ListPickHistoryParams{}
			if cmd.Flags().Changed("limit") {
				limit, _ := cmd.Flags().GetInt("limit")
				params.Limit = &limit
			}
			resp, reqErr := c.ListPickHistory(context.Background(), params)
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	historyCmd.Flags().IntP("limit", "l", 0, "Maximum number of picks")

	deleteCmd := &cobra.Command{
		Use:     "delete <pick-id>",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a pick history entry.",
		Args:    cobra.ExactArgs(1),
		Example: strings.TrimSpace(`gemtracker pick rm 9b2e...`),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			resp, reqErr := c.DeletePickHistoryEntry(context.Background(), strings.TrimSpace(args[0]))
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}

	pickCmd.AddCommand(randomCmd, historyCmd, deleteCmd)
	return pickCmd
}
