package kitcmd

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
	kitCmd := &cobra.Command{
		Use:     "kit",
		Aliases: []string{"kits"},
		Short:   "Manage kits.",
		Long:    "Create, list, inspect, edit, and delete diamond painting kits.",
	}

	createCmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"new"},
		Short:   "Create a kit.",
		Long:    "Create a kit with a number and an initial set of not started designs.",
		Example: strings.TrimSpace(`gemtracker kit create --number 12 --designs 4
gemtracker kits new -n 3 --name "Koi Pond" --design-name Left --design-name Right`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}

			number, _ := cmd.Flags().GetInt("number")
			designs, _ := cmd.Flags().GetInt("designs")
			names, _ := cmd.Flags().GetStringArray("design-name")

			body := client.CreateKitRequest{Number: number, DesignNames: names}
			if designs > 0 {
				body.DesignCount = &designs
			}
			if cmd.Flags().Changed("name") {
				name, _ := cmd.Flags().GetString("name")
				body.Name = &name
			}
			if cmd.Flags().Changed("notes") {
				notes, _ := cmd.Flags().GetString("notes")
				body.Notes = &notes
			}

			resp, reqErr := c.CreateKit(context.Background(), body)
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	createCmd.Flags().IntP("number", "n", 0, "Kit number")
	createCmd.Flags().String("name", "", "Optional kit name")
	createCmd.Flags().String("notes", "", "Free-form notes")
	createCmd.Flags().IntP("designs", "d", 0, "Number of designs in the kit")
	createCmd.Flags().StringArray("design-name", nil, "Design name, repeat in design order")
	_ = createCmd.MarkFlagRequired("number")

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List kits.",
		Long:    "List every kit with its designs and progress stats.",
		Example: strings.TrimSpace(`gemtracker kit list
gemtracker kits ls --output json`),
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}

			resp, reqErr := c.ListKits(context.Background())
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}

	summariesCmd := &cobra.Command{
		Use:     "summaries",
		Aliases: []string{"sum"},
		Short:   "List kit summaries.",
		Long:    "List compact kit rows from the projection, optionally filtered by bucket.",
		Example: strings.TrimSpace(`gemtracker kit summaries
gemtracker kit sum --bucket started`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}

			params := &client.ListKitSummariesParams{}
			if bucket, _ := cmd.Flags().GetString("bucket"); strings.TrimSpace(bucket) != "" {
				value := strings.TrimSpace(bucket)
				params.Bucket = &value
			}
			resp, reqErr := c.ListKitSummaries(context.Background(), params)
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	summariesCmd.Flags().StringP("bucket", "b", "", "Bucket filter (complete|started|not_started)")

	getCmd := &cobra.Command{
		Use:     "get <kit-id>",
		Aliases: []string{"show"},
		Short:   "Get one kit.",
		Long:    "Fetch one kit with its designs and stats.",
		Args:    cobra.ExactArgs(1),
		Example: strings.TrimSpace(`gemtracker kit get 4f1c...`),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}

			resp, reqErr := c.GetKit(context.Background(), strings.TrimSpace(args[0]))
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}

	editCmd := &cobra.Command{
		Use:     "edit <kit-id>",
		Aliases: []string{"update"},
		Short:   "Edit a kit.",
		Long:    "Change kit fields. Only flags that are passed are sent. Shrinking --designs below the completed count is rejected.",
		Args:    cobra.ExactArgs(1),
		Example: strings.TrimSpace(`gemtracker kit edit 4f1c... --name "Owl" --designs 6
gemtracker kit edit 4f1c... --start-date 1700000000000 --clear-completed-date`),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}

			body := editRequest(cmd)
			resp, reqErr := c.UpdateKit(context.Background(), strings.TrimSpace(args[0]), body)
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	editCmd.Flags().IntP("number", "n", 0, "Kit number")
	editCmd.Flags().String("name", "", "Kit name, empty to clear")
	editCmd.Flags().String("notes", "", "Free-form notes")
	editCmd.Flags().IntP("designs", "d", 0, "New number of designs")
	editCmd.Flags().StringArray("design-name", nil, "Design name, repeat in design order")
	editCmd.Flags().Int64("start-date", 0, "Kit start date in epoch milliseconds")
	editCmd.Flags().Bool("clear-start-date", false, "Clear the kit start date")
	editCmd.Flags().Int64("completed-date", 0, "Kit completed date in epoch milliseconds")
	editCmd.Flags().Bool("clear-completed-date", false, "Clear the kit completed date")

	deleteCmd := &cobra.Command{
		Use:     "delete <kit-id>",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a kit.",
		Long:    "Delete a kit and its design photos. Pick history is kept.",
		Args:    cobra.ExactArgs(1),
		Example: strings.TrimSpace(`gemtracker kit delete 4f1c...
gemtracker kits rm 4f1c...`),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}

			resp, reqErr := c.DeleteKit(context.Background(), strings.TrimSpace(args[0]))
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}

	kitCmd.AddCommand(createCmd, listCmd, summariesCmd, getCmd, editCmd, deleteCmd)
	return kitCmd
}

func editRequest(cmd *cobra.Command) client.UpdateKitRequest {
	flags := cmd.Flags()
	body := client.UpdateKitRequest{}
	if flags.Changed("number") {
		v, _ := flags.GetInt("number")
		body.Number = &v
	}
	if flags.Changed("name") {
		v, _ := flags.GetString("name")
		body.Name = &v
	}
	if flags.Changed("notes") {
		v, _ := flags.GetString("notes")
		body.Notes = &v
	}
	if flags.Changed("designs") {
		v, _ := flags.GetInt("designs")
		body.DesignCount = &v
	}
	if flags.Changed("design-name") {
		body.DesignNames, _ = flags.GetStringArray("design-name")
	}
	if flags.Changed("start-date") {
		v, _ := flags.GetInt64("start-date")
		body.KitStartDate = &v
	}
	if v, _ := flags.GetBool("clear-start-date"); v {
		body.ClearKitStartDate = &v
	}
	if flags.Changed("completed-date") {
		v, _ := flags.GetInt64("completed-date")
		body.KitCompletedDate = &v
	}
	if v, _ := flags.GetBool("clear-completed-date"); v {
		body.ClearKitCompletedDate = &v
	}
	return body
}
