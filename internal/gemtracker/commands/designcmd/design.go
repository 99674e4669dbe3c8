package designcmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/gemtracker/internal/client"
	"github.com/simonjohansson/gemtracker/internal/gemtracker/commands/common"
)

const (
	actionNeedsConfirmation = "needs_confirmation"
	confirmSwitch           = "switch"
	confirmUncomplete       = "uncomplete"
)

func New(runtime common.Runtime, stdout io.Writer, handle common.HandleResponseFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	designCmd := &cobra.Command{
		Use:     "design",
		Aliases: []string{"designs", "gem"},
		Short:   "Work on designs.",
		Long:    "Start, switch, complete, and uncomplete designs and manage their photos.",
	}

	withClient := func(run func(c *client.Client, kit, design string, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			kit, _ := cmd.Flags().GetString("kit")
			design, _ := cmd.Flags().GetString("design")
			return run(c, strings.TrimSpace(kit), strings.TrimSpace(design), cmd)
		}
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a design.",
		Long:  "Start a not started design. If a design in another kit is active the server asks for confirmation; --yes switches immediately.",
		Example: strings.TrimSpace(`gemtracker design start -k $KIT -d $DESIGN
gemtracker design start -k $KIT -d $DESIGN --yes`),
		RunE: withClient(func(c *client.Client, kit, design string, cmd *cobra.Command) error {
			ctx := context.Background()
			resp, reqErr := c.StartDesign(ctx, kit, design)
			if reqErr != nil {
				return handle(runtime.Output(), stdout, resp, reqErr)
			}
			yes, _ := cmd.Flags().GetBool("yes")
			body, err := common.PeekTransition(resp)
			if err != nil {
				return wrapErr(http.StatusBadGateway, err.Error())
			}
			if !yes || body.Action != actionNeedsConfirmation || body.Confirmation == nil || body.Confirmation.Kind != confirmSwitch || body.Confirmation.Active == nil {
				return handle(runtime.Output(), stdout, resp, nil)
			}
			_ = resp.Body.Close()
			resp, reqErr = c.ConfirmSwitch(ctx, client.ConfirmSwitchRequest{
				Active: *body.Confirmation.Active,
				Target: body.Confirmation.Target,
			})
			return handle(runtime.Output(), stdout, resp, reqErr)
		}),
	}
	addRefFlags(startCmd)
	startCmd.Flags().BoolP("yes", "y", false, "Confirm a cross-kit switch without asking")

	switchCmd := &cobra.Command{
		Use:     "switch",
		Short:   "Confirm a switch between kits.",
		Long:    "Revert the active design and start the target design in another kit.",
		Example: strings.TrimSpace(`gemtracker design switch --from-kit $A --from-design $AD -k $B -d $BD`),
		RunE: withClient(func(c *client.Client, kit, design string, cmd *cobra.Command) error {
			fromKit, _ := cmd.Flags().GetString("from-kit")
			fromDesign, _ := cmd.Flags().GetString("from-design")
			resp, reqErr := c.ConfirmSwitch(context.Background(), client.ConfirmSwitchRequest{
				Active: client.DesignRef{KitId: strings.TrimSpace(fromKit), DesignId: strings.TrimSpace(fromDesign)},
				Target: client.DesignRef{KitId: kit, DesignId: design},
			})
			return handle(runtime.Output(), stdout, resp, reqErr)
		}),
	}
	addRefFlags(switchCmd)
	switchCmd.Flags().String("from-kit", "", "Kit id of the currently active design")
	switchCmd.Flags().String("from-design", "", "Currently active design id")
	_ = switchCmd.MarkFlagRequired("from-kit")
	_ = switchCmd.MarkFlagRequired("from-design")

	advanceCmd := &cobra.Command{
		Use:     "advance",
		Aliases: []string{"complete", "done"},
		Short:   "Complete the active design.",
		Long:    "Mark an in progress design as completed. Completing the last design completes the kit.",
		Example: strings.TrimSpace(`gemtracker design advance -k $KIT -d $DESIGN`),
		RunE: withClient(func(c *client.Client, kit, design string, _ *cobra.Command) error {
			resp, reqErr := c.AdvanceDesign(context.Background(), kit, design)
			return handle(runtime.Output(), stdout, resp, reqErr)
		}),
	}
	addRefFlags(advanceCmd)

	uncompleteCmd := &cobra.Command{
		Use:     "uncomplete",
		Aliases: []string{"undo"},
		Short:   "Return a completed design to not started.",
		Long:    "Without --yes only the confirmation request is shown and nothing changes.",
		Example: strings.TrimSpace(`gemtracker design uncomplete -k $KIT -d $DESIGN
gemtracker design undo -k $KIT -d $DESIGN --yes`),
		RunE: withClient(func(c *client.Client, kit, design string, cmd *cobra.Command) error {
			ctx := context.Background()
			resp, reqErr := c.RequestUncomplete(ctx, kit, design)
			if reqErr != nil {
				return handle(runtime.Output(), stdout, resp, reqErr)
			}
			yes, _ := cmd.Flags().GetBool("yes")
			body, err := common.PeekTransition(resp)
			if err != nil {
				return wrapErr(http.StatusBadGateway, err.Error())
			}
			if !yes || body.Action != actionNeedsConfirmation || body.Confirmation == nil || body.Confirmation.Kind != confirmUncomplete {
				return handle(runtime.Output(), stdout, resp, nil)
			}
			_ = resp.Body.Close()
			resp, reqErr = c.ConfirmUncomplete(ctx, kit, design)
			return handle(runtime.Output(), stdout, resp, reqErr)
		}),
	}
	addRefFlags(uncompleteCmd)
	uncompleteCmd.Flags().BoolP("yes", "y", false, "Apply the uncomplete")

	designCmd.AddCommand(startCmd, switchCmd, advanceCmd, uncompleteCmd, newPhotoCommand(runtime, stdout, handle, wrapErr))
	return designCmd
}

func newPhotoCommand(runtime common.Runtime, stdout io.Writer, handle common.HandleResponseFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	photoCmd := &cobra.Command{
		Use:   "photo",
		Short: "Manage design photos.",
	}

	setCmd := &cobra.Command{
		Use:     "set",
		Aliases: []string{"upload"},
		Short:   "Upload a JPEG photo for a design.",
		Example: strings.TrimSpace(`gemtracker design photo set -k $KIT -d $DESIGN -f finished.jpg`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			kit, _ := cmd.Flags().GetString("kit")
			design, _ := cmd.Flags().GetString("design")
			file, _ := cmd.Flags().GetString("file")

			data, err := os.ReadFile(strings.TrimSpace(file))
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			resp, reqErr := c.SetDesignPhotoWithBody(context.Background(), strings.TrimSpace(kit), strings.TrimSpace(design), "image/jpeg", bytes.NewReader(data))
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	addRefFlags(setCmd)
	setCmd.Flags().StringP("file", "f", "", "Path to a JPEG file")
	_ = setCmd.MarkFlagRequired("file")

	deleteCmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm", "remove"},
		Short:   "Remove a design photo.",
		Example: strings.TrimSpace(`gemtracker design photo rm -k $KIT -d $DESIGN`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			kit, _ := cmd.Flags().GetString("kit")
			design, _ := cmd.Flags().GetString("design")
			resp, reqErr := c.DeleteDesignPhoto(context.Background(), strings.TrimSpace(kit), strings.TrimSpace(design))
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	addRefFlags(deleteCmd)

	photoCmd.AddCommand(setCmd, deleteCmd)
	return photoCmd
}

func addRefFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("kit", "k", "", "Kit id")
	cmd.Flags().StringP("design", "d", "", "Design id")
	_ = cmd.MarkFlagRequired("kit")
	_ = cmd.MarkFlagRequired("design")
}
