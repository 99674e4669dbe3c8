package gemtracker

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/gemtracker/internal/gemtracker/commands/admincmd"
	"github.com/simonjohansson/gemtracker/internal/gemtracker/commands/common"
	"github.com/simonjohansson/gemtracker/internal/gemtracker/commands/designcmd"
	"github.com/simonjohansson/gemtracker/internal/gemtracker/commands/kitcmd"
	"github.com/simonjohansson/gemtracker/internal/gemtracker/commands/pickcmd"
)

type globalFlags struct {
	serverURL string
	output    string
}

type commandRuntime struct {
	cfg *Config
}

func (r commandRuntime) ServerURL() string {
	return r.cfg.ServerURL
}

func (r commandRuntime) Output() string {
	return string(r.cfg.Output)
}

func NewRootCommand(initial Config, stdout, stderr io.Writer) *cobra.Command {
	cfg := initial
	flags := globalFlags{
		serverURL: initial.ServerURL,
		output:    string(initial.Output),
	}
	runtime := commandRuntime{cfg: &cfg}

	root := &cobra.Command{
		Use:   "gemtracker",
		Short: "Track diamond painting kits and the designs in them.",
		Long: strings.TrimSpace(`gemtracker is a single binary for:
- starting the gemtracker backend server
- managing kits, designs, photos and random picks over the HTTP API

Use gemtracker help <command> for command-specific examples.

--server-url selects the backend endpoint and --output selects text or json.`),
		Example: strings.TrimSpace(`gemtracker serve
gemtracker kit create -n 12 -d 4 --name "Autumn owls"
gemtracker kit ls
gemtracker design start -k $KIT -d $DESIGN
gemtracker design advance -k $KIT -d $DESIGN
gemtracker pick random
gemtracker watch -k $KIT
gemtracker --output json primer`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return applyGlobalFlags(&cfg, flags)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&flags.serverURL, "server-url", flags.serverURL, "Backend API base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&flags.output, "output", flags.output, "Output format: text or json")

	root.AddGroup(
		&cobra.Group{ID: groupCollection, Title: "Collection commands:"},
		&cobra.Group{ID: groupOps, Title: "Server and tooling:"},
	)
	for _, build := range []apiCommandFactory{kitcmd.New, designcmd.New, pickcmd.New, admincmd.NewStats} {
		addToGroup(root, groupCollection, build(runtime, stdout, handleResponseFromString, wrapCLIError))
	}
	addToGroup(root, groupOps,
		newServeCommand(&cfg),
		admincmd.New(runtime, stdout, handleResponseFromString, wrapCLIError),
		newWatchCommand(&cfg, stdout),
		newPrimerCommand(&cfg, stdout),
	)
	return root
}

const (
	groupCollection = "collection"
	groupOps        = "ops"
)

// apiCommandFactory is the constructor shape shared by the commands/* packages.
type apiCommandFactory func(common.Runtime, io.Writer, common.HandleResponseFunc, common.WrapErrorFunc) *cobra.Command

func addToGroup(root *cobra.Command, groupID string, cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		cmd.GroupID = groupID
		root.AddCommand(cmd)
	}
}

func applyGlobalFlags(cfg *Config, flags globalFlags) error {
	output := strings.TrimSpace(flags.output)
	if !isValidOutput(output) {
		return &cliError{status: http.StatusBadRequest, message: fmt.Sprintf("invalid --output: %s", output)}
	}

	cfg.ServerURL = strings.TrimSpace(flags.serverURL)
	cfg.Output = Output(output)

	if cfg.ServerURL == "" {
		return &cliError{status: http.StatusBadRequest, message: "--server-url cannot be empty"}
	}
	return nil
}

func handleResponseFromString(output string, stdout io.Writer, resp *http.Response, reqErr error) error {
	if !isValidOutput(output) {
		return &cliError{status: http.StatusBadRequest, message: fmt.Sprintf("invalid --output: %s", output)}
	}
	return handleResponse(Output(output), stdout, resp, reqErr)
}

func wrapCLIError(status int, message string) error {
	return &cliError{status: status, message: message}
}

func newPrimerCommand(cfg *Config, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "primer",
		Short: "Print concise usage guidance.",
		Long:  "Prints command templates and the rules that govern design transitions.",
		Example: strings.TrimSpace(`gemtracker primer
gemtracker --output json primer`),
		RunE: func(_ *cobra.Command, _ []string) error {
			return printPrimer(cfg.Output, stdout)
		},
	}
}
