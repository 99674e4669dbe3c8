package gemtracker

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

// Run executes the CLI and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer, env []string) int {
	cfg, err := resolveConfig(env)
	if err != nil {
		reportError(stderr, OutputText, err)
		return 1
	}

	root := NewRootCommand(cfg, stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		reportError(stderr, effectiveOutput(root, cfg.Output), err)
		return 1
	}
	return 0
}

// resolveConfig layers defaults, the config file and the environment.
// Flags are applied later by the root command.
func resolveConfig(env []string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	fileCfg, err := LoadOrInitConfig(home)
	if err != nil {
		return Config{}, err
	}
	cfg := MergeConfig(DefaultConfig(home), fileCfg, ParseEnvConfig(env))
	if !isValidOutput(string(cfg.Output)) {
		cfg.Output = OutputText
	}
	return cfg, nil
}

// effectiveOutput prefers a valid --output flag so failures before
// applyGlobalFlags still honour it.
func effectiveOutput(root *cobra.Command, fallback Output) Output {
	if flag, err := root.PersistentFlags().GetString("output"); err == nil && isValidOutput(flag) {
		return Output(flag)
	}
	return fallback
}

func reportError(stderr io.Writer, output Output, err error) {
	var cErr *cliError
	if !errors.As(err, &cErr) {
		cErr = &cliError{status: http.StatusInternalServerError, message: err.Error()}
	}
	if output == OutputJSON && len(cErr.rawJSON) > 0 {
		_, _ = fmt.Fprintln(stderr, string(cErr.rawJSON))
		return
	}
	_, _ = fmt.Fprintln(stderr, FormatError(output, cErr.status, cErr.message))
}
