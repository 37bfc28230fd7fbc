package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/evalforge/ablate/internal/contract"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <contracts-dir>",
		Short: "Validate contract definitions against the schema",
		Long: `Load every contract YAML under the directory and check it against the
contract schema. Any structural error fails the command with the
offending file and field.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, args[0])
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions, dir string) error {
	registry, err := contract.LoadRegistry(dir)
	if err != nil {
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	summary := struct {
		Contracts []string `json:"contracts"`
	}{registry.IDs()}
	return formatter.Success(summary, func(w io.Writer) {
		fmt.Fprintf(w, "%d contracts valid\n", len(registry))
		for _, id := range registry.IDs() {
			fmt.Fprintf(w, "  %s (v%s)\n", id, registry[id].Version)
		}
	})
}
