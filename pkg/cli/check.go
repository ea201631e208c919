package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/scriptd/pkg/script"
)

var checkFormat bool

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Parse scripts and report syntax errors",
	Long: `Parse each script without running it. Syntax errors are reported with their
line and column and the command exits with status 2.

With --format the canonical source of a valid script is printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed []error
		for _, path := range args {
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			doc, err := script.Parse(string(src))
			if err != nil {
				var se *script.SyntaxError
				if !errors.As(err, &se) {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d:%d: %v\n", path, se.Line, se.Col, err)
				failed = append(failed, err)
				continue
			}
			if checkFormat {
				fmt.Fprint(cmd.OutOrStdout(), script.Format(doc))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}
		if len(failed) > 0 {
			return &exitError{code: 2, err: fmt.Errorf("%d of %d scripts have syntax errors", len(failed), len(args))}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkFormat, "format", false, "Print the canonical source of each script")
}
