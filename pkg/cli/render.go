package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/scriptd/pkg/interp"
	"github.com/getmockd/scriptd/pkg/logging"
	"github.com/getmockd/scriptd/pkg/response"
	"github.com/getmockd/scriptd/pkg/script"
)

var (
	renderParams   []string
	renderHeaders  bool
	renderEncoding string
	renderStrict   bool
)

var renderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Execute a script and print its output",
	Long: `Execute a smart script outside the server and write its output to stdout.

Request parameters are given with --param. Persistent and temporary
parameters start empty. Scripts that forward to other paths cannot be
rendered this way.`,
	Example: `  scriptd render page.smscr --param name=Ana
  scriptd render page.smscr --headers --encoding iso-8859-2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(renderParams)
		if err != nil {
			return err
		}
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := script.Parse(string(src))
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		out := bufio.NewWriter(cmd.OutOrStdout())
		defer out.Flush()

		opts := []response.Option{response.WithParams(params)}
		if !renderHeaders {
			opts = append(opts, response.WithoutHeader())
		}
		rc := response.New(out, opts...)
		if renderEncoding != "" {
			if err := rc.SetEncoding(renderEncoding); err != nil {
				return err
			}
		}

		interpOpts := []interp.Option{interp.WithLogger(logging.New(logging.Config{
			Level:  logging.LevelWarn,
			Output: cmd.ErrOrStderr(),
		}))}
		if renderStrict {
			interpOpts = append(interpOpts, interp.WithStrictFunctions())
		}
		if err := interp.New(interpOpts...).Run(doc, rc); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return rc.Flush()
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringArrayVar(&renderParams, "param", nil, "Request parameter as name=value (repeatable)")
	renderCmd.Flags().BoolVar(&renderHeaders, "headers", false, "Print the HTTP response header before the body")
	renderCmd.Flags().StringVar(&renderEncoding, "encoding", "", "Output character encoding (default UTF-8)")
	renderCmd.Flags().BoolVar(&renderStrict, "strict", false, "Fail on unknown functions")
}

// parseParams turns name=value pairs into a map.
func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected name=value", p)
		}
		params[name] = value
	}
	return params, nil
}
