package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/getmockd/scriptd/pkg/config"
)

var (
	initOutput      string
	initForce       bool
	initInteractive bool
	initWebroot     bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter config file",
	Example: `  # Create scriptd.yaml with defaults
  scriptd init

  # Interactive setup, also creating a sample document root
  scriptd init -i --webroot

  # Overwrite an existing JSON config
  scriptd init -o scriptd.json --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.Default()
		if initInteractive {
			if err := promptConfig(cfg); err != nil {
				return err
			}
		}

		if err := config.SaveToFile(initOutput, cfg, initForce); err != nil {
			if errors.Is(err, config.ErrFileExists) {
				return fmt.Errorf("%w\n\nUse --force to overwrite", err)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", initOutput)

		if initWebroot {
			root := cfg.DocumentRoot
			if !filepath.IsAbs(root) {
				root = filepath.Join(filepath.Dir(initOutput), root)
			}
			if err := writeSampleWebroot(root); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created sample document root %s\n", root)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "scriptd.yaml", "Output filename (.yaml, .yml or .json)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the main settings")
	initCmd.Flags().BoolVar(&initWebroot, "webroot", false, "Also create a sample document root")
}

func promptConfig(cfg *config.ServerConfig) error {
	port := strconv.Itoa(cfg.Port)
	workers := strconv.Itoa(cfg.Workers)
	timeout := cfg.SessionTimeout.String()

	positive := func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return errors.New("enter a positive number")
		}
		return nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Which port should scriptd listen on?").
				Value(&port).
				Validate(positive),
			huh.NewInput().
				Title("Document root").
				Placeholder("webroot").
				Value(&cfg.DocumentRoot).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("document root is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Cookie domain").
				Value(&cfg.Domain),
			huh.NewInput().
				Title("Maximum concurrent connections").
				Value(&workers).
				Validate(positive),
			huh.NewInput().
				Title("Session timeout").
				Value(&timeout).
				Validate(func(s string) error {
					var d config.Duration
					return d.UnmarshalJSON([]byte(strconv.Quote(s)))
				}),
			huh.NewSelect[string]().
				Title("Log format").
				Options(
					huh.NewOption("Text", "text"),
					huh.NewOption("JSON", "json"),
				).
				Value(&cfg.Log.Format),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Port, _ = strconv.Atoi(port)
	cfg.Workers, _ = strconv.Atoi(workers)
	return cfg.SessionTimeout.UnmarshalJSON([]byte(strconv.Quote(timeout)))
}

const sampleIndex = `<html>
<head><title>scriptd</title></head>
<body>
<h1>It works</h1>
<ul>
<li><a href="/hello?name=World">Hello worker</a></li>
<li><a href="/calc?a=20&amp;b=22">Calculator</a></li>
<li><a href="/index2.html">Home page with session colour</a></li>
<li><a href="/loop.smscr">Loop script</a></li>
</ul>
</body>
</html>
`

const sampleLoop = `<html><body>
<p>Counting: {$ FOR i 1 5 $}{$= i $} {$ END $}</p>
<p>Squares: {$ FOR i 1 5 $}{$= i i * " " $}{$ END $}</p>
</body></html>
`

const sampleCalc = `<html><body>
<p>{$= "a" "0" @tparamGet $} + {$= "b" "0" @tparamGet $} = {$= "sum" "0" @tparamGet $}</p>
</body></html>
`

const sampleHome = `<html><body bgcolor="#{$= "background" "7F7F7F" @tparamGet $}">
<p><a href="/setbgcolor?bgcolor=FFCC00">Yellow</a> <a href="/setbgcolor?bgcolor=7F7F7F">Grey</a></p>
</body></html>
`

// writeSampleWebroot creates a small document root. Existing files are
// left alone.
func writeSampleWebroot(root string) error {
	files := map[string]string{
		"index.html":               sampleIndex,
		"loop.smscr":               sampleLoop,
		"private/pages/calc.smscr": sampleCalc,
		"private/pages/home.smscr": sampleHome,
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}
