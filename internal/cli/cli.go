// Package cli implements the marginalia command-line interface.
//
// Every command loads the effective configuration (defaults, then the
// --config file, then MARGINALIA_* variables) in the root's pre-run hook and
// finds the logger on its context.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"marginalia/pkg/config"
)

const appName = "marginalia"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds state shared by all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	out        io.Writer
	configPath string
	verbose    bool
}

// New creates a CLI writing results to out and logs to logw.
func New(out, logw io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(logw, level),
		Config: config.Default(),
		out:    out,
	}
}

func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Marginalia positions margin notes beside the words they annotate",
		Long:         `Marginalia lays out an article, places each margin note next to its trigger word without overlaps, and writes the result as HTML, PNG or JSON.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetOut(c.out)
	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("MARGINALIA_CONFIG"), "TOML configuration file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.applyCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.postCommand())
	root.AddCommand(c.configCommand())
	return root
}
