// Package cli implements the aspect-latent command-line interface.
//
// Commands:
//   - match: snap ratios, WxH sizes or image files to the bucket table
//   - latent: run the node and report the latent it would produce
//   - fit: crop and resize an image to its matched bucket
//   - scan: match every image under a directory and summarize buckets
//   - table: print the bucket table
//   - describe: print the node descriptor as JSON
//   - config: write or show the TOML configuration
//
// All commands accept --verbose (-v) for debug logging and --config to point at
// a configuration file other than ~/.config/aspect-latent/config.toml.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	aspectlatent "github.com/koala-nodes/aspect-latent"
	"github.com/koala-nodes/aspect-latent/internal/config"
)

const appName = "aspect-latent"

// annotationNoConfig marks commands that must run without reading the config
// file, such as config init over a missing or broken file.
const annotationNoConfig = "no-config"

var (
	version = aspectlatent.Version
	commit  = "unknown"
	date    = "unknown"
)

// SetVersion sets the build metadata shown by the version command.
func SetVersion(v, c, d string) {
	if v != "" {
		version = v
	}
	if c != "" {
		commit = c
	}
	if d != "" {
		date = d
	}
}

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	out        io.Writer
	configPath string
	cfg        *config.Config
	al         *aspectlatent.AspectLatent
}

// New creates a CLI writing results to out and logs to logw.
func New(out, logw io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(logw, level),
		out:    out,
	}
}

// Execute runs the CLI against os.Args until ctx is cancelled.
func Execute(ctx context.Context) error {
	c := New(os.Stdout, os.Stderr, log.InfoLevel)
	return c.RootCommand().ExecuteContext(withLogger(ctx, c.Logger))
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   appName,
		Short: "Snap image sizes to trained aspect ratio buckets and create empty latents",
		Long: `aspect-latent matches widths, heights and images against a fixed table of
40 width/height buckets and creates empty latents of the nearest bucket.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.Logger.SetLevel(log.DebugLevel)
			}
			if cmd.Annotations[annotationNoConfig] != "" {
				return nil
			}
			return c.loadConfig()
		},
	}

	root.SetOut(c.out)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.GetConfigPath()+")")

	root.AddCommand(c.matchCommand())
	root.AddCommand(c.latentCommand())
	root.AddCommand(c.fitCommand())
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.tableCommand())
	root.AddCommand(c.describeCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// loadConfig reads the config file, or defaults when the default path is absent.
func (c *CLI) loadConfig() error {
	path := c.configPath
	var cfg *config.Config
	var err error
	if path == "" {
		path = config.GetConfigPath()
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromFile(path)
	}
	if err != nil {
		return err
	}

	al, err := aspectlatent.NewWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	c.Logger.Debug("config loaded", "path", path, "backend", cfg.Vision.Backend)

	c.cfg = cfg
	c.al = al
	return nil
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.out, "%s %s\n", appName, version)
			fmt.Fprintf(c.out, "  Commit: %s\n", commit)
			fmt.Fprintf(c.out, "  Built:  %s\n", date)
		},
	}
}
