package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dyscraper/pkg/config"
	"dyscraper/pkg/logger"
	"dyscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	noColor       bool
	notifications bool
	quiet         bool
	verbose       bool
)

// errReported exits non-zero without printing the error again.
var errReported = errors.New("failure already reported")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dyscraper",
	Short: "Download the videos of a Douyin profile",
	Long: `dyscraper opens a Douyin profile in Chrome, finds its videos and
downloads them.

Three harvest modes are available:
  api    read the post list the page requests (default, best names)
  page   open every video page and keep its largest media file
  hover  hover each post and save the preview it starts

Logged-in cookies are optional but give access to the full post list.
Run 'dyscraper cookies guide' to learn how to export them.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetColor(!noColor)
		ui.SetQuiet(quiet)

		if cmd.Name() != "version" && cmd.Name() != "help" && !quiet {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			ui.PrintError("Error", err.Error())
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .dyscraper.yaml or $HOME/.config/dyscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", false, "enable desktop notifications")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "print only errors and the final summary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug details")

	rootCmd.SetVersionTemplate(`dyscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// A bare profile URL runs the scrape command.
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return runScrape(scrapeCmd, args)
		}
		return cmd.Help()
	}
}

// loadConfig loads the configuration with the root flags and flags merged
// on top, then sets up logging.
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	root := rootCmd.PersistentFlags()
	if root.Changed("log-level") {
		flags["log-level"] = logLevel
	}
	if verbose {
		flags["log-level"] = "debug"
	}
	if root.Changed("notifications") {
		flags["notifications"] = notifications
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if quiet && !verbose && !root.Changed("log-level") {
		cfg.Logging.Level = "error"
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

// changedFlags collects the flags the user set explicitly, keyed by name.
// Unset flags are left out so they do not override the config file.
func changedFlags(fs *pflag.FlagSet) map[string]interface{} {
	out := make(map[string]interface{})
	fs.Visit(func(f *pflag.Flag) {
		var (
			v   interface{}
			err error
		)
		switch f.Value.Type() {
		case "bool":
			v, err = fs.GetBool(f.Name)
		case "int":
			v, err = fs.GetInt(f.Name)
		case "duration":
			v, err = fs.GetDuration(f.Name)
		default:
			v = f.Value.String()
		}
		if err == nil {
			out[f.Name] = v
		}
	})
	return out
}
