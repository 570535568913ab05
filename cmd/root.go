package cmd

import (
	"github.com/alantheprice/consolepane/pkg/config"
	"github.com/alantheprice/consolepane/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	flagMode     string
	flagLogFile  string
	flagLogLevel string
	flagStrict   bool

	// Populated by loadSettings before any subcommand runs.
	settings *config.Config
	logger   *logging.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "consolepane",
	Short: "Interactive console pane with blocking input",
	Long: `Consolepane hosts a prompt-based interactive console. Programs running
behind the console read their standard input through it: the console either
edits the line in place, opens a popup, or takes lines from a headless
producer.

Available commands:
  run   - interactive terminal session with a small built-in interpreter
  pipe  - headless session fed from standard input
  keys  - list the active key bindings`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// CloseLogger flushes and closes the log file opened for the command.
func CloseLogger() error {
	return logger.Close()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.consolepane/config.json)")
	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", "", "input mode: auto, inline, popup or silent")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "write logs to this file (rotated)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&flagStrict, "strict", false, "panic on illegal input bridge transitions")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pipeCmd)
	rootCmd.AddCommand(keysCmd)
}

// loadSettings reads the config file, applies flag overrides and opens the
// logger.
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if flagMode != "" {
		cfg.Mode = flagMode
	}
	if flagLogFile != "" {
		cfg.Log.File = flagLogFile
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagStrict {
		cfg.Strict = true
	}

	result := cfg.Check()
	if !result.IsValid() {
		return result.CombinedError()
	}
	logOpts, err := cfg.LoggerOptions()
	if err != nil {
		return err
	}
	logger = logging.New(logOpts)
	for _, warning := range result.Warnings {
		logger.Warnf("config: %s", warning)
	}
	logger.Debugf("settings loaded (mode=%s, history=%d)", cfg.Mode, cfg.HistorySize)

	settings = cfg
	return nil
}
