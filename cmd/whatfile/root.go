package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gobeaver/whatfile"
)

var (
	_ pflag.Value = (*whatfile.LogLevel)(nil)
	_ pflag.Value = (*whatfile.ChecksumAlgorithm)(nil)
)

// globalOptions are the flags shared by every command
type globalOptions struct {
	logLevel whatfile.LogLevel
	verbose  int
	quiet    bool
	jsonLog  bool
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{logLevel: whatfile.LogLevelNotice}

	root := &cobra.Command{
		Use:   "whatfile",
		Short: "Identify files by their content",
		Long: `
Whatfile identifies files by looking at their bytes instead of their
names. It recognises images, audio and video, archives, office
documents, PDF, XML dialects, executables and more, and reports when a
file's extension does not match what is inside.

Configuration is read from BEAVER_WHATFILE_* environment variables;
command line flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.Var(&opts.logLevel, "log-level", "Log level DEBUG|INFO|NOTICE|ERROR")
	flags.CountVarP(&opts.verbose, "verbose", "v", "Print per file results to the log (-vv for detector faults)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Print errors only")
	flags.BoolVar(&opts.jsonLog, "json-log", false, "Log in JSON format")

	root.AddCommand(
		newDetectCommand(opts),
		newWatchCommand(opts),
		newFormatsCommand(),
		newVersionCommand(),
	)
	return root
}

// loadConfig reads the environment config and applies the global flags
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*whatfile.Config, error) {
	cfg, err := whatfile.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	level := o.logLevel
	if !flags.Changed("log-level") && cfg.LogLevel != "" {
		if err := level.Set(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	switch {
	case o.quiet:
		level = whatfile.LogLevelError
	case o.verbose >= 2:
		level = whatfile.LogLevelDebug
	case o.verbose == 1:
		level = whatfile.LogLevelInfo
	}
	cfg.LogLevel = level.String()

	if flags.Changed("json-log") {
		cfg.JSONLog = o.jsonLog
	}
	return cfg, nil
}

// logger creates the logger for cfg writing to the command's stderr
func logger(cmd *cobra.Command, cfg *whatfile.Config) *whatfile.Logger {
	var level whatfile.LogLevel
	if err := level.Set(cfg.LogLevel); err != nil {
		level = whatfile.LogLevelNotice
	}
	return whatfile.NewLogger(cmd.ErrOrStderr(), level, cfg.JSONLog)
}
