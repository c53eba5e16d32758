// Package cmd provides CLI commands for the imagesources binary.
package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/imagesources/cli/config"
)

// Exit codes. Per-item failures in bulk commands do not change the code.
const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

// Global flags, set before the command name.
var (
	// ConfigFlag points at the YAML config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
		Value:   config.DefaultPath,
		EnvVars: []string{"IMAGESOURCES_CONFIG"},
	}

	// LogLevelFlag selects the minimum log level.
	LogLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level: debug, info, warn, error",
		Value:   "info",
		EnvVars: []string{"IMAGESOURCES_LOG_LEVEL"},
	}
)

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for the reports command.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (reports only)",
	}
)

// GlobalFlags returns the app-level flags.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		LogLevelFlag,
	}
}

// OutputFlags returns the shared output flags.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		TUIFlag,
	}
}

// Commands returns every imagesources command.
func Commands(commit string) []*cli.Command {
	return []*cli.Command{
		AddClassCommand(),
		WebPConvertCommand(),
		RenderCommand(),
		AttachmentCommand(),
		ReportsCommand(),
		VersionCommand(commit),
	}
}

// isStderrTTY returns true if stderr is a terminal.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// rejectTUI fails commands that have no interactive view.
func rejectTUI(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for "+c.Command.Name+" command", exitUsage)
	}
	return nil
}
