package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

var rootCmd = &cobra.Command{
	Use:   "blewire",
	Short: "BLE native-to-message boundary toolkit",
	Long: `Tooling around the boundary between a native BLE manager and typed protocol messages:

- Replay scripted native events and calls through the full boundary
- Decode serialized protocol messages into readable JSON
- List adapter states, manager log levels and event channel names

Useful for checking converter behaviour against both record revisions without a radio.`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		prefix := "ERROR:"
		if term.IsTerminal(int(os.Stderr.Fd())) {
			prefix = color.New(color.FgRed, color.Bold).Sprint(prefix)
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", prefix, FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// main() prints errors itself
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(statesCmd)
	rootCmd.AddCommand(channelsCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().Bool("verbose", false, "Shorthand for --log-level=debug")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	rootCmd.SetVersionTemplate(fmt.Sprintf("blewire {{.Version}} (commit %s, built %s)\n", commit, date))
}
