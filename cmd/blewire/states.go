package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/srg/blewire/internal/render"
	"github.com/srg/blewire/pkg/protocol"
)

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "List adapter states and manager log levels",
	Long: `States prints the adapter state codes delivered on the state-change channel and the
log level codes returned by the logLevel call.`,
	Args: cobra.NoArgs,
	RunE: runStates,
}

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List event channel names",
	Long:  `Channels prints the five event channel names under the configured namespace, in dispatch order.`,
	Args:  cobra.NoArgs,
	RunE:  runChannels,
}

var statesFormat string

func init() {
	statesCmd.Flags().StringVarP(&statesFormat, "format", "f", "text", "Output format (text, json)")
}

func runStates(cmd *cobra.Command, _ []string) error {
	if statesFormat != "text" && statesFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [text json]", statesFormat)
	}
	cmd.SilenceUsage = true

	out := cmd.OutOrStdout()
	if statesFormat == "json" {
		return writeStatesJSON(out)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADAPTER STATE\tCODE")
	for _, s := range protocol.BluetoothStates() {
		fmt.Fprintf(w, "%s\t%d\n", s, int(s))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "LOG LEVEL\tCODE")
	for l := protocol.LogVerbose; l <= protocol.LogNone; l++ {
		fmt.Fprintf(w, "%s\t%d\n", l, int(l))
	}
	return w.Flush()
}

func writeStatesJSON(out io.Writer) error {
	states := render.NewObject()
	for _, s := range protocol.BluetoothStates() {
		states.Set(s.String(), int(s))
	}
	levels := render.NewObject()
	for l := protocol.LogVerbose; l <= protocol.LogNone; l++ {
		levels.Set(l.String(), int(l))
	}

	doc := render.NewObject()
	doc.Set("states", states)
	doc.Set("logLevels", levels)

	b, err := render.JSON(doc, true)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

func runChannels(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true
	for _, name := range cfg.ChannelNames() {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
			return err
		}
	}
	return nil
}
