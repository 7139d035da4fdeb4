package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srg/blewire/internal/render"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <type> [data]",
	Short: "Decode a serialized protocol message",
	Long: `Decode prints a serialized protocol message as JSON, fields in wire order.

The data is read from the argument or, when absent or "-", from stdin. It may be hex
(whitespace and colons are ignored) or standard base64.

Types: device, scanResult, service, services, characteristic, characteristics,
monitorCharacteristic, scanData.`,
	Example: `  blewire decode device 0a0541413a42422017
  echo CgVBQTpCQg== | blewire decode device`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDecode,
}

var (
	decodeEncoding string
	decodeCompact  bool
)

func init() {
	decodeCmd.Flags().StringVarP(&decodeEncoding, "encoding", "e", "auto", "Input encoding (auto, hex, base64)")
	decodeCmd.Flags().BoolVar(&decodeCompact, "compact", false, "Print JSON on a single line")
}

func runDecode(cmd *cobra.Command, args []string) error {
	switch decodeEncoding {
	case "auto", "hex", "base64":
	default:
		return fmt.Errorf("invalid encoding '%s': must be one of [auto hex base64]", decodeEncoding)
	}

	input := "-"
	if len(args) == 2 {
		input = args[1]
	}
	if input == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		input = string(b)
	}

	cmd.SilenceUsage = true

	raw, err := decodeInput(input, decodeEncoding)
	if err != nil {
		return err
	}

	m, err := render.Decode(args[0], raw)
	if err != nil {
		return err
	}
	tree, err := render.Message(m)
	if err != nil {
		return err
	}
	out, err := render.JSON(tree, !decodeCompact)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

// decodeInput turns hex or base64 text into bytes. In auto mode hex wins when the text is valid hex.
func decodeInput(s, encoding string) ([]byte, error) {
	s = strings.TrimSpace(s)

	if encoding != "base64" {
		cleaned := strings.NewReplacer(" ", "", "\n", "", "\t", "", ":", "").Replace(s)
		cleaned = strings.TrimPrefix(strings.TrimPrefix(cleaned, "0x"), "0X")
		if b, err := hex.DecodeString(cleaned); err == nil {
			return b, nil
		} else if encoding == "hex" {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return b, nil
}
