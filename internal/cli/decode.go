package cli

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/Davincible/rabinida/internal/validation"
	"github.com/Davincible/rabinida/pkg/ida"
	"github.com/Davincible/rabinida/pkg/secure"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func NewDecodeCommand() *cobra.Command {
	var (
		shares     int
		threshold  int
		workers    int
		inputFile  string
		shareArgs  []string
		outputFile string
		asHex      bool
	)

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Rebuild data from k shares",
		Long: `Decode data dispersed with 'ida encode'.

Shares can come from an encode result file, from repeated --share flags, or
from stdin (one hex or base64 share per line). The first k shares are used.
n and k default to the values in the result file, then to the configuration.`,
		Example: `  # Rebuild from an encode result
  ida decode --input shares.json --output photo.jpg

  # Rebuild from individual shares
  ida decode -n 7 -k 5 --share 0101... --share 0102... ... -o photo.jpg

  # Paste shares interactively
  ida decode -n 5 -k 3 --hex`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cfg := ida.Config{Workers: workers}
			var parsed []ida.Share

			switch {
			case inputFile != "":
				result, err := readEncodeResult(inputFile)
				if err != nil {
					return err
				}
				cfg.Shares, cfg.Threshold = result.Total, result.Threshold
				parsed, err = result.ParsedShares()
				if err != nil {
					return err
				}
			case len(shareArgs) > 0:
				parsed, err = validation.ParseShares(shareArgs)
				if err != nil {
					return err
				}
			default:
				lines, err := readLines(cmd, true)
				if err != nil {
					return fmt.Errorf("failed to read shares: %w", err)
				}
				parsed, err = validation.ParseShares(lines)
				if err != nil {
					return err
				}
			}

			if cmd.Flags().Changed("shares") {
				cfg.Shares = shares
			}
			if cmd.Flags().Changed("threshold") {
				cfg.Threshold = threshold
			}
			m.ApplyDefaults(&cfg)

			codec, err := ida.New(cfg, ida.WithLogger(slog.Default()))
			if err != nil {
				return err
			}

			data, err := codec.Decode(parsed)
			if err != nil {
				return fmt.Errorf("failed to decode: %w", err)
			}
			defer secure.Zero(data)

			out := cmd.OutOrStdout()
			switch {
			case outputFile != "":
				if err := os.WriteFile(outputFile, data, 0600); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				color.New(color.FgGreen).Fprintf(out, "✅ Recovered %d bytes to %s\n", len(data), outputFile)
			case jsonOutput(cmd):
				return printJSON(out, map[string]any{
					"length": len(data),
					"hex":    hex.EncodeToString(data),
				})
			case asHex:
				fmt.Fprintln(out, hex.EncodeToString(data))
			default:
				_, err = out.Write(data)
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&shares, "shares", "n", 5, "Total number of shares created at encode time")
	cmd.Flags().IntVarP(&threshold, "threshold", "k", 3, "Shares needed to reconstruct")
	cmd.Flags().IntVar(&workers, "workers", 0, "Decoding goroutines (0 = all CPUs)")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Encode result JSON file")
	cmd.Flags().StringArrayVarP(&shareArgs, "share", "s", nil, "Share in hex or base64 (repeatable)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write recovered data to a file")
	cmd.Flags().BoolVar(&asHex, "hex", false, "Print recovered data as hex")

	return cmd
}

func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <share>",
		Short: "Show the header of a share",
		Long:  "Parse a hex or base64 share and print its id, the dispersed data length, and the body size.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			share, err := validation.ParseShare(args[0])
			if err != nil {
				return err
			}

			format := validation.DetectFormat(args[0])
			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return printJSON(out, map[string]any{
					"id":     share.ID,
					"length": share.Length,
					"body":   len(share.Body),
					"format": format,
				})
			}

			cyan := color.New(color.FgCyan, color.Bold)
			cyan.Fprint(out, "ID:     ")
			fmt.Fprintln(out, share.ID)
			cyan.Fprint(out, "Length: ")
			fmt.Fprintf(out, "%d bytes\n", share.Length)
			cyan.Fprint(out, "Body:   ")
			fmt.Fprintf(out, "%d bytes\n", len(share.Body))
			cyan.Fprint(out, "Format: ")
			fmt.Fprintln(out, format)
			return nil
		},
	}
	return cmd
}
