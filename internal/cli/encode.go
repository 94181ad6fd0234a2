package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Davincible/rabinida/internal/validation"
	"github.com/Davincible/rabinida/pkg/ida"
	"github.com/Davincible/rabinida/pkg/sharestore"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func NewEncodeCommand() *cobra.Command {
	var (
		shares      int
		threshold   int
		workers     int
		inputFile   string
		useStdin    bool
		outputFile  string
		store       bool
		name        string
		description string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Disperse data into n shares, any k of which rebuild it",
		Long: `Encode data with Rabin's Information Dispersal Algorithm.

The data is split into chunks of k bytes and each chunk is evaluated as a
polynomial at n distinct points. Every share is ceil(length/k) bytes, so the
total storage overhead is n/k. Any k shares reconstruct the data.

Shares are NOT encrypted: k shares reveal the data and fewer shares may
reveal parts of it. Encrypt sensitive data before dispersing it.`,
		Example: `  # Disperse a file into 7 shares, any 5 rebuild it
  ida encode -n 7 -k 5 --input photo.jpg --output shares.json

  # Read data from stdin
  tar c docs | ida encode -n 14 -k 10 --stdin -o docs.json

  # Keep the shares in the local store
  ida encode -n 5 -k 3 --input notes.txt --store --name notes --tag work`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cfg := ida.Config{Workers: workers}
			if cmd.Flags().Changed("shares") {
				cfg.Shares = shares
			}
			if cmd.Flags().Changed("threshold") {
				cfg.Threshold = threshold
			}
			m.ApplyDefaults(&cfg)

			if err := validation.ValidateDispersalParams(cfg.Shares, cfg.Threshold); err != nil {
				return err
			}

			var data []byte
			switch {
			case inputFile != "":
				data, err = os.ReadFile(inputFile)
			case useStdin:
				data, err = io.ReadAll(cmd.InOrStdin())
			default:
				return fmt.Errorf("no input: use --input FILE or --stdin")
			}
			if err != nil {
				return fmt.Errorf("failed to read data: %w", err)
			}

			codec, err := ida.New(cfg, ida.WithLogger(slog.Default()))
			if err != nil {
				return err
			}

			encoded := codec.Encode(data)

			result, err := newEncodeResult(encoded, cfg)
			if err != nil {
				return err
			}

			if store {
				if name == "" && inputFile != "" {
					name = filepath.Base(inputFile)
				}
				if err := validation.ValidateName(name); err != nil {
					return fmt.Errorf("invalid --name: %w", err)
				}
				if err := validation.ValidateTags(tags); err != nil {
					return err
				}

				st, err := openStore(cmd)
				if err != nil {
					return err
				}
				d, err := sharestore.NewDispersal(name, cfg, encoded)
				if err != nil {
					return err
				}
				d.Description = description
				d.Tags = tags
				if err := st.Add(d); err != nil {
					return fmt.Errorf("failed to store dispersal: %w", err)
				}
				result.DispersalID = d.ID
			}

			out := cmd.OutOrStdout()
			if outputFile != "" {
				if err := writeJSONFile(result, outputFile); err != nil {
					return err
				}
				color.New(color.FgGreen).Fprintf(out, "Shares saved to %s\n", outputFile)
				if result.DispersalID != "" {
					fmt.Fprintf(out, "Dispersal ID: %s\n", result.DispersalID)
				}
				return nil
			}

			if jsonOutput(cmd) {
				return printJSON(out, result)
			}

			return outputTextResult(out, result)
		},
	}

	cmd.Flags().IntVarP(&shares, "shares", "n", 5, "Total number of shares to create (1-255)")
	cmd.Flags().IntVarP(&threshold, "threshold", "k", 3, "Shares needed to reconstruct")
	cmd.Flags().IntVar(&workers, "workers", 0, "Encoding goroutines (0 = all CPUs)")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "File to disperse")
	cmd.Flags().BoolVar(&useStdin, "stdin", false, "Read data from stdin")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write shares to a JSON file")
	cmd.Flags().BoolVar(&store, "store", false, "Save the dispersal in the local store")
	cmd.Flags().StringVar(&name, "name", "", "Dispersal name in the store")
	cmd.Flags().StringVar(&description, "description", "", "Dispersal description in the store")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tags for the stored dispersal")
	cmd.Flags().String("passphrase", "", "Store passphrase (when the store is encrypted)")

	return cmd
}

func outputTextResult(w io.Writer, result *EncodeResult) error {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)

	fmt.Fprintln(w)
	yellow.Fprintln(w, "=== IDA SHARES ===")
	fmt.Fprintln(w)

	green.Fprintf(w, "Created %d shares with threshold %d for %d bytes\n", result.Total, result.Threshold, result.Length)
	fmt.Fprintf(w, "Any %d shares can reconstruct the original data\n", result.Threshold)
	if result.DispersalID != "" {
		fmt.Fprintf(w, "Stored as dispersal %s\n", result.DispersalID)
	}
	fmt.Fprintln(w)

	red.Fprintln(w, "⚠️  NOTE:")
	fmt.Fprintln(w, "- Shares are not encrypted and carry no checksum")
	fmt.Fprintln(w, "- Store shares on independent media to tolerate failures")
	fmt.Fprintln(w)

	for _, share := range result.Shares {
		fmt.Fprintf(w, "Share %d of %d:\n", share.ID, result.Total)

		cyan.Fprint(w, "  Hex:    ")
		fmt.Fprintln(w, share.Hex)

		blue.Fprint(w, "  Base64: ")
		fmt.Fprintln(w, share.Base64)

		fmt.Fprintln(w)
	}

	yellow.Fprintln(w, "=== END OF SHARES ===")
	return nil
}
