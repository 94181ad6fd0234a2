package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Davincible/rabinida/internal/validation"
	"github.com/Davincible/rabinida/pkg/ida"
	"github.com/Davincible/rabinida/pkg/secure"
	"github.com/Davincible/rabinida/pkg/sharestore"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewStoreCommand handles share store operations
func NewStoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Track and recover dispersals kept in the local store",
		Long: `Keep a record of every dispersal: its parameters, where each share went,
and the share bodies you still hold.

Marking a share distributed records its location and drops its body from the
store. Recovery works as long as k shares are still held.`,
		Example: `  # List stored dispersals
  ida store list

  # Record that share 2 went offsite
  ida store update abc123 2 --status distributed --location "bank vault"

  # Check what is still recoverable
  ida store verify abc123

  # Rebuild the data
  ida store recover abc123 -o photo.jpg`,
	}

	cmd.PersistentFlags().String("passphrase", "", "Store passphrase (when the store is encrypted)")

	cmd.AddCommand(
		newStoreListCommand(),
		newStoreAddCommand(),
		newStoreShowCommand(),
		newStoreSearchCommand(),
		newStoreVerifyCommand(),
		newStoreRecoverCommand(),
		newStoreUpdateCommand(),
		newStoreDeleteCommand(),
		newStoreExportCommand(),
		newStoreImportCommand(),
	)

	return cmd
}

func newStoreListCommand() *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored dispersals",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			dispersals := store.List(tags)
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), dispersals)
			}
			printDispersalList(cmd.OutOrStdout(), dispersals)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Filter by tags")
	return cmd
}

func newStoreAddCommand() *cobra.Command {
	var (
		input       string
		name        string
		description string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add the shares of an encode result to the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("--input is required")
			}
			if err := validation.ValidateName(name); err != nil {
				return fmt.Errorf("invalid --name: %w", err)
			}
			if err := validation.ValidateTags(tags); err != nil {
				return err
			}

			result, err := readEncodeResult(input)
			if err != nil {
				return err
			}
			shares, err := result.ParsedShares()
			if err != nil {
				return err
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			d, err := newDispersalFromResult(name, result, shares)
			if err != nil {
				return err
			}
			d.Description = description
			d.Tags = tags
			if err := store.Add(d); err != nil {
				return fmt.Errorf("failed to add dispersal: %w", err)
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ Added dispersal '%s' (%s)\n", d.Name, d.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Encode result JSON file")
	cmd.Flags().StringVar(&name, "name", "", "Dispersal name")
	cmd.Flags().StringVar(&description, "description", "", "Dispersal description")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tags")
	return cmd
}

func newStoreShowCommand() *cobra.Command {
	var showShares bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a dispersal and the custody of its shares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			d, err := store.Get(args[0])
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				export, err := store.Export(d.ID, showShares)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), export.Dispersal)
			}
			printDispersal(cmd.OutOrStdout(), d, showShares)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showShares, "show-shares", false, "Print held share bodies as hex")
	return cmd
}

func newStoreSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search dispersals by name, description, or tag",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			query := validation.SanitizeInput(strings.Join(args, " "))
			results := store.Search(query)
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), results)
			}
			printDispersalList(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

func newStoreVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Check the shares the store holds for a dispersal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			report, err := store.Verify(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return printJSON(out, report)
			}

			for _, r := range report.Results {
				line := fmt.Sprintf("  Share %3d: %s", r.ShareID, r.Status)
				if r.Error != "" {
					line += " (" + r.Error + ")"
				}
				statusColor(r.Status).Fprintln(out, line)
			}
			fmt.Fprintf(out, "\n%d of %d shares held and valid, %d needed\n",
				report.ValidShares, report.TotalShares, report.Threshold)
			if report.IsRecoverable {
				color.New(color.FgGreen).Fprintln(out, "✅ Recoverable")
			} else {
				color.New(color.FgRed, color.Bold).Fprintln(out, "❌ Not recoverable from the store alone")
			}
			return nil
		},
	}
}

func newStoreRecoverCommand() *cobra.Command {
	var (
		outputFile string
		asHex      bool
	)

	cmd := &cobra.Command{
		Use:   "recover <id>",
		Short: "Rebuild a dispersal from the shares the store holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			data, err := store.Recover(args[0])
			if err != nil {
				return err
			}
			defer secure.Zero(data)

			out := cmd.OutOrStdout()
			switch {
			case outputFile != "":
				if err := os.WriteFile(outputFile, data, 0600); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				color.New(color.FgGreen).Fprintf(out, "✅ Recovered %d bytes to %s\n", len(data), outputFile)
			case asHex:
				fmt.Fprintln(out, hex.EncodeToString(data))
			default:
				_, err = out.Write(data)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write recovered data to a file")
	cmd.Flags().BoolVar(&asHex, "hex", false, "Print recovered data as hex")
	return cmd
}

func newStoreUpdateCommand() *cobra.Command {
	var (
		status   string
		location string
	)

	cmd := &cobra.Command{
		Use:   "update <id> <share-id>",
		Short: "Update the custody status of one share",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shareID, err := strconv.ParseUint(args[1], 10, 8)
			if err != nil || shareID == 0 {
				return fmt.Errorf("invalid share id '%s'", args[1])
			}

			st := sharestore.Status(status)
			switch st {
			case sharestore.StatusAvailable, sharestore.StatusMissing,
				sharestore.StatusCorrupted, sharestore.StatusDistributed:
			default:
				return fmt.Errorf("unknown status '%s'", status)
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			if err := store.UpdateStatus(args[0], byte(shareID), st, location); err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ Share %d marked %s\n", shareID, st)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(sharestore.StatusDistributed), "New status (available, missing, corrupted, distributed)")
	cmd.Flags().StringVar(&location, "location", "", "Where the share is kept")
	return cmd
}

func newStoreDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a dispersal from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			d, err := store.Get(args[0])
			if err != nil {
				return err
			}

			if !force {
				fmt.Fprintf(cmd.ErrOrStderr(), "Delete dispersal '%s' (%s)? [y/N]: ", d.Name, d.ID)
				lines, err := readLines(cmd, false)
				if err != nil {
					return err
				}
				if len(lines) == 0 || !strings.EqualFold(lines[0], "y") {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			if err := store.Delete(d.ID); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ Deleted dispersal '%s'\n", d.Name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")
	return cmd
}

func newStoreExportCommand() *cobra.Command {
	var (
		outputFile    string
		includeShares bool
	)

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a dispersal for another store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			export, err := store.Export(args[0], includeShares)
			if err != nil {
				return err
			}

			if outputFile == "" {
				return printJSON(cmd.OutOrStdout(), export)
			}
			if err := writeJSONFile(export, outputFile); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ Exported to %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&includeShares, "include-shares", false, "Include held share bodies")
	return cmd
}

func newStoreImportCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an exported dispersal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			var export sharestore.ExportData
			if err := json.Unmarshal(data, &export); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Import(&export, overwrite); err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ Imported dispersal '%s'\n", export.Dispersal.Name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing dispersal with the same ID")
	return cmd
}

func newDispersalFromResult(name string, result *EncodeResult, shares []ida.Share) (*sharestore.Dispersal, error) {
	cfg := ida.Config{Shares: result.Total, Threshold: result.Threshold}
	return sharestore.NewDispersal(name, cfg, shares)
}

func printDispersalList(w io.Writer, dispersals []*sharestore.Dispersal) {
	if len(dispersals) == 0 {
		fmt.Fprintln(w, "No dispersals found")
		return
	}

	bold := color.New(color.Bold)
	for _, d := range dispersals {
		bold.Fprintf(w, "%s  %s\n", shortID(d.ID), d.Name)
		fmt.Fprintf(w, "    %d-of-%d, %d bytes, held %d/%d, created %s\n",
			d.Threshold, d.Shares, d.Length, heldShares(d), len(d.Entries),
			d.Created.Format(time.DateTime))
		if len(d.Tags) > 0 {
			fmt.Fprintf(w, "    tags: %s\n", strings.Join(d.Tags, ", "))
		}
	}
}

func printDispersal(w io.Writer, d *sharestore.Dispersal, showShares bool) {
	cyan := color.New(color.FgCyan, color.Bold)

	cyan.Fprint(w, "ID:          ")
	fmt.Fprintln(w, d.ID)
	cyan.Fprint(w, "Name:        ")
	fmt.Fprintln(w, d.Name)
	if d.Description != "" {
		cyan.Fprint(w, "Description: ")
		fmt.Fprintln(w, d.Description)
	}
	cyan.Fprint(w, "Scheme:      ")
	fmt.Fprintf(w, "%d-of-%d\n", d.Threshold, d.Shares)
	cyan.Fprint(w, "Length:      ")
	fmt.Fprintf(w, "%d bytes\n", d.Length)
	cyan.Fprint(w, "Created:     ")
	fmt.Fprintln(w, d.Created.Format(time.RFC3339))
	if len(d.Tags) > 0 {
		cyan.Fprint(w, "Tags:        ")
		fmt.Fprintln(w, strings.Join(d.Tags, ", "))
	}

	fmt.Fprintln(w)
	for _, e := range d.Entries {
		line := fmt.Sprintf("  Share %3d: %s", e.ID, e.Status)
		if e.Location != "" {
			line += " @ " + e.Location
		}
		statusColor(e.Status).Fprintln(w, line)

		if showShares && e.Share != nil {
			data, err := e.Share.MarshalBinary()
			if err == nil {
				fmt.Fprintf(w, "             %s\n", hex.EncodeToString(data))
			}
		}
	}
}

func statusColor(s sharestore.Status) *color.Color {
	switch s {
	case sharestore.StatusAvailable:
		return color.New(color.FgGreen)
	case sharestore.StatusDistributed:
		return color.New(color.FgBlue)
	case sharestore.StatusMissing:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func heldShares(d *sharestore.Dispersal) int {
	held := 0
	for _, e := range d.Entries {
		if e.Share != nil {
			held++
		}
	}
	return held
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
