package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Davincible/rabinida/internal/cli"
	"github.com/Davincible/rabinida/pkg/config"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:   "ida",
		Short: "Rabin's Information Dispersal Algorithm for fault-tolerant storage",
		Long: `ida splits data into n shares such that any k of them rebuild it.

Each share is 1/k the size of the data, so the total overhead is n/k. Losing
up to n-k shares loses nothing. Arithmetic is done in GF(2^8).

Features:
- Encode and decode files or stdin with any 1 <= k <= n <= 255
- Hex and base64 share encodings
- A local store that tracks where each share went
- Optional Argon2id + ChaCha20-Poly1305 encryption of the store

Shares are not encrypted. Encrypt confidential data before dispersing it.`,
		Version:      fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			path, _ := cmd.Flags().GetString("config")
			if m, err := config.NewManager(path); err == nil {
				level.Set(m.Config().LogLevel())
			}
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	rootCmd.AddCommand(
		cli.NewEncodeCommand(),
		cli.NewDecodeCommand(),
		cli.NewInspectCommand(),
		cli.NewStoreCommand(),
		cli.NewConfigCommand(),
	)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Config file (default $IDA_CONFIG or ~/.config/ida/config.json)")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
