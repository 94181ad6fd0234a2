package cli

import (
	"bufio"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Davincible/rabinida/internal/validation"
	"github.com/Davincible/rabinida/pkg/config"
	"github.com/Davincible/rabinida/pkg/ida"
	"github.com/Davincible/rabinida/pkg/secure"
	"github.com/Davincible/rabinida/pkg/sharestore"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// EnvPassphrase supplies the store passphrase without prompting.
const EnvPassphrase = "IDA_PASSPHRASE"

// ShareFormats is one share in the text encodings the CLI accepts.
type ShareFormats struct {
	ID     byte   `json:"id"`
	Hex    string `json:"hex"`
	Base64 string `json:"base64"`
}

// EncodeResult is what encode writes and decode reads back.
type EncodeResult struct {
	Shares      []ShareFormats `json:"shares"`
	Threshold   int            `json:"threshold"`
	Total       int            `json:"total"`
	Length      uint64         `json:"length"`
	DispersalID string         `json:"dispersal_id,omitempty"`
}

func newEncodeResult(shares []ida.Share, cfg ida.Config) (*EncodeResult, error) {
	result := &EncodeResult{
		Shares:    make([]ShareFormats, len(shares)),
		Threshold: cfg.Threshold,
		Total:     cfg.Shares,
	}
	for i, share := range shares {
		data, err := share.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to encode share %d: %w", share.ID, err)
		}
		result.Shares[i] = ShareFormats{
			ID:     share.ID,
			Hex:    hex.EncodeToString(data),
			Base64: base64.StdEncoding.EncodeToString(data),
		}
		result.Length = share.Length
	}
	return result, nil
}

// ParsedShares decodes the hex form of every share in the result.
func (r *EncodeResult) ParsedShares() ([]ida.Share, error) {
	lines := make([]string, len(r.Shares))
	for i, s := range r.Shares {
		lines[i] = s.Hex
		if lines[i] == "" {
			lines[i] = s.Base64
		}
	}
	return validation.ParseShares(lines)
}

func readEncodeResult(filename string) (*EncodeResult, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var result EncodeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if len(result.Shares) == 0 {
		return nil, fmt.Errorf("no shares found in %s", filename)
	}
	return &result, nil
}

func writeJSONFile(v any, filename string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// loadConfig reads the file named by the --config flag, or the default
// location when the flag is absent.
func loadConfig(cmd *cobra.Command) (*config.Manager, error) {
	path, _ := cmd.Flags().GetString("config")
	m, err := config.NewManager(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !m.Config().UI.UseColor {
		color.NoColor = true
	}
	return m, nil
}

// openStore opens the configured share store, asking for a passphrase when
// the store is encrypted.
func openStore(cmd *cobra.Command) (*sharestore.Store, error) {
	m, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	path, err := m.StorePath()
	if err != nil {
		return nil, err
	}

	opts := []sharestore.Option{sharestore.WithLogger(slog.Default())}
	if m.Config().Store.Encrypt {
		pass, err := storePassphrase(cmd)
		if err != nil {
			return nil, err
		}
		defer secure.Zero(pass)

		opts = append(opts,
			sharestore.WithPassphrase(secure.NewPassphrase(pass)),
			sharestore.WithKDFParams(m.Config().Store.KDF))
	}

	return sharestore.New(path, opts...)
}

func storePassphrase(cmd *cobra.Command) ([]byte, error) {
	if p, _ := cmd.Flags().GetString("passphrase"); p != "" {
		return []byte(p), nil
	}
	if p := os.Getenv(EnvPassphrase); p != "" {
		return []byte(p), nil
	}

	pass, err := readPassphrase(cmd, "Enter store passphrase: ")
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePassphrase(string(pass)); err != nil {
		return nil, err
	}
	return pass, nil
}

// readPassphrase reads a passphrase from the terminal
func readPassphrase(cmd *cobra.Command, prompt string) ([]byte, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pass, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		return pass, nil
	}

	// Fallback for non-terminal
	reader := bufio.NewReader(cmd.InOrStdin())
	pass, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	return []byte(strings.TrimSpace(pass)), nil
}

// readLines collects one share per line until a blank line or EOF.
func readLines(cmd *cobra.Command, prompt bool) ([]string, error) {
	yellow := color.New(color.FgYellow)
	if prompt {
		yellow.Fprintln(cmd.ErrOrStderr(), "Enter shares (hex or base64, one per line)")
		fmt.Fprintln(cmd.ErrOrStderr(), "Press Enter on an empty line when done")
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if len(lines) == 0 {
				continue
			}
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
