package validation

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/Davincible/rabinida/pkg/ida"
)

// Format is a text encoding of a share's binary form.
type Format string

const (
	FormatHex     Format = "hex"
	FormatBase64  Format = "base64"
	FormatUnknown Format = "unknown"
)

var (
	hexPattern  = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	namePattern = regexp.MustCompile(`^[\w .\-]+$`)
)

func ValidateHex(input string) error {
	input = strings.TrimSpace(input)
	if len(input) == 0 {
		return fmt.Errorf("hex string cannot be empty")
	}

	if len(input)%2 != 0 {
		return fmt.Errorf("hex string must have even length")
	}

	if !hexPattern.MatchString(input) {
		return fmt.Errorf("invalid hex characters")
	}

	return nil
}

// DetectFormat guesses the encoding of a share string. Hex wins when a
// string is valid in both encodings.
func DetectFormat(s string) Format {
	s = strings.TrimSpace(s)
	if ValidateHex(s) == nil {
		return FormatHex
	}
	if _, err := base64.StdEncoding.DecodeString(s); err == nil && s != "" {
		return FormatBase64
	}
	return FormatUnknown
}

// ParseShare decodes a hex or base64 share string into a share record.
func ParseShare(s string) (ida.Share, error) {
	s = strings.TrimSpace(s)

	var (
		data []byte
		err  error
	)
	switch DetectFormat(s) {
	case FormatHex:
		data, err = hex.DecodeString(s)
	case FormatBase64:
		data, err = base64.StdEncoding.DecodeString(s)
	default:
		return ida.Share{}, fmt.Errorf("invalid share format: expected hex or base64")
	}
	if err != nil {
		return ida.Share{}, fmt.Errorf("failed to decode share: %w", err)
	}

	var share ida.Share
	if err := share.UnmarshalBinary(data); err != nil {
		return ida.Share{}, err
	}
	return share, nil
}

// ParseShares parses one share per non-empty line.
func ParseShares(lines []string) ([]ida.Share, error) {
	shares := make([]ida.Share, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		share, err := ParseShare(line)
		if err != nil {
			return nil, fmt.Errorf("share %d: %w", i+1, err)
		}
		shares = append(shares, share)
	}
	return shares, nil
}

func ValidateDispersalParams(shares, threshold int) error {
	cfg := ida.Config{Shares: shares, Threshold: threshold}
	return cfg.Validate()
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("name too long (max 100 characters)")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name may only contain letters, digits, spaces, '.', '_' and '-'")
	}
	return nil
}

func ValidateTags(tags []string) error {
	for i, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tag %d is empty", i+1)
		}
		if strings.ContainsAny(tag, ",\n") {
			return fmt.Errorf("tag %q contains a separator", tag)
		}
	}
	return nil
}

func ValidatePassphrase(passphrase string) error {
	if len(passphrase) > 256 {
		return fmt.Errorf("passphrase too long (max 256 characters)")
	}

	for i, ch := range passphrase {
		if ch == 0 {
			return fmt.Errorf("passphrase contains null character at position %d", i)
		}
	}

	return nil
}

func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)

	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.ReplaceAll(input, "\r", "\n")

	lines := strings.Split(input, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	return strings.Join(lines, "\n")
}
