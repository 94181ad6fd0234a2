package test

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/Davincible/rabinida/internal/validation"
	"github.com/Davincible/rabinida/pkg/ida"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeStrings(t *testing.T, shares []ida.Share, format validation.Format) []string {
	t.Helper()
	out := make([]string, len(shares))
	for i, s := range shares {
		raw, err := s.MarshalBinary()
		require.NoError(t, err)
		switch format {
		case validation.FormatHex:
			out[i] = hex.EncodeToString(raw)
		case validation.FormatBase64:
			out[i] = base64.StdEncoding.EncodeToString(raw)
		}
	}
	return out
}

func TestCLI_EncodeDecodeWorkflow_MultipleFormats(t *testing.T) {
	data := []byte("test data for cli integration")
	codec, err := ida.New(ida.Config{Shares: 5, Threshold: 3})
	require.NoError(t, err)
	shares := codec.Encode(data)

	testCases := []struct {
		name   string
		format validation.Format
	}{
		{"Hex format", validation.FormatHex},
		{"Base64 format", validation.FormatBase64},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lines := encodeStrings(t, shares[2:], tc.format)

			parsed, err := validation.ParseShares(lines)
			require.NoError(t, err)

			recovered, err := codec.Decode(parsed)
			require.NoError(t, err)
			assert.Equal(t, data, recovered)
		})
	}
}

func TestCLI_MixedFormatCombination(t *testing.T) {
	data := []byte("mixed formats")
	codec, err := ida.New(ida.Config{Shares: 4, Threshold: 3})
	require.NoError(t, err)
	shares := codec.Encode(data)

	hexed := encodeStrings(t, shares, validation.FormatHex)
	b64 := encodeStrings(t, shares, validation.FormatBase64)

	parsed, err := validation.ParseShares([]string{hexed[0], b64[3], "  " + hexed[1] + "\n"})
	require.NoError(t, err)

	recovered, err := codec.Decode(parsed)
	require.NoError(t, err)
	assert.Equal(t, data, recovered)
}

func TestCLI_ErrorHandling(t *testing.T) {
	testCases := []struct {
		name  string
		input []string
	}{
		{"Single character", []string{"   x  "}},
		{"Invalid characters", []string{"not-a-share!"}},
		{"Too short", []string{"0101"}},
		{"Zero id", []string{"0100000000000000000161"}},
		{"Unknown version", []string{"0201000000000000000161"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validation.ParseShares(tc.input)
			assert.Error(t, err)
		})
	}
}
