package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "auctionhouse", cfg.ServiceName)
	require.Equal(t, uint32(5), cfg.FeePercent)
	require.FileExists(t, path)

	// A second load reads the file it just wrote.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
ServiceName = "auctionhouse-test"
Environment = "ci"
FeePercent = 10
Owner = "0x` + strings.Repeat("02", 20) + `"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "auctionhouse-test", cfg.ServiceName)
	require.Equal(t, uint32(10), cfg.FeePercent)

	owner, err := cfg.OwnerAddress()
	require.NoError(t, err)
	require.Equal(t, byte(0x02), owner[0])
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
FeePercent = 10
Owner = "0x` + strings.Repeat("02", 20) + `"
Unexpected = true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	owner := "0x" + strings.Repeat("02", 20)
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{FeePercent: 5, Owner: owner}, false},
		{"zero fee", Config{FeePercent: 0, Owner: owner}, true},
		{"fee over hundred", Config{FeePercent: 101, Owner: owner}, true},
		{"short owner", Config{FeePercent: 5, Owner: "0x0202"}, true},
		{"zero owner", Config{FeePercent: 5, Owner: "0x" + strings.Repeat("00", 20)}, true},
		{"garbage owner", Config{FeePercent: 5, Owner: "not hex"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
