package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the deploy-time settings of the auction service. The fee
// percentage is immutable for the lifetime of the deployment.
type Config struct {
	ServiceName string `toml:"ServiceName"`
	Environment string `toml:"Environment"`
	FeePercent  uint32 `toml:"FeePercent"`
	Owner       string `toml:"Owner"`
}

// Load loads the configuration from the given path, creating a default file
// if none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown key %s", path, undecoded[0])
	}

	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "auctionhouse"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fee range and the owner address format.
func (c *Config) Validate() error {
	if c.FeePercent == 0 || c.FeePercent > 100 {
		return fmt.Errorf("config: FeePercent must be between 1 and 100, got %d", c.FeePercent)
	}
	if _, err := c.OwnerAddress(); err != nil {
		return err
	}
	return nil
}

// OwnerAddress decodes the configured protocol owner.
func (c *Config) OwnerAddress() ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(c.Owner), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("config: invalid Owner address: %w", err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("config: Owner address must be %d bytes, got %d", len(addr), len(raw))
	}
	copy(addr[:], raw)
	if addr == ([20]byte{}) {
		return addr, fmt.Errorf("config: Owner address must not be empty")
	}
	return addr, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ServiceName: "auctionhouse",
		Environment: "local",
		FeePercent:  5,
		Owner:       "0x" + strings.Repeat("01", 20),
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
