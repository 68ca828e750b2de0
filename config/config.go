// Package config loads the server configuration from an optional YAML file,
// falling back to defaults when the file is absent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/warp/loyalty-ledger/ledger"
)

// Config represents the contents of the config file.
type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	QR struct {
		BaseHost string `yaml:"base_host"`
	} `yaml:"qr"`

	Rewards struct {
		StartingBalance int64 `yaml:"starting_balance"`
		DailyBonus      int64 `yaml:"daily_bonus"`
		ScanBonus       int64 `yaml:"scan_bonus"`
	} `yaml:"rewards"`

	// Employees seeds the directory table at startup. The directory is
	// reference data the ledger itself never writes.
	Employees []EmployeeSeed `yaml:"employees"`
}

// EmployeeSeed is one directory record from the config file.
type EmployeeSeed struct {
	ID        string `yaml:"id"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Role      string `yaml:"role"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Database.Path = "loyalty.db"
	cfg.QR.BaseHost = "https://loyalty.example.com"
	cfg.Rewards.StartingBalance = ledger.DefaultStartingBalance
	cfg.Rewards.DailyBonus = ledger.DefaultDailyBonus
	cfg.Rewards.ScanBonus = ledger.DefaultScanBonus
	return cfg
}

// Load reads the config from path. A missing file yields the defaults; a
// present but malformed file is an error, never silently ignored.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// DirectoryEmployees converts the seed entries to ledger records.
func (c *Config) DirectoryEmployees() []ledger.Employee {
	out := make([]ledger.Employee, 0, len(c.Employees))
	for _, e := range c.Employees {
		out = append(out, ledger.Employee{
			ID:        e.ID,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Role:      e.Role,
		})
	}
	return out
}
