package cfg

import (
	"cmp"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const (
	DefaultConfigPath        = "tmd-viewer.yaml"
	DefaultDataDir           = "."
	DefaultBindAddress       = "127.0.0.1:8888"
	DefaultTimeOffset        = 0 // UTC
	DefaultScannerCountLimit = 2
)

type rawCfg struct {
	ConfigPath  string `long:"config" env:"CONFIG_PATH" default:"tmd-viewer.yaml" description:"Path to the persisted configuration file"`
	DataDir     string `long:"data-dir" env:"DATA_DIR" description:"Override the directory containing zip archives"`
	BindAddress string `long:"bind-address" env:"BIND_ADDRESS" description:"Override the HTTP listen address"`
	Debug       bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// fileCfg mirrors the persisted tmd-viewer.yaml. All keys are optional;
// absent keys fall back to defaults.
type fileCfg struct {
	DataDir           *string `yaml:"data_dir"`
	BindAddress       *string `yaml:"bind_address"`
	TimeOffset        *int    `yaml:"time_offset"`
	ScannerCountLimit *int    `yaml:"scanner_count_limit"`
}

// Load parses command-line flags and environment variables, then merges in
// the configuration file. A missing file is created with defaults so the
// user has something to edit. Returns (nil, nil) when help was requested.
func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		ConfigPath:        raw.ConfigPath,
		BindAddress:       DefaultBindAddress,
		TimeOffset:        DefaultTimeOffset,
		ScannerCountLimit: DefaultScannerCountLimit,
		Debug:             raw.Debug,
		Version:           GetVersion(),
		dataDir:           DefaultDataDir,
	}

	loaded, err := cfg.loadFile()
	if err != nil {
		return nil, err
	}

	// Flags take precedence over the file.
	if raw.DataDir != "" {
		cfg.dataDir = raw.DataDir
	}
	if raw.BindAddress != "" {
		cfg.BindAddress = raw.BindAddress
	}

	if cfg.TimeOffset < -24 || cfg.TimeOffset > 24 {
		return nil, fmt.Errorf("time_offset out of range: %d (must be -24..24)", cfg.TimeOffset)
	}
	if cfg.ScannerCountLimit < 1 {
		return nil, fmt.Errorf("scanner_count_limit must be positive, got %d", cfg.ScannerCountLimit)
	}

	if !loaded {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to write default configuration: %w", err)
		}
	}

	return cfg, nil
}

// loadFile reads the yaml configuration file if it exists. The bool reports
// whether a file was found.
func (c *Cfg) loadFile() (bool, error) {
	data, err := os.ReadFile(c.ConfigPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var file fileCfg
	if err := yaml.Unmarshal(data, &file); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", c.ConfigPath, err)
	}

	if file.DataDir != nil {
		c.dataDir = *file.DataDir
	}
	if file.BindAddress != nil {
		c.BindAddress = *file.BindAddress
	}
	if file.TimeOffset != nil {
		c.TimeOffset = *file.TimeOffset
	}
	if file.ScannerCountLimit != nil {
		c.ScannerCountLimit = *file.ScannerCountLimit
	}

	return true, nil
}

// Save writes the current configuration back to the yaml file.
func (c *Cfg) Save() error {
	c.mu.RLock()
	dataDir := c.dataDir
	c.mu.RUnlock()

	file := fileCfg{
		DataDir:           &dataDir,
		BindAddress:       &c.BindAddress,
		TimeOffset:        &c.TimeOffset,
		ScannerCountLimit: &c.ScannerCountLimit,
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(c.ConfigPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.ConfigPath, err)
	}

	return nil
}
