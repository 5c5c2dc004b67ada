package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPreviewPort    = 9966
	DefaultAMCPPort       = 5250
	DefaultDialTimeout    = 5 * time.Second
	DefaultCommandTimeout = 10 * time.Second
	DefaultScannerURL     = "http://localhost:8000/version"
	DefaultScannerTimeout = 2 * time.Second
)

// Options tune the console itself. They are read from a YAML file next to
// settings.json and are never written back by the console.
type Options struct {
	LogLevel string          `yaml:"log_level"`
	Preview  PreviewOptions  `yaml:"preview"`
	AMCP     AMCPOptions     `yaml:"amcp"`
	DeckLink DeckLinkOptions `yaml:"decklink"`
	Scanner  ScannerOptions  `yaml:"scanner"`
}

type PreviewOptions struct {
	Port int `yaml:"port"`
	// TestDir overrides the embedded test pattern page.
	TestDir string `yaml:"test_dir"`
}

type AMCPOptions struct {
	DefaultHost    string        `yaml:"default_host"`
	DefaultPort    int           `yaml:"default_port"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// SOCKSProxy routes the control connection through a SOCKS5 proxy.
	SOCKSProxy string `yaml:"socks_proxy"`
}

type DeckLinkOptions struct {
	// Helper is an executable that speaks the DeckLink inventory protocol.
	Helper string `yaml:"helper"`
	// InventoryFile is a static JSON device list, used when Helper is empty.
	InventoryFile string        `yaml:"inventory_file"`
	Timeout       time.Duration `yaml:"timeout"`
}

type ScannerOptions struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

func DefaultOptions() Options {
	return Options{
		LogLevel: "info",
		Preview:  PreviewOptions{Port: DefaultPreviewPort},
		AMCP: AMCPOptions{
			DefaultHost:    "127.0.0.1",
			DefaultPort:    DefaultAMCPPort,
			DialTimeout:    DefaultDialTimeout,
			CommandTimeout: DefaultCommandTimeout,
		},
		DeckLink: DeckLinkOptions{Timeout: 10 * time.Second},
		Scanner:  ScannerOptions{URL: DefaultScannerURL, Timeout: DefaultScannerTimeout},
	}
}

func DefaultOptionsPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "console.yaml"), nil
}

// LoadOptions reads path over the defaults. A missing file is not an error.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if strings.TrimSpace(path) == "" {
		return opts, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return opts, nil
		}
		return opts, fmt.Errorf("read options: %w", err)
	}
	if err := yaml.Unmarshal(b, &opts); err != nil {
		return DefaultOptions(), fmt.Errorf("parse options %s: %w", path, err)
	}
	opts.normalize()
	if err := opts.Validate(); err != nil {
		return DefaultOptions(), err
	}
	return opts, nil
}

func (o *Options) normalize() {
	def := DefaultOptions()
	if o.Preview.Port == 0 {
		o.Preview.Port = def.Preview.Port
	}
	if strings.TrimSpace(o.AMCP.DefaultHost) == "" {
		o.AMCP.DefaultHost = def.AMCP.DefaultHost
	}
	if o.AMCP.DefaultPort == 0 {
		o.AMCP.DefaultPort = def.AMCP.DefaultPort
	}
	if o.AMCP.DialTimeout <= 0 {
		o.AMCP.DialTimeout = def.AMCP.DialTimeout
	}
	if o.AMCP.CommandTimeout <= 0 {
		o.AMCP.CommandTimeout = def.AMCP.CommandTimeout
	}
	if o.DeckLink.Timeout <= 0 {
		o.DeckLink.Timeout = def.DeckLink.Timeout
	}
	if strings.TrimSpace(o.Scanner.URL) == "" {
		o.Scanner.URL = def.Scanner.URL
	}
	if o.Scanner.Timeout <= 0 {
		o.Scanner.Timeout = def.Scanner.Timeout
	}
}

func (o Options) Validate() error {
	if o.Preview.Port < 0 || o.Preview.Port > 65535 {
		return fmt.Errorf("preview.port out of range: %d", o.Preview.Port)
	}
	if o.AMCP.DefaultPort < 1 || o.AMCP.DefaultPort > 65535 {
		return fmt.Errorf("amcp.default_port out of range: %d", o.AMCP.DefaultPort)
	}
	return nil
}
