// Package config loads operator settings for the anchor tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"seals.dev/anchor/anchor"
	"seals.dev/anchor/dbc"
)

type Config struct {
	DataDir      string        `json:"data_dir" yaml:"data_dir"`
	TxDir        string        `json:"tx_dir" yaml:"tx_dir"`
	LogLevel     string        `json:"log_level" yaml:"log_level"`
	MaxContracts int           `json:"max_contracts" yaml:"max_contracts"`
	Methods      []string      `json:"methods" yaml:"methods"`
	CacheTTL     time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

var allowedLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".anchor"
	}
	return filepath.Join(home, ".anchor")
}

func DefaultConfig() Config {
	dataDir := DefaultDataDir()
	return Config{
		DataDir:      dataDir,
		TxDir:        filepath.Join(dataDir, "txs"),
		LogLevel:     "info",
		MaxContracts: anchor.MaxContracts,
		Methods:      []string{dbc.MethodOpret.String(), dbc.MethodTapret.String()},
		CacheTTL:     10 * time.Minute,
	}
}

func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if strings.TrimSpace(cfg.TxDir) == "" {
		return errors.New("tx_dir is required")
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.MaxContracts <= 0 {
		return errors.New("max_contracts must be > 0")
	}
	if cfg.MaxContracts > anchor.MaxContracts {
		return fmt.Errorf("max_contracts must be <= %d", anchor.MaxContracts)
	}
	if len(cfg.Methods) == 0 {
		return errors.New("methods must name at least one scheme")
	}
	if _, err := cfg.DbcMethods(); err != nil {
		return err
	}
	if cfg.CacheTTL < 0 {
		return errors.New("cache_ttl must be >= 0")
	}
	return nil
}

// DbcMethods resolves the configured scheme names, dropping repeats.
func (cfg Config) DbcMethods() ([]dbc.Method, error) {
	out := make([]dbc.Method, 0, len(cfg.Methods))
	seen := make(map[dbc.Method]struct{}, len(cfg.Methods))
	for _, name := range cfg.Methods {
		m, err := dbc.ParseMethod(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("invalid method %q: %w", name, err)
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}

func ParseLevel(s string) (slog.Level, error) {
	lvl, ok := allowedLogLevels[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
	return lvl, nil
}

// Load reads a YAML config on top of DefaultConfig. An empty path yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path) // #nosec G304 -- config path is operator-supplied.
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Logger builds the text handler used by the command line tools.
func (cfg Config) Logger(w io.Writer) *slog.Logger {
	lvl, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
