// Package config loads umlizer settings from .umlizer.yaml, .env and
// UMLIZER_* environment variables. Command-line flags are applied on top by
// the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"umlizer/internal/logger"
	"umlizer/internal/render"
	"umlizer/internal/scanner"
)

// FileName is looked up in the source root when no config path is given.
const FileName = ".umlizer.yaml"

type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the merged configuration for one invocation.
type Config struct {
	Output      string       `yaml:"output,omitempty"`
	Format      string       `yaml:"format"`
	Strict      bool         `yaml:"strict"`
	Include     []string     `yaml:"include,omitempty"`
	Exclude     []string     `yaml:"exclude,omitempty"`
	Languages   []string     `yaml:"languages,omitempty"`
	Gitignore   bool         `yaml:"gitignore"`
	MaxFileSize int64        `yaml:"max_file_size"`
	Engine      string       `yaml:"engine"`
	Cache       CacheConfig  `yaml:"cache"`
	Style       render.Style `yaml:"style"`
	Log         LogConfig    `yaml:"log"`

	// Source is the config file that was read, empty when none was found.
	Source string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Format:      string(render.FormatSVG),
		Exclude:     append([]string(nil), scanner.DefaultExclude...),
		Gitignore:   true,
		MaxFileSize: scanner.DefaultMaxFileSize,
		Engine:      render.DefaultEngine,
		Cache:       CacheConfig{Enabled: true},
		Style:       render.DefaultStyle(),
		Log:         LogConfig{Level: "warn", Format: "text"},
	}
}

// Load reads root/.env, then the config file at path (or root/.umlizer.yaml
// when path is empty), then UMLIZER_* overrides. A missing default file is
// not an error; a missing explicit path is.
func Load(root, path string) (*Config, error) {
	cfg := Default()

	dir := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		dir = filepath.Dir(root)
	}
	if dir != "" {
		if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load .env: %w", err)
		}
	}

	explicit := path != ""
	if !explicit && dir != "" {
		path = filepath.Join(dir, FileName)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
			cfg.Source = path
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := env("UMLIZER_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := env("UMLIZER_FORMAT"); v != "" {
		c.Format = v
	}
	if v := env("UMLIZER_ENGINE"); v != "" {
		c.Engine = v
	}
	if v := env("UMLIZER_CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}
	if v := env("UMLIZER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := env("UMLIZER_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	for name, dst := range map[string]*bool{
		"UMLIZER_STRICT":    &c.Strict,
		"UMLIZER_CACHE":     &c.Cache.Enabled,
		"UMLIZER_GITIGNORE": &c.Gitignore,
	} {
		v := env(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		*dst = b
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

// Validate reports the first setting no component would accept.
func (c *Config) Validate() error {
	if _, err := render.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.ScanLanguages(); err != nil {
		return err
	}
	if err := c.Style.Validate(); err != nil {
		return fmt.Errorf("config: style: %w", err)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q (want text or json)", c.Log.Format)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("config: max_file_size must not be negative")
	}
	return nil
}

// ScanLanguages converts the configured language names.
func (c *Config) ScanLanguages() ([]scanner.Language, error) {
	out := make([]scanner.Language, 0, len(c.Languages))
	for _, name := range c.Languages {
		lang, ok := scanner.ParseLanguage(name)
		if !ok {
			return nil, fmt.Errorf("config: unknown language %q", name)
		}
		out = append(out, lang)
	}
	return out, nil
}

// ScanOptions maps the config onto scanner options.
func (c *Config) ScanOptions() (scanner.Options, error) {
	langs, err := c.ScanLanguages()
	if err != nil {
		return scanner.Options{}, err
	}
	return scanner.Options{
		Include:     c.Include,
		Exclude:     c.Exclude,
		Languages:   langs,
		Strict:      c.Strict,
		Gitignore:   c.Gitignore,
		MaxFileSize: c.MaxFileSize,
	}, nil
}

// CachePath returns the configured cache database or the default location.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	return DefaultCachePath()
}

// LoggerConfig maps the log settings onto logger.Config.
func (c *Config) LoggerConfig() (logger.Config, error) {
	cfg := logger.DefaultConfig()
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return cfg, err
	}
	cfg.Level = level
	if c.Log.Format != "" {
		cfg.Format = c.Log.Format
	}
	return cfg, nil
}
