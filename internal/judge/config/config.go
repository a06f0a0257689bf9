// Package config loads judge settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/build-flow-labs/judge/internal/judge/score"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "judge.yaml"

const redacted = "********"

// Config holds every setting of the judge pipeline.
type Config struct {
	ReportsDir string `yaml:"reports_dir" env:"JUDGE_REPORTS_DIR" env-default:"reports" env-description:"root directory of per-team report bundles"`
	Repository string `yaml:"repository" env:"GITHUB_REPOSITORY" env-description:"owner/name of the hackathon repository"`
	Ref        string `yaml:"ref" env:"JUDGE_REF" env-default:"main" env-description:"branch used for source links"`
	Addr       string `yaml:"addr" env:"JUDGE_ADDR" env-default:":8080" env-description:"dashboard listen address"`
	LogLevel   string `yaml:"log_level" env:"JUDGE_LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`

	GitHubToken string `yaml:"github_token,omitempty" env:"GITHUB_TOKEN" env-description:"token used to post PR comments"`

	DashboardURL string `yaml:"dashboard_url,omitempty" env:"JUDGE_DASHBOARD_URL"`
	SonarURL     string `yaml:"sonar_url,omitempty" env:"JUDGE_SONAR_URL"`
	WorkflowURL  string `yaml:"workflow_url,omitempty" env:"JUDGE_WORKFLOW_URL"`

	Weights score.Weights `yaml:"weights"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ReportsDir: "reports",
		Ref:        "main",
		Addr:       ":8080",
		LogLevel:   "info",
		Weights:    score.DefaultWeights,
	}
}

// Load reads path when it exists, then applies environment overrides. An
// empty path falls back to DefaultFile; a missing default file is not an
// error, a missing explicit file is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if cfg.Weights.IsZero() {
		cfg.Weights = score.DefaultWeights
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ReportsDir) == "" {
		return errors.New("invalid config: reports_dir is empty")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.GitHubToken != "" {
		c.GitHubToken = redacted
	}
	return c
}

// Marshal encodes the redacted configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// WriteFile stores the configuration at path. The token is never written.
func (c Config) WriteFile(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	c.GitHubToken = ""
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Usage describes the environment variables understood by Load.
func Usage() (string, error) {
	var cfg Config
	header := "Environment variables:"
	return cleanenv.GetDescription(&cfg, &header)
}
