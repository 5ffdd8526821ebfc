// Package config loads the callbridge configuration file.
//
// The file is YAML, by default ~/.callbridge/config.yaml:
//
//	listen: ":8080"
//	public_url: wss://bridge.example.com
//	log:
//	  level: info
//	  format: text
//	model:
//	  api_key: sk-...            # or OPENAI_API_KEY
//	  name: gpt-4o-realtime-preview
//	  default_voice: alloy
//	  ready_timeout: 10s
//	profiles:
//	  backend: local             # local | s3
//	  dir: ~/.callbridge/data/profiles
//	tracker:
//	  backend: badger            # memory | badger | none
//	  dir: ~/.callbridge/data/tracker
//	limits:
//	  accept_rate: 5
//	  max_sessions: 100
//
// A missing file yields the defaults. Environment variables override
// secrets: OPENAI_API_KEY, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/callbridge/pkg/cli"
	"github.com/haivivi/callbridge/pkg/jsontime"
	"github.com/haivivi/callbridge/pkg/profile"
	"github.com/haivivi/callbridge/pkg/realtime"
)

// Backends.
const (
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendNone   = "none"
)

// Config is the whole configuration file.
type Config struct {
	Listen    string   `yaml:"listen"`
	PublicURL string   `yaml:"public_url,omitempty"`
	Log       Log      `yaml:"log"`
	Model     Model    `yaml:"model"`
	Profiles  Profiles `yaml:"profiles"`
	Tracker   Tracker  `yaml:"tracker"`
	Limits    Limits   `yaml:"limits"`

	// Path is the file the config was loaded from.
	Path string `yaml:"-"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Model configures the realtime model leg.
type Model struct {
	URL                string            `yaml:"url,omitempty"`
	Name               string            `yaml:"name"`
	APIKey             string            `yaml:"api_key,omitempty"`
	Organization       string            `yaml:"organization,omitempty"`
	Project            string            `yaml:"project,omitempty"`
	DefaultVoice       string            `yaml:"default_voice"`
	VADThreshold       float64           `yaml:"vad_threshold"`
	PrefixPaddingMs    int               `yaml:"prefix_padding_ms"`
	SilenceDurationMs  int               `yaml:"silence_duration_ms"`
	ReadyTimeout       jsontime.Duration `yaml:"ready_timeout"`
	TranscriptionModel string            `yaml:"transcription_model,omitempty"`
}

// Profiles configures where agent profiles are stored.
type Profiles struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`

	// Provider is the only profile provider served.
	Provider string `yaml:"provider"`

	// S3 backend.
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

// Tracker configures call record persistence.
type Tracker struct {
	Backend string            `yaml:"backend"`
	Dir     string            `yaml:"dir,omitempty"`
	Timeout jsontime.Duration `yaml:"timeout"`
	TTL     jsontime.Duration `yaml:"ttl,omitempty"`
}

// Limits configures admission control.
type Limits struct {
	AcceptRate  float64 `yaml:"accept_rate"`
	AcceptBurst int     `yaml:"accept_burst"`
	MaxSessions int     `yaml:"max_sessions"`
}

// Default returns the configuration used when no file exists.
func Default(paths *cli.Paths) *Config {
	return &Config{
		Listen: ":8080",
		Log:    Log{Level: "info", Format: "text"},
		Model: Model{
			Name:              realtime.ModelGPT4oRealtimePreview,
			DefaultVoice:      realtime.VoiceAlloy,
			VADThreshold:      0.5,
			PrefixPaddingMs:   300,
			SilenceDurationMs: 500,
			ReadyTimeout:      jsontime.Duration(10 * time.Second),
		},
		Profiles: Profiles{
			Backend:  BackendLocal,
			Dir:      paths.DataPath("profiles"),
			Provider: profile.ProviderOpenAI,
		},
		Tracker: Tracker{
			Backend: BackendBadger,
			Dir:     paths.DataPath("tracker"),
			Timeout: jsontime.Duration(5 * time.Second),
		},
		Limits: Limits{AcceptBurst: 1},
	}
}

// Load reads path, or the default location when path is empty, over the
// defaults and applies environment overrides.
func Load(path string) (*Config, error) {
	paths, err := cli.NewPaths()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if path == "" {
		path = paths.ConfigFile()
	}

	cfg := Default(paths)
	cfg.Path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.Profiles.Dir = expandHome(cfg.Profiles.Dir, paths.HomeDir)
	cfg.Tracker.Dir = expandHome(cfg.Tracker.Dir, paths.HomeDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	if v := getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.Profiles.AccessKey = v
	}
	if v := getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Profiles.SecretKey = v
	}
}

func expandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return p
}

// Validate checks settings that do not depend on the command being run.
func (c *Config) Validate() error {
	switch c.Profiles.Backend {
	case BackendLocal:
		if c.Profiles.Dir == "" {
			return errors.New("config: profiles.dir is required for the local backend")
		}
	case BackendS3:
		if c.Profiles.Bucket == "" {
			return errors.New("config: profiles.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("config: unknown profiles.backend %q", c.Profiles.Backend)
	}

	switch c.Tracker.Backend {
	case BackendMemory, BackendNone:
	case BackendBadger:
		if c.Tracker.Dir == "" {
			return errors.New("config: tracker.dir is required for the badger backend")
		}
	default:
		return fmt.Errorf("config: unknown tracker.backend %q", c.Tracker.Backend)
	}

	if c.Limits.AcceptRate < 0 || c.Limits.MaxSessions < 0 {
		return errors.New("config: limits must not be negative")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Log.Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return lvl, nil
}
