package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/haivivi/callbridge/pkg/acceptor"
	"github.com/haivivi/callbridge/pkg/bridge"
	"github.com/haivivi/callbridge/pkg/kv"
	"github.com/haivivi/callbridge/pkg/profile"
	"github.com/haivivi/callbridge/pkg/realtime"
	"github.com/haivivi/callbridge/pkg/storage"
	"github.com/haivivi/callbridge/pkg/tracker"
)

// profilesDir is the directory inside the profile storage holding one
// document per agent.
const profilesDir = "agents"

// ErrNoTracker is returned by OpenStore when tracking is disabled.
var ErrNoTracker = errors.New("config: call tracking is disabled")

// OpenProfiles returns the profile store described by c.Profiles.
func (c *Config) OpenProfiles() (*profile.FileStore, error) {
	var fs storage.FileStore
	switch c.Profiles.Backend {
	case BackendS3:
		client := storage.NewS3Client(storage.S3Options{
			Region:    c.Profiles.Region,
			Endpoint:  c.Profiles.Endpoint,
			AccessKey: c.Profiles.AccessKey,
			SecretKey: c.Profiles.SecretKey,
			PathStyle: c.Profiles.PathStyle,
		})
		fs = storage.NewS3(client, c.Profiles.Bucket, c.Profiles.Prefix)
	default:
		local, err := storage.NewLocal(c.Profiles.Dir)
		if err != nil {
			return nil, fmt.Errorf("config: profiles: %w", err)
		}
		fs = local
	}
	return profile.NewFileStore(fs, profilesDir), nil
}

// OpenStore opens the key-value store behind the tracker. The caller must
// close it.
func (c *Config) OpenStore(logger *slog.Logger) (kv.Store, error) {
	opts := &kv.Options{TTL: c.Tracker.TTL.Duration()}
	switch c.Tracker.Backend {
	case BackendNone:
		return nil, ErrNoTracker
	case BackendMemory:
		return kv.NewMemory(opts), nil
	}
	db, err := kv.NewBadger(kv.BadgerOptions{Options: opts, Dir: c.Tracker.Dir, Logger: logger})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// RealtimeClient builds the model client. It fails without an API key.
func (c *Config) RealtimeClient() (*realtime.Client, error) {
	if c.Model.APIKey == "" {
		return nil, errors.New("config: model.api_key or OPENAI_API_KEY is required")
	}
	opts := []realtime.Option{
		realtime.WithModel(c.Model.Name),
	}
	if c.Model.URL != "" {
		opts = append(opts, realtime.WithWebSocketURL(c.Model.URL))
	}
	if c.Model.Organization != "" {
		opts = append(opts, realtime.WithOrganization(c.Model.Organization))
	}
	if c.Model.Project != "" {
		opts = append(opts, realtime.WithProject(c.Model.Project))
	}
	return realtime.NewClient(c.Model.APIKey, opts...), nil
}

// BridgeConfig returns the per-call settings.
func (c *Config) BridgeConfig(rec tracker.Recorder, logger *slog.Logger) bridge.Config {
	return bridge.Config{
		DefaultVoice:       c.Model.DefaultVoice,
		VADThreshold:       c.Model.VADThreshold,
		PrefixPaddingMs:    c.Model.PrefixPaddingMs,
		SilenceDurationMs:  c.Model.SilenceDurationMs,
		ReadyTimeout:       c.Model.ReadyTimeout.Duration(),
		TranscriptionModel: c.Model.TranscriptionModel,
		Recorder:           rec,
		Logger:             logger,
	}
}

// AcceptorConfig assembles the acceptor from already opened collaborators.
func (c *Config) AcceptorConfig(profiles profile.Store, dialer bridge.ModelDialer, rec tracker.Recorder, logger *slog.Logger) acceptor.Config {
	return acceptor.Config{
		Profiles:    profiles,
		Dialer:      dialer,
		Bridge:      c.BridgeConfig(rec, logger),
		Provider:    c.Profiles.Provider,
		PublicURL:   c.PublicURL,
		AcceptRate:  c.Limits.AcceptRate,
		AcceptBurst: c.Limits.AcceptBurst,
		MaxSessions: c.Limits.MaxSessions,
		Logger:      logger,
	}
}
