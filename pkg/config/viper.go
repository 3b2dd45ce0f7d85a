package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultStatic/NewDefaultRuntime, reads an optional
// config.toml (from configDir when given, the working directory otherwise),
// and binds environment variables with the PARLEY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (bound by the serve command)
//  2. Environment variables (PARLEY_SERVER_LISTEN, PARLEY_INFERENCE_ENDPOINT, ...)
//  3. config.toml file values
//  4. Defaults
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else {
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("PARLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults using dotted-key notation so that
// defaults.go stays the single source of truth.
func setViperDefaults(v *viper.Viper) {
	s := NewDefaultStatic()
	r := NewDefaultRuntime()

	v.SetDefault("server.listen", s.ListenAddr)
	v.SetDefault("server.persona", s.Persona)

	v.SetDefault("inference.endpoint", r.Endpoint)
	v.SetDefault("inference.alt_endpoint", r.AltEndpoint)
	v.SetDefault("inference.model", r.Model)
	v.SetDefault("inference.temperature", r.Temperature)
	v.SetDefault("inference.max_attempts", r.MaxAttempts)
	v.SetDefault("inference.user_label", r.UserLabel)
	v.SetDefault("inference.assistant_label", r.AssistantLabel)

	v.SetDefault("speech.voice", r.Voice)
	v.SetDefault("speech.rate", r.Rate)
	v.SetDefault("speech.volume", r.Volume)
	v.SetDefault("speech.workers", s.PoolWorkers)
	v.SetDefault("speech.queue_size", s.PoolQueueSize)
	v.SetDefault("speech.voice_prefixes", s.VoicePrefixes)

	v.SetDefault("artifacts.dir", s.ArtifactDir)
	v.SetDefault("artifacts.reap_interval", s.ReapInterval)
	v.SetDefault("artifacts.retention", s.Retention)
}

// StaticFromViper extracts the static settings from a loaded viper instance.
func StaticFromViper(v *viper.Viper) Static {
	return Static{
		ListenAddr:    v.GetString("server.listen"),
		Persona:       v.GetString("server.persona"),
		PoolWorkers:   v.GetUint("speech.workers"),
		PoolQueueSize: v.GetUint("speech.queue_size"),
		ArtifactDir:   v.GetString("artifacts.dir"),
		ReapInterval:  v.GetDuration("artifacts.reap_interval"),
		Retention:     v.GetDuration("artifacts.retention"),
		VoicePrefixes: v.GetStringSlice("speech.voice_prefixes"),
	}
}

// RuntimeFromViper extracts the initial runtime settings from a loaded viper
// instance. The result seeds the Holder; later changes arrive via Patch.
func RuntimeFromViper(v *viper.Viper) Runtime {
	return Runtime{
		Endpoint:       v.GetString("inference.endpoint"),
		AltEndpoint:    v.GetString("inference.alt_endpoint"),
		Model:          v.GetString("inference.model"),
		Temperature:    v.GetFloat64("inference.temperature"),
		MaxAttempts:    v.GetInt("inference.max_attempts"),
		UserLabel:      v.GetString("inference.user_label"),
		AssistantLabel: v.GetString("inference.assistant_label"),
		Voice:          v.GetString("speech.voice"),
		Rate:           v.GetString("speech.rate"),
		Volume:         v.GetString("speech.volume"),
	}
}
