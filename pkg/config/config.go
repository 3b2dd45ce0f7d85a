// Package config holds parley's configuration: static settings read once at
// startup via viper, and runtime settings that the config endpoint may change
// while the process is serving. Runtime settings are published as immutable
// snapshots through a Holder so readers never observe a torn update.
package config

import "time"

// Static holds process-lifetime settings. They are resolved once in the serve
// command and never change afterwards.
type Static struct {
	// ListenAddr is the address the HTTP server listens on (e.g. ":8080").
	ListenAddr string

	// Persona is the instruction preamble injected as the leading system
	// message on every inference call. It is configuration, not history.
	Persona string

	// PoolWorkers and PoolQueueSize bound the speech synthesis worker pool.
	PoolWorkers   uint
	PoolQueueSize uint

	// ArtifactDir is where synthesized audio is written. Empty selects the
	// in-memory artifact driver.
	ArtifactDir string

	// ReapInterval is how often the artifact reaper sweeps.
	ReapInterval time.Duration

	// Retention is how long an artifact stays retrievable after creation.
	Retention time.Duration

	// VoicePrefixes filters the voice catalog when the caller supplies no
	// locale filter (e.g. ["es-MX", "es-ES"]).
	VoicePrefixes []string
}

// Runtime holds the settings that are mutable at runtime. The inference
// client and the speech renderer read a fresh snapshot on every call.
type Runtime struct {
	// Endpoint is the primary chat-shaped inference URL.
	Endpoint string `json:"endpoint"`

	// AltEndpoint is tried immediately when the primary returns 403 on the
	// first attempt (typically a local deployment of the same service).
	AltEndpoint string `json:"alt_endpoint"`

	// Model is the inference model identifier.
	Model string `json:"model"`

	// Temperature is the sampling temperature sent with every request.
	Temperature float64 `json:"temperature"`

	// MaxAttempts bounds the retry loop of each fallback tier.
	MaxAttempts int `json:"max_attempts"`

	// UserLabel and AssistantLabel rewrite role tags when the history is
	// rendered as a transcript for the completion-shaped fallback tier.
	UserLabel      string `json:"user_label"`
	AssistantLabel string `json:"assistant_label"`

	// Voice, Rate, and Volume parameterize speech synthesis.
	Voice  string `json:"voice"`
	Rate   string `json:"rate"`
	Volume string `json:"volume"`
}

// Patch is a partial runtime update. Nil fields leave the current value
// unchanged.
type Patch struct {
	Endpoint       *string  `json:"endpoint,omitempty"`
	AltEndpoint    *string  `json:"alt_endpoint,omitempty"`
	Model          *string  `json:"model,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	MaxAttempts    *int     `json:"max_attempts,omitempty"`
	UserLabel      *string  `json:"user_label,omitempty"`
	AssistantLabel *string  `json:"assistant_label,omitempty"`
	Voice          *string  `json:"voice,omitempty"`
	Rate           *string  `json:"rate,omitempty"`
	Volume         *string  `json:"volume,omitempty"`
}
