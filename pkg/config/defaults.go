package config

import "time"

const (
	defaultListen      = ":8080"
	defaultEndpoint    = "http://localhost:11434/api/chat"
	defaultAltEndpoint = "http://127.0.0.1:11434/api/chat"
	defaultModel       = "llama3:8b"
	defaultTemperature = 0.7
	defaultMaxAttempts = 3

	defaultUserLabel      = "Executive"
	defaultAssistantLabel = "Advisor"

	defaultVoice  = "es-MX-JorgeNeural"
	defaultRate   = "+0%"
	defaultVolume = "+0%"

	defaultPoolWorkers   uint = 3
	defaultPoolQueueSize uint = 16

	defaultReapInterval = 10 * time.Minute
	defaultRetention    = time.Hour
)

// defaultPersona is the assistant preamble used when no persona is configured.
// Deployments are expected to replace it; the relay treats it as an opaque
// string.
const defaultPersona = `You are a calm, pragmatic executive strategy advisor.
You help the caller weigh strategic decisions with structured, data-grounded
analysis and clear, jargon-free language. Offer measurable options (incremental,
disruptive, long-term) and avoid hedging words. Do not use asterisks for
emphasis; they do not survive speech synthesis.`

// NewDefaultStatic returns the static settings all sources default to.
// This is the single source of truth for default values.
func NewDefaultStatic() Static {
	return Static{
		ListenAddr:    defaultListen,
		Persona:       defaultPersona,
		PoolWorkers:   defaultPoolWorkers,
		PoolQueueSize: defaultPoolQueueSize,
		ReapInterval:  defaultReapInterval,
		Retention:     defaultRetention,
		VoicePrefixes: []string{"es-MX", "es-ES"},
	}
}

// NewDefaultRuntime returns the runtime settings all sources default to.
func NewDefaultRuntime() Runtime {
	return Runtime{
		Endpoint:       defaultEndpoint,
		AltEndpoint:    defaultAltEndpoint,
		Model:          defaultModel,
		Temperature:    defaultTemperature,
		MaxAttempts:    defaultMaxAttempts,
		UserLabel:      defaultUserLabel,
		AssistantLabel: defaultAssistantLabel,
		Voice:          defaultVoice,
		Rate:           defaultRate,
		Volume:         defaultVolume,
	}
}
