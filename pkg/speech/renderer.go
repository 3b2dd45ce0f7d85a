// Package speech turns finished text replies into audio. It normalizes
// markup the engine would vocalize, talks to the synthesis engine, and runs
// synthesis on a bounded worker pool off the text reply path.
package speech

import (
	"context"

	"go.uber.org/zap"

	"github.com/parleylabs/parley/pkg/config"
)

// minAudioBytes is the smallest payload accepted as a real synthesis result.
// Anything smaller is treated as engine failure rather than a corrupt artifact.
const minAudioBytes = 256

// VoiceOptions parameterize one synthesis call.
type VoiceOptions struct {
	Voice  string
	Rate   string
	Volume string
}

// Voice describes one entry of the engine's voice catalog.
type Voice struct {
	Name   string `json:"name"`
	Gender string `json:"gender"`
	Locale string `json:"locale"`
}

// Engine is the speech synthesis backend.
type Engine interface {
	Synthesize(ctx context.Context, text string, opts VoiceOptions) ([]byte, error)
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Renderer converts reply text into audio bytes. All failures collapse to a
// nil result; the caller decides whether to degrade to text-only.
type Renderer struct {
	engine Engine
	logger *zap.Logger
}

// NewRenderer creates a renderer over the given engine.
func NewRenderer(engine Engine, logger *zap.Logger) *Renderer {
	return &Renderer{engine: engine, logger: logger}
}

// Synthesize normalizes text and renders it with the snapshot's voice, rate,
// and volume. It returns nil on engine failure or an implausibly small payload.
func (r *Renderer) Synthesize(ctx context.Context, cfg *config.Runtime, text string) []byte {
	cleaned := Normalize(text)

	data, err := r.engine.Synthesize(ctx, cleaned, VoiceOptions{
		Voice:  cfg.Voice,
		Rate:   cfg.Rate,
		Volume: cfg.Volume,
	})
	if err != nil {
		r.logger.Error("speech synthesis failed", zap.Error(err))
		return nil
	}
	if len(data) < minAudioBytes {
		r.logger.Warn("discarding implausibly small synthesis output",
			zap.Int("bytes", len(data)),
		)
		return nil
	}
	return data
}
