package config

import "sync/atomic"

// Holder is the single authoritative owner of the runtime configuration.
// Readers load a complete immutable snapshot; updates build a patched copy
// and swap it in atomically. Concurrent updates are last-write-wins.
type Holder struct {
	cur atomic.Pointer[Runtime]
}

// NewHolder creates a holder seeded with the given runtime configuration.
func NewHolder(r Runtime) *Holder {
	h := &Holder{}
	h.cur.Store(&r)
	return h
}

// Snapshot returns the current runtime configuration. The returned value
// must be treated as read-only.
func (h *Holder) Snapshot() *Runtime {
	return h.cur.Load()
}

// Apply patches the current snapshot with every non-nil field of p and
// publishes the result. It returns the new snapshot.
func (h *Holder) Apply(p Patch) *Runtime {
	next := *h.cur.Load()

	if p.Endpoint != nil {
		next.Endpoint = *p.Endpoint
	}
	if p.AltEndpoint != nil {
		next.AltEndpoint = *p.AltEndpoint
	}
	if p.Model != nil {
		next.Model = *p.Model
	}
	if p.Temperature != nil {
		next.Temperature = *p.Temperature
	}
	if p.MaxAttempts != nil {
		next.MaxAttempts = *p.MaxAttempts
	}
	if p.UserLabel != nil {
		next.UserLabel = *p.UserLabel
	}
	if p.AssistantLabel != nil {
		next.AssistantLabel = *p.AssistantLabel
	}
	if p.Voice != nil {
		next.Voice = *p.Voice
	}
	if p.Rate != nil {
		next.Rate = *p.Rate
	}
	if p.Volume != nil {
		next.Volume = *p.Volume
	}

	h.cur.Store(&next)
	return &next
}
