package inference

// outcomeKind classifies one attempt against the remote service. The retry
// loop branches on this tag instead of threading errors across tiers.
type outcomeKind int

const (
	// outcomeOK carries a usable reply.
	outcomeOK outcomeKind = iota

	// outcomeShape is a 2xx response missing the expected reply field.
	// Not retried; the caller degrades to the apology string.
	outcomeShape

	// outcomeTransient is a network failure, timeout, or a 4xx/5xx other
	// than the special-cased 403. Retried with backoff.
	outcomeTransient

	// outcomeDenied is a 403. On the first attempt of the chat tier it
	// triggers an immediate switch to the alternate endpoint without
	// consuming the attempt.
	outcomeDenied
)

type outcome struct {
	kind   outcomeKind
	text   string
	status int
	err    error
}

// Source records which tier produced a reply.
type Source string

const (
	// SourcePrimary is the chat-shaped endpoint.
	SourcePrimary Source = "primary"

	// SourceFallback is the completion-shaped endpoint.
	SourceFallback Source = "fallback"

	// SourceApology is the fixed soft-failure string for an unrecognizable
	// remote response.
	SourceApology Source = "apology"

	// SourceCanned is a locally selected reply after both tiers exhaust.
	SourceCanned Source = "canned"
)

// Reply is the result of Complete. Text is always non-empty; Source tells the
// orchestrator how degraded the answer is.
type Reply struct {
	Text   string
	Source Source
}
