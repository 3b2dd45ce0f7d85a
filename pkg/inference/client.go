// Package inference sends conversation turns to the remote inference service
// and is responsible for never surfacing a hard failure: it retries with
// backoff, falls back from the chat-shaped endpoint to the completion-shaped
// one, and finally degrades to a locally selected canned reply.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parleylabs/parley/pkg/chat"
	"github.com/parleylabs/parley/pkg/config"
)

// attemptTimeout bounds a single remote call.
const attemptTimeout = 60 * time.Second

// Client is the retry/fallback inference client. It is stateless apart from
// the persona preamble; conversational continuity lives in the session store
// and the full history is resent on every call.
type Client struct {
	persona    string
	httpClient *http.Client
	logger     *zap.Logger

	// sleep and pick are swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) bool
	pick  func(n int) int
}

// NewClient creates a client with the given persona preamble.
func NewClient(persona string, logger *zap.Logger) *Client {
	return &Client{
		persona:    persona,
		httpClient: &http.Client{Timeout: attemptTimeout},
		logger:     logger,
		sleep:      sleepCtx,
		pick:       rand.IntN,
	}
}

// Complete resolves one conversational exchange to a non-empty reply. It
// never returns an error; the Reply's Source records how degraded the answer
// is. cfg is the runtime snapshot the whole exchange operates on.
func (c *Client) Complete(ctx context.Context, cfg *config.Runtime, history []chat.Turn, userMessage string) Reply {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	if reply, done := c.chatTier(ctx, cfg, attempts, history, userMessage); done {
		return reply
	}

	c.logger.Warn("chat tier exhausted, switching to completion tier",
		zap.String("endpoint", cfg.Endpoint),
		zap.Int("attempts", attempts),
	)

	if reply, done := c.generateTier(ctx, cfg, attempts, history, userMessage); done {
		return reply
	}

	c.logger.Error("all inference tiers exhausted, returning canned reply")
	return Reply{Text: c.canned(), Source: SourceCanned}
}

// chatTier posts the structured message list to the chat-shaped endpoint.
// A 403 on the first attempt switches to the alternate endpoint immediately,
// without a backoff sleep and without consuming the attempt.
func (c *Client) chatTier(ctx context.Context, cfg *config.Runtime, attempts int, history []chat.Turn, userMessage string) (Reply, bool) {
	body, err := json.Marshal(chatRequest{
		Model:    cfg.Model,
		Messages: c.buildMessages(history, userMessage),
		Stream:   false,
		Options:  options{Temperature: cfg.Temperature},
	})
	if err != nil {
		c.logger.Error("failed to encode chat request", zap.Error(err))
		return Reply{}, false
	}

	tctx, cancel := context.WithTimeout(ctx, tierBudget(attempts))
	defer cancel()

	for attempt := 0; attempt < attempts; attempt++ {
		out := c.postChat(tctx, cfg.Endpoint, body)

		if out.kind == outcomeDenied && attempt == 0 && cfg.AltEndpoint != "" {
			c.logger.Info("chat endpoint denied access, trying alternate",
				zap.String("alt_endpoint", cfg.AltEndpoint),
			)
			out = c.postChat(tctx, cfg.AltEndpoint, body)
		}

		switch out.kind {
		case outcomeOK:
			return Reply{Text: out.text, Source: SourcePrimary}, true
		case outcomeShape:
			c.logger.Error("unexpected response shape from chat endpoint",
				zap.String("endpoint", cfg.Endpoint),
			)
			return Reply{Text: apology, Source: SourceApology}, true
		}

		c.logger.Error("chat attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Int("status", out.status),
			zap.Error(out.err),
		)

		if attempt < attempts-1 && !c.sleep(tctx, backoffDelay(attempt)) {
			break
		}
	}

	return Reply{}, false
}

// generateTier posts a single rendered prompt blob to the completion-shaped
// endpoint derived from the chat URL. It runs its own retry loop with the
// same backoff policy but no 403 special case.
func (c *Client) generateTier(ctx context.Context, cfg *config.Runtime, attempts int, history []chat.Turn, userMessage string) (Reply, bool) {
	var prompt strings.Builder
	prompt.WriteString(c.persona)
	prompt.WriteString("\n\nConversation history:\n")
	prompt.WriteString(chat.RenderTranscript(history, cfg.UserLabel, cfg.AssistantLabel))
	prompt.WriteString("\n")
	prompt.WriteString(cfg.UserLabel)
	prompt.WriteString(": ")
	prompt.WriteString(userMessage)
	prompt.WriteString("\n")
	prompt.WriteString(cfg.AssistantLabel)
	prompt.WriteString(": ")

	body, err := json.Marshal(generateRequest{
		Model:   cfg.Model,
		Prompt:  prompt.String(),
		Stream:  false,
		Options: options{Temperature: cfg.Temperature},
	})
	if err != nil {
		c.logger.Error("failed to encode completion request", zap.Error(err))
		return Reply{}, false
	}

	url := generateURL(cfg.Endpoint)

	tctx, cancel := context.WithTimeout(ctx, tierBudget(attempts))
	defer cancel()

	for attempt := 0; attempt < attempts; attempt++ {
		out := c.postGenerate(tctx, url, body)

		switch out.kind {
		case outcomeOK:
			return Reply{Text: out.text, Source: SourceFallback}, true
		case outcomeShape:
			c.logger.Error("unexpected response shape from completion endpoint",
				zap.String("endpoint", url),
			)
			return Reply{Text: apology, Source: SourceApology}, true
		}

		c.logger.Error("completion attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Int("status", out.status),
			zap.Error(out.err),
		)

		if attempt < attempts-1 && !c.sleep(tctx, backoffDelay(attempt)) {
			break
		}
	}

	return Reply{}, false
}

// buildMessages assembles persona preamble, stored history, and the new user
// turn in the order the remote service expects.
func (c *Client) buildMessages(history []chat.Turn, userMessage string) []chat.Turn {
	messages := make([]chat.Turn, 0, len(history)+2)
	messages = append(messages, chat.NewTurn(chat.RoleSystem, c.persona))
	messages = append(messages, history...)
	messages = append(messages, chat.NewTurn(chat.RoleUser, userMessage))
	return messages
}

func (c *Client) postChat(ctx context.Context, url string, body []byte) outcome {
	status, data, err := c.post(ctx, url, body)
	if err != nil {
		return outcome{kind: outcomeTransient, err: err}
	}
	if status == http.StatusForbidden {
		return outcome{kind: outcomeDenied, status: status}
	}
	if status < 200 || status > 299 {
		return outcome{kind: outcomeTransient, status: status}
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil || resp.Message == nil || strings.TrimSpace(resp.Message.Content) == "" {
		return outcome{kind: outcomeShape, status: status, err: err}
	}
	return outcome{kind: outcomeOK, text: resp.Message.Content, status: status}
}

func (c *Client) postGenerate(ctx context.Context, url string, body []byte) outcome {
	status, data, err := c.post(ctx, url, body)
	if err != nil {
		return outcome{kind: outcomeTransient, err: err}
	}
	if status < 200 || status > 299 {
		return outcome{kind: outcomeTransient, status: status}
	}

	var resp generateResponse
	if err := json.Unmarshal(data, &resp); err != nil || resp.Response == nil || strings.TrimSpace(*resp.Response) == "" {
		return outcome{kind: outcomeShape, status: status, err: err}
	}
	return outcome{kind: outcomeOK, text: *resp.Response, status: status}
}

func (c *Client) post(ctx context.Context, url string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func (c *Client) canned() string {
	if len(cannedReplies) == 0 {
		return exhaustedApology
	}
	return cannedReplies[c.pick(len(cannedReplies))]
}

// generateURL derives the completion endpoint by substituting the chat path
// segment. URLs without the chat path pass through unchanged.
func generateURL(endpoint string) string {
	return strings.Replace(endpoint, "/api/chat", "/api/generate", 1)
}

// backoffDelay is the exponential backoff for the given zero-based attempt.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// tierBudget caps a tier's total latency: every attempt at its timeout plus
// all backoff sleeps, with a little slack.
func tierBudget(attempts int) time.Duration {
	backoff := time.Duration(0)
	for a := 0; a < attempts-1; a++ {
		backoff += backoffDelay(a)
	}
	return time.Duration(attempts)*attemptTimeout + backoff + 5*time.Second
}

// sleepCtx sleeps for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
