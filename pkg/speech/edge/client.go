// Package edge implements the speech.Engine interface against an Edge-TTS
// compatible synthesis service: one websocket dial per request, an SSML
// message carrying voice, rate, and volume, and binary audio frames
// accumulated until the service signals the end of the turn.
package edge

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/parleylabs/parley/pkg/speech"
)

const (
	defaultWSEndpoint     = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	defaultVoicesEndpoint = "https://speech.platform.bing.com/consumer/speech/synthesize/readaloud/voices/list"
	defaultToken          = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"

	outputFormat = "audio-24khz-48kbitrate-mono-mp3"

	// readDeadline bounds one synthesis conversation when the caller's
	// context carries no deadline of its own.
	readDeadline = 2 * time.Minute
)

// Config holds configuration for the Edge TTS client. Zero values select the
// public service endpoints; tests point both at local stubs.
type Config struct {
	WSEndpoint     string `json:"ws_endpoint"`
	VoicesEndpoint string `json:"voices_endpoint"`
	Token          string `json:"token"`
}

// Client speaks the Edge TTS websocket protocol.
type Client struct {
	config     Config
	dialer     *websocket.Dialer
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an Edge TTS client with the provided config.
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.WSEndpoint == "" {
		config.WSEndpoint = defaultWSEndpoint
	}
	if config.VoicesEndpoint == "" {
		config.VoicesEndpoint = defaultVoicesEndpoint
	}
	if config.Token == "" {
		config.Token = defaultToken
	}

	return &Client{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Synthesize renders text with the given voice options and returns the raw
// audio payload. The text must already be normalized for vocalization.
func (c *Client) Synthesize(ctx context.Context, text string, opts speech.VoiceOptions) ([]byte, error) {
	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")

	conn, _, err := c.dialer.DialContext(ctx, c.dialURL(requestID), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing speech service: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(readDeadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting read deadline: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, speechConfigMessage()); err != nil {
		return nil, fmt.Errorf("sending speech config: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, ssmlMessage(requestID, text, opts)); err != nil {
		return nil, fmt.Errorf("sending ssml: %w", err)
	}

	var audio []byte
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("reading speech frame: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				return audio, nil
			}
		case websocket.BinaryMessage:
			payload, err := audioPayload(data)
			if err != nil {
				c.logger.Warn("skipping malformed audio frame", zap.Error(err))
				continue
			}
			audio = append(audio, payload...)
		}
	}
}

// ListVoices fetches the service's voice catalog.
func (c *Client) ListVoices(ctx context.Context) ([]speech.Voice, error) {
	url := fmt.Sprintf("%s?trustedclienttoken=%s", c.config.VoicesEndpoint, c.config.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching voice catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voice catalog returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading voice catalog: %w", err)
	}

	var raw []struct {
		ShortName string `json:"ShortName"`
		Gender    string `json:"Gender"`
		Locale    string `json:"Locale"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding voice catalog: %w", err)
	}

	voices := make([]speech.Voice, 0, len(raw))
	for _, v := range raw {
		voices = append(voices, speech.Voice{
			Name:   v.ShortName,
			Gender: v.Gender,
			Locale: v.Locale,
		})
	}
	return voices, nil
}

func (c *Client) dialURL(requestID string) string {
	return fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s",
		c.config.WSEndpoint, c.config.Token, requestID)
}

func speechConfigMessage() []byte {
	const body = `{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"` + outputFormat + `"}}}}`
	return []byte("X-Timestamp:" + wireTimestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" + body)
}

func ssmlMessage(requestID, text string, opts speech.VoiceOptions) []byte {
	ssml := fmt.Sprintf(
		"<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>"+
			"<voice name='%s'><prosody pitch='+0Hz' rate='%s' volume='%s'>%s</prosody></voice></speak>",
		opts.Voice, opts.Rate, opts.Volume, escapeText(text),
	)
	return []byte("X-RequestId:" + requestID + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + wireTimestamp() + "\r\n" +
		"Path:ssml\r\n\r\n" + ssml)
}

// audioPayload splits a binary frame into its header and audio payload.
// Frames start with a two-byte big-endian header length.
func audioPayload(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	headerLen := int(binary.BigEndian.Uint16(data[:2]))
	if len(data) < 2+headerLen {
		return nil, fmt.Errorf("frame shorter than declared header: %d < %d", len(data)-2, headerLen)
	}
	header := string(data[2 : 2+headerLen])
	if !strings.Contains(header, "Path:audio") {
		return nil, nil
	}
	return data[2+headerLen:], nil
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escapeText(text string) string {
	return textEscaper.Replace(text)
}

func wireTimestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}
