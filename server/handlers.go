package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parleylabs/parley/pkg/artifact"
	"github.com/parleylabs/parley/pkg/chat"
	"github.com/parleylabs/parley/pkg/config"
	"github.com/parleylabs/parley/pkg/inference"
	"github.com/parleylabs/parley/pkg/speech"
	"github.com/parleylabs/parley/pkg/utils"
)

// ErrorResponse is the JSON error payload. Reply and SessionID are set when a
// text answer exists despite the failure, so callers can degrade gracefully.
type ErrorResponse struct {
	Error     string `json:"error"`
	Reply     string `json:"reply,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatRequest is the body of /chat and /speak.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Speak     bool   `json:"speak"`
}

// ChatResponse is the /chat reply payload.
type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
	AudioRef  string `json:"audio_ref,omitempty"`
}

// ResetRequest is the body of /reset.
type ResetRequest struct {
	SessionID string `json:"session_id"`
}

// VoicesResponse is the /voices reply payload.
type VoicesResponse struct {
	Voices       []speech.Voice `json:"voices"`
	CurrentVoice string         `json:"current_voice"`
}

// handleIndex lists the relay's endpoints.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "parley relay is running",
		"status":  "online",
		"endpoints": fiber.Map{
			"/chat":   "POST - send a message, receive the reply as text",
			"/speak":  "POST - send a message, receive the reply as audio",
			"/reset":  "POST - reset a conversation session",
			"/voices": "GET - list available voices",
			"/health": "GET - service status",
		},
	})
}

// handleChat runs one conversational exchange and returns the reply as text.
// With speak=true the reply is also rendered to audio and referenced by id;
// synthesis trouble degrades the response to text-only rather than failing it.
func (s *Server) handleChat(c *fiber.Ctx) error {
	req, errResp := parseChatRequest(c)
	if errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	sessionID, reply := s.exchange(c, req)

	resp := ChatResponse{Reply: reply, SessionID: sessionID}
	if req.Speak {
		if data := s.deps.Pool.Render(c.Context(), s.runtime.Snapshot(), reply); data != nil {
			resp.AudioRef = s.registerArtifact(data)
		}
	}
	return c.JSON(resp)
}

// handleSpeak runs one conversational exchange and returns the reply as audio
// bytes. When synthesis fails the text reply is still delivered, inside an
// error payload.
func (s *Server) handleSpeak(c *fiber.Ctx) error {
	req, errResp := parseChatRequest(c)
	if errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	sessionID, reply := s.exchange(c, req)

	data := s.deps.Pool.Render(c.Context(), s.runtime.Snapshot(), reply)
	if data == nil {
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:     "could not generate audio",
			Reply:     reply,
			SessionID: sessionID,
		})
	}

	if ref := s.registerArtifact(data); ref != "" {
		c.Set("X-Audio-Ref", ref)
	}
	c.Set(fiber.HeaderContentType, "audio/mpeg")
	return c.Send(data)
}

// exchange resolves the session id, then runs the load-call-append sequence
// inside the session's critical section. It always produces a reply.
func (s *Server) exchange(c *fiber.Ctx, req *ChatRequest) (string, string) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cfg := s.runtime.Snapshot()
	sess := s.deps.Sessions.GetOrCreate(sessionID)

	start := time.Now()
	var result inference.Reply
	reply, _ := sess.Exchange(req.Message, func(history []chat.Turn) (string, error) {
		result = s.deps.Inference.Complete(c.Context(), cfg, history, req.Message)
		return result.Text, nil
	})

	s.logger.Info("exchange completed",
		zap.String("session_id", sessionID),
		zap.String("source", string(result.Source)),
		zap.String("reply_preview", utils.Truncate(reply, 80)),
		zap.Duration("duration", time.Since(start)),
	)
	return sessionID, reply
}

func parseChatRequest(c *fiber.Ctx) (*ChatRequest, *ErrorResponse) {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, &ErrorResponse{Error: "invalid JSON body"}
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, &ErrorResponse{Error: "a 'message' field is required"}
	}
	return &req, nil
}

func (s *Server) registerArtifact(data []byte) string {
	id, err := s.deps.Artifacts.Put(data)
	if err != nil {
		s.logger.Error("failed to store audio artifact", zap.Error(err))
		return ""
	}
	return "/audio/" + id
}

// handleReset truncates a session's history. Unknown session ids get an empty
// session, so reset is idempotent and never errors.
func (s *Server) handleReset(c *fiber.Ctx) error {
	var req ResetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid JSON body"})
	}
	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "a 'session_id' field is required"})
	}

	s.deps.Sessions.Reset(req.SessionID)

	return c.JSON(fiber.Map{
		"message":    "session reset",
		"session_id": req.SessionID,
	})
}

// handleVoices returns the engine's voice catalog, filtered by the locale
// query prefix or the configured defaults.
func (s *Server) handleVoices(c *fiber.Ctx) error {
	voices, err := s.deps.Engine.ListVoices(c.Context())
	if err != nil {
		s.logger.Error("failed to list voices", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "could not list voices"})
	}

	prefixes := s.static.VoicePrefixes
	if locale := c.Query("locale"); locale != "" {
		prefixes = []string{locale}
	}

	filtered := make([]speech.Voice, 0, len(voices))
	for _, v := range voices {
		if matchesPrefix(v.Name, prefixes) {
			filtered = append(filtered, v)
		}
	}

	return c.JSON(VoicesResponse{
		Voices:       filtered,
		CurrentVoice: s.runtime.Snapshot().Voice,
	})
}

func matchesPrefix(name string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// handleAudio serves a stored artifact's bytes.
func (s *Server) handleAudio(c *fiber.Ctx) error {
	id := c.Params("id")

	data, err := s.deps.Artifacts.Get(id)
	if err != nil {
		var notFound artifact.ErrNotFound
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "audio not found"})
		}
		s.logger.Error("failed to read audio artifact",
			zap.String("artifact_id", id),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "could not read audio"})
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	return c.Send(data)
}

// handleHealth reports service status and the active model and voice.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	cfg := s.runtime.Snapshot()
	return c.JSON(fiber.Map{
		"status":   "ok",
		"model":    cfg.Model,
		"endpoint": cfg.Endpoint,
		"voice":    cfg.Voice,
		"sessions": s.deps.Sessions.Len(),
	})
}

// handleGetConfig returns the current runtime configuration snapshot.
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.runtime.Snapshot())
}

// handleSetConfig applies a partial runtime update and returns the new
// snapshot. The swap is atomic; concurrent readers see the old or the new
// configuration in full.
func (s *Server) handleSetConfig(c *fiber.Ctx) error {
	var patch config.Patch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid JSON body"})
	}
	return c.JSON(s.runtime.Apply(patch))
}
