package inference

import "github.com/parleylabs/parley/pkg/chat"

// Wire shapes for the two request forms the remote service may expose.
// The chat shape posts the structured message list; the completion shape
// posts a single rendered prompt blob.

type chatRequest struct {
	Model    string      `json:"model"`
	Messages []chat.Turn `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  options     `json:"options"`
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type options struct {
	Temperature float64 `json:"temperature"`
}

// chatResponse carries the chat-shaped reply. Message stays a pointer so a
// 2xx body without the expected field is distinguishable from an empty reply.
type chatResponse struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
}

type generateResponse struct {
	Response *string `json:"response"`
}
