// Package chatstream talks to the retrieval-augmented chat backend: it sends
// one question per call and assembles the newline-delimited event stream
// returned by the backend into an answer.
package chatstream

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the running conversation. It encodes as a two-element
// JSON array: ["human", "text"].
type Turn struct {
	Role Role
	Text string
}

// MarshalJSON encodes the turn as [role, text].
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{string(t.Role), t.Text})
}

// UnmarshalJSON decodes a [role, text] pair.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return eris.Wrap(err, "chatstream: decode turn")
	}
	if len(pair) != 2 {
		return eris.Errorf("chatstream: turn has %d elements, want 2", len(pair))
	}
	t.Role = Role(pair[0])
	t.Text = pair[1]
	return nil
}

// ModelRef names a model offered by one provider.
type ModelRef struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Request is a single question sent to the chat backend.
type Request struct {
	Content            string
	MessageID          string
	ChatID             string
	History            []Turn
	FocusMode          string
	OptimizationMode   string
	ChatModel          ModelRef
	EmbeddingModel     ModelRef
	SystemInstructions string
}

type wireMessage struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
	Content   string `json:"content"`
}

type wireRequest struct {
	Content            string      `json:"content"`
	Message            wireMessage `json:"message"`
	ChatID             string      `json:"chatId"`
	Files              []string    `json:"files"`
	FocusMode          string      `json:"focusMode"`
	OptimizationMode   string      `json:"optimizationMode"`
	History            []Turn      `json:"history"`
	ChatModel          ModelRef    `json:"chatModel"`
	EmbeddingModel     ModelRef    `json:"embeddingModel"`
	SystemInstructions string      `json:"systemInstructions,omitempty"`
}

func (r Request) wire() wireRequest {
	history := r.History
	if history == nil {
		history = []Turn{}
	}
	return wireRequest{
		Content: r.Content,
		Message: wireMessage{
			MessageID: r.MessageID,
			ChatID:    r.ChatID,
			Content:   r.Content,
		},
		ChatID:             r.ChatID,
		Files:              []string{},
		FocusMode:          r.FocusMode,
		OptimizationMode:   r.OptimizationMode,
		History:            history,
		ChatModel:          r.ChatModel,
		EmbeddingModel:     r.EmbeddingModel,
		SystemInstructions: r.SystemInstructions,
	}
}

// EventType discriminates stream records.
type EventType string

const (
	EventError      EventType = "error"
	EventMessage    EventType = "message"
	EventMessageEnd EventType = "messageEnd"
)

// Event is one decoded stream record.
type Event struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
}

// Text returns the record payload as text. String payloads are unquoted;
// anything else is returned as raw JSON.
func (e Event) Text() string {
	if len(e.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		return s
	}
	return string(e.Data)
}
