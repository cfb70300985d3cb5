package models

import (
	"time"
)

// Sender identifies who produced a turn
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Turn is one message unit in the transcript. Turns are appended and never
// mutated afterwards.
type Turn struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserTurn creates a turn attributed to the user
func NewUserTurn(text string) Turn {
	return Turn{Sender: SenderUser, Text: text, CreatedAt: time.Now()}
}

// NewAssistantTurn creates a turn attributed to the assistant
func NewAssistantTurn(text string) Turn {
	return Turn{Sender: SenderAssistant, Text: text, CreatedAt: time.Now()}
}

// CSSClass returns the transcript class used by the widget page
func (t Turn) CSSClass() string {
	if t.Sender == SenderUser {
		return "user-message"
	}
	return "ai-message"
}
