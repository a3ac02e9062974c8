package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender identifies the author of a chat message.
type Sender string

const (
	SenderUser Sender = "USER"
	SenderAI   Sender = "AI"
)

var (
	ErrEmptySessionID      = errors.New("chat session ID cannot be empty")
	ErrEmptyMessage        = errors.New("chat message cannot be empty")
	ErrMessageTooLong      = errors.New("chat message must be at most 4000 characters")
	ErrInvalidSender       = errors.New("invalid chat sender")
	ErrEmptySessionProject = errors.New("chat session project ID cannot be empty")
	ErrInvalidReply        = errors.New("only AI messages can reply to a message")
)

const maxChatMessageLength = 4000

// ChatSession is the single conversation attached to a project.
type ChatSession struct {
	ID        uuid.UUID     `json:"id"`
	ProjectID uuid.UUID     `json:"project_id"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewChatSession creates a session for projectID.
func NewChatSession(projectID uuid.UUID) (*ChatSession, error) {
	if projectID == uuid.Nil {
		return nil, ErrEmptySessionProject
	}
	now := time.Now().UTC()
	return &ChatSession{
		ID:        uuid.New(),
		ProjectID: projectID,
		Messages:  []ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ChatMessage is one turn in a chat session.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Sender    Sender    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"timestamp"`

	// ReplyTo is the USER message an AI message answers.
	ReplyTo *uuid.UUID `json:"-"`
}

// ChatThread is one question with the conversation that preceded it.
type ChatThread struct {
	Question ChatMessage
	History  []ChatMessage
	Answered bool
}

// NewChatMessage creates a message in sessionID.
func NewChatMessage(sessionID uuid.UUID, sender Sender, text string) (*ChatMessage, error) {
	m := &ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Sender:    sender,
		Message:   strings.TrimSpace(text),
		CreatedAt: time.Now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewChatReply creates an AI message answering the message questionID.
func NewChatReply(sessionID, questionID uuid.UUID, text string) (*ChatMessage, error) {
	m, err := NewChatMessage(sessionID, SenderAI, text)
	if err != nil {
		return nil, err
	}
	m.ReplyTo = &questionID
	return m, nil
}

// Validate checks if the ChatMessage has valid data.
func (m *ChatMessage) Validate() error {
	if m.SessionID == uuid.Nil {
		return ErrEmptySessionID
	}
	if m.Sender != SenderUser && m.Sender != SenderAI {
		return ErrInvalidSender
	}
	if m.Message == "" {
		return ErrEmptyMessage
	}
	if m.ReplyTo != nil && m.Sender != SenderAI {
		return ErrInvalidReply
	}
	// AI replies are not bounded by the client limit.
	if m.Sender == SenderUser && len(m.Message) > maxChatMessageLength {
		return ErrMessageTooLong
	}
	return nil
}
