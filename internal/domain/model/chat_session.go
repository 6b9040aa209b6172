package model

import (
	"strings"
	"time"
)

// ChatSession is the in-memory state of one turn-based chat connection.
// It is owned by that connection and never shared.
type ChatSession struct {
	UserID         string
	ScenarioID     string
	ConversationID string
	RoundID        string
	Voice          string
	Provider       string
	Model          string
	MaxTokens      int
	StartedAt      time.Time

	history strings.Builder
	turns   int
}

func NewChatSession(userID, scenarioID, conversationID, roundID, prompt string) *ChatSession {
	s := &ChatSession{
		UserID:         userID,
		ScenarioID:     scenarioID,
		ConversationID: conversationID,
		RoundID:        roundID,
		StartedAt:      time.Now(),
	}
	s.history.WriteString(prompt)
	return s
}

// Prompt is the transcript as it would read once the user says text. The session is not changed.
func (s *ChatSession) Prompt(text string) string {
	return s.history.String() + "User: " + text + "\n"
}

func (s *ChatSession) AddUser(text string) {
	s.history.WriteString("User: ")
	s.history.WriteString(text)
	s.history.WriteString("\n")
}

func (s *ChatSession) AddAssistant(text string) {
	s.history.WriteString("Assistant: ")
	s.history.WriteString(text)
	s.history.WriteString("\n")
	s.turns++
}

// Transcript is the whole rolling history, prompt included.
func (s *ChatSession) Transcript() string { return s.history.String() }

func (s *ChatSession) Turns() int { return s.turns }

// ElapsedSeconds is the whole-second length of the session at now.
func (s *ChatSession) ElapsedSeconds(now time.Time) int {
	d := now.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
