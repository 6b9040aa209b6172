package model

import "time"

type Side string

const (
	SideAI   Side = "AI"
	SideUser Side = "user"
)

type Entry struct {
	Side     Side   `json:"side"`
	Text     string `json:"text"`
	Emotions string `json:"emotions"`
}

type ConversationRound struct {
	RoundID    string  `json:"roundId"`
	Transcript []Entry `json:"transcript"`
}

// Stats are nil until the first scored turn.
type Stats struct {
	EmotionScore *int `json:"emotionScore,omitempty"`
	FluencyScore *int `json:"fluencyScore,omitempty"`
	WordingScore *int `json:"wordingScore,omitempty"`
}

func (s Stats) Scored() bool {
	return s.EmotionScore != nil && s.FluencyScore != nil && s.WordingScore != nil
}

func StatsFrom(sc Score) Stats {
	e, f, w := sc.Emotion, sc.Fluency, sc.Wording
	return Stats{EmotionScore: &e, FluencyScore: &f, WordingScore: &w}
}

// Conversation is the persisted record of one chat session.
type Conversation struct {
	ID         string              `json:"id"`
	UserID     string              `json:"user"`
	ScenarioID string              `json:"scenario"`
	Rounds     []ConversationRound `json:"rounds"`
	Stats      Stats               `json:"stats"`
	Length     int                 `json:"length"`
	CreatedAt  time.Time           `json:"createdAt"`
}

func NewConversation(userID, scenarioID, roundID string) *Conversation {
	return &Conversation{
		ID:         NewID(),
		UserID:     userID,
		ScenarioID: scenarioID,
		Rounds:     []ConversationRound{{RoundID: roundID, Transcript: []Entry{}}},
		CreatedAt:  time.Now().UTC(),
	}
}

// Turn is one user utterance and the reply it produced.
type Turn struct {
	User  string
	Reply string
}

func (t Turn) Entries() [2]Entry {
	return [2]Entry{
		{Side: SideUser, Text: t.User},
		{Side: SideAI, Text: t.Reply},
	}
}
