package model

import (
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain"
)

type ScenarioStatus string

const (
	ScenarioEditing   ScenarioStatus = "editing"
	ScenarioPublished ScenarioStatus = "published"
	ScenarioArchived  ScenarioStatus = "archived"
	ScenarioDeleted   ScenarioStatus = "deleted"
)

func (s ScenarioStatus) Valid() bool {
	switch s {
	case ScenarioEditing, ScenarioPublished, ScenarioArchived, ScenarioDeleted:
		return true
	}
	return false
}

type Category string

const (
	CategoryBusiness       Category = "business"
	CategoryEducation      Category = "education"
	CategoryRelationships  Category = "relationships"
	CategoryFamily         Category = "family"
	CategoryDates          Category = "dates"
	CategoryPublicSpeaking Category = "public speaking"
)

type ScenarioAI struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Round struct {
	ID                   string   `json:"id"`
	Prompt               string   `json:"prompt,omitempty"`
	ExpectedResponseType string   `json:"expectedResponseType,omitempty"`
	Emotion              string   `json:"emotion,omitempty"`
	UserEmotionTarget    string   `json:"userEmotionTarget,omitempty"`
	Tips                 []string `json:"tips,omitempty"`
	KeywordsRequired     []string `json:"keywordsRequired,omitempty"`
	KeywordsBanned       []string `json:"keywordsBanned,omitempty"`
}

// Scenario is an author-owned roleplay exercise. Persona is only populated by
// lookups that expand the reference.
type Scenario struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Subtitle      string         `json:"subtitle,omitempty"`
	Description   string         `json:"description,omitempty"`
	Category      Category       `json:"category"`
	Tags          []string       `json:"tags"`
	Languages     []string       `json:"languages"`
	Public        bool           `json:"public"`
	Status        ScenarioStatus `json:"status"`
	CreatedBy     string         `json:"createdBy"`
	CreatedAt     time.Time      `json:"createdAt"`
	LastUpdatedAt *time.Time     `json:"lastUpdatedAt,omitempty"`
	Objectives    []string       `json:"objectives"`
	PersonaID     string         `json:"persona,omitempty"`
	OpeningPrompt string         `json:"openingPrompt,omitempty"`
	ClosingPrompt string         `json:"closingPrompt,omitempty"`
	AI            ScenarioAI     `json:"ai"`
	Rounds        []Round        `json:"rounds"`

	Persona *Persona `json:"-"`
}

type ScenarioInput struct {
	Title         string
	Subtitle      string
	Description   string
	Category      Category
	Tags          []string
	Languages     []string
	Status        ScenarioStatus
	Objectives    []string
	PersonaID     string
	OpeningPrompt string
	ClosingPrompt string
	AI            ScenarioAI
	Rounds        []Round
}

func NewScenario(owner string, in ScenarioInput) (*Scenario, error) {
	if owner == "" || !in.Status.Valid() || len(in.Objectives) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	s := &Scenario{ID: NewID(), CreatedBy: owner, CreatedAt: time.Now().UTC()}
	s.assign(in)
	return s, nil
}

// Apply overwrites the writable fields and stamps LastUpdatedAt.
func (s *Scenario) Apply(in ScenarioInput) error {
	if !in.Status.Valid() || len(in.Objectives) == 0 {
		return domain.ErrInvalidArgument
	}
	s.assign(in)
	now := time.Now().UTC()
	s.LastUpdatedAt = &now
	return nil
}

func (s *Scenario) assign(in ScenarioInput) {
	s.Title = in.Title
	s.Subtitle = in.Subtitle
	s.Description = in.Description
	s.Category = in.Category
	s.Tags = nonNil(in.Tags)
	s.Languages = nonNil(in.Languages)
	s.Status = in.Status
	s.Objectives = nonNil(in.Objectives)
	s.PersonaID = in.PersonaID
	s.OpeningPrompt = in.OpeningPrompt
	s.ClosingPrompt = in.ClosingPrompt
	s.AI = in.AI
	s.Rounds = make([]Round, 0, len(in.Rounds))
	for _, r := range in.Rounds {
		if r.ID == "" {
			r.ID = NewID()
		}
		s.Rounds = append(s.Rounds, r)
	}
}

// Round finds a round by id; nil when the scenario has no such round.
func (s *Scenario) Round(id string) *Round {
	for i := range s.Rounds {
		if s.Rounds[i].ID == id {
			return &s.Rounds[i]
		}
	}
	return nil
}

func (s *Scenario) OwnerID() string { return s.CreatedBy }
func (s *Scenario) IsPublic() bool  { return s.Public }

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
