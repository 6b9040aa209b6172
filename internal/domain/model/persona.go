package model

import (
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain"
)

type EmotionModel struct {
	Baseline string `json:"baseline"`
	Adapt    bool   `json:"adapt"`
}

// Persona is an author-owned AI character. Private until published.
type Persona struct {
	ID                string       `json:"id"`
	CreatedBy         string       `json:"createdBy"`
	Name              string       `json:"name"`
	Role              string       `json:"role"`
	Personality       string       `json:"personality"`
	Voice             string       `json:"voice"`
	ResponseStyle     string       `json:"responseStyle,omitempty"`
	Informations      string       `json:"informations,omitempty"`
	EmotionModel      EmotionModel `json:"emotionModel"`
	MaxResponseTokens int          `json:"maxResponseTokens"`
	Public            bool         `json:"public"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// PersonaInput is the writable part of a persona shared by create and update.
type PersonaInput struct {
	Name              string
	Role              string
	Personality       string
	Voice             string
	ResponseStyle     string
	Informations      string
	EmotionModel      EmotionModel
	MaxResponseTokens int
}

func NewPersona(owner string, in PersonaInput) (*Persona, error) {
	if owner == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	p := &Persona{ID: NewID(), CreatedBy: owner, CreatedAt: now}
	p.Apply(in)
	p.UpdatedAt = now
	return p, nil
}

func (p *Persona) Apply(in PersonaInput) {
	p.Name = in.Name
	p.Role = in.Role
	p.Personality = in.Personality
	p.Voice = in.Voice
	p.ResponseStyle = in.ResponseStyle
	p.Informations = in.Informations
	p.EmotionModel = in.EmotionModel
	p.MaxResponseTokens = in.MaxResponseTokens
	p.UpdatedAt = time.Now().UTC()
}

func (p *Persona) OwnerID() string { return p.CreatedBy }
func (p *Persona) IsPublic() bool  { return p.Public }
