package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TSHgroup/hh25-backend/internal/domain/model"
)

type roundRequest struct {
	ID                   string   `json:"id" validate:"omitempty,max=64"`
	Prompt               string   `json:"prompt" validate:"max=1000"`
	ExpectedResponseType string   `json:"expectedResponseType" validate:"max=100"`
	Emotion              string   `json:"emotion" validate:"max=50"`
	UserEmotionTarget    string   `json:"userEmotionTarget" validate:"max=50"`
	Tips                 []string `json:"tips" validate:"max=10,dive,min=1,max=200"`
	KeywordsRequired     []string `json:"keywordsRequired" validate:"max=20,dive,min=1,max=50"`
	KeywordsBanned       []string `json:"keywordsBanned" validate:"max=20,dive,min=1,max=50"`
}

type scenarioRequest struct {
	Title         string         `json:"title" validate:"required,min=1,max=130"`
	Subtitle      string         `json:"subtitle" validate:"max=200"`
	Description   string         `json:"description" validate:"max=512"`
	Category      string         `json:"category" validate:"required,oneof=business education relationships family dates 'public speaking'"`
	Tags          []string       `json:"tags" validate:"max=5,dive,min=1,max=50"`
	Languages     []string       `json:"languages" validate:"required,min=1,max=5,dive,required"`
	Status        string         `json:"status" validate:"required,oneof=editing published archived deleted"`
	Objectives    []string       `json:"objectives" validate:"required,min=1,max=5,dive,min=1,max=200"`
	Persona       string         `json:"persona" validate:"required,max=64"`
	Provider      string         `json:"provider" validate:"required"`
	Model         string         `json:"model" validate:"required"`
	OpeningPrompt string         `json:"openingPrompt" validate:"max=2000"`
	ClosingPrompt string         `json:"closingPrompt" validate:"max=2000"`
	Rounds        []roundRequest `json:"rounds" validate:"max=20,dive"`
}

func (req scenarioRequest) input() model.ScenarioInput {
	in := model.ScenarioInput{
		Title:         req.Title,
		Subtitle:      req.Subtitle,
		Description:   req.Description,
		Category:      model.Category(req.Category),
		Tags:          req.Tags,
		Languages:     req.Languages,
		Status:        model.ScenarioStatus(req.Status),
		Objectives:    req.Objectives,
		PersonaID:     req.Persona,
		OpeningPrompt: req.OpeningPrompt,
		ClosingPrompt: req.ClosingPrompt,
		AI:            model.ScenarioAI{Provider: req.Provider, Model: req.Model},
	}
	for _, rr := range req.Rounds {
		in.Rounds = append(in.Rounds, model.Round{
			ID:                   rr.ID,
			Prompt:               rr.Prompt,
			ExpectedResponseType: rr.ExpectedResponseType,
			Emotion:              rr.Emotion,
			UserEmotionTarget:    rr.UserEmotionTarget,
			Tips:                 rr.Tips,
			KeywordsRequired:     rr.KeywordsRequired,
			KeywordsBanned:       rr.KeywordsBanned,
		})
	}
	return in
}

type emotionModelRequest struct {
	Baseline string `json:"baseline" validate:"max=50"`
	Adapt    bool   `json:"adapt"`
}

type personaRequest struct {
	Name              string              `json:"name" validate:"required,min=1,max=64"`
	Role              string              `json:"role" validate:"required,min=1,max=130"`
	Personality       string              `json:"personality" validate:"required,min=1,max=512"`
	Voice             string              `json:"voice" validate:"required"`
	ResponseStyle     string              `json:"responseStyle" validate:"max=512"`
	Informations      string              `json:"informations" validate:"max=4000"`
	EmotionModel      emotionModelRequest `json:"emotionModel"`
	MaxResponseTokens int                 `json:"maxResponseTokens" validate:"min=0,max=8192"`
}

func (req personaRequest) input() model.PersonaInput {
	return model.PersonaInput{
		Name:              req.Name,
		Role:              req.Role,
		Personality:       req.Personality,
		Voice:             req.Voice,
		ResponseStyle:     req.ResponseStyle,
		Informations:      req.Informations,
		EmotionModel:      model.EmotionModel{Baseline: req.EmotionModel.Baseline, Adapt: req.EmotionModel.Adapt},
		MaxResponseTokens: req.MaxResponseTokens,
	}
}

// ---- scenarios ----

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	page, err := s.bindPage(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	res, err := s.deps.Scenarios.ListPublic(r.Context(), page)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	sc, err := s.deps.Scenarios.Create(r.Context(), accountID(r.Context()), req.input())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.deps.Scenarios.Get(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleUpdateScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	sc, err := s.deps.Scenarios.Update(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.deps.Scenarios.Delete(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handlePublishScenario(public bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := s.deps.Scenarios.SetPublic(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"), public)
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		writeJSON(w, http.StatusOK, sc)
	}
}

func (s *Server) handleMyScenarios(w http.ResponseWriter, r *http.Request) {
	s.listScenariosOf(w, r, accountID(r.Context()))
}

func (s *Server) handleUserScenarios(w http.ResponseWriter, r *http.Request) {
	s.listScenariosOf(w, r, chi.URLParam(r, "userId"))
}

func (s *Server) listScenariosOf(w http.ResponseWriter, r *http.Request, owner string) {
	list, err := s.deps.Scenarios.ListByOwner(r.Context(), accountID(r.Context()), owner)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if list == nil {
		list = []*model.Scenario{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ---- personas ----

func (s *Server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	page, err := s.bindPage(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	res, err := s.deps.Personas.ListPublic(r.Context(), page)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreatePersona(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	p, err := s.deps.Personas.Create(r.Context(), accountID(r.Context()), req.input())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Personas.Get(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePersona(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	p, err := s.deps.Personas.Update(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePersona(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Personas.Delete(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePublishPersona(public bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.deps.Personas.SetPublic(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"), public)
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleMyPersonas(w http.ResponseWriter, r *http.Request) {
	s.listPersonasOf(w, r, accountID(r.Context()))
}

func (s *Server) handleUserPersonas(w http.ResponseWriter, r *http.Request) {
	s.listPersonasOf(w, r, chi.URLParam(r, "userId"))
}

func (s *Server) listPersonasOf(w http.ResponseWriter, r *http.Request, owner string) {
	list, err := s.deps.Personas.ListByOwner(r.Context(), accountID(r.Context()), owner)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if list == nil {
		list = []*model.Persona{}
	}
	writeJSON(w, http.StatusOK, list)
}
