package web

import (
	"errors"
	"net/http"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
)

type profileRequest struct {
	Username    *string  `json:"username" validate:"omitempty,username"`
	DisplayName *string  `json:"displayName" validate:"omitempty,min=1,max=32"`
	Language    *string  `json:"language" validate:"omitempty,min=1,max=16"`
	Bio         *string  `json:"bio" validate:"omitempty,min=1,max=512"`
	Goals       []string `json:"goals" validate:"omitempty,max=5,dive,min=1,max=64"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Profiles.Me(r.Context(), accountID(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	p, err := s.deps.Profiles.Update(r.Context(), accountID(r.Context()), model.ProfilePatch{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Language:    req.Language,
		Bio:         req.Bio,
		Goals:       req.Goals,
		GoalsSet:    req.Goals != nil,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Username already taken"})
		return
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleMyConversations(w http.ResponseWriter, r *http.Request) {
	page, err := s.bindPage(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	res, err := s.deps.Profiles.Conversations(r.Context(), accountID(r.Context()), page)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	span, err := bindString(r, "span")
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	rep, err := s.deps.Analytics.Report(r.Context(), accountID(r.Context()), span)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Voices.Voices())
}

func (s *Server) handleDailyTip(w http.ResponseWriter, r *http.Request) {
	tip, err := s.deps.Tips.Today(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "No daily tips available"})
		return
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Tip string `json:"tip"`
	}{tip})
}
