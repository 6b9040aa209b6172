package web

import (
	"errors"
	"net/http"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/usecase"
)

type nameRequest struct {
	GivenName  string `json:"givenName" validate:"required,min=1,max=50"`
	FamilyName string `json:"familyName" validate:"required,min=1,max=50"`
}

type registerRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,password"`
	Name     nameRequest `json:"name" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,jwt"`
}

type confirmVerificationRequest struct {
	Token string `json:"token" validate:"required,len=64,hexadecimal"`
	Code  string `json:"code" validate:"required,len=6,digits"`
}

type googleTokenRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	res, err := s.deps.Auth.Register(r.Context(), usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     model.Name{GivenName: req.Name.GivenName, FamilyName: req.Name.FamilyName},
		IP:       clientIP(r),
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Duplicate email address"})
		return
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	res, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	pair, err := s.deps.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	token, err := s.deps.Auth.ResendVerification(r.Context(), accountID(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		VerificationToken string `json:"verificationToken"`
		Message           string `json:"message"`
	}{token, "Verification email sent"})
}

func (s *Server) handleConfirmVerification(w http.ResponseWriter, r *http.Request) {
	var req confirmVerificationRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := s.deps.Auth.ConfirmVerification(r.Context(), req.Token, req.Code); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Email verified successfully"})
}

func (s *Server) handleGoogleRedirect(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Auth.GoogleAuthURL(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("error") != "" || q.Get("code") == "" {
		writeError(w, r, s.log, domain.ErrUnauthorized)
		return
	}
	res, err := s.deps.Auth.GoogleCallback(r.Context(), q.Get("state"), q.Get("code"), clientIP(r))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGoogleToken signs in with an ID token obtained client side, either as ?id_token= or
// as {"idToken": "..."}.
func (s *Server) handleGoogleToken(w http.ResponseWriter, r *http.Request) {
	req := googleTokenRequest{IDToken: r.URL.Query().Get("id_token")}
	if r.Method == http.MethodPost && req.IDToken == "" {
		if err := s.decodeBody(r, &req); err != nil {
			writeError(w, r, s.log, err)
			return
		}
	}
	if req.IDToken == "" {
		writeError(w, r, s.log, domain.ErrUnauthorized)
		return
	}
	res, err := s.deps.Auth.GoogleToken(r.Context(), req.IDToken, clientIP(r))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
