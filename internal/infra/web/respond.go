package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/infra/logging"
)

const (
	msgInternal     = "Internal server error"
	msgInvalidModel = "Invalid model"
)

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

// Issue is one failed field constraint.
type Issue struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type issuesBody struct {
	Errors []Issue `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errMapping struct {
	status int
	msg    string // empty: use err.Error()
}

var errTable = []struct {
	target error
	errMapping
}{
	{domain.ErrInvalidModel, errMapping{http.StatusBadRequest, msgInvalidModel}},
	{domain.ErrInvalidPersona, errMapping{http.StatusBadRequest, "Invalid persona"}},
	{domain.ErrAlreadyVerified, errMapping{http.StatusBadRequest, "Email already verified"}},
	{domain.ErrInvalidVerification, errMapping{http.StatusBadRequest, "Invalid or expired verification token"}},
	{domain.ErrInvalidVerifyCode, errMapping{http.StatusBadRequest, "Invalid verification code"}},
	{domain.ErrAlreadyExists, errMapping{http.StatusBadRequest, ""}},
	{domain.ErrInvalidArgument, errMapping{http.StatusBadRequest, ""}},
	{domain.ErrInvalidCredentials, errMapping{http.StatusUnauthorized, "Invalid credentials"}},
	{domain.ErrInvalidRefreshToken, errMapping{http.StatusUnauthorized, "Invalid refresh token"}},
	{domain.ErrRefreshTokenRevoked, errMapping{http.StatusUnauthorized, "Refresh token revoked or invalid"}},
	{domain.ErrInvalidGoogleToken, errMapping{http.StatusUnauthorized, "User is not authorized"}},
	{domain.ErrUnauthorized, errMapping{http.StatusUnauthorized, "User is not authorized"}},
	{domain.ErrPrivate, errMapping{http.StatusForbidden, "This resource is private"}},
	{domain.ErrForbidden, errMapping{http.StatusForbidden, "You are not the owner of this resource"}},
	{domain.ErrNotFound, errMapping{http.StatusNotFound, "Not found"}},
	{domain.ErrRegistrationInProgress, errMapping{http.StatusConflict, "Registration already in progress"}},
	{domain.ErrRateLimited, errMapping{http.StatusTooManyRequests, "Too many requests"}},
	{domain.ErrGoogleSignInDisabled, errMapping{http.StatusNotImplemented, "Google sign-in is not configured"}},
}

// writeError maps domain errors to status codes; anything unknown is logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, issuesBody{Errors: toIssues(verrs)})
		return
	}
	for _, m := range errTable {
		if errors.Is(err, m.target) {
			msg := m.msg
			if msg == "" {
				msg = err.Error()
			}
			writeJSON(w, m.status, errorBody{Error: msg})
			return
		}
	}
	l := logging.With(r.Context(), logger)
	l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgInternal})
}

// ---- validation ----

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.]{1,32}$`)
	digitsRe   = regexp.MustCompile(`^[0-9]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			name, _, _ = strings.Cut(f.Tag.Get("query"), ",")
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digitsRe.MatchString(fl.Field().String())
	})
	return v
}

// strongPassword: 8-100 chars with upper, lower, digit and a special character.
func strongPassword(s string) bool {
	if len(s) < 8 || len(s) > 100 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}

func toIssues(verrs validator.ValidationErrors) []Issue {
	out := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, Issue{Field: field, Tag: fe.Tag(), Message: issueMessage(fe)})
	}
	return out
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "password":
		return "must be 8-100 characters with an uppercase letter, a lowercase letter, a number and a special character"
	case "username":
		return "may only contain letters, digits, '_' and '.' (max 32)"
	case "hexadecimal":
		return "must be hexadecimal"
	case "digits":
		return "must contain digits only"
	case "jwt":
		return "must be a JWT"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

var errEmptyBody = fmt.Errorf("request body is required: %w", domain.ErrInvalidArgument)

// decodeBody reads JSON into dst and validates it.
func (s *Server) decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", domain.ErrInvalidArgument)
	}
	return s.validate.Struct(dst)
}
