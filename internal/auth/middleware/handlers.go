package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Isaacolagoke/Testai/internal/apierr"
	"github.com/Isaacolagoke/Testai/internal/exam"
	"github.com/Isaacolagoke/Testai/internal/logger"
	"github.com/Isaacolagoke/Testai/internal/validate"
)

const bcryptCost = 10

var (
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasDigit   = regexp.MustCompile(`\d`)
	hasSpecial = regexp.MustCompile(`[@$!%*?&]`)
	allowedPw  = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]`)
)

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8"`
}

var signupMessages = validate.Messages{
	"name":     "Name is required",
	"email":    "Please include a valid email",
	"password": "Password must be at least 8 characters",
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var loginMessages = validate.Messages{
	"email":    "Please include a valid email",
	"password": "Password is required",
}

// passwordProblems applies the character-class and name rules on top of the length rule.
func passwordProblems(name, pw string) []string {
	var out []string
	if !hasLower.MatchString(pw) || !hasUpper.MatchString(pw) || !hasDigit.MatchString(pw) ||
		!hasSpecial.MatchString(pw) || !allowedPw.MatchString(pw) {
		out = append(out, "Password must contain uppercase, lowercase, number and special character")
	}
	if n := strings.ToLower(strings.TrimSpace(name)); n != "" && strings.Contains(strings.ToLower(pw), n) {
		out = append(out, "Password must not contain your name")
	}
	return out
}

// POST /auth/signup  { "name": "...", "email": "...", "password": "..." }
func SignupHandler(users Users, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, apierr.BadRequest("Invalid JSON body"))
			return
		}
		var msgs []string
		if verr := validate.Struct(req, signupMessages); verr != nil {
			msgs = append(msgs, verr.Msgs...)
		}
		msgs = append(msgs, passwordProblems(req.Name, req.Password)...)
		if len(msgs) > 0 {
			writeErr(w, apierr.Validation(msgs...))
			return
		}

		if _, err := users.GetUserByEmail(r.Context(), req.Email); err == nil {
			writeErr(w, apierr.BadRequest("User already exists"))
			return
		} else if !errors.Is(err, exam.ErrNotFound) {
			writeErr(w, apierr.Upstream("Server error", err))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			writeErr(w, apierr.Upstream("Server error", err))
			return
		}
		u, err := users.CreateUser(r.Context(), exam.User{
			Name:         strings.TrimSpace(req.Name),
			Email:        req.Email,
			PasswordHash: string(hash),
			Role:         exam.RoleTutor,
		})
		if errors.Is(err, exam.ErrConflict) {
			writeErr(w, apierr.BadRequest("User already exists"))
			return
		}
		if err != nil {
			writeErr(w, apierr.Upstream("Server error", err))
			return
		}
		log.Info("user registered", "user_id", u.ID)
		writeJSON(w, http.StatusCreated, u)
	}
}

// POST /auth/login  { "email": "...", "password": "..." }
func LoginHandler(a *AuthService, users Users, log *logger.Logger) http.HandlerFunc {
	type out struct {
		User        exam.User `json:"user"`
		AccessToken string    `json:"access_token"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, apierr.BadRequest("Invalid JSON body"))
			return
		}
		if verr := validate.Struct(req, loginMessages); verr != nil {
			writeErr(w, verr)
			return
		}
		u, err := users.GetUserByEmail(r.Context(), req.Email)
		if errors.Is(err, exam.ErrNotFound) {
			writeErr(w, apierr.BadRequest("Invalid credentials"))
			return
		}
		if err != nil {
			writeErr(w, apierr.Upstream("Server error", err))
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			log.Warn("login rejected", "user_id", u.ID)
			writeErr(w, apierr.BadRequest("Invalid credentials"))
			return
		}
		tok, err := a.IssueJWT(u.ID, string(u.Role))
		if err != nil {
			writeErr(w, apierr.Upstream("Server error", err))
			return
		}
		writeJSON(w, http.StatusOK, out{User: u, AccessToken: tok})
	}
}

// POST /auth/logout. Tokens are stateless; the client discards its copy.
func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"msg": "Logged out successfully"})
	}
}

// GET /auth/user, behind JWTMiddleware.
func CurrentUserHandler(users Users) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := users.GetUser(r.Context(), SubjectFromContext(r.Context()))
		if errors.Is(err, exam.ErrNotFound) {
			writeErr(w, apierr.NotFound("User not found"))
			return
		}
		if err != nil {
			writeErr(w, apierr.Upstream("Server error", err))
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
