package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/prepwise/internal/models"
	"github.com/garnizeh/prepwise/pkg/repository"
)

type AuthHandler struct {
	userRepo       repository.UserRepo
	jwtSecret      string
	tokenDuration  time.Duration
	freeInterviews int
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(ur repository.UserRepo, jwtSecret string, tokenDuration time.Duration, freeInterviews int) *AuthHandler {
	return &AuthHandler{userRepo: ur, jwtSecret: jwtSecret, tokenDuration: tokenDuration, freeInterviews: freeInterviews}
}

type signupRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type signinRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type authResponse struct {
	Token string `json:"token"`
}

type profileResponse struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	InterviewsLeft int    `json:"interviews_left"`
	CurrentPlan    string `json:"current_plan"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	user := models.User{
		Username:       req.Username,
		Email:          req.Email,
		PasswordHash:   string(hash),
		InterviewsLeft: h.freeInterviews,
		CurrentPlan:    "free",
	}
	userID, err := h.userRepo.CreateUser(r.Context(), &user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		writeError(w, http.StatusConflict, "User with this email already exists")
		return
	}
	if err != nil {
		logger.Error("create user", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	tokenStr, err := h.issueToken(userID, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error signing token")
		return
	}

	writeJSON(w, authResponse{Token: tokenStr}, http.StatusCreated)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, err := h.userRepo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		logger.Error("lookup user", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error signing in")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	tokenStr, err := h.issueToken(user.ID, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error signing token")
		return
	}

	writeJSON(w, authResponse{Token: tokenStr}, http.StatusOK)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// For stateless JWT, signout is client-side (just delete token)
	writeJSON(w, map[string]string{"message": "signed out"}, http.StatusOK)
}

// Me returns the caller's profile and remaining quota.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		logger.Error("lookup user", slog.Int64("user_id", userID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error loading profile")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, profileResponse{
		Username:       user.Username,
		Email:          user.Email,
		InterviewsLeft: user.InterviewsLeft,
		CurrentPlan:    user.CurrentPlan,
	}, http.StatusOK)
}

func (h *AuthHandler) issueToken(userID int64, email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":   email,
		"user_id": userID,
		"exp":     time.Now().Add(h.tokenDuration).Unix(),
	})
	return token.SignedString([]byte(h.jwtSecret))
}
