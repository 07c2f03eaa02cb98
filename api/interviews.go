package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/garnizeh/prepwise/internal/ai"
	"github.com/garnizeh/prepwise/internal/models"
	"github.com/garnizeh/prepwise/internal/webhook"
	"github.com/garnizeh/prepwise/pkg/repository"
)

// Analysis states reported by GET /v1/interviews/{id}/analysis.
const (
	AnalysisNotCompleted = "not_completed"
	AnalysisPending      = "pending"
	AnalysisReady        = "ready"
)

type InterviewsHandler struct {
	engine        *ai.Engine
	userRepo      repository.UserRepo
	interviewRepo repository.InterviewRepo
}

func NewInterviewsHandler(engine *ai.Engine, ur repository.UserRepo, ir repository.InterviewRepo) *InterviewsHandler {
	return &InterviewsHandler{engine: engine, userRepo: ur, interviewRepo: ir}
}

type createInterviewRequest struct {
	Role      string            `json:"role" validate:"required,max=200"`
	Level     string            `json:"level" validate:"required,max=100"`
	TechStack webhook.TechStack `json:"techstack" validate:"max=30,dive,max=100"`
	Type      string            `json:"type" validate:"max=100"`
	Amount    webhook.Count     `json:"amount" validate:"required,min=1,max=50"`
}

type completeRequest struct {
	InterviewID string             `json:"interview_id"`
	Transcript  webhook.Transcript `json:"transcript"`
}

type analysisResponse struct {
	Status   string       `json:"status"`
	Feedback *ai.Feedback `json:"feedback,omitempty"`
}

// Create generates questions for the caller and stores a new interview,
// charging one interview against the caller's quota.
func (h *InterviewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	req.Role = strings.TrimSpace(req.Role)
	req.Level = strings.TrimSpace(req.Level)
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ctx := r.Context()
	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Error("lookup user", slog.Int64("user_id", userID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to create interview")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if user.InterviewsLeft <= 0 {
		writeError(w, http.StatusForbidden, "No interviews left")
		return
	}

	raw, err := h.engine.GenerateQuestions(ctx, ai.QuestionParams{
		Role:      req.Role,
		Level:     req.Level,
		TechStack: req.TechStack,
		Type:      req.Type,
		Amount:    int(req.Amount),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate questions")
		return
	}
	questions, err := ai.ParseQuestions(raw)
	if err != nil {
		logger.Error("unusable question list", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to generate questions")
		return
	}

	iv := models.Interview{
		Role:      req.Role,
		Level:     req.Level,
		TechStack: req.TechStack,
		Amount:    int(req.Amount),
		Questions: questions,
	}
	if iv.TechStack == nil {
		iv.TechStack = []string{}
	}
	err = h.interviewRepo.CreateInterviewForUser(ctx, email, &iv, repository.CreateOptions{RequireQuota: true})
	if errors.Is(err, repository.ErrQuotaExhausted) {
		writeError(w, http.StatusForbidden, "No interviews left")
		return
	}
	if err != nil {
		logger.Error("persist interview", slog.Int64("user_id", userID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to create interview")
		return
	}

	writeJSON(w, iv, http.StatusCreated)
}

// List returns the caller's interviews, newest first.
func (h *InterviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	list, err := h.interviewRepo.ListInterviewsByUser(r.Context(), userID)
	if err != nil {
		logger.Error("list interviews", slog.Int64("user_id", userID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to list interviews")
		return
	}

	writeJSON(w, list, http.StatusOK)
}

func (h *InterviewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	iv, ok := h.ownedInterview(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, iv, http.StatusOK)
}

// Analysis reports whether feedback for the interview is available and
// returns it when it is.
func (h *InterviewsHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	iv, ok := h.ownedInterview(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}

	if !iv.IsCompleted {
		writeJSON(w, analysisResponse{Status: AnalysisNotCompleted}, http.StatusOK)
		return
	}
	if iv.InterviewAnalysis == nil {
		writeJSON(w, analysisResponse{Status: AnalysisPending}, http.StatusOK)
		return
	}
	fb, err := ai.ParseFeedback(*iv.InterviewAnalysis)
	if err != nil {
		logger.Warn("stored analysis not parseable", slog.String("interview_id", iv.ID), slog.Any("error", err))
		writeJSON(w, analysisResponse{Status: AnalysisPending}, http.StatusOK)
		return
	}

	writeJSON(w, analysisResponse{Status: AnalysisReady, Feedback: fb}, http.StatusOK)
}

// Complete synthesizes feedback for a finished interview and stores it
// together with the completed flag.
func (h *InterviewsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	req.InterviewID = strings.TrimSpace(req.InterviewID)
	// an empty transcript would complete the interview with nothing to assess
	if req.InterviewID == "" || len(req.Transcript) == 0 {
		writeError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	iv, ok := h.ownedInterview(w, r, req.InterviewID)
	if !ok {
		return
	}
	if iv.IsCompleted {
		writeError(w, http.StatusConflict, "Interview already completed")
		return
	}

	ctx := r.Context()
	res := h.engine.CreateFeedback(ctx, req.Transcript)
	if !res.Success {
		writeError(w, http.StatusInternalServerError, "Failed to generate feedback")
		return
	}

	err := h.interviewRepo.CompleteInterview(ctx, iv.ID, res.Feedback)
	switch {
	case errors.Is(err, repository.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "Interview already completed")
		return
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Interview not found")
		return
	case err != nil:
		logger.Error("complete interview", slog.String("interview_id", iv.ID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to complete interview")
		return
	}

	logger.Info("interview completed", slog.String("interview_id", iv.ID), slog.Int("turns", len(req.Transcript)))
	writeJSON(w, map[string]string{"message": "Interview completed successfully"}, http.StatusOK)
}

// ownedInterview loads the interview and writes the error response itself
// when it is missing or belongs to someone else.
func (h *InterviewsHandler) ownedInterview(w http.ResponseWriter, r *http.Request, id string) (*models.Interview, bool) {
	userID, _, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	iv, err := h.interviewRepo.GetInterview(r.Context(), id)
	if err != nil {
		logger.Error("lookup interview", slog.String("interview_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to load interview")
		return nil, false
	}
	if iv == nil || iv.UserID != userID {
		writeError(w, http.StatusNotFound, "Interview not found")
		return nil, false
	}
	return iv, true
}
