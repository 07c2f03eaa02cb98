package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/garnizeh/prepwise/internal/ai"
	"github.com/garnizeh/prepwise/internal/metrics"
	"github.com/garnizeh/prepwise/internal/models"
	"github.com/garnizeh/prepwise/internal/webhook"
	"github.com/garnizeh/prepwise/pkg/repository"
)

const maxWebhookBody = 1 << 20

type receivedResponse struct {
	Received bool `json:"received"`
}

// WebhookHandler turns post-call deliveries from the question agent into
// interviews.
type WebhookHandler struct {
	verifier      *webhook.Verifier
	engine        *ai.Engine
	interviewRepo repository.InterviewRepo
}

func NewWebhookHandler(v *webhook.Verifier, engine *ai.Engine, ir repository.InterviewRepo) *WebhookHandler {
	return &WebhookHandler{verifier: v, engine: engine, interviewRepo: ir}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		metrics.ObserveWebhook(metrics.WebhookInvalid)
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	header := r.Header.Get(webhook.SignatureHeader)
	if header == "" {
		metrics.ObserveWebhook(metrics.WebhookRejected)
		writeError(w, http.StatusBadRequest, "Missing signature headers")
		return
	}
	if err := h.verifier.Verify(header, body); err != nil {
		metrics.ObserveWebhook(metrics.WebhookRejected)
		logger.Warn("webhook rejected", slog.Any("error", err))
		switch {
		case errors.Is(err, webhook.ErrMalformedSignature):
			writeError(w, http.StatusBadRequest, "Missing signature headers")
		case errors.Is(err, webhook.ErrRequestExpired):
			writeError(w, http.StatusForbidden, "Request expired")
		default:
			writeError(w, http.StatusUnauthorized, "Request unauthorized")
		}
		return
	}

	p, err := webhook.ParsePayload(body)
	if err != nil {
		metrics.ObserveWebhook(metrics.WebhookInvalid)
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	a := p.Data.Analysis
	if a.Empty() {
		logger.Info("webhook without interview request", slog.String("type", p.Type), slog.String("conversation_id", p.Data.ConversationID))
		metrics.ObserveWebhook(metrics.WebhookAccepted)
		writeJSON(w, receivedResponse{Received: true}, http.StatusOK)
		return
	}

	email := p.UserEmail()
	if email == "" {
		metrics.ObserveWebhook(metrics.WebhookInvalid)
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	if err := validate.Var(int(a.Amount), amountRule); err != nil {
		metrics.ObserveWebhook(metrics.WebhookInvalid)
		logger.Warn("webhook amount out of range", slog.Int("amount", int(a.Amount)))
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	ctx := r.Context()
	deliveryID := p.Data.ConversationID
	if deliveryID != "" {
		seen, err := h.interviewRepo.HasDelivery(ctx, deliveryID)
		if err != nil {
			metrics.ObserveWebhook(metrics.WebhookDBFailed)
			logger.Error("lookup delivery", slog.String("conversation_id", deliveryID), slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "Failed to update user with interview data")
			return
		}
		if seen {
			metrics.ObserveWebhook(metrics.WebhookReplayed)
			logger.Info("webhook replay ignored", slog.String("conversation_id", deliveryID))
			writeJSON(w, receivedResponse{Received: true}, http.StatusOK)
			return
		}
	}

	stack := a.Stack()
	raw, err := h.engine.GenerateQuestions(ctx, ai.QuestionParams{
		Role:      a.Role,
		Level:     a.Level,
		TechStack: stack,
		Type:      a.Type,
		Amount:    int(a.Amount),
	})
	if err != nil {
		metrics.ObserveWebhook(metrics.WebhookGenFailed)
		writeError(w, http.StatusInternalServerError, "Failed to generate questions")
		return
	}
	questions, err := ai.ParseQuestions(raw)
	if err != nil {
		metrics.ObserveWebhook(metrics.WebhookGenFailed)
		logger.Error("unusable question list", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to generate questions")
		return
	}
	if len(questions) != int(a.Amount) {
		logger.Warn("question count differs from requested amount", slog.Int("requested", int(a.Amount)), slog.Int("got", len(questions)))
	}

	iv := models.Interview{
		Role:      a.Role,
		Level:     a.Level,
		TechStack: stack,
		Amount:    int(a.Amount),
		Questions: questions,
	}
	err = h.interviewRepo.CreateInterviewForUser(ctx, email, &iv, repository.CreateOptions{DeliveryID: deliveryID})
	if errors.Is(err, repository.ErrDuplicateDelivery) {
		metrics.ObserveWebhook(metrics.WebhookReplayed)
		writeJSON(w, receivedResponse{Received: true}, http.StatusOK)
		return
	}
	if err != nil {
		metrics.ObserveWebhook(metrics.WebhookDBFailed)
		logger.Error("persist interview", slog.String("conversation_id", deliveryID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to update user with interview data")
		return
	}

	metrics.ObserveWebhook(metrics.WebhookAccepted)
	logger.Info("interview created from webhook", slog.String("interview_id", iv.ID), slog.Int64("user_id", iv.UserID))
	writeJSON(w, receivedResponse{Received: true}, http.StatusOK)
}
