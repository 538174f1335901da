package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// OnboardingFlow drives the registration steps.
type OnboardingFlow interface {
	Status(ctx context.Context, userID uuid.UUID) (*dto.OnboardingStatusResponse, error)
	SaveAdditionalData(ctx context.Context, userID uuid.UUID, req *dto.AdditionalDataRequest) (*models.Profile, error)
	SubmitQuestionnaire(ctx context.Context, userID uuid.UUID, answers json.RawMessage) error
	SignAgreements(ctx context.Context, userID uuid.UUID, req *dto.AgreementsRequest, clientIP string) error
}

type OnboardingHandler struct {
	flow OnboardingFlow
}

func NewOnboardingHandler(flow OnboardingFlow) *OnboardingHandler {
	return &OnboardingHandler{flow: flow}
}

func (h *OnboardingHandler) GetStatus(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
	}

	status, err := h.flow.Status(c.UserContext(), userID)
	if err != nil {
		slog.Error("onboarding status failed", "user_id", userID.String(), "request_id", requestID(c), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "Failed to load onboarding status",
		})
	}
	return c.JSON(status)
}

func (h *OnboardingHandler) SaveAdditionalData(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
	}

	var req dto.AdditionalDataRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}

	profile, err := h.flow.SaveAdditionalData(c.UserContext(), userID, &req)
	if err != nil {
		return onboardingError(c, userID, "Failed to save additional data", err)
	}
	return c.JSON(profile)
}

func (h *OnboardingHandler) SubmitQuestionnaire(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
	}

	var req dto.QuestionnaireRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}

	if err := h.flow.SubmitQuestionnaire(c.UserContext(), userID, req.Answers); err != nil {
		return onboardingError(c, userID, "Failed to save questionnaire", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Questionnaire submitted"})
}

func (h *OnboardingHandler) SignAgreements(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
	}

	var req dto.AgreementsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}

	if err := h.flow.SignAgreements(c.UserContext(), userID, &req, c.IP()); err != nil {
		return onboardingError(c, userID, "Failed to save agreements", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Agreements signed"})
}

func onboardingError(c *fiber.Ctx, userID uuid.UUID, fallback string, err error) error {
	var stepErr *services.StepOutOfOrderError
	switch {
	case errors.As(err, &stepErr):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: "Complete the previous step first",
			Next:  stepErr.Next,
		})
	case errors.Is(err, services.ErrQuestionnaireExists):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "Questionnaire already submitted"})
	case errors.Is(err, services.ErrFirstNameRequired),
		errors.Is(err, services.ErrLastNameRequired),
		errors.Is(err, services.ErrCountryInvalid),
		errors.Is(err, services.ErrDateOfBirthInvalid),
		errors.Is(err, services.ErrUnderage),
		errors.Is(err, services.ErrAnswersInvalid),
		errors.Is(err, services.ErrSignerNameRequired),
		errors.Is(err, services.ErrUnknownAgreement),
		errors.Is(err, services.ErrAgreementMissing):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	slog.Error("onboarding step failed", "user_id", userID.String(), "request_id", requestID(c), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: fallback})
}
