package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/auth"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/dto"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/services"
)

type IntakeHandler struct {
	intake *services.IntakeService
}

func NewIntakeHandler(intake *services.IntakeService) *IntakeHandler {
	return &IntakeHandler{intake: intake}
}

// List returns the recent drink history together with the recomputed
// today total.
func (h *IntakeHandler) List(c *fiber.Ctx) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	history, err := h.intake.History(userID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch drink history",
		})
	}

	total, err := h.intake.TodayTotal(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to compute today total",
		})
	}

	entries := make([]dto.DrinkResponse, 0, len(history))
	for _, e := range history {
		entries = append(entries, dto.DrinkResponse{
			ID:        e.ID,
			AmountML:  e.AmountML,
			CreatedAt: e.CreatedAt,
		})
	}

	return c.JSON(dto.IntakeResponse{
		TodayTotalML: total,
		History:      entries,
	})
}

func (h *IntakeHandler) Record(c *fiber.Ctx) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.RecordDrinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	entry, err := h.intake.RecordDrink(userID, req.AmountML)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAmount) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to record drink",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (h *IntakeHandler) GetSettings(c *fiber.Ctx) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	setting, err := h.intake.GetSettings(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load settings",
		})
	}

	return c.JSON(dto.SettingsResponse{CupSizeML: setting.CupSizeML})
}

func (h *IntakeHandler) UpdateSettings(c *fiber.Ctx) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	setting, err := h.intake.SetCupSize(userID, req.CupSizeML)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCupSize) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to save settings",
		})
	}

	return c.JSON(dto.SettingsResponse{CupSizeML: setting.CupSizeML})
}
