package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/auth"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/dto"
	"github.com/waterbuddy-app/waterbuddy-backend/internal/services"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	friends  *services.FriendshipService
}

func NewProfileHandler(profiles *services.ProfileService, friends *services.FriendshipService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, friends: friends}
}

// Get returns the caller's profile, creating it on first sight.
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	email := auth.GetEmail(c)

	profile, err := h.profiles.GetOrCreate(userID, email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load profile",
		})
	}

	return c.JSON(dto.ProfileResponse{
		UserID:   userID,
		Email:    email,
		Nickname: profile.Nickname,
	})
}

func (h *ProfileHandler) UpdateNickname(c *fiber.Ctx) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	email := auth.GetEmail(c)

	var req dto.UpdateNicknameRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	profile, err := h.profiles.UpdateNickname(userID, email, req.Nickname)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNicknameEmpty):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrDuplicateNickname):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to update nickname",
			})
		}
	}

	return c.JSON(dto.ProfileResponse{
		UserID:   userID,
		Email:    email,
		Nickname: profile.Nickname,
	})
}

// Search matches emails by substring, excluding the caller and their
// current friends.
func (h *ProfileHandler) Search(c *fiber.Ctx) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	friendIDs, err := h.friends.FriendIDs(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to search users",
		})
	}

	results, err := h.profiles.Search(userID, c.Query("q"), friendIDs)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to search users",
		})
	}

	return c.JSON(fiber.Map{"results": results})
}
