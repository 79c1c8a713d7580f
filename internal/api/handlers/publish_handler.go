package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/engine"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type PublishHandler struct {
	s service.PublishService
}

func NewPublishHandler(service service.PublishService) *PublishHandler {
	return &PublishHandler{s: service}
}

func (h *PublishHandler) CreatePublish(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pc transfer.PublishCreation
	if err := c.BodyParser(&pc); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	requestID, err := h.s.Create(c.Context(), userID, &pc)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidSchedule) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"request_id": requestID,
		"message":    "Post scheduled successfully",
	})
}

func (h *PublishHandler) GetStatus(c *fiber.Ctx) error {
	userID := GetUserID(c)
	requestID := c.Params("id")

	status, err := h.s.Status(c.Context(), userID, requestID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get publish status",
		})
	}

	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *PublishHandler) ListPublish(c *fiber.Ctx) error {
	userID := GetUserID(c)

	requests, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list publish requests",
		})
	}

	return c.Status(fiber.StatusOK).JSON(requests)
}

func (h *PublishHandler) AccountStatus(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("account_id", 0)

	summary, err := h.s.AccountStatus(c.Context(), userID, int64(accountID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get account status",
		})
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}

func (h *PublishHandler) CancelPublish(c *fiber.Ctx) error {
	userID := GetUserID(c)
	requestID := c.Params("id")

	err := h.s.Cancel(c.Context(), userID, requestID)
	if err != nil {
		if errors.Is(err, engine.ErrNotCancellable) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if errors.Is(err, engine.ErrRequestNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to cancel publish request",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
