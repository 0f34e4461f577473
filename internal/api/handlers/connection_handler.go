package handlers

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
)

type ConnectionHandler struct {
	cfg config.Config
	ig  service.InstagramService
	cr  repository.ConnectionRepository
}

func NewConnectionHandler(cfg config.Config, ig service.InstagramService, cr repository.ConnectionRepository) *ConnectionHandler {
	return &ConnectionHandler{cfg: cfg, ig: ig, cr: cr}
}

// Connect sends the user into the Instagram OAuth flow.
func (h *ConnectionHandler) Connect(c *fiber.Ctx) error {
	authURL := fmt.Sprintf(
		"https://api.instagram.com/oauth/authorize?client_id=%s&redirect_uri=%s&scope=instagram_business_basic,instagram_business_content_publish&response_type=code",
		h.cfg.InstagramClientID,
		url.QueryEscape(h.cfg.InstagramRedirectURI),
	)
	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

func (h *ConnectionHandler) Callback(c *fiber.Ctx) error {
	userID := GetUserID(c)
	code := c.Query("code")

	if err := h.ig.InstagramCallback(c.Context(), code, userID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to connect Instagram account",
		})
	}

	return c.Redirect(h.cfg.FrontendURL+"/settings", fiber.StatusTemporaryRedirect)
}

func (h *ConnectionHandler) GetConnection(c *fiber.Ctx) error {
	userID := GetUserID(c)

	conn, ok, err := h.cr.GetByUserID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load connection",
		})
	}
	if !ok {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"is_connected": false})
	}

	return c.Status(fiber.StatusOK).JSON(conn)
}

func (h *ConnectionHandler) Disconnect(c *fiber.Ctx) error {
	userID := GetUserID(c)

	if err := h.cr.Disconnect(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
