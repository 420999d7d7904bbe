package handlers

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/crosscast/crosscast/configs"
	"github.com/crosscast/crosscast/internal/service"
	"github.com/crosscast/crosscast/internal/transfer"
	"github.com/crosscast/crosscast/pkg/utils"
)

type PlatformHandler struct {
	s   service.AccountService
	cfg config.Config
}

func NewPlatformHandler(cfg config.Config, service service.AccountService) *PlatformHandler {
	return &PlatformHandler{s: service, cfg: cfg}
}

// ConnectAccount starts the provider handshake. The workspace id, return
// origin and PKCE verifier ride along in a signed state token so the
// callback doesn't have to trust query parameters.
func (h *PlatformHandler) ConnectAccount(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	platform := c.Params("platform")

	nonce, err := gonanoid.New()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	// PKCE requires 43-128 characters; nanoid's alphabet is all unreserved.
	verifier, err := gonanoid.New(64)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	state, err := utils.GenerateStateToken(h.cfg.SecretKey, transfer.OAuthState{
		WorkspaceID: fmt.Sprintf("%d", workspaceID),
		ReturnTo:    c.Query("return_to", h.cfg.FrontendURL),
		Nonce:       nonce,
		Verifier:    verifier,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	authURL, err := h.s.AuthURL(c.Context(), platform, state, verifier)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Redirect(authURL)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	platform := c.Params("platform")

	claims, err := utils.ValidateStateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate workspace",
		})
	}

	workspaceID, err := strconv.ParseInt(claims.WorkspaceID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate workspace",
		})
	}

	returnTo := claims.ReturnTo
	if returnTo == "" {
		returnTo = h.cfg.FrontendURL
	}

	err = h.s.HandleCallback(c.Context(), platform, code, claims.Verifier, workspaceID)
	if err != nil {
		if errors.Is(err, service.ErrAuthCodeReused) {
			return c.Redirect(errorRedirect(returnTo, err.Error()), fiber.StatusTemporaryRedirect)
		}
		log.Printf("Error connecting %s account: %v", platform, err)
		return c.Redirect(errorRedirect(returnTo, "connection failed"), fiber.StatusTemporaryRedirect)
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", returnTo)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func errorRedirect(base, message string) string {
	return fmt.Sprintf("%s/dashboard/accounts#error=%s", base, url.QueryEscape(message))
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)

	accountList, err := h.s.List(c.Context(), workspaceID)
	if err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	accountID := c.QueryInt("id", 0)

	err := h.s.Disconnect(c.Context(), workspaceID, int64(accountID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect social account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
