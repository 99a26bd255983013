package middleware

import (
	"log"
	"os"

	"lomig-tournaments/services"

	"github.com/gofiber/fiber/v2"
)

// UserContextKey is where RequireUser leaves the signed-in user's id.
const UserContextKey = "user_id"

// RequireUser guards player routes: a request without a signed-in session is
// rejected with 401 (the browser's redirect-to-login). On success the user id
// is attached to the request context for handlers.
func RequireUser(sessions *services.SessionManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := sessions.UserID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "sign in to continue",
			})
		}
		c.Locals(UserContextKey, userID)
		return c.Next()
	}
}

// RequireAdmin guards operator routes with a shared token, the way the
// gateway token guards service-to-service calls. Admin tooling lives outside
// this system; the token is its only credential here.
func RequireAdmin() fiber.Handler {
	expectedToken := os.Getenv("ADMIN_TOKEN")
	if expectedToken == "" {
		log.Fatal("ADMIN_TOKEN environment variable not set")
	}

	return func(c *fiber.Ctx) error {
		token := c.Get("X-Admin-Token")
		if token != expectedToken {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid admin token",
			})
		}
		return c.Next()
	}
}

// UserID reads the id RequireUser attached.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserContextKey).(string)
	return id
}
