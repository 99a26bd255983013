package handlers

import (
	"lomig-tournaments/middleware"
	"lomig-tournaments/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService, sessions *services.SessionManager) {
	app.Post("/auth/signup", authService.SignUp)
	app.Post("/auth/login", authService.SignIn)
	app.Post("/auth/logout", authService.SignOut)

	signedIn := middleware.RequireUser(sessions)
	app.Get("/auth/me", signedIn, authService.Me)
	app.Put("/auth/profile", signedIn, authService.UpdateProfile)
}
