package handlers

import (
	"lomig-tournaments/middleware"
	"lomig-tournaments/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService, sessions *services.SessionManager) {
	// Browsing requires sign-in, like every page past the login screen.
	signedIn := middleware.RequireUser(sessions)
	app.Get("/tournaments", signedIn, tournamentService.ListTournaments)
	app.Get("/tournaments/:id", signedIn, tournamentService.GetTournament)

	// Operator tooling lives outside this system; these are its entry points.
	admin := app.Group("/admin", middleware.RequireAdmin())
	admin.Post("/tournaments", tournamentService.CreateTournament)
	admin.Patch("/tournaments/:id/status", tournamentService.UpdateTournamentStatus)
}
