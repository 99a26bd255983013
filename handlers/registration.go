package handlers

import (
	"lomig-tournaments/middleware"
	"lomig-tournaments/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRegistrationRoutes(app *fiber.App, registrationService *services.RegistrationService, sessions *services.SessionManager) {
	signedIn := middleware.RequireUser(sessions)

	// The registration flow: select -> register -> payment -> submit.
	app.Post("/tournaments/:id/select", signedIn, registrationService.SelectTournamentEndpoint)
	app.Post("/register", signedIn, registrationService.RegisterEndpoint)
	app.Get("/payment", signedIn, registrationService.PaymentDetailsEndpoint)
	app.Get("/payment/qr", signedIn, registrationService.PaymentQREndpoint)
	app.Post("/payment", signedIn, registrationService.SubmitPaymentEndpoint)

	// Joined matches and the status stream.
	app.Get("/registrations", signedIn, registrationService.MyRegistrationsEndpoint)
	app.Get("/registrations/:id", signedIn, registrationService.GetRegistrationEndpoint)
	app.Get("/registrations/:id/stream", signedIn, registrationService.StreamRegistrationStatus)

	// Operator-side writes: the status change the watchers observe, and the
	// room credentials handed out after confirmation.
	admin := app.Group("/admin", middleware.RequireAdmin())
	admin.Patch("/registrations/:id/status", registrationService.SetPaymentStatusEndpoint)
	admin.Patch("/registrations/:id/room", registrationService.SetRoomEndpoint)
}
