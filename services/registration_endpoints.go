package services

import (
	"errors"
	"log"

	"lomig-tournaments/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SelectTournamentEndpoint opens a registration draft for an active
// tournament, overwriting any draft the session already held.
func (s *RegistrationService) SelectTournamentEndpoint(c *fiber.Ctx) error {
	id := c.Params("id")
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		log.Printf("ERROR fetching tournament %s for selection: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if tournament.Status != models.TournamentActive {
		return c.Status(409).JSON(fiber.Map{"error": "tournament is not open for registration"})
	}

	draft, err := s.Sessions.SelectTournament(c, &tournament)
	if err != nil {
		log.Printf("ERROR storing draft for tournament %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to start registration"})
	}
	return c.Status(201).JSON(draft)
}

// RegisterEndpoint fills the player fields into the session draft. Validation
// failures stay local: no network write, field-level message in the response.
func (s *RegistrationService) RegisterEndpoint(c *fiber.Ctx) error {
	type Req struct {
		PlayerName   string `json:"player_name"`
		GameUID      string `json:"game_uid"`
		GameName     string `json:"game_name"`
		MobileNumber string `json:"mobile_number"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	userID, _ := c.Locals("user_id").(string)
	draft, err := s.Sessions.CompleteDraft(c, userID, req.PlayerName, req.GameUID, req.GameName, req.MobileNumber)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return c.Status(400).JSON(fiber.Map{"error": vErr.Message, "field": vErr.Field})
		}
		log.Printf("ERROR completing draft for user %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to save registration details"})
	}
	return c.JSON(draft)
}

// PaymentDetailsEndpoint renders the payment page data for the session draft:
// snapshot fields, the UPI deep link, per-app links and display fee.
func (s *RegistrationService) PaymentDetailsEndpoint(c *fiber.Ctx) error {
	draft, err := s.Sessions.Draft(c)
	if err != nil || draft == nil {
		return c.Status(404).JSON(fiber.Map{"error": "no registration in progress"})
	}
	if !draft.Complete() {
		return c.Status(409).JSON(fiber.Map{"error": "registration details are incomplete"})
	}
	return c.JSON(fiber.Map{
		"tournament_title":  draft.TournamentTitle,
		"match_id":          draft.MatchID,
		"date_time":         draft.DateTime,
		"entry_fee":         draft.EntryFee,
		"entry_fee_display": DisplayFee(draft.EntryFee),
		"upi_id":            s.Payments.VPA,
		"upi_link":          s.Payments.Link(draft),
		"app_links":         s.Payments.AppLinks(draft),
	})
}

// PaymentQREndpoint returns the UPI deep link as a PNG QR code.
func (s *RegistrationService) PaymentQREndpoint(c *fiber.Ctx) error {
	draft, err := s.Sessions.Draft(c)
	if err != nil || draft == nil {
		return c.Status(404).JSON(fiber.Map{"error": "no registration in progress"})
	}
	png, err := s.Payments.QRCode(draft)
	if err != nil {
		log.Printf("ERROR generating payment QR for tournament %s: %v", draft.TournamentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "could not generate QR code"})
	}
	c.Set("Content-Type", "image/png")
	return c.Send(png)
}

// SubmitPaymentEndpoint converts the draft plus UTR into a durable pending
// registration. The draft is cleared only after the write succeeded, so a
// failure leaves it intact for retry.
func (s *RegistrationService) SubmitPaymentEndpoint(c *fiber.Ctx) error {
	type Req struct {
		UTRNumber string `json:"utr_number"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	userID, _ := c.Locals("user_id").(string)
	draft, err := s.Sessions.Draft(c)
	if err != nil {
		log.Printf("ERROR reading draft for user %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to load registration"})
	}

	reg, err := s.SubmitPayment(userID, draft, req.UTRNumber)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return c.Status(400).JSON(fiber.Map{"error": vErr.Message, "field": vErr.Field})
		}
		log.Printf("ERROR submitting payment for user %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "Error submitting payment. Please try again."})
	}

	if err := s.Sessions.ClearDraft(c); err != nil {
		// The durable record exists; a stale draft is only cosmetic.
		log.Printf("ERROR clearing draft after registration %s: %v", reg.ID, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message":      "Payment submitted successfully! Please wait for confirmation.",
		"registration": reg,
	})
}

// MyRegistrationsEndpoint lists the user's joined matches, newest first.
func (s *RegistrationService) MyRegistrationsEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	regs, err := s.RegistrationsForUser(userID)
	if err != nil {
		log.Printf("ERROR listing registrations for user %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch your matches"})
	}
	return c.JSON(regs)
}

// GetRegistrationEndpoint returns one of the user's registrations.
func (s *RegistrationService) GetRegistrationEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	reg, err := s.Registration(c.Params("id"), userID)
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "registration not found"})
		}
		log.Printf("ERROR fetching registration %s: %v", c.Params("id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(reg)
}

// SetPaymentStatusEndpoint is the operator write the watchers react to.
func (s *RegistrationService) SetPaymentStatusEndpoint(c *fiber.Ctx) error {
	type Req struct {
		PaymentStatus string `json:"payment_status"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	reg, err := s.SetPaymentStatus(c.Params("id"), req.PaymentStatus)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return c.Status(400).JSON(fiber.Map{"error": vErr.Message})
		}
		if errors.Is(err, ErrRegistrationNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "registration not found"})
		}
		log.Printf("ERROR setting payment status on %s: %v", c.Params("id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "DB update failed"})
	}
	return c.JSON(reg)
}

// SetRoomEndpoint stores room credentials on a registration.
func (s *RegistrationService) SetRoomEndpoint(c *fiber.Ctx) error {
	type Req struct {
		RoomID       string `json:"room_id"`
		RoomPassword string `json:"room_password"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	reg, err := s.SetRoomCredentials(c.Params("id"), req.RoomID, req.RoomPassword)
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "registration not found"})
		}
		log.Printf("ERROR setting room credentials on %s: %v", c.Params("id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "DB update failed"})
	}
	return c.JSON(reg)
}
