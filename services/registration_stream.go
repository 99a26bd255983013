package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"lomig-tournaments/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamRegistrationStatus streams payment-status changes for one of the
// user's registrations as server-sent events. One event per observed change;
// the stream ends when the client disconnects. This is the change-notification
// surface clients watch while waiting for an operator to confirm a payment.
func (s *RegistrationService) StreamRegistrationStatus(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	registrationID := c.Params("id")

	// Ownership check before committing to the stream.
	if _, err := s.Registration(registrationID, userID); err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "registration not found"})
		}
		log.Printf("SSE init error for registration %s: %v", registrationID, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	// Capture the fasthttp context now: fiber recycles the fiber.Ctx once the
	// handler returns, so the stream goroutine must not touch `c` afterwards.
	fctx := c.Context()
	fctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(s.PollInterval)
		defer ticker.Stop()

		var lastStatus string

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				var reg models.Registration
				err := s.DB.First(&reg, "id = ?", registrationID).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					fmt.Fprint(w, "event: gone\ndata: {}\n\n")
					w.Flush()
					return
				}
				if err != nil {
					log.Printf("SSE query error for registration %s: %v", registrationID, err)
					continue
				}
				if reg.PaymentStatus == lastStatus {
					continue
				}
				lastStatus = reg.PaymentStatus

				payload, _ := json.Marshal(fiber.Map{
					"registration_id": reg.ID,
					"payment_status":  reg.PaymentStatus,
					"slot_counted":    reg.SlotCounted,
				})
				fmt.Fprintf(w, "event: status\ndata: %s\n\n", payload)

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-fctx.Done():
				return
			}
		}
	})

	return nil
}
