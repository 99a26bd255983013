package services

import (
	"encoding/json"
	"log"
	"time"

	"lomig-tournaments/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"
)

const (
	sessionUserKey  = "user_id"
	sessionDraftKey = "registration_draft"
)

// SessionManager owns the cookie session: the signed-in user id and the
// single registration-draft slot. Only one draft exists per session; a new
// tournament selection overwrites any prior one, and the slot dies with the
// session.
type SessionManager struct {
	Store *session.Store
	DB    *gorm.DB
}

func NewSessionManager(db *gorm.DB) *SessionManager {
	return &SessionManager{
		Store: session.New(session.Config{
			Expiration:     24 * time.Hour,
			CookieHTTPOnly: true,
			CookieSameSite: "Lax",
		}),
		DB: db,
	}
}

// UserID returns the signed-in user's id, if any.
func (m *SessionManager) UserID(c *fiber.Ctx) (string, bool) {
	sess, err := m.Store.Get(c)
	if err != nil {
		return "", false
	}
	id, ok := sess.Get(sessionUserKey).(string)
	return id, ok && id != ""
}

// SignIn binds the session to a user.
func (m *SessionManager) SignIn(c *fiber.Ctx, userID string) error {
	sess, err := m.Store.Get(c)
	if err != nil {
		return err
	}
	sess.Set(sessionUserKey, userID)
	return sess.Save()
}

// SignOut destroys the session, draft included.
func (m *SessionManager) SignOut(c *fiber.Ctx) error {
	sess, err := m.Store.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}

// SelectTournament snapshots the tournament's display fields into a fresh
// draft, replacing whatever draft the session held before.
func (m *SessionManager) SelectTournament(c *fiber.Ctx, t *models.Tournament) (*models.RegistrationDraft, error) {
	draft := &models.RegistrationDraft{
		TournamentID:    t.ID,
		TournamentTitle: t.Title,
		MatchID:         t.MatchID,
		DateTime:        t.DateTime,
		EntryFee:        t.EntryFee,
	}
	return draft, m.putDraft(c, draft)
}

// CompleteDraft validates the player-entered fields and stores them into the
// draft. Validation is local: no database write happens on failure. On
// success the game uid/name and mobile number are saved back to the user's
// profile for pre-filling future registrations; that save is best effort and
// never blocks the flow.
func (m *SessionManager) CompleteDraft(c *fiber.Ctx, userID, playerName, gameUID, gameName, mobileNumber string) (*models.RegistrationDraft, error) {
	if playerName == "" || gameUID == "" || gameName == "" || mobileNumber == "" {
		return nil, &ValidationError{Field: "form", Message: "Please fill in all fields"}
	}
	if !validMobileNumber(mobileNumber) {
		return nil, &ValidationError{Field: "mobile_number", Message: "Please enter a valid 10-digit mobile number"}
	}

	draft, err := m.Draft(c)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, &ValidationError{Field: "tournament", Message: "no tournament selected"}
	}

	draft.PlayerName = playerName
	draft.GameUID = gameUID
	draft.GameName = gameName
	draft.MobileNumber = mobileNumber
	if err := m.putDraft(c, draft); err != nil {
		return nil, err
	}

	if err := m.DB.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"game_uid":      gameUID,
		"game_name":     gameName,
		"mobile_number": mobileNumber,
	}).Error; err != nil {
		// Soft dependency: pre-fill data only, the registration proceeds.
		log.Printf("[session] saving game info to profile %s failed: %v", userID, err)
	}

	return draft, nil
}

// Draft returns the session's draft, or nil when the slot is empty.
func (m *SessionManager) Draft(c *fiber.Ctx) (*models.RegistrationDraft, error) {
	sess, err := m.Store.Get(c)
	if err != nil {
		return nil, err
	}
	raw, ok := sess.Get(sessionDraftKey).(string)
	if !ok || raw == "" {
		return nil, nil
	}
	var draft models.RegistrationDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// ClearDraft empties the slot. Clearing an empty slot is fine.
func (m *SessionManager) ClearDraft(c *fiber.Ctx) error {
	sess, err := m.Store.Get(c)
	if err != nil {
		return err
	}
	sess.Delete(sessionDraftKey)
	return sess.Save()
}

func (m *SessionManager) putDraft(c *fiber.Ctx, draft *models.RegistrationDraft) error {
	sess, err := m.Store.Get(c)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	sess.Set(sessionDraftKey, string(raw))
	return sess.Save()
}

// validMobileNumber requires exactly 10 decimal digits.
func validMobileNumber(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
