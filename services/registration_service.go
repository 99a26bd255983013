package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"lomig-tournaments/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultPollInterval is how often a confirmation watcher re-reads its
// registration record.
const DefaultPollInterval = 2 * time.Second

// RegistrationService turns a validated draft into a durable registration and
// reconciles eventual payment confirmation against tournament capacity. All
// status transitions are written by operators; this service only observes
// them.
type RegistrationService struct {
	DB           *gorm.DB
	Sessions     *SessionManager
	Payments     *PaymentInstructions
	PollInterval time.Duration

	ctx      context.Context // bounds every watcher goroutine
	watching sync.Map        // registration id -> struct{}
}

func NewRegistrationService(ctx context.Context, db *gorm.DB, sessions *SessionManager, payments *PaymentInstructions) *RegistrationService {
	return &RegistrationService{
		DB:           db,
		Sessions:     sessions,
		Payments:     payments,
		PollInterval: DefaultPollInterval,
		ctx:          ctx,
	}
}

// SubmitPayment creates the registration record for a completed draft with
// the given UTR / payment reference and begins watching it for confirmation.
// Exactly one record is created per successful call. The caller must discard
// the draft only after this returns nil, so a failed write leaves the draft
// intact for retry.
func (s *RegistrationService) SubmitPayment(userID string, draft *models.RegistrationDraft, utrNumber string) (*models.Registration, error) {
	utrNumber = strings.TrimSpace(utrNumber)
	if utrNumber == "" {
		return nil, &ValidationError{Field: "utr_number", Message: "Please enter UTR number / Payment reference ID"}
	}
	if draft == nil || !draft.Complete() {
		return nil, &ValidationError{Field: "draft", Message: "registration details are incomplete"}
	}

	reg := &models.Registration{
		ID:           uuid.NewString(),
		UserID:       userID,
		TournamentID: draft.TournamentID,

		TournamentTitle: draft.TournamentTitle,
		MatchID:         draft.MatchID,
		DateTime:        draft.DateTime,
		EntryFee:        draft.EntryFee,

		PlayerName:   draft.PlayerName,
		GameUID:      draft.GameUID,
		GameName:     draft.GameName,
		MobileNumber: draft.MobileNumber,

		UTRNumber:     utrNumber,
		PaymentStatus: models.PaymentPending,
	}

	if err := s.DB.Create(reg).Error; err != nil {
		return nil, err
	}

	go s.WatchForConfirmation(reg.ID)

	return reg, nil
}

// WatchForConfirmation polls the registration until a success status is
// observed, then increments the tournament occupancy exactly once and stops.
// Rejected and pending statuses leave the watcher subscribed, so a reversal
// followed by re-confirmation is still counted. A capacity failure is
// recorded on the registration and the watcher stops: that registration is
// not re-watched, not even across restarts, until an operator writes its
// status again. Watching an already-watched registration is a no-op.
func (s *RegistrationService) WatchForConfirmation(registrationID string) {
	if _, loaded := s.watching.LoadOrStore(registrationID, struct{}{}); loaded {
		return
	}
	defer s.watching.Delete(registrationID)

	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			var reg models.Registration
			err := s.DB.First(&reg, "id = ?", registrationID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[watch] registration %s no longer exists, stopping watcher", registrationID)
				return
			}
			if err != nil {
				log.Printf("[watch] registration %s: read failed: %v", registrationID, err)
				continue
			}
			if !models.IsSuccessStatus(reg.PaymentStatus) {
				continue
			}
			if err := s.countConfirmed(&reg); err != nil {
				log.Printf("[watch] registration %s: occupancy increment failed for tournament %s: %v",
					reg.ID, reg.TournamentID, err)
				if errors.Is(err, ErrCapacityExceeded) {
					s.markCapacityFailed(reg.ID)
				}
			}
			return
		}
	}
}

// countConfirmed marks the registration counted and increments occupancy in
// one transaction. The slot_counted guard makes the increment idempotent
// under duplicate notifications and watcher restarts; on a capacity failure
// the whole transaction rolls back, leaving the registration uncounted for an
// operator to resolve.
func (s *RegistrationService) countConfirmed(reg *models.Registration) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Registration{}).
			Where("id = ? AND slot_counted = ?", reg.ID, false).
			UpdateColumn("slot_counted", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadyCounted
		}
		return incrementOccupancyTx(tx, reg.TournamentID)
	})
	if errors.Is(err, errAlreadyCounted) {
		return nil
	}
	return err
}

// IncrementOccupancy atomically adds one joined player to the tournament,
// bounded by its capacity. Fails with ErrTournamentNotFound if the tournament
// does not exist and ErrCapacityExceeded, without writing, if it is full.
// Under arbitrarily many concurrent callers the final count never exceeds
// max_players and no successful increment is lost.
func (s *RegistrationService) IncrementOccupancy(ctx context.Context, tournamentID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return incrementOccupancyTx(tx, tournamentID)
	})
}

func incrementOccupancyTx(tx *gorm.DB, tournamentID string) error {
	res := tx.Model(&models.Tournament{}).
		Where("id = ? AND joined_players < max_players", tournamentID).
		UpdateColumns(map[string]interface{}{
			"joined_players": gorm.Expr("joined_players + 1"),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	// Nothing moved: the tournament is either gone or full.
	var count int64
	if err := tx.Model(&models.Tournament{}).Where("id = ?", tournamentID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrTournamentNotFound
	}
	return ErrCapacityExceeded
}

// markCapacityFailed persists a terminal capacity failure so the
// registration is skipped by ResumeWatchers until an operator intervenes.
func (s *RegistrationService) markCapacityFailed(id string) {
	if err := s.DB.Model(&models.Registration{}).
		Where("id = ?", id).
		UpdateColumn("capacity_failed", true).Error; err != nil {
		log.Printf("[watch] registration %s: recording capacity failure failed: %v", id, err)
	}
}

// ResumeWatchers re-attaches confirmation watchers after a restart, for every
// registration whose slot has not been counted yet. Re-watching is safe: the
// slot_counted guard keeps the increment exactly-once. Registrations that
// already lost a capacity race are excluded; only an operator status write
// puts them back in play.
func (s *RegistrationService) ResumeWatchers() error {
	var ids []string
	if err := s.DB.Model(&models.Registration{}).
		Where("slot_counted = ? AND capacity_failed = ?", false, false).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	for _, id := range ids {
		go s.WatchForConfirmation(id)
	}
	if len(ids) > 0 {
		log.Printf("[watch] resumed %d confirmation watcher(s)", len(ids))
	}
	return nil
}

// RegistrationsForUser returns the user's joined matches, newest first.
func (s *RegistrationService) RegistrationsForUser(userID string) ([]models.Registration, error) {
	var regs []models.Registration
	err := s.DB.Where("user_id = ?", userID).
		Order("registered_at DESC").
		Find(&regs).Error
	return regs, err
}

// Registration fetches one record, scoped to its owner.
func (s *RegistrationService) Registration(id, userID string) (*models.Registration, error) {
	var reg models.Registration
	err := s.DB.Where("id = ? AND user_id = ?", id, userID).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// SetPaymentStatus is the operator-side status write that the confirmation
// watchers observe. The service never validates transitions: an operator may
// reject a confirmed payment or re-confirm a rejected one. Writing a status
// clears any recorded capacity failure and, for an uncounted registration,
// re-attaches its watcher, so this is the one action that puts a stuck
// registration back in play.
func (s *RegistrationService) SetPaymentStatus(id, status string) (*models.Registration, error) {
	switch status {
	case models.PaymentPending, models.PaymentConfirmed, models.PaymentSuccess,
		models.PaymentCompleted, models.PaymentRejected:
	default:
		return nil, &ValidationError{Field: "payment_status", Message: "invalid status"}
	}
	res := s.DB.Model(&models.Registration{}).Where("id = ?", id).Updates(map[string]interface{}{
		"payment_status":  status,
		"capacity_failed": false,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrRegistrationNotFound
	}
	var reg models.Registration
	if err := s.DB.First(&reg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if !reg.SlotCounted {
		go s.WatchForConfirmation(reg.ID)
	}
	return &reg, nil
}

// SetRoomCredentials stores the match room id/password on a registration.
func (s *RegistrationService) SetRoomCredentials(id, roomID, roomPassword string) (*models.Registration, error) {
	res := s.DB.Model(&models.Registration{}).Where("id = ?", id).Updates(map[string]interface{}{
		"room_id":       roomID,
		"room_password": roomPassword,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrRegistrationNotFound
	}
	var reg models.Registration
	if err := s.DB.First(&reg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}
