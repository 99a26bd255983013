package models

import (
	"time"
)

// Payment statuses as written by operators. Three distinct values count as a
// successful payment; they are treated as synonyms and never collapsed, so an
// operator may set whichever their tooling produces.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentSuccess   = "success"
	PaymentCompleted = "completed"
	PaymentRejected  = "rejected"
)

// SuccessStatuses is the equivalence set of terminal "paid" statuses.
var SuccessStatuses = []string{PaymentConfirmed, PaymentSuccess, PaymentCompleted}

// IsSuccessStatus reports whether status means the payment went through.
func IsSuccessStatus(status string) bool {
	for _, s := range SuccessStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Registration is the durable record created at payment submission. Tournament
// display fields are denormalized at creation time so later tournament edits
// never alter the receipt. PaymentStatus is written only by operator tooling;
// the confirmation watcher reacts to whatever value it observes. SlotCounted
// flips inside the same transaction as the occupancy increment, which keeps
// the increment exactly-once across watcher restarts.
type Registration struct {
	ID           string `json:"id" gorm:"primaryKey"`
	UserID       string `json:"user_id" gorm:"not null;index"`
	TournamentID string `json:"tournament_id" gorm:"not null;index"`

	// Snapshot of the tournament at registration time.
	TournamentTitle string    `json:"tournament_title"`
	MatchID         string    `json:"match_id"`
	DateTime        time.Time `json:"date_time"`
	EntryFee        float64   `json:"entry_fee"`

	// Player-entered fields.
	PlayerName   string `json:"player_name" gorm:"not null"`
	GameUID      string `json:"game_uid" gorm:"not null"`
	GameName     string `json:"game_name" gorm:"not null"`
	MobileNumber string `json:"mobile_number" gorm:"not null"`

	// UTR / payment reference: user-supplied evidence of the off-band UPI
	// transfer. Never verified against any bank rail.
	UTRNumber     string `json:"utr_number" gorm:"not null"`
	PaymentStatus string `json:"payment_status" gorm:"default:'pending';index"`
	SlotCounted   bool   `json:"slot_counted" gorm:"default:false"`

	// CapacityFailed marks a successful payment that lost the race for the
	// last slot. Terminal: the registration is never re-watched until an
	// operator writes its status again.
	CapacityFailed bool `json:"capacity_failed" gorm:"default:false"`

	// Room credentials, set by an admin once the match room exists.
	RoomID       string `json:"room_id,omitempty"`
	RoomPassword string `json:"room_password,omitempty"`

	RegisteredAt time.Time `json:"registered_at" gorm:"autoCreateTime"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
