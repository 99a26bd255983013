package models

import (
	"time"
)

// Tournament lifecycle statuses. Only active tournaments accept registrations.
const (
	TournamentUpcoming = "upcoming"
	TournamentActive   = "active"
	TournamentClosed   = "closed"
)

// Tournament is an admin-created match listing. JoinedPlayers is the
// capacity-bounded occupancy counter: 0 <= joined_players <= max_players at
// all times, and it is only ever mutated through
// RegistrationService.IncrementOccupancy.
type Tournament struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Slug          string    `json:"slug" gorm:"uniqueIndex"`
	Title         string    `json:"title" gorm:"not null"`
	MatchID       string    `json:"match_id" gorm:"not null"`
	DateTime      time.Time `json:"date_time" gorm:"not null"`
	EntryFee      float64   `json:"entry_fee" gorm:"default:0"`
	PrizePool     float64   `json:"prize_pool" gorm:"default:0"`
	PerKill       float64   `json:"per_kill" gorm:"default:0"`
	MatchType     string    `json:"match_type" gorm:"default:'Classic'"`
	MaxPlayers    int       `json:"max_players" gorm:"not null"`
	JoinedPlayers int       `json:"joined_players" gorm:"default:0"`
	Status        string    `json:"status" gorm:"default:'upcoming';index"`
	AdminCreated  bool      `json:"admin_created" gorm:"default:true"`
	ImageURL      string    `json:"image_url"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AvailableSlots is computed, never stored.
func (t *Tournament) AvailableSlots() int {
	n := t.MaxPlayers - t.JoinedPlayers
	if n < 0 {
		return 0
	}
	return n
}
