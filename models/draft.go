package models

import (
	"time"
)

// RegistrationDraft is the transient, session-held registration in progress.
// It is never persisted: one slot per session, overwritten by a new tournament
// selection and discarded once the durable Registration row exists.
type RegistrationDraft struct {
	TournamentID    string    `json:"tournament_id"`
	TournamentTitle string    `json:"tournament_title"`
	MatchID         string    `json:"match_id"`
	DateTime        time.Time `json:"date_time"`
	EntryFee        float64   `json:"entry_fee"`

	PlayerName   string `json:"player_name"`
	GameUID      string `json:"game_uid"`
	GameName     string `json:"game_name"`
	MobileNumber string `json:"mobile_number"`
}

// Complete reports whether the player fields have been filled in, i.e. the
// draft is ready for payment submission.
func (d *RegistrationDraft) Complete() bool {
	return d.PlayerName != "" && d.GameUID != "" && d.GameName != "" && d.MobileNumber != ""
}
