package services

import (
	"log"
	"time"

	"lomig-tournaments/models"

	"github.com/go-co-op/gocron/v2"
)

// StartLifecycleScheduler flips upcoming tournaments to active once their
// scheduled start time arrives. Closing stays an admin action: matches end
// when the admin says so, not on a timer.
func (s *TournamentService) StartLifecycleScheduler() {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[scheduler] failed to create scheduler: %v", err)
		return
	}

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			n, err := s.ActivateDueTournaments()
			if err != nil {
				log.Printf("[scheduler] activating tournaments failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("[scheduler] activated %d tournament(s)", n)
			}
		}),
	)
	if err != nil {
		log.Printf("[scheduler] failed to schedule activation job: %v", err)
		return
	}

	sched.Start()
}

// ActivateDueTournaments activates every upcoming tournament whose start time
// has passed and reports how many moved.
func (s *TournamentService) ActivateDueTournaments() (int64, error) {
	res := s.DB.Model(&models.Tournament{}).
		Where("status = ? AND date_time <= ?", models.TournamentUpcoming, time.Now()).
		Update("status", models.TournamentActive)
	return res.RowsAffected, res.Error
}
