package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lomig-tournaments/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
// A single connection serializes writes, which is what SQLite gives us in
// place of Postgres row locks.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory DB")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Tournament{},
		&models.Registration{},
	))

	return db
}

func newTestService(t *testing.T, db *gorm.DB) *RegistrationService {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := NewRegistrationService(ctx, db, NewSessionManager(db), &PaymentInstructions{
		VPA:       "test@upi",
		PayeeName: "Test_Payee",
	})
	svc.PollInterval = 5 * time.Millisecond
	return svc
}

func seedTournament(t *testing.T, db *gorm.DB, maxPlayers, joined int) *models.Tournament {
	t.Helper()

	tournament := &models.Tournament{
		ID:            uuid.NewString(),
		Slug:          "weekly-scrims-" + uuid.NewString()[:8],
		Title:         "Weekly Scrims",
		MatchID:       "M-1042",
		DateTime:      time.Now().Add(24 * time.Hour),
		EntryFee:      50,
		MaxPlayers:    maxPlayers,
		JoinedPlayers: joined,
		Status:        models.TournamentActive,
	}
	require.NoError(t, db.Create(tournament).Error)
	return tournament
}

func seedRegistration(t *testing.T, db *gorm.DB, tournamentID, status string) *models.Registration {
	t.Helper()

	reg := &models.Registration{
		ID:            uuid.NewString(),
		UserID:        uuid.NewString(),
		TournamentID:  tournamentID,
		PlayerName:    "Ravi",
		GameUID:       "519203847",
		GameName:      "RaviOP",
		MobileNumber:  "9876543210",
		UTRNumber:     "UTR123456789",
		PaymentStatus: status,
	}
	require.NoError(t, db.Create(reg).Error)
	return reg
}

func testDraft(tournamentID string) *models.RegistrationDraft {
	return &models.RegistrationDraft{
		TournamentID:    tournamentID,
		TournamentTitle: "Weekly Scrims",
		MatchID:         "M-1042",
		DateTime:        time.Now().Add(24 * time.Hour),
		EntryFee:        50,
		PlayerName:      "Ravi",
		GameUID:         "519203847",
		GameName:        "RaviOP",
		MobileNumber:    "9876543210",
	}
}

func TestIncrementOccupancyConcurrent(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 50, 0)

	const callers = 100
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.IncrementOccupancy(context.Background(), tournament.ID)
		}()
	}
	wg.Wait()
	close(results)

	var ok, full int
	for err := range results {
		switch err {
		case nil:
			ok++
		case ErrCapacityExceeded:
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 50, ok)
	assert.Equal(t, 50, full)

	var got models.Tournament
	require.NoError(t, db.First(&got, "id = ?", tournament.ID).Error)
	assert.Equal(t, 50, got.JoinedPlayers)
}

func TestIncrementOccupancyAtCapacity(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 2, 2)

	err := svc.IncrementOccupancy(context.Background(), tournament.ID)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	var got models.Tournament
	require.NoError(t, db.First(&got, "id = ?", tournament.ID).Error)
	assert.Equal(t, 2, got.JoinedPlayers)
}

func TestIncrementOccupancyUnknownTournament(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	err := svc.IncrementOccupancy(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestSubmitPaymentRequiresUTR(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 10, 0)

	for _, utr := range []string{"", "   "} {
		_, err := svc.SubmitPayment(uuid.NewString(), testDraft(tournament.ID), utr)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "utr_number", verr.Field)
	}

	var count int64
	require.NoError(t, db.Model(&models.Registration{}).Count(&count).Error)
	assert.Zero(t, count, "a rejected submission must not create a record")
}

func TestSubmitPaymentIncompleteDraft(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 10, 0)

	draft := testDraft(tournament.ID)
	draft.MobileNumber = ""

	_, err := svc.SubmitPayment(uuid.NewString(), draft, "UTR123")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "draft", verr.Field)
}

func TestSubmitPaymentCreatesPendingRegistration(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 10, 0)
	userID := uuid.NewString()

	reg, err := svc.SubmitPayment(userID, testDraft(tournament.ID), "  UTR123456789  ")
	require.NoError(t, err)

	var got models.Registration
	require.NoError(t, db.First(&got, "id = ?", reg.ID).Error)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, tournament.ID, got.TournamentID)
	assert.Equal(t, "Weekly Scrims", got.TournamentTitle)
	assert.Equal(t, "UTR123456789", got.UTRNumber)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
	assert.False(t, got.SlotCounted)
}

func TestWatcherCountsOnConfirmation(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 10, 0)
	reg := seedRegistration(t, db, tournament.ID, models.PaymentPending)

	go svc.WatchForConfirmation(reg.ID)

	// Let the watcher observe pending a few times first.
	time.Sleep(20 * time.Millisecond)
	_, err := svc.SetPaymentStatus(reg.ID, models.PaymentConfirmed)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var got models.Registration
		if db.First(&got, "id = ?", reg.ID).Error != nil {
			return false
		}
		return got.SlotCounted
	}, 2*time.Second, 5*time.Millisecond)

	var got models.Tournament
	require.NoError(t, db.First(&got, "id = ?", tournament.ID).Error)
	assert.Equal(t, 1, got.JoinedPlayers)
}

func TestWatcherSurvivesRejection(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 10, 0)
	reg := seedRegistration(t, db, tournament.ID, models.PaymentPending)

	go svc.WatchForConfirmation(reg.ID)

	_, err := svc.SetPaymentStatus(reg.ID, models.PaymentRejected)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	var mid models.Tournament
	require.NoError(t, db.First(&mid, "id = ?", tournament.ID).Error)
	assert.Zero(t, mid.JoinedPlayers, "a rejection must not count the slot")

	// An operator reversing the rejection still gets counted.
	_, err = svc.SetPaymentStatus(reg.ID, models.PaymentSuccess)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var got models.Tournament
		if db.First(&got, "id = ?", tournament.ID).Error != nil {
			return false
		}
		return got.JoinedPlayers == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDuplicateConfirmationCountsOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 10, 0)
	reg := seedRegistration(t, db, tournament.ID, models.PaymentCompleted)

	// Two sequential watch passes over an already-successful status: the
	// second must see slot_counted and leave the occupancy alone.
	svc.WatchForConfirmation(reg.ID)
	svc.WatchForConfirmation(reg.ID)

	var got models.Tournament
	require.NoError(t, db.First(&got, "id = ?", tournament.ID).Error)
	assert.Equal(t, 1, got.JoinedPlayers)

	var gotReg models.Registration
	require.NoError(t, db.First(&gotReg, "id = ?", reg.ID).Error)
	assert.True(t, gotReg.SlotCounted)
}

func TestLastSlotRace(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 2, 1)

	regA := seedRegistration(t, db, tournament.ID, models.PaymentConfirmed)
	regB := seedRegistration(t, db, tournament.ID, models.PaymentConfirmed)

	var wg sync.WaitGroup
	for _, id := range []string{regA.ID, regB.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			svc.WatchForConfirmation(id)
		}(id)
	}
	wg.Wait()

	var got models.Tournament
	require.NoError(t, db.First(&got, "id = ?", tournament.ID).Error)
	assert.Equal(t, 2, got.JoinedPlayers, "occupancy must never exceed capacity")

	var counted int64
	require.NoError(t, db.Model(&models.Registration{}).
		Where("tournament_id = ? AND slot_counted = ?", tournament.ID, true).
		Count(&counted).Error)
	assert.EqualValues(t, 1, counted, "exactly one of the two may take the last slot")
}

func TestCapacityFailureIsTerminal(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 1, 1)
	reg := seedRegistration(t, db, tournament.ID, models.PaymentConfirmed)

	svc.WatchForConfirmation(reg.ID)

	var got models.Registration
	require.NoError(t, db.First(&got, "id = ?", reg.ID).Error)
	assert.False(t, got.SlotCounted)
	assert.True(t, got.CapacityFailed)

	// Freeing a slot and restarting must not seat the registration by
	// itself: resume skips recorded capacity failures.
	require.NoError(t, db.Model(&models.Tournament{}).
		Where("id = ?", tournament.ID).
		Update("max_players", 2).Error)
	require.NoError(t, svc.ResumeWatchers())
	time.Sleep(50 * time.Millisecond)

	var after models.Registration
	require.NoError(t, db.First(&after, "id = ?", reg.ID).Error)
	assert.False(t, after.SlotCounted)

	var tAfter models.Tournament
	require.NoError(t, db.First(&tAfter, "id = ?", tournament.ID).Error)
	assert.Equal(t, 1, tAfter.JoinedPlayers)
}

func TestOperatorResolvesCapacityFailure(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 1, 1)
	reg := seedRegistration(t, db, tournament.ID, models.PaymentConfirmed)

	svc.WatchForConfirmation(reg.ID)

	var failed models.Registration
	require.NoError(t, db.First(&failed, "id = ?", reg.ID).Error)
	require.True(t, failed.CapacityFailed)

	// Operator frees a slot and re-confirms; only that write re-seats it.
	require.NoError(t, db.Model(&models.Tournament{}).
		Where("id = ?", tournament.ID).
		Update("max_players", 2).Error)
	got, err := svc.SetPaymentStatus(reg.ID, models.PaymentConfirmed)
	require.NoError(t, err)
	assert.False(t, got.CapacityFailed)

	require.Eventually(t, func() bool {
		var after models.Registration
		if db.First(&after, "id = ?", reg.ID).Error != nil {
			return false
		}
		return after.SlotCounted
	}, 2*time.Second, 5*time.Millisecond)

	var tAfter models.Tournament
	require.NoError(t, db.First(&tAfter, "id = ?", tournament.ID).Error)
	assert.Equal(t, 2, tAfter.JoinedPlayers)
}

func TestWatcherStopsOnMissingRegistration(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	done := make(chan struct{})
	go func() {
		svc.WatchForConfirmation(uuid.NewString())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop for a missing registration")
	}
}

func TestResumeWatchers(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 10, 0)

	// Confirmed before the service came up, as after a restart.
	reg := seedRegistration(t, db, tournament.ID, models.PaymentConfirmed)

	require.NoError(t, svc.ResumeWatchers())

	require.Eventually(t, func() bool {
		var got models.Registration
		if db.First(&got, "id = ?", reg.ID).Error != nil {
			return false
		}
		return got.SlotCounted
	}, 2*time.Second, 5*time.Millisecond)

	var got models.Tournament
	require.NoError(t, db.First(&got, "id = ?", tournament.ID).Error)
	assert.Equal(t, 1, got.JoinedPlayers)
}

func TestSetPaymentStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 10, 0)
	reg := seedRegistration(t, db, tournament.ID, models.PaymentPending)

	_, err := svc.SetPaymentStatus(reg.ID, "paid-ish")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.SetPaymentStatus(uuid.NewString(), models.PaymentConfirmed)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	got, err := svc.SetPaymentStatus(reg.ID, models.PaymentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentConfirmed, got.PaymentStatus)
}

func TestSetRoomCredentials(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 10, 0)
	reg := seedRegistration(t, db, tournament.ID, models.PaymentConfirmed)

	got, err := svc.SetRoomCredentials(reg.ID, "4451", "scrim99")
	require.NoError(t, err)
	assert.Equal(t, "4451", got.RoomID)
	assert.Equal(t, "scrim99", got.RoomPassword)

	_, err = svc.SetRoomCredentials(uuid.NewString(), "1", "2")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestRegistrationOwnerScoped(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 10, 0)
	reg := seedRegistration(t, db, tournament.ID, models.PaymentPending)

	got, err := svc.Registration(reg.ID, reg.UserID)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, got.ID)

	_, err = svc.Registration(reg.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestRegistrationsForUserNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	tournament := seedTournament(t, db, 10, 0)
	userID := uuid.NewString()

	for i := 0; i < 3; i++ {
		reg := &models.Registration{
			ID:            uuid.NewString(),
			UserID:        userID,
			TournamentID:  tournament.ID,
			PlayerName:    fmt.Sprintf("Player %d", i),
			GameUID:       "1",
			GameName:      "p",
			MobileNumber:  "9876543210",
			UTRNumber:     "UTR",
			PaymentStatus: models.PaymentPending,
			RegisteredAt:  time.Now().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(reg).Error)
	}

	regs, err := svc.RegistrationsForUser(userID)
	require.NoError(t, err)
	require.Len(t, regs, 3)
	assert.Equal(t, "Player 2", regs[0].PlayerName)
	assert.Equal(t, "Player 0", regs[2].PlayerName)
}
