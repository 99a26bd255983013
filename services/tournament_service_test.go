package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lomig-tournaments/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTournamentTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	svc := NewTournamentService(db)
	app := fiber.New()
	app.Get("/tournaments", svc.ListTournaments)
	app.Get("/tournaments/:id", svc.GetTournament)
	app.Patch("/tournaments/:id/status", svc.UpdateTournamentStatus)
	return app
}

func seedListedTournament(t *testing.T, db *gorm.DB, title, status string, start time.Time) *models.Tournament {
	t.Helper()

	tournament := &models.Tournament{
		ID:           uuid.NewString(),
		Slug:         "listed-" + uuid.NewString()[:8],
		Title:        title,
		MatchID:      "M-1",
		DateTime:     start,
		MaxPlayers:   100,
		Status:       status,
		AdminCreated: true,
	}
	require.NoError(t, db.Create(tournament).Error)
	return tournament
}

func TestListTournamentsActiveFirst(t *testing.T) {
	db := setupTestDB(t)
	app := newTournamentTestApp(t, db)

	now := time.Now()
	seedListedTournament(t, db, "Upcoming Early", models.TournamentUpcoming, now.Add(1*time.Hour))
	seedListedTournament(t, db, "Active Late", models.TournamentActive, now.Add(48*time.Hour))
	seedListedTournament(t, db, "Closed", models.TournamentClosed, now.Add(-1*time.Hour))
	seedListedTournament(t, db, "Active Early", models.TournamentActive, now.Add(2*time.Hour))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tournaments", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var got []models.Tournament
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 4)

	assert.Equal(t, "Active Early", got[0].Title)
	assert.Equal(t, "Active Late", got[1].Title)
	assert.Equal(t, "Closed", got[2].Title)
	assert.Equal(t, "Upcoming Early", got[3].Title)
}

func TestGetTournamentNotFound(t *testing.T) {
	db := setupTestDB(t)
	app := newTournamentTestApp(t, db)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tournaments/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateTournamentStatus(t *testing.T) {
	db := setupTestDB(t)
	app := newTournamentTestApp(t, db)
	tournament := seedListedTournament(t, db, "Scrims", models.TournamentUpcoming, time.Now().Add(time.Hour))

	patch := func(id, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPatch, "/tournaments/"+id+"/status", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := patch(tournament.ID, `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = patch(uuid.NewString(), `{"status":"active"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = patch(tournament.ID, `{"status":"active"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.Tournament
	require.NoError(t, db.First(&got, "id = ?", tournament.ID).Error)
	assert.Equal(t, models.TournamentActive, got.Status)
}

func TestActivateDueTournaments(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTournamentService(db)

	now := time.Now()
	due := seedListedTournament(t, db, "Due", models.TournamentUpcoming, now.Add(-5*time.Minute))
	future := seedListedTournament(t, db, "Future", models.TournamentUpcoming, now.Add(5*time.Hour))
	closed := seedListedTournament(t, db, "Closed", models.TournamentClosed, now.Add(-5*time.Hour))

	n, err := svc.ActivateDueTournaments()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var gotDue, gotFuture, gotClosed models.Tournament
	require.NoError(t, db.First(&gotDue, "id = ?", due.ID).Error)
	assert.Equal(t, models.TournamentActive, gotDue.Status)

	require.NoError(t, db.First(&gotFuture, "id = ?", future.ID).Error)
	assert.Equal(t, models.TournamentUpcoming, gotFuture.Status)

	require.NoError(t, db.First(&gotClosed, "id = ?", closed.ID).Error)
	assert.Equal(t, models.TournamentClosed, gotClosed.Status)
}
