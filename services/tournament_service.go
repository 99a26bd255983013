package services

import (
	"errors"
	"log"
	"path/filepath"
	"strconv"
	"time"

	"lomig-tournaments/models"
	"lomig-tournaments/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type TournamentService struct {
	DB *gorm.DB
}

func NewTournamentService(db *gorm.DB) *TournamentService {
	return &TournamentService{DB: db}
}

// ListTournaments returns admin-created tournaments, active ones first and
// then by start time, the order the lobby renders them in.
func (s *TournamentService) ListTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	err := s.DB.
		Where("admin_created = ?", true).
		Order("CASE WHEN status = 'active' THEN 0 ELSE 1 END, date_time ASC").
		Find(&tournaments).Error
	if err != nil {
		log.Printf("ERROR listing tournaments: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	return c.JSON(tournaments)
}

// GetTournament returns one tournament by id.
func (s *TournamentService) GetTournament(c *fiber.Ctx) error {
	id := c.Params("id")
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		log.Printf("ERROR fetching tournament %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(tournament)
}

// CreateTournament creates an admin tournament from a multipart form, with an
// optional banner image uploaded to the blob store.
func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	title := c.FormValue("title")
	matchID := c.FormValue("match_id")
	dateTimeStr := c.FormValue("date_time")
	if title == "" || matchID == "" || dateTimeStr == "" {
		return c.Status(400).JSON(fiber.Map{"error": "title, match_id and date_time are required"})
	}

	dateTime, err := time.Parse(time.RFC3339, dateTimeStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid date_time (use RFC3339)"})
	}

	maxPlayers := 100
	if v := c.FormValue("max_players"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.Status(400).JSON(fiber.Map{"error": "max_players must be a positive integer"})
		}
		maxPlayers = n
	}

	parseFee := func(name string) (float64, bool) {
		v := c.FormValue(name)
		if v == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil && f >= 0
	}
	entryFee, ok := parseFee("entry_fee")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "entry_fee must be a non-negative number"})
	}
	prizePool, ok := parseFee("prize_pool")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "prize_pool must be a non-negative number"})
	}
	perKill, ok := parseFee("per_kill")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "per_kill must be a non-negative number"})
	}

	matchType := c.FormValue("match_type")
	if matchType == "" {
		matchType = "Classic"
	}

	id := uuid.NewString()

	var imageURL string
	if image, err := c.FormFile("image"); err == nil && image.Size > 0 {
		ext := filepath.Ext(image.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		key := "tournaments/" + id + ext
		imageURL, err = utils.UploadFileToR2(c.UserContext(), image, key)
		if err != nil {
			log.Printf("ERROR uploading tournament image for %s: %v", id, err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload tournament image"})
		}
	}

	tournament := &models.Tournament{
		ID:           id,
		Slug:         slug.Make(title) + "-" + id[:8],
		Title:        title,
		MatchID:      matchID,
		DateTime:     dateTime,
		EntryFee:     entryFee,
		PrizePool:    prizePool,
		PerKill:      perKill,
		MatchType:    matchType,
		MaxPlayers:   maxPlayers,
		Status:       models.TournamentUpcoming,
		AdminCreated: true,
		ImageURL:     imageURL,
	}

	if err := s.DB.Create(tournament).Error; err != nil {
		log.Printf("ERROR creating tournament: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(tournament)
}

// UpdateTournamentStatus moves a tournament through its lifecycle. Occupancy
// is deliberately not updatable here: joined_players only moves through the
// increment transaction.
func (s *TournamentService) UpdateTournamentStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	type Req struct {
		Status string `json:"status"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	switch req.Status {
	case models.TournamentUpcoming, models.TournamentActive, models.TournamentClosed:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "invalid status"})
	}
	res := s.DB.Model(&models.Tournament{}).Where("id = ?", id).Update("status", req.Status)
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB update failed"})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}
	var updated models.Tournament
	s.DB.First(&updated, "id = ?", id)
	return c.JSON(updated)
}
