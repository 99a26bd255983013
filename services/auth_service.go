package services

import (
	"errors"
	"log"
	"path/filepath"
	"strings"

	"lomig-tournaments/models"
	"lomig-tournaments/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const maxAvatarSize = 2 * 1024 * 1024 // 2MB

// AuthService owns accounts and the profile. Sign-in state lives in the
// cookie session via SessionManager.
type AuthService struct {
	DB       *gorm.DB
	Sessions *SessionManager
}

func NewAuthService(db *gorm.DB, sessions *SessionManager) *AuthService {
	return &AuthService{DB: db, Sessions: sessions}
}

// SignUp creates an account and signs the new user in.
func (s *AuthService) SignUp(c *fiber.Ctx) error {
	type Req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name, email and password are required"})
	}
	if len(req.Password) < 6 {
		return c.Status(400).JSON(fiber.Map{"error": "password must be at least 6 characters"})
	}

	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if count > 0 {
		return c.Status(409).JSON(fiber.Map{"error": "email already in use"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create account"})
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.DB.Create(user).Error; err != nil {
		log.Printf("ERROR creating user %s: %v", req.Email, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create account"})
	}

	if err := s.Sessions.SignIn(c, user.ID); err != nil {
		log.Printf("ERROR starting session for %s: %v", user.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to start session"})
	}
	return c.Status(201).JSON(s.profileJSON(user))
}

// SignIn checks credentials and binds the session.
func (s *AuthService) SignIn(c *fiber.Ctx) error {
	type Req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := s.DB.First(&user, "email = ?", req.Email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) ||
		(err == nil && bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil) {
		return c.Status(401).JSON(fiber.Map{"error": "invalid email or password"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.Sessions.SignIn(c, user.ID); err != nil {
		log.Printf("ERROR starting session for %s: %v", user.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to start session"})
	}
	return c.JSON(s.profileJSON(&user))
}

// SignOut ends the session, discarding any draft with it.
func (s *AuthService) SignOut(c *fiber.Ctx) error {
	if err := s.Sessions.SignOut(c); err != nil {
		log.Printf("ERROR destroying session: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to sign out"})
	}
	return c.JSON(fiber.Map{"message": "signed out"})
}

// Me returns the signed-in user's profile.
func (s *AuthService) Me(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "not signed in"})
	}
	return c.JSON(s.profileJSON(user))
}

// UpdateProfile changes the display name and, when a photo is attached,
// uploads it to the blob store keyed by user id and stores the returned URL.
func (s *AuthService) UpdateProfile(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "not signed in"})
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Display name cannot be empty."})
	}

	updates := map[string]interface{}{"name": name}

	if photo, err := c.FormFile("photo"); err == nil && photo.Size > 0 {
		if !strings.HasPrefix(photo.Header.Get("Content-Type"), "image/") {
			return c.Status(400).JSON(fiber.Map{"error": "Please select an image file (JPG, PNG, GIF)."})
		}
		if photo.Size > maxAvatarSize {
			return c.Status(400).JSON(fiber.Map{"error": "Image size should be less than 2MB."})
		}
		key := "profile-images/" + user.ID + filepath.Ext(photo.Filename)
		url, err := utils.UploadFileToR2(c.UserContext(), photo, key)
		if err != nil {
			log.Printf("ERROR uploading avatar for %s: %v", user.ID, err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload profile image"})
		}
		updates["photo_url"] = url
	}

	if err := s.DB.Model(user).Updates(updates).Error; err != nil {
		log.Printf("ERROR updating profile %s: %v", user.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to update profile"})
	}

	var updated models.User
	if err := s.DB.First(&updated, "id = ?", user.ID).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(s.profileJSON(&updated))
}

// currentUser loads the user id left by the RequireUser middleware.
func (s *AuthService) currentUser(c *fiber.Ctx) (*models.User, error) {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return nil, errNotSignedIn
	}
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// profileJSON shapes the user for responses, substituting the generated
// avatar when no photo was uploaded.
func (s *AuthService) profileJSON(user *models.User) fiber.Map {
	photoURL := user.PhotoURL
	if photoURL == "" {
		photoURL = utils.FallbackAvatarURL(user.Name)
	}
	return fiber.Map{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"photo_url":     photoURL,
		"game_uid":      user.GameUID,
		"game_name":     user.GameName,
		"mobile_number": user.MobileNumber,
	}
}
