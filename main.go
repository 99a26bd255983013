package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"lomig-tournaments/handlers"
	"lomig-tournaments/models"
	"lomig-tournaments/services"
	"lomig-tournaments/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 8 * 1024 * 1024, // avatars and banners only
	})

	app.Use(recover.New())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Admin-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := utils.InitR2(ctx); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Tournament{},
		&models.Registration{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	upiVPA := os.Getenv("UPI_VPA")
	if upiVPA == "" {
		log.Fatal("UPI_VPA environment variable not set")
	}
	payeeName := os.Getenv("UPI_PAYEE_NAME")
	if payeeName == "" {
		payeeName = "Lomig_Tournaments"
	}

	sessions := services.NewSessionManager(db)
	authService := services.NewAuthService(db, sessions)
	tournamentService := services.NewTournamentService(db)
	registrationService := services.NewRegistrationService(ctx, db, sessions, &services.PaymentInstructions{
		VPA:       upiVPA,
		PayeeName: payeeName,
	})

	// Re-attach confirmation watchers lost to the previous shutdown.
	if err := registrationService.ResumeWatchers(); err != nil {
		log.Fatal("failed to resume confirmation watchers:", err)
	}

	tournamentService.StartLifecycleScheduler()

	handlers.SetupAuthRoutes(app, authService, sessions)
	handlers.SetupTournamentRoutes(app, tournamentService, sessions)
	handlers.SetupRegistrationRoutes(app, registrationService, sessions)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":5300"
	}

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on %s", addr)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
