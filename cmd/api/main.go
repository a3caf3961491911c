package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anjiri1684/career_mentor/auth"
	"github.com/anjiri1684/career_mentor/cache"
	"github.com/anjiri1684/career_mentor/clients"
	config "github.com/anjiri1684/career_mentor/configs"
	"github.com/anjiri1684/career_mentor/database"
	"github.com/anjiri1684/career_mentor/handlers"
	"github.com/anjiri1684/career_mentor/jobs"
	"github.com/anjiri1684/career_mentor/metrics"
	"github.com/anjiri1684/career_mentor/notifications"
	"github.com/anjiri1684/career_mentor/payments"
	"github.com/anjiri1684/career_mentor/routes"
	"github.com/anjiri1684/career_mentor/services"
	"github.com/anjiri1684/career_mentor/uploads"
	"github.com/anjiri1684/career_mentor/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("🔥 Invalid configuration: %v", err)
	}
	appLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("🔥 %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("🔥 %v", err)
	}
	if err := database.SeedAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminFullName); err != nil {
		log.Fatalf("🔥 Failed to seed admin: %v", err)
	}

	m := metrics.New()
	identityStore := database.NewIdentityStore(db)
	ledger := database.NewSessionLedger(db)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	var mailer notifications.Mailer
	if cfg.SMTP.Enabled() {
		mailer = notifications.NewEmailService(notifications.NewSMTPTransport(cfg.SMTP), cfg.SMTP.From)
		log.Println("✅ SMTP email delivery enabled")
	} else {
		mailer = notifications.NewLogMailer(appLog)
		log.Println("⚠️ SMTP not configured, emails will only be logged")
	}
	notifier := notifications.NewNotifier(mailer, appLog, m)

	var mentorCache services.Cache
	if cfg.RedisAddr != "" {
		rc, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			log.Printf("⚠️ Redis unavailable, mentor directory will not be cached: %v", err)
		} else {
			defer rc.Close()
			mentorCache = rc
			log.Println("✅ Redis cache connected")
		}
	}
	directory := services.NewMentorDirectory(identityStore, mentorCache, m, appLog)

	var signer handlers.UploadSigner
	var receipts services.ReceiptIssuer
	if cfg.CloudinaryURL != "" {
		storage, err := uploads.NewStorage(cfg.CloudinaryURL)
		if err != nil {
			log.Fatalf("🔥 Failed to initialize Cloudinary: %v", err)
		}
		signer = storage
		receipts = services.NewReceiptService(storage)
	} else {
		log.Println("⚠️ CLOUDINARY_URL not set, uploads and receipts are disabled")
	}

	hub := websocket.NewHub(appLog)
	go hub.Run(ctx)

	gateway := payments.NewStripeService(cfg.StripeAPIKey, cfg.StripeAPIBaseURL)
	bookings := services.NewBookingService(services.BookingDeps{
		Ledger:    ledger,
		Profiles:  identityStore,
		Gateway:   gateway,
		Notifier:  notifier,
		Publisher: hub,
		Receipts:  receipts,
		Metrics:   m,
		Log:       appLog,
	}, services.BookingConfig{BaseURL: cfg.AppBaseURL, Currency: cfg.PaymentCurrency})

	resumes := services.NewResumeService(clients.NewResumeParserClient(cfg.ResumeParserURL), appLog)
	identity := services.NewIdentityService(identityStore, tokens, resumes, directory, appLog)
	dashboards := services.NewDashboardService(identityStore, directory, bookings, cfg.ProgramWeeks)
	advisor := services.NewAdvisorService(identityStore, ledger, clients.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel), appLog)

	reminder := jobs.NewWeeklyReminder(identityStore, notifier, appLog)
	c := cron.New()
	if _, err := reminder.Schedule(ctx, c, cfg.ReminderSchedule); err != nil {
		log.Fatalf("🔥 Failed to schedule weekly reminders: %v", err)
	}
	c.Start()
	log.Println("✅ Cron job for weekly reminders scheduled successfully.")

	app := fiber.New(fiber.Config{
		AppName:       "Career Mentor",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler:  handlers.ErrorHandler(appLog),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Stripe-Signature, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Career Mentor API",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	secret := tokens.Secret()
	routes.AuthRoutes(app, handlers.NewAuthHandler(identity, handlers.CookieOptions{
		TTL:    cfg.TokenTTL,
		Secure: strings.HasPrefix(cfg.AppBaseURL, "https://"),
	}, appLog))
	routes.BookingRoutes(app, secret, handlers.NewBookingHandler(bookings, appLog))
	routes.PaymentRoutes(app, handlers.NewPaymentHandler(bookings, cfg.StripeWebhookSecret, appLog))
	routes.ProfileRoutes(app, secret, handlers.NewProfileHandler(dashboards, identity, advisor, appLog))
	routes.UploadRoutes(app, handlers.NewUploadHandler(signer, appLog))
	routes.RealtimeRoutes(app, handlers.NewRealtimeHandler(tokens, hub))

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("⚠️ Server shutdown: %v", err)
		}
	}()

	log.Printf("✅ Server is running on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}

	<-c.Stop().Done()
	bookings.Wait()
	notifier.Wait()
	log.Println("✅ Background work drained, bye.")
}
