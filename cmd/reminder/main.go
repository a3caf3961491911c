// Command reminder sends the weekly task reminder to every student once and
// exits. It is meant to be run by an external scheduler.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	config "github.com/anjiri1684/career_mentor/configs"
	"github.com/anjiri1684/career_mentor/database"
	"github.com/anjiri1684/career_mentor/jobs"
	"github.com/anjiri1684/career_mentor/metrics"
	"github.com/anjiri1684/career_mentor/notifications"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("🔥 Invalid configuration: %v", err)
	}
	appLog := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("🔥 %v", err)
	}

	var mailer notifications.Mailer = notifications.NewLogMailer(appLog)
	if cfg.SMTP.Enabled() {
		mailer = notifications.NewEmailService(notifications.NewSMTPTransport(cfg.SMTP), cfg.SMTP.From)
	}
	notifier := notifications.NewNotifier(mailer, appLog, metrics.New())

	report, err := jobs.NewWeeklyReminder(database.NewIdentityStore(db), notifier, appLog).Run(ctx)
	if err != nil {
		log.Fatalf("🔥 Weekly reminder run failed after %d sent: %v", report.Sent, err)
	}
	log.Printf("✅ Weekly reminders done: %d sent, %d failed", report.Sent, report.Failed)
}
