package jobs

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/anjiri1684/career_mentor/database"
	"github.com/anjiri1684/career_mentor/models"
	"github.com/anjiri1684/career_mentor/notifications"
	"github.com/anjiri1684/career_mentor/utils"
	"github.com/robfig/cron/v3"
)

type StudentSource interface {
	QueryStudents(ctx context.Context, q database.StudentQuery) (iter.Seq2[models.Student, error], error)
}

type Sender interface {
	Send(ctx context.Context, msg notifications.Message) bool
}

// WeeklyReminder emails every student their weekly task reminder. It holds
// no per-student timers; a scheduler calls Run.
type WeeklyReminder struct {
	students StudentSource
	sender   Sender
	log      *slog.Logger
}

type ReminderReport struct {
	Sent   int
	Failed int
}

func NewWeeklyReminder(students StudentSource, sender Sender, log *slog.Logger) *WeeklyReminder {
	return &WeeklyReminder{students: students, sender: sender, log: log}
}

func (r *WeeklyReminder) SendWeeklyReminder(ctx context.Context, email string) bool {
	return r.sender.Send(ctx, notifications.Message{
		To:      email,
		Subject: "Weekly tasks due",
		Body:    "Your weekly tasks are due! Check your study plan on the dashboard and keep going.",
	})
}

// Run reminds each registered student once, stopping early if ctx ends.
// Recipients are read in full before any mail goes out so the query does
// not hold a pool connection while the mailer is slow.
func (r *WeeklyReminder) Run(ctx context.Context) (ReminderReport, error) {
	var report ReminderReport
	r.log.InfoContext(ctx, "running job: weekly reminders")

	emails, err := r.recipients(ctx)
	if err != nil {
		return report, err
	}
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if r.SendWeeklyReminder(ctx, email) {
			report.Sent++
		} else {
			report.Failed++
		}
	}

	r.log.InfoContext(ctx, "weekly reminders finished",
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed))
	return report, nil
}

func (r *WeeklyReminder) recipients(ctx context.Context) ([]string, error) {
	seq, err := r.students.QueryStudents(ctx, database.StudentQuery{OrderBy: "joined_at"})
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	var emails []string
	for student, err := range seq {
		if err != nil {
			return nil, fmt.Errorf("iterate students: %w", err)
		}
		emails = append(emails, student.Email)
	}
	return emails, nil
}

// Schedule registers Run on c under a standard five-field cron spec.
func (r *WeeklyReminder) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if _, err := r.Run(ctx); err != nil {
			r.log.ErrorContext(ctx, "weekly reminder job failed", utils.ErrAttr(err))
		}
	})
}
