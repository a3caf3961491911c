package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/anjiri1684/career_mentor/auth"
	"github.com/anjiri1684/career_mentor/database"
	"github.com/anjiri1684/career_mentor/metrics"
	"github.com/anjiri1684/career_mentor/models"
	"github.com/anjiri1684/career_mentor/notifications"
	"github.com/anjiri1684/career_mentor/payments"
	"github.com/anjiri1684/career_mentor/utils"
	"github.com/google/uuid"
)

const (
	gatewayTimeout     = 10 * time.Second
	maxSessionMinutes  = 8 * 60
	upcomingSessionCap = 5

	RefundNotHandled    = "not_handled"
	RefundNotApplicable = "not_applicable"
)

type SessionLedger interface {
	Create(ctx context.Context, session *models.Session, actor string) error
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Transition(ctx context.Context, req database.TransitionRequest) (*models.Session, error)
	List(ctx context.Context, q database.SessionQuery) ([]models.Session, error)
	SetReceiptURL(ctx context.Context, id uuid.UUID, url string) error
}

type ProfileLookup interface {
	GetStudent(ctx context.Context, email string) (*models.Student, error)
	GetMentor(ctx context.Context, email string) (*models.Mentor, error)
}

type Notifier interface {
	Notify(ctx context.Context, msg notifications.Message)
}

// StatusPublisher pushes status changes to connected clients.
type StatusPublisher interface {
	Publish(recipients []string, change models.SessionStatusChange)
}

type ReceiptIssuer interface {
	IssueReceipt(ctx context.Context, session *models.Session, mentor *models.Mentor) (string, error)
}

type BookingConfig struct {
	BaseURL  string
	Currency string
}

type BookingDeps struct {
	Ledger    SessionLedger
	Profiles  ProfileLookup
	Gateway   payments.Gateway
	Notifier  Notifier
	Publisher StatusPublisher
	Receipts  ReceiptIssuer
	Metrics   *metrics.Metrics
	Log       *slog.Logger
}

// BookingService runs the session state machine: pending -> accepted ->
// completed, with cancellation allowed from pending or accepted.
type BookingService struct {
	BookingDeps
	cfg   BookingConfig
	locks *utils.KeyedMutex
	now   func() time.Time
	wg    sync.WaitGroup
}

func NewBookingService(deps BookingDeps, cfg BookingConfig) *BookingService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &BookingService{
		BookingDeps: deps,
		cfg:         cfg,
		locks:       utils.NewKeyedMutex(),
		now:         time.Now,
	}
}

type SessionRequest struct {
	MentorEmail     string
	ScheduledAt     time.Time
	DurationMinutes int
	Topics          string
}

type CancelResult struct {
	Session *models.Session `json:"session"`
	Refund  string          `json:"refund"`
}

type PaymentConfirmation struct {
	Session     *models.Session `json:"session"`
	MentorName  string          `json:"mentor_name"`
	MeetingLink string          `json:"meeting_link"`
	ScheduledAt time.Time       `json:"session_date"`
}

type MentorSessions struct {
	Pending  []models.Session `json:"pending"`
	Upcoming []models.Session `json:"upcoming"`
}

func (s *BookingService) RequestSession(ctx context.Context, id auth.Identity, req SessionRequest) (*models.Session, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !id.Is(auth.RoleStudent) {
		return nil, fmt.Errorf("%w: only students can request sessions", ErrForbidden)
	}

	mentorEmail := models.NormalizeEmail(req.MentorEmail)
	switch {
	case mentorEmail == "":
		return nil, validationf("mentor email is required")
	case req.ScheduledAt.IsZero():
		return nil, validationf("session date is required")
	case req.DurationMinutes <= 0 || req.DurationMinutes > maxSessionMinutes:
		return nil, validationf("duration must be between 1 and %d minutes", maxSessionMinutes)
	}

	student, err := s.Profiles.GetStudent(ctx, id.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: no student profile for %s", ErrUnauthenticated, id.Email)
		}
		return nil, err
	}

	mentor, err := s.Profiles.GetMentor(ctx, mentorEmail)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, validationf("mentor %s does not exist", mentorEmail)
		}
		return nil, err
	}
	if !mentor.IsActive() {
		return nil, validationf("mentor %s is not accepting sessions", mentorEmail)
	}

	session := &models.Session{
		StudentEmail:    student.Email,
		StudentName:     student.Name,
		MentorEmail:     mentor.Email,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		Topics:          strings.TrimSpace(req.Topics),
	}
	if err := s.Ledger.Create(ctx, session, student.Email); err != nil {
		s.Metrics.Transition(string(models.SessionPending), err)
		return nil, err
	}
	s.Metrics.Transition(string(models.SessionPending), nil)

	s.Log.InfoContext(ctx, "session requested",
		slog.String("session_id", session.ID.String()),
		slog.String("student", session.StudentEmail),
		slog.String("mentor", session.MentorEmail))

	s.Notifier.Notify(ctx, notifications.Message{
		To:      mentor.Email,
		Subject: "New Session Request",
		Body: fmt.Sprintf("New session request from %s:\n- Date: %s\n- Duration: %d minutes\n- Topics: %s\n\nAccept: %s",
			student.Name, session.ScheduledAt.Format(time.RFC1123), session.DurationMinutes, session.Topics,
			s.url("/api/v1/sessions/%s/accept", session.ID)),
	})
	s.publish(session)
	return session, nil
}

// AcceptSession prices the session at the mentor's current rate, opens a
// checkout and moves the session to accepted. A gateway failure leaves the
// session pending.
func (s *BookingService) AcceptSession(ctx context.Context, id auth.Identity, sessionID uuid.UUID) (*models.Session, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !id.Is(auth.RoleMentor) {
		return nil, fmt.Errorf("%w: only mentors can accept sessions", ErrForbidden)
	}

	unlock := s.locks.Lock(sessionID.String())
	defer unlock()

	session, err := s.Ledger.Get(ctx, sessionID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if session.MentorEmail != models.NormalizeEmail(id.Email) {
		return nil, fmt.Errorf("%w: session %s belongs to another mentor", ErrForbidden, sessionID)
	}
	if session.Status != models.SessionPending {
		return nil, fmt.Errorf("%w: session %s is %s", ErrConflict, sessionID, session.Status)
	}

	mentor, err := s.Profiles.GetMentor(ctx, session.MentorEmail)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	amount := payments.AmountForDuration(mentor.HourlyRateCents(), session.DurationMinutes)
	if amount <= 0 {
		return nil, validationf("session price must be positive, check the mentor's hourly rate")
	}

	gwCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	checkout, err := s.Gateway.CreateCheckout(gwCtx, payments.CheckoutRequest{
		AmountMinor: amount,
		Currency:    s.cfg.Currency,
		Description: "Mentorship Session with " + mentor.Name,
		SuccessURL:  s.url("/api/v1/payments/success?session_id=%s", session.ID),
		CancelURL:   s.url("/api/v1/payments/cancel?session_id=%s", session.ID),
		Metadata: map[string]string{
			"session_id":    session.ID.String(),
			"mentor_email":  session.MentorEmail,
			"student_email": session.StudentEmail,
		},
		IdempotencyKey: "accept-" + session.ID.String(),
	})
	s.Metrics.GatewayCall("create_checkout", err)
	if err != nil {
		s.Log.ErrorContext(ctx, "checkout creation failed",
			slog.String("session_id", session.ID.String()), utils.ErrAttr(err))
		var gwErr *payments.GatewayError
		if !errors.As(err, &gwErr) {
			err = &payments.GatewayError{Op: "create checkout", Err: err}
		}
		return nil, err
	}

	accepted, err := s.Ledger.Transition(ctx, database.TransitionRequest{
		SessionID: session.ID,
		From:      models.SessionPending,
		To:        models.SessionAccepted,
		Actor:     mentor.Email,
		Payment: &models.PaymentDetails{
			Link:        checkout.URL,
			ID:          checkout.TransactionID,
			AmountCents: amount,
			Currency:    s.cfg.Currency,
		},
	})
	s.Metrics.Transition(string(models.SessionAccepted), err)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	s.Log.InfoContext(ctx, "session accepted",
		slog.String("session_id", accepted.ID.String()),
		slog.Int64("amount_cents", amount),
		slog.String("checkout_id", checkout.TransactionID))

	s.Notifier.Notify(ctx, notifications.Message{
		To:      accepted.StudentEmail,
		Subject: "Session Accepted",
		Body: fmt.Sprintf("Your session request with %s has been accepted!\nAmount due: %.2f %s\nPayment required: %s",
			mentor.Name, accepted.Amount(), strings.ToUpper(s.cfg.Currency), checkout.URL),
	})
	s.publish(accepted)
	return accepted, nil
}

// ConfirmPayment marks an accepted session completed. Confirming a session
// that is already completed returns it unchanged.
func (s *BookingService) ConfirmPayment(ctx context.Context, sessionID uuid.UUID, actor string) (*models.Session, error) {
	unlock := s.locks.Lock(sessionID.String())
	defer unlock()
	return s.confirmLocked(ctx, sessionID, actor)
}

func (s *BookingService) confirmLocked(ctx context.Context, sessionID uuid.UUID, actor string) (*models.Session, error) {
	session, err := s.Ledger.Get(ctx, sessionID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	switch session.Status {
	case models.SessionCompleted:
		return session, nil
	case models.SessionAccepted:
	default:
		return nil, fmt.Errorf("%w: session %s is %s", ErrConflict, sessionID, session.Status)
	}

	completed, err := s.Ledger.Transition(ctx, database.TransitionRequest{
		SessionID: sessionID,
		From:      models.SessionAccepted,
		To:        models.SessionCompleted,
		Actor:     actor,
	})
	s.Metrics.Transition(string(models.SessionCompleted), err)
	if err != nil {
		if errors.Is(err, database.ErrStatusConflict) {
			if current, getErr := s.Ledger.Get(ctx, sessionID); getErr == nil && current.Status == models.SessionCompleted {
				return current, nil
			}
		}
		return nil, translateStoreErr(err)
	}

	s.Log.InfoContext(ctx, "session payment confirmed", slog.String("session_id", sessionID.String()))

	s.Notifier.Notify(ctx, notifications.Message{
		To:      completed.StudentEmail,
		Subject: "Payment Confirmed",
		Body:    fmt.Sprintf("Your payment for the session on %s was received. See you there!", completed.ScheduledAt.Format(time.RFC1123)),
	})
	s.Notifier.Notify(ctx, notifications.Message{
		To:      completed.MentorEmail,
		Subject: "Session Paid",
		Body:    fmt.Sprintf("%s has paid for the session on %s.", completed.StudentName, completed.ScheduledAt.Format(time.RFC1123)),
	})
	s.publish(completed)
	s.issueReceipt(ctx, completed)
	return completed, nil
}

// ConfirmCheckout handles the gateway's success redirect. The checkout is
// verified with the gateway before the session is completed.
func (s *BookingService) ConfirmCheckout(ctx context.Context, sessionID uuid.UUID) (*PaymentConfirmation, error) {
	unlock := s.locks.Lock(sessionID.String())
	defer unlock()

	session, err := s.Ledger.Get(ctx, sessionID)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	if session.Status != models.SessionCompleted {
		if session.PaymentID == nil {
			return nil, fmt.Errorf("%w: session %s has no checkout", ErrConflict, sessionID)
		}
		gwCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
		checkout, err := s.Gateway.GetCheckout(gwCtx, *session.PaymentID)
		cancel()
		s.Metrics.GatewayCall("get_checkout", err)
		if err != nil {
			return nil, err
		}
		if !checkout.Paid {
			return nil, fmt.Errorf("%w: checkout %s is not paid", ErrConflict, checkout.TransactionID)
		}
		if session, err = s.confirmLocked(ctx, sessionID, "gateway:redirect"); err != nil {
			return nil, err
		}
	}

	mentor, err := s.Profiles.GetMentor(ctx, session.MentorEmail)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return &PaymentConfirmation{
		Session:     session,
		MentorName:  mentor.Name,
		MeetingLink: mentor.MeetingLink,
		ScheduledAt: session.ScheduledAt,
	}, nil
}

// ConfirmWebhook completes the session named by a paid checkout event.
func (s *BookingService) ConfirmWebhook(ctx context.Context, checkout *payments.Checkout) (*models.Session, error) {
	if checkout == nil || !checkout.Paid {
		return nil, validationf("checkout is not paid")
	}
	sessionID, err := uuid.Parse(checkout.Metadata["session_id"])
	if err != nil {
		return nil, validationf("checkout carries no valid session_id")
	}

	unlock := s.locks.Lock(sessionID.String())
	defer unlock()

	session, err := s.Ledger.Get(ctx, sessionID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if session.PaymentID == nil || *session.PaymentID != checkout.TransactionID {
		return nil, validationf("checkout %s does not belong to session %s", checkout.TransactionID, sessionID)
	}
	return s.confirmLocked(ctx, sessionID, "gateway:webhook")
}

// CancelSession cancels a pending or accepted session. No refund is issued;
// the result reports whether a checkout existed.
func (s *BookingService) CancelSession(ctx context.Context, id auth.Identity, sessionID uuid.UUID) (*CancelResult, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}

	unlock := s.locks.Lock(sessionID.String())
	defer unlock()

	session, err := s.Ledger.Get(ctx, sessionID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if !session.Involves(models.NormalizeEmail(id.Email)) {
		return nil, fmt.Errorf("%w: only the session's student or mentor can cancel it", ErrForbidden)
	}
	if !session.Status.CanTransitionTo(models.SessionCancelled) {
		return nil, fmt.Errorf("%w: session %s is %s", ErrConflict, sessionID, session.Status)
	}

	cancelled, err := s.Ledger.Transition(ctx, database.TransitionRequest{
		SessionID: sessionID,
		From:      session.Status,
		To:        models.SessionCancelled,
		Actor:     id.Email,
	})
	s.Metrics.Transition(string(models.SessionCancelled), err)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	refund := RefundNotApplicable
	if cancelled.PaymentID != nil {
		refund = RefundNotHandled
		s.expireCheckout(ctx, cancelled.ID, *cancelled.PaymentID)
	}

	s.Log.InfoContext(ctx, "session cancelled",
		slog.String("session_id", sessionID.String()),
		slog.String("by", id.Email),
		slog.String("refund", refund))

	other := cancelled.MentorEmail
	if other == models.NormalizeEmail(id.Email) {
		other = cancelled.StudentEmail
	}
	s.Notifier.Notify(ctx, notifications.Message{
		To:      other,
		Subject: "Session Cancelled",
		Body:    fmt.Sprintf("The session scheduled for %s was cancelled by %s.", cancelled.ScheduledAt.Format(time.RFC1123), id.Email),
	})
	s.publish(cancelled)
	return &CancelResult{Session: cancelled, Refund: refund}, nil
}

func (s *BookingService) GetSession(ctx context.Context, id auth.Identity, sessionID uuid.UUID) (*models.Session, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	session, err := s.Ledger.Get(ctx, sessionID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if !id.Is(auth.RoleAdmin) && !session.Involves(models.NormalizeEmail(id.Email)) {
		return nil, fmt.Errorf("%w: session %s", ErrForbidden, sessionID)
	}
	return session, nil
}

// MentorSessions returns the mentor's pending requests, oldest first, and
// the next upcoming accepted or completed sessions.
func (s *BookingService) MentorSessions(ctx context.Context, id auth.Identity) (*MentorSessions, error) {
	if !id.Is(auth.RoleMentor) {
		return nil, fmt.Errorf("%w: mentor access required", ErrForbidden)
	}

	pending, err := s.Ledger.List(ctx, database.SessionQuery{
		MentorEmail: id.Email,
		Statuses:    []models.SessionStatus{models.SessionPending},
		OrderBy:     "created_at",
	})
	if err != nil {
		return nil, err
	}
	upcoming, err := s.Ledger.List(ctx, database.SessionQuery{
		MentorEmail:   id.Email,
		Statuses:      []models.SessionStatus{models.SessionAccepted, models.SessionCompleted},
		ScheduledFrom: s.now(),
		OrderBy:       "scheduled_at",
		Limit:         upcomingSessionCap,
	})
	if err != nil {
		return nil, err
	}
	return &MentorSessions{Pending: pending, Upcoming: upcoming}, nil
}

func (s *BookingService) StudentSessions(ctx context.Context, id auth.Identity) ([]models.Session, error) {
	if !id.Is(auth.RoleStudent) {
		return nil, fmt.Errorf("%w: student access required", ErrForbidden)
	}
	return s.Ledger.List(ctx, database.SessionQuery{
		StudentEmail: id.Email,
		OrderBy:      "-created_at",
	})
}

// expireCheckout closes the checkout of a cancelled session in the
// background so the student can no longer pay it. Failures are logged only.
func (s *BookingService) expireCheckout(ctx context.Context, sessionID uuid.UUID, transactionID string) {
	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		gwCtx, cancel := context.WithTimeout(detached, gatewayTimeout)
		defer cancel()
		err := s.Gateway.ExpireCheckout(gwCtx, transactionID)
		s.Metrics.GatewayCall("expire_checkout", err)
		if err != nil {
			s.Log.WarnContext(detached, "failed to expire checkout of cancelled session",
				slog.String("session_id", sessionID.String()),
				slog.String("checkout_id", transactionID),
				utils.ErrAttr(err))
		}
	}()
}

// Wait blocks until background receipt and checkout expiry jobs finish.
func (s *BookingService) Wait() {
	s.wg.Wait()
}

func (s *BookingService) issueReceipt(ctx context.Context, session *models.Session) {
	if s.Receipts == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log := s.Log.With(slog.String("session_id", session.ID.String()))

		mentor, err := s.Profiles.GetMentor(detached, session.MentorEmail)
		if err != nil {
			log.ErrorContext(detached, "receipt skipped, mentor lookup failed", utils.ErrAttr(err))
			return
		}
		url, err := s.Receipts.IssueReceipt(detached, session, mentor)
		if err != nil {
			log.ErrorContext(detached, "failed to issue receipt", utils.ErrAttr(err))
			return
		}
		if err := s.Ledger.SetReceiptURL(detached, session.ID, url); err != nil {
			log.ErrorContext(detached, "failed to store receipt url", utils.ErrAttr(err))
		}
	}()
}

func (s *BookingService) publish(session *models.Session) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish([]string{session.StudentEmail, session.MentorEmail}, models.SessionStatusChange{
		SessionID: session.ID,
		Status:    session.Status,
		At:        s.now(),
	})
}

func (s *BookingService) url(format string, args ...any) string {
	return s.cfg.BaseURL + fmt.Sprintf(format, args...)
}
