package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anjiri1684/career_mentor/database"
	"github.com/anjiri1684/career_mentor/models"
	"github.com/anjiri1684/career_mentor/notifications"
	"github.com/anjiri1684/career_mentor/payments"
	"github.com/google/uuid"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// memLedger applies the same conditional-write rules as the gorm ledger.
type memLedger struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]models.Session
	events   []models.SessionEvent
	seq      int
}

func newMemLedger() *memLedger {
	return &memLedger{sessions: make(map[uuid.UUID]models.Session)}
}

func (l *memLedger) Create(_ context.Context, s *models.Session, actor string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	l.seq++
	s.Status = models.SessionPending
	s.CreatedAt = time.Unix(int64(l.seq), 0)
	l.sessions[s.ID] = *s
	l.events = append(l.events, models.SessionEvent{SessionID: s.ID, ToStatus: models.SessionPending, Actor: actor})
	return nil
}

func (l *memLedger) Get(_ context.Context, id uuid.UUID) (*models.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, database.ErrNotFound)
	}
	return &s, nil
}

func (l *memLedger) Transition(_ context.Context, req database.TransitionRequest) (*models.Session, error) {
	if !req.From.CanTransitionTo(req.To) {
		return nil, database.ErrInvalidTransition
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[req.SessionID]
	if !ok {
		return nil, database.ErrNotFound
	}
	if s.Status != req.From {
		return nil, database.ErrStatusConflict
	}
	s.Status = req.To
	if p := req.Payment; p != nil {
		link, id, amount, currency := p.Link, p.ID, p.AmountCents, p.Currency
		s.PaymentLink, s.PaymentID, s.AmountCents, s.Currency = &link, &id, &amount, &currency
	}
	l.sessions[s.ID] = s
	l.events = append(l.events, models.SessionEvent{SessionID: s.ID, FromStatus: req.From, ToStatus: req.To, Actor: req.Actor})
	return &s, nil
}

func (l *memLedger) List(_ context.Context, q database.SessionQuery) ([]models.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Session
	for _, s := range l.sessions {
		if q.MentorEmail != "" && s.MentorEmail != q.MentorEmail {
			continue
		}
		if q.StudentEmail != "" && s.StudentEmail != q.StudentEmail {
			continue
		}
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, s.Status) {
			continue
		}
		if !q.ScheduledFrom.IsZero() && s.ScheduledAt.Before(q.ScheduledFrom) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		switch q.OrderBy {
		case "scheduled_at":
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		case "-created_at":
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (l *memLedger) SetReceiptURL(_ context.Context, id uuid.UUID, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[id]
	if !ok || s.Status != models.SessionCompleted {
		return database.ErrNotFound
	}
	s.ReceiptURL = &url
	l.sessions[id] = s
	return nil
}

func (l *memLedger) transitionsSeen() [][2]models.SessionStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out [][2]models.SessionStatus
	for _, e := range l.events {
		if e.FromStatus != "" {
			out = append(out, [2]models.SessionStatus{e.FromStatus, e.ToStatus})
		}
	}
	return out
}

func containsStatus(list []models.SessionStatus, s models.SessionStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type memProfiles struct {
	mu       sync.Mutex
	students map[string]models.Student
	mentors  map[string]models.Mentor
}

func newMemProfiles() *memProfiles {
	return &memProfiles{students: map[string]models.Student{}, mentors: map[string]models.Mentor{}}
}

func (p *memProfiles) GetStudent(_ context.Context, email string) (*models.Student, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.students[models.NormalizeEmail(email)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &s, nil
}

func (p *memProfiles) GetMentor(_ context.Context, email string) (*models.Mentor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.mentors[models.NormalizeEmail(email)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &m, nil
}

func (p *memProfiles) putStudent(s models.Student) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.students[s.Email] = s
}

func (p *memProfiles) putMentor(m models.Mentor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mentors[m.Email] = m
}

type fakeGateway struct {
	calls     atomic.Int32
	err       error
	paid      bool
	delay     time.Duration
	requests  chan payments.CheckoutRequest
	expireErr error

	mu      sync.Mutex
	expired []string
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, req payments.CheckoutRequest) (*payments.Checkout, error) {
	n := g.calls.Add(1)
	if g.requests != nil {
		g.requests <- req
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.err != nil {
		return nil, g.err
	}
	id := fmt.Sprintf("cs_test_%d", n)
	return &payments.Checkout{TransactionID: id, URL: "https://checkout.example.com/" + id}, nil
}

func (g *fakeGateway) GetCheckout(ctx context.Context, id string) (*payments.Checkout, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &payments.Checkout{TransactionID: id, Paid: g.paid}, nil
}

func (g *fakeGateway) ExpireCheckout(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired = append(g.expired, id)
	return g.expireErr
}

func (g *fakeGateway) expiredIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.expired...)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notifications.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) messages() []notifications.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifications.Message(nil), n.sent...)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []models.SessionStatusChange
}

func (p *recordingPublisher) Publish(_ []string, change models.SessionStatusChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
}

type stubReceipts struct {
	url string
	err error
}

func (r stubReceipts) IssueReceipt(context.Context, *models.Session, *models.Mentor) (string, error) {
	return r.url, r.err
}
