package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/anjiri1684/career_mentor/metrics"
	"github.com/anjiri1684/career_mentor/utils"
)

const sendTimeout = 30 * time.Second

// Notifier delivers messages without ever surfacing a failure to the caller.
type Notifier struct {
	mailer  Mailer
	log     *slog.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewNotifier(mailer Mailer, log *slog.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{mailer: mailer, log: log, metrics: m}
}

// Send delivers msg and reports whether it went out. Errors are logged.
func (n *Notifier) Send(ctx context.Context, msg Message) bool {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	err := n.mailer.Send(ctx, msg)
	n.metrics.Notification(err == nil)
	if err != nil {
		n.log.ErrorContext(ctx, "failed to send notification",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject),
			utils.ErrAttr(err))
		return false
	}
	n.log.DebugContext(ctx, "notification sent", slog.String("to", msg.To))
	return true
}

// Notify sends msg in the background, detached from the caller's
// cancellation.
func (n *Notifier) Notify(ctx context.Context, msg Message) {
	detached := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.Send(detached, msg)
	}()
}

// Wait blocks until background sends finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
