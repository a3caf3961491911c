package notifications

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClient struct {
	mock.Mock
	buf bytes.Buffer
}

func (m *MockClient) Mail(from string) error { return m.Called(from).Error(0) }
func (m *MockClient) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *MockClient) Quit() error            { return m.Called().Error(0) }
func (m *MockClient) Close() error           { return m.Called().Error(0) }

func (m *MockClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return nopWriteCloser{&m.buf}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect(ctx context.Context) (Client, error) {
	args := m.Called(ctx)
	if c := args.Get(0); c != nil {
		return c.(Client), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestEmailService_Send(t *testing.T) {
	client := new(MockClient)
	client.On("Mail", "noreply@mentor.io").Return(nil)
	client.On("Rcpt", "ada@example.com").Return(nil)
	client.On("Data").Return(nil, nil)
	client.On("Quit").Return(nil)
	client.On("Close").Return(nil)

	transport := new(MockTransport)
	transport.On("Connect", mock.Anything).Return(client, nil)

	svc := NewEmailService(transport, "noreply@mentor.io")
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	err := svc.Send(context.Background(), Message{To: "ada@example.com", Subject: "Session Accepted", Body: "line1\nline2"})
	require.NoError(t, err)

	raw := client.buf.String()
	assert.Contains(t, raw, "To: ada@example.com\r\n")
	assert.Contains(t, raw, "Subject: Session Accepted\r\n")
	assert.Contains(t, raw, "\r\n\r\nline1\r\nline2\r\n")
	client.AssertExpectations(t)
	transport.AssertExpectations(t)
}

func TestEmailService_SendErrors(t *testing.T) {
	t.Run("invalid recipient", func(t *testing.T) {
		transport := new(MockTransport)
		svc := NewEmailService(transport, "noreply@mentor.io")
		assert.Error(t, svc.Send(context.Background(), Message{To: "nobody"}))
		assert.Error(t, svc.Send(context.Background(), Message{To: "a@b.c", Subject: "x\r\nBcc: evil@x"}))
		transport.AssertNotCalled(t, "Connect", mock.Anything)
	})

	t.Run("connect failure", func(t *testing.T) {
		transport := new(MockTransport)
		transport.On("Connect", mock.Anything).Return(nil, errors.New("dial tcp: refused"))
		svc := NewEmailService(transport, "noreply@mentor.io")
		assert.ErrorContains(t, svc.Send(context.Background(), Message{To: "ada@example.com"}), "refused")
	})

	t.Run("recipient rejected closes client", func(t *testing.T) {
		client := new(MockClient)
		client.On("Mail", mock.Anything).Return(nil)
		client.On("Rcpt", mock.Anything).Return(errors.New("550 no such user"))
		client.On("Close").Return(nil)
		transport := new(MockTransport)
		transport.On("Connect", mock.Anything).Return(client, nil)

		svc := NewEmailService(transport, "noreply@mentor.io")
		assert.ErrorContains(t, svc.Send(context.Background(), Message{To: "ada@example.com"}), "RCPT")
		client.AssertCalled(t, "Close")
	})
}

type funcMailer func(ctx context.Context, msg Message) error

func (f funcMailer) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

func TestNotifier_SwallowsFailures(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	n := NewNotifier(funcMailer(func(context.Context, Message) error {
		return errors.New("smtp down")
	}), log, nil)

	assert.False(t, n.Send(context.Background(), Message{To: "ada@example.com", Subject: "hi"}))
	assert.Contains(t, logs.String(), "smtp down")
}

func TestNotifier_NotifyDetachedFromCaller(t *testing.T) {
	var sent atomic.Int32
	var ctxErr atomic.Value

	n := NewNotifier(funcMailer(func(ctx context.Context, msg Message) error {
		time.Sleep(10 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		sent.Add(1)
		return nil
	}), slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	n.Notify(ctx, Message{To: "ada@example.com"})
	n.Notify(ctx, Message{To: "bea@example.com"})
	cancel()
	n.Wait()

	assert.Equal(t, int32(2), sent.Load())
	assert.Nil(t, ctxErr.Load())
}

func TestLogMailer(t *testing.T) {
	var logs bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, m.Send(context.Background(), Message{To: "ada@example.com", Subject: "Weekly tasks due"}))
	assert.Contains(t, logs.String(), "Weekly tasks due")
}
