package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/career_mentor/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Connect(connStr)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestPostgresStorage(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	store := NewIdentityStore(db)
	ledger := NewSessionLedger(db)

	t.Run("student upsert is last write wins", func(t *testing.T) {
		student := &models.Student{
			Email:        "Ada@Example.com ",
			Name:         "Ada",
			PasswordHash: "x",
			Skills:       []string{"Go"},
			JoinedAt:     time.Now(),
		}
		require.NoError(t, store.PutStudent(ctx, student))

		student.Name = "Ada Lovelace"
		require.NoError(t, store.PutStudent(ctx, student))

		got, err := store.GetStudent(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", got.Name)
		assert.Equal(t, []string{"Go"}, got.Skills)

		_, err = store.GetStudent(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("resume feedback update", func(t *testing.T) {
		url := "https://files.example.com/cv.pdf"
		feedback := &models.ResumeFeedback{Skills: []string{"Go"}, MissingSkills: []string{"Git"}, Score: 10}
		require.NoError(t, store.UpdateResumeFeedback(ctx, "ada@example.com", &url, feedback))

		got, err := store.GetStudent(ctx, "ada@example.com")
		require.NoError(t, err)
		require.NotNil(t, got.ResumeFeedback)
		assert.Equal(t, 10, got.ResumeFeedback.Score)

		err = store.UpdateResumeFeedback(ctx, "nobody@example.com", &url, feedback)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("mentor query is lazy and single use", func(t *testing.T) {
		for i, name := range []string{"Bea", "Cal", "Dee"} {
			require.NoError(t, store.PutMentor(ctx, &models.Mentor{
				Email:        name + "@example.com",
				Name:         name,
				PasswordHash: "x",
				HourlyRate:   float64(40 + i*10),
				Skills:       []string{"Go", name},
				RegisteredAt: time.Now().Add(time.Duration(i) * time.Minute),
			}))
		}
		require.NoError(t, store.UpdateMentorStatus(ctx, "dee@example.com", models.MentorInactive))

		seq, err := store.QueryMentors(ctx, MentorQuery{
			Status:  models.MentorActive,
			Skill:   "Go",
			OrderBy: "-hourly_rate",
			Limit:   5,
		})
		require.NoError(t, err)

		var names []string
		for m, err := range seq {
			require.NoError(t, err)
			names = append(names, m.Name)
		}
		assert.Equal(t, []string{"Cal", "Bea"}, names)

		for _, err := range seq {
			assert.ErrorIs(t, err, ErrSequenceConsumed)
		}

		_, err = store.QueryMentors(ctx, MentorQuery{OrderBy: "password_hash"})
		assert.Error(t, err)
	})

	t.Run("conditional transitions", func(t *testing.T) {
		session := &models.Session{
			StudentEmail:    "ada@example.com",
			MentorEmail:     "bea@example.com",
			ScheduledAt:     time.Now().Add(24 * time.Hour),
			DurationMinutes: 45,
		}
		require.NoError(t, ledger.Create(ctx, session, "ada@example.com"))
		assert.Equal(t, models.SessionPending, session.Status)

		accepted, err := ledger.Transition(ctx, TransitionRequest{
			SessionID: session.ID,
			From:      models.SessionPending,
			To:        models.SessionAccepted,
			Actor:     "bea@example.com",
			Payment:   &models.PaymentDetails{Link: "https://pay", ID: "cs_1", AmountCents: 4500, Currency: "usd"},
		})
		require.NoError(t, err)
		assert.Equal(t, models.SessionAccepted, accepted.Status)
		require.NotNil(t, accepted.AmountCents)
		assert.Equal(t, int64(4500), *accepted.AmountCents)

		_, err = ledger.Transition(ctx, TransitionRequest{
			SessionID: session.ID,
			From:      models.SessionPending,
			To:        models.SessionCancelled,
		})
		assert.ErrorIs(t, err, ErrStatusConflict)

		_, err = ledger.Transition(ctx, TransitionRequest{
			SessionID: session.ID,
			From:      models.SessionCompleted,
			To:        models.SessionPending,
		})
		assert.ErrorIs(t, err, ErrInvalidTransition)

		events, err := ledger.Events(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, models.SessionAccepted, events[1].ToStatus)

		require.ErrorIs(t, ledger.SetReceiptURL(ctx, session.ID, "https://receipt"), ErrNotFound)
	})

	t.Run("concurrent transitions have one winner", func(t *testing.T) {
		session := &models.Session{
			StudentEmail:    "ada@example.com",
			MentorEmail:     "cal@example.com",
			ScheduledAt:     time.Now().Add(48 * time.Hour),
			DurationMinutes: 60,
		}
		require.NoError(t, ledger.Create(ctx, session, "ada@example.com"))

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = ledger.Transition(ctx, TransitionRequest{
					SessionID: session.ID,
					From:      models.SessionPending,
					To:        models.SessionCancelled,
				})
			}(i)
		}
		wg.Wait()

		var wins int
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, ErrStatusConflict)
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("list sessions", func(t *testing.T) {
		pending, err := ledger.List(ctx, SessionQuery{
			StudentEmail: "ada@example.com",
			Statuses:     []models.SessionStatus{models.SessionAccepted},
			OrderBy:      "scheduled_at",
		})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "bea@example.com", pending[0].MentorEmail)

		_, err = ledger.Get(ctx, pending[0].ID)
		require.NoError(t, err)
	})
}
