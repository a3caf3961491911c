package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/anjiri1684/career_mentor/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateStoreErr(t *testing.T) {
	id := uuid.MustParse("7b0e6a9c-52f4-4d43-9d1e-0b6f0f3c2a11")
	tests := []struct {
		name     string
		in       error
		kind     error
		sentinel error
		want     string
	}{
		{"wrapped not found", fmt.Errorf("session %s: %w", id, database.ErrNotFound), ErrNotFound, database.ErrNotFound, "not found: session " + id.String()},
		{"bare not found", database.ErrNotFound, ErrNotFound, database.ErrNotFound, "not found"},
		{"status changed", fmt.Errorf("%w: session %s is accepted, expected pending", database.ErrStatusConflict, id), ErrConflict, database.ErrStatusConflict, "conflict: session " + id.String() + " is accepted, expected pending"},
		{"bad edge", fmt.Errorf("%w: pending -> completed", database.ErrInvalidTransition), ErrConflict, database.ErrInvalidTransition, "conflict: pending -> completed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateStoreErr(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.want, err.Error())
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		boom := errors.New("connection reset")
		assert.Same(t, boom, translateStoreErr(boom))
		assert.NoError(t, translateStoreErr(nil))
	})
}

func TestUnknownSessionMessageHidesStorage(t *testing.T) {
	f := newBookingFixture(t)
	_, err := f.svc.AcceptSession(context.Background(), mentor, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
	assert.NotContains(t, err.Error(), database.ErrNotFound.Error())
}
