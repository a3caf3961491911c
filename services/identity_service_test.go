package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anjiri1684/career_mentor/auth"
	"github.com/anjiri1684/career_mentor/database"
	"github.com/anjiri1684/career_mentor/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) GetStudent(ctx context.Context, email string) (*models.Student, error) {
	args := m.Called(ctx, email)
	if s := args.Get(0); s != nil {
		return s.(*models.Student), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityStore) GetMentor(ctx context.Context, email string) (*models.Mentor, error) {
	args := m.Called(ctx, email)
	if s := args.Get(0); s != nil {
		return s.(*models.Mentor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityStore) GetAdmin(ctx context.Context, email string) (*models.Admin, error) {
	args := m.Called(ctx, email)
	if s := args.Get(0); s != nil {
		return s.(*models.Admin), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityStore) PutStudent(ctx context.Context, student *models.Student) error {
	return m.Called(ctx, student).Error(0)
}

func (m *MockIdentityStore) PutMentor(ctx context.Context, mentor *models.Mentor) error {
	return m.Called(ctx, mentor).Error(0)
}

func (m *MockIdentityStore) UpdateMentorStatus(ctx context.Context, email string, status models.MentorStatus) error {
	return m.Called(ctx, email, status).Error(0)
}

func (m *MockIdentityStore) UpdateResumeFeedback(ctx context.Context, email string, resumeURL *string, feedback *models.ResumeFeedback) error {
	return m.Called(ctx, email, resumeURL, feedback).Error(0)
}

type stubAnalyzer struct {
	feedback *models.ResumeFeedback
	calls    int
}

func (a *stubAnalyzer) Analyze(context.Context, string) *models.ResumeFeedback {
	a.calls++
	return a.feedback
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) { c.calls++ }

func newIdentityService(store *MockIdentityStore, analyzer *stubAnalyzer, inv *countingInvalidator) *IdentityService {
	svc := NewIdentityService(store, auth.NewTokenIssuer("identity-secret", time.Hour), analyzer, inv, discardLog)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestRegisterStudent(t *testing.T) {
	store := new(MockIdentityStore)
	analyzer := &stubAnalyzer{feedback: &models.ResumeFeedback{Error: "unreadable"}}
	svc := newIdentityService(store, analyzer, &countingInvalidator{})

	store.On("GetStudent", mock.Anything, "ada@example.com").Return(nil, database.ErrNotFound)
	store.On("PutStudent", mock.Anything, mock.MatchedBy(func(s *models.Student) bool {
		return s.Email == "ada@example.com" &&
			s.StudyPlan == "Master Backend-specific tools | LeetCode 3x/week | Mock interviews" &&
			s.ResumeFeedback != nil && s.ResumeFeedback.Error == "unreadable" &&
			bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte("s3cretpass")) == nil
	})).Return(nil)

	res, err := svc.RegisterStudent(context.Background(), StudentRegistration{
		Name:           "Ada",
		Email:          " Ada@Example.com",
		Password:       "s3cretpass",
		EducationStage: "3rd Year",
		CareerGoal:     "Backend",
		ResumeURL:      "https://files/cv.pdf",
	})
	require.NoError(t, err, "resume analysis failure must not fail registration")
	assert.Equal(t, auth.RoleStudent, res.Role)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, 1, analyzer.calls)
	store.AssertExpectations(t)
}

func TestRegisterStudent_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		reg     StudentRegistration
		exists  bool
		wantErr error
	}{
		{name: "missing name", reg: StudentRegistration{Email: "a@b.co", Password: "longenough"}, wantErr: ErrValidation},
		{name: "bad email", reg: StudentRegistration{Name: "A", Email: "nope", Password: "longenough"}, wantErr: ErrValidation},
		{name: "short password", reg: StudentRegistration{Name: "A", Email: "a@b.co", Password: "short"}, wantErr: ErrValidation},
		{name: "already registered", reg: StudentRegistration{Name: "A", Email: "a@b.co", Password: "longenough"}, exists: true, wantErr: ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockIdentityStore)
			if tt.exists {
				store.On("GetStudent", mock.Anything, "a@b.co").Return(&models.Student{Email: "a@b.co"}, nil)
			}
			svc := newIdentityService(store, &stubAnalyzer{}, &countingInvalidator{})
			_, err := svc.RegisterStudent(context.Background(), tt.reg)
			assert.ErrorIs(t, err, tt.wantErr)
			store.AssertNotCalled(t, "PutStudent", mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterMentor(t *testing.T) {
	store := new(MockIdentityStore)
	inv := &countingInvalidator{}
	svc := newIdentityService(store, &stubAnalyzer{}, inv)

	store.On("GetMentor", mock.Anything, "bea@example.com").Return(nil, database.ErrNotFound)
	store.On("PutMentor", mock.Anything, mock.MatchedBy(func(m *models.Mentor) bool {
		return m.Status == models.MentorActive && m.PayoutIdentifier == "upi://pay?pa=bea@upi" && m.HourlyRate == 60
	})).Return(nil)

	res, err := svc.RegisterMentor(context.Background(), MentorRegistration{
		Name:       "Bea",
		Email:      "bea@example.com",
		Password:   "s3cretpass",
		HourlyRate: 60,
		PayoutUPI:  "bea@upi",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleMentor, res.Role)
	assert.Equal(t, 1, inv.calls)
	store.AssertExpectations(t)

	_, err = svc.RegisterMentor(context.Background(), MentorRegistration{Name: "Bea", Email: "x@example.com", Password: "s3cretpass"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPayoutIdentifier(t *testing.T) {
	assert.Equal(t, "upi://pay?pa=bea@upi", PayoutIdentifier(" bea@upi ", ""))
	assert.Equal(t, "https://res/qr.png", PayoutIdentifier("bea@upi", "https://res/qr.png"))
	assert.Equal(t, "", PayoutIdentifier("", ""))
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cretpass"), bcrypt.MinCost)
	require.NoError(t, err)

	store := new(MockIdentityStore)
	store.On("GetMentor", mock.Anything, "bea@example.com").Return(&models.Mentor{Email: "bea@example.com", PasswordHash: string(hash)}, nil)
	store.On("GetAdmin", mock.Anything, "root@example.com").Return(&models.Admin{Email: "root@example.com", PasswordHash: string(hash)}, nil)
	store.On("GetStudent", mock.Anything, "ghost@example.com").Return(nil, database.ErrNotFound)
	store.On("GetStudent", mock.Anything, "broken@example.com").Return(nil, errors.New("db down"))
	svc := newIdentityService(store, &stubAnalyzer{}, &countingInvalidator{})
	ctx := context.Background()

	res, err := svc.Login(ctx, auth.RoleMentor, "BEA@example.com", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "bea@example.com", res.Email)

	res, err = svc.Login(ctx, auth.RoleAdmin, "root@example.com", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, res.Role)

	_, err = svc.Login(ctx, auth.RoleMentor, "bea@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Login(ctx, auth.RoleStudent, "ghost@example.com", "s3cretpass")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Login(ctx, auth.RoleStudent, "broken@example.com", "s3cretpass")
	assert.EqualError(t, err, "db down")

	_, err = svc.Login(ctx, "guest", "x@example.com", "s3cretpass")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetMentorStatus(t *testing.T) {
	ctx := context.Background()
	admin := auth.Identity{Email: "root@example.com", Role: auth.RoleAdmin}

	tests := []struct {
		name      string
		actor     auth.Identity
		target    string
		status    models.MentorStatus
		storeErr  error
		wantErr   error
		wantStore bool
	}{
		{name: "self", actor: mentor, target: mentor.Email, status: models.MentorInactive, wantStore: true},
		{name: "admin", actor: admin, target: mentor.Email, status: models.MentorActive, wantStore: true},
		{name: "other mentor", actor: other, target: mentor.Email, status: models.MentorInactive, wantErr: ErrForbidden},
		{name: "student", actor: student, target: mentor.Email, status: models.MentorInactive, wantErr: ErrForbidden},
		{name: "anonymous", actor: auth.Identity{}, target: mentor.Email, status: models.MentorInactive, wantErr: ErrUnauthenticated},
		{name: "bad status", actor: admin, target: mentor.Email, status: "paused", wantErr: ErrValidation},
		{name: "unknown mentor", actor: admin, target: "zed@example.com", status: models.MentorActive, storeErr: database.ErrNotFound, wantErr: ErrNotFound, wantStore: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockIdentityStore)
			inv := &countingInvalidator{}
			if tt.wantStore {
				store.On("UpdateMentorStatus", mock.Anything, tt.target, tt.status).Return(tt.storeErr)
			}
			svc := newIdentityService(store, &stubAnalyzer{}, inv)

			err := svc.SetMentorStatus(ctx, tt.actor, tt.target, tt.status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, inv.calls)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 1, inv.calls)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestUpdateResume(t *testing.T) {
	store := new(MockIdentityStore)
	feedback := &models.ResumeFeedback{Skills: []string{"Go"}, MissingSkills: []string{"Git"}, Score: 10}
	store.On("UpdateResumeFeedback", mock.Anything, student.Email, mock.Anything, feedback).Return(nil)
	svc := newIdentityService(store, &stubAnalyzer{feedback: feedback}, &countingInvalidator{})

	got, err := svc.UpdateResume(context.Background(), student, "https://files/cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, feedback, got)

	_, err = svc.UpdateResume(context.Background(), mentor, "https://files/cv.pdf")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.UpdateResume(context.Background(), student, " ")
	assert.ErrorIs(t, err, ErrValidation)
}
