package registration

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/candidate-intake-api/internal/domain"
	"github.com/candidate-intake-api/internal/infrastructure/otpstore"
	"github.com/candidate-intake-api/internal/pkg/keylock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCandidateStore struct{ mock.Mock }

func (m *mockCandidateStore) GetByEmail(ctx context.Context, email string) (*domain.Candidate, error) {
	args := m.Called(ctx, email)
	if c, _ := args.Get(0).(*domain.Candidate); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCandidateStore) GetByPhone(ctx context.Context, phone string) (*domain.Candidate, error) {
	args := m.Called(ctx, phone)
	if c, _ := args.Get(0).(*domain.Candidate); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCandidateStore) Put(ctx context.Context, c *domain.Candidate) error {
	return m.Called(ctx, c).Error(0)
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    int
	lastTo  string
	lastMsg string
	sendErr error
}

func (f *fakeMailer) SendEmail(to, _, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent++
	f.lastTo = to
	f.lastMsg = body
	return nil
}

var codeRe = regexp.MustCompile(`\b(\d{6})\b`)

// lastCode extracts the 6-digit code from the most recent email body.
func (f *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	m := codeRe.FindStringSubmatch(f.lastMsg)
	require.Len(t, m, 2, "email body should contain a 6-digit code")
	return m[1]
}

type fakeJanitor struct {
	mu        sync.Mutex
	discarded []string
}

func (f *fakeJanitor) Discard(key string) {
	if key == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = append(f.discarded, key)
}

func (f *fakeJanitor) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.discarded...)
}

type fakeSMSSender struct{ msgs chan string }

func (f *fakeSMSSender) SendSMS(_ context.Context, _, message string) error {
	f.msgs <- message
	return nil
}

// --- helpers ---

type fixture struct {
	svc        *service
	candidates *mockCandidateStore
	otps       OTPStore
	mailer     *fakeMailer
	janitor    *fakeJanitor
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		candidates: &mockCandidateStore{},
		otps:       otpstore.NewMemory(100, 10*time.Minute),
		mailer:     &fakeMailer{},
		janitor:    &fakeJanitor{},
		now:        time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	f.svc = &service{
		candidates: f.candidates,
		otps:       f.otps,
		mailer:     f.mailer,
		janitor:    f.janitor,
		locks:      keylock.New(),
		otpTTL:     10 * time.Minute,
		now:        func() time.Time { return f.now },
	}
	return f
}

func (f *fixture) noCandidateFor(email, phone string) {
	f.candidates.On("GetByEmail", mock.Anything, email).Return(nil, domain.ErrNotFound)
	if phone != "" {
		f.candidates.On("GetByPhone", mock.Anything, phone).Return(nil, domain.ErrNotFound)
	}
}

func baseReq() domain.RegistrationRequest {
	return domain.RegistrationRequest{
		Name:       "Asha Rao",
		Email:      "a@x.com",
		Phone:      "+911234567890",
		Course:     "Full Stack",
		College:    "City College",
		University: "State University",
	}
}

// --- RequestOTP ---

func TestRequestOTP_EmptyEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RequestOTP(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestRequestOTP_EmailAlreadyRegistered(t *testing.T) {
	f := newFixture(t)
	f.candidates.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.Candidate{}, nil)

	_, err := f.svc.RequestOTP(context.Background(), "a@x.com")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	var fe *domain.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "email", fe.Field)
	assert.Equal(t, 0, f.mailer.sent)
}

func TestRequestOTP_StoresCodeAndSendsEmail(t *testing.T) {
	f := newFixture(t)
	f.noCandidateFor("a@x.com", "")

	expiresAt, err := f.svc.RequestOTP(context.Background(), "a@x.com")

	require.NoError(t, err)
	assert.Equal(t, f.now.Add(10*time.Minute), expiresAt)
	assert.Equal(t, "a@x.com", f.mailer.lastTo)

	entry, err := f.otps.Get(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, entry.Verified)
	assert.Equal(t, expiresAt.Unix(), entry.ExpiresAt)
	assert.Equal(t, f.mailer.lastCode(t), entry.Code)
	assert.Regexp(t, `^[1-9]\d{5}$`, entry.Code)
}

func TestRequestOTP_DeliveryFailure_RetainsEntry(t *testing.T) {
	f := newFixture(t)
	f.noCandidateFor("a@x.com", "")
	f.mailer.sendErr = errors.New("smtp down")

	_, err := f.svc.RequestOTP(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)

	// The stored code survives the failed send, so verification against it
	// still works if the mail did arrive.
	entry, err := f.otps.Get(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyOTP(context.Background(), "a@x.com", entry.Code))
}

func TestRequestOTP_ReissueResetsVerification(t *testing.T) {
	f := newFixture(t)
	f.noCandidateFor("a@x.com", "")

	_, err := f.svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyOTP(context.Background(), "a@x.com", f.mailer.lastCode(t)))

	_, err = f.svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)

	entry, err := f.otps.Get(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, entry.Verified, "re-issuing must overwrite the verified entry")
	assert.Equal(t, f.mailer.lastCode(t), entry.Code)
}

// --- VerifyOTP ---

func TestVerifyOTP_NotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.VerifyOTP(context.Background(), "nobody@x.com", "123456")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyOTP_Expired_RemovesEntry(t *testing.T) {
	f := newFixture(t)
	f.noCandidateFor("a@x.com", "")
	_, err := f.svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)
	code := f.mailer.lastCode(t)

	// Exactly at expiry is already too late.
	f.now = f.now.Add(10 * time.Minute)
	err = f.svc.VerifyOTP(context.Background(), "a@x.com", code)
	assert.ErrorIs(t, err, domain.ErrExpired)

	err = f.svc.VerifyOTP(context.Background(), "a@x.com", code)
	assert.ErrorIs(t, err, domain.ErrNotFound, "expired entry must be deleted")
}

func TestVerifyOTP_WrongCode_LeavesEntryIntact(t *testing.T) {
	f := newFixture(t)
	f.noCandidateFor("a@x.com", "")
	_, err := f.svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)
	code := f.mailer.lastCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	err = f.svc.VerifyOTP(context.Background(), "a@x.com", wrong)
	assert.ErrorIs(t, err, domain.ErrCodeMismatch)

	entry, err := f.otps.Get(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, entry.Verified)

	// The correct code still works afterwards.
	require.NoError(t, f.svc.VerifyOTP(context.Background(), "a@x.com", code))
}

func TestVerifyOTP_Success_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.noCandidateFor("a@x.com", "")
	_, err := f.svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)
	code := f.mailer.lastCode(t)

	require.NoError(t, f.svc.VerifyOTP(context.Background(), "a@x.com", code))
	require.NoError(t, f.svc.VerifyOTP(context.Background(), "a@x.com", code))

	entry, err := f.otps.Get(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, entry.Verified)
}

// --- CompleteRegistration ---

func TestCompleteRegistration_NoEntry(t *testing.T) {
	f := newFixture(t)
	req := baseReq()
	req.PhotoKey = "photos/orphan.jpg"

	_, err := f.svc.CompleteRegistration(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrNotVerified)
	assert.Equal(t, []string{"photos/orphan.jpg"}, f.janitor.keys())
}

func TestCompleteRegistration_UnverifiedEntry(t *testing.T) {
	f := newFixture(t)
	f.noCandidateFor("a@x.com", "")
	_, err := f.svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)

	_, err = f.svc.CompleteRegistration(context.Background(), baseReq())
	assert.ErrorIs(t, err, domain.ErrNotVerified)
}

func TestCompleteRegistration_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.otps.Put(context.Background(), "a@x.com",
		domain.OTPEntry{Code: "123456", ExpiresAt: f.now.Add(time.Minute).Unix(), Verified: true}))
	f.candidates.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.Candidate{}, nil)

	req := baseReq()
	req.PhotoKey = "photos/p1.jpg"
	_, err := f.svc.CompleteRegistration(context.Background(), req)

	require.Error(t, err)
	var fe *domain.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "email", fe.Field)
	assert.Equal(t, []string{"photos/p1.jpg"}, f.janitor.keys())

	// The verified entry was consumed even though registration failed.
	_, err = f.otps.Get(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteRegistration_DuplicatePhone(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.otps.Put(context.Background(), "a@x.com",
		domain.OTPEntry{Code: "123456", ExpiresAt: f.now.Add(time.Minute).Unix(), Verified: true}))
	f.candidates.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	f.candidates.On("GetByPhone", mock.Anything, "+911234567890").Return(&domain.Candidate{}, nil)

	_, err := f.svc.CompleteRegistration(context.Background(), baseReq())

	var fe *domain.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "phone", fe.Field)
	f.candidates.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCompleteRegistration_PersistenceError(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.otps.Put(context.Background(), "a@x.com",
		domain.OTPEntry{Code: "123456", ExpiresAt: f.now.Add(time.Minute).Unix(), Verified: true}))
	f.noCandidateFor("a@x.com", "+911234567890")
	f.candidates.On("Put", mock.Anything, mock.Anything).Return(errors.New("throughput exceeded"))

	req := baseReq()
	req.PhotoKey = "photos/p2.jpg"
	_, err := f.svc.CompleteRegistration(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, []string{"photos/p2.jpg"}, f.janitor.keys())
}

func TestCompleteRegistration_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.noCandidateFor("a@x.com", "+911234567890")
	f.candidates.On("Put", mock.Anything, mock.Anything).Return(nil)

	expiresAt, err := f.svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(10*time.Minute), expiresAt)

	require.NoError(t, f.svc.VerifyOTP(context.Background(), "a@x.com", f.mailer.lastCode(t)))

	c, err := f.svc.CompleteRegistration(context.Background(), baseReq())
	require.NoError(t, err)
	assert.NotEmpty(t, c.CandidateID)
	assert.Equal(t, domain.StatusPending, c.Status)
	assert.Equal(t, "a@x.com", c.Email)
	assert.True(t, c.Enable)

	// The OTP entry is gone: no replay, and a fresh verification 404s.
	_, err = f.otps.Get(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.CompleteRegistration(context.Background(), baseReq())
	assert.ErrorIs(t, err, domain.ErrNotVerified)
	err = f.svc.VerifyOTP(context.Background(), "a@x.com", "123456")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteRegistration_ReissueAfterVerifyBlocksRegistration(t *testing.T) {
	f := newFixture(t)
	f.noCandidateFor("a@x.com", "")

	_, err := f.svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyOTP(context.Background(), "a@x.com", f.mailer.lastCode(t)))

	// A second issuance overwrites the verified entry, so registration has
	// to wait for the new code to be verified.
	_, err = f.svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)

	_, err = f.svc.CompleteRegistration(context.Background(), baseReq())
	assert.ErrorIs(t, err, domain.ErrNotVerified)
}

func TestCompleteRegistration_SendsConfirmationSMS(t *testing.T) {
	f := newFixture(t)
	sms := &fakeSMSSender{msgs: make(chan string, 1)}
	f.svc.smsSender = sms
	f.noCandidateFor("a@x.com", "+911234567890")
	f.candidates.On("Put", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, f.otps.Put(context.Background(), "a@x.com",
		domain.OTPEntry{Code: "123456", ExpiresAt: f.now.Add(time.Minute).Unix(), Verified: true}))

	_, err := f.svc.CompleteRegistration(context.Background(), baseReq())
	require.NoError(t, err)

	select {
	case msg := <-sms.msgs:
		assert.Contains(t, msg, "Asha Rao")
	case <-time.After(2 * time.Second):
		t.Fatal("expected a confirmation SMS")
	}
}
