package registration

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/candidate-intake-api/internal/domain"
	"github.com/candidate-intake-api/internal/pkg/id"
	"github.com/candidate-intake-api/internal/pkg/keylock"
)

// Service drives the OTP-gated registration flow: a candidate proves
// control of their email address before a durable record is admitted.
type Service interface {
	RequestOTP(ctx context.Context, email string) (time.Time, error)
	VerifyOTP(ctx context.Context, email, code string) error
	CompleteRegistration(ctx context.Context, req domain.RegistrationRequest) (*domain.Candidate, error)
}

type candidateStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Candidate, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Candidate, error)
	Put(ctx context.Context, c *domain.Candidate) error
}

// OTPStore is keyed storage for one-time codes. Implementations live in
// internal/infrastructure/otpstore; Put overwrites unconditionally and
// Delete is idempotent.
type OTPStore interface {
	Put(ctx context.Context, email string, e domain.OTPEntry) error
	Get(ctx context.Context, email string) (*domain.OTPEntry, error)
	Delete(ctx context.Context, email string) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type uploadJanitor interface {
	Discard(key string)
}

type service struct {
	candidates candidateStore
	otps       OTPStore
	mailer     mailer
	smsSender  smsSender // nil when SNS is not configured
	janitor    uploadJanitor
	locks      *keylock.KeyedMutex
	otpTTL     time.Duration
	now        func() time.Time
}

type ServiceDeps struct {
	CandidateRepo candidateStore
	OTPStore      OTPStore
	Mailer        mailer
	SMSSender     smsSender
	Janitor       uploadJanitor
	OTPTTL        time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		candidates: deps.CandidateRepo,
		otps:       deps.OTPStore,
		mailer:     deps.Mailer,
		smsSender:  deps.SMSSender,
		janitor:    deps.Janitor,
		locks:      keylock.New(),
		otpTTL:     deps.OTPTTL,
		now:        time.Now,
	}
}

// RequestOTP issues a fresh 6-digit code for email, overwriting any code
// issued earlier, and mails it. The code itself is never returned; the
// caller only learns when it expires. A failed send keeps the stored
// entry so a re-issue is not forced if the mail eventually arrived.
func (s *service) RequestOTP(ctx context.Context, email string) (time.Time, error) {
	if email == "" {
		return time.Time{}, fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}
	unlock := s.locks.Lock(email)
	defer unlock()

	if _, err := s.candidates.GetByEmail(ctx, email); err == nil {
		return time.Time{}, domain.DuplicateField("email", "email already registered")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return time.Time{}, fmt.Errorf("candidate lookup: %w", domain.ErrPersistence)
	}

	code, err := generateCode()
	if err != nil {
		return time.Time{}, err
	}
	expiresAt := s.now().Add(s.otpTTL)
	entry := domain.OTPEntry{Code: code, ExpiresAt: expiresAt.Unix()}
	if err := s.otps.Put(ctx, email, entry); err != nil {
		return time.Time{}, fmt.Errorf("store verification code: %w", domain.ErrPersistence)
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(s.otpTTL.Minutes()))
	if err := s.mailer.SendEmail(email, "Your verification code", body); err != nil {
		return time.Time{}, fmt.Errorf("could not send verification email: %w", domain.ErrDeliveryFailed)
	}
	return expiresAt, nil
}

// VerifyOTP checks a submitted code. A correct code marks the entry
// verified and leaves it in place for CompleteRegistration to consume;
// re-verifying before registering is harmless. An expired entry is
// removed so the stale code cannot be retried.
func (s *service) VerifyOTP(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return fmt.Errorf("email and otp are required: %w", domain.ErrBadRequest)
	}
	unlock := s.locks.Lock(email)
	defer unlock()

	entry, err := s.otps.Get(ctx, email)
	if err != nil {
		return fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	if entry.Expired(s.now()) {
		if err := s.otps.Delete(ctx, email); err != nil {
			slog.Warn("failed to delete expired verification code", "email", email, "err", err)
		}
		return fmt.Errorf("verification code expired: %w", domain.ErrExpired)
	}
	if entry.Code != code {
		return fmt.Errorf("incorrect verification code: %w", domain.ErrCodeMismatch)
	}
	entry.Verified = true
	if err := s.otps.Put(ctx, email, *entry); err != nil {
		return fmt.Errorf("store verification state: %w", domain.ErrPersistence)
	}
	return nil
}

// CompleteRegistration consumes a verified OTP entry and admits the
// candidate. The entry is deleted before the uniqueness checks, so one
// verified code admits at most one candidate; any later failure means
// the caller has to request a fresh code. On every failure path an
// already-uploaded photo is handed to the janitor.
func (s *service) CompleteRegistration(ctx context.Context, req domain.RegistrationRequest) (*domain.Candidate, error) {
	unlock := s.locks.Lock(req.Email)
	defer unlock()

	entry, err := s.otps.Get(ctx, req.Email)
	if err != nil || !entry.Verified {
		s.janitor.Discard(req.PhotoKey)
		return nil, fmt.Errorf("email is not verified: %w", domain.ErrNotVerified)
	}
	if err := s.otps.Delete(ctx, req.Email); err != nil {
		slog.Warn("failed to consume verification code", "email", req.Email, "err", err)
	}

	if _, err := s.candidates.GetByEmail(ctx, req.Email); err == nil {
		s.janitor.Discard(req.PhotoKey)
		return nil, domain.DuplicateField("email", "email already registered")
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.janitor.Discard(req.PhotoKey)
		return nil, fmt.Errorf("candidate lookup: %w", domain.ErrPersistence)
	}
	if _, err := s.candidates.GetByPhone(ctx, req.Phone); err == nil {
		s.janitor.Discard(req.PhotoKey)
		return nil, domain.DuplicateField("phone", "phone number already registered")
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.janitor.Discard(req.PhotoKey)
		return nil, fmt.Errorf("candidate lookup: %w", domain.ErrPersistence)
	}

	now := s.now().UTC()
	c := &domain.Candidate{
		CandidateID: id.New(),
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Course:      req.Course,
		College:     req.College,
		University:  req.University,
		PhotoKey:    req.PhotoKey,
		Status:      domain.StatusPending,
		Enable:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.candidates.Put(ctx, c); err != nil {
		s.janitor.Discard(req.PhotoKey)
		return nil, fmt.Errorf("store candidate: %w", domain.ErrPersistence)
	}

	if s.smsSender != nil && c.Phone != "" {
		go s.sendConfirmationSMS(c.Phone, c.Name)
	}
	return c, nil
}

func (s *service) sendConfirmationSMS(phone, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	msg := fmt.Sprintf("Hi %s, we received your application. We'll be in touch.", name)
	if err := s.smsSender.SendSMS(ctx, phone, msg); err != nil {
		slog.Warn("could not send confirmation SMS", "phone", phone, "err", err)
	}
}

// generateCode draws a uniformly random 6-digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
