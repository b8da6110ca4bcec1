// Package auth implements phone-verification login: OTP issue and check,
// profile creation, and user lookup.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/investestate/platform/internal/app/domain/user"
	"github.com/investestate/platform/internal/app/metrics"
	"github.com/investestate/platform/internal/app/storage"
	"github.com/investestate/platform/pkg/logger"
)

var (
	// ErrInvalidPhone is returned when the phone number is not 10 digits.
	ErrInvalidPhone = errors.New("phone number must be 10 digits")
	// ErrInvalidOTP is returned when no matching code exists or the code is
	// wrong.
	ErrInvalidOTP = errors.New("invalid otp")
	// ErrOTPExpired is returned when the latest code has passed its expiry.
	ErrOTPExpired = errors.New("otp expired")
	// ErrTooManyAttempts is returned once a code has seen too many failed
	// checks; a fresh code must be requested.
	ErrTooManyAttempts = errors.New("too many otp attempts")
	// ErrRateLimited is returned when OTP sends for a phone come too fast.
	ErrRateLimited = errors.New("otp requests too frequent")
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// Sender delivers a verification code to a phone. Production wires an SMS
// gateway; the default logs the code for local development.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

type logSender struct {
	log *logger.Logger
}

func (s logSender) Send(_ context.Context, phone, code string) error {
	s.log.Infof("OTP for %s: %s", phone, code)
	return nil
}

// Service implements the phone-verification flow.
type Service struct {
	users       storage.UserStore
	otps        storage.OTPStore
	sender      Sender
	limiter     *phoneLimiter
	ttl         time.Duration
	maxAttempts int
	log         *logger.Logger

	// generate is a hook for tests; defaults to a crypto/rand 6-digit code.
	generate func() (string, error)
}

// Option configures the service.
type Option func(*Service)

// WithSender replaces the default logging sender.
func WithSender(sender Sender) Option {
	return func(s *Service) {
		if sender != nil {
			s.sender = sender
		}
	}
}

// WithCodeTTL sets the validity window of issued codes.
func WithCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithGenerator replaces the code generator. Intended for tests.
func WithGenerator(generate func() (string, error)) Option {
	return func(s *Service) {
		if generate != nil {
			s.generate = generate
		}
	}
}

// New constructs an auth service.
func New(users storage.UserStore, otps storage.OTPStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	s := &Service{
		users:       users,
		otps:        otps,
		sender:      logSender{log: log},
		limiter:     newPhoneLimiter(),
		ttl:         5 * time.Minute,
		maxAttempts: 5,
		log:         log,
		generate:    generateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// generateCode draws a uniformly random 6-digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// SendOTP issues a fresh code for the phone and hands it to the sender. Only
// a bcrypt hash of the code is persisted.
func (s *Service) SendOTP(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	if !s.limiter.allow(phone) {
		return ErrRateLimited
	}

	code, err := s.generate()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}

	otp := user.OTP{
		PhoneNumber: phone,
		CodeHash:    string(hash),
		ExpiresAt:   time.Now().UTC().Add(s.ttl),
	}
	if _, err := s.otps.CreateOTP(ctx, otp); err != nil {
		return err
	}

	if err := s.sender.Send(ctx, phone, code); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}

	metrics.RecordOTPIssued()
	s.log.WithField("phone", phone).Info("otp issued")
	return nil
}

// VerifyOTP checks the code against the latest unused issue for the phone.
// On success the code is marked used (single-use) and the registered user is
// returned; isNewUser reports that no profile exists yet for the phone.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (u user.User, isNewUser bool, err error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if !phonePattern.MatchString(phone) {
		return user.User{}, false, ErrInvalidPhone
	}
	if code == "" {
		return user.User{}, false, ErrInvalidOTP
	}

	otp, err := s.otps.LatestOTP(ctx, phone)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.RecordOTPVerification("rejected")
			return user.User{}, false, ErrInvalidOTP
		}
		return user.User{}, false, err
	}

	if time.Now().UTC().After(otp.ExpiresAt) {
		metrics.RecordOTPVerification("expired")
		return user.User{}, false, ErrOTPExpired
	}
	if otp.Attempts >= s.maxAttempts {
		metrics.RecordOTPVerification("rejected")
		return user.User{}, false, ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) != nil {
		otp.Attempts++
		if _, updateErr := s.otps.UpdateOTP(ctx, otp); updateErr != nil {
			s.log.WithError(updateErr).Warn("record otp attempt failed")
		}
		metrics.RecordOTPVerification("rejected")
		return user.User{}, false, ErrInvalidOTP
	}

	otp.Used = true
	if _, err := s.otps.UpdateOTP(ctx, otp); err != nil {
		return user.User{}, false, err
	}
	metrics.RecordOTPVerification("accepted")

	existing, err := s.users.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, true, nil
		}
		return user.User{}, false, err
	}
	s.log.WithField("phone", phone).WithField("user_id", existing.ID).Info("otp verified")
	return existing, false, nil
}

// CreateProfile registers a user for a verified phone number.
func (s *Service) CreateProfile(ctx context.Context, phone, name, email string) (user.User, error) {
	phone = strings.TrimSpace(phone)
	name = strings.TrimSpace(name)
	if !phonePattern.MatchString(phone) {
		return user.User{}, ErrInvalidPhone
	}
	if name == "" {
		return user.User{}, fmt.Errorf("name is required")
	}

	created, err := s.users.CreateUser(ctx, user.User{
		PhoneNumber: phone,
		Name:        name,
		Email:       strings.TrimSpace(email),
	})
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).WithField("phone", phone).Info("profile created")
	return created, nil
}

// GetUser fetches a user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (user.User, error) {
	return s.users.GetUser(ctx, id)
}
