package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/investestate/platform/internal/app/storage"
	"github.com/investestate/platform/internal/app/storage/memory"
)

type captureSender struct {
	phone string
	code  string
}

func (s *captureSender) Send(_ context.Context, phone, code string) error {
	s.phone = phone
	s.code = code
	return nil
}

func TestService_SendVerifyFlow(t *testing.T) {
	store := memory.New()
	sender := &captureSender{}
	svc := New(store, store, nil, WithSender(sender))

	if err := svc.SendOTP(context.Background(), " 9876543210 "); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	if sender.phone != "9876543210" {
		t.Fatalf("sender got phone %q", sender.phone)
	}
	if len(sender.code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", sender.code)
	}

	_, isNew, err := svc.VerifyOTP(context.Background(), "9876543210", sender.code)
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if !isNew {
		t.Fatal("unregistered phone should report new user")
	}

	// codes are single use
	if _, _, err := svc.VerifyOTP(context.Background(), "9876543210", sender.code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("reused code should fail, got %v", err)
	}

	u, err := svc.CreateProfile(context.Background(), "9876543210", " Asha ", "asha@example.com")
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if u.ID <= 0 || u.Name != "Asha" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if err := svc.SendOTP(context.Background(), "9876543210"); err != nil {
		t.Fatalf("second send: %v", err)
	}
	got, isNew, err := svc.VerifyOTP(context.Background(), "9876543210", sender.code)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if isNew {
		t.Fatal("registered phone should not report new user")
	}
	if got.ID != u.ID {
		t.Fatalf("wrong user returned: %+v", got)
	}
}

func TestService_SendOTPInvalidPhone(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil, WithSender(&captureSender{}))

	for _, phone := range []string{"", "12345", "98765432101", "abcdefghij", "+919876543210"} {
		if err := svc.SendOTP(context.Background(), phone); !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("phone %q: expected ErrInvalidPhone, got %v", phone, err)
		}
	}
}

func TestService_VerifyWrongCode(t *testing.T) {
	store := memory.New()
	sender := &captureSender{}
	svc := New(store, store, nil, WithSender(sender),
		WithGenerator(func() (string, error) { return "123456", nil }))

	if err := svc.SendOTP(context.Background(), "9876543210"); err != nil {
		t.Fatalf("send otp: %v", err)
	}

	if _, _, err := svc.VerifyOTP(context.Background(), "9876543210", "000000"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("wrong code should fail, got %v", err)
	}
	if _, _, err := svc.VerifyOTP(context.Background(), "9999999999", "123456"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("unknown phone should fail, got %v", err)
	}

	// correct code still works after one failure
	if _, _, err := svc.VerifyOTP(context.Background(), "9876543210", "123456"); err != nil {
		t.Fatalf("verify after failure: %v", err)
	}
}

func TestService_VerifyAttemptLimit(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil, WithSender(&captureSender{}),
		WithGenerator(func() (string, error) { return "123456", nil }))

	if err := svc.SendOTP(context.Background(), "9876543210"); err != nil {
		t.Fatalf("send otp: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, _, err := svc.VerifyOTP(context.Background(), "9876543210", "000000"); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("attempt %d: expected ErrInvalidOTP, got %v", i, err)
		}
	}
	// even the right code is rejected once the limit is hit
	if _, _, err := svc.VerifyOTP(context.Background(), "9876543210", "123456"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestService_VerifyExpiredCode(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil, WithSender(&captureSender{}),
		WithCodeTTL(time.Nanosecond),
		WithGenerator(func() (string, error) { return "123456", nil }))

	if err := svc.SendOTP(context.Background(), "9876543210"); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, _, err := svc.VerifyOTP(context.Background(), "9876543210", "123456"); !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}
}

func TestService_SendOTPRateLimited(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil, WithSender(&captureSender{}))

	var limited bool
	for i := 0; i < 10; i++ {
		err := svc.SendOTP(context.Background(), "9876543210")
		if errors.Is(err, ErrRateLimited) {
			limited = true
			break
		}
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if !limited {
		t.Fatal("burst of sends should hit the rate limit")
	}

	// other phones are unaffected
	if err := svc.SendOTP(context.Background(), "9123456780"); err != nil {
		t.Fatalf("other phone should not be limited: %v", err)
	}
}

func TestService_CreateProfileDuplicatePhone(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	if _, err := svc.CreateProfile(context.Background(), "9876543210", "Asha", ""); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if _, err := svc.CreateProfile(context.Background(), "9876543210", "Ravi", ""); !errors.Is(err, storage.ErrPhoneExists) {
		t.Fatalf("expected ErrPhoneExists, got %v", err)
	}
	if _, err := svc.CreateProfile(context.Background(), "9876543210", "", ""); err == nil {
		t.Fatal("empty name should fail")
	}
}
