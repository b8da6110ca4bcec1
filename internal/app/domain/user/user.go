package user

import "time"

// User is a registered investor, identified by a verified phone number.
type User struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phoneNumber"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OTP is a single phone-verification code issue. Only a bcrypt hash of the
// code is kept; the clear code exists just long enough to hand to the sender.
type OTP struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phoneNumber"`
	CodeHash    string    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Used        bool      `json:"used"`
	Attempts    int       `json:"attempts"`
	CreatedAt   time.Time `json:"createdAt"`
}
