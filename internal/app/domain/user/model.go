package user

import "time"

// User is a registered account holder. EID is the per-user signing secret
// generated once at creation; it never changes afterwards.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	EID            string
	Firstname      string
	Lastname       string
	PhoneNo        string
	Country        string
	AboutMe        string
	IsActive       bool
	IsAdmin        bool
	IsVerified     bool
	LastLogin      time.Time
	LastResendCode time.Time
	DateJoined     time.Time
	UpdatedAt      time.Time
}

// IsStaff reports whether the user has staff capabilities.
func (u User) IsStaff() bool {
	return u.IsAdmin
}

// HasUsablePassword reports whether the stored hash can ever match a
// password. Hashes carrying the locked prefix are produced when a reset code
// is consumed and reject every login attempt.
func (u User) HasUsablePassword() bool {
	return u.PasswordHash != "" && u.PasswordHash[0] != '!'
}

// AccountCode holds the outstanding registration or reset code for a user.
// At most one row exists per user; it is deleted when a code is consumed.
type AccountCode struct {
	ID        string
	UserID    string
	RegCode   string
	ResetCode string
	CreatedAt time.Time
	UpdatedAt time.Time
}
