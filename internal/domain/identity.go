package domain

import "time"

// Identity is a registered principal. PasswordHash never leaves the service.
type Identity struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Disabled     bool
	CreatedAt    time.Time
}

// StudentProfile carries the enrollment data attached to student identities.
type StudentProfile struct {
	IdentityID       int64
	EnrollmentNumber string
	Program          string
	Level            int
}

// StaffProfile carries the employment data attached to non-student identities.
type StaffProfile struct {
	IdentityID  int64
	StaffNumber string
	Department  string
	Faculty     string
}

// Profile is exactly one of Student or Staff, matching the identity role.
type Profile struct {
	Student *StudentProfile
	Staff   *StaffProfile
}
