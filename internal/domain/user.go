package domain

import "time"

// User is an account holder of any role.
type User struct {
	ID                 string
	Username           string
	FirstName          string
	LastName           string
	Email              string
	PasswordHash       string
	Role               Role
	RegistrationNumber *string
	NationalID         *string
	BirthDate          *time.Time
	Course             string
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

// Session identifies the caller of an operation.
type Session struct {
	UserID   string
	Username string
	Role     Role
}

// SessionFor builds the session of an authenticated user.
func SessionFor(u *User) Session {
	return Session{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// Authenticated reports whether the session belongs to a known user.
func (s Session) Authenticated() bool {
	return s.UserID != "" && s.Role.Valid()
}
