package domain

import "time"

// IssuedToken describes an access token handed out at login.
type IssuedToken struct {
	ID        string
	UserID    string
	Role      Role
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
