package domain

import "time"

// Team groups members under an optional project and leader.
type Team struct {
	ID          string
	ProjectID   *string
	Name        string
	Description string
	LeaderID    *string
	MemberIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasMember reports whether userID is listed among the members.
func (t *Team) HasMember(userID string) bool {
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
