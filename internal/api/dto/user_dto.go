package dto

import (
	"time"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/service"
)

// UserRequest payload for creating and updating accounts. Password fields are
// ignored on update.
type UserRequest struct {
	Username           string `json:"username" validate:"required,max=150"`
	FirstName          string `json:"first_name" validate:"max=150"`
	LastName           string `json:"last_name" validate:"max=150"`
	Email              string `json:"email" validate:"required,email"`
	Role               string `json:"role" validate:"required"`
	RegistrationNumber string `json:"registration_number" validate:"omitempty,max=20"`
	NationalID         string `json:"national_id" validate:"omitempty,len=11,numeric"`
	BirthDate          string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Course             string `json:"course" validate:"max=100"`
	Active             *bool  `json:"active"`
	Password           string `json:"password"`
	ConfirmPassword    string `json:"confirm_password"`
}

// ToInput converts the payload into service input.
func (r UserRequest) ToInput() (service.UserInput, error) {
	role, err := domain.ParseRole(r.Role)
	if err != nil {
		role = domain.RoleUnknown
	}
	birth, err := ParseDate(r.BirthDate)
	if err != nil {
		return service.UserInput{}, err
	}
	return service.UserInput{
		Username:           r.Username,
		FirstName:          r.FirstName,
		LastName:           r.LastName,
		Email:              r.Email,
		Role:               role,
		RegistrationNumber: r.RegistrationNumber,
		NationalID:         r.NationalID,
		BirthDate:          birth,
		Course:             r.Course,
		Active:             r.Active,
		Password:           r.Password,
		ConfirmPassword:    r.ConfirmPassword,
	}, nil
}

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID                 string      `json:"id"`
	Username           string      `json:"username"`
	FirstName          string      `json:"first_name"`
	LastName           string      `json:"last_name"`
	FullName           string      `json:"full_name"`
	Email              string      `json:"email"`
	Role               domain.Role `json:"role"`
	RegistrationNumber *string     `json:"registration_number,omitempty"`
	NationalID         *string     `json:"national_id,omitempty"`
	BirthDate          string      `json:"birth_date,omitempty"`
	Course             string      `json:"course,omitempty"`
	Active             bool        `json:"active"`
	CreatedAt          time.Time   `json:"created_at"`
}

// NewUserResponse maps an account, leaving out the password hash.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Username:           u.Username,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		FullName:           u.FullName(),
		Email:              u.Email,
		Role:               u.Role,
		RegistrationNumber: u.RegistrationNumber,
		NationalID:         u.NationalID,
		BirthDate:          FormatDate(u.BirthDate),
		Course:             u.Course,
		Active:             u.Active,
		CreatedAt:          u.CreatedAt,
	}
}

// NewUserList maps many accounts.
func NewUserList(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

// UserDetailResponse adds memberships to an account.
type UserDetailResponse struct {
	UserResponse
	Teams    []TeamResponse    `json:"teams"`
	Projects []ProjectResponse `json:"projects"`
}

// NewUserDetailResponse maps a service detail.
func NewUserDetailResponse(d *service.UserDetail) UserDetailResponse {
	return UserDetailResponse{
		UserResponse: NewUserResponse(d.User),
		Teams:        NewTeamList(d.Teams),
		Projects:     NewProjectList(d.Projects),
	}
}
