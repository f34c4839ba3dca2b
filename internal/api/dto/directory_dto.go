package dto

import (
	"time"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/service"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

// ProjectRequest payload for creating and updating projects.
type ProjectRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description" validate:"required"`
	Client          string `json:"client" validate:"required,max=200"`
	Status          string `json:"status" validate:"omitempty,oneof=planned in_progress completed"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	ExpectedEndDate string `json:"expected_end_date" validate:"required,datetime=2006-01-02"`
}

// ToInput converts the payload into service input.
func (r ProjectRequest) ToInput() (service.ProjectInput, error) {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return service.ProjectInput{}, err
	}
	end, err := ParseDate(r.ExpectedEndDate)
	if err != nil {
		return service.ProjectInput{}, err
	}
	if start == nil || end == nil {
		return service.ProjectInput{}, apperrors.NewValidationError("project dates are required", nil)
	}
	return service.ProjectInput{
		Title:           r.Title,
		Description:     r.Description,
		Client:          r.Client,
		Status:          domain.ProjectStatus(r.Status),
		StartDate:       *start,
		ExpectedEndDate: *end,
	}, nil
}

// ProjectResponse is the public shape of a project.
type ProjectResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Client          string    `json:"client"`
	Status          string    `json:"status"`
	StartDate       string    `json:"start_date"`
	ExpectedEndDate string    `json:"expected_end_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewProjectResponse maps a project.
func NewProjectResponse(p *domain.Project) ProjectResponse {
	start, end := p.StartDate, p.ExpectedEndDate
	return ProjectResponse{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		Client:          p.Client,
		Status:          string(p.Status),
		StartDate:       FormatDate(&start),
		ExpectedEndDate: FormatDate(&end),
		CreatedAt:       p.CreatedAt,
	}
}

// NewProjectList maps many projects.
func NewProjectList(projects []domain.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, NewProjectResponse(&projects[i]))
	}
	return out
}

// ProjectViewResponse is a project with the detail the caller may see.
type ProjectViewResponse struct {
	ProjectResponse
	Visibility       string         `json:"visibility"`
	TeamCount        int            `json:"team_count"`
	ParticipantCount int            `json:"participant_count"`
	Teams            []TeamResponse `json:"teams,omitempty"`
	Participants     []UserResponse `json:"participants,omitempty"`
}

// NewProjectViewResponse maps a service view.
func NewProjectViewResponse(v *service.ProjectView) ProjectViewResponse {
	out := ProjectViewResponse{
		ProjectResponse:  NewProjectResponse(&v.Project),
		Visibility:       v.Visibility.String(),
		TeamCount:        v.TeamCount,
		ParticipantCount: v.ParticipantCount,
	}
	if v.Teams != nil {
		out.Teams = NewTeamList(v.Teams)
	}
	if v.Participants != nil {
		out.Participants = NewUserList(v.Participants)
	}
	return out
}

// TeamRequest payload for creating and updating teams.
type TeamRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description"`
	ProjectID   string   `json:"project_id"`
	LeaderID    string   `json:"leader_id"`
	MemberIDs   []string `json:"member_ids" validate:"dive,required"`
}

// ToInput converts the payload into service input.
func (r TeamRequest) ToInput() service.TeamInput {
	return service.TeamInput{
		Name:        r.Name,
		Description: r.Description,
		ProjectID:   r.ProjectID,
		LeaderID:    r.LeaderID,
		MemberIDs:   r.MemberIDs,
	}
}

// MemberRequest adds one user to a team.
type MemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// TeamResponse is the public shape of a team.
type TeamResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ProjectID   *string   `json:"project_id"`
	LeaderID    *string   `json:"leader_id,omitempty"`
	MemberIDs   []string  `json:"member_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTeamResponse maps a team.
func NewTeamResponse(t *domain.Team) TeamResponse {
	return TeamResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		ProjectID:   t.ProjectID,
		LeaderID:    t.LeaderID,
		MemberIDs:   t.MemberIDs,
		CreatedAt:   t.CreatedAt,
	}
}

// NewTeamList maps many teams.
func NewTeamList(teams []domain.Team) []TeamResponse {
	out := make([]TeamResponse, 0, len(teams))
	for i := range teams {
		out = append(out, NewTeamResponse(&teams[i]))
	}
	return out
}

// TeamViewResponse is a team with the detail the caller may see.
type TeamViewResponse struct {
	TeamResponse
	Visibility  string           `json:"visibility"`
	MemberCount int              `json:"member_count"`
	Project     *ProjectResponse `json:"project,omitempty"`
	Leader      *UserResponse    `json:"leader,omitempty"`
	Members     []UserResponse   `json:"members,omitempty"`
}

// NewTeamViewResponse maps a service view.
func NewTeamViewResponse(v *service.TeamView) TeamViewResponse {
	out := TeamViewResponse{
		TeamResponse: NewTeamResponse(&v.Team),
		Visibility:   v.Visibility.String(),
		MemberCount:  v.MemberCount,
	}
	if v.Project != nil {
		p := NewProjectResponse(v.Project)
		out.Project = &p
	}
	if v.Leader != nil {
		l := NewUserResponse(v.Leader)
		out.Leader = &l
	}
	if v.Members != nil {
		out.Members = NewUserList(v.Members)
	}
	return out
}
