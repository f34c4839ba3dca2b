package dto

import (
	"github.com/spec-kit/devlab/internal/service"
)

// CoordinatorDashboardResponse summarizes the directory.
type CoordinatorDashboardResponse struct {
	TotalProjects        int               `json:"total_projects"`
	TotalTeams           int               `json:"total_teams"`
	TotalUsers           int               `json:"total_users"`
	UsersByRole          map[string]int    `json:"users_by_role"`
	ProjectsByStatus     map[string]int    `json:"projects_by_status"`
	PendingRegistrations int               `json:"pending_registrations"`
	LatestProjects       []ProjectResponse `json:"latest_projects"`
	LatestTeams          []TeamResponse    `json:"latest_teams"`
	LatestUsers          []UserResponse    `json:"latest_users"`
}

// MemberDashboardResponse is the teacher and student landing view.
type MemberDashboardResponse struct {
	MyProjects  []ProjectResponse `json:"my_projects"`
	MyTeams     []TeamResponse    `json:"my_teams"`
	LedTeam     *TeamResponse     `json:"led_team,omitempty"`
	AllProjects []ProjectResponse `json:"all_projects"`
}

// DashboardResponse carries the view matching the caller's role.
type DashboardResponse struct {
	Role        string                        `json:"role"`
	Coordinator *CoordinatorDashboardResponse `json:"coordinator,omitempty"`
	Member      *MemberDashboardResponse      `json:"member,omitempty"`
}

// NewDashboardResponse maps a service dashboard.
func NewDashboardResponse(d *service.Dashboard) DashboardResponse {
	out := DashboardResponse{Role: d.Role.String()}
	if c := d.Coordinator; c != nil {
		byRole := make(map[string]int, len(c.UsersByRole))
		for role, n := range c.UsersByRole {
			byRole[role.String()] = n
		}
		byStatus := make(map[string]int, len(c.ProjectsByStatus))
		for status, n := range c.ProjectsByStatus {
			byStatus[string(status)] = n
		}
		out.Coordinator = &CoordinatorDashboardResponse{
			TotalProjects:        c.TotalProjects,
			TotalTeams:           c.TotalTeams,
			TotalUsers:           c.TotalUsers,
			UsersByRole:          byRole,
			ProjectsByStatus:     byStatus,
			PendingRegistrations: c.PendingRegistrations,
			LatestProjects:       NewProjectList(c.LatestProjects),
			LatestTeams:          NewTeamList(c.LatestTeams),
			LatestUsers:          NewUserList(c.LatestUsers),
		}
	}
	if m := d.Member; m != nil {
		resp := &MemberDashboardResponse{
			MyProjects:  NewProjectList(m.MyProjects),
			MyTeams:     NewTeamList(m.MyTeams),
			AllProjects: NewProjectList(m.AllProjects),
		}
		if m.LedTeam != nil {
			led := NewTeamResponse(m.LedTeam)
			resp.LedTeam = &led
		}
		out.Member = resp
	}
	return out
}

// ContactResponse is the coordination office.
type ContactResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PublicOverviewResponse is shown to visitors.
type PublicOverviewResponse struct {
	Projects        []ProjectResponse `json:"projects"`
	TotalProjects   int               `json:"total_projects"`
	TotalTeams      int               `json:"total_teams"`
	Contact         ContactResponse   `json:"contact"`
	RecentApprovals []string          `json:"recent_approvals"`
}

// NewPublicOverviewResponse maps the public overview. Project descriptions
// are left out for visitors.
func NewPublicOverviewResponse(o *service.PublicOverview) PublicOverviewResponse {
	projects := NewProjectList(o.Projects)
	for i := range projects {
		projects[i].Description = ""
	}
	return PublicOverviewResponse{
		Projects:        projects,
		TotalProjects:   o.TotalProjects,
		TotalTeams:      o.TotalTeams,
		Contact:         ContactResponse{Name: o.Contact.Name, Email: o.Contact.Email},
		RecentApprovals: o.RecentApprovals,
	}
}
