package service

import (
	"context"
	"sort"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/policy"
	"github.com/spec-kit/devlab/internal/repository"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

const (
	latestProjects  = 5
	latestTeams     = 5
	latestUsers     = 10
	recentApprovals = 5
)

// Contact is the coordination office shown on public pages.
type Contact struct {
	Name  string
	Email string
}

// DashboardService aggregates the landing views of each role.
type DashboardService struct {
	store   repository.Store
	contact Contact
}

// NewDashboardService builds the service.
func NewDashboardService(store repository.Store, contact Contact) *DashboardService {
	if contact.Name == "" {
		contact.Name = "Coordenação de Projetos"
	}
	return &DashboardService{store: store, contact: contact}
}

// CoordinatorDashboard summarizes the whole directory.
type CoordinatorDashboard struct {
	TotalProjects        int
	TotalTeams           int
	TotalUsers           int
	UsersByRole          map[domain.Role]int
	ProjectsByStatus     map[domain.ProjectStatus]int
	PendingRegistrations int
	LatestProjects       []domain.Project
	LatestTeams          []domain.Team
	LatestUsers          []domain.User
}

// MemberDashboard is what a teacher or student sees after signing in.
type MemberDashboard struct {
	MyProjects  []domain.Project
	MyTeams     []domain.Team
	LedTeam     *domain.Team
	AllProjects []domain.Project
}

// Dashboard holds exactly one of the role-specific views.
type Dashboard struct {
	Role        domain.Role
	Coordinator *CoordinatorDashboard
	Member      *MemberDashboard
}

// ForSession dispatches on the caller's role.
func (s *DashboardService) ForSession(ctx context.Context, session domain.Session) (*Dashboard, error) {
	if err := policy.Authorize(session, policy.ActionViewDirectory); err != nil {
		return nil, err
	}
	out := &Dashboard{Role: session.Role}
	var err error
	switch session.Role {
	case domain.RoleCoordinator:
		out.Coordinator, err = s.Coordinator(ctx, session)
	case domain.RoleTeacher, domain.RoleStudent:
		out.Member, err = s.Member(ctx, session)
	default:
		return nil, apperrors.ErrPermissionDenied
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Coordinator builds the statistics view.
func (s *DashboardService) Coordinator(ctx context.Context, session domain.Session) (*CoordinatorDashboard, error) {
	if err := policy.Authorize(session, policy.ActionViewStatistics); err != nil {
		return nil, err
	}
	var (
		d   CoordinatorDashboard
		err error
	)
	if d.UsersByRole, err = s.store.Users().CountByRole(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}
	if d.ProjectsByStatus, err = s.store.Projects().CountByStatus(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}
	if d.TotalTeams, err = s.store.Teams().Count(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}
	regs, err := s.store.Registrations().CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	d.PendingRegistrations = regs[domain.RegistrationPending]
	for _, n := range d.UsersByRole {
		d.TotalUsers += n
	}
	for _, n := range d.ProjectsByStatus {
		d.TotalProjects += n
	}

	if d.LatestProjects, err = s.store.Projects().List(ctx, repository.ProjectFilter{Limit: latestProjects}); err != nil {
		return nil, apperrors.MapError(err)
	}
	if d.LatestTeams, err = s.store.Teams().List(ctx, repository.TeamFilter{Newest: true, Limit: latestTeams}); err != nil {
		return nil, apperrors.MapError(err)
	}
	if d.LatestUsers, err = s.store.Users().List(ctx, repository.UserFilter{Newest: true, Limit: latestUsers}); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &d, nil
}

// Member builds the view of a teacher or student.
func (s *DashboardService) Member(ctx context.Context, session domain.Session) (*MemberDashboard, error) {
	if err := policy.Authorize(session, policy.ActionViewDirectory); err != nil {
		return nil, err
	}
	var (
		d   MemberDashboard
		err error
	)
	if d.MyProjects, err = s.store.Projects().ListForMember(ctx, session.UserID); err != nil {
		return nil, apperrors.MapError(err)
	}
	if d.MyTeams, err = s.store.Teams().List(ctx, repository.TeamFilter{MemberID: session.UserID}); err != nil {
		return nil, apperrors.MapError(err)
	}
	led, err := s.store.Teams().GetByLeader(ctx, session.UserID)
	switch {
	case err == nil:
		d.LedTeam = led
	case !repository.IsNotFound(err):
		return nil, apperrors.MapError(err)
	}
	if d.AllProjects, err = s.store.Projects().List(ctx, repository.ProjectFilter{}); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &d, nil
}

// PublicOverview is shown to visitors without an account.
type PublicOverview struct {
	Projects        []domain.Project
	TotalProjects   int
	TotalTeams      int
	Contact         Contact
	// RecentApprovals holds the names of the latest approved signups.
	RecentApprovals []string
}

// Public needs no session.
func (s *DashboardService) Public(ctx context.Context) (*PublicOverview, error) {
	projects, err := s.store.Projects().List(ctx, repository.ProjectFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	teams, err := s.store.Teams().Count(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	approved, err := s.store.Registrations().List(ctx, repository.RegistrationFilter{Status: domain.RegistrationApproved})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sort.SliceStable(approved, func(i, j int) bool {
		a, b := approved[i].ProcessedAt, approved[j].ProcessedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})
	names := make([]string, 0, recentApprovals)
	for i := 0; i < len(approved) && i < recentApprovals; i++ {
		names = append(names, approved[i].FullName)
	}
	return &PublicOverview{
		Projects:        projects,
		TotalProjects:   len(projects),
		TotalTeams:      teams,
		Contact:         s.contact,
		RecentApprovals: names,
	}, nil
}
