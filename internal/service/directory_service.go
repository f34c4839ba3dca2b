package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/policy"
	"github.com/spec-kit/devlab/internal/repository"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

// DirectoryService manages projects and teams and derives participation.
type DirectoryService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewDirectoryService builds the service.
func NewDirectoryService(store repository.Store, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{store: store, logger: logger}
}

// ProjectInput carries the editable project fields.
type ProjectInput struct {
	Title           string
	Description     string
	Client          string
	Status          domain.ProjectStatus
	StartDate       time.Time
	ExpectedEndDate time.Time
}

func (in *ProjectInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Client = strings.TrimSpace(in.Client)
	if in.Status == "" {
		in.Status = domain.ProjectStatusPlanned
	}

	fe := fieldErrors{}
	if in.Title == "" {
		fe.add("title", "title is required")
	}
	if in.Description == "" {
		fe.add("description", "description is required")
	}
	if in.Client == "" {
		fe.add("client", "client is required")
	}
	if !in.Status.Valid() {
		fe.add("status", "status must be planned, in_progress or completed")
	}
	if in.StartDate.IsZero() {
		fe.add("start_date", "start date is required")
	}
	if in.ExpectedEndDate.IsZero() {
		fe.add("expected_end_date", "expected end date is required")
	}
	if !in.StartDate.IsZero() && !in.ExpectedEndDate.IsZero() && dateOnly(in.ExpectedEndDate).Before(dateOnly(in.StartDate)) {
		fe.add("expected_end_date", "expected end date cannot be before the start date")
	}
	return fe.err()
}

func (in ProjectInput) apply(p *domain.Project) {
	p.Title = in.Title
	p.Description = in.Description
	p.Client = in.Client
	p.Status = in.Status
	p.StartDate = dateOnly(in.StartDate)
	p.ExpectedEndDate = dateOnly(in.ExpectedEndDate)
}

// CreateProject adds a project.
func (s *DirectoryService) CreateProject(ctx context.Context, session domain.Session, in ProjectInput) (*domain.Project, error) {
	if err := policy.Authorize(session, policy.ActionManageProjects); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	project := &domain.Project{}
	in.apply(project)
	if err := s.store.Projects().Create(ctx, project); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("project created", zap.String("project_id", project.ID), zap.String("by", session.UserID))
	return project, nil
}

// UpdateProject replaces the fields of a project.
func (s *DirectoryService) UpdateProject(ctx context.Context, session domain.Session, id string, in ProjectInput) (*domain.Project, error) {
	if err := policy.Authorize(session, policy.ActionManageProjects); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	project, err := s.store.Projects().GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	in.apply(project)
	if err := s.store.Projects().Update(ctx, project); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("project updated", zap.String("project_id", project.ID), zap.String("by", session.UserID))
	return project, nil
}

// DeleteProject removes a project; its teams stay, unattached.
func (s *DirectoryService) DeleteProject(ctx context.Context, session domain.Session, id string) error {
	if err := policy.Authorize(session, policy.ActionManageProjects); err != nil {
		return err
	}
	if err := s.store.Projects().Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("project deleted", zap.String("project_id", id), zap.String("by", session.UserID))
	return nil
}

// ListProjects is open to every authenticated role.
func (s *DirectoryService) ListProjects(ctx context.Context, session domain.Session, query string) ([]domain.Project, error) {
	if err := policy.Authorize(session, policy.ActionViewDirectory); err != nil {
		return nil, err
	}
	projects, err := s.store.Projects().List(ctx, repository.ProjectFilter{Query: query})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return projects, nil
}

// ProjectView is a project as one caller may see it. Restricted views carry
// no description, teams or participants, only the counts.
type ProjectView struct {
	Project          domain.Project
	Visibility       policy.Visibility
	Teams            []domain.Team
	Participants     []domain.User
	TeamCount        int
	ParticipantCount int
}

// GetProject returns the caller's view of a project.
func (s *DirectoryService) GetProject(ctx context.Context, session domain.Session, id string) (*ProjectView, error) {
	if err := policy.Authorize(session, policy.ActionViewDirectory); err != nil {
		return nil, err
	}
	project, err := s.store.Projects().GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	teams, err := s.store.Teams().List(ctx, repository.TeamFilter{ProjectID: id})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	participants, err := s.store.Projects().Participants(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	isParticipant := false
	for _, u := range participants {
		if u.ID == session.UserID {
			isParticipant = true
			break
		}
	}

	view := &ProjectView{
		Project:          *project,
		Visibility:       policy.DetailVisibility(session, isParticipant),
		TeamCount:        len(teams),
		ParticipantCount: len(participants),
	}
	if view.Visibility == policy.VisibilityFull {
		view.Teams = teams
		view.Participants = participants
	} else {
		view.Project.Description = ""
	}
	return view, nil
}

// ProjectParticipants is the distinct set of members of the project's teams.
func (s *DirectoryService) ProjectParticipants(ctx context.Context, session domain.Session, projectID string) ([]domain.User, error) {
	if err := policy.Authorize(session, policy.ActionViewDirectory); err != nil {
		return nil, err
	}
	if _, err := s.store.Projects().GetByID(ctx, projectID); err != nil {
		return nil, apperrors.MapError(err)
	}
	if session.Role != domain.RoleCoordinator {
		ok, err := s.store.Projects().IsParticipant(ctx, projectID, session.UserID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !ok {
			return nil, apperrors.ErrPermissionDenied.WithDetails(map[string]any{"project_id": projectID})
		}
	}
	users, err := s.store.Projects().Participants(ctx, projectID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// TeamInput carries the editable team fields. Empty ProjectID and LeaderID
// leave the team unattached and leaderless.
type TeamInput struct {
	Name        string
	Description string
	ProjectID   string
	LeaderID    string
	MemberIDs   []string
}

// validateTeam checks the form and the referenced project and people. The
// leader is not required to be a member or a project participant.
func (s *DirectoryService) validateTeam(ctx context.Context, tx repository.Store, in *TeamInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.LeaderID = strings.TrimSpace(in.LeaderID)

	fe := fieldErrors{}
	if in.Name == "" {
		fe.add("name", "name is required")
	}
	if in.ProjectID != "" {
		if _, err := tx.Projects().GetByID(ctx, in.ProjectID); err != nil {
			if !repository.IsNotFound(err) {
				return err
			}
			fe.add("project_id", "project does not exist")
		}
	}

	ids := append([]string(nil), in.MemberIDs...)
	if in.LeaderID != "" {
		ids = append(ids, in.LeaderID)
	}
	if len(ids) > 0 {
		people, err := tx.Users().ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]domain.User, len(people))
		for _, u := range people {
			byID[u.ID] = u
		}
		eligible := func(id string) string {
			u, ok := byID[id]
			switch {
			case !ok:
				return "user does not exist"
			case u.Role != domain.RoleTeacher && u.Role != domain.RoleStudent:
				return "only teachers and students can join teams"
			default:
				return ""
			}
		}
		if in.LeaderID != "" {
			if msg := eligible(in.LeaderID); msg != "" {
				fe.add("leader_id", msg)
			}
		}
		for _, id := range in.MemberIDs {
			if msg := eligible(id); msg != "" {
				fe.add("member_ids", msg)
			}
		}
	}
	return fe.err()
}

func (in TeamInput) apply(t *domain.Team) {
	t.Name = in.Name
	t.Description = in.Description
	t.ProjectID = optional(in.ProjectID)
	t.LeaderID = optional(in.LeaderID)
	t.MemberIDs = append([]string(nil), in.MemberIDs...)
}

// CreateTeam adds a team. A user may lead at most one team.
func (s *DirectoryService) CreateTeam(ctx context.Context, session domain.Session, in TeamInput) (*domain.Team, error) {
	if err := policy.Authorize(session, policy.ActionManageTeams); err != nil {
		return nil, err
	}
	team := &domain.Team{}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := s.validateTeam(ctx, tx, &in); err != nil {
			return err
		}
		in.apply(team)
		return tx.Teams().Create(ctx, team)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("team created", zap.String("team_id", team.ID), zap.String("by", session.UserID))
	return team, nil
}

// UpdateTeam replaces the fields and the membership of a team.
func (s *DirectoryService) UpdateTeam(ctx context.Context, session domain.Session, id string, in TeamInput) (*domain.Team, error) {
	if err := policy.Authorize(session, policy.ActionManageTeams); err != nil {
		return nil, err
	}
	var team *domain.Team
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		team, err = tx.Teams().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.validateTeam(ctx, tx, &in); err != nil {
			return err
		}
		in.apply(team)
		return tx.Teams().Update(ctx, team)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("team updated", zap.String("team_id", team.ID), zap.String("by", session.UserID))
	return team, nil
}

// DeleteTeam removes a team and its memberships.
func (s *DirectoryService) DeleteTeam(ctx context.Context, session domain.Session, id string) error {
	if err := policy.Authorize(session, policy.ActionManageTeams); err != nil {
		return err
	}
	if err := s.store.Teams().Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("team deleted", zap.String("team_id", id), zap.String("by", session.UserID))
	return nil
}

// AddMember puts a teacher or student on a team.
func (s *DirectoryService) AddMember(ctx context.Context, session domain.Session, teamID, userID string) error {
	if err := policy.Authorize(session, policy.ActionManageTeams); err != nil {
		return err
	}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Teams().GetByID(ctx, teamID); err != nil {
			return err
		}
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.Role != domain.RoleTeacher && user.Role != domain.RoleStudent {
			return apperrors.NewValidationError("validation failed", map[string]any{"user_id": "only teachers and students can join teams"})
		}
		return tx.Teams().AddMember(ctx, teamID, userID)
	})
	return apperrors.MapError(err)
}

// RemoveMember takes a user off a team. Removing a non-member is a no-op.
func (s *DirectoryService) RemoveMember(ctx context.Context, session domain.Session, teamID, userID string) error {
	if err := policy.Authorize(session, policy.ActionManageTeams); err != nil {
		return err
	}
	if _, err := s.store.Teams().GetByID(ctx, teamID); err != nil {
		return apperrors.MapError(err)
	}
	return apperrors.MapError(s.store.Teams().RemoveMember(ctx, teamID, userID))
}

// ListTeams is ordered by project title then team name.
func (s *DirectoryService) ListTeams(ctx context.Context, session domain.Session, query string) ([]domain.Team, error) {
	if err := policy.Authorize(session, policy.ActionViewDirectory); err != nil {
		return nil, err
	}
	teams, err := s.store.Teams().List(ctx, repository.TeamFilter{Query: query})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return teams, nil
}

// TeamView is a team as one caller may see it. Restricted views carry no
// description, leader or members, only the member count.
type TeamView struct {
	Team        domain.Team
	Visibility  policy.Visibility
	Project     *domain.Project
	Leader      *domain.User
	Members     []domain.User
	MemberCount int
}

// GetTeam returns the caller's view of a team.
func (s *DirectoryService) GetTeam(ctx context.Context, session domain.Session, id string) (*TeamView, error) {
	if err := policy.Authorize(session, policy.ActionViewDirectory); err != nil {
		return nil, err
	}
	team, err := s.store.Teams().GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	view := &TeamView{
		Team:        *team,
		Visibility:  policy.DetailVisibility(session, team.HasMember(session.UserID)),
		MemberCount: len(team.MemberIDs),
	}
	if team.ProjectID != nil {
		project, err := s.store.Projects().GetByID(ctx, *team.ProjectID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, apperrors.MapError(err)
		}
		view.Project = project
	}

	if view.Visibility != policy.VisibilityFull {
		view.Team.Description = ""
		view.Team.LeaderID = nil
		view.Team.MemberIDs = nil
		return view, nil
	}

	ids := append([]string(nil), team.MemberIDs...)
	if team.LeaderID != nil {
		ids = append(ids, *team.LeaderID)
	}
	people, err := s.store.Users().ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range people {
		u := people[i]
		if team.LeaderID != nil && u.ID == *team.LeaderID {
			view.Leader = &u
		}
		if team.HasMember(u.ID) {
			view.Members = append(view.Members, u)
		}
	}
	return view, nil
}
