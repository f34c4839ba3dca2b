package memory

import (
	"context"
	"time"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/repository"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

type projectRepo struct {
	with  access
	clock func() time.Time
}

func checkProjectDates(p *domain.Project) error {
	if p.ExpectedEndDate.Before(p.StartDate) {
		return apperrors.NewValidationError("value violates a check constraint", map[string]any{"constraint": "projects_dates_check"})
	}
	return nil
}

func (r *projectRepo) Create(_ context.Context, project *domain.Project) error {
	return r.with(func(d *dataset) error {
		if err := checkProjectDates(project); err != nil {
			return err
		}
		now := d.tick(r.clock())
		project.ID = newID()
		project.CreatedAt = now
		project.UpdatedAt = now
		d.projects[project.ID] = *project
		return nil
	})
}

func (r *projectRepo) Update(_ context.Context, project *domain.Project) error {
	return r.with(func(d *dataset) error {
		current, ok := d.projects[project.ID]
		if !ok {
			return repository.NotFound("project", project.ID)
		}
		if err := checkProjectDates(project); err != nil {
			return err
		}
		updated := *project
		updated.CreatedAt = current.CreatedAt
		updated.UpdatedAt = d.tick(r.clock())
		d.projects[project.ID] = updated
		project.UpdatedAt = updated.UpdatedAt
		return nil
	})
}

func (r *projectRepo) Delete(_ context.Context, id string) error {
	return r.with(func(d *dataset) error {
		if _, ok := d.projects[id]; !ok {
			return repository.NotFound("project", id)
		}
		delete(d.projects, id)
		for tid, team := range d.teams {
			if team.ProjectID != nil && *team.ProjectID == id {
				team.ProjectID = nil
				d.teams[tid] = team
			}
		}
		return nil
	})
}

func (r *projectRepo) GetByID(_ context.Context, id string) (*domain.Project, error) {
	var out *domain.Project
	err := r.with(func(d *dataset) error {
		project, ok := d.projects[id]
		if !ok {
			return repository.NotFound("project", id)
		}
		out = &project
		return nil
	})
	return out, err
}

func (r *projectRepo) List(_ context.Context, filter repository.ProjectFilter) ([]domain.Project, error) {
	q := normalizeQuery(filter.Query)
	var out []domain.Project
	err := r.with(func(d *dataset) error {
		for _, p := range d.projects {
			if q != "" && !contains(p.Title, q) && !contains(p.Client, q) && !contains(p.Description, q) {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewest(out, func(p domain.Project) time.Time { return p.CreatedAt })
	return limit(out, filter.Limit), nil
}

func (r *projectRepo) ListForMember(_ context.Context, userID string) ([]domain.Project, error) {
	var out []domain.Project
	err := r.with(func(d *dataset) error {
		seen := map[string]struct{}{}
		for _, team := range d.teams {
			if team.ProjectID == nil || !team.HasMember(userID) {
				continue
			}
			if _, dup := seen[*team.ProjectID]; dup {
				continue
			}
			if p, ok := d.projects[*team.ProjectID]; ok {
				seen[p.ID] = struct{}{}
				out = append(out, p)
			}
		}
		return nil
	})
	sortNewest(out, func(p domain.Project) time.Time { return p.CreatedAt })
	return out, err
}

func participantIDs(d *dataset, projectID string) map[string]struct{} {
	ids := map[string]struct{}{}
	for _, team := range d.teams {
		if team.ProjectID == nil || *team.ProjectID != projectID {
			continue
		}
		for _, id := range team.MemberIDs {
			ids[id] = struct{}{}
		}
	}
	return ids
}

func (r *projectRepo) Participants(_ context.Context, projectID string) ([]domain.User, error) {
	var out []domain.User
	err := r.with(func(d *dataset) error {
		for id := range participantIDs(d, projectID) {
			if user, ok := d.users[id]; ok {
				out = append(out, user)
			}
		}
		return nil
	})
	sortByUsername(out)
	return out, err
}

func (r *projectRepo) IsParticipant(_ context.Context, projectID, userID string) (bool, error) {
	var ok bool
	err := r.with(func(d *dataset) error {
		_, ok = participantIDs(d, projectID)[userID]
		return nil
	})
	return ok, err
}

func (r *projectRepo) CountByStatus(_ context.Context) (map[domain.ProjectStatus]int, error) {
	counts := map[domain.ProjectStatus]int{
		domain.ProjectStatusPlanned:    0,
		domain.ProjectStatusInProgress: 0,
		domain.ProjectStatusCompleted:  0,
	}
	err := r.with(func(d *dataset) error {
		for _, p := range d.projects {
			counts[p.Status]++
		}
		return nil
	})
	return counts, err
}
