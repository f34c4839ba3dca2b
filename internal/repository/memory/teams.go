package memory

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/repository"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

type teamRepo struct {
	with  access
	clock func() time.Time
}

func foreignKey(constraint string) error {
	return apperrors.NewValidationError("referenced record does not exist", map[string]any{"constraint": constraint})
}

// checkTeam mirrors the foreign keys and the leader uniqueness constraint.
func checkTeam(d *dataset, t *domain.Team) error {
	if t.ProjectID != nil {
		if _, ok := d.projects[*t.ProjectID]; !ok {
			return foreignKey("teams_project_id_fkey")
		}
	}
	if t.LeaderID != nil {
		if _, ok := d.users[*t.LeaderID]; !ok {
			return foreignKey("teams_leader_id_fkey")
		}
		for id, other := range d.teams {
			if id != t.ID && other.LeaderID != nil && *other.LeaderID == *t.LeaderID {
				return apperrors.ErrLeaderTaken
			}
		}
	}
	for _, member := range t.MemberIDs {
		if _, ok := d.users[member]; !ok {
			return foreignKey("team_members_user_id_fkey")
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *teamRepo) Create(_ context.Context, team *domain.Team) error {
	return r.with(func(d *dataset) error {
		if err := checkTeam(d, team); err != nil {
			return err
		}
		now := d.tick(r.clock())
		team.ID = newID()
		team.MemberIDs = dedupe(team.MemberIDs)
		team.CreatedAt = now
		team.UpdatedAt = now
		d.teams[team.ID] = cloneTeam(*team)
		return nil
	})
}

func (r *teamRepo) Update(_ context.Context, team *domain.Team) error {
	return r.with(func(d *dataset) error {
		current, ok := d.teams[team.ID]
		if !ok {
			return repository.NotFound("team", team.ID)
		}
		if err := checkTeam(d, team); err != nil {
			return err
		}
		team.MemberIDs = dedupe(team.MemberIDs)
		team.CreatedAt = current.CreatedAt
		team.UpdatedAt = d.tick(r.clock())
		d.teams[team.ID] = cloneTeam(*team)
		return nil
	})
}

func (r *teamRepo) Delete(_ context.Context, id string) error {
	return r.with(func(d *dataset) error {
		if _, ok := d.teams[id]; !ok {
			return repository.NotFound("team", id)
		}
		delete(d.teams, id)
		return nil
	})
}

func (r *teamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	var out *domain.Team
	err := r.with(func(d *dataset) error {
		team, ok := d.teams[id]
		if !ok {
			return repository.NotFound("team", id)
		}
		cp := cloneTeam(team)
		out = &cp
		return nil
	})
	return out, err
}

func (r *teamRepo) GetByLeader(_ context.Context, userID string) (*domain.Team, error) {
	var out *domain.Team
	err := r.with(func(d *dataset) error {
		for _, team := range d.teams {
			if team.LeaderID != nil && *team.LeaderID == userID {
				cp := cloneTeam(team)
				out = &cp
				return nil
			}
		}
		return repository.NotFound("team", userID)
	})
	return out, err
}

func (r *teamRepo) List(_ context.Context, filter repository.TeamFilter) ([]domain.Team, error) {
	q := normalizeQuery(filter.Query)
	type row struct {
		team    domain.Team
		title   string
		hasProj bool
	}
	var rows []row
	err := r.with(func(d *dataset) error {
		for _, team := range d.teams {
			var title string
			hasProj := false
			if team.ProjectID != nil {
				if p, ok := d.projects[*team.ProjectID]; ok {
					title, hasProj = p.Title, true
				}
			}
			if filter.ProjectID != "" && (team.ProjectID == nil || *team.ProjectID != filter.ProjectID) {
				continue
			}
			if filter.MemberID != "" && !team.HasMember(filter.MemberID) {
				continue
			}
			if q != "" && !contains(team.Name, q) && !(hasProj && contains(title, q)) {
				continue
			}
			rows = append(rows, row{team: cloneTeam(team), title: title, hasProj: hasProj})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if filter.Newest {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].team.CreatedAt.After(rows[j].team.CreatedAt) })
	} else {
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i], rows[j]
			if a.hasProj != b.hasProj {
				return a.hasProj
			}
			if a.title != b.title {
				return a.title < b.title
			}
			return a.team.Name < b.team.Name
		})
	}

	out := make([]domain.Team, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.team)
	}
	return limit(out, filter.Limit), nil
}

func (r *teamRepo) AddMember(_ context.Context, teamID, userID string) error {
	return r.with(func(d *dataset) error {
		team, ok := d.teams[teamID]
		if !ok {
			return repository.NotFound("team", teamID)
		}
		if _, ok := d.users[userID]; !ok {
			return foreignKey("team_members_user_id_fkey")
		}
		if !team.HasMember(userID) {
			team.MemberIDs = dedupe(append(team.MemberIDs, userID))
			d.teams[teamID] = team
		}
		return nil
	})
}

func (r *teamRepo) RemoveMember(_ context.Context, teamID, userID string) error {
	return r.with(func(d *dataset) error {
		team, ok := d.teams[teamID]
		if !ok {
			return nil
		}
		team.MemberIDs = without(team.MemberIDs, userID)
		d.teams[teamID] = team
		return nil
	})
}

func (r *teamRepo) Count(_ context.Context) (int, error) {
	var n int
	err := r.with(func(d *dataset) error {
		n = len(d.teams)
		return nil
	})
	return n, err
}
