package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/devlab/internal/domain"
)

// TeamFilter narrows ListTeams. Zero values mean no constraint.
type TeamFilter struct {
	Query     string
	ProjectID string
	MemberID  string
	Limit     int
	// Newest orders by creation time descending instead of project title then name.
	Newest bool
}

// TeamRepository manages persistence for teams and their memberships.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	Update(ctx context.Context, team *domain.Team) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	// GetByLeader returns the single team led by userID, or a not-found error.
	GetByLeader(ctx context.Context, userID string) (*domain.Team, error)
	List(ctx context.Context, filter TeamFilter) ([]domain.Team, error)
	AddMember(ctx context.Context, teamID, userID string) error
	RemoveMember(ctx context.Context, teamID, userID string) error
	Count(ctx context.Context) (int, error)
}

type teamRepository struct {
	db DBTX
}

// NewTeamRepository constructs repository.
func NewTeamRepository(db DBTX) TeamRepository {
	return &teamRepository{db: db}
}

const teamColumns = `t.id, t.project_id, t.name, t.description, t.leader_id, t.created_at, t.updated_at,
        COALESCE((SELECT array_agg(tm.user_id::text ORDER BY tm.user_id) FROM team_members tm WHERE tm.team_id = t.id), '{}')`

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var team domain.Team
	if err := row.Scan(
		&team.ID,
		&team.ProjectID,
		&team.Name,
		&team.Description,
		&team.LeaderID,
		&team.CreatedAt,
		&team.UpdatedAt,
		&team.MemberIDs,
	); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (project_id, name, description, leader_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	if err := r.db.QueryRow(ctx, query,
		team.ProjectID,
		team.Name,
		team.Description,
		team.LeaderID,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt); err != nil {
		return translate(err)
	}
	return r.replaceMembers(ctx, team.ID, team.MemberIDs)
}

func (r *teamRepository) Update(ctx context.Context, team *domain.Team) error {
	const query = `
        UPDATE teams SET project_id=$1, name=$2, description=$3, leader_id=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	if err := r.db.QueryRow(ctx, query,
		team.ProjectID,
		team.Name,
		team.Description,
		team.LeaderID,
		team.ID,
	).Scan(&team.UpdatedAt); err != nil {
		return notFoundOr(err, "team", team.ID)
	}
	return r.replaceMembers(ctx, team.ID, team.MemberIDs)
}

func (r *teamRepository) replaceMembers(ctx context.Context, teamID string, memberIDs []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM team_members WHERE team_id=$1`, teamID); err != nil {
		return translate(err)
	}
	if len(memberIDs) == 0 {
		return nil
	}
	const query = `
        INSERT INTO team_members (team_id, user_id)
        SELECT $1, unnest($2::uuid[])
        ON CONFLICT DO NOTHING`
	_, err := r.db.Exec(ctx, query, teamID, memberIDs)
	return translate(err)
}

func (r *teamRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM teams WHERE id=$1`, id)
	if err != nil {
		return notFoundOr(err, "team", id)
	}
	if cmd.RowsAffected() == 0 {
		return NotFound("team", id)
	}
	return nil
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	team, err := scanTeam(r.db.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams t WHERE t.id=$1`, id))
	if err != nil {
		return nil, notFoundOr(err, "team", id)
	}
	return team, nil
}

func (r *teamRepository) GetByLeader(ctx context.Context, userID string) (*domain.Team, error) {
	team, err := scanTeam(r.db.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams t WHERE t.leader_id=$1`, userID))
	if err != nil {
		return nil, notFoundOr(err, "team", userID)
	}
	return team, nil
}

func (r *teamRepository) List(ctx context.Context, filter TeamFilter) ([]domain.Team, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, likePattern(q))
		where = append(where, fmt.Sprintf("(t.name ILIKE $%[1]d OR p.title ILIKE $%[1]d)", len(args)))
	}
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		where = append(where, fmt.Sprintf("t.project_id=$%d", len(args)))
	}
	if filter.MemberID != "" {
		args = append(args, filter.MemberID)
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM team_members m WHERE m.team_id = t.id AND m.user_id = $%d)", len(args)))
	}

	query := `SELECT ` + teamColumns + ` FROM teams t LEFT JOIN projects p ON p.id = t.project_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.Newest {
		query += " ORDER BY t.created_at DESC, t.id"
	} else {
		query += " ORDER BY p.title ASC NULLS LAST, t.name ASC"
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *team)
	}
	return result, rows.Err()
}

func (r *teamRepository) AddMember(ctx context.Context, teamID, userID string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO team_members (team_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, teamID, userID)
	return translate(err)
}

func (r *teamRepository) RemoveMember(ctx context.Context, teamID, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM team_members WHERE team_id=$1 AND user_id=$2`, teamID, userID)
	return translate(err)
}

func (r *teamRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM teams`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
