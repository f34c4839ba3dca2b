package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/devlab/internal/domain"
)

// ProjectFilter narrows ListProjects.
type ProjectFilter struct {
	Query string
	Limit int
}

// ProjectRepository manages persistence for projects and their derived participants.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	Update(ctx context.Context, project *domain.Project) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error)
	// ListForMember returns the projects with at least one team the user belongs to.
	ListForMember(ctx context.Context, userID string) ([]domain.Project, error)
	// Participants returns the distinct members of every team attached to the project.
	Participants(ctx context.Context, projectID string) ([]domain.User, error)
	IsParticipant(ctx context.Context, projectID, userID string) (bool, error)
	CountByStatus(ctx context.Context) (map[domain.ProjectStatus]int, error)
}

type projectRepository struct {
	db DBTX
}

// NewProjectRepository constructs repository.
func NewProjectRepository(db DBTX) ProjectRepository {
	return &projectRepository{db: db}
}

const projectColumns = `p.id, p.title, p.description, p.client, p.status, p.start_date,
        p.expected_end_date, p.created_at, p.updated_at`

func scanProject(row pgx.Row) (*domain.Project, error) {
	var project domain.Project
	if err := row.Scan(
		&project.ID,
		&project.Title,
		&project.Description,
		&project.Client,
		&project.Status,
		&project.StartDate,
		&project.ExpectedEndDate,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &project, nil
}

func collectProjects(rows pgx.Rows) ([]domain.Project, error) {
	defer rows.Close()
	var result []domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *project)
	}
	return result, rows.Err()
}

func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	const query = `
        INSERT INTO projects (title, description, client, status, start_date, expected_end_date)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		project.Title,
		project.Description,
		project.Client,
		string(project.Status),
		project.StartDate,
		project.ExpectedEndDate,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	return translate(err)
}

func (r *projectRepository) Update(ctx context.Context, project *domain.Project) error {
	const query = `
        UPDATE projects SET title=$1, description=$2, client=$3, status=$4, start_date=$5,
            expected_end_date=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		project.Title,
		project.Description,
		project.Client,
		string(project.Status),
		project.StartDate,
		project.ExpectedEndDate,
		project.ID,
	).Scan(&project.UpdatedAt)
	return notFoundOr(err, "project", project.ID)
}

// Delete removes the project; its teams stay and lose the project reference.
func (r *projectRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id=$1`, id)
	if err != nil {
		return notFoundOr(err, "project", id)
	}
	if cmd.RowsAffected() == 0 {
		return NotFound("project", id)
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	project, err := scanProject(r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id=$1`, id))
	if err != nil {
		return nil, notFoundOr(err, "project", id)
	}
	return project, nil
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p`
	var args []any
	if filter.Query != "" {
		args = append(args, likePattern(filter.Query))
		query += ` WHERE p.title ILIKE $1 OR p.client ILIKE $1 OR p.description ILIKE $1`
	}
	query += ` ORDER BY p.created_at DESC, p.id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

func (r *projectRepository) ListForMember(ctx context.Context, userID string) ([]domain.Project, error) {
	const query = `
        SELECT ` + projectColumns + ` FROM projects p
        WHERE EXISTS (
            SELECT 1 FROM teams t
            JOIN team_members tm ON tm.team_id = t.id
            WHERE t.project_id = p.id AND tm.user_id = $1)
        ORDER BY p.created_at DESC, p.id`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

func (r *projectRepository) Participants(ctx context.Context, projectID string) ([]domain.User, error) {
	const query = `
        SELECT ` + userColumns + ` FROM users
        WHERE id IN (
            SELECT tm.user_id FROM team_members tm
            JOIN teams t ON t.id = tm.team_id
            WHERE t.project_id = $1)
        ORDER BY username`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *projectRepository) IsParticipant(ctx context.Context, projectID, userID string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM team_members tm
            JOIN teams t ON t.id = tm.team_id
            WHERE t.project_id = $1 AND tm.user_id = $2)`
	var ok bool
	if err := r.db.QueryRow(ctx, query, projectID, userID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *projectRepository) CountByStatus(ctx context.Context) (map[domain.ProjectStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM projects GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.ProjectStatus]int{
		domain.ProjectStatusPlanned:    0,
		domain.ProjectStatusInProgress: 0,
		domain.ProjectStatusCompleted:  0,
	}
	for rows.Next() {
		var (
			status domain.ProjectStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
