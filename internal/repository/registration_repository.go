package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/devlab/internal/domain"
)

// RegistrationFilter narrows ListRegistrations. An empty Status matches every status.
type RegistrationFilter struct {
	Status domain.RegistrationStatus
	Query  string
	Limit  int
}

// RegistrationRepository persists signup requests.
type RegistrationRepository interface {
	Create(ctx context.Context, req *domain.RegistrationRequest) error
	GetByID(ctx context.Context, id string) (*domain.RegistrationRequest, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.RegistrationRequest, error)
	// UpdateDecision persists status, processor, timestamp and rejection reason.
	UpdateDecision(ctx context.Context, req *domain.RegistrationRequest) error
	List(ctx context.Context, filter RegistrationFilter) ([]domain.RegistrationRequest, error)
	CountByStatus(ctx context.Context) (map[domain.RegistrationStatus]int, error)
	// ActiveEmailExists reports whether a pending or approved request uses email.
	ActiveEmailExists(ctx context.Context, email string) (bool, error)
	RegistrationNumberExists(ctx context.Context, number string) (bool, error)
}

type registrationRepository struct {
	db DBTX
}

// NewRegistrationRepository constructs repository.
func NewRegistrationRepository(db DBTX) RegistrationRepository {
	return &registrationRepository{db: db}
}

const registrationColumns = `id, full_name, email, birth_date, password_hash, registration_number,
        status, submitted_at, processed_at, processed_by, rejection_reason`

func scanRegistration(row pgx.Row) (*domain.RegistrationRequest, error) {
	var req domain.RegistrationRequest
	if err := row.Scan(
		&req.ID,
		&req.FullName,
		&req.Email,
		&req.BirthDate,
		&req.PasswordHash,
		&req.RegistrationNumber,
		&req.Status,
		&req.SubmittedAt,
		&req.ProcessedAt,
		&req.ProcessedBy,
		&req.RejectionReason,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *registrationRepository) Create(ctx context.Context, req *domain.RegistrationRequest) error {
	const query = `
        INSERT INTO registration_requests (full_name, email, birth_date, password_hash,
            registration_number, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, submitted_at`
	err := r.db.QueryRow(ctx, query,
		req.FullName,
		req.Email,
		req.BirthDate,
		req.PasswordHash,
		req.RegistrationNumber,
		string(req.Status),
	).Scan(&req.ID, &req.SubmittedAt)
	return translate(err)
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.RegistrationRequest, error) {
	req, err := scanRegistration(r.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registration_requests WHERE id=$1`, id))
	if err != nil {
		return nil, notFoundOr(err, "registration request", id)
	}
	return req, nil
}

func (r *registrationRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.RegistrationRequest, error) {
	req, err := scanRegistration(r.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registration_requests WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundOr(err, "registration request", id)
	}
	return req, nil
}

func (r *registrationRepository) UpdateDecision(ctx context.Context, req *domain.RegistrationRequest) error {
	const query = `
        UPDATE registration_requests
        SET status=$1, processed_at=$2, processed_by=$3, rejection_reason=$4
        WHERE id=$5`
	cmd, err := r.db.Exec(ctx, query,
		string(req.Status),
		req.ProcessedAt,
		req.ProcessedBy,
		req.RejectionReason,
		req.ID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return NotFound("registration request", req.ID)
	}
	return nil
}

func (r *registrationRepository) List(ctx context.Context, filter RegistrationFilter) ([]domain.RegistrationRequest, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, likePattern(q))
		where = append(where, fmt.Sprintf("(full_name ILIKE $%[1]d OR email ILIKE $%[1]d OR registration_number ILIKE $%[1]d)", len(args)))
	}

	query := `SELECT ` + registrationColumns + ` FROM registration_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY submitted_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RegistrationRequest
	for rows.Next() {
		req, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *registrationRepository) CountByStatus(ctx context.Context) (map[domain.RegistrationStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM registration_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.RegistrationStatus]int{
		domain.RegistrationPending:  0,
		domain.RegistrationApproved: 0,
		domain.RegistrationRejected: 0,
	}
	for rows.Next() {
		var (
			status domain.RegistrationStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *registrationRepository) ActiveEmailExists(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM registration_requests WHERE lower(email)=lower($1) AND status <> 'rejected')`,
		email).Scan(&ok)
	return ok, err
}

func (r *registrationRepository) RegistrationNumberExists(ctx context.Context, number string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM registration_requests WHERE registration_number=$1)`,
		number).Scan(&ok)
	return ok, err
}
