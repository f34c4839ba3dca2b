package memory

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/repository"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

type registrationRepo struct {
	with  access
	clock func() time.Time
}

// checkRegistrationUnique mirrors the number key and the partial e-mail index.
func checkRegistrationUnique(d *dataset, req *domain.RegistrationRequest) error {
	for id, other := range d.registrations {
		if id == req.ID {
			continue
		}
		if other.RegistrationNumber == req.RegistrationNumber {
			return apperrors.ErrRegistrationNumberTaken
		}
		if req.Status != domain.RegistrationRejected && other.Status != domain.RegistrationRejected &&
			strings.EqualFold(other.Email, req.Email) {
			return apperrors.ErrEmailTaken
		}
	}
	return nil
}

func (r *registrationRepo) Create(_ context.Context, req *domain.RegistrationRequest) error {
	return r.with(func(d *dataset) error {
		if err := checkRegistrationUnique(d, req); err != nil {
			return err
		}
		req.ID = newID()
		req.SubmittedAt = d.tick(r.clock())
		d.registrations[req.ID] = *req
		return nil
	})
}

func (r *registrationRepo) GetByID(_ context.Context, id string) (*domain.RegistrationRequest, error) {
	var out *domain.RegistrationRequest
	err := r.with(func(d *dataset) error {
		req, ok := d.registrations[id]
		if !ok {
			return repository.NotFound("registration request", id)
		}
		out = &req
		return nil
	})
	return out, err
}

// GetByIDForUpdate needs no row lock: transactions are already serialized.
func (r *registrationRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.RegistrationRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *registrationRepo) UpdateDecision(_ context.Context, req *domain.RegistrationRequest) error {
	return r.with(func(d *dataset) error {
		current, ok := d.registrations[req.ID]
		if !ok {
			return repository.NotFound("registration request", req.ID)
		}
		if req.Status == domain.RegistrationRejected && (req.RejectionReason == nil || *req.RejectionReason == "") {
			return apperrors.NewValidationError("value violates a check constraint", map[string]any{"constraint": "registration_requests_reason_check"})
		}
		current.Status = req.Status
		current.ProcessedAt = req.ProcessedAt
		current.ProcessedBy = req.ProcessedBy
		current.RejectionReason = req.RejectionReason
		if err := checkRegistrationUnique(d, &current); err != nil {
			return err
		}
		d.registrations[req.ID] = current
		return nil
	})
}

func (r *registrationRepo) List(_ context.Context, filter repository.RegistrationFilter) ([]domain.RegistrationRequest, error) {
	q := normalizeQuery(filter.Query)
	var out []domain.RegistrationRequest
	err := r.with(func(d *dataset) error {
		for _, req := range d.registrations {
			if filter.Status != "" && req.Status != filter.Status {
				continue
			}
			if q != "" && !contains(req.FullName, q) && !contains(req.Email, q) && !contains(req.RegistrationNumber, q) {
				continue
			}
			out = append(out, req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewest(out, func(r domain.RegistrationRequest) time.Time { return r.SubmittedAt })
	return limit(out, filter.Limit), nil
}

func (r *registrationRepo) CountByStatus(_ context.Context) (map[domain.RegistrationStatus]int, error) {
	counts := map[domain.RegistrationStatus]int{
		domain.RegistrationPending:  0,
		domain.RegistrationApproved: 0,
		domain.RegistrationRejected: 0,
	}
	err := r.with(func(d *dataset) error {
		for _, req := range d.registrations {
			counts[req.Status]++
		}
		return nil
	})
	return counts, err
}

func (r *registrationRepo) ActiveEmailExists(_ context.Context, email string) (bool, error) {
	found := false
	err := r.with(func(d *dataset) error {
		for _, req := range d.registrations {
			if req.Status != domain.RegistrationRejected && strings.EqualFold(req.Email, email) {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *registrationRepo) RegistrationNumberExists(_ context.Context, number string) (bool, error) {
	found := false
	err := r.with(func(d *dataset) error {
		for _, req := range d.registrations {
			if req.RegistrationNumber == number {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}
