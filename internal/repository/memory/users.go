package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/repository"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

type userRepo struct {
	with  access
	clock func() time.Time
}

// checkUserUnique mirrors the unique constraints on the users table.
func checkUserUnique(d *dataset, u *domain.User) error {
	for id, other := range d.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Username, u.Username) {
			return apperrors.ErrUsernameTaken
		}
		if strings.EqualFold(other.Email, u.Email) {
			return apperrors.ErrEmailTaken
		}
		if u.RegistrationNumber != nil && other.RegistrationNumber != nil && *u.RegistrationNumber == *other.RegistrationNumber {
			return apperrors.ErrRegistrationNumberTaken
		}
		if u.NationalID != nil && other.NationalID != nil && *u.NationalID == *other.NationalID {
			return apperrors.ErrNationalIDTaken
		}
	}
	return nil
}

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	return r.with(func(d *dataset) error {
		if err := checkUserUnique(d, user); err != nil {
			return err
		}
		now := d.tick(r.clock())
		user.ID = newID()
		user.CreatedAt = now
		user.UpdatedAt = now
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	return r.with(func(d *dataset) error {
		current, ok := d.users[user.ID]
		if !ok {
			return repository.NotFound("user", user.ID)
		}
		if err := checkUserUnique(d, user); err != nil {
			return err
		}
		updated := *user
		updated.PasswordHash = current.PasswordHash
		updated.CreatedAt = current.CreatedAt
		updated.UpdatedAt = d.tick(r.clock())
		d.users[user.ID] = updated
		user.UpdatedAt = updated.UpdatedAt
		return nil
	})
}

func (r *userRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.with(func(d *dataset) error {
		user, ok := d.users[id]
		if !ok {
			return repository.NotFound("user", id)
		}
		user.PasswordHash = passwordHash
		user.UpdatedAt = d.tick(r.clock())
		d.users[id] = user
		return nil
	})
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	return r.with(func(d *dataset) error {
		if _, ok := d.users[id]; !ok {
			return repository.NotFound("user", id)
		}
		delete(d.users, id)
		for tid, team := range d.teams {
			changed := false
			if team.LeaderID != nil && *team.LeaderID == id {
				team.LeaderID = nil
				changed = true
			}
			if team.HasMember(id) {
				team.MemberIDs = without(team.MemberIDs, id)
				changed = true
			}
			if changed {
				d.teams[tid] = team
			}
		}
		for rid, req := range d.registrations {
			if req.ProcessedBy != nil && *req.ProcessedBy == id {
				req.ProcessedBy = nil
				d.registrations[rid] = req
			}
		}
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.with(func(d *dataset) error {
		user, ok := d.users[id]
		if !ok {
			return repository.NotFound("user", id)
		}
		out = &user
		return nil
	})
	return out, err
}

func (r *userRepo) find(match func(domain.User) bool, key string) (*domain.User, error) {
	var out *domain.User
	err := r.with(func(d *dataset) error {
		for _, user := range d.users {
			if match(user) {
				u := user
				out = &u
				return nil
			}
		}
		return repository.NotFound("user", key)
	})
	return out, err
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Username, username) }, username)
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) }, email)
}

func (r *userRepo) ListByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	var out []domain.User
	err := r.with(func(d *dataset) error {
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if user, ok := d.users[id]; ok {
				out = append(out, user)
			}
		}
		return nil
	})
	sortByUsername(out)
	return out, err
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	q := normalizeQuery(filter.Query)
	var out []domain.User
	err := r.with(func(d *dataset) error {
		for _, user := range d.users {
			if filter.Role.Valid() && user.Role != filter.Role {
				continue
			}
			if q != "" && !userMatches(user, q) {
				continue
			}
			out = append(out, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if filter.Newest {
		sortNewest(out, func(u domain.User) time.Time { return u.CreatedAt })
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Role != out[j].Role {
				return out[i].Role < out[j].Role
			}
			return out[i].Username < out[j].Username
		})
	}
	return limit(out, filter.Limit), nil
}

func userMatches(u domain.User, q string) bool {
	if contains(u.Username, q) || contains(u.FirstName, q) || contains(u.LastName, q) || contains(u.Email, q) {
		return true
	}
	return u.RegistrationNumber != nil && contains(*u.RegistrationNumber, q)
}

func (r *userRepo) exists(match func(domain.User) bool) (bool, error) {
	found := false
	err := r.with(func(d *dataset) error {
		for _, user := range d.users {
			if match(user) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *userRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	return r.exists(func(u domain.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *userRepo) EmailExists(_ context.Context, email string) (bool, error) {
	return r.exists(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepo) RegistrationNumberExists(_ context.Context, number string) (bool, error) {
	return r.exists(func(u domain.User) bool {
		return u.RegistrationNumber != nil && *u.RegistrationNumber == number
	})
}

func (r *userRepo) CountByRole(_ context.Context) (map[domain.Role]int, error) {
	counts := make(map[domain.Role]int, len(domain.Roles))
	for _, role := range domain.Roles {
		counts[role] = 0
	}
	err := r.with(func(d *dataset) error {
		for _, user := range d.users {
			counts[user.Role]++
		}
		return nil
	})
	return counts, err
}

func sortByUsername(users []domain.User) {
	sort.SliceStable(users, func(i, j int) bool { return users[i].Username < users[j].Username })
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
