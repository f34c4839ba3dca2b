package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/devlab/internal/auth"
	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/policy"
	"github.com/spec-kit/devlab/internal/repository"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

var (
	usernamePattern   = regexp.MustCompile(`^[\w.@+-]{1,150}$`)
	nationalIDPattern = regexp.MustCompile(`^\d{11}$`)
)

// UserService manages accounts on behalf of coordinators.
type UserService struct {
	store  repository.Store
	hasher auth.Hasher
	policy PasswordPolicy
	logger *zap.Logger
	clock  Clock
}

// NewUserService builds the service.
func NewUserService(store repository.Store, hasher auth.Hasher, logger *zap.Logger, clock Clock) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{store: store, hasher: hasher, logger: logger, clock: clock}
}

// UserInput carries the editable account fields.
type UserInput struct {
	Username           string
	FirstName          string
	LastName           string
	Email              string
	Role               domain.Role
	RegistrationNumber string
	NationalID         string
	BirthDate          *time.Time
	Course             string
	Active             *bool
	Password           string
	ConfirmPassword    string
}

func (s *UserService) validate(in *UserInput, withPassword bool) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.RegistrationNumber = strings.TrimSpace(in.RegistrationNumber)
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.Course = strings.TrimSpace(in.Course)

	fe := fieldErrors{}
	if !usernamePattern.MatchString(in.Username) {
		fe.add("username", "username may only contain letters, digits and @.+-_")
	}
	if !validEmail(in.Email) {
		fe.add("email", "a valid e-mail is required")
	}
	if !in.Role.Valid() {
		fe.add("role", "role must be coordinator, teacher or student")
	}
	if in.NationalID != "" && !nationalIDPattern.MatchString(in.NationalID) {
		fe.add("national_id", "national id must have 11 digits")
	}
	if in.BirthDate != nil && dateOnly(*in.BirthDate).After(dateOnly(s.clock.now())) {
		fe.add("birth_date", "birth date cannot be in the future")
	}
	if withPassword {
		if in.Password != in.ConfirmPassword {
			return apperrors.ErrPasswordMismatch
		}
		if msg := s.policy.Check(in.Password, in.Username, in.Email); msg != "" {
			fe.add("password", msg)
		}
	}
	return fe.err()
}

func (in UserInput) apply(u *domain.User) {
	u.Username = in.Username
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.Email = in.Email
	u.Role = in.Role
	u.RegistrationNumber = optional(in.RegistrationNumber)
	u.NationalID = optional(in.NationalID)
	u.Course = in.Course
	u.BirthDate = nil
	if in.BirthDate != nil {
		d := dateOnly(*in.BirthDate)
		u.BirthDate = &d
	}
	if in.Active != nil {
		u.Active = *in.Active
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create adds an account with a policy-checked password.
func (s *UserService) Create(ctx context.Context, session domain.Session, in UserInput) (*domain.User, error) {
	if err := policy.Authorize(session, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	if err := s.validate(&in, true); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{PasswordHash: hash, Active: true}
	in.apply(user)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := checkReservations(ctx, tx, in, nil); err != nil {
			return err
		}
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", user.Role.String()), zap.String("by", session.UserID))
	return user, nil
}

// Update replaces the profile fields of an account. The password is untouched.
func (s *UserService) Update(ctx context.Context, session domain.Session, id string, in UserInput) (*domain.User, error) {
	if err := policy.Authorize(session, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	if err := s.validate(&in, false); err != nil {
		return nil, err
	}
	var user *domain.User
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = tx.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkReservations(ctx, tx, in, user); err != nil {
			return err
		}
		in.apply(user)
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user updated", zap.String("user_id", user.ID), zap.String("by", session.UserID))
	return user, nil
}

// checkReservations rejects an e-mail held by a pending or approved registration
// request and a registration number already drawn for any request. Values the
// account already carries are not checked again, so a student provisioned from
// a request can still be edited.
func checkReservations(ctx context.Context, tx repository.Store, in UserInput, current *domain.User) error {
	if current == nil || !strings.EqualFold(current.Email, in.Email) {
		taken, err := tx.Registrations().ActiveEmailExists(ctx, in.Email)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.ErrEmailTaken
		}
	}
	if in.RegistrationNumber == "" {
		return nil
	}
	if current != nil && current.RegistrationNumber != nil && *current.RegistrationNumber == in.RegistrationNumber {
		return nil
	}
	taken, err := tx.Registrations().RegistrationNumberExists(ctx, in.RegistrationNumber)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.ErrRegistrationNumberTaken
	}
	return nil
}

// Delete removes an account together with its memberships.
func (s *UserService) Delete(ctx context.Context, session domain.Session, id string) error {
	if err := policy.Authorize(session, policy.ActionManageUsers); err != nil {
		return err
	}
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("by", session.UserID))
	return nil
}

// UserListInput filters the account list.
type UserListInput struct {
	Role  string
	Query string
}

// List returns accounts ordered by role then username.
func (s *UserService) List(ctx context.Context, session domain.Session, in UserListInput) ([]domain.User, error) {
	if err := policy.Authorize(session, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	filter := repository.UserFilter{Query: in.Query}
	if strings.TrimSpace(in.Role) != "" {
		role, err := domain.ParseRole(in.Role)
		if err != nil {
			return nil, apperrors.NewValidationError("unknown role filter", map[string]any{"role": in.Role})
		}
		filter.Role = role
	}
	users, err := s.store.Users().List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// UserDetail is an account with the teams and projects it takes part in.
type UserDetail struct {
	User     *domain.User
	Teams    []domain.Team
	Projects []domain.Project
}

// Get returns one account with its memberships.
func (s *UserService) Get(ctx context.Context, session domain.Session, id string) (*UserDetail, error) {
	if err := policy.Authorize(session, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	teams, err := s.store.Teams().List(ctx, repository.TeamFilter{MemberID: id})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	projects, err := s.store.Projects().ListForMember(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &UserDetail{User: user, Teams: teams, Projects: projects}, nil
}

// BootstrapInput describes the first coordinator account.
type BootstrapInput struct {
	Username string
	Email    string
	Password string
}

// EnsureCoordinator creates the bootstrap coordinator unless the username is
// already taken. It reports whether an account was created.
func (s *UserService) EnsureCoordinator(ctx context.Context, in BootstrapInput) (bool, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return false, nil
	}
	exists, err := s.store.Users().UsernameExists(ctx, in.Username)
	if err != nil {
		return false, apperrors.MapError(err)
	}
	if exists {
		return false, nil
	}
	if len([]rune(in.Password)) < MinPasswordLength {
		return false, apperrors.NewValidationError("bootstrap password must have at least 8 characters", nil)
	}
	if len(in.Password) > MaxPasswordBytes {
		return false, apperrors.NewValidationError("bootstrap password must have at most 72 bytes", nil)
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Username:     in.Username,
		FirstName:    "Coordenação",
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         domain.RoleCoordinator,
		Active:       true,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return false, apperrors.MapError(err)
	}
	s.logger.Info("bootstrap coordinator created", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return true, nil
}
