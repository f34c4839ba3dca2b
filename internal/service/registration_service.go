package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/devlab/internal/auth"
	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/events"
	"github.com/spec-kit/devlab/internal/observability"
	"github.com/spec-kit/devlab/internal/policy"
	"github.com/spec-kit/devlab/internal/repository"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

const (
	approveAttempts = 3
	// maxUsernameBase leaves room for a numeric suffix within 150 characters.
	maxUsernameBase = 140
)

var usernameDisallowed = regexp.MustCompile(`[^\w.+-]`)

// ApprovalNotifier tells a freshly provisioned student how to sign in.
type ApprovalNotifier interface {
	NotifyApproval(ctx context.Context, user *domain.User) error
}

// RegistrationDependencies wires the registration workflow.
type RegistrationDependencies struct {
	Store      repository.Store
	Hasher     auth.Hasher
	Numbers    NumberSource
	Notifier   ApprovalNotifier
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      Clock
	// MaxAttempts caps registration number draws per submission.
	MaxAttempts int
}

// RegistrationService governs signup requests from submission to a decision.
type RegistrationService struct {
	store       repository.Store
	hasher      auth.Hasher
	numbers     NumberSource
	notifier    ApprovalNotifier
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	clock       Clock
	maxAttempts int
}

// NewRegistrationService builds the service.
func NewRegistrationService(deps RegistrationDependencies) *RegistrationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	numbers := deps.Numbers
	if numbers == nil {
		numbers = RandomDigits{Length: 8}
	}
	attempts := deps.MaxAttempts
	if attempts <= 0 {
		attempts = 100
	}
	return &RegistrationService{
		store:       deps.Store,
		hasher:      deps.Hasher,
		numbers:     numbers,
		notifier:    deps.Notifier,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		maxAttempts: attempts,
	}
}

// SubmitInput is the public signup form.
type SubmitInput struct {
	FullName        string
	Email           string
	BirthDate       time.Time
	Password        string
	ConfirmPassword string
}

// Submit records a pending request with a freshly drawn registration number.
func (s *RegistrationService) Submit(ctx context.Context, in SubmitInput) (*domain.RegistrationRequest, error) {
	if in.Password != in.ConfirmPassword {
		return nil, apperrors.ErrPasswordMismatch
	}

	fullName := strings.Join(strings.Fields(in.FullName), " ")
	email := NormalizeEmail(in.Email)

	fe := fieldErrors{}
	if fullName == "" {
		fe.add("full_name", "full name is required")
	}
	if !validEmail(email) {
		fe.add("email", "a valid e-mail is required")
	}
	if in.BirthDate.IsZero() {
		fe.add("birth_date", "birth date is required")
	} else if dateOnly(in.BirthDate).After(dateOnly(s.clock.now())) {
		fe.add("birth_date", "birth date cannot be in the future")
	}
	if len([]rune(in.Password)) < MinPasswordLength {
		fe.add("password", "password must have at least 8 characters")
	} else if len(in.Password) > MaxPasswordBytes {
		fe.add("password", passwordTooLong)
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	req := &domain.RegistrationRequest{
		FullName:     fullName,
		Email:        email,
		BirthDate:    dateOnly(in.BirthDate),
		PasswordHash: hash,
		Status:       domain.RegistrationPending,
	}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if taken, err := tx.Users().EmailExists(ctx, email); err != nil {
			return err
		} else if taken {
			return apperrors.ErrEmailTaken
		}
		if taken, err := tx.Registrations().ActiveEmailExists(ctx, email); err != nil {
			return err
		} else if taken {
			return apperrors.ErrEmailTaken
		}
		number, err := s.drawNumber(ctx, tx)
		if err != nil {
			return err
		}
		req.RegistrationNumber = number
		return tx.Registrations().Create(ctx, req)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("registration submitted",
		zap.String("registration_id", req.ID),
		zap.String("registration_number", req.RegistrationNumber))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:           events.EventRegistrationSubmitted,
		RegistrationID: req.ID,
		Payload: events.RegistrationSubmittedPayload{
			Email:              req.Email,
			RegistrationNumber: req.RegistrationNumber,
		},
	}, s.clock.now())
	return req, nil
}

// drawNumber rerolls until a number unused by both requests and users comes up.
func (s *RegistrationService) drawNumber(ctx context.Context, tx repository.Store) (string, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		candidate, err := s.numbers.Next()
		if err != nil {
			return "", err
		}
		used, err := tx.Registrations().RegistrationNumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if used {
			continue
		}
		used, err = tx.Users().RegistrationNumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
	}
	s.logger.Error("registration numbers exhausted", zap.Int("attempts", s.maxAttempts))
	return "", apperrors.ErrExhaustedRegistrationNumbers
}

// ApprovalResult carries the outcome of an approval. NotificationError is set
// when the account was created but the e-mail could not be delivered.
type ApprovalResult struct {
	Request           *domain.RegistrationRequest
	User              *domain.User
	NotificationError error
}

// Notified reports whether the approval e-mail went out.
func (r ApprovalResult) Notified() bool {
	return r.NotificationError == nil
}

// Approve provisions a student account from a pending request.
func (s *RegistrationService) Approve(ctx context.Context, session domain.Session, id string) (*ApprovalResult, error) {
	if err := policy.Authorize(session, policy.ActionProcessRegistrations); err != nil {
		return nil, err
	}

	var (
		req  *domain.RegistrationRequest
		user *domain.User
		err  error
	)
	// A concurrent approval can claim the same username between the free check
	// and the insert. The failed insert aborts the transaction, so run it again.
	for attempt := 1; attempt <= approveAttempts; attempt++ {
		req, user, err = s.approveTx(ctx, session, id)
		if !errors.Is(err, apperrors.ErrUsernameTaken) {
			break
		}
		s.logger.Warn("username claimed concurrently, retrying approval",
			zap.String("registration_id", id), zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &ApprovalResult{Request: req, User: user}
	s.logger.Info("registration approved",
		zap.String("registration_id", req.ID),
		zap.String("user_id", user.ID),
		zap.String("approved_by", session.UserID))

	// The account is committed; delivery problems are reported, never rolled back.
	if s.notifier != nil {
		if err := s.notifier.NotifyApproval(ctx, user); err != nil {
			result.NotificationError = err
			s.metrics.RecordNotificationFailure()
			s.logger.Warn("approval notification failed",
				zap.String("registration_id", req.ID),
				zap.String("email", user.Email),
				zap.Error(err))
		}
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:           events.EventRegistrationApproved,
		RegistrationID: req.ID,
		Actor:          events.SessionActor(session),
		Payload: events.RegistrationApprovedPayload{
			UserID:             user.ID,
			Username:           user.Username,
			RegistrationNumber: req.RegistrationNumber,
			Notified:           result.Notified(),
		},
	}, s.clock.now())
	return result, nil
}

// approveTx provisions the student and records the decision in one transaction.
func (s *RegistrationService) approveTx(ctx context.Context, session domain.Session, id string) (*domain.RegistrationRequest, *domain.User, error) {
	var (
		req  *domain.RegistrationRequest
		user *domain.User
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		req, err = tx.Registrations().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != domain.RegistrationPending {
			return apperrors.ErrAlreadyProcessed.WithDetails(map[string]any{"status": string(req.Status)})
		}

		username, err := uniqueUsername(ctx, tx.Users(), usernameBase(req.Email))
		if err != nil {
			return err
		}
		first, last := splitFullName(req.FullName)
		birth := req.BirthDate
		user = &domain.User{
			Username:           username,
			FirstName:          first,
			LastName:           last,
			Email:              req.Email,
			PasswordHash:       req.PasswordHash,
			Role:               domain.RoleStudent,
			RegistrationNumber: strPtr(req.RegistrationNumber),
			BirthDate:          &birth,
			Active:             true,
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}

		now := s.clock.now()
		req.Status = domain.RegistrationApproved
		req.ProcessedAt = &now
		req.ProcessedBy = strPtr(session.UserID)
		return tx.Registrations().UpdateDecision(ctx, req)
	})
	return req, user, err
}

// Reject closes a pending request without creating an account.
func (s *RegistrationService) Reject(ctx context.Context, session domain.Session, id, reason string) (*domain.RegistrationRequest, error) {
	if err := policy.Authorize(session, policy.ActionProcessRegistrations); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)

	var req *domain.RegistrationRequest
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		req, err = tx.Registrations().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != domain.RegistrationPending {
			return apperrors.ErrAlreadyProcessed.WithDetails(map[string]any{"status": string(req.Status)})
		}
		if reason == "" {
			return apperrors.ErrMissingReason
		}
		now := s.clock.now()
		req.Status = domain.RegistrationRejected
		req.ProcessedAt = &now
		req.ProcessedBy = strPtr(session.UserID)
		req.RejectionReason = strPtr(reason)
		return tx.Registrations().UpdateDecision(ctx, req)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("registration rejected",
		zap.String("registration_id", req.ID),
		zap.String("rejected_by", session.UserID))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:           events.EventRegistrationRejected,
		RegistrationID: req.ID,
		Actor:          events.SessionActor(session),
		Payload:        events.RegistrationRejectedPayload{Email: req.Email, Reason: reason},
	}, s.clock.now())
	return req, nil
}

// RegistrationListInput filters the coordinator's queue. Status defaults to
// pending; "all" lists every status.
type RegistrationListInput struct {
	Status string
	Query  string
}

// RegistrationList is a filtered page plus per-status totals.
type RegistrationList struct {
	Status string
	Items  []domain.RegistrationRequest
	Counts map[domain.RegistrationStatus]int
}

// List returns requests matching the filter.
func (s *RegistrationService) List(ctx context.Context, session domain.Session, in RegistrationListInput) (*RegistrationList, error) {
	if err := policy.Authorize(session, policy.ActionViewRegistrations); err != nil {
		return nil, err
	}
	label := strings.ToLower(strings.TrimSpace(in.Status))
	var status domain.RegistrationStatus
	switch label {
	case "":
		label = string(domain.RegistrationPending)
		status = domain.RegistrationPending
	case "all":
	default:
		status = domain.RegistrationStatus(label)
		if !status.Valid() {
			return nil, apperrors.NewValidationError("unknown status filter", map[string]any{"status": in.Status})
		}
	}

	items, err := s.store.Registrations().List(ctx, repository.RegistrationFilter{Status: status, Query: in.Query})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	counts, err := s.store.Registrations().CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &RegistrationList{Status: label, Items: items, Counts: counts}, nil
}

// Get returns one request.
func (s *RegistrationService) Get(ctx context.Context, session domain.Session, id string) (*domain.RegistrationRequest, error) {
	if err := policy.Authorize(session, policy.ActionViewRegistrations); err != nil {
		return nil, err
	}
	req, err := s.store.Registrations().GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

// PendingCount is the size of the approval queue.
func (s *RegistrationService) PendingCount(ctx context.Context) (int, error) {
	counts, err := s.store.Registrations().CountByStatus(ctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return counts[domain.RegistrationPending], nil
}

// usernameBase derives a username from the e-mail local part, dropping
// characters usernamePattern does not allow.
func usernameBase(email string) string {
	local, _, _ := strings.Cut(NormalizeEmail(email), "@")
	local = usernameDisallowed.ReplaceAllString(local, "")
	if len(local) > maxUsernameBase {
		local = local[:maxUsernameBase]
	}
	if local == "" {
		return "user"
	}
	return local
}

// uniqueUsername returns base, or base followed by the first free suffix 1, 2, ...
func uniqueUsername(ctx context.Context, users repository.UserRepository, base string) (string, error) {
	candidate := base
	for n := 1; ; n++ {
		taken, err := users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
}

// splitFullName uses the first token as first name and the rest as last name.
func splitFullName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
