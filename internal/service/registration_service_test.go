package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/events"
	"github.com/spec-kit/devlab/internal/notify"
	"github.com/spec-kit/devlab/internal/observability"
	"github.com/spec-kit/devlab/internal/repository"
	"github.com/spec-kit/devlab/internal/repository/memory"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

type registrationFixture struct {
	store       *memory.Store
	svc         *RegistrationService
	mailer      *notify.Recorder
	metrics     *observability.Metrics
	events      *[]events.Event
	coordinator domain.Session
}

func newRegistrationFixture(t *testing.T, numbers NumberSource) *registrationFixture {
	t.Helper()
	store := memory.NewStore()
	mailer := &notify.Recorder{}
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	var (
		mu       sync.Mutex
		captured []events.Event
	)
	for _, et := range events.AllTypes {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			captured = append(captured, e)
			return nil
		})
	}
	notifications := NewNotificationService(dispatcher, mailer, nil)
	svc := NewRegistrationService(RegistrationDependencies{
		Store:      store,
		Hasher:     testHasher,
		Numbers:    numbers,
		Notifier:   notifications,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Clock:      fixedClock,
	})
	coord := seedUser(t, store, "coord", domain.RoleCoordinator)
	return &registrationFixture{
		store:       store,
		svc:         svc,
		mailer:      mailer,
		metrics:     metrics,
		events:      &captured,
		coordinator: sessionOf(coord),
	}
}

func anaSignup() SubmitInput {
	return SubmitInput{
		FullName:        "Ana Silva",
		Email:           "ana@x.com",
		BirthDate:       date(2000, 1, 1),
		Password:        "pass1234",
		ConfirmPassword: "pass1234",
	}
}

func TestSubmitApproveExample(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, RandomDigits{Length: 8})

	req, err := f.svc.Submit(ctx, anaSignup())
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationPending, req.Status)
	assert.Regexp(t, regexp.MustCompile(`^\d{8}$`), req.RegistrationNumber)
	assert.NotEqual(t, "pass1234", req.PasswordHash)
	assert.True(t, testHasher.Verify(req.PasswordHash, "pass1234"))

	result, err := f.svc.Approve(ctx, f.coordinator, req.ID)
	require.NoError(t, err)
	user := result.User
	assert.Equal(t, "ana", user.Username)
	assert.Equal(t, domain.RoleStudent, user.Role)
	assert.Equal(t, "Ana", user.FirstName)
	assert.Equal(t, "Silva", user.LastName)
	require.NotNil(t, user.RegistrationNumber)
	assert.Equal(t, req.RegistrationNumber, *user.RegistrationNumber)
	assert.Equal(t, req.PasswordHash, user.PasswordHash, "hash is copied, not recomputed")
	require.NotNil(t, user.BirthDate)
	assert.Equal(t, date(2000, 1, 1), *user.BirthDate)
	assert.True(t, result.Notified())

	stored, err := f.store.Registrations().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationApproved, stored.Status)
	require.NotNil(t, stored.ProcessedBy)
	assert.Equal(t, f.coordinator.UserID, *stored.ProcessedBy)
	require.NotNil(t, stored.ProcessedAt)
	assert.Equal(t, fixedNow, *stored.ProcessedAt)

	sent := f.mailer.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@x.com", sent[0].To)
	assert.Equal(t, ApprovalSubject, sent[0].Subject)
	assert.Contains(t, sent[0].Body, "Matrícula: "+req.RegistrationNumber)
	assert.Contains(t, sent[0].Body, "Usuário: ana")

	_, err = f.svc.Approve(ctx, f.coordinator, req.ID)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyProcessed))
	assert.Equal(t, apperrors.KindAlreadyProcessed, apperrors.KindOf(err))

	students, err := f.store.Users().List(ctx, repository.UserFilter{Role: domain.RoleStudent})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Len(t, f.mailer.Messages(), 1)

	var types []events.EventType
	for _, e := range *f.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.EventType{events.EventRegistrationSubmitted, events.EventRegistrationApproved}, types)
}

func TestSubmitPasswordMismatchCreatesNothing(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, nil)

	in := anaSignup()
	in.ConfirmPassword = "pass12345"
	_, err := f.svc.Submit(ctx, in)
	assert.True(t, errors.Is(err, apperrors.ErrPasswordMismatch))
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	counts, err := f.store.Registrations().CountByStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[domain.RegistrationPending])
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, nil)

	cases := map[string]func(*SubmitInput){
		"blank name":    func(in *SubmitInput) { in.FullName = "  " },
		"bad email":     func(in *SubmitInput) { in.Email = "not-an-email" },
		"no birth date": func(in *SubmitInput) { in.BirthDate = time.Time{} },
		"future birth":  func(in *SubmitInput) { in.BirthDate = date(2030, 1, 1) },
		"short password": func(in *SubmitInput) {
			in.Password, in.ConfirmPassword = "short", "short"
		},
		"long password": func(in *SubmitInput) {
			long := strings.Repeat("pass1234", 10)
			in.Password, in.ConfirmPassword = long, long
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := anaSignup()
			mutate(&in)
			_, err := f.svc.Submit(ctx, in)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err), "got %v", err)
		})
	}
}

func TestSubmitEmailTaken(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, nil)

	t.Run("existing user", func(t *testing.T) {
		in := anaSignup()
		in.Email = "COORD@devlab.test"
		_, err := f.svc.Submit(ctx, in)
		assert.True(t, errors.Is(err, apperrors.ErrEmailTaken))
	})

	first, err := f.svc.Submit(ctx, anaSignup())
	require.NoError(t, err)

	t.Run("pending request", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, anaSignup())
		assert.True(t, errors.Is(err, apperrors.ErrEmailTaken))
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	})

	t.Run("rejected request frees the address", func(t *testing.T) {
		_, err := f.svc.Reject(ctx, f.coordinator, first.ID, "incomplete data")
		require.NoError(t, err)
		again, err := f.svc.Submit(ctx, anaSignup())
		require.NoError(t, err)
		assert.NotEqual(t, first.RegistrationNumber, again.RegistrationNumber)
	})
}

func TestConcurrentSubmitSameEmail(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, nil)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		taken     int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(ctx, anaSignup())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrEmailTaken):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, taken)
}

func TestRegistrationNumberRerolls(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, sequence("11111111", "22222222", "33333333"))

	taken := seedUser(t, f.store, "holder", domain.RoleStudent)
	taken.RegistrationNumber = strPtr("11111111")
	require.NoError(t, f.store.Users().Update(ctx, taken))

	in := anaSignup()
	in.Email = "b@x.com"
	require.NoError(t, f.store.Registrations().Create(ctx, &domain.RegistrationRequest{
		FullName: "B", Email: "other@x.com", RegistrationNumber: "22222222", Status: domain.RegistrationPending,
		BirthDate: date(2000, 1, 1), PasswordHash: "h",
	}))

	req, err := f.svc.Submit(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "33333333", req.RegistrationNumber)
}

func TestRegistrationNumbersExhausted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewRegistrationService(RegistrationDependencies{
		Store:       store,
		Hasher:      testHasher,
		Numbers:     NumberSourceFunc(func() (string, error) { return "12345678", nil }),
		MaxAttempts: 3,
		Clock:       fixedClock,
	})
	_, err := svc.Submit(ctx, anaSignup())
	require.NoError(t, err)

	in := anaSignup()
	in.Email = "other@x.com"
	_, err = svc.Submit(ctx, in)
	assert.True(t, errors.Is(err, apperrors.ErrExhaustedRegistrationNumbers))
}

func TestApproveUsernameSuffix(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, nil)
	seedUser(t, f.store, "ana", domain.RoleTeacher)
	seedUser(t, f.store, "ana1", domain.RoleStudent)

	req, err := f.svc.Submit(ctx, anaSignup())
	require.NoError(t, err)
	result, err := f.svc.Approve(ctx, f.coordinator, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana2", result.User.Username)
}

func TestSubmitPasswordOverBcryptLimit(t *testing.T) {
	f := newRegistrationFixture(t, nil)
	in := anaSignup()
	in.Password = strings.Repeat("ção", 15)
	in.ConfirmPassword = in.Password

	_, err := f.svc.Submit(context.Background(), in)
	require.Equal(t, apperrors.KindValidation, apperrors.KindOf(err), "got %v", err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "password")
}

func TestApproveSanitizesUsername(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"o'brien@x.com":    "obrien",
		"mary.o+lab@x.com": "mary.o+lab",
		"!#$%@x.com":       "user",
	}
	for email, want := range cases {
		t.Run(email, func(t *testing.T) {
			f := newRegistrationFixture(t, nil)
			in := anaSignup()
			in.Email = email
			req, err := f.svc.Submit(ctx, in)
			require.NoError(t, err)

			result, err := f.svc.Approve(ctx, f.coordinator, req.ID)
			require.NoError(t, err)
			assert.Equal(t, want, result.User.Username)
			assert.Regexp(t, usernamePattern, result.User.Username)
		})
	}

	long := strings.Repeat("a", 200) + "@x.com"
	assert.Len(t, usernameBase(long), maxUsernameBase)
}

// claimingStore lets a rival approval take the chosen username between the
// free check and the insert, the way a concurrent transaction would.
type claimingStore struct {
	*memory.Store
	rivals  int
	claimed string
}

func (s *claimingStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(claimingTx{Store: tx, parent: s})
	})
	if s.claimed != "" {
		rival := &domain.User{Username: s.claimed, Email: s.claimed + "@rival.test", Role: domain.RoleStudent, Active: true, PasswordHash: "h"}
		s.claimed = ""
		if createErr := s.Store.Users().Create(ctx, rival); createErr != nil {
			return createErr
		}
	}
	return err
}

type claimingTx struct {
	repository.Store
	parent *claimingStore
}

func (tx claimingTx) Users() repository.UserRepository {
	return claimingUsers{UserRepository: tx.Store.Users(), parent: tx.parent}
}

type claimingUsers struct {
	repository.UserRepository
	parent *claimingStore
}

func (u claimingUsers) Create(ctx context.Context, user *domain.User) error {
	if u.parent.rivals > 0 {
		u.parent.rivals--
		u.parent.claimed = user.Username
		return apperrors.ErrUsernameTaken
	}
	return u.UserRepository.Create(ctx, user)
}

func TestApproveRetriesWhenUsernameClaimedConcurrently(t *testing.T) {
	ctx := context.Background()
	store := &claimingStore{Store: memory.NewStore()}
	coord := seedUser(t, store.Store, "coord", domain.RoleCoordinator)
	svc := NewRegistrationService(RegistrationDependencies{Store: store, Hasher: testHasher, Clock: fixedClock})

	req, err := svc.Submit(ctx, anaSignup())
	require.NoError(t, err)

	store.rivals = 2
	result, err := svc.Approve(ctx, sessionOf(coord), req.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana2", result.User.Username)
	assert.Equal(t, domain.RegistrationApproved, result.Request.Status)

	store.rivals = approveAttempts
	other := anaSignup()
	other.Email = "bia@x.com"
	req, err = svc.Submit(ctx, other)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, sessionOf(coord), req.ID)
	assert.True(t, errors.Is(err, apperrors.ErrUsernameTaken), "gives up after bounded retries: %v", err)

	stored, err := store.Registrations().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationPending, stored.Status)
}

func TestApproveSingleWordName(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, nil)
	in := anaSignup()
	in.FullName = "Ana"
	req, err := f.svc.Submit(ctx, in)
	require.NoError(t, err)

	result, err := f.svc.Approve(ctx, f.coordinator, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", result.User.FirstName)
	assert.Empty(t, result.User.LastName)
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, nil)
	req, err := f.svc.Submit(ctx, anaSignup())
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, f.coordinator, req.ID, "   ")
	assert.True(t, errors.Is(err, apperrors.ErrMissingReason))
	stored, err := f.store.Registrations().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationPending, stored.Status)

	rejected, err := f.svc.Reject(ctx, f.coordinator, req.ID, "X")
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "X", *rejected.RejectionReason)

	_, err = f.svc.Reject(ctx, f.coordinator, req.ID, "again")
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyProcessed))
	_, err = f.svc.Reject(ctx, f.coordinator, req.ID, "")
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyProcessed), "terminal state is checked before the reason")
	_, err = f.svc.Approve(ctx, f.coordinator, req.ID)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyProcessed))

	stored, err = f.store.Registrations().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", *stored.RejectionReason)

	exists, err := f.store.Users().EmailExists(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, f.mailer.Messages())
}

func TestApprovalSurvivesNotificationFailure(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, nil)
	f.mailer.Err = errors.New("smtp down")

	req, err := f.svc.Submit(ctx, anaSignup())
	require.NoError(t, err)

	result, err := f.svc.Approve(ctx, f.coordinator, req.ID)
	require.NoError(t, err)
	assert.False(t, result.Notified())
	assert.ErrorContains(t, result.NotificationError, "smtp down")

	stored, err := f.store.Registrations().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationApproved, stored.Status)
	_, err = f.store.Users().GetByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.metrics.Snapshot().NotificationFailures)
}

func TestProcessingRequiresCoordinator(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, nil)
	teacher := sessionOf(seedUser(t, f.store, "prof", domain.RoleTeacher))
	req, err := f.svc.Submit(ctx, anaSignup())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, teacher, req.ID)
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
	_, err = f.svc.Reject(ctx, teacher, req.ID, "no")
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
	_, err = f.svc.List(ctx, teacher, RegistrationListInput{})
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
	_, err = f.svc.Approve(ctx, domain.Session{}, req.ID)
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	stored, err := f.store.Registrations().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationPending, stored.Status)
}

func TestApproveUnknownRequest(t *testing.T) {
	f := newRegistrationFixture(t, nil)
	_, err := f.svc.Approve(context.Background(), f.coordinator, "missing")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestListRegistrations(t *testing.T) {
	ctx := context.Background()
	f := newRegistrationFixture(t, nil)

	ana, err := f.svc.Submit(ctx, anaSignup())
	require.NoError(t, err)
	bruno := anaSignup()
	bruno.FullName, bruno.Email = "Bruno Costa", "bruno@x.com"
	_, err = f.svc.Submit(ctx, bruno)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.coordinator, ana.ID, "duplicate")
	require.NoError(t, err)

	pending, err := f.svc.List(ctx, f.coordinator, RegistrationListInput{})
	require.NoError(t, err)
	assert.Equal(t, "pending", pending.Status)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, "Bruno Costa", pending.Items[0].FullName)
	assert.Equal(t, 1, pending.Counts[domain.RegistrationPending])
	assert.Equal(t, 1, pending.Counts[domain.RegistrationRejected])

	all, err := f.svc.List(ctx, f.coordinator, RegistrationListInput{Status: "all", Query: "ANA"})
	require.NoError(t, err)
	require.Len(t, all.Items, 1)
	assert.Equal(t, ana.ID, all.Items[0].ID)

	_, err = f.svc.List(ctx, f.coordinator, RegistrationListInput{Status: "archived"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	got, err := f.svc.Get(ctx, f.coordinator, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationRejected, got.Status)
}

func TestSplitFullName(t *testing.T) {
	cases := []struct{ in, first, last string }{
		{"Ana Silva", "Ana", "Silva"},
		{"  Maria  da   Silva Souza ", "Maria", "da Silva Souza"},
		{"Ana", "Ana", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		first, last := splitFullName(tc.in)
		assert.Equal(t, tc.first, first, tc.in)
		assert.Equal(t, tc.last, last, tc.in)
	}
}
