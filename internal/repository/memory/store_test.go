package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/repository"
	apperrors "github.com/spec-kit/devlab/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func mustUser(t *testing.T, s *Store, username string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Email: username + "@x.com", Role: role, Active: true, PasswordHash: "h"}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func mustProject(t *testing.T, s *Store, title string) *domain.Project {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &domain.Project{Title: title, Client: "acme", Status: domain.ProjectStatusPlanned, StartDate: start, ExpectedEndDate: start.AddDate(0, 6, 0)}
	require.NoError(t, s.Projects().Create(context.Background(), p))
	return p
}

func TestUserUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	first := &domain.User{Username: "ana", Email: "Ana@x.com", Role: domain.RoleStudent, RegistrationNumber: strPtr("12345678"), NationalID: strPtr("11122233344")}
	require.NoError(t, s.Users().Create(ctx, first))

	cases := map[string]struct {
		user domain.User
		want error
	}{
		"username":            {domain.User{Username: "ANA", Email: "other@x.com"}, apperrors.ErrUsernameTaken},
		"email":               {domain.User{Username: "ana2", Email: "ana@X.com"}, apperrors.ErrEmailTaken},
		"registration number": {domain.User{Username: "ana3", Email: "a3@x.com", RegistrationNumber: strPtr("12345678")}, apperrors.ErrRegistrationNumberTaken},
		"national id":         {domain.User{Username: "ana4", Email: "a4@x.com", NationalID: strPtr("11122233344")}, apperrors.ErrNationalIDTaken},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			u := tc.user
			u.Role = domain.RoleStudent
			err := s.Users().Create(ctx, &u)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	// an update that keeps its own values is not a conflict
	first.FirstName = "Ana"
	require.NoError(t, s.Users().Update(ctx, first))
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	leader := mustUser(t, s, "lead", domain.RoleTeacher)
	member := mustUser(t, s, "mem", domain.RoleStudent)
	coordinator := mustUser(t, s, "coord", domain.RoleCoordinator)

	team := &domain.Team{Name: "alpha", LeaderID: &leader.ID, MemberIDs: []string{leader.ID, member.ID}}
	require.NoError(t, s.Teams().Create(ctx, team))

	req := &domain.RegistrationRequest{FullName: "X", Email: "x@x.com", RegistrationNumber: "1", Status: domain.RegistrationPending}
	require.NoError(t, s.Registrations().Create(ctx, req))
	now := time.Now()
	req.Status = domain.RegistrationApproved
	req.ProcessedBy = &coordinator.ID
	req.ProcessedAt = &now
	require.NoError(t, s.Registrations().UpdateDecision(ctx, req))

	require.NoError(t, s.Users().Delete(ctx, leader.ID))
	require.NoError(t, s.Users().Delete(ctx, coordinator.ID))

	got, err := s.Teams().GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LeaderID)
	assert.Equal(t, []string{member.ID}, got.MemberIDs)

	gotReq, err := s.Registrations().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, gotReq.ProcessedBy)

	_, err = s.Users().GetByID(ctx, leader.ID)
	assert.True(t, repository.IsNotFound(err))
}

func TestDeleteProjectDetachesTeams(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := mustProject(t, s, "site")
	team := &domain.Team{Name: "web", ProjectID: &p.ID}
	require.NoError(t, s.Teams().Create(ctx, team))

	require.NoError(t, s.Projects().Delete(ctx, p.ID))

	got, err := s.Teams().GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ProjectID)
}

func TestLeaderUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := mustUser(t, s, "lead", domain.RoleTeacher)

	t1 := &domain.Team{Name: "t1", LeaderID: &u.ID}
	require.NoError(t, s.Teams().Create(ctx, t1))

	t2 := &domain.Team{Name: "t2", LeaderID: &u.ID}
	err := s.Teams().Create(ctx, t2)
	assert.True(t, errors.Is(err, apperrors.ErrLeaderTaken))
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	// re-saving the same team with the same leader is fine
	t1.Description = "updated"
	require.NoError(t, s.Teams().Update(ctx, t1))
}

func TestParticipantsFollowMembership(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := mustProject(t, s, "site")
	other := mustProject(t, s, "other")
	a := mustUser(t, s, "a", domain.RoleStudent)
	b := mustUser(t, s, "b", domain.RoleStudent)
	c := mustUser(t, s, "c", domain.RoleTeacher)

	require.NoError(t, s.Teams().Create(ctx, &domain.Team{Name: "t1", ProjectID: &p.ID, MemberIDs: []string{a.ID, b.ID}}))
	t2 := &domain.Team{Name: "t2", ProjectID: &p.ID, MemberIDs: []string{b.ID}}
	require.NoError(t, s.Teams().Create(ctx, t2))
	require.NoError(t, s.Teams().Create(ctx, &domain.Team{Name: "t3", ProjectID: &other.ID, MemberIDs: []string{c.ID}}))

	participants, err := s.Projects().Participants(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, usernames(participants))

	require.NoError(t, s.Teams().AddMember(ctx, t2.ID, c.ID))
	participants, err = s.Projects().Participants(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, usernames(participants))

	ok, err := s.Projects().IsParticipant(ctx, other.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	projects, err := s.Projects().ListForMember(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Users().Create(ctx, &domain.User{Username: "ghost", Email: "g@x.com", Role: domain.RoleStudent}))
		exists, err := tx.Users().UsernameExists(ctx, "ghost")
		require.NoError(t, err)
		assert.True(t, exists)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := s.Users().UsernameExists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.WithinTx(ctx, func(tx repository.Store) error {
		return tx.Users().Create(ctx, &domain.User{Username: "kept", Email: "k@x.com", Role: domain.RoleStudent})
	}))
	exists, err = s.Users().UsernameExists(ctx, "kept")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRegistrationEmailIndexIgnoresRejected(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Registrations()

	first := &domain.RegistrationRequest{FullName: "Ana", Email: "ana@x.com", RegistrationNumber: "1", Status: domain.RegistrationPending}
	require.NoError(t, repo.Create(ctx, first))

	dup := &domain.RegistrationRequest{FullName: "Ana", Email: "ANA@x.com", RegistrationNumber: "2", Status: domain.RegistrationPending}
	assert.True(t, errors.Is(repo.Create(ctx, dup), apperrors.ErrEmailTaken))

	now := time.Now()
	first.Status = domain.RegistrationRejected
	first.RejectionReason = strPtr("duplicate")
	first.ProcessedAt = &now
	require.NoError(t, repo.UpdateDecision(ctx, first))

	require.NoError(t, repo.Create(ctx, dup))

	sameNumber := &domain.RegistrationRequest{FullName: "B", Email: "b@x.com", RegistrationNumber: "2", Status: domain.RegistrationPending}
	assert.True(t, errors.Is(repo.Create(ctx, sameNumber), apperrors.ErrRegistrationNumberTaken))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.RegistrationPending])
	assert.Equal(t, 1, counts[domain.RegistrationRejected])
}

func TestTeamListOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	beta := mustProject(t, s, "Beta")
	alpha := mustProject(t, s, "Alpha")

	require.NoError(t, s.Teams().Create(ctx, &domain.Team{Name: "z", ProjectID: &alpha.ID}))
	require.NoError(t, s.Teams().Create(ctx, &domain.Team{Name: "loose"}))
	require.NoError(t, s.Teams().Create(ctx, &domain.Team{Name: "a", ProjectID: &beta.ID}))
	require.NoError(t, s.Teams().Create(ctx, &domain.Team{Name: "b", ProjectID: &alpha.ID}))

	teams, err := s.Teams().List(ctx, repository.TeamFilter{})
	require.NoError(t, err)
	var names []string
	for _, team := range teams {
		names = append(names, team.Name)
	}
	assert.Equal(t, []string{"b", "z", "a", "loose"}, names)

	teams, err = s.Teams().List(ctx, repository.TeamFilter{Query: "alp"})
	require.NoError(t, err)
	assert.Len(t, teams, 2)
}

func TestRevocations(t *testing.T) {
	ctx := context.Background()
	r := NewRevocations()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.clock = func() time.Time { return now }

	require.NoError(t, r.Revoke(ctx, "jti", time.Minute))
	revoked, err := r.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = r.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	cutoff, err := r.IssuedCutoff(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, cutoff.IsZero())

	require.NoError(t, r.RevokeIssuedBefore(ctx, "u-1", now, time.Minute))
	cutoff, err = r.IssuedCutoff(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, now, cutoff)

	now = now.Add(2 * time.Minute)
	cutoff, err = r.IssuedCutoff(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, cutoff.IsZero(), "cutoff expires with the last token it covers")
}

func usernames(users []domain.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}
