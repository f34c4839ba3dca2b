package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"coordinator": RoleCoordinator,
		"Coordenador": RoleCoordinator,
		"teacher":     RoleTeacher,
		"professor":   RoleTeacher,
		" student ":   RoleStudent,
		"estudante":   RoleStudent,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRole("admin")
	assert.Error(t, err)
}

func TestRoleText(t *testing.T) {
	text, err := RoleTeacher.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "teacher", string(text))

	var r Role
	require.NoError(t, r.UnmarshalText([]byte("student")))
	assert.Equal(t, RoleStudent, r)

	_, err = RoleUnknown.MarshalText()
	assert.Error(t, err)
}

func TestRegistrationStatusTerminal(t *testing.T) {
	assert.False(t, RegistrationPending.Terminal())
	assert.True(t, RegistrationApproved.Terminal())
	assert.True(t, RegistrationRejected.Terminal())
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Ana Silva", (&User{FirstName: "Ana", LastName: "Silva"}).FullName())
	assert.Equal(t, "Ana", (&User{FirstName: "Ana"}).FullName())
	assert.Equal(t, "ana", (&User{Username: "ana"}).FullName())
}
