package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"BUYER", RoleBuyer, true},
		{"buyer", RoleBuyer, true},
		{" Promoter ", RolePromoter, true},
		{"PROMOTER", RolePromoter, true},
		{"admin", "", false},
		{"", "", false},
		{"usuario", "", false},
	}
	for _, tc := range cases {
		got, err := ParseRole(tc.in)
		if tc.ok {
			assert.NoError(t, err, "input %q", tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			assert.ErrorIs(t, err, ErrUnknownRole, "input %q", tc.in)
		}
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleBuyer.Valid())
	assert.True(t, RolePromoter.Valid())
	assert.False(t, Role("OWNER").Valid())
}
