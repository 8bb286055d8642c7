package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestGrantCheck(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		grant Grant
		want  error
	}{
		{
			name:  "active without limits",
			grant: Grant{Active: true},
			want:  nil,
		},
		{
			name:  "inactive",
			grant: Grant{Active: false},
			want:  ErrGrantInactive,
		},
		{
			name:  "expiry in the future",
			grant: Grant{Active: true, ExpiresAt: timePtr(now.Add(time.Second))},
			want:  nil,
		},
		{
			name:  "expiry exactly now",
			grant: Grant{Active: true, ExpiresAt: timePtr(now)},
			want:  ErrGrantExpired,
		},
		{
			name:  "uses below limit",
			grant: Grant{Active: true, MaxUses: intPtr(2), Usage: GrantUsage{Count: 1}},
			want:  nil,
		},
		{
			name:  "uses at limit",
			grant: Grant{Active: true, MaxUses: intPtr(1), Usage: GrantUsage{Count: 1}},
			want:  ErrGrantExhausted,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.grant.Check(now)
			if tc.want == nil {
				assert.NoError(t, err)
				assert.True(t, tc.grant.Usable(now))
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.False(t, tc.grant.Usable(now))
		})
	}
}

func TestGrantErrorsWrapTaxonomy(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.Is(ErrGrantExpired, ErrExpired))
	assert.True(t, errors.Is(ErrGrantInactive, ErrExpired))
	assert.True(t, errors.Is(ErrGrantExhausted, ErrExhausted))
	assert.True(t, errors.Is(ErrAlreadyImported, ErrConflict))
	assert.True(t, errors.Is(ErrPasswordMismatch, ErrForbidden))
	assert.True(t, errors.Is(ErrInvalidSignal, ErrValidation))
}

func TestGrantAllowsCopy(t *testing.T) {
	t.Parallel()

	assert.False(t, (&Grant{Permissions: []Permission{PermissionView}}).AllowsCopy())
	assert.True(t, (&Grant{Permissions: []Permission{PermissionCopy}}).AllowsCopy())
	assert.True(t, (&Grant{Permissions: []Permission{PermissionView, PermissionDownload}}).AllowsCopy())
}

func TestGrantKey(t *testing.T) {
	t.Parallel()

	classID := uuid.New()
	code := &Grant{ID: uuid.New(), Kind: GrantKindCode}
	class := &Grant{ID: uuid.New(), Kind: GrantKindClass, ClassID: &classID}

	assert.Equal(t, "grant:"+code.ID.String(), code.Key())
	assert.Equal(t, "class:"+classID.String(), class.Key())
}

func TestNormalizePermissions(t *testing.T) {
	t.Parallel()

	perms, err := NormalizePermissions([]Permission{PermissionView, PermissionCopy, PermissionView})
	require.NoError(t, err)
	assert.Equal(t, []Permission{PermissionCopy, PermissionView}, perms)

	_, err = NormalizePermissions(nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NormalizePermissions([]Permission{"share"})
	assert.ErrorIs(t, err, ErrInvalidPermission)
}
