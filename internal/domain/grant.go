package domain

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// GrantKind is the channel through which a grant is presented.
type GrantKind string

// Grant kinds.
const (
	GrantKindCode  GrantKind = "code"
	GrantKindLink  GrantKind = "link"
	GrantKindClass GrantKind = "class"
)

// Valid reports whether k is a known kind.
func (k GrantKind) Valid() bool {
	switch k {
	case GrantKindCode, GrantKindLink, GrantKindClass:
		return true
	}
	return false
}

// Permission is an action a grant allows on its collection.
type Permission string

// Grant permissions.
const (
	PermissionView     Permission = "view"
	PermissionCopy     Permission = "copy"
	PermissionDownload Permission = "download"
)

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	switch p {
	case PermissionView, PermissionCopy, PermissionDownload:
		return true
	}
	return false
}

// MaxGrantUses is the largest use limit a grant may carry; the column is a
// 32-bit integer.
const MaxGrantUses = math.MaxInt32

// UsageAction is the kind of access recorded against a grant.
type UsageAction string

// Usage actions.
const (
	UsageView     UsageAction = "view"
	UsageDownload UsageAction = "download"
)

// Valid reports whether a is a known action.
func (a UsageAction) Valid() bool {
	return a == UsageView || a == UsageDownload
}

// GrantUsage tracks how often a grant has been used and by whom.
type GrantUsage struct {
	Count      int         `json:"count"`
	LastUsedAt *time.Time  `json:"last_used_at,omitempty"`
	UsedBy     []uuid.UUID `json:"used_by"`
}

// Grant is an issued permission artifact (share code, share link or class
// grant) that authorizes access to one collection.
type Grant struct {
	ID           uuid.UUID    `json:"id"`
	CollectionID uuid.UUID    `json:"collection_id"`
	IssuedBy     uuid.UUID    `json:"issued_by"`
	Kind         GrantKind    `json:"kind"`
	ClassID      *uuid.UUID   `json:"class_id,omitempty"`
	Secret       string       `json:"secret"`
	Permissions  []Permission `json:"permissions"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	MaxUses      *int         `json:"max_uses,omitempty"`
	PasswordHash string       `json:"-"`
	Usage        GrantUsage   `json:"usage"`
	Active       bool         `json:"active"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Check returns nil when the grant is usable at now, or the reason it is not:
// ErrGrantInactive, ErrGrantExpired or ErrGrantExhausted.
func (g *Grant) Check(now time.Time) error {
	if !g.Active {
		return ErrGrantInactive
	}
	if g.ExpiresAt != nil && !now.Before(*g.ExpiresAt) {
		return ErrGrantExpired
	}
	if g.MaxUses != nil && g.Usage.Count >= *g.MaxUses {
		return ErrGrantExhausted
	}
	return nil
}

// Usable reports whether the grant can be used at now.
func (g *Grant) Usable(now time.Time) bool {
	return g.Check(now) == nil
}

// Allows reports whether the grant carries permission p.
func (g *Grant) Allows(p Permission) bool {
	for _, have := range g.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// AllowsCopy reports whether the grant permits cloning the collection.
func (g *Grant) AllowsCopy() bool {
	return g.Allows(PermissionCopy) || g.Allows(PermissionDownload)
}

// HasPassword reports whether resolving the grant requires a password.
func (g *Grant) HasPassword() bool {
	return g.PasswordHash != ""
}

// Key returns the idempotency key component for imports through this grant.
// Class grants are keyed by class so a student imports a class collection
// once no matter how many grants the teacher issued for it.
func (g *Grant) Key() string {
	if g.Kind == GrantKindClass && g.ClassID != nil {
		return "class:" + g.ClassID.String()
	}
	return "grant:" + g.ID.String()
}

// NormalizePermissions validates and deduplicates a permission list.
func NormalizePermissions(perms []Permission) ([]Permission, error) {
	if len(perms) == 0 {
		return nil, fmt.Errorf("%w: at least one permission is required", ErrInvalidPermission)
	}
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPermission, p)
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Class is a teacher's group of students. Class grants are redeemable only
// by its members.
type Class struct {
	ID        uuid.UUID `json:"id"`
	TeacherID uuid.UUID `json:"teacher_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
