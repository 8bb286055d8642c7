package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
)

// GradeCardRequest is the body of POST /cards/{id}/grade.
type GradeCardRequest struct {
	Signal       string `json:"signal"         validate:"required,oneof=again hard good easy"`
	TimeSpentSec int    `json:"time_spent_sec" validate:"gte=0"`
}

// StartSessionRequest is the body of POST /sessions.
type StartSessionRequest struct {
	CollectionID uuid.UUID `json:"collection_id" validate:"required"`
	Kind         string    `json:"kind"          validate:"required,oneof=revision quiz test"`
}

// SessionTotalsRequest carries the client's session counts.
type SessionTotalsRequest struct {
	Total     int `json:"total"     validate:"gte=0"`
	Correct   int `json:"correct"   validate:"gte=0"`
	Incorrect int `json:"incorrect" validate:"gte=0"`
	Skipped   int `json:"skipped"   validate:"gte=0"`
}

// CardResultRequest is the outcome of one card.
type CardResultRequest struct {
	CardID       uuid.UUID `json:"card_id"        validate:"required"`
	IsCorrect    bool      `json:"is_correct"`
	TimeSpentSec int       `json:"time_spent_sec" validate:"gte=0"`
}

// CompleteSessionRequest is the body of POST /sessions/{id}/complete.
type CompleteSessionRequest struct {
	Totals  SessionTotalsRequest `json:"totals"`
	PerCard []CardResultRequest  `json:"per_card" validate:"dive"`
	EndedAt *time.Time           `json:"ended_at,omitempty"`
}

// AnnotateSessionRequest is the body of PUT /sessions/{id}/annotation.
type AnnotateSessionRequest struct {
	Note   string `json:"note"   validate:"max=4000"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
}

// IssueGrantRequest is the body of POST /collections/{id}/grants.
type IssueGrantRequest struct {
	Kind        string     `json:"kind"                validate:"required,oneof=code link class"`
	Permissions []string   `json:"permissions"         validate:"required,min=1,dive,oneof=view copy download"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	MaxUses     *int       `json:"max_uses,omitempty"  validate:"omitempty,gte=1,lte=2147483647"`
	Password    string     `json:"password,omitempty"  validate:"omitempty,max=72"`
	ClassID     *uuid.UUID `json:"class_id,omitempty"`
}

// ResolveGrantRequest is the body of POST /grants/resolve and /grants/view.
type ResolveGrantRequest struct {
	Secret   string `json:"secret"             validate:"required,max=128"`
	Password string `json:"password,omitempty" validate:"max=72"`
}

// ImportRequest is the body of POST /imports.
type ImportRequest struct {
	Secret   string `json:"secret"             validate:"required,max=128"`
	Password string `json:"password,omitempty" validate:"max=72"`
}

// ClassImportRequest is the body of POST /imports/class.
type ClassImportRequest struct {
	GrantID uuid.UUID `json:"grant_id" validate:"required"`
}

// GrantView is what a grant holder learns about a grant: everything but the
// issuer's bookkeeping.
type GrantView struct {
	ID               uuid.UUID           `json:"id"`
	CollectionID     uuid.UUID           `json:"collection_id"`
	Kind             domain.GrantKind    `json:"kind"`
	Permissions      []domain.Permission `json:"permissions"`
	ExpiresAt        *time.Time          `json:"expires_at,omitempty"`
	UsesRemaining    *int                `json:"uses_remaining,omitempty"`
	RequiresPassword bool                `json:"requires_password"`
}

func grantToView(g *domain.Grant) GrantView {
	v := GrantView{
		ID:               g.ID,
		CollectionID:     g.CollectionID,
		Kind:             g.Kind,
		Permissions:      g.Permissions,
		ExpiresAt:        g.ExpiresAt,
		RequiresPassword: g.HasPassword(),
	}
	if g.MaxUses != nil {
		left := *g.MaxUses - g.Usage.Count
		if left < 0 {
			left = 0
		}
		v.UsesRemaining = &left
	}
	return v
}

func permissionsFromStrings(in []string) []domain.Permission {
	out := make([]domain.Permission, len(in))
	for i, p := range in {
		out[i] = domain.Permission(p)
	}
	return out
}

func resultsFromRequest(in []CardResultRequest) []domain.CardResult {
	out := make([]domain.CardResult, len(in))
	for i, r := range in {
		out[i] = domain.CardResult{CardID: r.CardID, IsCorrect: r.IsCorrect, TimeSpentSec: r.TimeSpentSec}
	}
	return out
}
