package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
)

// ClassStore persists classes and their membership.
type ClassStore interface {
	Create(ctx context.Context, c *domain.Class) error

	// GetByID returns ErrClassNotFound if the class does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Class, error)

	// AddMember enrols a student. Returns ErrMemberExists if already enrolled.
	AddMember(ctx context.Context, classID, studentID uuid.UUID) error

	IsMember(ctx context.Context, classID, studentID uuid.UUID) (bool, error)
}
