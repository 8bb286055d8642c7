package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
)

// SessionStore persists study sessions.
type SessionStore interface {
	// Create inserts a started session.
	Create(ctx context.Context, s *domain.StudySession) error

	// GetByID returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StudySession, error)

	// Complete stores the outcome fields of s only if the persisted session
	// is not yet completed. Returns ErrAlreadyDone otherwise.
	Complete(ctx context.Context, s *domain.StudySession) error

	// SetAnnotation replaces the annotation of a session.
	SetAnnotation(ctx context.Context, id uuid.UUID, a *domain.Annotation) error

	// ListCompletedByCollections returns completed sessions on any of the
	// given collections.
	ListCompletedByCollections(ctx context.Context, collectionIDs []uuid.UUID) ([]*domain.StudySession, error)

	// ListCompletedByStudent returns the completed sessions of one student.
	ListCompletedByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.StudySession, error)
}
