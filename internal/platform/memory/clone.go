package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
)

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneCollection(c *domain.Collection) *domain.Collection {
	cp := *c
	cp.Tags = append([]string{}, c.Tags...)
	if c.Provenance != nil {
		p := *c.Provenance
		cp.Provenance = &p
	}
	cp.LastStudiedAt = cloneTime(c.LastStudiedAt)
	return &cp
}

func cloneGrant(g *domain.Grant) *domain.Grant {
	cp := *g
	if g.ClassID != nil {
		id := *g.ClassID
		cp.ClassID = &id
	}
	cp.Permissions = append([]domain.Permission{}, g.Permissions...)
	cp.ExpiresAt = cloneTime(g.ExpiresAt)
	if g.MaxUses != nil {
		m := *g.MaxUses
		cp.MaxUses = &m
	}
	cp.Usage.LastUsedAt = cloneTime(g.Usage.LastUsedAt)
	cp.Usage.UsedBy = append([]uuid.UUID{}, g.Usage.UsedBy...)
	return &cp
}

func cloneSession(s *domain.StudySession) *domain.StudySession {
	cp := *s
	cp.PerCard = append([]domain.CardResult{}, s.PerCard...)
	cp.EndedAt = cloneTime(s.EndedAt)
	cp.CompletedAt = cloneTime(s.CompletedAt)
	if s.Annotation != nil {
		a := *s.Annotation
		cp.Annotation = &a
	}
	return &cp
}
