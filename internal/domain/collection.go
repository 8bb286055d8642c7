package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provenance records where an imported collection came from.
type Provenance struct {
	SourceCollectionID uuid.UUID `json:"source_collection_id"`
	OriginalOwnerID    uuid.UUID `json:"original_owner_id"`
}

// Collection is a named set of cards owned by one user. CardCount is
// maintained by the card store and is read-only for everyone else.
type Collection struct {
	ID            uuid.UUID   `json:"id"`
	OwnerID       uuid.UUID   `json:"owner_id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	CardCount     int         `json:"card_count"`
	Tags          []string    `json:"tags"`
	Provenance    *Provenance `json:"provenance,omitempty"`
	LastStudiedAt *time.Time  `json:"last_studied_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewCollection creates an original (non-imported) collection.
func NewCollection(ownerID uuid.UUID, name string, tags []string, now time.Time) (*Collection, error) {
	c := &Collection{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(name),
		Tags:      NormalizeTags(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.Name == "" {
		return nil, ErrEmptyCollection
	}
	return c, nil
}

// IsImported reports whether the collection was produced by an import.
func (c *Collection) IsImported() bool {
	return c.Provenance != nil
}

// OwnedBy reports whether userID owns the collection.
func (c *Collection) OwnedBy(userID uuid.UUID) bool {
	return userID != uuid.Nil && c.OwnerID == userID
}

// CloneFor returns a copy of the collection owned by importerID, pointing back
// at c through its provenance. The card count starts at zero; the card store
// raises it as the copied cards are inserted.
func (c *Collection) CloneFor(importerID uuid.UUID, now time.Time) *Collection {
	return &Collection{
		ID:          uuid.New(),
		OwnerID:     importerID,
		Name:        c.Name,
		Description: c.Description,
		Tags:        NormalizeTags(c.Tags),
		Provenance: &Provenance{
			SourceCollectionID: c.ID,
			OriginalOwnerID:    c.OwnerID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeTags trims, drops empties and deduplicates tags, returning them
// sorted so the set compares equal regardless of input order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
