package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/store"
)

// OwnerChain returns the owner of coll followed by the owners of the
// collections it was imported from, nearest first, without duplicates. The
// last entry is the owner of the original collection. When an ancestor no
// longer exists its recorded original owner ends the chain.
func OwnerChain(ctx context.Context, collections store.CollectionStore, coll *domain.Collection) ([]uuid.UUID, error) {
	owners := []uuid.UUID{coll.OwnerID}
	seenOwner := map[uuid.UUID]struct{}{coll.OwnerID: {}}
	seenColl := map[uuid.UUID]struct{}{coll.ID: {}}

	add := func(id uuid.UUID) {
		if _, ok := seenOwner[id]; ok || id == uuid.Nil {
			return
		}
		seenOwner[id] = struct{}{}
		owners = append(owners, id)
	}

	cur := coll
	for cur.Provenance != nil {
		srcID := cur.Provenance.SourceCollectionID
		if _, ok := seenColl[srcID]; ok {
			break
		}
		seenColl[srcID] = struct{}{}

		src, err := collections.GetByID(ctx, srcID)
		if errors.Is(err, store.ErrNotFound) {
			add(cur.Provenance.OriginalOwnerID)
			break
		}
		if err != nil {
			return nil, err
		}
		add(src.OwnerID)
		cur = src
	}
	return owners, nil
}

// HasAuthority reports whether userID owns coll or any collection it was
// imported from.
func HasAuthority(ctx context.Context, collections store.CollectionStore, coll *domain.Collection, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	owners, err := OwnerChain(ctx, collections, coll)
	if err != nil {
		return false, err
	}
	for _, id := range owners {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}
