// Package importer copies a shared collection into the importer's library
// through a grant. Every import is idempotent per (source, grant, importer):
// a second attempt fails with domain.ErrAlreadyImported and writes nothing.
package importer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/clock"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/events"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/service"
	"github.com/phrazzld/scry-classroom/internal/store"
)

const serviceName = "importer"

// GrantResolver finds a usable grant by its secret.
type GrantResolver interface {
	Resolve(ctx context.Context, secret, password string) (*domain.Grant, error)
}

// Result describes a committed import.
type Result struct {
	Collection *domain.Collection   `json:"collection"`
	CardCount  int                  `json:"card_count"`
	Record     *domain.ImportRecord `json:"record"`
}

// Service imports collections.
type Service struct {
	tx       store.Transactor
	stores   store.Stores
	resolver GrantResolver
	notifier events.Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

// NewService creates an import service. stores is used for the checks made
// before the import transaction opens.
func NewService(
	tx store.Transactor,
	stores store.Stores,
	resolver GrantResolver,
	notifier events.Notifier,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	if tx == nil {
		panic("transactor cannot be nil")
	}
	if stores.Collections == nil || stores.Grants == nil || stores.Imports == nil || stores.Classes == nil {
		panic("stores cannot be nil")
	}
	if resolver == nil {
		panic("resolver cannot be nil")
	}
	if notifier == nil {
		notifier = events.Nop
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tx:       tx,
		stores:   stores,
		resolver: resolver,
		notifier: notifier,
		clock:    clk,
		logger:   logger.With(slog.String("component", "import_service")),
	}
}

// ImportByGrant imports the collection behind a share code or link. A class
// grant's code works too, but only for members of the class.
func (s *Service) ImportByGrant(ctx context.Context, importerID uuid.UUID, secret, password string) (*Result, error) {
	grant, err := s.resolver.Resolve(ctx, secret, password)
	if err != nil {
		return nil, err
	}
	return s.importThrough(ctx, importerID, grant)
}

// ImportFromClass imports the collection behind a class grant the importer
// picked from their class. Class membership stands in for the grant
// password.
func (s *Service) ImportFromClass(ctx context.Context, importerID, grantID uuid.UUID) (*Result, error) {
	grant, err := s.stores.Grants.GetByID(ctx, grantID)
	if err != nil {
		return nil, s.fail(ctx, "import_from_class", err)
	}
	if grant.Kind != domain.GrantKindClass {
		return nil, domain.ErrWrongGrantChannel
	}
	if err := grant.Check(s.clock.Now()); err != nil {
		return nil, err
	}
	return s.importThrough(ctx, importerID, grant)
}

func (s *Service) importThrough(ctx context.Context, importerID uuid.UUID, grant *domain.Grant) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("importer_id", importerID.String()),
		slog.String("grant_id", grant.ID.String()))

	if grant.Kind == domain.GrantKindClass {
		if grant.ClassID == nil {
			return nil, domain.ErrMissingClass
		}
		member, err := s.stores.Classes.IsMember(ctx, *grant.ClassID, importerID)
		if err != nil {
			return nil, s.fail(ctx, "check_membership", err)
		}
		if !member {
			log.Info("import refused, not a class member", slog.String("class_id", grant.ClassID.String()))
			return nil, domain.ErrNotClassMember
		}
	}
	if !grant.AllowsCopy() {
		return nil, domain.ErrPermissionDenied
	}

	source, err := s.stores.Collections.GetByID(ctx, grant.CollectionID)
	if err != nil {
		return nil, s.fail(ctx, "get_source", err)
	}
	if source.OwnedBy(importerID) {
		return nil, domain.ErrSelfImport
	}

	key := grant.Key()
	exists, err := s.stores.Imports.Exists(ctx, source.ID, key, importerID)
	if err != nil {
		return nil, s.fail(ctx, "check_import", err)
	}
	if exists {
		log.Debug("collection already imported", slog.String("grant_key", key))
		return nil, domain.ErrAlreadyImported
	}

	// Once started the import runs to completion even if the request is
	// cancelled.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	now := s.clock.Now()
	result, err := s.copyCollection(ctx, importerID, grant, source, key, now)
	if err != nil {
		if mapped := service.TranslateStoreError(err); service.IsDomainError(mapped) {
			if errors.Is(mapped, domain.ErrAlreadyImported) {
				log.Debug("concurrent import won the race", slog.String("grant_key", key))
			}
			return nil, mapped
		}
		log.Error("import transaction failed", slog.String("error", err.Error()))
		return nil, service.NewServiceError(serviceName, "import", "import transaction failed", err)
	}

	log.Info("collection imported",
		slog.String("source_collection_id", source.ID.String()),
		slog.String("cloned_collection_id", result.Collection.ID.String()),
		slog.Int("card_count", result.CardCount))

	s.announce(ctx, importerID, source, result)
	return result, nil
}

// copyCollection clones source and its cards for importerID, records the
// import and counts the grant use, all in one transaction.
func (s *Service) copyCollection(
	ctx context.Context,
	importerID uuid.UUID,
	grant *domain.Grant,
	source *domain.Collection,
	key string,
	now time.Time,
) (*Result, error) {
	var result *Result
	err := s.tx.Within(ctx, func(ctx context.Context, tx store.Stores) error {
		cards, err := tx.Cards.ListByCollection(ctx, source.ID)
		if err != nil {
			return err
		}

		clone := source.CloneFor(importerID, now)
		if err := tx.Collections.Create(ctx, clone); err != nil {
			return err
		}

		copies := make([]*domain.Card, 0, len(cards))
		for _, c := range cards {
			copies = append(copies, c.CopyInto(clone.ID, now))
		}
		if len(copies) > 0 {
			if err := tx.Cards.CreateMultiple(ctx, copies); err != nil {
				return err
			}
		}
		clone.CardCount = len(copies)

		rec := &domain.ImportRecord{
			ID:                 uuid.New(),
			SourceCollectionID: source.ID,
			GrantKey:           key,
			ImporterID:         importerID,
			ClonedCollectionID: clone.ID,
			CreatedAt:          now,
		}
		if err := tx.Imports.Create(ctx, rec); err != nil {
			return err
		}

		if _, err := tx.Grants.RecordUsage(ctx, grant.ID, &importerID, now); err != nil {
			return err
		}

		result = &Result{Collection: clone, CardCount: len(copies), Record: rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) announce(ctx context.Context, importerID uuid.UUID, source *domain.Collection, result *Result) {
	ev, err := events.New(events.TypeCollectionImported, events.CollectionImported{
		ImporterID:         importerID,
		SourceCollectionID: source.ID,
		ClonedCollectionID: result.Collection.ID,
		SourceName:         source.Name,
		CardCount:          result.CardCount,
	}, s.clock.Now())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to build import event",
			slog.String("error", err.Error()))
		return
	}
	s.notifier.Notify(ctx, importerID, ev)
}

func (s *Service) fail(ctx context.Context, op string, err error) error {
	mapped := service.TranslateStoreError(err)
	if service.IsDomainError(mapped) {
		return mapped
	}
	logger.FromContextOrDefault(ctx, s.logger).Error("import operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return service.NewServiceError(serviceName, op, "store failure", err)
}
