// Package distribution issues, resolves and retires the grants through which
// a collection is shared: short codes, links and class grants.
package distribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-classroom/internal/clock"
	"github.com/phrazzld/scry-classroom/internal/config"
	"github.com/phrazzld/scry-classroom/internal/domain"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/phrazzld/scry-classroom/internal/service"
	"github.com/phrazzld/scry-classroom/internal/service/auth"
	"github.com/phrazzld/scry-classroom/internal/store"
)

const serviceName = "distribution"

// ErrCodeSpaceExhausted is returned when no free code could be drawn within
// the configured number of attempts.
var ErrCodeSpaceExhausted = fmt.Errorf("%w: could not allocate a unique share code", domain.ErrConflict)

// IssueRequest describes a new grant.
type IssueRequest struct {
	CollectionID uuid.UUID
	Kind         domain.GrantKind
	Permissions  []domain.Permission
	ExpiresAt    *time.Time
	MaxUses      *int
	Password     string
	ClassID      *uuid.UUID
}

// CollectionPreview is what a grant holder may see of a collection before
// importing it.
type CollectionPreview struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CardCount   int       `json:"card_count"`
	Tags        []string  `json:"tags"`
}

// Preview is the answer to View.
type Preview struct {
	Grant      *domain.Grant     `json:"grant"`
	Collection CollectionPreview `json:"collection"`
}

// Service manages distribution grants.
type Service struct {
	grants      store.GrantStore
	collections store.CollectionStore
	classes     store.ClassStore
	hasher      auth.PasswordHasher
	secrets     SecretSource
	clock       clock.Clock
	cfg         config.DistributionConfig
	logger      *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithSecretSource replaces the random secret generator.
func WithSecretSource(src SecretSource) Option {
	return func(s *Service) { s.secrets = src }
}

// WithClock replaces the system clock.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) { s.clock = clk }
}

// NewService creates a distribution service.
func NewService(
	grants store.GrantStore,
	collections store.CollectionStore,
	classes store.ClassStore,
	hasher auth.PasswordHasher,
	cfg config.DistributionConfig,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if grants == nil {
		panic("grants cannot be nil")
	}
	if collections == nil {
		panic("collections cannot be nil")
	}
	if classes == nil {
		panic("classes cannot be nil")
	}
	if hasher == nil {
		panic("hasher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 8
	}
	if cfg.CodeMaxAttempts <= 0 {
		cfg.CodeMaxAttempts = 5
	}

	s := &Service{
		grants:      grants,
		collections: collections,
		classes:     classes,
		hasher:      hasher,
		secrets:     RandomSecrets{},
		clock:       clock.System{},
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "distribution_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a grant on a collection owned by the caller.
func (s *Service) Issue(ctx context.Context, caller domain.Identity, req IssueRequest) (*domain.Grant, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("collection_id", req.CollectionID.String()),
		slog.String("kind", string(req.Kind)))
	now := s.clock.Now()

	grant, err := s.validate(req, now)
	if err != nil {
		return nil, err
	}
	grant.IssuedBy = caller.UserID

	coll, err := s.collections.GetByID(ctx, req.CollectionID)
	if err != nil {
		return nil, s.fail(ctx, "issue", err)
	}
	if !coll.OwnedBy(caller.UserID) {
		log.Warn("grant requested by non-owner", slog.String("user_id", caller.UserID.String()))
		return nil, domain.ErrNotOwner
	}

	if grant.Kind == domain.GrantKindClass {
		class, err := s.classes.GetByID(ctx, *grant.ClassID)
		if err != nil {
			return nil, s.fail(ctx, "issue", err)
		}
		if class.TeacherID != caller.UserID {
			log.Warn("class grant requested for foreign class",
				slog.String("user_id", caller.UserID.String()),
				slog.String("class_id", class.ID.String()))
			return nil, domain.ErrNotOwner
		}
	}

	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			log.Error("failed to hash grant password", slog.String("error", err.Error()))
			return nil, service.NewServiceError(serviceName, "issue", "failed to hash password", err)
		}
		grant.PasswordHash = hash
	}

	if err := s.store(ctx, grant); err != nil {
		return nil, err
	}

	log.Info("grant issued",
		slog.String("grant_id", grant.ID.String()),
		slog.Int("permissions", len(grant.Permissions)),
		slog.Bool("password", grant.HasPassword()))
	return grant, nil
}

// validate checks the request and returns the grant it describes, without
// issuer or secret.
func (s *Service) validate(req IssueRequest, now time.Time) (*domain.Grant, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidGrantKind, req.Kind)
	}
	if req.CollectionID == uuid.Nil {
		return nil, domain.ErrEmptyCollectionID
	}
	perms, err := domain.NormalizePermissions(req.Permissions)
	if err != nil {
		return nil, err
	}
	if req.MaxUses != nil && (*req.MaxUses < 1 || *req.MaxUses > domain.MaxGrantUses) {
		return nil, domain.ErrInvalidMaxUses
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, domain.ErrInvalidExpiry
	}

	grant := &domain.Grant{
		ID:           uuid.New(),
		CollectionID: req.CollectionID,
		Kind:         req.Kind,
		Permissions:  perms,
		Usage:        domain.GrantUsage{UsedBy: []uuid.UUID{}},
		Active:       true,
		CreatedAt:    now,
	}
	if req.ExpiresAt != nil {
		at := req.ExpiresAt.UTC()
		grant.ExpiresAt = &at
	}
	if req.MaxUses != nil {
		n := *req.MaxUses
		grant.MaxUses = &n
	}
	if req.Kind == domain.GrantKindClass {
		if req.ClassID == nil || *req.ClassID == uuid.Nil {
			return nil, domain.ErrMissingClass
		}
		id := *req.ClassID
		grant.ClassID = &id
	}
	return grant, nil
}

// store assigns a secret and persists the grant. Codes collide with other
// active codes now and then and are redrawn; links are long enough that a
// collision is treated as a failure.
func (s *Service) store(ctx context.Context, grant *domain.Grant) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if grant.Kind == domain.GrantKindLink {
		secret, err := s.secrets.Link()
		if err != nil {
			return service.NewServiceError(serviceName, "issue", "failed to generate secret", err)
		}
		grant.Secret = secret
		if err := s.grants.Create(ctx, grant); err != nil {
			return s.fail(ctx, "issue", err)
		}
		return nil
	}

	for attempt := 1; attempt <= s.cfg.CodeMaxAttempts; attempt++ {
		secret, err := s.secrets.Code(s.cfg.CodeLength)
		if err != nil {
			return service.NewServiceError(serviceName, "issue", "failed to generate secret", err)
		}
		grant.Secret = secret

		err = s.grants.Create(ctx, grant)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrSecretExists) {
			return s.fail(ctx, "issue", err)
		}
		log.Debug("share code collision, retrying", slog.Int("attempt", attempt))
	}

	log.Error("no free share code found", slog.Int("attempts", s.cfg.CodeMaxAttempts))
	return ErrCodeSpaceExhausted
}

// Resolve looks a grant up by secret and checks that it can be used now. A
// password is required when the grant carries one.
func (s *Service) Resolve(ctx context.Context, secret, password string) (*domain.Grant, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, domain.ErrGrantNotFound
	}

	grant, err := s.grants.GetBySecret(ctx, secret)
	if err != nil {
		return nil, s.fail(ctx, "resolve", err)
	}
	if err := s.Authorize(ctx, grant, password); err != nil {
		return nil, err
	}
	return grant, nil
}

// Authorize checks a grant that has already been loaded: it must be usable
// now and, when protected, password must match.
func (s *Service) Authorize(ctx context.Context, grant *domain.Grant, password string) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("grant_id", grant.ID.String()))

	if err := grant.Check(s.clock.Now()); err != nil {
		log.Debug("grant not usable", slog.String("reason", err.Error()))
		return err
	}
	if !grant.HasPassword() {
		return nil
	}
	if password == "" {
		return domain.ErrPasswordMismatch
	}
	if err := s.hasher.Compare(grant.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			log.Info("grant password mismatch")
			return domain.ErrPasswordMismatch
		}
		return service.NewServiceError(serviceName, "authorize", "failed to compare password", err)
	}
	return nil
}

// RecordUsage counts one use of the grant by userID, or anonymously when
// userID is nil. The counter never passes MaxUses: a use that would, fails
// with ErrGrantExhausted.
func (s *Service) RecordUsage(
	ctx context.Context,
	grantID uuid.UUID,
	userID *uuid.UUID,
	action domain.UsageAction,
) (*domain.Grant, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidUsageAction, action)
	}

	grant, err := s.grants.RecordUsage(ctx, grantID, userID, s.clock.Now())
	if err != nil {
		return nil, s.fail(ctx, "record_usage", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("grant used",
		slog.String("grant_id", grantID.String()),
		slog.String("action", string(action)),
		slog.Int("count", grant.Usage.Count))
	return grant, nil
}

// Deactivate retires a grant. Only its issuer may do so; retiring an inactive
// grant succeeds.
func (s *Service) Deactivate(ctx context.Context, caller domain.Identity, grantID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("grant_id", grantID.String()))

	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		return s.fail(ctx, "deactivate", err)
	}
	if grant.IssuedBy != caller.UserID {
		log.Warn("deactivation requested by non-issuer", slog.String("user_id", caller.UserID.String()))
		return domain.ErrNotOwner
	}
	if !grant.Active {
		return nil
	}
	if err := s.grants.Deactivate(ctx, grantID); err != nil {
		return s.fail(ctx, "deactivate", err)
	}

	log.Info("grant deactivated")
	return nil
}

// List returns the caller's grants, optionally for one collection.
func (s *Service) List(ctx context.Context, caller domain.Identity, collectionID *uuid.UUID) ([]*domain.Grant, error) {
	grants, err := s.grants.ListByIssuer(ctx, caller.UserID, collectionID)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	return grants, nil
}

// View resolves a grant that allows viewing, records the view and returns a
// preview of its collection.
func (s *Service) View(ctx context.Context, secret, password string, viewer *uuid.UUID) (*Preview, error) {
	grant, err := s.Resolve(ctx, secret, password)
	if err != nil {
		return nil, err
	}
	if !grant.Allows(domain.PermissionView) {
		return nil, domain.ErrPermissionDenied
	}

	coll, err := s.collections.GetByID(ctx, grant.CollectionID)
	if err != nil {
		return nil, s.fail(ctx, "view", err)
	}

	grant, err = s.RecordUsage(ctx, grant.ID, viewer, domain.UsageView)
	if err != nil {
		return nil, err
	}

	return &Preview{
		Grant: grant,
		Collection: CollectionPreview{
			ID:          coll.ID,
			Name:        coll.Name,
			Description: coll.Description,
			CardCount:   coll.CardCount,
			Tags:        coll.Tags,
		},
	}, nil
}

// SweepExpired deactivates every active grant past its expiry. Expired grants
// are rejected on use regardless; sweeping only keeps the active set small.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.grants.DeactivateExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, s.fail(ctx, "sweep_expired", err)
	}
	if n > 0 {
		logger.FromContextOrDefault(ctx, s.logger).Info("expired grants deactivated", slog.Int64("count", n))
	}
	return n, nil
}

func (s *Service) fail(ctx context.Context, op string, err error) error {
	mapped := service.TranslateStoreError(err)
	if service.IsDomainError(mapped) {
		return mapped
	}
	logger.FromContextOrDefault(ctx, s.logger).Error("distribution operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return service.NewServiceError(serviceName, op, "store failure", err)
}
