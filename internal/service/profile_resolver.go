package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/hms-gateway/internal/domain"
	"github.com/spec-kit/hms-gateway/internal/events"
	"github.com/spec-kit/hms-gateway/internal/observability"
	"github.com/spec-kit/hms-gateway/internal/repository"
	apperrors "github.com/spec-kit/hms-gateway/pkg/util/errorutil"
)

// Resolution outcomes, as recorded in metrics.
const (
	resolutionOK          = "ok"
	resolutionCreated     = "created"
	resolutionDeactivated = "deactivated"
	resolutionMismatch    = "role_mismatch"
	resolutionError       = "error"
)

// materializeTimeout bounds the shared default-profile insert, which runs
// detached from any single caller's cancellation.
const materializeTimeout = 5 * time.Second

// ResolvedProfile is the authorization-relevant view of a staff profile.
type ResolvedProfile struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	FullName   string      `json:"full_name"`
	Role       domain.Role `json:"role"`
	Department string      `json:"department"`
	IsActive   bool        `json:"is_active"`
}

// ProfileResolver turns an authenticated identity into a staff profile,
// creating the default profile on first sight.
type ProfileResolver struct {
	staff      repository.StaffRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	inflight   singleflight.Group
}

// NewProfileResolver constructs the resolver.
func NewProfileResolver(staff repository.StaffRepository, dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *ProfileResolver {
	return &ProfileResolver{
		staff:      staff,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// Resolve loads the profile for ident. When expectedRole is non-empty the
// stored role must equal it.
func (r *ProfileResolver) Resolve(ctx context.Context, ident domain.Identity, expectedRole string) (*ResolvedProfile, error) {
	if strings.TrimSpace(ident.ID) == "" {
		return nil, apperrors.NewValidationError("identity id is required", nil)
	}

	var expected domain.Role
	if expectedRole != "" {
		role, ok := domain.ParseRole(expectedRole)
		if !ok {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": expectedRole})
		}
		expected = role
	}

	profile, created, err := r.lookup(ctx, ident)
	if err != nil {
		r.metrics.RecordResolution(resolutionError)
		return nil, err
	}

	if !profile.IsActive {
		r.metrics.RecordResolution(resolutionDeactivated)
		return nil, apperrors.NewAccountDeactivated()
	}
	if !profile.Role.Valid() {
		r.metrics.RecordResolution(resolutionError)
		r.logger.Error("staff profile has unrecognized role",
			zap.String("staff_id", profile.ID),
			zap.String("role", string(profile.Role)),
		)
		return nil, apperrors.NewProfileError("Staff profile has an unrecognized role", fmt.Errorf("role %q", profile.Role))
	}
	if expected != "" && expected != profile.Role {
		r.metrics.RecordResolution(resolutionMismatch)
		return nil, apperrors.NewRoleMismatch(string(profile.Role))
	}

	if created {
		r.metrics.RecordResolution(resolutionCreated)
	} else {
		r.metrics.RecordResolution(resolutionOK)
	}
	return toResolved(profile), nil
}

// lookup returns the stored profile, materializing the default one when
// none exists. created reports whether this lookup's flight inserted it.
func (r *ProfileResolver) lookup(ctx context.Context, ident domain.Identity) (*domain.StaffProfile, bool, error) {
	profile, err := r.staff.GetByID(ctx, ident.ID)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, apperrors.NewProfileError("Unable to load staff profile", err)
	}

	// One insert per identity per process. Concurrent callers share it and it
	// outlives the caller that started it.
	ch := r.inflight.DoChan(ident.ID, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), materializeTimeout)
		defer cancel()
		return r.materialize(flightCtx, ident)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		m := res.Val.(materialized)
		shared := *m.profile
		return &shared, m.created, nil
	case <-ctx.Done():
		return nil, false, apperrors.NewProfileError("Unable to load staff profile", ctx.Err())
	}
}

type materialized struct {
	profile *domain.StaffProfile
	created bool
}

func (r *ProfileResolver) materialize(ctx context.Context, ident domain.Identity) (materialized, error) {
	profile := domain.NewDefaultProfile(ident)

	err := r.staff.Create(ctx, profile)
	switch {
	case err == nil:
		r.logger.Info("created default staff profile",
			zap.String("staff_id", profile.ID),
			zap.String("role", string(profile.Role)),
		)
		r.publishCreated(ctx, profile)
		return materialized{profile: profile, created: true}, nil

	case errors.Is(err, repository.ErrStaffExists):
		stored, getErr := r.staff.GetByID(ctx, ident.ID)
		if getErr == nil {
			return materialized{profile: stored}, nil
		}
		if errors.Is(getErr, pgx.ErrNoRows) {
			return materialized{profile: profile}, nil
		}
		return materialized{}, apperrors.NewProfileError("Unable to load staff profile", getErr)

	default:
		return materialized{}, apperrors.NewProfileError("Unable to create staff profile", err)
	}
}

func (r *ProfileResolver) publishCreated(ctx context.Context, profile *domain.StaffProfile) {
	if r.dispatcher == nil {
		return
	}
	event := events.NewEvent(events.EventStaffProfileCreated, profile.ID, profile.ID, events.StaffProfilePayload{
		Role:       profile.Role,
		Department: profile.Department,
		IsActive:   profile.IsActive,
		Source:     "lazy_default",
	})
	if err := r.dispatcher.Publish(ctx, event); err != nil {
		r.logger.Warn("publish profile created failed", zap.String("staff_id", profile.ID), zap.Error(err))
	}
}

func toResolved(p *domain.StaffProfile) *ResolvedProfile {
	return &ResolvedProfile{
		ID:         p.ID,
		Email:      p.Email,
		FullName:   p.DisplayName(),
		Role:       p.Role,
		Department: p.Department,
		IsActive:   p.IsActive,
	}
}
