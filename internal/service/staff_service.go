package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/domain"
	"github.com/spec-kit/hms-gateway/internal/events"
	"github.com/spec-kit/hms-gateway/internal/repository"
	apperrors "github.com/spec-kit/hms-gateway/pkg/util/errorutil"
)

// StaffService administers staff profiles. Callers enforce the users
// module capability before reaching it.
type StaffService struct {
	staff      repository.StaffRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

// StaffUpdate holds the fields an administrator may change. Nil leaves a
// field untouched.
type StaffUpdate struct {
	FullName   *string
	Role       *domain.Role
	Department *string
	IsActive   *bool
}

// NewStaffService constructs the service.
func NewStaffService(staff repository.StaffRepository, dispatcher events.Dispatcher, logger *zap.Logger) *StaffService {
	return &StaffService{staff: staff, dispatcher: dispatcher, logger: logger}
}

// ListStaff lists profiles with filters.
func (s *StaffService) ListStaff(ctx context.Context, filters StaffListFilters) ([]domain.StaffProfile, error) {
	items, err := s.staff.List(ctx, repository.StaffFilter{
		Role:   filters.Role,
		Active: filters.Active,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// UpdateStaff applies an administrator's change to a profile.
func (s *StaffService) UpdateStaff(ctx context.Context, actorID, staffID string, upd StaffUpdate) (*domain.StaffProfile, error) {
	if upd.Role != nil && !upd.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(*upd.Role)})
	}
	if actorID == staffID {
		if upd.IsActive != nil && !*upd.IsActive {
			return nil, apperrors.NewConflict("administrators cannot deactivate themselves", nil)
		}
		if upd.Role != nil && *upd.Role != domain.RoleAdmin {
			return nil, apperrors.NewConflict("administrators cannot change their own role", nil)
		}
	}

	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if upd.FullName != nil {
		staff.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.Role != nil {
		staff.Role = *upd.Role
	}
	if upd.Department != nil {
		staff.Department = strings.TrimSpace(*upd.Department)
	}
	if upd.IsActive != nil {
		staff.IsActive = *upd.IsActive
	}

	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("staff profile updated",
		zap.String("staff_id", staff.ID),
		zap.String("actor_id", actorID),
		zap.String("role", string(staff.Role)),
		zap.Bool("is_active", staff.IsActive),
	)
	if s.dispatcher != nil {
		event := events.NewEvent(events.EventStaffProfileUpdated, staff.ID, actorID, events.StaffProfilePayload{
			Role:       staff.Role,
			Department: staff.Department,
			IsActive:   staff.IsActive,
			Source:     "admin_update",
		})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish profile updated failed", zap.String("staff_id", staff.ID), zap.Error(err))
		}
	}
	return staff, nil
}
