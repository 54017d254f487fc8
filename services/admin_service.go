package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
)

type AdminService interface {
	// Log записывает действие в журнал; ошибки только логируются.
	Log(ctx context.Context, adminID int64, action string, details string)
	RecentLogs(ctx context.Context, limit int) ([]*models.AdminLog, error)
	// ResolveRole returns the effective admin role of a user, zero for regular players.
	ResolveRole(ctx context.Context, userID int64) (models.AdminRole, error)
	// SetRole grants role to target, or revokes it when role is nil.
	SetRole(ctx context.Context, granterID int64, targetID int64, role *models.AdminRole) error
}

type adminService struct {
	logRepo  repositories.AdminLogRepository
	userRepo repositories.UserRepository
	owners   map[int64]bool
	logger   *slog.Logger
}

// NewAdminService: ownerIDs always resolve to the owner role regardless of the stored one.
func NewAdminService(logRepo repositories.AdminLogRepository, userRepo repositories.UserRepository, ownerIDs []int64, logger *slog.Logger) AdminService {
	owners := make(map[int64]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = true
	}
	return &adminService{logRepo: logRepo, userRepo: userRepo, owners: owners, logger: logger}
}

func (s *adminService) Log(ctx context.Context, adminID int64, action string, details string) {
	entry := &models.AdminLog{AdminID: adminID, Action: action}
	if details != "" {
		entry.Details = strPtr(details)
	}
	if err := s.logRepo.Create(ctx, nil, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to write admin log",
			slog.Int64("admin_id", adminID), slog.String("action", action), slog.Any("error", err))
	}
}

func (s *adminService) RecentLogs(ctx context.Context, limit int) ([]*models.AdminLog, error) {
	return s.logRepo.ListRecent(ctx, nil, limit)
}

func (s *adminService) ResolveRole(ctx context.Context, userID int64) (models.AdminRole, error) {
	if s.owners[userID] {
		return models.RoleOwner, nil
	}
	u, err := s.userRepo.GetByID(ctx, nil, userID, false)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if u.AdminRole == nil {
		return 0, nil
	}
	return *u.AdminRole, nil
}

func (s *adminService) SetRole(ctx context.Context, granterID int64, targetID int64, role *models.AdminRole) error {
	granterRole, err := s.ResolveRole(ctx, granterID)
	if err != nil {
		return err
	}
	if !CanGrantRole(granterRole) {
		return ErrForbiddenOperation
	}
	if role != nil && (*role < models.RoleModerator || *role > models.RoleOwner) {
		return fmt.Errorf("%w: unknown role %d", ErrValidationFailed, *role)
	}

	target, err := s.userRepo.GetByID(ctx, nil, targetID, false)
	if err != nil {
		return handleRepositoryError(err)
	}
	if target.AdminRole != nil && !CanManageUser(granterRole, *target.AdminRole) {
		return ErrForbiddenOperation
	}
	if err := s.userRepo.SetAdminRole(ctx, nil, targetID, role); err != nil {
		return handleRepositoryError(err)
	}

	action, details := "revoke_role", fmt.Sprintf("user=%d", targetID)
	if role != nil {
		action, details = "grant_role", fmt.Sprintf("user=%d role=%s", targetID, role.String())
	}
	s.Log(ctx, granterID, action, details)
	return nil
}
