package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tnqbao/gau-asset-service/entity"
	"github.com/tnqbao/gau-asset-service/policy"
	"github.com/tnqbao/gau-asset-service/repository"
)

type PrincipalStore interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context) ([]entity.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role policy.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PurgePublisher queues a principal purge for the worker.
type PurgePublisher interface {
	PublishUserPurge(ctx context.Context, userID, requestedBy string) error
}

type UserService struct {
	users      PrincipalStore
	assets     *AssetService
	activities repository.ActivityRepository
	activity   *ActivityRecorder
	purgeJobs  PurgePublisher
	background *BackgroundRunner
	logger     Logger
}

type UserServiceDeps struct {
	Users      PrincipalStore
	Assets     *AssetService
	Activities repository.ActivityRepository
	Activity   *ActivityRecorder
	PurgeJobs  PurgePublisher
	Background *BackgroundRunner
	Logger     Logger
}

func NewUserService(deps UserServiceDeps) *UserService {
	return &UserService{
		users:      deps.Users,
		assets:     deps.Assets,
		activities: deps.Activities,
		activity:   deps.Activity,
		purgeJobs:  deps.PurgeJobs,
		background: deps.Background,
		logger:     deps.Logger,
	}
}

// Resolve maps a token identity onto the stored principal, creating it on
// first sight. Once stored, the principal's role wins over the token's.
func (s *UserService) Resolve(ctx context.Context, token policy.Identity) (policy.Identity, error) {
	user, err := s.users.FindByID(ctx, token.UserID)
	if err == nil {
		identity := user.Identity()
		if identity.DisplayName == "" {
			identity.DisplayName = token.DisplayName
		}
		return identity, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return policy.Identity{}, storageFailure("load principal", err)
	}

	role := token.Role
	if !role.Valid() {
		role = policy.RoleUser
	}
	user = &entity.User{ID: token.UserID, DisplayName: token.DisplayName, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent request may have created the row first.
		if existing, findErr := s.users.FindByID(ctx, token.UserID); findErr == nil {
			return existing.Identity(), nil
		}
		return policy.Identity{}, storageFailure("create principal", err)
	}
	s.logger.InfoWithContextf(ctx, "[User] Registered principal %s with role %s", user.ID, user.Role)
	return user.Identity(), nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageFailure("load principal", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, actor policy.Identity) ([]entity.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storageFailure("list principals", err)
	}
	return users, nil
}

func (s *UserService) ChangeRole(ctx context.Context, actor policy.Identity, userID uuid.UUID, rawRole string) (*entity.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	role, err := policy.ParseRole(rawRole)
	if err != nil {
		return nil, invalidInput("%v", err)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := user.Role
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageFailure("update role", err)
	}
	user.Role = role

	s.background.Go(ctx, "activity.role_change", func(ctx context.Context) error {
		s.activity.Record(ctx, entity.ActivityRoleChange, actor.UserID.String(), actor.DisplayName, ActivityDetails{
			Metadata: map[string]interface{}{
				"user_id": userID.String(),
				"from":    string(previous),
				"to":      string(role),
			},
		})
		return nil
	})
	s.logger.InfoWithContextf(ctx, "[User] %s changed role of %s from %s to %s", actor.UserID, userID, previous, role)
	return user, nil
}

// RequestDeletion removes a principal and everything it owns. With a job
// queue configured the purge runs in the worker and queued is true.
func (s *UserService) RequestDeletion(ctx context.Context, actor policy.Identity, userID uuid.UUID) (queued bool, err error) {
	if !actor.IsAdmin() {
		return false, ErrForbidden
	}
	if userID == actor.UserID {
		return false, invalidInput("cannot delete the calling principal")
	}
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return false, storageFailure("load principal", err)
	}
	if !exists {
		return false, ErrNotFound
	}

	s.background.Go(ctx, "activity.user_delete", func(ctx context.Context) error {
		s.activity.Record(ctx, entity.ActivityUserDelete, actor.UserID.String(), actor.DisplayName, ActivityDetails{
			Metadata: map[string]interface{}{"user_id": userID.String()},
		})
		return nil
	})

	if s.purgeJobs != nil {
		err := s.purgeJobs.PublishUserPurge(ctx, userID.String(), actor.UserID.String())
		if err == nil {
			s.logger.InfoWithContextf(ctx, "[User] Queued purge of %s", userID)
			return true, nil
		}
		s.logger.WarningWithContextf(ctx, "[User] Failed to queue purge of %s, purging inline: %v", userID, err)
	}
	return false, s.Purge(ctx, userID)
}

// Purge is the cascade path. Asset failures are logged and skipped, and the
// principal row stays until every asset is gone so a retry can finish.
// Purging an already removed principal succeeds.
func (s *UserService) Purge(ctx context.Context, userID uuid.UUID) error {
	report, err := s.assets.PurgeOwnerAssets(ctx, userID)
	if err != nil {
		s.logger.ErrorWithContextf(ctx, err, "[User] Failed to list assets of %s for purge: %v", userID, err)
		return err
	}
	if report.Failed > 0 {
		s.logger.WarningWithContextf(ctx, "[User] Keeping %s: %d assets deleted, %d could not be removed", userID, report.Deleted, report.Failed)
		return storageFailure("purge assets", fmt.Errorf("%d of %d assets could not be removed", report.Failed, report.Deleted+report.Failed))
	}

	removed, err := s.activities.DeleteByActor(ctx, userID.String())
	if err != nil {
		s.logger.WarningWithContextf(ctx, "[User] Failed to purge activity of %s: %v", userID, err)
	}

	if err := s.users.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return storageFailure("delete principal", err)
	}
	s.logger.InfoWithContextf(ctx, "[User] Purged %s: %d assets deleted, %d activity entries removed",
		userID, report.Deleted, removed)
	return nil
}
