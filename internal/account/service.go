package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"dochub-backend/internal/documents"
	"dochub-backend/internal/shared/auth"
	"dochub-backend/internal/shared/storage/db"
	"dochub-backend/internal/shared/storage/object"
	"dochub-backend/internal/shared/telemetry"
	"dochub-backend/internal/users"
)

var (
	ErrForbidden      = errors.New("superuser privileges required")
	ErrSelfDeactivate = errors.New("cannot deactivate own account")
)

// Service owns operations that span users and their documents.
type Service struct {
	UserRepo users.Repo
	DocRepo  documents.Repo
	Store    object.ObjectStore
}

// DeleteResult reports what an account deletion removed.
type DeleteResult struct {
	DeletedDocuments int `json:"deleted_documents"`
}

func NewService(userRepo users.Repo, docRepo documents.Repo, store object.ObjectStore) *Service {
	return &Service{UserRepo: userRepo, DocRepo: docRepo, Store: store}
}

// DeleteAccount removes the user together with every document they own, then
// their stored originals on a best-effort basis.
func (s *Service) DeleteAccount(ctx context.Context, userID string) (DeleteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return DeleteResult{}, users.ErrNotFound
	}

	var (
		result DeleteResult
		err    error
	)
	if userPG, ok := s.UserRepo.(*users.PGRepo); ok && userPG != nil && userPG.DB != nil {
		if _, ok := s.DocRepo.(*documents.PGRepo); ok {
			result, err = deleteWithTx(ctx, userPG, userID)
		} else {
			result, err = s.deleteSequential(ctx, userID)
		}
	} else {
		result, err = s.deleteSequential(ctx, userID)
	}
	if err != nil {
		return DeleteResult{}, err
	}

	if s.Store != nil {
		if err := s.Store.DeleteOwner(ctx, userID); err != nil {
			telemetry.Warn("account.object_cleanup_failed", map[string]any{
				"user_id": userID,
				"error":   err,
			})
		}
	}
	telemetry.Info("account.deleted", map[string]any{
		"user_id":           userID,
		"deleted_documents": result.DeletedDocuments,
	})
	return result, nil
}

func deleteWithTx(ctx context.Context, repo *users.PGRepo, userID string) (DeleteResult, error) {
	var result DeleteResult
	err := db.WithTx(ctx, repo.DB, nil, func(ctx context.Context, tx db.DBTX) error {
		n, err := documents.DeleteByOwnerTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		result.DeletedDocuments = n
		return users.DeleteTx(ctx, tx, userID)
	})
	return result, err
}

func (s *Service) deleteSequential(ctx context.Context, userID string) (DeleteResult, error) {
	if _, err := s.UserRepo.GetByID(ctx, userID); err != nil {
		return DeleteResult{}, err
	}
	n, err := s.DocRepo.DeleteByOwner(ctx, userID)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.UserRepo.Delete(ctx, userID); err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{DeletedDocuments: n}, nil
}

// SetActive toggles another user's active flag. Only superusers may call it.
func (s *Service) SetActive(ctx context.Context, actor auth.Principal, userID string, active bool) (users.User, error) {
	if !actor.IsSuperuser {
		return users.User{}, ErrForbidden
	}
	if _, err := uuid.Parse(userID); err != nil {
		return users.User{}, users.ErrNotFound
	}
	if actor.ID == userID && !active {
		return users.User{}, ErrSelfDeactivate
	}
	user, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return users.User{}, err
	}
	if user.IsActive == active {
		return user, nil
	}
	user.IsActive = active
	updated, err := s.UserRepo.Update(ctx, user)
	if err != nil {
		return users.User{}, err
	}
	telemetry.Info("account.active_changed", map[string]any{
		"actor_id":  actor.ID,
		"user_id":   userID,
		"is_active": active,
	})
	return updated, nil
}
