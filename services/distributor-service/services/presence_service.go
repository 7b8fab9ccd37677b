package services

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/repository"
	"go.uber.org/zap"
)

// DefaultOnlineThreshold is how recent the last activity must be for a user
// to count as online.
const DefaultOnlineThreshold = 5 * time.Minute

// PresenceService tracks login, logout and activity per user.
type PresenceService struct {
	repo      repository.SessionRepository
	threshold time.Duration
	now       func() time.Time
}

// NewPresenceService creates a new PresenceService. A nil clock uses
// time.Now.
func NewPresenceService(repo repository.SessionRepository, threshold time.Duration, clock func() time.Time) *PresenceService {
	if threshold <= 0 {
		threshold = DefaultOnlineThreshold
	}
	if clock == nil {
		clock = time.Now
	}
	return &PresenceService{repo: repo, threshold: threshold, now: clock}
}

// Touch records an action for username
func (s *PresenceService) Touch(ctx context.Context, username string, action models.PresenceAction) error {
	username = NormalizeUsername(username)
	if username == "" {
		return apperrors.Validation("username is required", nil)
	}
	if !action.Valid() {
		return apperrors.Validation("Unknown presence action", nil)
	}
	if err := s.repo.Touch(ctx, username, action, s.now().UTC()); err != nil {
		return dependencyError(err)
	}
	return nil
}

// TouchQuietly records an action and only logs a failure. Used where
// presence is a side effect of another operation.
func (s *PresenceService) TouchQuietly(ctx context.Context, username string, action models.PresenceAction) {
	if err := s.Touch(ctx, username, action); err != nil {
		logger.Warn(ctx, "Presence update failed", zap.String("username", username), zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *PresenceService) online(lastActivity time.Time) bool {
	return s.now().Sub(lastActivity) < s.threshold
}

// IsOnline reports whether username was active within the threshold
func (s *PresenceService) IsOnline(ctx context.Context, username string) (bool, error) {
	session, err := s.repo.Get(ctx, NormalizeUsername(username))
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dependencyError(err)
	}
	return s.online(session.LastActivity), nil
}

// Statuses returns the derived presence of every known user
func (s *PresenceService) Statuses(ctx context.Context) (map[string]models.PresenceStatus, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, dependencyError(err)
	}

	out := make(map[string]models.PresenceStatus, len(sessions))
	for _, session := range sessions {
		out[session.Username] = models.PresenceStatus{
			Online:       s.online(session.LastActivity),
			LastActivity: session.LastActivity,
			LoginTime:    session.LoginTime,
			LogoutTime:   session.LogoutTime,
			SessionCount: session.SessionCount,
		}
	}
	return out, nil
}
