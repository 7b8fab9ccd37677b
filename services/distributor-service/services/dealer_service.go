package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	awspkg "github.com/yashrajoria/distributor-backend/pkg/aws"
	"github.com/yashrajoria/distributor-backend/services/common/auth"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// allowedFrom lists, per target status, the statuses a dealer may move from.
var allowedFrom = map[models.DealerStatus][]models.DealerStatus{
	models.DealerActive:    {models.DealerPending},
	models.DealerSuspended: {models.DealerPending, models.DealerActive},
	models.DealerPending:   {models.DealerActive},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to models.DealerStatus) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// AdminCredentials is the bootstrap admin account from configuration.
type AdminCredentials struct {
	Username string
	Password string
}

// DealerService manages dealer registration, status and login.
type DealerService struct {
	repo     repository.DealerRepository
	tokens   *auth.TokenManager
	admin    AdminCredentials
	presence *PresenceService
	metrics  *awspkg.MetricsClient
	cost     int
}

// NewDealerService creates a new DealerService
func NewDealerService(repo repository.DealerRepository, tokens *auth.TokenManager, admin AdminCredentials, presence *PresenceService, metrics *awspkg.MetricsClient) *DealerService {
	admin.Username = NormalizeUsername(admin.Username)
	return &DealerService{
		repo:     repo,
		tokens:   tokens,
		admin:    admin,
		presence: presence,
		metrics:  metrics,
		cost:     bcrypt.DefaultCost,
	}
}

// Register creates a pending dealer. Usernames collide case-insensitively.
func (s *DealerService) Register(ctx context.Context, req models.RegisterDealerRequest) (*models.Dealer, error) {
	username := NormalizeUsername(req.Username)
	if username == "" {
		return nil, apperrors.Validation("username is required", nil)
	}
	if username == s.admin.Username {
		return nil, apperrors.Conflict("Username already exists", nil)
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, apperrors.Conflict("Username already exists", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, dependencyError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, apperrors.DependencyUnavailable("Failed to secure password", err)
	}

	now := time.Now().UTC()
	dealer := &models.Dealer{
		Username:     username,
		PasswordHash: string(hash),
		Company:      req.Company,
		Status:       models.DealerPending,
		ContactName:  req.ContactName,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, dealer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("Username already exists", err)
		}
		return nil, dependencyError(err)
	}

	logger.Info(ctx, "Dealer registered", zap.String("dealer", username), zap.String("company", dealer.Company))
	recordCount(s.metrics, awspkg.MetricDealersRegistered, nil)
	return dealer, nil
}

// Get returns one dealer
func (s *DealerService) Get(ctx context.Context, username string) (*models.Dealer, error) {
	dealer, err := s.repo.FindByUsername(ctx, NormalizeUsername(username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Dealer not found", err)
	}
	if err != nil {
		return nil, dependencyError(err)
	}
	return dealer, nil
}

// List returns dealers, optionally filtered by status
func (s *DealerService) List(ctx context.Context, status models.DealerStatus) ([]models.Dealer, error) {
	switch status {
	case "", models.DealerPending, models.DealerActive, models.DealerSuspended:
	default:
		return nil, apperrors.Validation("Unknown dealer status", nil)
	}
	dealers, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, dependencyError(err)
	}
	return dealers, nil
}

// TransitionStatus moves a dealer to target if the lifecycle allows it
func (s *DealerService) TransitionStatus(ctx context.Context, username string, target models.DealerStatus, actor string) (*models.Dealer, error) {
	from, ok := allowedFrom[target]
	if !ok {
		return nil, apperrors.Validation("Unknown dealer status", nil)
	}

	dealer, err := s.repo.UpdateStatus(ctx, NormalizeUsername(username), from, target, actor)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NotFound("Dealer not found", err)
	case errors.Is(err, repository.ErrInvalidTransition):
		return nil, apperrors.Conflict("Dealer cannot move to status "+string(target), err)
	case err != nil:
		return nil, dependencyError(err)
	}

	logger.Info(ctx, "Dealer status changed",
		zap.String("dealer", dealer.Username),
		zap.String("status", string(target)),
		zap.String("actor", actor),
	)
	recordCount(s.metrics, awspkg.MetricDealerTransitions, map[string]string{"Status": string(target)})
	return dealer, nil
}

// Session is the outcome of a successful login
type Session struct {
	Token   string
	Profile models.Profile
}

// Authenticate checks credentials, issues a session token and records the
// login. Pending and suspended dealers are refused with a status
// discriminator.
func (s *DealerService) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	username = NormalizeUsername(username)

	profile, err := s.verify(ctx, username, password)
	if err != nil {
		recordCount(s.metrics, awspkg.MetricLoginsFailed, nil)
		logger.Warn(ctx, "Login refused", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	token, err := s.tokens.Issue(profile.Username, profile.Role)
	if err != nil {
		return nil, apperrors.DependencyUnavailable("Failed to create session", err)
	}

	s.presence.TouchQuietly(ctx, profile.Username, models.ActionLogin)
	recordCount(s.metrics, awspkg.MetricLoginsSucceeded, map[string]string{"Role": profile.Role})
	return &Session{Token: token, Profile: *profile}, nil
}

func (s *DealerService) verify(ctx context.Context, username, password string) (*models.Profile, error) {
	invalid := apperrors.Unauthorized("Invalid username or password", nil)

	if s.admin.Username != "" && username == s.admin.Username {
		if subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) != 1 {
			return nil, invalid
		}
		return &models.Profile{Username: username, Role: models.RoleAdmin}, nil
	}

	dealer, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, dependencyError(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(dealer.PasswordHash), []byte(password)) != nil {
		return nil, invalid
	}

	switch dealer.Status {
	case models.DealerPending:
		return nil, apperrors.Forbidden("Account is pending approval", nil).WithStatus(string(models.DealerPending))
	case models.DealerSuspended:
		return nil, apperrors.Forbidden("Account is suspended", nil).WithStatus(string(models.DealerSuspended))
	}

	return &models.Profile{
		Username: dealer.Username,
		Role:     models.RoleDealer,
		Company:  dealer.Company,
		Status:   dealer.Status,
	}, nil
}

// Logout records the logout for username
func (s *DealerService) Logout(ctx context.Context, username string) error {
	return s.presence.Touch(ctx, username, models.ActionLogout)
}
