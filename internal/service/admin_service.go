package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tmc-tutoring/match-api/internal/dto"
	"github.com/tmc-tutoring/match-api/internal/models"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
)

// ResetConfirmation is the only answer that makes ResetDatabase delete data.
const ResetConfirmation = "Yes"

const minPasswordLength = 6

const defaultPasswordNotice = "You are still using the default password. Please change it in the settings."

type adminSettingsRepository interface {
	Latest(ctx context.Context) (*models.AdminSettings, error)
	Create(ctx context.Context, settings *models.AdminSettings) error
	Update(ctx context.Context, settings *models.AdminSettings) error
}

type databaseResetter interface {
	ResetAll(ctx context.Context) (models.ResetResult, error)
}

type generationGuard interface {
	RunExclusive(ctx context.Context, fn func(context.Context) error) error
	ForgetLastRun(ctx context.Context)
}

// AdminConfig defines configuration for administrator sessions.
type AdminConfig struct {
	TokenSecret     string
	TokenExpiry     time.Duration
	Issuer          string
	DefaultPassword string
	DefaultEmail    string
}

// AdminService implements the administrator use cases: password login,
// sessions, settings, the intake form toggle and the database reset.
type AdminService struct {
	repo      adminSettingsRepository
	resetter  databaseResetter
	guard     generationGuard
	validator *validator.Validate
	logger    *zap.Logger
	config    AdminConfig
}

// NewAdminService constructs an AdminService instance.
func NewAdminService(repo adminSettingsRepository, resetter databaseResetter, guard generationGuard, validate *validator.Validate, logger *zap.Logger, config AdminConfig) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TokenExpiry <= 0 {
		config.TokenExpiry = 12 * time.Hour
	}
	if config.DefaultPassword == "" {
		config.DefaultPassword = "password"
	}
	return &AdminService{repo: repo, resetter: resetter, guard: guard, validator: validate, logger: logger, config: config}
}

// EnsureSettings returns the settings row, creating it with the default
// password and a closed form on first use.
func (s *AdminService) EnsureSettings(ctx context.Context) (*models.AdminSettings, error) {
	settings, err := s.repo.Latest(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admin settings")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.config.DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	settings = &models.AdminSettings{
		FormOpen:     false,
		PasswordHash: string(hash),
		Email:        s.config.DefaultEmail,
		SessionID:    uuid.NewString(),
	}
	if err := s.repo.Create(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin settings")
	}
	s.logger.Info("admin settings initialised with default password")
	return settings, nil
}

// Login checks the administrator password and issues a session token.
func (s *AdminService) Login(ctx context.Context, req dto.AdminLoginRequest) (*dto.AdminLoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	settings, err := s.EnsureSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(settings.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("admin login failed")
		return nil, appErrors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.issueToken(settings.SessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session token")
	}
	s.logger.Info("admin logged in")
	return &dto.AdminLoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// Logout ends every administrator session by rotating the session id.
func (s *AdminService) Logout(ctx context.Context) error {
	settings, err := s.EnsureSettings(ctx)
	if err != nil {
		return err
	}
	settings.SessionID = uuid.NewString()
	if err := s.repo.Update(ctx, settings); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end session")
	}
	s.logger.Info("admin logged out")
	return nil
}

// ValidateToken parses a session token and checks it belongs to the current session.
func (s *AdminService) ValidateToken(ctx context.Context, tokenString string) (*models.AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.AdminClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	settings, err := s.EnsureSettings(ctx)
	if err != nil {
		return nil, err
	}
	if claims.SessionID != settings.SessionID {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has ended")
	}
	return claims, nil
}

// Welcome returns the landing view, warning while the default password is in use.
func (s *AdminService) Welcome(ctx context.Context) (*dto.AdminWelcomeResponse, error) {
	settings, err := s.EnsureSettings(ctx)
	if err != nil {
		return nil, err
	}
	resp := &dto.AdminWelcomeResponse{FormOpen: settings.FormOpen, Email: settings.Email}
	if bcrypt.CompareHashAndPassword([]byte(settings.PasswordHash), []byte(s.config.DefaultPassword)) == nil {
		resp.DefaultPasswordWarning = true
		resp.Notice = defaultPasswordNotice
	}
	return resp, nil
}

// GetSettings returns the editable settings.
func (s *AdminService) GetSettings(ctx context.Context) (*dto.AdminSettingsResponse, error) {
	settings, err := s.EnsureSettings(ctx)
	if err != nil {
		return nil, err
	}
	return settingsResponse(settings), nil
}

// UpdateSettings changes the email and/or password after checking the current
// password. A password change rotates the session; the returned token is
// valid for the new one.
func (s *AdminService) UpdateSettings(ctx context.Context, req dto.UpdateAdminSettingsRequest) (*dto.UpdateAdminSettingsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	settings, err := s.EnsureSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(settings.PasswordHash), []byte(req.OldPassword)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "Incorrect password")
	}

	if req.Email != "" {
		settings.Email = req.Email
	}
	if req.NewPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		settings.PasswordHash = string(hash)
		settings.SessionID = uuid.NewString()
	}
	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}

	token, _, err := s.issueToken(settings.SessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session token")
	}
	s.logger.Info("admin settings updated", zap.Bool("password_changed", req.NewPassword != ""))
	return &dto.UpdateAdminSettingsResponse{Settings: *settingsResponse(settings), Token: token, Notice: "Updated settings"}, nil
}

// ResetPassword replaces the administrator password without the current one
// and ends every session. Used by operators with direct access to the host.
func (s *AdminService) ResetPassword(ctx context.Context, password string) error {
	if len(password) < minPasswordLength {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	settings, err := s.EnsureSettings(ctx)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	settings.PasswordHash = string(hash)
	settings.SessionID = uuid.NewString()
	if err := s.repo.Update(ctx, settings); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	s.logger.Warn("admin password reset")
	return nil
}

// SetFormOpen opens or closes participant intake.
func (s *AdminService) SetFormOpen(ctx context.Context, open bool) (*dto.FormStateResponse, error) {
	settings, err := s.EnsureSettings(ctx)
	if err != nil {
		return nil, err
	}
	settings.FormOpen = open
	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update form state")
	}
	s.logger.Info("intake form toggled", zap.Bool("open", open))
	return &dto.FormStateResponse{FormOpen: open}, nil
}

// FormOpen reports whether participant intake is open.
func (s *AdminService) FormOpen(ctx context.Context) (bool, error) {
	settings, err := s.EnsureSettings(ctx)
	if err != nil {
		return false, err
	}
	return settings.FormOpen, nil
}

// ResetDatabase deletes all matches, students and tutors when confirmation is
// exactly "Yes"; any other answer leaves the data untouched. The reset never
// overlaps a generation run.
func (s *AdminService) ResetDatabase(ctx context.Context, req dto.ResetRequest) (*dto.ResetResponse, error) {
	if req.ResetConfirmation != ResetConfirmation {
		s.logger.Info("database reset declined")
		return &dto.ResetResponse{Reset: false}, nil
	}

	var result models.ResetResult
	err := s.guard.RunExclusive(ctx, func(ctx context.Context) error {
		var resetErr error
		result, resetErr = s.resetter.ResetAll(ctx)
		return resetErr
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset database")
	}
	s.guard.ForgetLastRun(ctx)

	s.logger.Warn("database reset",
		zap.Int64("matches", result.Matches),
		zap.Int64("students", result.Students),
		zap.Int64("tutors", result.Tutors))
	return &dto.ResetResponse{
		Reset:           true,
		MatchesDeleted:  result.Matches,
		StudentsDeleted: result.Students,
		TutorsDeleted:   result.Tutors,
	}, nil
}

func (s *AdminService) issueToken(sessionID string) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.AdminClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func settingsResponse(settings *models.AdminSettings) *dto.AdminSettingsResponse {
	return &dto.AdminSettingsResponse{
		Email:       settings.Email,
		FormOpen:    settings.FormOpen,
		LastUpdated: settings.LastUpdated,
	}
}
