// Package businessflow contains the core business logic and use cases for authentication workflows
package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/sexto-andar/auth-service/app/dto"
	"github.com/sexto-andar/auth-service/app/services"
	"github.com/sexto-andar/auth-service/models"
	"github.com/sexto-andar/auth-service/repository"
	"github.com/sexto-andar/auth-service/utils"
	"gorm.io/gorm"
)

// LoginFlow handles credential login and logout
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthSessionData, error)
	Logout(ctx context.Context, token string, claims *services.AccountClaims, metadata *ClientMetadata) error
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	accountRepo  repository.AccountRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	passwordSvc  services.PasswordService
	db           *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	passwordSvc services.PasswordService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		accountRepo:  accountRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		passwordSvc:  passwordSvc,
		db:           db,
	}
}

// Login verifies credentials and issues an access token. An unknown username
// and a wrong password produce the same error; callers cannot tell which
// credential was wrong.
func (s *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthSessionData, error) {
	account, err := s.accountRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	if account == nil || !s.passwordSvc.Verify(req.Password, account.PasswordHash) {
		s.logLoginAttempt(ctx, account, false, metadata)
		return nil, NewBusinessError(dto.ErrorInvalidCredentials, "Incorrect username or password", ErrInvalidCredentials)
	}

	token, err := s.tokenService.GenerateToken(account)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Login failed", err)
	}

	s.logLoginAttempt(ctx, account, true, metadata)

	return &dto.AuthSessionData{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokenService.AccessTokenTTL().Seconds()),
		User:        ToAccountInfo(account),
	}, nil
}

// Logout revokes the presented token when a revocation store is configured
// and records the event. Logout never fails the caller over a revocation
// problem.
func (s *LoginFlowImpl) Logout(ctx context.Context, token string, claims *services.AccountClaims, metadata *ClientMetadata) error {
	if token != "" {
		if err := s.tokenService.RevokeToken(ctx, token); err != nil {
			return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
		}
	}

	if claims != nil {
		accountID := claims.AccountID
		description := fmt.Sprintf("Account %s logged out", claims.Username)
		_ = s.auditRepo.Save(ctx, &models.AuditLog{
			AccountID:   &accountID,
			Action:      models.AuditActionLogout,
			Description: &description,
			Success:     utils.ToPtr(true),
			IPAddress:   &metadata.IPAddress,
			UserAgent:   &metadata.UserAgent,
			RequestID:   &metadata.RequestID,
		})
	}

	return nil
}

func (s *LoginFlowImpl) logLoginAttempt(ctx context.Context, account *models.Account, success bool, metadata *ClientMetadata) {
	action := models.AuditActionLoginFailed
	description := "Login attempt with invalid credentials"

	logEntry := &models.AuditLog{
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(success),
		IPAddress:   &metadata.IPAddress,
		UserAgent:   &metadata.UserAgent,
		RequestID:   &metadata.RequestID,
	}

	if success {
		logEntry.Action = models.AuditActionLoginSuccessful
		successDescription := fmt.Sprintf("Account %s logged in", account.Username)
		logEntry.Description = &successDescription
	}

	if account != nil {
		id := account.ID
		logEntry.AccountID = &id
	}

	if err := s.auditRepo.Save(ctx, logEntry); err != nil {
		// Audit failures must not block authentication.
		log.Printf("failed to write login audit log: %v", err)
	}
}
