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

// RegistrationFlow handles account creation for the public roles
type RegistrationFlow interface {
	RegisterUser(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.AccountInfo, error)
	RegisterPropertyOwner(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.AccountInfo, error)
}

// RegistrationFlowImpl implements the registration business flow
type RegistrationFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	passwordSvc services.PasswordService
	db          *gorm.DB
}

// NewRegistrationFlow creates a new registration flow instance
func NewRegistrationFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	passwordSvc services.PasswordService,
	db *gorm.DB,
) RegistrationFlow {
	return &RegistrationFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		passwordSvc: passwordSvc,
		db:          db,
	}
}

// RegisterUser creates a USER account
func (s *RegistrationFlowImpl) RegisterUser(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.AccountInfo, error) {
	return s.register(ctx, req, models.RoleUser, metadata)
}

// RegisterPropertyOwner creates a PROPERTY_OWNER account
func (s *RegistrationFlowImpl) RegisterPropertyOwner(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.AccountInfo, error) {
	return s.register(ctx, req, models.RolePropertyOwner, metadata)
}

func (s *RegistrationFlowImpl) register(ctx context.Context, req *dto.RegisterRequest, role string, metadata *ClientMetadata) (*dto.AccountInfo, error) {
	passwordHash, err := s.passwordSvc.Hash(req.Password)
	if err != nil {
		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	}

	account, err := models.NewAccount(req.Username, req.FullName, req.Email, req.PhoneNumber, passwordHash, role)
	if err != nil {
		return nil, NewBusinessError(dto.ErrorValidationFailed, err.Error(), err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.checkUniqueness(txCtx, account.Username, account.Email); err != nil {
			return err
		}

		if err := s.accountRepo.Save(txCtx, account); err != nil {
			return err
		}

		return s.createAuditLog(txCtx, account, metadata)
	})
	if err != nil {
		if IsUsernameAlreadyTaken(err) {
			return nil, NewBusinessError(dto.ErrorUsernameTaken, "Username already exists", err)
		}
		if IsEmailAlreadyTaken(err) {
			return nil, NewBusinessError(dto.ErrorEmailTaken, "Email already exists", err)
		}
		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	}

	log.Printf("registered %s account %s (%s)", role, account.Username, account.ID)

	info := ToAccountInfo(account)
	return &info, nil
}

// checkUniqueness guards the username and email unique constraints. The
// database indexes remain the final word for concurrent registrations.
func (s *RegistrationFlowImpl) checkUniqueness(ctx context.Context, username, email string) error {
	usernameTaken, err := s.accountRepo.ExistsByUsername(ctx, username, nil)
	if err != nil {
		return fmt.Errorf("failed to check username uniqueness: %w", err)
	}
	if usernameTaken {
		return ErrUsernameAlreadyTaken
	}

	emailTaken, err := s.accountRepo.ExistsByEmail(ctx, email, nil)
	if err != nil {
		return fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if emailTaken {
		return ErrEmailAlreadyTaken
	}

	return nil
}

func (s *RegistrationFlowImpl) createAuditLog(ctx context.Context, account *models.Account, metadata *ClientMetadata) error {
	accountID := account.ID
	description := fmt.Sprintf("Registered %s account %s", account.Role, account.Username)

	return s.auditRepo.Save(ctx, &models.AuditLog{
		AccountID:   &accountID,
		Action:      models.AuditActionRegistrationCompleted,
		Description: &description,
		Success:     utils.ToPtr(true),
		IPAddress:   &metadata.IPAddress,
		UserAgent:   &metadata.UserAgent,
		RequestID:   &metadata.RequestID,
	})
}
