package businessflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/sexto-andar/auth-service/app/dto"
	"github.com/sexto-andar/auth-service/app/services"
	"github.com/sexto-andar/auth-service/models"
	"github.com/sexto-andar/auth-service/repository"
	"github.com/sexto-andar/auth-service/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// AdminAccountFlow handles account administration and cross-account reads
type AdminAccountFlow interface {
	ListUsers(ctx context.Context, page, size int) (*dto.AccountListData, error)
	UserInfo(ctx context.Context, requester *models.Account, targetID uuid.UUID) (*dto.AccountInfo, error)
	UpdateUser(ctx context.Context, actor *models.Account, targetID uuid.UUID, req *dto.AdminUpdateUserRequest, metadata *ClientMetadata) (*dto.AccountInfo, error)
	SetUserPassword(ctx context.Context, actor *models.Account, targetID uuid.UUID, newPassword string, metadata *ClientMetadata) error
	DeleteUser(ctx context.Context, actor *models.Account, targetID uuid.UUID, metadata *ClientMetadata) error
	CreateAdmin(ctx context.Context, actor *models.Account, req *dto.CreateAdminRequest, metadata *ClientMetadata) (*dto.AccountInfo, error)
	DeleteAdmin(ctx context.Context, actor *models.Account, targetID uuid.UUID, metadata *ClientMetadata) error
	ExportUsers(ctx context.Context) (string, []byte, error)
}

// AdminAccountFlowImpl implements the admin account management flow
type AdminAccountFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	passwordSvc services.PasswordService
	relationSvc services.PropertyRelationService
	webhookSvc  services.WebhookService
	db          *gorm.DB
}

// NewAdminAccountFlow creates a new admin account flow instance
func NewAdminAccountFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	passwordSvc services.PasswordService,
	relationSvc services.PropertyRelationService,
	webhookSvc services.WebhookService,
	db *gorm.DB,
) AdminAccountFlow {
	return &AdminAccountFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		passwordSvc: passwordSvc,
		relationSvc: relationSvc,
		webhookSvc:  webhookSvc,
		db:          db,
	}
}

// ListUsers returns a page of non-admin accounts with the total count
func (s *AdminAccountFlowImpl) ListUsers(ctx context.Context, page, size int) (*dto.AccountListData, error) {
	if page < 1 {
		return nil, NewBusinessError(dto.ErrorInvalidPagination, "Page must be at least 1", ErrInvalidPage)
	}
	if size < 1 || size > utils.MaxPageSize {
		return nil, NewBusinessError(dto.ErrorInvalidPagination, "Page size must be between 1 and 100", ErrInvalidPageSize)
	}

	accounts, err := s.accountRepo.ListNonAdmins(ctx, size, (page-1)*size)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LIST_FAILED", "Failed to list accounts", err)
	}

	total, err := s.accountRepo.CountNonAdmins(ctx)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LIST_FAILED", "Failed to count accounts", err)
	}

	views := make([]dto.AccountInfo, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, ToAccountInfo(account))
	}

	return &dto.AccountListData{
		Accounts: views,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

// UserInfo returns an account view subject to the requester's role. Admins
// may read any account. Property owners may read themselves, or a USER
// account the properties service confirms a relation with. Plain users are
// always refused, before the target is even looked up.
func (s *AdminAccountFlowImpl) UserInfo(ctx context.Context, requester *models.Account, targetID uuid.UUID) (*dto.AccountInfo, error) {
	if requester.IsUser() {
		return nil, NewBusinessError(dto.ErrorForbidden, "Not enough permissions", ErrAccessDenied)
	}

	target, err := s.loadAccount(ctx, targetID)
	if err != nil {
		return nil, err
	}

	switch {
	case requester.IsAdmin():
		// Unrestricted.
	case requester.IsPropertyOwner():
		if requester.ID != target.ID {
			if !target.IsUser() || !s.relationSvc.HasRelation(ctx, target.ID, requester.ID) {
				return nil, NewBusinessError(dto.ErrorForbidden, "Not enough permissions", ErrAccessDenied)
			}
		}
	default:
		return nil, NewBusinessError(dto.ErrorForbidden, "Not enough permissions", ErrAccessDenied)
	}

	info := ToAccountInfo(target)
	return &info, nil
}

// UpdateUser applies admin-side field changes to a non-admin account. No
// re-authentication is required; admin privilege stands in for it.
func (s *AdminAccountFlowImpl) UpdateUser(ctx context.Context, actor *models.Account, targetID uuid.UUID, req *dto.AdminUpdateUserRequest, metadata *ClientMetadata) (*dto.AccountInfo, error) {
	if req.FullName == nil && req.Email == nil && req.PhoneNumber == nil {
		return nil, NewBusinessError(dto.ErrorNoFieldsToUpdate, "At least one field must be provided", ErrNoFieldsToUpdate)
	}

	target, err := s.loadNonAdminTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		if err := models.ValidateFullName(*req.FullName); err != nil {
			return nil, NewBusinessError(dto.ErrorValidationFailed, err.Error(), err)
		}
		target.FullName = *req.FullName
	}

	if req.PhoneNumber != nil {
		if err := models.ValidatePhoneNumber(*req.PhoneNumber); err != nil {
			return nil, NewBusinessError(dto.ErrorValidationFailed, err.Error(), err)
		}
		target.PhoneNumber = req.PhoneNumber
	}

	if req.Email != nil {
		email, err := models.NormalizeEmail(*req.Email)
		if err != nil {
			return nil, NewBusinessError(dto.ErrorValidationFailed, err.Error(), err)
		}
		target.Email = email
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if req.Email != nil {
			id := target.ID
			taken, err := s.accountRepo.ExistsByEmail(txCtx, target.Email, &id)
			if err != nil {
				return fmt.Errorf("failed to check email uniqueness: %w", err)
			}
			if taken {
				return ErrEmailAlreadyTaken
			}
		}

		if err := s.accountRepo.Update(txCtx, target); err != nil {
			return err
		}

		return s.createAuditLog(txCtx, &actor.ID, models.AuditActionUserUpdatedByAdmin,
			fmt.Sprintf("Admin %s updated account %s", actor.Username, target.Username), metadata)
	})
	if err != nil {
		if IsEmailAlreadyTaken(err) {
			return nil, NewBusinessError(dto.ErrorEmailTaken, "Email already exists", err)
		}
		return nil, NewBusinessError("ACCOUNT_UPDATE_FAILED", "Account update failed", err)
	}

	info := ToAccountInfo(target)
	return &info, nil
}

// SetUserPassword overrides a non-admin account's password
func (s *AdminAccountFlowImpl) SetUserPassword(ctx context.Context, actor *models.Account, targetID uuid.UUID, newPassword string, metadata *ClientMetadata) error {
	target, err := s.loadNonAdminTarget(ctx, targetID)
	if err != nil {
		return err
	}

	hash, err := s.passwordSvc.Hash(newPassword)
	if err != nil {
		return NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", err)
	}
	target.PasswordHash = hash

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.accountRepo.Update(txCtx, target); err != nil {
			return err
		}
		return s.createAuditLog(txCtx, &actor.ID, models.AuditActionPasswordChanged,
			fmt.Sprintf("Admin %s changed password for account %s", actor.Username, target.Username), metadata)
	})
	if err != nil {
		return NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", err)
	}

	return nil
}

// DeleteUser removes a non-admin account and notifies sibling services. The
// webhook fires only after the deleting transaction commits and is best
// effort.
func (s *AdminAccountFlowImpl) DeleteUser(ctx context.Context, actor *models.Account, targetID uuid.UUID, metadata *ClientMetadata) error {
	target, err := s.loadNonAdminTarget(ctx, targetID)
	if err != nil {
		return err
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.accountRepo.Delete(txCtx, target.ID); err != nil {
			return err
		}
		return s.createAuditLog(txCtx, &actor.ID, models.AuditActionUserDeletedByAdmin,
			fmt.Sprintf("Admin %s deleted account %s", actor.Username, target.Username), metadata)
	})
	if err != nil {
		return NewBusinessError("ACCOUNT_DELETION_FAILED", "Account deletion failed", err)
	}

	s.webhookSvc.NotifyUserDeleted(target.ID)

	return nil
}

// CreateAdmin creates a new ADMIN account. Both the attempt and the outcome
// are recorded against the acting admin.
func (s *AdminAccountFlowImpl) CreateAdmin(ctx context.Context, actor *models.Account, req *dto.CreateAdminRequest, metadata *ClientMetadata) (*dto.AccountInfo, error) {
	log.Printf("admin %s (%s) requested creation of admin account %s", actor.Username, actor.ID, req.Username)

	passwordHash, err := s.passwordSvc.Hash(req.Password)
	if err != nil {
		return nil, NewBusinessError("ADMIN_CREATION_FAILED", "Admin creation failed", err)
	}

	account, err := models.NewAccount(req.Username, req.FullName, req.Email, req.PhoneNumber, passwordHash, models.RoleAdmin)
	if err != nil {
		return nil, NewBusinessError(dto.ErrorValidationFailed, err.Error(), err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		usernameTaken, err := s.accountRepo.ExistsByUsername(txCtx, account.Username, nil)
		if err != nil {
			return fmt.Errorf("failed to check username uniqueness: %w", err)
		}
		if usernameTaken {
			return ErrUsernameAlreadyTaken
		}

		emailTaken, err := s.accountRepo.ExistsByEmail(txCtx, account.Email, nil)
		if err != nil {
			return fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if emailTaken {
			return ErrEmailAlreadyTaken
		}

		if err := s.accountRepo.Save(txCtx, account); err != nil {
			return err
		}

		return s.createAuditLog(txCtx, &actor.ID, models.AuditActionAdminCreated,
			fmt.Sprintf("Admin %s created admin account %s", actor.Username, account.Username), metadata)
	})
	if err != nil {
		if IsUsernameAlreadyTaken(err) {
			return nil, NewBusinessError(dto.ErrorUsernameTaken, "Username already exists", err)
		}
		if IsEmailAlreadyTaken(err) {
			return nil, NewBusinessError(dto.ErrorEmailTaken, "Email already exists", err)
		}
		return nil, NewBusinessError("ADMIN_CREATION_FAILED", "Admin creation failed", err)
	}

	log.Printf("admin account %s (%s) created by %s", account.Username, account.ID, actor.Username)

	info := ToAccountInfo(account)
	return &info, nil
}

// DeleteAdmin removes an admin account. The checks run in a fixed order:
// self-deletion, existence, role, and finally the last-admin count. The count
// and the delete share one transaction, but it is not serializable; two
// concurrent deletions of the two remaining admins can both pass the count
// check.
func (s *AdminAccountFlowImpl) DeleteAdmin(ctx context.Context, actor *models.Account, targetID uuid.UUID, metadata *ClientMetadata) error {
	if actor.ID == targetID {
		return NewBusinessError(dto.ErrorCannotDeleteSelf, "Cannot delete your own admin account", ErrCannotDeleteSelf)
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		target, err := s.accountRepo.ByID(txCtx, targetID)
		if err != nil {
			return fmt.Errorf("failed to load target account: %w", err)
		}
		if target == nil {
			return ErrAccountNotFound
		}
		if !target.IsAdmin() {
			return ErrTargetNotAdmin
		}

		count, err := s.accountRepo.CountAdmins(txCtx)
		if err != nil {
			return fmt.Errorf("failed to count admins: %w", err)
		}
		if count <= 1 {
			return ErrLastAdmin
		}

		if err := s.accountRepo.Delete(txCtx, target.ID); err != nil {
			return err
		}

		return s.createAuditLog(txCtx, &actor.ID, models.AuditActionAdminDeleted,
			fmt.Sprintf("Admin %s deleted admin account %s", actor.Username, target.Username), metadata)
	})
	if err != nil {
		switch {
		case IsAccountNotFound(err):
			return NewBusinessError(dto.ErrorAccountNotFound, "Admin account not found", err)
		case IsTargetNotAdmin(err):
			return NewBusinessError(dto.ErrorTargetNotAdmin, "Target account is not an admin", err)
		case IsLastAdmin(err):
			return NewBusinessError(dto.ErrorLastAdmin, "Cannot delete the last admin account in the system", err)
		}
		return NewBusinessError("ADMIN_DELETION_FAILED", "Admin deletion failed", err)
	}

	return nil
}

// ExportUsers builds an xlsx workbook of all non-admin accounts
func (s *AdminAccountFlowImpl) ExportUsers(ctx context.Context) (string, []byte, error) {
	var accounts []*models.Account
	offset := 0
	const batch = 500
	for {
		page, err := s.accountRepo.ListNonAdmins(ctx, batch, offset)
		if err != nil {
			return "", nil, NewBusinessError("ACCOUNT_EXPORT_FAILED", "Failed to fetch accounts for export", err)
		}
		accounts = append(accounts, page...)
		if len(page) < batch {
			break
		}
		offset += batch
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "accounts"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"id", "username", "full_name", "email", "phone_number", "role", "created_at", "updated_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, account := range accounts {
		phone := ""
		if account.PhoneNumber != nil {
			phone = *account.PhoneNumber
		}
		record := []string{
			account.ID.String(),
			account.Username,
			account.FullName,
			account.Email,
			phone,
			account.Role,
			account.CreatedAt.UTC().Format(time.RFC3339),
			account.UpdatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("ACCOUNT_EXPORT_FAILED", "Failed to write export workbook", err)
	}

	filename := fmt.Sprintf("accounts_%s.xlsx", utils.UTCNow().Format("20060102"))
	return filename, buf.Bytes(), nil
}

// loadNonAdminTarget resolves a target for admin mutations: missing accounts
// are not found, admin accounts are off limits.
func (s *AdminAccountFlowImpl) loadNonAdminTarget(ctx context.Context, targetID uuid.UUID) (*models.Account, error) {
	target, err := s.loadAccount(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.IsAdmin() {
		return nil, NewBusinessError(dto.ErrorTargetIsAdmin, "Cannot manage admin accounts through this operation", ErrTargetIsAdmin)
	}
	return target, nil
}

func (s *AdminAccountFlowImpl) loadAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to load account", err)
	}
	if account == nil {
		return nil, NewBusinessError(dto.ErrorAccountNotFound, "Account not found", ErrAccountNotFound)
	}
	return account, nil
}

func (s *AdminAccountFlowImpl) createAuditLog(ctx context.Context, actorID *uuid.UUID, action, description string, metadata *ClientMetadata) error {
	return s.auditRepo.Save(ctx, &models.AuditLog{
		AccountID:   actorID,
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(true),
		IPAddress:   &metadata.IPAddress,
		UserAgent:   &metadata.UserAgent,
		RequestID:   &metadata.RequestID,
	})
}
