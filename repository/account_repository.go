// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sexto-andar/auth-service/models"
	"gorm.io/gorm"
)

// AccountRepositoryImpl implements AccountRepository interface
type AccountRepositoryImpl struct {
	*BaseRepository[models.Account, models.AccountFilter]
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Account, models.AccountFilter](db),
	}
}

// nonAdminRoles restricts listing and counting to regular platform accounts.
var nonAdminRoles = []string{models.RoleUser, models.RolePropertyOwner}

// ByID retrieves an account by its ID
func (r *AccountRepositoryImpl) ByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	db := r.getDB(ctx)

	var account models.Account
	err := db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by ID %s: %w", id, err)
	}

	return &account, nil
}

// ByUsername retrieves an account by username. The column holds lowercase
// values, so the lookup normalizes before comparing.
func (r *AccountRepositoryImpl) ByUsername(ctx context.Context, username string) (*models.Account, error) {
	db := r.getDB(ctx)

	var account models.Account
	err := db.Where("username = ?", strings.ToLower(username)).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by username: %w", err)
	}

	return &account, nil
}

// ByEmail retrieves an account by email address
func (r *AccountRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	db := r.getDB(ctx)

	var account models.Account
	err := db.Where("email = ?", strings.ToLower(email)).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}

	return &account, nil
}

// ExistsByUsername checks username uniqueness, optionally excluding one
// account (used when an account keeps its own username on update).
func (r *AccountRepositoryImpl) ExistsByUsername(ctx context.Context, username string, excludeID *uuid.UUID) (bool, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.Account{}).Where("username = ?", strings.ToLower(username))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return count > 0, nil
}

// ExistsByEmail checks email uniqueness, optionally excluding one account.
func (r *AccountRepositoryImpl) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.Account{}).Where("email = ?", strings.ToLower(email))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return count > 0, nil
}

// CountAdmins returns the number of admin accounts
func (r *AccountRepositoryImpl) CountAdmins(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Account{}).Where("role = ?", models.RoleAdmin).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count admin accounts: %w", err)
	}

	return count, nil
}

// ListNonAdmins retrieves non-admin accounts with pagination, oldest first
func (r *AccountRepositoryImpl) ListNonAdmins(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	db := r.getDB(ctx)

	var accounts []*models.Account
	err := db.Where("role IN ?", nonAdminRoles).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list non-admin accounts: %w", err)
	}

	return accounts, nil
}

// CountNonAdmins returns the number of non-admin accounts
func (r *AccountRepositoryImpl) CountNonAdmins(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Account{}).Where("role IN ?", nonAdminRoles).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count non-admin accounts: %w", err)
	}

	return count, nil
}

// Update persists all fields of an existing account
func (r *AccountRepositoryImpl) Update(ctx context.Context, account *models.Account) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Save(account).Error
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	return nil
}

// Delete removes an account by ID
func (r *AccountRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Where("id = ?", id).Delete(&models.Account{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	return nil
}
