// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sexto-andar/auth-service/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// AccountRepository defines operations for accounts. Lookups by username and
// email expect normalized (lowercase) values; reads return (nil, nil) when no
// row matches.
type AccountRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ByUsername(ctx context.Context, username string) (*models.Account, error)
	ByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByUsername(ctx context.Context, username string, excludeID *uuid.UUID) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
	CountAdmins(ctx context.Context) (int64, error)
	ListNonAdmins(ctx context.Context, limit, offset int) ([]*models.Account, error)
	CountNonAdmins(ctx context.Context) (int64, error)
	Save(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Save(ctx context.Context, log *models.AuditLog) error
	SaveBatch(ctx context.Context, logs []*models.AuditLog) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
