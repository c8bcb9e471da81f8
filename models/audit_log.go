// Package models contains domain entities and business models for the authentication system
package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AccountID    *uuid.UUID `gorm:"type:uuid;index:idx_audit_account_id" json:"account_id,omitempty"`
	Action       string     `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string    `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string    `gorm:"size:64;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string    `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string    `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Success      *bool      `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionRegistrationCompleted = "registration_completed"
	AuditActionLoginSuccessful       = "login_successful"
	AuditActionLoginFailed           = "login_failed"
	AuditActionLogout                = "logout"
	AuditActionProfileUpdated        = "profile_updated"
	AuditActionPasswordChanged       = "password_changed"
	AuditActionAccountDeleted        = "account_deleted"
	AuditActionUserDeletedByAdmin    = "user_deleted_by_admin"
	AuditActionUserUpdatedByAdmin    = "user_updated_by_admin"
	AuditActionAdminCreated          = "admin_created"
	AuditActionAdminDeleted          = "admin_deleted"
	AuditActionPictureUploaded       = "profile_picture_uploaded"
	AuditActionPictureDeleted        = "profile_picture_deleted"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	AccountID     *uuid.UUID
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

func (a *AuditLog) IsSecurityEvent() bool {
	securityActions := map[string]bool{
		AuditActionLoginSuccessful: true,
		AuditActionLoginFailed:     true,
		AuditActionPasswordChanged: true,
		AuditActionAdminCreated:    true,
		AuditActionAdminDeleted:    true,
		AuditActionAccountDeleted:  true,
	}
	return securityActions[a.Action]
}
