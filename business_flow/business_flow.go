// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/sexto-andar/auth-service/app/dto"
	"github.com/sexto-andar/auth-service/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToAccountInfo converts an account model to the API account view
func ToAccountInfo(account *models.Account) dto.AccountInfo {
	return dto.AccountInfo{
		ID:                account.ID.String(),
		Username:          account.Username,
		FullName:          account.FullName,
		Email:             account.Email,
		PhoneNumber:       account.PhoneNumber,
		Role:              account.Role,
		HasProfilePicture: account.HasProfilePicture(),
		CreatedAt:         account.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         account.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
