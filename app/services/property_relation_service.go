package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const internalSecretHeader = "X-Internal-Secret"

// PropertyRelationService asks the properties service whether a user has an
// active relation (booking, tenancy) with one of an owner's properties.
// Every failure path answers false; access is never widened by an outage.
type PropertyRelationService interface {
	HasRelation(ctx context.Context, userID, ownerID uuid.UUID) bool
}

// PropertyRelationServiceImpl implements PropertyRelationService against the
// internal properties API.
type PropertyRelationServiceImpl struct {
	baseURL        string
	internalSecret string
	client         *http.Client
}

// NewPropertyRelationService creates a relation check client with a bounded
// request timeout.
func NewPropertyRelationService(baseURL, internalSecret string, timeout time.Duration) PropertyRelationService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PropertyRelationServiceImpl{
		baseURL:        baseURL,
		internalSecret: internalSecret,
		client:         &http.Client{Timeout: timeout},
	}
}

type relationCheckResponse struct {
	HasRelation bool `json:"has_relation"`
}

// HasRelation performs the internal relation check. Fail closed.
func (s *PropertyRelationServiceImpl) HasRelation(ctx context.Context, userID, ownerID uuid.UUID) bool {
	endpoint := fmt.Sprintf("%s/api/internal/check-user-property-relation", s.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Printf("relation check: failed to build request: %v", err)
		return false
	}

	query := url.Values{}
	query.Set("user_id", userID.String())
	query.Set("owner_id", ownerID.String())
	req.URL.RawQuery = query.Encode()
	req.Header.Set(internalSecretHeader, s.internalSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("relation check: request to properties service failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("relation check: properties service returned status %d", resp.StatusCode)
		return false
	}

	var body relationCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("relation check: failed to decode response: %v", err)
		return false
	}

	return body.HasRelation
}
