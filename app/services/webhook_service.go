package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// WebhookService notifies sibling services about account lifecycle events.
// Deliveries are best effort; failures are logged and never surfaced.
type WebhookService interface {
	NotifyUserDeleted(userID uuid.UUID)
}

// WebhookServiceImpl implements WebhookService against the internal
// properties API.
type WebhookServiceImpl struct {
	baseURL        string
	internalSecret string
	timeout        time.Duration
	client         *http.Client
}

// NewWebhookService creates a webhook client with a bounded request timeout.
func NewWebhookService(baseURL, internalSecret string, timeout time.Duration) WebhookService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookServiceImpl{
		baseURL:        baseURL,
		internalSecret: internalSecret,
		timeout:        timeout,
		client:         &http.Client{Timeout: timeout},
	}
}

type userDeletedPayload struct {
	UserID string `json:"user_id"`
}

// NotifyUserDeleted posts the user-deleted event on a background goroutine.
// Callers return immediately; the deleting transaction never waits on it.
func (s *WebhookServiceImpl) NotifyUserDeleted(userID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.send(ctx, userID); err != nil {
			log.Printf("user-deleted webhook for %s failed: %v", userID, err)
			return
		}
		log.Printf("user-deleted webhook for %s delivered", userID)
	}()
}

func (s *WebhookServiceImpl) send(ctx context.Context, userID uuid.UUID) error {
	endpoint := fmt.Sprintf("%s/api/internal/user-deleted-webhook", s.baseURL)

	body, err := json.Marshal(userDeletedPayload{UserID: userID.String()})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(internalSecretHeader, s.internalSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}
