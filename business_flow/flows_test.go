package businessflow

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sexto-andar/auth-service/app/services"
	"github.com/sexto-andar/auth-service/models"
	"github.com/sexto-andar/auth-service/repository"
	apptesting "github.com/sexto-andar/auth-service/testing"
)

// flowEnv bundles a per-test database with the real repositories and the
// service fakes the flows depend on.
type flowEnv struct {
	db          *apptesting.TestDB
	fixtures    *apptesting.TestFixtures
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	passwordSvc services.PasswordService
	relations   *stubRelationService
	webhooks    *recordingWebhookService
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()

	if !apptesting.ServerReachable() {
		t.Skip("test database is not reachable; set TEST_DB_* to run integration tests")
	}

	testDB, err := apptesting.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("failed to drop test database: %v", err)
		}
	})

	return &flowEnv{
		db:          testDB,
		fixtures:    apptesting.NewTestFixtures(testDB),
		accountRepo: repository.NewAccountRepository(testDB.DB),
		auditRepo:   repository.NewAuditLogRepository(testDB.DB),
		passwordSvc: services.NewPasswordService(bcrypt.MinCost),
		relations:   newStubRelationService(),
		webhooks:    &recordingWebhookService{},
	}
}

func (env *flowEnv) registrationFlow() RegistrationFlow {
	return NewRegistrationFlow(env.accountRepo, env.auditRepo, env.passwordSvc, env.db.DB)
}

func (env *flowEnv) loginFlow(t *testing.T, revocations services.RevocationStore) (LoginFlow, services.TokenService) {
	t.Helper()

	tokenService, err := services.NewTokenService(
		15*time.Minute,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"test-secret-key-for-jwt-signing-32-chars",
		revocations,
	)
	require.NoError(t, err)

	return NewLoginFlow(env.accountRepo, env.auditRepo, tokenService, env.passwordSvc, env.db.DB), tokenService
}

func (env *flowEnv) profileFlow() ProfileFlow {
	return NewProfileFlow(env.accountRepo, env.auditRepo, env.passwordSvc, env.db.DB)
}

func (env *flowEnv) adminFlow() AdminAccountFlow {
	return NewAdminAccountFlow(env.accountRepo, env.auditRepo, env.passwordSvc, env.relations, env.webhooks, env.db.DB)
}

func (env *flowEnv) createUser(t *testing.T) *models.Account {
	t.Helper()
	account, err := env.fixtures.CreateTestUser()
	require.NoError(t, err)
	return account
}

func (env *flowEnv) createPropertyOwner(t *testing.T) *models.Account {
	t.Helper()
	account, err := env.fixtures.CreateTestPropertyOwner()
	require.NoError(t, err)
	return account
}

func (env *flowEnv) createAdmin(t *testing.T) *models.Account {
	t.Helper()
	account, err := env.fixtures.CreateTestAdmin()
	require.NoError(t, err)
	return account
}

// stubRelationService answers relation checks from a fixed allow list
type stubRelationService struct {
	allowed map[string]bool
}

func newStubRelationService() *stubRelationService {
	return &stubRelationService{allowed: make(map[string]bool)}
}

func (s *stubRelationService) allow(userID, ownerID uuid.UUID) {
	s.allowed[userID.String()+"|"+ownerID.String()] = true
}

func (s *stubRelationService) HasRelation(ctx context.Context, userID, ownerID uuid.UUID) bool {
	return s.allowed[userID.String()+"|"+ownerID.String()]
}

// recordingWebhookService captures deletion notifications instead of calling
// the properties service.
type recordingWebhookService struct {
	mu      sync.Mutex
	deleted []uuid.UUID
}

func (s *recordingWebhookService) NotifyUserDeleted(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, userID)
}

func (s *recordingWebhookService) deletedIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.deleted...)
}

func testMetadata() *ClientMetadata {
	metadata := NewClientMetadata("203.0.113.10", "flow-test/1.0")
	metadata.SetRequestID(uuid.NewString())
	return metadata
}

func uniqueCredentials() (username, email string) {
	suffix := rand.Intn(900000000) + 100000000
	return fmt.Sprintf("new_user_%d", suffix), fmt.Sprintf("new.user.%d@example.com", suffix)
}
