package businessflow

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sexto-andar/auth-service/app/dto"
	"github.com/sexto-andar/auth-service/models"
	apptesting "github.com/sexto-andar/auth-service/testing"
)

func TestListUsers(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.adminFlow()
	ctx := context.Background()

	env.createAdmin(t)
	for i := 0; i < 3; i++ {
		env.createUser(t)
	}

	t.Run("pages through non-admin accounts", func(t *testing.T) {
		first, err := flow.ListUsers(ctx, 1, 2)
		require.NoError(t, err)
		assert.Len(t, first.Accounts, 2)
		assert.EqualValues(t, 3, first.Total)
		assert.Equal(t, 1, first.Page)
		assert.Equal(t, 2, first.Size)

		second, err := flow.ListUsers(ctx, 2, 2)
		require.NoError(t, err)
		assert.Len(t, second.Accounts, 1)

		// Admin accounts never show up in the listing.
		for _, account := range append(first.Accounts, second.Accounts...) {
			assert.NotEqual(t, models.RoleAdmin, account.Role)
		}
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		page, err := flow.ListUsers(ctx, 5, 10)
		require.NoError(t, err)
		assert.Empty(t, page.Accounts)
		assert.EqualValues(t, 3, page.Total)
	})

	t.Run("invalid page", func(t *testing.T) {
		_, err := flow.ListUsers(ctx, 0, 10)
		require.Error(t, err)
		assert.True(t, IsInvalidPage(err))
	})

	t.Run("invalid page size", func(t *testing.T) {
		_, err := flow.ListUsers(ctx, 1, 0)
		require.Error(t, err)
		assert.True(t, IsInvalidPageSize(err))

		_, err = flow.ListUsers(ctx, 1, 101)
		require.Error(t, err)
		assert.True(t, IsInvalidPageSize(err))
	})
}

func TestUserInfo(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.adminFlow()
	ctx := context.Background()

	admin := env.createAdmin(t)
	owner := env.createPropertyOwner(t)
	otherOwner := env.createPropertyOwner(t)
	tenant := env.createUser(t)
	stranger := env.createUser(t)

	env.relations.allow(tenant.ID, owner.ID)

	t.Run("admin reads any account", func(t *testing.T) {
		for _, target := range []uuid.UUID{admin.ID, owner.ID, tenant.ID} {
			info, err := flow.UserInfo(ctx, admin, target)
			require.NoError(t, err)
			assert.Equal(t, target.String(), info.ID)
		}
	})

	t.Run("plain user is refused before lookup", func(t *testing.T) {
		_, err := flow.UserInfo(ctx, stranger, uuid.New())
		require.Error(t, err)
		assert.True(t, IsAccessDenied(err))
	})

	t.Run("owner reads itself", func(t *testing.T) {
		info, err := flow.UserInfo(ctx, owner, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, owner.ID.String(), info.ID)
	})

	t.Run("owner reads a related tenant", func(t *testing.T) {
		info, err := flow.UserInfo(ctx, owner, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, tenant.ID.String(), info.ID)
	})

	t.Run("owner is refused for an unrelated user", func(t *testing.T) {
		_, err := flow.UserInfo(ctx, owner, stranger.ID)
		require.Error(t, err)
		assert.True(t, IsAccessDenied(err))
	})

	t.Run("owner is refused for another owner even with a relation entry", func(t *testing.T) {
		env.relations.allow(otherOwner.ID, owner.ID)
		_, err := flow.UserInfo(ctx, owner, otherOwner.ID)
		require.Error(t, err)
		assert.True(t, IsAccessDenied(err))
	})

	t.Run("admin sees not found for missing accounts", func(t *testing.T) {
		_, err := flow.UserInfo(ctx, admin, uuid.New())
		require.Error(t, err)
		assert.True(t, IsAccountNotFound(err))
	})
}

func TestAdminUpdateUser(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.adminFlow()
	ctx := context.Background()

	admin := env.createAdmin(t)

	t.Run("updates fields without re-authentication", func(t *testing.T) {
		target := env.createUser(t)
		info, err := flow.UpdateUser(ctx, admin, target.ID, &dto.AdminUpdateUserRequest{
			FullName: strPtr("Managed Person"),
			Email:    strPtr("Managed.Person@Example.com"),
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, "Managed Person", info.FullName)
		assert.Equal(t, "managed.person@example.com", info.Email)
	})

	t.Run("empty request is rejected", func(t *testing.T) {
		target := env.createUser(t)
		_, err := flow.UpdateUser(ctx, admin, target.ID, &dto.AdminUpdateUserRequest{}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsNoFieldsToUpdate(err))
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := flow.UpdateUser(ctx, admin, uuid.New(), &dto.AdminUpdateUserRequest{FullName: strPtr("X Y")}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountNotFound(err))
	})

	t.Run("admin target is off limits", func(t *testing.T) {
		otherAdmin := env.createAdmin(t)
		_, err := flow.UpdateUser(ctx, admin, otherAdmin.ID, &dto.AdminUpdateUserRequest{FullName: strPtr("X Y")}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsTargetIsAdmin(err))
	})

	t.Run("email conflict", func(t *testing.T) {
		target := env.createUser(t)
		other := env.createUser(t)
		_, err := flow.UpdateUser(ctx, admin, target.ID, &dto.AdminUpdateUserRequest{Email: &other.Email}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsEmailAlreadyTaken(err))
	})
}

func TestSetUserPassword(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.adminFlow()
	ctx := context.Background()

	admin := env.createAdmin(t)

	t.Run("overrides the password", func(t *testing.T) {
		target := env.createUser(t)
		require.NoError(t, flow.SetUserPassword(ctx, admin, target.ID, "OverriddenPass789", testMetadata()))

		stored, err := env.accountRepo.ByID(ctx, target.ID)
		require.NoError(t, err)
		assert.True(t, env.passwordSvc.Verify("OverriddenPass789", stored.PasswordHash))
		assert.False(t, env.passwordSvc.Verify(apptesting.TestPassword, stored.PasswordHash))
	})

	t.Run("admin target is off limits", func(t *testing.T) {
		otherAdmin := env.createAdmin(t)
		err := flow.SetUserPassword(ctx, admin, otherAdmin.ID, "OverriddenPass789", testMetadata())
		require.Error(t, err)
		assert.True(t, IsTargetIsAdmin(err))
	})
}

func TestAdminDeleteUser(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.adminFlow()
	ctx := context.Background()

	admin := env.createAdmin(t)

	t.Run("deletes and notifies the properties service", func(t *testing.T) {
		target := env.createUser(t)
		require.NoError(t, flow.DeleteUser(ctx, admin, target.ID, testMetadata()))

		stored, err := env.accountRepo.ByID(ctx, target.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)
		assert.Contains(t, env.webhooks.deletedIDs(), target.ID)
	})

	t.Run("missing target fires no webhook", func(t *testing.T) {
		before := len(env.webhooks.deletedIDs())
		err := flow.DeleteUser(ctx, admin, uuid.New(), testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountNotFound(err))
		assert.Len(t, env.webhooks.deletedIDs(), before)
	})

	t.Run("admin target is off limits", func(t *testing.T) {
		otherAdmin := env.createAdmin(t)
		err := flow.DeleteUser(ctx, admin, otherAdmin.ID, testMetadata())
		require.Error(t, err)
		assert.True(t, IsTargetIsAdmin(err))
	})
}

func TestCreateAdmin(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.adminFlow()
	ctx := context.Background()

	actor := env.createAdmin(t)

	t.Run("creates an admin account", func(t *testing.T) {
		username, email := uniqueCredentials()
		info, err := flow.CreateAdmin(ctx, actor, &dto.CreateAdminRequest{
			Username: username,
			FullName: "Second Admin",
			Email:    email,
			Password: "SecurePass123",
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, info.Role)

		stored, err := env.accountRepo.ByUsername(ctx, username)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.True(t, stored.IsAdmin())
	})

	t.Run("duplicate username across roles", func(t *testing.T) {
		existing := env.createUser(t)
		_, email := uniqueCredentials()
		_, err := flow.CreateAdmin(ctx, actor, &dto.CreateAdminRequest{
			Username: existing.Username,
			FullName: "Second Admin",
			Email:    email,
			Password: "SecurePass123",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsUsernameAlreadyTaken(err))
	})

	t.Run("duplicate email across roles", func(t *testing.T) {
		existing := env.createUser(t)
		username, _ := uniqueCredentials()
		_, err := flow.CreateAdmin(ctx, actor, &dto.CreateAdminRequest{
			Username: username,
			FullName: "Second Admin",
			Email:    existing.Email,
			Password: "SecurePass123",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsEmailAlreadyTaken(err))
	})
}

func TestDeleteAdmin(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.adminFlow()
	ctx := context.Background()

	t.Run("self-deletion is refused first", func(t *testing.T) {
		actor := env.createAdmin(t)
		err := flow.DeleteAdmin(ctx, actor, actor.ID, testMetadata())
		require.Error(t, err)
		assert.True(t, IsCannotDeleteSelf(err))
	})

	t.Run("missing target", func(t *testing.T) {
		actor := env.createAdmin(t)
		err := flow.DeleteAdmin(ctx, actor, uuid.New(), testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountNotFound(err))
	})

	t.Run("non-admin target", func(t *testing.T) {
		actor := env.createAdmin(t)
		user := env.createUser(t)
		err := flow.DeleteAdmin(ctx, actor, user.ID, testMetadata())
		require.Error(t, err)
		assert.True(t, IsTargetNotAdmin(err))
	})

	t.Run("deletes when more than one admin remains", func(t *testing.T) {
		actor := env.createAdmin(t)
		target := env.createAdmin(t)
		require.NoError(t, flow.DeleteAdmin(ctx, actor, target.ID, testMetadata()))

		stored, err := env.accountRepo.ByID(ctx, target.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}

func TestDeleteLastAdmin(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.adminFlow()
	ctx := context.Background()

	// Leave exactly one admin in the table. The actor's claims may outlive
	// its row, so the count guard has to hold even then.
	lastAdmin := env.createAdmin(t)
	actor := env.createAdmin(t)
	require.NoError(t, env.accountRepo.Delete(ctx, actor.ID))

	err := flow.DeleteAdmin(ctx, actor, lastAdmin.ID, testMetadata())
	require.Error(t, err)
	assert.True(t, IsLastAdmin(err))

	stored, lookupErr := env.accountRepo.ByID(ctx, lastAdmin.ID)
	require.NoError(t, lookupErr)
	assert.NotNil(t, stored)
}

func TestExportUsers(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.adminFlow()
	ctx := context.Background()

	env.createAdmin(t)
	users := []string{
		env.createUser(t).Username,
		env.createUser(t).Username,
		env.createPropertyOwner(t).Username,
	}

	filename, content, err := flow.ExportUsers(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^accounts_\d{8}\.xlsx$`, filename)

	workbook, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows("accounts")
	require.NoError(t, err)
	require.Len(t, rows, len(users)+1)

	assert.Equal(t, []string{"id", "username", "full_name", "email", "phone_number", "role", "created_at", "updated_at"}, rows[0])

	exported := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		require.GreaterOrEqual(t, len(row), 6)
		exported = append(exported, row[1])
		assert.NotEqual(t, models.RoleAdmin, row[5])
	}
	assert.ElementsMatch(t, users, exported)
}
