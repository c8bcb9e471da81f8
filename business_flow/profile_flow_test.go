package businessflow

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sexto-andar/auth-service/app/dto"
	apptesting "github.com/sexto-andar/auth-service/testing"
	"github.com/sexto-andar/auth-service/utils"
)

func strPtr(s string) *string { return &s }

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodeGIF(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewPaletted(image.Rect(0, 0, width, height), color.Palette{color.White, color.Black})
	buf := &bytes.Buffer{}
	require.NoError(t, gif.Encode(buf, img, nil))
	return buf.Bytes()
}

func TestGetProfile(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.profileFlow()
	ctx := context.Background()

	account := env.createUser(t)

	info, err := flow.GetProfile(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), info.ID)
	assert.Equal(t, account.Username, info.Username)
	assert.Equal(t, account.Email, info.Email)

	t.Run("unknown account", func(t *testing.T) {
		_, err := flow.GetProfile(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, IsAccountNotFound(err))
	})
}

func TestUpdateProfile(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.profileFlow()
	ctx := context.Background()

	t.Run("empty request is rejected", func(t *testing.T) {
		account := env.createUser(t)
		_, err := flow.UpdateProfile(ctx, account.ID, &dto.UpdateProfileRequest{}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsNoFieldsToUpdate(err))
	})

	t.Run("full name change needs no re-authentication", func(t *testing.T) {
		account := env.createUser(t)
		info, err := flow.UpdateProfile(ctx, account.ID, &dto.UpdateProfileRequest{
			FullName: strPtr("Renamed Person"),
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, "Renamed Person", info.FullName)
	})

	t.Run("email change requires the current password", func(t *testing.T) {
		account := env.createUser(t)
		_, err := flow.UpdateProfile(ctx, account.ID, &dto.UpdateProfileRequest{
			Email: strPtr("fresh@example.com"),
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsCurrentPasswordRequired(err))
	})

	t.Run("wrong current password is refused", func(t *testing.T) {
		account := env.createUser(t)
		_, err := flow.UpdateProfile(ctx, account.ID, &dto.UpdateProfileRequest{
			Email:           strPtr("fresh@example.com"),
			CurrentPassword: strPtr("WrongPass123"),
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsCurrentPasswordIncorrect(err))
	})

	t.Run("email change with correct password is normalized", func(t *testing.T) {
		account := env.createUser(t)
		info, err := flow.UpdateProfile(ctx, account.ID, &dto.UpdateProfileRequest{
			Email:           strPtr("Fresh.Address@EXAMPLE.com"),
			CurrentPassword: strPtr(apptesting.TestPassword),
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, "fresh.address@example.com", info.Email)
	})

	t.Run("email conflict with another account", func(t *testing.T) {
		account := env.createUser(t)
		other := env.createUser(t)

		_, err := flow.UpdateProfile(ctx, account.ID, &dto.UpdateProfileRequest{
			Email:           &other.Email,
			CurrentPassword: strPtr(apptesting.TestPassword),
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsEmailAlreadyTaken(err))
	})

	t.Run("keeping your own email is not a conflict", func(t *testing.T) {
		account := env.createUser(t)
		_, err := flow.UpdateProfile(ctx, account.ID, &dto.UpdateProfileRequest{
			Email:           &account.Email,
			CurrentPassword: strPtr(apptesting.TestPassword),
		}, testMetadata())
		assert.NoError(t, err)
	})

	t.Run("password change takes effect", func(t *testing.T) {
		account := env.createUser(t)
		_, err := flow.UpdateProfile(ctx, account.ID, &dto.UpdateProfileRequest{
			Password:        strPtr("BrandNewPass456"),
			CurrentPassword: strPtr(apptesting.TestPassword),
		}, testMetadata())
		require.NoError(t, err)

		stored, err := env.accountRepo.ByID(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, env.passwordSvc.Verify("BrandNewPass456", stored.PasswordHash))
		assert.False(t, env.passwordSvc.Verify(apptesting.TestPassword, stored.PasswordHash))
	})
}

func TestDeleteAccount(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.profileFlow()
	ctx := context.Background()

	t.Run("user can delete itself", func(t *testing.T) {
		account := env.createUser(t)
		require.NoError(t, flow.DeleteAccount(ctx, account.ID, testMetadata()))

		stored, err := env.accountRepo.ByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("admin self-service deletion is refused", func(t *testing.T) {
		admin := env.createAdmin(t)
		err := flow.DeleteAccount(ctx, admin.ID, testMetadata())
		require.Error(t, err)
		assert.True(t, IsTargetIsAdmin(err))
	})
}

func TestProfilePicture(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.profileFlow()
	ctx := context.Background()

	t.Run("upload and fetch round trip", func(t *testing.T) {
		account := env.createUser(t)
		original := encodePNG(t, 32, 32)

		require.NoError(t, flow.UploadPicture(ctx, account.ID, bytes.NewReader(original), testMetadata()))

		content, contentType, err := flow.GetPicture(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "image/png", contentType)
		assert.Equal(t, original, content)

		info, err := flow.GetProfile(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, info.HasProfilePicture)
	})

	t.Run("oversized upload is refused", func(t *testing.T) {
		account := env.createUser(t)
		blob := make([]byte, utils.MaxProfilePictureBytes+1)

		err := flow.UploadPicture(ctx, account.ID, bytes.NewReader(blob), testMetadata())
		require.Error(t, err)
		assert.True(t, IsPictureTooLarge(err))
	})

	t.Run("non-image upload is refused", func(t *testing.T) {
		account := env.createUser(t)
		err := flow.UploadPicture(ctx, account.ID, bytes.NewReader([]byte("plain text, not an image")), testMetadata())
		require.Error(t, err)
		assert.True(t, IsUnsupportedImageType(err))
	})

	t.Run("fetch without a picture", func(t *testing.T) {
		account := env.createUser(t)
		_, _, err := flow.GetPicture(ctx, account.ID)
		require.Error(t, err)
		assert.True(t, IsPictureNotFound(err))
	})

	t.Run("delete removes the picture", func(t *testing.T) {
		account := env.createUser(t)
		require.NoError(t, flow.UploadPicture(ctx, account.ID, bytes.NewReader(encodePNG(t, 16, 16)), testMetadata()))
		require.NoError(t, flow.DeletePicture(ctx, account.ID, testMetadata()))

		_, _, err := flow.GetPicture(ctx, account.ID)
		require.Error(t, err)
		assert.True(t, IsPictureNotFound(err))

		t.Run("deleting again reports not found", func(t *testing.T) {
			err := flow.DeletePicture(ctx, account.ID, testMetadata())
			require.Error(t, err)
			assert.True(t, IsPictureNotFound(err))
		})
	})
}

func TestPicturePreview(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.profileFlow()
	ctx := context.Background()

	t.Run("large picture is scaled down to a jpeg", func(t *testing.T) {
		account := env.createUser(t)
		require.NoError(t, flow.UploadPicture(ctx, account.ID, bytes.NewReader(encodeJPEG(t, 600, 400)), testMetadata()))

		content, contentType, err := flow.PicturePreview(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", contentType)

		thumb, _, err := image.Decode(bytes.NewReader(content))
		require.NoError(t, err)
		assert.Equal(t, utils.ProfilePicturePreviewSize, thumb.Bounds().Dx())
		assert.LessOrEqual(t, thumb.Bounds().Dy(), utils.ProfilePicturePreviewSize)
	})

	t.Run("small picture keeps its dimensions", func(t *testing.T) {
		account := env.createUser(t)
		require.NoError(t, flow.UploadPicture(ctx, account.ID, bytes.NewReader(encodePNG(t, 40, 30)), testMetadata()))

		content, contentType, err := flow.PicturePreview(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", contentType)

		thumb, _, err := image.Decode(bytes.NewReader(content))
		require.NoError(t, err)
		assert.Equal(t, 40, thumb.Bounds().Dx())
		assert.Equal(t, 30, thumb.Bounds().Dy())
	})

	t.Run("gif is served unscaled", func(t *testing.T) {
		account := env.createUser(t)
		original := encodeGIF(t, 500, 500)
		require.NoError(t, flow.UploadPicture(ctx, account.ID, bytes.NewReader(original), testMetadata()))

		content, contentType, err := flow.PicturePreview(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "image/gif", contentType)
		assert.Equal(t, original, content)
	})
}

func TestResizeImageKeepsAtLeastOnePixel(t *testing.T) {
	cases := []struct {
		name   string
		width  int
		height int
		wantW  int
		wantH  int
	}{
		{"wide strip", 10000, 1, utils.ProfilePicturePreviewSize, 1},
		{"tall strip", 1, 10000, 1, utils.ProfilePicturePreviewSize},
		{"landscape", 600, 400, utils.ProfilePicturePreviewSize, 170},
		{"inside the box", 40, 30, 40, 30},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tc.width, tc.height))
			dst := resizeImage(src, utils.ProfilePicturePreviewSize)

			assert.Equal(t, tc.wantW, dst.Bounds().Dx())
			assert.Equal(t, tc.wantH, dst.Bounds().Dy())
		})
	}
}
