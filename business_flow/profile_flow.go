package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/sexto-andar/auth-service/app/dto"
	"github.com/sexto-andar/auth-service/app/services"
	"github.com/sexto-andar/auth-service/models"
	"github.com/sexto-andar/auth-service/repository"
	"github.com/sexto-andar/auth-service/utils"
	xdraw "golang.org/x/image/draw"
	"gorm.io/gorm"
)

// allowedPictureTypes are the only content types accepted for profile
// pictures. The type is sniffed from the bytes, never taken from the client.
var allowedPictureTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// ProfileFlow handles self-service profile operations
type ProfileFlow interface {
	GetProfile(ctx context.Context, accountID uuid.UUID) (*dto.AccountInfo, error)
	UpdateProfile(ctx context.Context, accountID uuid.UUID, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.AccountInfo, error)
	DeleteAccount(ctx context.Context, accountID uuid.UUID, metadata *ClientMetadata) error
	UploadPicture(ctx context.Context, accountID uuid.UUID, content io.Reader, metadata *ClientMetadata) error
	GetPicture(ctx context.Context, accountID uuid.UUID) ([]byte, string, error)
	PicturePreview(ctx context.Context, accountID uuid.UUID) ([]byte, string, error)
	DeletePicture(ctx context.Context, accountID uuid.UUID, metadata *ClientMetadata) error
}

// ProfileFlowImpl implements the profile business flow
type ProfileFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	passwordSvc services.PasswordService
	db          *gorm.DB
}

// NewProfileFlow creates a new profile flow instance
func NewProfileFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	passwordSvc services.PasswordService,
	db *gorm.DB,
) ProfileFlow {
	return &ProfileFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		passwordSvc: passwordSvc,
		db:          db,
	}
}

// GetProfile returns the account view for the authenticated account
func (s *ProfileFlowImpl) GetProfile(ctx context.Context, accountID uuid.UUID) (*dto.AccountInfo, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	info := ToAccountInfo(account)
	return &info, nil
}

// UpdateProfile applies the requested field changes. Email and password
// changes require the current password; a request with no fields is rejected
// rather than treated as a silent no-op.
func (s *ProfileFlowImpl) UpdateProfile(ctx context.Context, accountID uuid.UUID, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.AccountInfo, error) {
	if req.FullName == nil && req.Email == nil && req.PhoneNumber == nil && req.Password == nil {
		return nil, NewBusinessError(dto.ErrorNoFieldsToUpdate, "At least one field must be provided", ErrNoFieldsToUpdate)
	}

	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sensitiveChange := req.Email != nil || req.Password != nil
	if sensitiveChange {
		if req.CurrentPassword == nil {
			return nil, NewBusinessError(dto.ErrorReauthRequired, "Current password is required to change email or password", ErrCurrentPasswordRequired)
		}
		if !s.passwordSvc.Verify(*req.CurrentPassword, account.PasswordHash) {
			return nil, NewBusinessError(dto.ErrorReauthFailed, "Current password is incorrect", ErrCurrentPasswordIncorrect)
		}
	}

	passwordChanged := false

	if req.FullName != nil {
		if err := models.ValidateFullName(*req.FullName); err != nil {
			return nil, NewBusinessError(dto.ErrorValidationFailed, err.Error(), err)
		}
		account.FullName = *req.FullName
	}

	if req.PhoneNumber != nil {
		if err := models.ValidatePhoneNumber(*req.PhoneNumber); err != nil {
			return nil, NewBusinessError(dto.ErrorValidationFailed, err.Error(), err)
		}
		account.PhoneNumber = req.PhoneNumber
	}

	if req.Email != nil {
		email, err := models.NormalizeEmail(*req.Email)
		if err != nil {
			return nil, NewBusinessError(dto.ErrorValidationFailed, err.Error(), err)
		}
		account.Email = email
	}

	if req.Password != nil {
		hash, err := s.passwordSvc.Hash(*req.Password)
		if err != nil {
			return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Profile update failed", err)
		}
		account.PasswordHash = hash
		passwordChanged = true
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if req.Email != nil {
			id := account.ID
			taken, err := s.accountRepo.ExistsByEmail(txCtx, account.Email, &id)
			if err != nil {
				return fmt.Errorf("failed to check email uniqueness: %w", err)
			}
			if taken {
				return ErrEmailAlreadyTaken
			}
		}

		if err := s.accountRepo.Update(txCtx, account); err != nil {
			return err
		}

		action := models.AuditActionProfileUpdated
		if passwordChanged {
			action = models.AuditActionPasswordChanged
		}
		return s.createAuditLog(txCtx, account.ID, action, fmt.Sprintf("Profile updated for %s", account.Username), metadata)
	})
	if err != nil {
		if IsEmailAlreadyTaken(err) {
			return nil, NewBusinessError(dto.ErrorEmailTaken, "Email already exists", err)
		}
		return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Profile update failed", err)
	}

	info := ToAccountInfo(account)
	return &info, nil
}

// DeleteAccount removes the authenticated account. Admin accounts must go
// through the admin deletion flow with its last-admin safeguards.
func (s *ProfileFlowImpl) DeleteAccount(ctx context.Context, accountID uuid.UUID, metadata *ClientMetadata) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	if account.IsAdmin() {
		return NewBusinessError(dto.ErrorTargetIsAdmin, "Admin accounts cannot be deleted through profile self-service", ErrTargetIsAdmin)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.accountRepo.Delete(txCtx, account.ID); err != nil {
			return err
		}
		return s.createAuditLog(txCtx, account.ID, models.AuditActionAccountDeleted, fmt.Sprintf("Account %s deleted by owner", account.Username), metadata)
	})
	if err != nil {
		return NewBusinessError("ACCOUNT_DELETION_FAILED", "Account deletion failed", err)
	}

	return nil
}

// UploadPicture stores a new profile picture after size and format checks
func (s *ProfileFlowImpl) UploadPicture(ctx context.Context, accountID uuid.UUID, content io.Reader, metadata *ClientMetadata) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	// Read one byte past the cap so oversized uploads are detected without
	// buffering the whole stream.
	data, err := io.ReadAll(io.LimitReader(content, utils.MaxProfilePictureBytes+1))
	if err != nil {
		return NewBusinessError("PICTURE_UPLOAD_FAILED", "Failed to read uploaded picture", err)
	}
	if len(data) > utils.MaxProfilePictureBytes {
		return NewBusinessError(dto.ErrorPictureTooLarge, "Profile picture must be at most 5 MiB", ErrPictureTooLarge)
	}

	sniffLen := min(len(data), 512)
	contentType := http.DetectContentType(data[:sniffLen])
	if !allowedPictureTypes[contentType] {
		return NewBusinessError(dto.ErrorPictureBadFormat, "Profile picture must be a JPEG, PNG or GIF image", ErrUnsupportedImageType)
	}

	account.ProfilePicture = data
	account.ProfilePictureType = &contentType

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.accountRepo.Update(txCtx, account); err != nil {
			return err
		}
		return s.createAuditLog(txCtx, account.ID, models.AuditActionPictureUploaded, fmt.Sprintf("Profile picture uploaded (%s, %d bytes)", contentType, len(data)), metadata)
	})
	if err != nil {
		return NewBusinessError("PICTURE_UPLOAD_FAILED", "Failed to store profile picture", err)
	}

	return nil
}

// GetPicture returns the stored picture bytes and content type
func (s *ProfileFlowImpl) GetPicture(ctx context.Context, accountID uuid.UUID) ([]byte, string, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, "", err
	}

	if !account.HasProfilePicture() {
		return nil, "", NewBusinessError(dto.ErrorPictureNotFound, "No profile picture is set", ErrPictureNotFound)
	}

	return account.ProfilePicture, *account.ProfilePictureType, nil
}

// PicturePreview returns a downscaled thumbnail of the stored picture.
// Animated GIFs are served unscaled; resampling would keep only one frame.
func (s *ProfileFlowImpl) PicturePreview(ctx context.Context, accountID uuid.UUID) ([]byte, string, error) {
	data, contentType, err := s.GetPicture(ctx, accountID)
	if err != nil {
		return nil, "", err
	}

	if contentType == "image/gif" {
		return data, contentType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", NewBusinessError("PICTURE_PREVIEW_FAILED", "Failed to decode stored picture", err)
	}

	thumb := resizeImage(img, utils.ProfilePicturePreviewSize)
	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, thumb, &jpeg.Options{Quality: 75}); err != nil {
		return nil, "", NewBusinessError("PICTURE_PREVIEW_FAILED", "Failed to encode preview", err)
	}

	return buf.Bytes(), "image/jpeg", nil
}

// DeletePicture removes the stored picture
func (s *ProfileFlowImpl) DeletePicture(ctx context.Context, accountID uuid.UUID, metadata *ClientMetadata) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}

	if !account.HasProfilePicture() {
		return NewBusinessError(dto.ErrorPictureNotFound, "No profile picture is set", ErrPictureNotFound)
	}

	account.ProfilePicture = nil
	account.ProfilePictureType = nil

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.accountRepo.Update(txCtx, account); err != nil {
			return err
		}
		return s.createAuditLog(txCtx, account.ID, models.AuditActionPictureDeleted, fmt.Sprintf("Profile picture removed for %s", account.Username), metadata)
	})
	if err != nil {
		return NewBusinessError("PICTURE_DELETION_FAILED", "Failed to remove profile picture", err)
	}

	return nil
}

func (s *ProfileFlowImpl) loadAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to load account", err)
	}
	if account == nil {
		return nil, NewBusinessError(dto.ErrorAccountNotFound, "Account not found", ErrAccountNotFound)
	}
	return account, nil
}

func (s *ProfileFlowImpl) createAuditLog(ctx context.Context, accountID uuid.UUID, action, description string, metadata *ClientMetadata) error {
	return s.auditRepo.Save(ctx, &models.AuditLog{
		AccountID:   &accountID,
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(true),
		IPAddress:   &metadata.IPAddress,
		UserAgent:   &metadata.UserAgent,
		RequestID:   &metadata.RequestID,
	})
}

// resizeImage scales src down so neither dimension exceeds maxDim, keeping
// aspect ratio. Images already inside the box are returned untouched.
func resizeImage(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		nh = maxDim
		nw = int(float64(w) * float64(maxDim) / float64(h))
	}
	// Extreme aspect ratios round the minor dimension down to zero, which
	// would produce an empty image.
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
