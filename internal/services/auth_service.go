package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/agrimitra/agrimitra-backend/internal/models"
	"github.com/agrimitra/agrimitra-backend/internal/repository"
	"github.com/agrimitra/agrimitra-backend/pkg/utils"
)

const (
	minFullNameLength = 3
	minPasswordLength = 6
)

// AuthService orchestrates registration, verification, login, password
// reset, and profile setup. Collaborators are injected so tests can run
// against fakes.
type AuthService struct {
	repo     repository.UserRepository
	mailer   EmailSender
	uploader ImageUploader
	tokens   *TokenService
	now      func() time.Time
}

func NewAuthService(repo repository.UserRepository, mailer EmailSender, uploader ImageUploader, tokens *TokenService) *AuthService {
	return &AuthService{
		repo:     repo,
		mailer:   mailer,
		uploader: uploader,
		tokens:   tokens,
		now:      time.Now,
	}
}

// RegisterResult reports where the verification code went and whether
// delivery succeeded. A failed send does not undo the registration; the
// client is expected to offer a resend.
type RegisterResult struct {
	Email     string
	EmailSent bool
}

// Register creates an unverified account with a fresh OTP, or refreshes
// an existing unverified one (the retry-registration path). A verified
// account with the same email is a conflict.
func (s *AuthService) Register(ctx context.Context, fullName, email, password string) (*RegisterResult, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" || email == "" || password == "" {
		return nil, validationf("full name, email and password are required")
	}
	if len(fullName) < minFullNameLength {
		return nil, validationf("full name must be at least %d characters", minFullNameLength)
	}
	if len(password) < minPasswordLength {
		return nil, validationf("password must be at least %d characters", minPasswordLength)
	}
	email = utils.NormalizeEmail(email)

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	otp, err := GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("generate OTP: %w", err)
	}
	expires := OTPExpiry(s.now())

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.IsVerified:
		return nil, ErrEmailTaken
	case err == nil:
		// Unverified retry: overwrite name/password/OTP on the same
		// record instead of creating a duplicate.
		existing.FullName = fullName
		existing.Password = hashed
		existing.VerificationOTP = &otp
		existing.VerificationOTPExpires = &expires
		if err := s.repo.Save(ctx, existing); err != nil {
			return nil, fmt.Errorf("update unverified user: %w", err)
		}
		return &RegisterResult{Email: email, EmailSent: s.dispatchOTP(ctx, email, otp, PurposeVerification)}, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	username, err := s.uniqueUsername(ctx, fullName)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FullName:               fullName,
		Username:               username,
		Email:                  email,
		Password:               hashed,
		IsVerified:             false,
		VerificationOTP:        &otp,
		VerificationOTPExpires: &expires,
		ProfileImage:           utils.DefaultAvatarURL(username),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if repository.IsDuplicateKey(err) {
			// Lost a race on the unique email index.
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &RegisterResult{Email: email, EmailSent: s.dispatchOTP(ctx, email, otp, PurposeVerification)}, nil
}

// uniqueUsername slugs the display name and appends an incrementing
// numeric suffix until the username is free.
func (s *AuthService) uniqueUsername(ctx context.Context, fullName string) (string, error) {
	base := utils.SlugifyName(fullName)
	candidate := base
	for suffix := 1; ; suffix++ {
		_, err := s.repo.FindByUsername(ctx, candidate)
		if errors.Is(err, repository.ErrUserNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("find user by username: %w", err)
		}
		candidate = base + strconv.Itoa(suffix)
	}
}

// dispatchOTP attempts delivery and reports success. The send uses a
// detached context so a dropped client connection does not cancel it.
func (s *AuthService) dispatchOTP(ctx context.Context, email, otp string, purpose OTPPurpose) bool {
	if s.mailer == nil {
		log.Printf("auth: no mailer configured, OTP for %s not sent", email)
		return false
	}
	if err := s.mailer.SendOTP(context.WithoutCancel(ctx), email, otp, purpose); err != nil {
		log.Printf("auth: OTP delivery to %s failed: %v", email, err)
		return false
	}
	return true
}

// VerifyEmail consumes a verification code, marks the account verified
// and issues a session token.
func (s *AuthService) VerifyEmail(ctx context.Context, email, otp string) (string, *models.User, error) {
	email = utils.NormalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", nil, ErrInvalidOTP
	}
	if err != nil {
		return "", nil, fmt.Errorf("find user by email: %w", err)
	}
	if !OTPMatches(user.VerificationOTP, user.VerificationOTPExpires, otp, s.now()) {
		return "", nil, ErrInvalidOTP
	}

	user.IsVerified = true
	user.VerificationOTP = nil
	user.VerificationOTPExpires = nil
	if err := s.repo.Save(ctx, user); err != nil {
		return "", nil, fmt.Errorf("save verified user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

// ResendOTP stores a fresh verification code and re-sends it.
func (s *AuthService) ResendOTP(ctx context.Context, email string) (bool, error) {
	email = utils.NormalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, ErrAccountNotFound
	}
	if err != nil {
		return false, fmt.Errorf("find user by email: %w", err)
	}
	if user.IsVerified {
		return false, ErrAlreadyVerified
	}

	otp, err := GenerateOTP()
	if err != nil {
		return false, fmt.Errorf("generate OTP: %w", err)
	}
	expires := OTPExpiry(s.now())
	user.VerificationOTP = &otp
	user.VerificationOTPExpires = &expires
	if err := s.repo.Save(ctx, user); err != nil {
		return false, fmt.Errorf("save user: %w", err)
	}
	return s.dispatchOTP(ctx, email, otp, PurposeVerification), nil
}

// Login authenticates by email or username. Unknown identifiers and
// wrong passwords are indistinguishable; an unverified account fails
// distinctly so the client can route to verification.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (string, *models.User, error) {
	if strings.TrimSpace(identifier) == "" || password == "" {
		return "", nil, validationf("identifier and password are required")
	}
	identifier = utils.NormalizeIdentifier(identifier)

	user, err := s.repo.FindByEmailOrUsername(ctx, identifier)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if !utils.CheckPassword(password, user.Password) {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return "", nil, &NotVerifiedError{Email: user.Email}
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

// ForgotPassword stores a reset code and sends it to the account email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (bool, error) {
	email = utils.NormalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, ErrAccountNotFound
	}
	if err != nil {
		return false, fmt.Errorf("find user by email: %w", err)
	}

	otp, err := GenerateOTP()
	if err != nil {
		return false, fmt.Errorf("generate OTP: %w", err)
	}
	expires := OTPExpiry(s.now())
	user.ResetPasswordOTP = &otp
	user.ResetPasswordOTPExpires = &expires
	if err := s.repo.Save(ctx, user); err != nil {
		return false, fmt.Errorf("save user: %w", err)
	}
	return s.dispatchOTP(ctx, email, otp, PurposePasswordReset), nil
}

// VerifyResetOTP is a pure check so the client can confirm the code
// before collecting a new password. It never mutates the record.
func (s *AuthService) VerifyResetOTP(ctx context.Context, email, otp string) error {
	email = utils.NormalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}
	if !OTPMatches(user.ResetPasswordOTP, user.ResetPasswordOTPExpires, otp, s.now()) {
		return ErrInvalidOTP
	}
	return nil
}

// ResetPassword re-checks the code (a prior VerifyResetOTP call is not
// trusted), re-hashes the new password and consumes the code.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return validationf("password must be at least %d characters", minPasswordLength)
	}
	email = utils.NormalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}
	if !OTPMatches(user.ResetPasswordOTP, user.ResetPasswordOTPExpires, otp, s.now()) {
		return ErrInvalidOTP
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = hashed
	user.ResetPasswordOTP = nil
	user.ResetPasswordOTPExpires = nil
	if err := s.repo.Save(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// ProfileUpdate is the allow-list of fields the setup endpoint may
// change. Nil pointers mean "leave as is"; the username is immutable.
type ProfileUpdate struct {
	FullName       *string
	ProfileImage   *string
	Location       *string
	FarmSize       *string
	Experience     *string
	SoilType       *string
	IrrigationType *string
	FarmingType    *string
	Devices        []string
}

// SetupProfile applies allow-listed profile fields to the user. An
// inline base64 profile image is uploaded to the image host first; if
// the upload fails the previous image is kept and the rest of the
// fields are still saved.
func (s *AuthService) SetupProfile(ctx context.Context, user *models.User, update ProfileUpdate) (*models.User, error) {
	if update.FullName != nil {
		name := strings.TrimSpace(*update.FullName)
		if len(name) < minFullNameLength {
			return nil, validationf("full name must be at least %d characters", minFullNameLength)
		}
		user.FullName = name
	}
	if update.Location != nil {
		user.Location = *update.Location
	}
	if update.FarmSize != nil {
		user.FarmSize = *update.FarmSize
	}
	if update.Experience != nil {
		user.Experience = *update.Experience
	}
	if update.SoilType != nil {
		user.SoilType = *update.SoilType
	}
	if update.IrrigationType != nil {
		user.IrrigationType = *update.IrrigationType
	}
	if update.FarmingType != nil {
		user.FarmingType = *update.FarmingType
	}
	if update.Devices != nil {
		user.Devices = update.Devices
	}

	if update.ProfileImage != nil && *update.ProfileImage != "" {
		if IsDataURI(*update.ProfileImage) {
			if s.uploader == nil {
				log.Printf("auth: no image uploader configured, keeping previous profile image for %s", user.Username)
			} else if url, err := s.uploader.UploadDataURI(ctx, *update.ProfileImage); err != nil {
				// Upload failure is non-fatal: keep the prior image.
				log.Printf("auth: profile image upload for %s failed: %v", user.Username, err)
			} else {
				user.ProfileImage = url
			}
		} else {
			user.ProfileImage = *update.ProfileImage
		}
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return user, nil
}
