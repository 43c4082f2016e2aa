package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/internal/oauth/store"
	"github.com/saltoplay/platform/pkg/idx"
	"github.com/saltoplay/platform/pkg/slogx"
)

// UserService maintains the mirror of platform accounts.
type UserService struct {
	Store store.Store

	// TOTPIssuer labels enrolled secrets in authenticator apps.
	TOTPIssuer string
}

// TOTPEnrollment is handed to the user once, to load into an
// authenticator app.
type TOTPEnrollment struct {
	Secret string
	URL    string // otpauth:// key URI
}

func (s *UserService) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return domain.User{}, fmt.Errorf("%w: username is required", ErrInvalidRequest)
	}

	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = idx.NewAt(now).String()
	}
	u.TOTPSecret = nil
	u.CreatedAt = now
	u.UpdatedAt = now

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	slogx.FromContext(ctx).Info("user created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return lookupUser(s.Store.Users().GetUserByID(ctx, id))
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return lookupUser(s.Store.Users().GetUserByUsername(ctx, username))
}

// UpdateProfile overwrites the display name, email and avatar of a user.
func (s *UserService) UpdateProfile(ctx context.Context, id, displayName, email, avatarURL string) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}

	u.DisplayName = displayName
	u.Email = email
	u.AvatarURL = avatarURL
	u.UpdatedAt = time.Now().UTC()

	if err := s.Store.Users().UpdateUserProfile(ctx, u); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// EnrollTOTP generates and stores a new TOTP secret, replacing any
// existing one.
func (s *UserService) EnrollTOTP(ctx context.Context, id string) (TOTPEnrollment, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return TOTPEnrollment{}, err
	}

	issuer := s.TOTPIssuer
	if issuer == "" {
		issuer = "SaltoPlay"
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: u.Username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("generate totp: %w", err)
	}

	secret := key.Secret()
	if err := s.Store.Users().UpdateUserTOTPSecret(ctx, u.ID, &secret, time.Now().UTC()); err != nil {
		return TOTPEnrollment{}, fmt.Errorf("store totp secret: %w", err)
	}

	slogx.FromContext(ctx).Info("totp enrolled", "user_id", u.ID)
	return TOTPEnrollment{Secret: secret, URL: key.URL()}, nil
}

func (s *UserService) DisableTOTP(ctx context.Context, id string) error {
	err := s.Store.Users().UpdateUserTOTPSecret(ctx, id, nil, time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("clear totp secret: %w", err)
	}

	slogx.FromContext(ctx).Info("totp disabled", "user_id", id)
	return nil
}

func lookupUser(u domain.User, err error) (domain.User, error) {
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
