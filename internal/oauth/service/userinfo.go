package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/internal/oauth/store"
)

// UserInfo is the profile released to an application. Fields outside the
// granted scopes are left empty.
type UserInfo struct {
	ID          string
	Username    string
	DisplayName string
	Avatar      string
	Email       string
}

type UserInfoService struct {
	Store store.Store
}

// UserInfo returns the profile of the user behind principal, filtered by
// the token's scopes. clientID is the X-Client-ID the caller claims to be;
// it must match the client the token was issued to.
func (s *UserInfoService) UserInfo(ctx context.Context, principal domain.Principal, clientID string) (*UserInfo, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: X-Client-ID header is required", ErrInvalidRequest)
	}

	p, ok := principal.(domain.OAuthPrincipal)
	if !ok || p.ClientID != clientID {
		return nil, ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, p.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	info := &UserInfo{ID: user.ID}
	if p.HasScope(domain.ScopeUserRead) {
		info.Username = user.Username
		info.DisplayName = user.DisplayName
		info.Avatar = user.AvatarURL
	}
	if p.HasScope(domain.ScopeUserEmail) {
		info.Email = user.Email
	}
	return info, nil
}
