package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kenya-ifp/fusion-api/internal/apperrors"
	"github.com/kenya-ifp/fusion-api/internal/models"
)

// Session is returned by login and refresh.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         models.User `json:"user"`
	ExpiresIn    int64       `json:"expires_in"`
}

// Service ties credentials, tokens and revocation together.
type Service struct {
	users   *CredentialStore
	issuer  *Issuer
	revoker Revoker
}

func NewService(users *CredentialStore, issuer *Issuer, revoker Revoker) *Service {
	return &Service{users: users, issuer: issuer, revoker: revoker}
}

// Login verifies the credentials and issues an access and a refresh token.
func (s *Service) Login(ctx context.Context, username, password string, agency models.Agency) (*Session, error) {
	if strings.TrimSpace(username) == "" || password == "" || agency == "" {
		return nil, apperrors.Validation("Username, password, and agency are required")
	}

	user, err := s.users.Verify(username, password, agency)
	if err != nil {
		logrus.Infof("Failed login for %q (%s)", username, agency)
		return nil, err
	}

	access, _, err := s.issuer.Issue(user, AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.issuer.Issue(user, RefreshToken)
	if err != nil {
		return nil, err
	}

	logrus.Infof("User %s (%s) logged in", user.Username, user.Agency)
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
		ExpiresIn:    int64(s.issuer.AccessTTL().Seconds()),
	}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperrors.Validation("Refresh token is required")
	}

	claims, err := s.issuer.Parse(refreshToken, RefreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	user, ok := s.users.Lookup(claims.Username)
	if !ok || !user.IsActive {
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}

	access, _, err := s.issuer.Issue(user, AccessToken)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: access,
		User:        user,
		ExpiresIn:   int64(s.issuer.AccessTTL().Seconds()),
	}, nil
}

// Authenticate verifies an access token and returns its claims. Agency,
// clearance and role come from the current users file, not the token, so a
// reload that lowers a clearance applies to tokens already issued.
func (s *Service) Authenticate(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, apperrors.Unauthorized("Access token required")
	}

	claims, err := s.issuer.Parse(raw, AccessToken)
	if err != nil {
		logrus.Debugf("Rejected token: %v", err)
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	user, ok := s.users.Lookup(claims.Username)
	if !ok || !user.IsActive {
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}
	claims.Agency = user.Agency
	claims.ClearanceLevel = user.ClearanceLevel
	claims.Role = user.Role
	return claims, nil
}

// Logout revokes the presented access token until it expires.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	logrus.Infof("User %s (%s) logged out", claims.Username, claims.Agency)
	return nil
}

func (s *Service) checkRevoked(ctx context.Context, claims *Claims) error {
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return apperrors.Unauthorized("Token has been revoked")
	}
	return nil
}
