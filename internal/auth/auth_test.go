package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kenya-ifp/fusion-api/internal/apperrors"
	"github.com/kenya-ifp/fusion-api/internal/models"
)

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func writeUsers(t *testing.T, path string, entries ...string) {
	t.Helper()
	content := "users:\n"
	for _, e := range entries {
		content += e
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func userEntry(username, agency, clearance, hash string, active bool) string {
	return fmt.Sprintf("  - username: %s\n    agency: %s\n    clearance_level: %s\n    role: ANALYST\n    is_active: %t\n    password_hash: %q\n",
		username, agency, clearance, active, hash)
}

func newTestStore(t *testing.T) (*CredentialStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.yaml")
	hash := hashFor(t, "correct horse")
	writeUsers(t, path,
		userEntry("analyst", "NIS", "SECRET", hash, true),
		userEntry("retired", "DCI", "CONFIDENTIAL", hash, false),
	)
	store, err := NewCredentialStore(path, "")
	require.NoError(t, err)
	return store, path
}

func TestCredentialStore_Verify(t *testing.T) {
	store, _ := newTestStore(t)

	tests := []struct {
		name     string
		username string
		password string
		agency   models.Agency
		ok       bool
	}{
		{"valid", "analyst", "correct horse", models.AgencyNIS, true},
		{"username is case insensitive", "ANALYST", "correct horse", models.AgencyNIS, true},
		{"wrong password", "analyst", "battery staple", models.AgencyNIS, false},
		{"wrong agency", "analyst", "correct horse", models.AgencyDCI, false},
		{"inactive", "retired", "correct horse", models.AgencyDCI, false},
		{"unknown", "ghost", "correct horse", models.AgencyNIS, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := store.Verify(tt.username, tt.password, tt.agency)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, models.Secret, user.ClearanceLevel)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
			assert.Equal(t, "Invalid credentials", apperrors.PublicMessage(err))
		})
	}
}

func TestCredentialStore_SeedsWhenFileMissing(t *testing.T) {
	store, err := NewCredentialStore(filepath.Join(t.TempDir(), "absent.yaml"), "demo-pass")
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count())

	user, err := store.Verify("dci_operator", "demo-pass", models.AgencyDCI)
	require.NoError(t, err)
	assert.Equal(t, models.Confidential, user.ClearanceLevel)
	assert.Equal(t, "OPERATOR", user.Role)

	empty, err := NewCredentialStore(filepath.Join(t.TempDir(), "absent.yaml"), "")
	require.NoError(t, err)
	assert.Zero(t, empty.Count())
}

func TestCredentialStore_ReloadKeepsAccountsOnError(t *testing.T) {
	store, path := newTestStore(t)

	writeUsers(t, path, userEntry("intruder", "CIA", "SECRET", "x", true))
	require.Error(t, store.Reload())

	_, ok := store.Lookup("analyst")
	assert.True(t, ok)
	_, ok = store.Lookup("intruder")
	assert.False(t, ok)
}

func TestCredentialStore_Watch(t *testing.T) {
	store, path := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeUsers(t, path, userEntry("newcomer", "KRA", "RESTRICTED", hashFor(t, "pw"), true))

	assert.Eventually(t, func() bool {
		_, ok := store.Lookup("newcomer")
		return ok
	}, 5*time.Second, 50*time.Millisecond)
}

func TestIssuer(t *testing.T) {
	user := models.User{ID: "u1", Username: "analyst", Agency: models.AgencyNIS, ClearanceLevel: models.Secret, Role: "ANALYST"}
	issuer := NewIssuer("secret", 15*time.Minute, time.Hour)

	t.Run("round trip", func(t *testing.T) {
		raw, issued, err := issuer.Issue(user, AccessToken)
		require.NoError(t, err)

		claims, err := issuer.Parse(raw, AccessToken)
		require.NoError(t, err)
		assert.Equal(t, issued.ID, claims.ID)
		assert.Equal(t, models.Secret, claims.ClearanceLevel)
		assert.Equal(t, models.AgencyNIS, claims.Agency)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("wrong type", func(t *testing.T) {
		raw, _, err := issuer.Issue(user, RefreshToken)
		require.NoError(t, err)
		_, err = issuer.Parse(raw, AccessToken)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		raw, _, err := NewIssuer("other", time.Minute, time.Minute).Issue(user, AccessToken)
		require.NoError(t, err)
		_, err = issuer.Parse(raw, AccessToken)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewIssuer("secret", time.Minute, time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		raw, _, err := past.Issue(user, AccessToken)
		require.NoError(t, err)
		_, err = issuer.Parse(raw, AccessToken)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("unsigned", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{TokenType: AccessToken}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(raw, AccessToken)
		assert.Error(t, err)
	})
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	revoker := NewMemoryRevoker()

	require.NoError(t, revoker.Revoke(ctx, "live", time.Now().Add(time.Minute)))
	require.NoError(t, revoker.Revoke(ctx, "stale", time.Now().Add(-time.Minute)))

	revoked, err := revoker.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = revoker.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestService_LoginRefreshLogout(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	svc := NewService(store, NewIssuer("secret", 15*time.Minute, time.Hour), NewMemoryRevoker())

	_, err := svc.Login(ctx, "", "x", models.AgencyNIS)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = svc.Login(ctx, "analyst", "wrong", models.AgencyNIS)
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	session, err := svc.Login(ctx, "analyst", "correct horse", models.AgencyNIS)
	require.NoError(t, err)
	assert.Equal(t, int64(900), session.ExpiresIn)
	assert.NotEmpty(t, session.RefreshToken)

	claims, err := svc.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "analyst", claims.Username)

	_, err = svc.Authenticate(ctx, session.RefreshToken)
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	refreshed, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Empty(t, refreshed.RefreshToken)

	_, err = svc.Refresh(ctx, session.AccessToken)
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	require.NoError(t, svc.Logout(ctx, claims))
	_, err = svc.Authenticate(ctx, session.AccessToken)
	require.Error(t, err)
	assert.Equal(t, "Token has been revoked", apperrors.PublicMessage(err))

	_, err = svc.Authenticate(ctx, refreshed.AccessToken)
	assert.NoError(t, err)
}

func TestService_AuthenticateUsesCurrentClearance(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t)
	svc := NewService(store, NewIssuer("secret", 15*time.Minute, time.Hour), NewMemoryRevoker())

	session, err := svc.Login(ctx, "analyst", "correct horse", models.AgencyNIS)
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.Secret, claims.ClearanceLevel)

	writeUsers(t, path, userEntry("analyst", "NIS", "RESTRICTED", hashFor(t, "correct horse"), true))
	require.NoError(t, store.Reload())

	claims, err = svc.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.Restricted, claims.ClearanceLevel)
	assert.Equal(t, models.AgencyNIS, claims.Agency)

	writeUsers(t, path, userEntry("analyst", "NIS", "RESTRICTED", hashFor(t, "correct horse"), false))
	require.NoError(t, store.Reload())

	_, err = svc.Authenticate(ctx, session.AccessToken)
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFrom(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{Username: "analyst"})
	claims, ok := ClaimsFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "analyst", claims.Username)
}
