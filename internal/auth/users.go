// Package auth verifies credentials against a YAML users file, issues and
// parses JWTs, and tracks revoked token ids.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/kenya-ifp/fusion-api/internal/apperrors"
	"github.com/kenya-ifp/fusion-api/internal/models"
)

const reloadDebounce = 500 * time.Millisecond

type usersFile struct {
	Users []models.User `yaml:"users"`
}

// CredentialStore holds the accounts allowed to log in. Accounts are read
// only at runtime; the store is replaced wholesale when the file changes.
type CredentialStore struct {
	mu    sync.RWMutex
	path  string
	users map[string]models.User
}

// NewCredentialStore loads users from path. When the file does not exist and
// seedPassword is set, two demo accounts are created in memory instead.
func NewCredentialStore(path, seedPassword string) (*CredentialStore, error) {
	store := &CredentialStore{path: path, users: make(map[string]models.User)}

	if _, err := os.Stat(path); err == nil {
		if err := store.Reload(); err != nil {
			return nil, err
		}
		return store, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat users file: %w", err)
	}

	if seedPassword == "" {
		logrus.Warnf("Users file %s not found and SEED_PASSWORD unset: no accounts can log in", path)
		return store, nil
	}

	seeded, err := seedUsers(seedPassword)
	if err != nil {
		return nil, err
	}
	store.replace(seeded)
	logrus.Warnf("Users file %s not found, seeded %d demo accounts", path, len(seeded))
	return store, nil
}

func seedUsers(password string) ([]models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return []models.User{
		{
			ID:             uuid.NewString(),
			Username:       "nis_analyst",
			Email:          "analyst@nis.go.ke",
			Agency:         models.AgencyNIS,
			ClearanceLevel: models.Secret,
			Role:           "ANALYST",
			IsActive:       true,
			PasswordHash:   hash,
		},
		{
			ID:             uuid.NewString(),
			Username:       "dci_operator",
			Email:          "operator@dci.go.ke",
			Agency:         models.AgencyDCI,
			ClearanceLevel: models.Confidential,
			Role:           "OPERATOR",
			IsActive:       true,
			PasswordHash:   hash,
		},
	}, nil
}

// HashPassword returns the bcrypt hash stored in the users file.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Reload re-reads the users file. On any error the current accounts are kept.
func (s *CredentialStore) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read users file: %w", err)
	}

	var file usersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse users file: %w", err)
	}

	seen := make(map[string]bool, len(file.Users))
	for i, u := range file.Users {
		key := strings.ToLower(u.Username)
		switch {
		case key == "":
			return fmt.Errorf("users[%d]: username is required", i)
		case seen[key]:
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		case !u.Agency.Valid():
			return fmt.Errorf("users[%d]: unknown agency %q", i, u.Agency)
		case !u.ClearanceLevel.Valid():
			return fmt.Errorf("users[%d]: unknown clearance level %q", i, u.ClearanceLevel)
		case u.PasswordHash == "":
			return fmt.Errorf("users[%d]: password_hash is required", i)
		}
		seen[key] = true
		if u.ID == "" {
			file.Users[i].ID = key
		}
	}

	s.replace(file.Users)
	logrus.Infof("Loaded %d accounts from %s", len(file.Users), s.path)
	return nil
}

func (s *CredentialStore) replace(users []models.User) {
	next := make(map[string]models.User, len(users))
	for _, u := range users {
		next[strings.ToLower(u.Username)] = u
	}

	s.mu.Lock()
	s.users = next
	s.mu.Unlock()
}

// Lookup returns the account for username.
func (s *CredentialStore) Lookup(username string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(username)]
	return u, ok
}

// Count returns the number of loaded accounts.
func (s *CredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Verify checks a login attempt. Every failure returns the same error so the
// caller cannot tell which part was wrong.
func (s *CredentialStore) Verify(username, password string, agency models.Agency) (models.User, error) {
	invalid := apperrors.Unauthorized("Invalid credentials")

	user, ok := s.Lookup(username)
	if !ok || !user.IsActive || !strings.EqualFold(string(user.Agency), string(agency)) {
		return models.User{}, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, invalid
	}
	return user, nil
}

// Watch reloads the users file when it changes. It watches the parent
// directory so editors that replace the file by rename are picked up.
// Blocks until ctx is cancelled.
func (s *CredentialStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", filepath.Dir(target), err)
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, func() {
					if err := s.Reload(); err != nil {
						logrus.Errorf("Users file reload failed: %v", err)
					}
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logrus.Errorf("Users file watcher error: %v", err)
		}
	}
}
