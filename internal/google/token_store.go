package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/oauth2"
)

// DefaultAccount is the token storage key used when no account is given.
const DefaultAccount = "default"

// ErrNoToken is returned when no usable token is stored for an account.
var ErrNoToken = errors.New("no stored Google token")

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// TokenRecord is a stored token together with the scopes it was granted for.
type TokenRecord struct {
	Token  *oauth2.Token `json:"token"`
	Scopes []string      `json:"scopes"`
}

// TokenStore persists token records per account.
type TokenStore interface {
	Load(account string) (*TokenRecord, error)
	Save(account string, rec *TokenRecord) error
}

// FileTokenStore keeps one JSON file per account in a directory.
type FileTokenStore struct {
	Dir string
}

// NewFileTokenStore creates a store under dir. An empty dir uses
// <user cache dir>/workdigest.
func NewFileTokenStore(dir string) (*FileTokenStore, error) {
	if dir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate user cache directory: %w", err)
		}
		dir = filepath.Join(cache, "workdigest")
	}
	return &FileTokenStore{Dir: dir}, nil
}

// Path returns the token file of account.
func (s *FileTokenStore) Path(account string) string {
	return filepath.Join(s.Dir, account+".token")
}

// Load reads the record of account. A missing file yields ErrNoToken.
func (s *FileTokenStore) Load(account string) (*TokenRecord, error) {
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(account))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for account %q", ErrNoToken, account)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var rec TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", s.Path(account), err)
	}
	if rec.Token == nil {
		return nil, fmt.Errorf("%w for account %q", ErrNoToken, account)
	}
	return &rec, nil
}

// Save writes the record of account with owner-only permissions.
func (s *FileTokenStore) Save(account string, rec *TokenRecord) error {
	if err := ValidateAccountName(account); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	tmp := s.Path(account) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, s.Path(account)); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// ValidateAccountName accepts letters, digits, hyphens and underscores.
func ValidateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, hyphens and underscores are allowed", account)
	}
	return nil
}
