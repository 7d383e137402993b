// Package storage gives transparent access to the data directory, whose sales
// sheets and exported reports may be encrypted at rest with an age passphrase.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"filippo.io/age"
)

const (
	// ageHeader is the prefix of age-encrypted files
	ageHeader = "age-encryption.org"

	// markerFile indicates encryption is enabled
	markerFile = ".encrypted"

	// verifyFile holds verifyMagic encrypted with the passphrase
	verifyFile  = ".encryption-verify"
	verifyMagic = `{"magic":"menusim-encryption-verify","version":1}`

	// MinPassphraseLength is the shortest passphrase EnableEncryption accepts
	MinPassphraseLength = 8
)

var (
	ErrLocked             = errors.New("storage is locked")
	ErrWrongPassphrase    = errors.New("incorrect passphrase")
	ErrAlreadyEncrypted   = errors.New("encryption is already enabled")
	ErrNotEncrypted       = errors.New("encryption is not enabled")
	ErrPassphraseTooShort = fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLength)
)

// SensitiveExtensions lists the file types that get encrypted: sales sheets,
// exported reports and saved settings.
var SensitiveExtensions = []string{".csv", ".xlsx", ".toml", ".yaml", ".yml"}

// Storage reads and writes files under one data directory
type Storage struct {
	baseDir   string
	encrypted bool
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
	mu        sync.RWMutex
}

// New opens the data directory, creating it if needed
func New(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Storage{baseDir: baseDir}
	if _, err := os.Stat(filepath.Join(baseDir, markerFile)); err == nil {
		s.encrypted = true
	}
	return s, nil
}

// BaseDir returns the data directory
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// Path resolves a name relative to the data directory. Absolute paths are
// returned unchanged.
func (s *Storage) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.baseDir, name)
}

// IsEncrypted reports whether the data directory is encrypted
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked reports whether files can be read, i.e. encryption is off or
// the passphrase has been supplied
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.identity != nil
}

// Unlock checks the passphrase against the verification file and keeps the
// derived key in memory
func (s *Storage) Unlock(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}

	identity, recipient, err := s.verify(passphrase)
	if err != nil {
		return err
	}
	s.identity = identity
	s.recipient = recipient
	return nil
}

// Lock forgets the key
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.recipient = nil
}

// ReadFile reads a file, decrypting it when it is age-encrypted
func (s *Storage) ReadFile(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, err
	}

	if isAgeEncrypted(data) {
		if s.identity == nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(name), ErrLocked)
		}
		return decryptData(data, s.identity)
	}
	return data, nil
}

// WriteFile writes a file atomically, encrypting sensitive files when
// encryption is enabled
func (s *Storage) WriteFile(name string, data []byte, perm os.FileMode) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.Path(name)
	if s.encrypted && isSensitive(path) {
		if s.recipient == nil {
			return fmt.Errorf("writing %s: %w", filepath.Base(path), ErrLocked)
		}
		encrypted, err := encryptData(data, s.recipient)
		if err != nil {
			return fmt.Errorf("encrypting %s: %w", filepath.Base(path), err)
		}
		data = encrypted
	}

	return atomicWrite(path, data, perm)
}

// List returns the sensitive files of the data directory, sorted by name.
// Control files and sub-directories are skipped.
func (s *Storage) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !isSensitive(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(s.baseDir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Stat returns file info for a name in the data directory
func (s *Storage) Stat(name string) (os.FileInfo, error) {
	return os.Stat(s.Path(name))
}

// IsFileEncrypted reports whether a file on disk is age-encrypted
func (s *Storage) IsFileEncrypted(name string) bool {
	f, err := os.Open(s.Path(name))
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, len(ageHeader)+1)
	n, _ := io.ReadFull(f, buf)
	return isAgeEncrypted(buf[:n])
}

// Remove deletes a file from the data directory
func (s *Storage) Remove(name string) error {
	return os.Remove(s.Path(name))
}

// verify derives the age identity and recipient for passphrase and checks
// them against the verification file. Callers hold s.mu.
func (s *Storage) verify(passphrase string) (*age.ScryptIdentity, *age.ScryptRecipient, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("creating identity: %w", err)
	}

	encrypted, err := os.ReadFile(filepath.Join(s.baseDir, verifyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("reading verification file: %w", err)
	}

	decrypted, err := decryptData(encrypted, identity)
	if err != nil || string(decrypted) != verifyMagic {
		return nil, nil, ErrWrongPassphrase
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("creating recipient: %w", err)
	}
	return identity, recipient, nil
}

// atomicWrite writes to a temp file then renames it over path
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// isSensitive reports whether a file should be encrypted at rest
func isSensitive(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range SensitiveExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// isAgeEncrypted checks for the age header
func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}
