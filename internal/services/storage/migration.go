package storage

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// EnableEncryption encrypts every sensitive file of the data directory with
// passphrase. Files already encrypted are left alone.
func (s *Storage) EnableEncryption(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return ErrAlreadyEncrypted
	}
	if len(passphrase) < MinPassphraseLength {
		return ErrPassphraseTooShort
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("creating identity: %w", err)
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	sealed, err := encryptData([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("encrypting verification file: %w", err)
	}
	if err := os.WriteFile(verifyPath, sealed, 0644); err != nil {
		return fmt.Errorf("writing verification file: %w", err)
	}

	encrypt := func(data []byte) ([]byte, error) { return encryptData(data, recipient) }
	done, err := s.rewriteAll(func(data []byte) bool { return !isAgeEncrypted(data) }, encrypt)
	if err != nil {
		decrypt := func(data []byte) ([]byte, error) { return decryptData(data, identity) }
		for _, path := range done {
			if rerr := rewriteFile(path, decrypt); rerr != nil {
				log.Printf("Warning: rollback of %s failed: %v", filepath.Base(path), rerr)
			}
		}
		os.Remove(verifyPath)
		return err
	}

	if err := os.WriteFile(filepath.Join(s.baseDir, markerFile), []byte("encrypted"), 0644); err != nil {
		return fmt.Errorf("writing marker file: %w", err)
	}

	log.Printf("Encrypted %d files in %s", len(done), s.baseDir)
	s.encrypted = true
	s.identity = identity
	s.recipient = recipient
	return nil
}

// DisableEncryption decrypts every encrypted file after checking passphrase
func (s *Storage) DisableEncryption(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return ErrNotEncrypted
	}

	identity, _, err := s.verify(passphrase)
	if err != nil {
		return err
	}

	decrypt := func(data []byte) ([]byte, error) { return decryptData(data, identity) }
	done, err := s.rewriteAll(isAgeEncrypted, decrypt)
	if err != nil {
		return err
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(filepath.Join(s.baseDir, verifyFile))

	log.Printf("Decrypted %d files in %s", len(done), s.baseDir)
	s.encrypted = false
	s.identity = nil
	s.recipient = nil
	return nil
}

// rewriteAll applies transform in place to every sensitive file under the
// data directory whose content matches. It returns the files rewritten so
// far, even on error.
func (s *Storage) rewriteAll(match func([]byte) bool, transform func([]byte) ([]byte, error)) ([]string, error) {
	var candidates []string
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isSensitive(path) {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", s.baseDir, err)
	}

	var done []string
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			return done, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
		}
		if !match(data) {
			continue
		}
		if err := rewriteFile(path, transform); err != nil {
			return done, fmt.Errorf("rewriting %s: %w", filepath.Base(path), err)
		}
		done = append(done, path)
	}
	return done, nil
}

// rewriteFile replaces a file's content with transform(content)
func rewriteFile(path string, transform func([]byte) ([]byte, error)) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := transform(data)
	if err != nil {
		return err
	}
	return atomicWrite(path, out, info.Mode().Perm())
}

// encryptData encrypts data for recipient
func encryptData(data []byte, recipient *age.ScryptRecipient) ([]byte, error) {
	var buf bytes.Buffer

	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decryptData decrypts age-encrypted data with identity
func decryptData(data []byte, identity *age.ScryptIdentity) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
