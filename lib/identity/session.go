// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// ErrNoSession is returned by Store.Load when no session file exists.
var ErrNoSession = errors.New("no session")

// Session is the on-disk sign-in record.
type Session struct {
	Principal string `json:"principal"`
	Token     string `json:"token"`
}

// Store reads and writes the session file. When KeyPath names an age
// X25519 identity file, the session is encrypted to that identity's
// recipient; otherwise it is plain JSON.
type Store struct {
	Path    string
	KeyPath string
}

// Load reads the session. A missing file yields ErrNoSession.
func (s *Store) Load() (Session, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("reading session file %s: %w", s.Path, err)
	}

	if s.KeyPath != "" {
		identities, err := s.identities()
		if err != nil {
			return Session{}, err
		}
		reader, err := age.Decrypt(bytes.NewReader(data), identities...)
		if err != nil {
			return Session{}, fmt.Errorf("decrypting session file %s: %w", s.Path, err)
		}
		if data, err = io.ReadAll(reader); err != nil {
			return Session{}, fmt.Errorf("reading decrypted session: %w", err)
		}
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("parsing session file %s: %w", s.Path, err)
	}
	if session.Principal == "" {
		return Session{}, fmt.Errorf("session file %s has no principal", s.Path)
	}
	return session, nil
}

// Save writes session atomically with mode 0600, creating the parent
// directory with mode 0700.
func (s *Store) Save(session Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	data = append(data, '\n')

	if s.KeyPath != "" {
		if data, err = s.encrypt(data); err != nil {
			return err
		}
	}

	directory := filepath.Dir(s.Path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", directory, err)
	}
	temporary, err := os.CreateTemp(directory, ".session-*")
	if err != nil {
		return fmt.Errorf("creating temporary session file: %w", err)
	}
	defer os.Remove(temporary.Name())

	if err := temporary.Chmod(0600); err != nil {
		temporary.Close()
		return fmt.Errorf("setting session file mode: %w", err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("closing session file: %w", err)
	}
	if err := os.Rename(temporary.Name(), s.Path); err != nil {
		return fmt.Errorf("installing session file %s: %w", s.Path, err)
	}
	return nil
}

// Remove deletes the session file. A missing file is not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file %s: %w", s.Path, err)
	}
	return nil
}

func (s *Store) identities() ([]age.Identity, error) {
	keyFile, err := os.Open(s.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("opening session key %s: %w", s.KeyPath, err)
	}
	defer keyFile.Close()
	identities, err := age.ParseIdentities(keyFile)
	if err != nil {
		return nil, fmt.Errorf("parsing session key %s: %w", s.KeyPath, err)
	}
	return identities, nil
}

func (s *Store) encrypt(plaintext []byte) ([]byte, error) {
	identities, err := s.identities()
	if err != nil {
		return nil, err
	}
	var recipients []age.Recipient
	for _, candidate := range identities {
		if x25519, ok := candidate.(*age.X25519Identity); ok {
			recipients = append(recipients, x25519.Recipient())
		}
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("session key %s holds no X25519 identity", s.KeyPath)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("encrypting session: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing session encryption: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// GenerateKey writes a new age X25519 identity to path with mode 0600.
// `hearth login --generate-key` uses it.
func GenerateKey(path string) error {
	key, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating session key: %w", err)
	}
	content := fmt.Sprintf("# public key: %s\n%s\n", key.Recipient(), key)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing session key %s: %w", path, err)
	}
	return nil
}
