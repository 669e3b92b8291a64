// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"sync"
)

// Static is an in-memory Provider. Tests drive it directly; the
// headless commands use it when the identity comes from flags.
type Static struct {
	mu           sync.Mutex
	initializing bool
	identity     Identity
	clearErr     error
	changes      chan struct{}
}

// NewStatic returns a provider that is still initializing.
func NewStatic() *Static {
	return &Static{initializing: true, changes: make(chan struct{}, 1)}
}

// NewStaticSignedIn returns a provider that has already resolved to
// id.
func NewStaticSignedIn(id Identity) *Static {
	return &Static{identity: id, changes: make(chan struct{}, 1)}
}

// SignIn resolves the provider to id.
func (s *Static) SignIn(id Identity) {
	s.mu.Lock()
	s.initializing = false
	s.identity = id
	s.mu.Unlock()
	notify(s.changes)
}

// SignOut resolves the provider to signed out.
func (s *Static) SignOut() {
	s.SignIn(Identity{})
}

// FailClear makes subsequent Clear calls return err without signing
// out.
func (s *Static) FailClear(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearErr = err
}

func (s *Static) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Initializing: s.initializing, Principal: s.identity.Principal}
}

func (s *Static) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initializing || s.identity.Principal == "" {
		return Identity{}, false
	}
	return s.identity, true
}

func (s *Static) Clear(context.Context) error {
	s.mu.Lock()
	if s.clearErr != nil {
		err := s.clearErr
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.SignOut()
	return nil
}

func (s *Static) Changes() <-chan struct{} {
	return s.changes
}
