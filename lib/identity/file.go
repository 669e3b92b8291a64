// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/hearth/lib/clock"
)

// settleDelay coalesces the burst of events an atomic rewrite produces.
const settleDelay = 50 * time.Millisecond

// pollTimeoutMilliseconds bounds how long the watcher goes without
// checking for shutdown.
const pollTimeoutMilliseconds = 100

// FileProvider is a Provider backed by a session file. It reports
// Initializing until Start has loaded the file once.
type FileProvider struct {
	store  *Store
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	loaded   bool
	session  Session
	changes  chan struct{}
	watching bool
}

// NewFileProvider returns a provider over store. A nil clk means the
// real clock.
func NewFileProvider(store *Store, clk clock.Clock, logger *slog.Logger) *FileProvider {
	if clk == nil {
		clk = clock.Real()
	}
	return &FileProvider{
		store:   store,
		clock:   clk,
		logger:  logger,
		changes: make(chan struct{}, 1),
	}
}

// Start loads the session in the background and then watches the
// session file's directory until ctx ends. The first load completing
// is the end of bootstrap.
func (p *FileProvider) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.watching {
		p.mu.Unlock()
		return errors.New("identity: FileProvider already started")
	}
	p.watching = true
	p.mu.Unlock()

	directory := filepath.Dir(p.store.Path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", directory, err)
	}
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return fmt.Errorf("initializing inotify: %w", err)
	}
	mask := uint32(unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_MOVED_FROM | unix.IN_DELETE)
	if _, err := unix.InotifyAddWatch(fd, directory, mask); err != nil {
		unix.Close(fd)
		return fmt.Errorf("watching %s: %w", directory, err)
	}

	go func() {
		defer unix.Close(fd)
		p.reload()
		p.watch(ctx, fd, filepath.Base(p.store.Path))
	}()
	return nil
}

// reload re-reads the session file and signals if the principal or
// token changed, or if this is the first load.
func (p *FileProvider) reload() {
	session, err := p.store.Load()
	switch {
	case errors.Is(err, ErrNoSession):
		session = Session{}
	case err != nil:
		p.logger.Warn("session file unreadable, treating as signed out", "error", err)
		session = Session{}
	}

	p.mu.Lock()
	changed := !p.loaded || session != p.session
	p.loaded = true
	previous := p.session
	p.session = session
	p.mu.Unlock()

	if changed {
		p.logger.Info("session changed",
			"previous", Fingerprint(previous.Principal),
			"current", Fingerprint(session.Principal),
		)
		notify(p.changes)
	}
}

func (p *FileProvider) watch(ctx context.Context, fd int, filename string) {
	buffer := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			return
		}

		descriptors := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		count, err := unix.Poll(descriptors, pollTimeoutMilliseconds)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			p.logger.Error("session watcher stopped", "error", err)
			return
		}
		if count == 0 {
			continue
		}

		bytesRead, err := unix.Read(fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			p.logger.Error("session watcher stopped", "error", err)
			return
		}
		if !eventsName(buffer[:bytesRead], filename) {
			continue
		}

		p.clock.Sleep(settleDelay)
		drain(fd, buffer)
		p.reload()
	}
}

// eventsName reports whether any inotify event in buffer names
// filename. Event layout is struct inotify_event from inotify(7): a
// 16-byte header whose last uint32 is the padded name length.
func eventsName(buffer []byte, filename string) bool {
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			return false
		}
		name := buffer[offset+unix.SizeofInotifyEvent : offset+eventSize]
		for i, b := range name {
			if b == 0 {
				name = name[:i]
				break
			}
		}
		if string(name) == filename {
			return true
		}
		offset += eventSize
	}
	return false
}

func drain(fd int, buffer []byte) {
	for {
		if _, err := unix.Read(fd, buffer); err != nil {
			return
		}
	}
}

func (p *FileProvider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{Initializing: !p.loaded, Principal: p.session.Principal}
}

func (p *FileProvider) Identity() (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded || p.session.Principal == "" {
		return Identity{}, false
	}
	return Identity{Principal: p.session.Principal, Token: p.session.Token}, true
}

// Clear removes the session file and signs out immediately, without
// waiting for the watcher to notice.
func (p *FileProvider) Clear(context.Context) error {
	if err := p.store.Remove(); err != nil {
		return err
	}
	p.mu.Lock()
	changed := p.session.Principal != ""
	p.session = Session{}
	p.loaded = true
	p.mu.Unlock()
	if changed {
		notify(p.changes)
	}
	return nil
}

func (p *FileProvider) Changes() <-chan struct{} {
	return p.changes
}
