// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/hearth/lib/clock"
	"github.com/bureau-foundation/hearth/lib/codec"
	"github.com/bureau-foundation/hearth/lib/config"
	"github.com/bureau-foundation/hearth/lib/health"
	"github.com/bureau-foundation/hearth/lib/startup"
)

const (
	magic         = "HEARTHDX"
	formatVersion = 1

	// maxDocumentSize bounds the size a header may claim.
	maxDocumentSize = 64 << 20
)

// ErrNotBundle is returned by Read for input that does not start with
// the bundle magic.
var ErrNotBundle = errors.New("not a hearth diagnostics bundle")

// Bundle is one recorded startup run.
type Bundle struct {
	RunID     uuid.UUID       `cbor:"run_id"`
	CreatedAt time.Time       `cbor:"created_at"`
	Version   string          `cbor:"version"`
	Timeouts  config.Timeouts `cbor:"timeouts"`

	// Probe is the standalone health probe taken alongside the run.
	Probe *health.Result `cbor:"probe,omitempty"`

	Entries []Entry `cbor:"entries"`
}

// Entry is one published snapshot and when it arrived.
type Entry struct {
	At       time.Time        `cbor:"at"`
	Snapshot startup.Snapshot `cbor:"snapshot"`
}

// Final returns the last recorded snapshot.
func (b *Bundle) Final() (startup.Snapshot, bool) {
	if len(b.Entries) == 0 {
		return startup.Snapshot{}, false
	}
	return b.Entries[len(b.Entries)-1].Snapshot, true
}

// Recorder accumulates a Bundle. It is safe for concurrent use.
type Recorder struct {
	clock clock.Clock

	mu     sync.Mutex
	bundle Bundle
}

// NewRecorder starts a bundle with a fresh run ID.
func NewRecorder(clk clock.Clock, version string, timeouts config.Timeouts) *Recorder {
	if clk == nil {
		clk = clock.Real()
	}
	return &Recorder{
		clock: clk,
		bundle: Bundle{
			RunID:     uuid.New(),
			CreatedAt: clk.Now().UTC(),
			Version:   version,
			Timeouts:  timeouts,
		},
	}
}

// RunID returns the run ID, for correlating logs with the bundle.
func (r *Recorder) RunID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bundle.RunID
}

// Record appends snapshot.
func (r *Recorder) Record(snapshot startup.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundle.Entries = append(r.bundle.Entries, Entry{At: r.clock.Now().UTC(), Snapshot: snapshot})
}

// SetProbe stores the standalone probe result.
func (r *Recorder) SetProbe(result health.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundle.Probe = &result
}

// Bundle returns a copy of what has been recorded so far.
func (r *Recorder) Bundle() Bundle {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := r.bundle
	copied.Entries = append([]Entry(nil), r.bundle.Entries...)
	if r.bundle.Probe != nil {
		probe := *r.bundle.Probe
		copied.Probe = &probe
	}
	return copied
}

// Write encodes b to w. If the payload does not shrink under the
// requested compression it is stored uncompressed.
func Write(w io.Writer, b Bundle, compression Compression) error {
	document, err := codec.Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}

	payload, err := compress(document, compression)
	if errors.Is(err, errIncompressible) {
		payload, compression = document, CompressionNone
	} else if err != nil {
		return err
	}

	header := make([]byte, 0, len(magic)+2+binary.MaxVarintLen64)
	header = append(header, magic...)
	header = append(header, formatVersion, byte(compression))
	header = binary.AppendUvarint(header, uint64(len(document)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("writing bundle header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing bundle payload: %w", err)
	}
	return nil
}

// Read decodes a bundle written by Write.
func Read(r io.Reader) (Bundle, error) {
	reader := bufio.NewReader(r)

	prefix := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(reader, prefix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Bundle{}, ErrNotBundle
		}
		return Bundle{}, fmt.Errorf("reading bundle header: %w", err)
	}
	if !bytes.Equal(prefix[:len(magic)], []byte(magic)) {
		return Bundle{}, ErrNotBundle
	}
	if version := prefix[len(magic)]; version != formatVersion {
		return Bundle{}, fmt.Errorf("unsupported bundle format version %d", version)
	}
	compression := Compression(prefix[len(magic)+1])

	size, err := binary.ReadUvarint(reader)
	if err != nil {
		return Bundle{}, fmt.Errorf("reading bundle size: %w", err)
	}
	if size > maxDocumentSize {
		return Bundle{}, fmt.Errorf("bundle claims %d bytes, limit is %d", size, maxDocumentSize)
	}

	payload, err := io.ReadAll(io.LimitReader(reader, maxDocumentSize+1))
	if err != nil {
		return Bundle{}, fmt.Errorf("reading bundle payload: %w", err)
	}
	document, err := decompress(payload, compression, int(size))
	if err != nil {
		return Bundle{}, err
	}

	var b Bundle
	if err := codec.Unmarshal(document, &b); err != nil {
		return Bundle{}, fmt.Errorf("decoding bundle: %w", err)
	}
	return b, nil
}

// WriteFile writes b to path with owner-only permissions.
func WriteFile(path string, b Bundle, compression Compression) error {
	var buffer bytes.Buffer
	if err := Write(&buffer, b, compression); err != nil {
		return err
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing bundle: %w", err)
	}
	return nil
}

// ReadFile reads the bundle at path.
func ReadFile(path string) (Bundle, error) {
	file, err := os.Open(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("opening bundle: %w", err)
	}
	defer file.Close()
	return Read(file)
}
