// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/tidwall/jsonc"
)

// Metadata is the fallback description of a backend deployment.
type Metadata struct {
	Network  string `json:"network"`
	Address  string `json:"address"`
	Endpoint string `json:"endpoint"`
}

// MetadataSource reads a JSONC metadata file once and serves the cached
// result until Invalidate. It is safe for concurrent use.
type MetadataSource struct {
	path string

	mu       sync.Mutex
	loaded   bool
	metadata Metadata
	found    bool
	err      error
}

// NewMetadataSource returns a source for the file at path. Nothing is
// read until the first Get.
func NewMetadataSource(path string) *MetadataSource {
	return &MetadataSource{path: path}
}

// Path returns the file the source reads.
func (s *MetadataSource) Path() string {
	return s.path
}

// Get returns the metadata and whether the file exists. A missing file
// is not an error; a malformed one is, and the error is cached like a
// success.
func (s *MetadataSource) Get() (Metadata, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.metadata, s.found, s.err = readMetadata(s.path)
		s.loaded = true
	}
	return s.metadata, s.found, s.err
}

// Invalidate drops the cached result so the next Get re-reads the
// file.
func (s *MetadataSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.metadata = Metadata{}
	s.found = false
	s.err = nil
}

func readMetadata(path string) (Metadata, bool, error) {
	if path == "" {
		return Metadata{}, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Metadata{}, false, nil
		}
		return Metadata{}, false, fmt.Errorf("reading backend metadata %s: %w", path, err)
	}
	var metadata Metadata
	if err := json.Unmarshal(jsonc.ToJSON(data), &metadata); err != nil {
		return Metadata{}, false, fmt.Errorf("parsing backend metadata %s: %w", path, err)
	}
	return metadata, true, nil
}
