// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

// Unknown marks a backend setting that nothing configured.
const Unknown = "unknown"

// Environment variables read by ResolveBackend.
const (
	EnvBackendNetwork     = "HEARTH_BACKEND_NETWORK"
	EnvBackendAddress     = "HEARTH_BACKEND_ADDRESS"
	EnvBackendEndpoint    = "HEARTH_BACKEND_ENDPOINT"
	EnvSecondaryInitToken = "HEARTH_SECONDARY_INIT_TOKEN"
)

// Where a backend setting came from.
const (
	SourceEnvironment = "environment"
	SourceConfig      = "config"
	SourceMetadata    = "metadata"
	SourceNone        = "none"
)

// Backend is the resolved backend identity. String fields hold Unknown
// when unset.
type Backend struct {
	Network  string
	Address  string
	Endpoint string

	// AddressSource is one of the Source constants.
	AddressSource string

	secondaryInitToken string
}

// SecondaryInitToken returns the token and whether one is configured.
func (b Backend) SecondaryInitToken() (string, bool) {
	return b.secondaryInitToken, b.secondaryInitToken != ""
}

// HasAddress reports whether an address was configured.
func (b Backend) HasAddress() bool {
	return b.Address != Unknown
}

// DialAddress returns the address for dialing, or "" when unknown.
func (b Backend) DialAddress() string {
	if b.Address == Unknown {
		return ""
	}
	return b.Address
}

// ResolveBackend reads the backend settings. getenv is usually
// os.Getenv. The environment wins, then cfg.SocketPath for the
// address, then the metadata file for anything still unset. A metadata
// file that exists but does not parse is returned as an error together
// with the settings resolved so far.
func ResolveBackend(getenv func(string) string, cfg BackendConfig, metadata *MetadataSource) (Backend, error) {
	backend := Backend{
		Network:            orUnknown(getenv(EnvBackendNetwork)),
		Address:            orUnknown(getenv(EnvBackendAddress)),
		Endpoint:           orUnknown(getenv(EnvBackendEndpoint)),
		AddressSource:      SourceEnvironment,
		secondaryInitToken: getenv(EnvSecondaryInitToken),
	}
	if backend.Address != Unknown {
		return backend, nil
	}

	backend.AddressSource = SourceNone
	if cfg.SocketPath != "" {
		backend.Address = cfg.SocketPath
		backend.AddressSource = SourceConfig
	}
	if metadata == nil {
		return backend, nil
	}

	fallback, found, err := metadata.Get()
	if err != nil || !found {
		return backend, err
	}
	if backend.Address == Unknown && fallback.Address != "" {
		backend.Address = fallback.Address
		backend.AddressSource = SourceMetadata
	}
	if backend.Network == Unknown && fallback.Network != "" {
		backend.Network = fallback.Network
	}
	if backend.Endpoint == Unknown && fallback.Endpoint != "" {
		backend.Endpoint = fallback.Endpoint
	}
	return backend, nil
}

func orUnknown(value string) string {
	if value == "" {
		return Unknown
	}
	return value
}
