// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

// Action names that every backend release implements.
const (
	ActionHello       = "hello"
	ActionHealthCheck = "health_check"
)

// Method is a logical call with its action names in preference order.
type Method struct {
	Name    string
	Actions []string
}

var (
	// CallerProfileMethod reads the signed-in caller's profile.
	CallerProfileMethod = Method{
		Name:    "caller profile",
		Actions: []string{"get_caller_profile", "getCallerUserProfile"},
	}

	// SecondaryInitMethod bootstraps access control.
	SecondaryInitMethod = Method{
		Name:    "secondary init",
		Actions: []string{"initialize_access_control", "initializeAccessControl"},
	}
)

// Request is the common header of every request map. Handlers decode
// the raw request into it, or into a type that embeds it.
type Request struct {
	Action string `cbor:"action"`
	Token  string `cbor:"token,omitempty"`
}

// HelloRequest opens a session against one backend endpoint.
type HelloRequest struct {
	Request
	Endpoint  string `cbor:"endpoint,omitempty"`
	Principal string `cbor:"principal,omitempty"`
}

// HelloReply confirms the endpoint the backend is serving.
type HelloReply struct {
	Endpoint string `cbor:"endpoint"`
	Version  string `cbor:"version,omitempty"`
}

// SecondaryInitRequest carries the access-control bootstrap token.
type SecondaryInitRequest struct {
	Request
	SecondaryToken string `cbor:"secondary_token"`
}

// ProfileReply wraps an optional profile so "no profile" is explicit
// on the wire.
type ProfileReply struct {
	Profile *Profile `cbor:"profile,omitempty"`
}
