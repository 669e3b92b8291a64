// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package failure

// Category is the semantic class of a failure. Values are stable
// strings because they appear in status output and diagnostics
// bundles.
type Category string

const (
	// StoppedBackend means the backend process is administratively
	// stopped. Retrying will not help until an operator restarts it.
	StoppedBackend Category = "stopped_backend"

	// NotFound means the configured backend address does not exist or
	// was never deployed.
	NotFound Category = "not_found"

	// Network is a transport failure: refused, reset, or unreachable.
	Network Category = "network"

	// Timeout means a deadline elapsed before the backend answered.
	Timeout Category = "timeout"

	// AnonymousAccess means the call carried no identity at all.
	AnonymousAccess Category = "anonymous_access"

	// Authorization means the caller is signed in but lacks permission.
	Authorization Category = "authorization"

	// NonFatal covers benign conditions such as repeated
	// initialization. These never block startup.
	NonFatal Category = "non_fatal"

	// Unknown is everything else.
	Unknown Category = "unknown"
)

// Categories lists every category in classification priority order.
var Categories = []Category{
	StoppedBackend,
	NotFound,
	Network,
	Timeout,
	AnonymousAccess,
	Authorization,
	NonFatal,
	Unknown,
}

// Title returns the short heading shown above an error message.
func (c Category) Title() string {
	switch c {
	case StoppedBackend:
		return "Backend stopped"
	case NotFound:
		return "Backend not found"
	case Network:
		return "Network error"
	case Timeout:
		return "Connection timed out"
	case AnonymousAccess:
		return "Sign-in required"
	case Authorization:
		return "Access denied"
	case NonFatal:
		return "Notice"
	default:
		return "Connection failed"
	}
}
