// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package failure

import "strings"

// GenericMessage is shown for Unknown failures whose text is not worth
// repeating to the user.
const GenericMessage = "An unexpected error occurred. Please try again."

// maxPreservedLength bounds how much raw Unknown text reaches the user.
const maxPreservedLength = 300

var templates = map[Category]string{
	StoppedBackend:  "The care-home backend is currently stopped. Please contact your administrator or try again later.",
	NotFound:        "The care-home backend could not be found. It may not be deployed yet; check the configured backend address.",
	Network:         "Unable to reach the care-home backend. Check your network connection and try again.",
	Timeout:         "The care-home backend took too long to respond. Please try again.",
	AnonymousAccess: "You need to sign in before the care-home backend will answer.",
	Authorization:   "You do not have permission to perform this action.",
	NonFatal:        "The backend reported a condition that does not affect startup.",
}

const adminOnlyMessage = "This action requires administrator access. Ask a care-home administrator to complete it."

// placeholders are error texts that carry no information.
var placeholders = map[string]bool{
	"error":          true,
	"unknown":        true,
	"unknown error":  true,
	"internal error": true,
	"failed":         true,
	"undefined":      true,
	"null":           true,
	"<nil>":          true,
}

// Classification is the full rendering of one failure.
type Classification struct {
	Category  Category `json:"category"`
	Message   string   `json:"message"`
	AdminOnly bool     `json:"admin_only,omitempty"`
}

// Describe classifies err and renders its message.
func Describe(err error) Classification {
	category := Classify(err)
	return Classification{
		Category:  category,
		Message:   render(category, err),
		AdminOnly: category == Authorization && isAdminOnly(err),
	}
}

// Message returns the user-facing message for err.
func Message(err error) string {
	return render(Classify(err), err)
}

func render(category Category, err error) string {
	switch category {
	case Authorization:
		if isAdminOnly(err) {
			return adminOnlyMessage
		}
	case Unknown:
		if err != nil && descriptive(err.Error()) {
			return strings.TrimSpace(err.Error())
		}
		return GenericMessage
	}
	return templates[category]
}

func descriptive(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || len(trimmed) > maxPreservedLength {
		return false
	}
	return !placeholders[strings.ToLower(trimmed)]
}
