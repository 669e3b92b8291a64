// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError asks for a non-zero exit without an "error:" line. The
// command has already written its own output; "hearth status" and
// "hearth doctor" use it to report a startup that did not reach Ready.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode satisfies the interface process.Report checks for.
func (e *ExitError) ExitCode() int {
	return e.Code
}
