// Package testutil provides test helpers for spinabot tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertStrings, etc.)
//   - builders.go: test data builders (NewEmail)
//   - ptr/: pointer helpers
package testutil
