// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"os"
	"testing"
)

// SkipIfNoNetwork skips tests that bind loopback listeners (httptest
// servers) when CLOSETMAIL_TEST_SKIP_NETWORK is set, as in sandboxes
// without socket access.
func SkipIfNoNetwork(t testing.TB) {
	t.Helper()
	if os.Getenv("CLOSETMAIL_TEST_SKIP_NETWORK") != "" {
		t.Skip("skipping network test: CLOSETMAIL_TEST_SKIP_NETWORK is set")
	}
}
