package routinggates

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	_ = os.Setenv("GO_APP_ENV", "production")
	_ = os.Unsetenv("ROUTING_ALLOWLIST_PATH")

	os.Exit(m.Run())
}
