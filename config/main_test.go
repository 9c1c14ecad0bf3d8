package config

import (
	"fmt"
	"os"
	"testing"
)

// TestMain refuses to run unless GO_ENV=test so a developer's real
// DATABASE_URL or .env file is never picked up by accident.
func TestMain(m *testing.M) {
	env := os.Getenv("GO_ENV")
	if env != "test" {
		fmt.Fprintf(os.Stderr, "\n"+
			"SAFETY CHECK FAILED: tests must run with GO_ENV=test (current GO_ENV: %q)\n"+
			"  GO_ENV=test go test ./...\n\n", env)
		os.Exit(1)
	}

	os.Exit(m.Run())
}
