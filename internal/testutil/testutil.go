package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

// LoadTestEnv points DATABASE_URL at the crawl test database. CI pipelines
// set DATABASE_URL directly; local runs read TEST_DATABASE_URL from a
// .env.test file somewhere in the module tree.
func LoadTestEnv(t *testing.T) {
	t.Helper()

	if os.Getenv("DATABASE_URL") != "" {
		return
	}

	envPath := findEnvTestFile()
	if envPath == "" {
		t.Log(".env.test not found, relying on ambient environment")
		return
	}

	envMap, err := godotenv.Read(envPath)
	if err != nil {
		t.Logf("Failed to read %s: %v", envPath, err)
		return
	}

	if testDBURL, ok := envMap["TEST_DATABASE_URL"]; ok {
		os.Setenv("DATABASE_URL", testDBURL)
		t.Log("DATABASE_URL set from TEST_DATABASE_URL")
	}
}

// findEnvTestFile walks up from the working directory looking for .env.test,
// since go test runs each package from its own directory.
func findEnvTestFile() string {
	dir, _ := os.Getwd()

	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, ".env.test")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
