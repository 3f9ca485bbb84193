package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEnvLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line   string
		key    string
		val    string
		wantOK bool
	}{
		{line: "PORT=9000", key: "PORT", val: "9000", wantOK: true},
		{line: `SESSION_SECRET="quoted value"`, key: "SESSION_SECRET", val: "quoted value", wantOK: true},
		{line: "export UPLOAD_DIR='/srv/uploads'", key: "UPLOAD_DIR", val: "/srv/uploads", wantOK: true},
		{line: "# comment", wantOK: false},
		{line: "", wantOK: false},
		{line: "NOEQUALS", wantOK: false},
		{line: "=value", wantOK: false},
	}

	for _, tt := range tests {
		key, val, ok := parseEnvLine(tt.line)
		if ok != tt.wantOK || key != tt.key || val != tt.val {
			t.Fatalf("parseEnvLine(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.line, key, val, ok, tt.key, tt.val, tt.wantOK)
		}
	}
}

func TestLoadEnvFilesKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("COPPER_TEST_A=from-file\nCOPPER_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("COPPER_TEST_A", "from-env")
	t.Setenv("COPPER_TEST_B", "")
	os.Unsetenv("COPPER_TEST_B")

	loadEnvFiles(path)

	if got := os.Getenv("COPPER_TEST_A"); got != "from-env" {
		t.Fatalf("expected existing value to win, got %q", got)
	}
	if got := os.Getenv("COPPER_TEST_B"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}
