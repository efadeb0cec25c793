package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetup_InvalidLevel(t *testing.T) {
	if _, err := Setup(LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSetup_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobmetrics.log")

	closer, err := Setup(LogConfig{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l := WithComponent("cache")
	l.Info().Int("jobs", 3).Msg("refreshed")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{`"component":"cache"`, `"jobs":3`, `"message":"refreshed"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %s", line, want)
		}
	}
}
