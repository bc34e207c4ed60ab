package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsTerminalWriter(t *testing.T) {
	if isTerminalWriter(&bytes.Buffer{}) {
		t.Fatal("buffer is not a terminal")
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()
	if isTerminalWriter(f) {
		t.Fatal("regular file is not a terminal")
	}
}

func TestConsoleOutputWithoutTerminalHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	logger := Component("api")
	logger.Info().Msg("inbox loaded")

	out := buf.String()
	if !strings.Contains(out, "inbox loaded") || !strings.Contains(out, "component=api") {
		t.Fatalf("unexpected console output: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no ANSI escapes, got %q", out)
	}
}

func TestFromContextCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := WithContext(context.Background(), WithUser(WithRequest(Component("server"), "req-1"), 7))
	logger := FromContext(ctx)
	logger.Debug().Msg("handled")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"user_id":7`, `"component":"server"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %q", want, out)
		}
	}

	buf.Reset()
	fallback := FromContext(context.Background())
	fallback.Info().Msg("global")
	if !strings.Contains(buf.String(), `"message":"global"`) {
		t.Fatalf("expected global logger output, got %q", buf.String())
	}
}
