package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hfi/betabet/internal/audit"
	"github.com/hfi/betabet/internal/config"
	"github.com/hfi/betabet/pkg/cipher"
)

type cliOutput struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// withCLI redirects the CLI streams and points CONFIG_PATH at a missing file
// so the defaults apply.
func withCLI(t *testing.T, input string) *cliOutput {
	t.Helper()
	out := &cliOutput{}

	prevIn, prevOut, prevErr, prevClip := stdin, stdout, stderr, writeClipboard
	stdin = strings.NewReader(input)
	stdout = &out.stdout
	stderr = &out.stderr
	t.Cleanup(func() {
		stdin, stdout, stderr, writeClipboard = prevIn, prevOut, prevErr, prevClip
	})

	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	return out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunEncrypt(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		input string
		want  string
	}{
		{"arguments", []string{"encrypt", "HELLO"}, "", "MEVVI\n"},
		{"arguments are joined", []string{"encrypt", "HELLO", "WORLD"}, "", "MEVVI ZIKVD\n"},
		{"stdin", []string{"encrypt"}, "Hello\n", "Mevvi\n"},
		{"stdin with crlf", []string{"encrypt"}, "TEST 123!\r\n", "OEQO 315!\n"},
		{"umlauts", []string{"encrypt", "Größe"}, "", "Lkä_e\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := withCLI(t, tt.input)

			if code := run(tt.args); code != 0 {
				t.Fatalf("exit code = %d, want 0 (stderr %q)", code, out.stderr.String())
			}
			if got := out.stdout.String(); got != tt.want {
				t.Errorf("stdout = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunDecrypt(t *testing.T) {
	out := withCLI(t, "MEVVI ZIKVD\n")

	if code := run([]string{"decrypt"}); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if got := out.stdout.String(); got != "HELLO WORLD\n" {
		t.Errorf("stdout = %q, want %q", got, "HELLO WORLD\n")
	}
}

func TestRunEncrypt_NFC(t *testing.T) {
	decomposed := "Gro\u0308\u00dfe"

	out := withCLI(t, "")
	if code := run([]string{"encrypt", "-nfc", decomposed}); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if got := out.stdout.String(); got != "Lkä_e\n" {
		t.Errorf("stdout = %q, want %q", got, "Lkä_e\n")
	}
}

func TestRunEncrypt_MappingFile(t *testing.T) {
	path := writeFile(t, "digits.yaml", "\"1\": \"3\"\n\"2\": \"1\"\n\"3\": \"5\"\n")

	out := withCLI(t, "")
	if code := run([]string{"encrypt", "-mapping", path, "123", "abc"}); code != 0 {
		t.Fatalf("exit code = %d, want 0 (stderr %q)", code, out.stderr.String())
	}
	if got := out.stdout.String(); got != "315 abc\n" {
		t.Errorf("stdout = %q, want %q", got, "315 abc\n")
	}
}

func TestRunEncrypt_IrreversibleMappingWarns(t *testing.T) {
	path := writeFile(t, "lossy.toml", "A = \"B\"\nX = \"B\"\n")

	out := withCLI(t, "")
	if code := run([]string{"encrypt", "-mapping", path, "AX"}); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if got := out.stdout.String(); got != "BB\n" {
		t.Errorf("stdout = %q, want %q", got, "BB\n")
	}
	if !strings.Contains(out.stderr.String(), "mapping is not reversible") {
		t.Errorf("stderr = %q, want reversibility warning", out.stderr.String())
	}
}

func TestRunEncrypt_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"unknown flag", []string{"encrypt", "-bogus"}, 2},
		{"missing mapping file", []string{"encrypt", "-mapping", "/nonexistent/table.yaml", "x"}, 1},
		{"unsupported format", []string{"decrypt", "-mapping", "table.json", "x"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := withCLI(t, "")

			if code := run(tt.args); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if out.stdout.Len() != 0 {
				t.Errorf("stdout = %q, want empty", out.stdout.String())
			}
		})
	}
}

func TestRunEncrypt_Copy(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		out := withCLI(t, "")
		var copied string
		writeClipboard = func(text string) error {
			copied = text
			return nil
		}

		if code := run([]string{"encrypt", "-copy", "HELLO"}); code != 0 {
			t.Fatalf("exit code = %d, want 0", code)
		}
		if copied != "MEVVI" {
			t.Errorf("clipboard = %q, want %q", copied, "MEVVI")
		}
		if out.stderr.Len() != 0 {
			t.Errorf("stderr = %q, want empty", out.stderr.String())
		}
	})

	t.Run("failure keeps exit code", func(t *testing.T) {
		out := withCLI(t, "")
		writeClipboard = func(string) error {
			return errors.New("no clipboard utilities available")
		}

		if code := run([]string{"encrypt", "-copy", "HELLO"}); code != 0 {
			t.Fatalf("exit code = %d, want 0", code)
		}
		if got := out.stdout.String(); got != "MEVVI\n" {
			t.Errorf("stdout = %q, want %q", got, "MEVVI\n")
		}
		if !strings.Contains(out.stderr.String(), "unable to copy result to clipboard") {
			t.Errorf("stderr = %q, want clipboard warning", out.stderr.String())
		}
		if !strings.Contains(out.stderr.String(), "clipboard_failed") {
			t.Errorf("stderr = %q, want clipboard_failed audit event", out.stderr.String())
		}
	})
}

func TestRunValidate(t *testing.T) {
	t.Run("default table", func(t *testing.T) {
		out := withCLI(t, "")

		if code := run([]string{"validate"}); code != 0 {
			t.Fatalf("exit code = %d, want 0", code)
		}
		want := fmt.Sprintf("default: valid (%d entries)\n", cipher.DefaultMapping().Len())
		if got := out.stdout.String(); got != want {
			t.Errorf("stdout = %q, want %q", got, want)
		}
	})

	t.Run("positional path", func(t *testing.T) {
		path := writeFile(t, "swap.yml", "A: B\nB: A\n")
		out := withCLI(t, "")

		if code := run([]string{"validate", path}); code != 0 {
			t.Fatalf("exit code = %d, want 0 (stderr %q)", code, out.stderr.String())
		}
		if !strings.Contains(out.stdout.String(), "valid (2 entries)") {
			t.Errorf("stdout = %q, want 2 entries", out.stdout.String())
		}
	})

	t.Run("duplicate values", func(t *testing.T) {
		path := writeFile(t, "dup.yaml", "A: X\nB: X\n")
		out := withCLI(t, "")

		if code := run([]string{"validate", "-mapping", path}); code != 1 {
			t.Fatalf("exit code = %d, want 1", code)
		}
		if !strings.Contains(out.stderr.String(), "Mapping contains duplicate values") {
			t.Errorf("stderr = %q, want duplicate values error", out.stderr.String())
		}
	})

	t.Run("empty table", func(t *testing.T) {
		path := writeFile(t, "empty.toml", "")
		out := withCLI(t, "")

		if code := run([]string{"validate", "-mapping", path}); code != 1 {
			t.Fatalf("exit code = %d, want 1", code)
		}
		if !strings.Contains(out.stderr.String(), "Mapping is empty") {
			t.Errorf("stderr = %q, want empty mapping error", out.stderr.String())
		}
	})

	t.Run("multi character entry", func(t *testing.T) {
		path := writeFile(t, "long.yaml", "AB: C\n")
		out := withCLI(t, "")

		if code := run([]string{"validate", "-mapping", path}); code != 1 {
			t.Fatalf("exit code = %d, want 1", code)
		}
		if !strings.Contains(out.stderr.String(), "single character") {
			t.Errorf("stderr = %q, want single character error", out.stderr.String())
		}
	})
}

func TestRun_UnknownCommand(t *testing.T) {
	out := withCLI(t, "")

	if code := run([]string{"scramble"}); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(out.stderr.String(), "unknown command: scramble") {
		t.Errorf("stderr = %q, want unknown command message", out.stderr.String())
	}
}

func TestRunVersion(t *testing.T) {
	out := withCLI(t, "")

	if code := run([]string{"version"}); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.HasPrefix(out.stdout.String(), "betabet dev\n") {
		t.Errorf("stdout = %q, want version banner", out.stdout.String())
	}
}

func TestServe_RejectsInvalidMapping(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cipher.MappingFile = writeFile(t, "dup.yaml", "A: X\nB: X\n")
	var auditLog bytes.Buffer
	auditor := audit.NewWriterLogger(&audit.Config{Enabled: true, Level: "minimal"}, &auditLog)

	err := serve(context.Background(), cfg, zerolog.Nop(), auditor)

	if !errors.Is(err, cipher.ErrDuplicateValues) {
		t.Fatalf("serve() error = %v, want ErrDuplicateValues", err)
	}
	if !strings.Contains(auditLog.String(), "mapping_rejected") {
		t.Errorf("audit = %q, want mapping_rejected", auditLog.String())
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Listen = "127.0.0.1:0"
	var auditLog bytes.Buffer
	auditor := audit.NewWriterLogger(&audit.Config{Enabled: true, Level: "standard"}, &auditLog)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, cfg, zerolog.Nop(), auditor)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("serve() did not return after cancellation")
	}
	if !strings.Contains(auditLog.String(), "mapping_loaded") {
		t.Errorf("audit = %q, want mapping_loaded", auditLog.String())
	}
}

func TestCleanupInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{0, time.Minute},
		{time.Minute, time.Minute},
		{24 * time.Hour, 12 * time.Hour},
	}

	for _, tt := range tests {
		if got := cleanupInterval(tt.ttl); got != tt.want {
			t.Errorf("cleanupInterval(%v) = %v, want %v", tt.ttl, got, tt.want)
		}
	}
}
