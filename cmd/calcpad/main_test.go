package main

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"nickandperla.net/calcpad/pkg/calcpad"
)

func newLocalRuntime(t *testing.T) *calcpad.Runtime {
	t.Helper()
	r, err := calcpad.New(calcpad.WithMemoryStore())
	if err != nil {
		t.Fatalf("failed to create runtime: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestKeypadEvaluates(t *testing.T) {
	r := newLocalRuntime(t)
	var out bytes.Buffer

	newKeypad(r.Session(), &out).run(context.Background(), strings.NewReader("12+3\r\x04"))

	if got := r.Display(); got != "15" {
		t.Errorf("expected display 15, got %q", got)
	}
	if !strings.Contains(out.String(), "= 15") {
		t.Errorf("expected status line with result, got: %q", out.String())
	}
}

func TestKeypadFunctionsAndMemory(t *testing.T) {
	r := newLocalRuntime(t)
	var out bytes.Buffer

	// 9, Alt+r wraps it in sqrt, Enter evaluates.
	newKeypad(r.Session(), &out).run(context.Background(), strings.NewReader("9\x1br\r\x04"))
	if got := r.Display(); got != "3" {
		t.Fatalf("expected sqrt(9) = 3, got %q", got)
	}

	r2 := newLocalRuntime(t)
	newKeypad(r2.Session(), &out).run(context.Background(), strings.NewReader("4mc5M\x04"))
	if got := r2.Session().Memory(); got != -1 {
		t.Errorf("expected memory -1, got %v", got)
	}
}

func TestKeypadClearAndSettings(t *testing.T) {
	r := newLocalRuntime(t)
	var out bytes.Buffer

	newKeypad(r.Session(), &out).run(context.Background(), strings.NewReader("12+\x1b\x1b7dn[[\x04"))

	if got := r.Expression(); got != "7" {
		t.Errorf("expected 7 after clear, got %q", got)
	}
	cfg := r.Session().Config()
	if cfg.AngleMode != "rad" || cfg.Notation != "scientific" || cfg.DecimalPlaces != 4 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !strings.Contains(render(r.Session()), "[rad 4 sci") {
		t.Errorf("status line does not reflect settings: %q", render(r.Session()))
	}
}

func TestKeypadHistoryBrowse(t *testing.T) {
	r := newLocalRuntime(t)
	ctx := context.Background()
	for _, script := range []string{"1+1=", "C2+2="} {
		if err := r.Keys(ctx, script); err != nil {
			t.Fatalf("Keys(%q): %v", script, err)
		}
	}

	var out bytes.Buffer
	// Up twice reaches the older entry, Down once returns to the newer.
	newKeypad(r.Session(), &out).run(ctx, strings.NewReader("h\x1b[A\x1b[A\x1b[B\x04"))

	if got := r.Expression(); got != "2+2" {
		t.Errorf("expected 2+2, got %q", got)
	}
	if !strings.Contains(out.String(), "1+1 = 2") {
		t.Errorf("expected history listing, got %q", out.String())
	}
}

func TestKeypadShowsErrors(t *testing.T) {
	r := newLocalRuntime(t)
	var out bytes.Buffer

	newKeypad(r.Session(), &out).run(context.Background(), strings.NewReader("(1+2\r\x04"))

	if got := render(r.Session()); !strings.Contains(got, "(1+2  Error: Unmatched parentheses") {
		t.Errorf("unexpected status line %q", got)
	}
}

func TestRunLines(t *testing.T) {
	r := newLocalRuntime(t)
	var out bytes.Buffer

	in := strings.NewReader("12+3=\n\n*2=\n1/0=\nx\n")
	if err := runLines(context.Background(), r, in, &out); err != nil {
		t.Fatalf("runLines: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{"15", "30", "Error: Cannot divide by zero", `Error: unexpected key 'x' at position 0`}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %q", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

// TestKeysFlag builds the CLI and runs a key script against the local
// backend.
func TestKeysFlag(t *testing.T) {
	tmpDir := t.TempDir()
	bin := filepath.Join(tmpDir, "calcpad")

	cmd := exec.Command("go", "build", "-o", bin, "./")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build calcpad: %v\n%s", err, out)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	out, err := exec.Command(bin, "-db", dbPath, "-keys", "2^10=").CombinedOutput()
	if err != nil {
		t.Fatalf("failed to run calcpad: %v\n%s", err, out)
	}
	if strings.TrimSpace(string(out)) != "1024" {
		t.Errorf("expected 1024, got: %s", out)
	}

	out, err = exec.Command(bin, "-local", "-keys", "(1+2=").CombinedOutput()
	if err == nil {
		t.Fatalf("expected non-zero exit for a structural error, got: %s", out)
	}
	if !strings.Contains(string(out), "Error: Unmatched parentheses") {
		t.Errorf("expected error display, got: %s", out)
	}
}
