package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ffiguard "github.com/wippyai/ffi-guard"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestRunScenarioLifecycle(t *testing.T) {
	var out bytes.Buffer
	if err := runScenario(filepath.Join("testdata", "lifecycle.toml"), &out); err != nil {
		t.Fatalf("runScenario: %v\noutput:\n%s", err, out.String())
	}

	s := out.String()
	if !strings.Contains(s, "Scenario: codec lifecycle") {
		t.Fatalf("missing header:\n%s", s)
	}
	if !strings.Contains(s, "deadbeef") {
		t.Fatalf("buffer read-back missing:\n%s", s)
	}
	if !strings.Contains(s, "Leaks: 0") {
		t.Fatalf("expected zero leaks:\n%s", s)
	}
	if strings.Contains(s, "[FAIL") {
		t.Fatalf("unexpected failures:\n%s", s)
	}
}

func TestRunScenarioMisuse(t *testing.T) {
	var out bytes.Buffer
	if err := runScenario(filepath.Join("testdata", "misuse.toml"), &out); err != nil {
		t.Fatalf("runScenario: %v\noutput:\n%s", err, out.String())
	}

	s := out.String()
	if !strings.Contains(s, "Leaks: 1") {
		t.Fatalf("expected one leak:\n%s", s)
	}
	if !strings.Contains(s, "leaked: keep") {
		t.Fatalf("leak sweep should name the leaked ref:\n%s", s)
	}
	if strings.Contains(s, "[FAIL") {
		t.Fatalf("unexpected failures:\n%s", s)
	}
}

func TestRunScenarioExpectationMismatch(t *testing.T) {
	path := writeScenario(t, `
name = "mismatch"

[[step]]
op = "track"
type = "codec"
ref = "c"
arg = "vp8"

[[step]]
op = "validate"
type = "codec"
ref = "c"
expect = "invalid_handle"

[[step]]
op = "free"
ref = "c"
`)

	var out bytes.Buffer
	err := runScenario(path, &out)
	if err == nil {
		t.Fatal("expected error for unmet expectation")
	}
	if !strings.Contains(out.String(), "[FAIL") {
		t.Fatalf("expected FAIL marker:\n%s", out.String())
	}
}

func TestRunScenarioLeakMismatch(t *testing.T) {
	path := writeScenario(t, `
name = "leak"

[[step]]
op = "track"
type = "frame"
ref = "f"
arg = "xyz"
`)

	var out bytes.Buffer
	err := runScenario(path, &out)
	if err == nil {
		t.Fatal("expected error for unexpected leak")
	}
	if !strings.Contains(out.String(), "leak count mismatch: got 1, want 0") {
		t.Fatalf("expected leak mismatch report:\n%s", out.String())
	}
}

func TestRunScenarioUnknownOp(t *testing.T) {
	path := writeScenario(t, `
name = "bad op"

[[step]]
op = "explode"
`)

	var out bytes.Buffer
	if err := runScenario(path, &out); err == nil {
		t.Fatal("expected error for unknown op")
	}
}

func TestRunScenarioUnknownKey(t *testing.T) {
	path := writeScenario(t, `
name = "strict"
shards = 4

[[step]]
op = "track"
type = "codec"
arg = "vp9"
`)

	var out bytes.Buffer
	err := runScenario(path, &out)
	if err == nil || !strings.Contains(err.Error(), "unknown keys") {
		t.Fatalf("err = %v, want unknown keys", err)
	}
}

func TestRunScenarioBadTOML(t *testing.T) {
	path := writeScenario(t, "name = [unclosed")
	var out bytes.Buffer
	if err := runScenario(path, &out); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRunScenarioNoSteps(t *testing.T) {
	path := writeScenario(t, `name = "empty"`)
	var out bytes.Buffer
	err := runScenario(path, &out)
	if err == nil || !strings.Contains(err.Error(), "no steps") {
		t.Fatalf("err = %v, want no steps", err)
	}
}

func TestResolveRef(t *testing.T) {
	refs := map[string]ffiguard.Ptr{"a": ffiguard.Ptr(0x10)}

	p, err := resolveRef(refs, "a")
	if err != nil || p != ffiguard.Ptr(0x10) {
		t.Fatalf("resolveRef(a) = %v, %v", p, err)
	}

	p, err = resolveRef(refs, "null")
	if err != nil || !p.IsNull() {
		t.Fatalf("resolveRef(null) = %v, %v", p, err)
	}

	p, err = resolveRef(refs, "0x9999")
	if err != nil || p != ffiguard.Ptr(0x9999) {
		t.Fatalf("resolveRef(0x9999) = %v, %v", p, err)
	}

	if _, err := resolveRef(refs, "missing"); err == nil {
		t.Fatal("expected error for unknown ref")
	}
	if _, err := resolveRef(refs, "0xzz"); err == nil {
		t.Fatal("expected error for bad hex literal")
	}
}
