package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	ffiguard "github.com/wippyai/ffi-guard"
	"github.com/wippyai/ffi-guard/cmem"
	"github.com/wippyai/ffi-guard/errors"
	"github.com/wippyai/ffi-guard/handle"
	"github.com/wippyai/ffi-guard/lasterr"
	"github.com/wippyai/ffi-guard/registry"
	"github.com/wippyai/ffi-guard/testbed"
)

// scenarioFile is the TOML schema: a name, the number of handles the
// scenario is expected to leave live, and an ordered list of boundary calls.
type scenarioFile struct {
	Name        string `toml:"name"`
	ExpectLeaks int    `toml:"expect_leaks"`
	Steps       []step `toml:"step"`
}

// step is one boundary call. Ref names the identity a constructor returns,
// or selects a previously bound one; "null" and hex literals like "0x9999"
// are accepted wherever a ref is read. Expect is the error kind the call
// should fail with, empty for success.
type step struct {
	Op     string `toml:"op"`
	Type   string `toml:"type"`
	Ref    string `toml:"ref"`
	Arg    string `toml:"arg"`
	Expect string `toml:"expect"`
}

type scenarioRun struct {
	refs     map[string]ffiguard.Ptr
	out      io.Writer
	failures int
}

func runScenario(path string, out io.Writer) error {
	// Boundary callers live on one OS thread; so do their last-error slots.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	lasterr.Clear()

	var sc scenarioFile
	meta, err := toml.DecodeFile(path, &sc)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load scenario: unknown keys %v", undecoded)
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("load scenario: no steps")
	}

	run := &scenarioRun{
		refs: make(map[string]ffiguard.Ptr),
		out:  out,
	}
	fmt.Fprintf(out, "Scenario: %s (run %s)\n", sc.Name, uuid.NewString())

	for i, s := range sc.Steps {
		desc, err := run.exec(s)
		run.report(i+1, s, desc, err)
	}

	leaked := run.sweepLeaks()
	fmt.Fprintf(out, "Leaks: %d\n", leaked)
	if leaked != sc.ExpectLeaks {
		run.failures++
		fmt.Fprintf(out, "  leak count mismatch: got %d, want %d\n", leaked, sc.ExpectLeaks)
	}

	if run.failures > 0 {
		return fmt.Errorf("scenario %q: %d failed expectation(s)", sc.Name, run.failures)
	}
	return nil
}

func (r *scenarioRun) exec(s step) (string, error) {
	switch s.Op {
	case "track":
		p, kind, err := trackObject(s.Type, s.Arg)
		if err != nil {
			return "", err
		}
		r.bind(s.Ref, p)
		return fmt.Sprintf("%s at %v", kind, p), nil

	case "cstring":
		p, err := cmem.NewCString(s.Arg)
		if err != nil {
			return "", err
		}
		r.bind(s.Ref, p)
		return p.String(), nil

	case "bytes":
		raw, err := hex.DecodeString(s.Arg)
		if err != nil {
			return "", fmt.Errorf("bad hex arg %q: %w", s.Arg, err)
		}
		p, err := cmem.NewBytes(raw)
		if err != nil {
			return "", err
		}
		r.bind(s.Ref, p)
		return p.String(), nil

	case "wide":
		p, err := cmem.NewWideString(s.Arg)
		if err != nil {
			return "", err
		}
		r.bind(s.Ref, p)
		return p.String(), nil

	case "ansi":
		p, err := cmem.NewAnsiString(s.Arg)
		if err != nil {
			return "", err
		}
		r.bind(s.Ref, p)
		return p.String(), nil

	case "validate":
		p, err := r.lookup(s.Ref)
		if err != nil {
			return "", err
		}
		validate, ok := validators[s.Type]
		if !ok {
			return "", fmt.Errorf("unknown type %q", s.Type)
		}
		if err := validate(p); err != nil {
			return "", err
		}
		return "valid", nil

	case "borrow":
		p, err := r.lookup(s.Ref)
		if err != nil {
			return "", err
		}
		borrow, ok := borrowers[s.Type]
		if !ok {
			return "", fmt.Errorf("unknown type %q", s.Type)
		}
		return borrow(p)

	case "gostring":
		return r.readback(s.Ref, cmem.GoString)

	case "gowide":
		return r.readback(s.Ref, cmem.GoWideString)

	case "goansi":
		return r.readback(s.Ref, cmem.GoAnsiString)

	case "gobytes":
		p, err := r.lookup(s.Ref)
		if err != nil {
			return "", err
		}
		raw, err := cmem.Bytes(p)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(raw), nil

	case "free":
		p, err := r.lookup(s.Ref)
		if err != nil {
			return "", err
		}
		if err := handle.Free(p); err != nil {
			return "", err
		}
		return "freed", nil

	case "lasterr":
		code, msg := lasterr.Take()
		desc := fmt.Sprintf("code=%d msg=%q", code, msg)
		if s.Arg != "" {
			want, err := strconv.Atoi(s.Arg)
			if err != nil {
				return "", fmt.Errorf("bad code arg %q: %w", s.Arg, err)
			}
			if code != int32(want) {
				return "", fmt.Errorf("last error code = %d, want %d", code, want)
			}
		}
		return desc, nil

	default:
		return "", fmt.Errorf("unknown op %q", s.Op)
	}
}

func (r *scenarioRun) report(n int, s step, desc string, err error) {
	want := s.Expect
	if want == "" {
		want = "ok"
	}
	got := "ok"
	if err != nil {
		got = string(errors.KindOf(err))
		if got == "" {
			got = "error"
		}
	}

	line := fmt.Sprintf("  %2d. %s", n, describeStep(s))
	switch {
	case desc != "":
		line += " -> " + desc
	case err != nil:
		line += " -> " + err.Error()
	}

	if got == want {
		if err != nil {
			line += " (expected)"
		}
		fmt.Fprintln(r.out, line)
		return
	}
	r.failures++
	fmt.Fprintf(r.out, "%s [FAIL: got %s, want %s]\n", line, got, want)
}

func (r *scenarioRun) bind(ref string, p ffiguard.Ptr) {
	if ref == "" {
		ref = fmt.Sprintf("_%d", len(r.refs))
	}
	r.refs[ref] = p
}

func (r *scenarioRun) lookup(ref string) (ffiguard.Ptr, error) {
	return resolveRef(r.refs, ref)
}

// resolveRef turns a step ref into an identity. "null" and raw hex literals
// are passed through so scenarios can probe identities that were never
// tracked.
func resolveRef(refs map[string]ffiguard.Ptr, ref string) (ffiguard.Ptr, error) {
	switch {
	case ref == "null":
		return ffiguard.NullPtr, nil
	case strings.HasPrefix(ref, "0x"):
		v, err := strconv.ParseUint(ref[2:], 16, 64)
		if err != nil {
			return ffiguard.NullPtr, fmt.Errorf("bad identity %q: %w", ref, err)
		}
		return ffiguard.Ptr(uintptr(v)), nil
	}
	p, ok := refs[ref]
	if !ok {
		return ffiguard.NullPtr, fmt.Errorf("unknown ref %q", ref)
	}
	return p, nil
}

func (r *scenarioRun) readback(ref string, read func(ffiguard.Ptr) (string, error)) (string, error) {
	p, err := r.lookup(ref)
	if err != nil {
		return "", err
	}
	text, err := read(p)
	if err != nil {
		return "", err
	}
	return strconv.Quote(text), nil
}

// sweepLeaks reports every identity this run bound that is still live, then
// frees it so the next run starts clean.
func (r *scenarioRun) sweepLeaks() int {
	live := make(map[ffiguard.Ptr]ffiguard.Tag)
	for _, e := range registry.Default().Live() {
		live[e.Ptr] = e.Tag
	}

	names := make([]string, 0, len(r.refs))
	for ref := range r.refs {
		names = append(names, ref)
	}
	sort.Strings(names)

	leaked := 0
	for _, ref := range names {
		p := r.refs[ref]
		tag, ok := live[p]
		if !ok {
			continue
		}
		leaked++
		fmt.Fprintf(r.out, "  leaked: %s at %v (%v)\n", ref, p, tag)
		handle.Free(p)
	}
	return leaked
}

func trackObject(typ, arg string) (ffiguard.Ptr, string, error) {
	switch typ {
	case "codec":
		return handle.Track(testbed.NewCodec(arg)), "codec", nil
	case "session":
		return handle.Track(testbed.NewSession(arg)), "session", nil
	case "frame":
		return handle.Track(testbed.NewFrame([]byte(arg))), "frame", nil
	}
	return ffiguard.NullPtr, "", fmt.Errorf("unknown type %q", typ)
}

func describeStep(s step) string {
	parts := []string{s.Op}
	if s.Type != "" {
		parts = append(parts, s.Type)
	}
	if s.Ref != "" {
		parts = append(parts, s.Ref)
	}
	if s.Arg != "" {
		parts = append(parts, strconv.Quote(s.Arg))
	}
	return strings.Join(parts, " ")
}

var validators = map[string]func(ffiguard.Ptr) error{
	"codec":   handle.Validate[testbed.Codec],
	"session": handle.Validate[testbed.Session],
	"frame":   handle.Validate[testbed.Frame],
	"cstring": handle.Validate[cmem.CString],
	"buffer":  handle.Validate[cmem.Buffer],
	"wide":    handle.Validate[cmem.WideString],
	"ansi":    handle.Validate[cmem.AnsiString],
}

var borrowers = map[string]func(ffiguard.Ptr) (string, error){
	"codec": func(p ffiguard.Ptr) (string, error) {
		c, err := handle.Borrow[testbed.Codec](p)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("codec %s frames=%d", c.Name, c.Frames), nil
	},
	"session": func(p ffiguard.Ptr) (string, error) {
		s, err := handle.Borrow[testbed.Session](p)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("session %s sent=%d", s.ID, s.Sent), nil
	},
	"frame": func(p ffiguard.Ptr) (string, error) {
		f, err := handle.Borrow[testbed.Frame](p)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("frame %d bytes", len(f.Payload)), nil
	},
	"cstring": func(p ffiguard.Ptr) (string, error) {
		text, err := cmem.GoString(p)
		if err != nil {
			return "", err
		}
		return strconv.Quote(text), nil
	},
	"buffer": func(p ffiguard.Ptr) (string, error) {
		raw, err := cmem.Bytes(p)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(raw), nil
	},
	"wide": func(p ffiguard.Ptr) (string, error) {
		text, err := cmem.GoWideString(p)
		if err != nil {
			return "", err
		}
		return strconv.Quote(text), nil
	},
	"ansi": func(p ffiguard.Ptr) (string, error) {
		text, err := cmem.GoAnsiString(p)
		if err != nil {
			return "", err
		}
		return strconv.Quote(text), nil
	},
}
