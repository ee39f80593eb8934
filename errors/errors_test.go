package errors

import (
	"errors"
	"strings"
	"testing"

	ffiguard "github.com/wippyai/ffi-guard"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Op:     "borrow",
				Kind:   KindWrongHandleType,
				Handle: 0x1000,
				Want:   ffiguard.TagOf[int](),
				Got:    ffiguard.TagOf[string](),
				Detail: "stored type differs",
			},
			contains: []string{"[borrow]", "wrong_handle_type", "0x1000", "want int", "got string", "stored type differs"},
		},
		{
			name: "minimal error",
			err: &Error{
				Op:   "validate",
				Kind: KindNullParameter,
			},
			contains: []string{"[validate]", "null_parameter"},
		},
		{
			name: "error with cause",
			err: &Error{
				Op:     "cstring",
				Kind:   KindOther,
				Detail: "encode failed",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[cstring]", "other", "encode failed", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Op:    "free",
		Kind:  KindOther,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Op:     "free",
		Kind:   KindInvalidHandle,
		Handle: 0x2000,
	}

	// Same kind, op unset on target
	if !err.Is(&Error{Kind: KindInvalidHandle}) {
		t.Error("Is should match same kind with unset op")
	}

	// Same kind and op
	if !err.Is(&Error{Op: "free", Kind: KindInvalidHandle}) {
		t.Error("Is should match same op and kind")
	}

	// Different op
	if err.Is(&Error{Op: "validate", Kind: KindInvalidHandle}) {
		t.Error("Is should not match different op")
	}

	// Different kind
	if err.Is(&Error{Kind: KindWrongHandleType}) {
		t.Error("Is should not match different kind")
	}

	// Test with errors.Is
	target := &Error{Kind: KindInvalidHandle}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestKindCodes(t *testing.T) {
	tests := []struct {
		kind Kind
		code int32
	}{
		{KindNullParameter, CodeNullParameter},
		{KindStringTooLong, CodeStringTooLong},
		{KindInvalidHandle, CodeInvalidHandle},
		{KindWrongHandleType, CodeWrongHandleType},
		{KindInvalidBufferSize, CodeInvalidBufferSize},
		{KindOther, CodeOther},
	}

	for _, tt := range tests {
		if got := tt.kind.Code(); got != tt.code {
			t.Errorf("Code(%s) = %d, want %d", tt.kind, got, tt.code)
		}
	}

	if FirstLibraryCode != 100 {
		t.Errorf("FirstLibraryCode = %d, want 100", FirstLibraryCode)
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != CodeNone {
		t.Errorf("CodeOf(nil) = %d, want %d", got, CodeNone)
	}

	if got := CodeOf(InvalidHandle("free", 0x1)); got != CodeInvalidHandle {
		t.Errorf("CodeOf(invalid handle) = %d, want %d", got, CodeInvalidHandle)
	}

	if got := CodeOf(errors.New("plain")); got != CodeOther {
		t.Errorf("CodeOf(plain error) = %d, want %d", got, CodeOther)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New("cstring", KindStringTooLong).
		Handle(0x3000).
		Want(ffiguard.TagOf[[]byte]()).
		Got(ffiguard.TagOf[string]()).
		Cause(cause).
		Detail("%d bytes exceeds limit %d", 70000, 65536).
		Build()

	if err.Op != "cstring" {
		t.Errorf("Op = %v, want cstring", err.Op)
	}
	if err.Kind != KindStringTooLong {
		t.Errorf("Kind = %v, want %v", err.Kind, KindStringTooLong)
	}
	if err.Handle != 0x3000 {
		t.Errorf("Handle = %v, want 0x3000", err.Handle)
	}
	if err.Want != ffiguard.TagOf[[]byte]() {
		t.Errorf("Want = %v, want []byte tag", err.Want)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "70000 bytes exceeds limit 65536" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("NullParameter", func(t *testing.T) {
		err := NullParameter("validate")
		if err.Kind != KindNullParameter {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNullParameter)
		}
		if err.Op != "validate" {
			t.Errorf("Op = %v, want validate", err.Op)
		}
	})

	t.Run("InvalidHandle", func(t *testing.T) {
		err := InvalidHandle("free", 0x9999)
		if err.Kind != KindInvalidHandle {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidHandle)
		}
		if err.Handle != 0x9999 {
			t.Errorf("Handle = %v, want 0x9999", err.Handle)
		}
	})

	t.Run("WrongHandleType", func(t *testing.T) {
		want := ffiguard.TagOf[int]()
		got := ffiguard.TagOf[string]()
		err := WrongHandleType("borrow", 0x1000, want, got)
		if err.Kind != KindWrongHandleType {
			t.Errorf("Kind = %v, want %v", err.Kind, KindWrongHandleType)
		}
		if err.Want != want || err.Got != got {
			t.Errorf("Want=%v Got=%v", err.Want, err.Got)
		}
	})

	t.Run("StringTooLong", func(t *testing.T) {
		err := StringTooLong("cstring", 70000, 65536)
		if err.Kind != KindStringTooLong {
			t.Errorf("Kind = %v, want %v", err.Kind, KindStringTooLong)
		}
		if !strings.Contains(err.Detail, "70000") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("InvalidBufferSize", func(t *testing.T) {
		err := InvalidBufferSize("bytes", 0)
		if err.Kind != KindInvalidBufferSize {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidBufferSize)
		}
	})

	t.Run("Other", func(t *testing.T) {
		err := Other("track", "unexpected state")
		if err.Kind != KindOther {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOther)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("inner")
		err := Wrap("wide", KindOther, cause, "decode failed")
		if !errors.Is(err, &Error{Kind: KindOther}) {
			t.Error("wrapped error should match kind")
		}
		if !errors.Is(err, cause) {
			t.Error("wrapped error should match cause")
		}
	})
}

func TestIsKind(t *testing.T) {
	err := InvalidHandle("free", 0x1)
	if !IsKind(err, KindInvalidHandle) {
		t.Error("IsKind should match")
	}
	if IsKind(err, KindNullParameter) {
		t.Error("IsKind should not match different kind")
	}
	if IsKind(errors.New("plain"), KindOther) {
		t.Error("IsKind should not match plain errors")
	}
	if KindOf(nil) != "" {
		t.Error("KindOf(nil) should be empty")
	}
}
