package lasterr

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wippyai/ffi-guard/errors"
)

// pin keeps the test on one OS thread so every call hits the same slot.
func pin(t *testing.T) {
	t.Helper()
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)
}

func TestSetCodeMessage(t *testing.T) {
	pin(t)
	Clear()

	if Code() != errors.CodeNone {
		t.Fatalf("Code() = %d on clear slot, want %d", Code(), errors.CodeNone)
	}
	if Message() != "" {
		t.Fatalf("Message() = %q on clear slot, want empty", Message())
	}

	Set(errors.CodeInvalidHandle, "handle 0x1000 not tracked")

	if Code() != errors.CodeInvalidHandle {
		t.Fatalf("Code() = %d, want %d", Code(), errors.CodeInvalidHandle)
	}
	if Message() != "handle 0x1000 not tracked" {
		t.Fatalf("Message() = %q", Message())
	}

	Clear()
	if Code() != errors.CodeNone {
		t.Fatal("Clear did not reset the slot")
	}
}

func TestSetCodeNoneClears(t *testing.T) {
	pin(t)
	Set(errors.CodeOther, "boom")
	Set(errors.CodeNone, "ignored")

	if Code() != errors.CodeNone {
		t.Fatalf("Code() = %d after CodeNone, want %d", Code(), errors.CodeNone)
	}
	if Message() != "" {
		t.Fatalf("Message() = %q after CodeNone, want empty", Message())
	}
}

func TestTake(t *testing.T) {
	pin(t)
	Set(errors.CodeWrongHandleType, "want codec, got buffer")

	code, msg := Take()
	if code != errors.CodeWrongHandleType {
		t.Fatalf("Take() code = %d, want %d", code, errors.CodeWrongHandleType)
	}
	if msg != "want codec, got buffer" {
		t.Fatalf("Take() msg = %q", msg)
	}

	code, msg = Take()
	if code != errors.CodeNone || msg != "" {
		t.Fatalf("second Take() = (%d, %q), want clear slot", code, msg)
	}
}

func TestRecord(t *testing.T) {
	pin(t)
	Record(errors.InvalidHandle("free", 0x2000))
	if Code() != errors.CodeInvalidHandle {
		t.Fatalf("Code() = %d, want %d", Code(), errors.CodeInvalidHandle)
	}
	if Message() == "" {
		t.Fatal("Record should store the error message")
	}

	Record(fmt.Errorf("plain failure"))
	if Code() != errors.CodeOther {
		t.Fatalf("Code() = %d for plain error, want %d", Code(), errors.CodeOther)
	}

	Record(nil)
	if Code() != errors.CodeNone {
		t.Fatal("Record(nil) should clear the slot")
	}
}

func TestThreadIsolation(t *testing.T) {
	if !PerThread() {
		t.Skip("thread identities unavailable on this platform")
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	var mismatches atomic.Int32

	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(code int32) {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			<-start
			want := fmt.Sprintf("error %d", code)
			Set(code, want)

			if got := Code(); got != code {
				mismatches.Add(1)
			}
			if _, msg := Take(); msg != want {
				mismatches.Add(1)
			}
		}(int32(i))
	}
	close(start)
	wg.Wait()

	if n := mismatches.Load(); n != 0 {
		t.Fatalf("%d threads observed another thread's error", n)
	}
}
