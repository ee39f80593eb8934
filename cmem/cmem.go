package cmem

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/text/encoding/charmap"

	ffiguard "github.com/wippyai/ffi-guard"
	"github.com/wippyai/ffi-guard/errors"
	"github.com/wippyai/ffi-guard/registry"
)

// MaxCStringLen is the longest string, in UTF-8 bytes, accepted by the
// NUL-terminated constructors (64KB). A boundary that reads strings back
// scans at most this many bytes for the terminator, so anything longer
// could never round-trip.
const MaxCStringLen = 65536

// CString is a NUL-terminated UTF-8 allocation.
type CString struct {
	data []byte
}

// String returns the text without the terminator.
func (s *CString) String() string {
	return string(s.data[:len(s.data)-1])
}

// Size returns the allocated length in bytes, terminator included.
func (s *CString) Size() int {
	return len(s.data)
}

// Buffer is a raw byte allocation with an explicit length.
type Buffer struct {
	data []byte
}

// Bytes returns the live contents. The slice aliases the allocation and is
// valid only until the buffer is freed.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Size returns the allocated length in bytes.
func (b *Buffer) Size() int {
	return len(b.data)
}

// WideString is a UTF-16LE allocation with a two-byte NUL terminator.
type WideString struct {
	data []byte
}

// String decodes the text back to UTF-8, terminator excluded.
func (s *WideString) String() string {
	return decodeUTF16LE(s.data[:len(s.data)-2])
}

// Size returns the allocated length in bytes, terminator included.
func (s *WideString) Size() int {
	return len(s.data)
}

// AnsiString is a NUL-terminated Windows-1252 allocation. Read it back
// through GoAnsiString; decoding is not infallible, so there is no String
// method.
type AnsiString struct {
	data []byte
}

// Bytes returns the encoded contents, terminator included.
func (s *AnsiString) Bytes() []byte {
	return s.data
}

// Size returns the allocated length in bytes, terminator included.
func (s *AnsiString) Size() int {
	return len(s.data)
}

// Allocator hands out C-shaped allocations tracked through one registry.
type Allocator struct {
	reg   *registry.Registry
	stats tracker
}

// NewAllocator creates an allocator whose allocations live in reg and are
// freed through it.
func NewAllocator(reg *registry.Registry) *Allocator {
	return &Allocator{
		reg:   reg,
		stats: tracker{stats: make(map[Kind]KindStats)},
	}
}

// NewCString copies s into a NUL-terminated allocation and tracks it.
// Strings with an interior NUL or longer than MaxCStringLen are rejected.
func (a *Allocator) NewCString(s string) (ffiguard.Ptr, error) {
	if err := checkString("new_cstring", s); err != nil {
		return ffiguard.NullPtr, err
	}
	data := make([]byte, len(s)+1)
	copy(data, s)

	p := backingPtr(data)
	a.track(p, ffiguard.TagOf[CString](), &CString{data: data}, KindCString, len(data))
	return p, nil
}

// GoString reads a tracked CString back as a Go string.
func (a *Allocator) GoString(p ffiguard.Ptr) (string, error) {
	s, err := resolveAs[CString](a.reg, "go_string", p)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

// NewBytes copies b into a tracked buffer. Empty buffers are rejected.
func (a *Allocator) NewBytes(b []byte) (ffiguard.Ptr, error) {
	if len(b) == 0 {
		return ffiguard.NullPtr, errors.InvalidBufferSize("new_bytes", len(b))
	}
	data := make([]byte, len(b))
	copy(data, b)

	p := backingPtr(data)
	a.track(p, ffiguard.TagOf[Buffer](), &Buffer{data: data}, KindBuffer, len(data))
	return p, nil
}

// Bytes returns the live contents of a tracked buffer. The slice is valid
// only until the buffer is freed.
func (a *Allocator) Bytes(p ffiguard.Ptr) ([]byte, error) {
	b, err := resolveAs[Buffer](a.reg, "bytes", p)
	if err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// NewWideString encodes s as UTF-16LE with a two-byte terminator and tracks
// it. The MaxCStringLen limit applies to the UTF-8 length of s.
func (a *Allocator) NewWideString(s string) (ffiguard.Ptr, error) {
	if err := checkString("new_wide_string", s); err != nil {
		return ffiguard.NullPtr, err
	}
	data := encodeUTF16LE(s)

	p := backingPtr(data)
	a.track(p, ffiguard.TagOf[WideString](), &WideString{data: data}, KindWideString, len(data))
	return p, nil
}

// GoWideString reads a tracked WideString back as a Go string.
func (a *Allocator) GoWideString(p ffiguard.Ptr) (string, error) {
	s, err := resolveAs[WideString](a.reg, "go_wide_string", p)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

// NewAnsiString encodes s as NUL-terminated Windows-1252 and tracks it.
// Runes outside the code page are rejected rather than substituted.
func (a *Allocator) NewAnsiString(s string) (ffiguard.Ptr, error) {
	if err := checkString("new_ansi_string", s); err != nil {
		return ffiguard.NullPtr, err
	}
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return ffiguard.NullPtr, errors.Wrap("new_ansi_string", errors.KindOther, err,
			"string is not representable in Windows-1252")
	}
	data := make([]byte, len(encoded)+1)
	copy(data, encoded)

	p := backingPtr(data)
	a.track(p, ffiguard.TagOf[AnsiString](), &AnsiString{data: data}, KindAnsiString, len(data))
	return p, nil
}

// GoAnsiString reads a tracked AnsiString back as a Go string.
func (a *Allocator) GoAnsiString(p ffiguard.Ptr) (string, error) {
	s, err := resolveAs[AnsiString](a.reg, "go_ansi_string", p)
	if err != nil {
		return "", err
	}
	raw := s.data[:len(s.data)-1]
	// ASCII bytes are identical in Windows-1252 and UTF-8
	if isASCII(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", errors.Wrap("go_ansi_string", errors.KindOther, err,
			"allocation is not valid Windows-1252")
	}
	return string(decoded), nil
}

func (a *Allocator) track(p ffiguard.Ptr, tag ffiguard.Tag, value any, kind Kind, size int) {
	a.stats.allocated(kind, size)
	a.reg.Track(p, tag, value, func() {
		a.stats.freed(kind, size)
	})
}

// backingPtr returns the identity of a slice's backing array. The wrapper
// tracked alongside it pins the array, so the address stays valid until the
// allocation is freed.
func backingPtr(data []byte) ffiguard.Ptr {
	return ffiguard.Ptr(uintptr(unsafe.Pointer(unsafe.SliceData(data))))
}

func checkString(op, s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return errors.Other(op, "string contains an interior NUL byte")
	}
	if len(s) > MaxCStringLen {
		return errors.StringTooLong(op, len(s), MaxCStringLen)
	}
	return nil
}

func resolveAs[T any](reg *registry.Registry, op string, p ffiguard.Ptr) (*T, error) {
	v, err := reg.Resolve(p, ffiguard.TagOf[T]())
	if err != nil {
		return nil, err
	}
	t, ok := v.(*T)
	if !ok {
		return nil, errors.New(op, errors.KindWrongHandleType).
			Handle(p).
			Want(ffiguard.TagOf[T]()).
			Detail("tracked value is %T", v).
			Build()
	}
	return t, nil
}

func encodeUTF16LE(s string) []byte {
	codes := utf16.Encode([]rune(s))
	data := make([]byte, (len(codes)+1)*2)
	for i, c := range codes {
		binary.LittleEndian.PutUint16(data[i*2:], c)
	}
	// Terminator already zero from make
	return data
}

func decodeUTF16LE(data []byte) string {
	codes := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		codes = append(codes, binary.LittleEndian.Uint16(data[i:]))
	}
	return string(utf16.Decode(codes))
}

func isASCII(data []byte) bool {
	for _, c := range data {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
