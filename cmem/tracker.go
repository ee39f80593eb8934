package cmem

import (
	"sync"

	"go.uber.org/zap"
)

// Kind classifies raw allocations for per-kind accounting.
type Kind uint8

const (
	KindCString Kind = iota
	KindBuffer
	KindWideString
	KindAnsiString
)

func (k Kind) String() string {
	switch k {
	case KindCString:
		return "cstring"
	case KindBuffer:
		return "buffer"
	case KindWideString:
		return "wide_string"
	case KindAnsiString:
		return "ansi_string"
	default:
		return "unknown"
	}
}

// KindStats is the live allocation count and byte total for one kind.
type KindStats struct {
	Live  int
	Bytes int64
}

type tracker struct {
	mu    sync.Mutex
	stats map[Kind]KindStats
}

func (t *tracker) allocated(k Kind, size int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats[k]
	s.Live++
	s.Bytes += int64(size)
	t.stats[k] = s
}

func (t *tracker) freed(k Kind, size int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats[k]
	s.Live--
	s.Bytes -= int64(size)
	t.stats[k] = s
}

func (t *tracker) snapshot() map[Kind]KindStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Kind]KindStats, len(t.stats))
	for k, s := range t.stats {
		out[k] = s
	}
	return out
}

// Stats returns a snapshot of per-kind live counts and byte totals.
func (a *Allocator) Stats() map[Kind]KindStats {
	return a.stats.snapshot()
}

// ReportLeaks logs a warning describing every allocation still live and
// returns the count. Entries stay tracked; nothing is reclaimed.
func (a *Allocator) ReportLeaks() int {
	total := 0
	byKind := make(map[string]KindStats)
	for k, s := range a.stats.snapshot() {
		if s.Live == 0 {
			continue
		}
		total += s.Live
		byKind[k.String()] = s
	}
	if total == 0 {
		return 0
	}
	Logger().Warn("raw allocations were never freed",
		zap.Int("count", total),
		zap.Any("by_kind", byKind),
	)
	return total
}
