package logs

import (
	"sync"
	"time"
)

// Dashboard log levels. SUCCESS has no zap equivalent and is only written directly.
const (
	LevelInfo    = "INFO"
	LevelSuccess = "SUCCESS"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
)

// Entry is a single line shown in the dashboard log pane.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Buffer is a fixed-capacity ring of recent entries. Once full, the oldest
// entry is overwritten. Safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	wrapped bool
	total   uint64
	now     func() time.Time
}

// NewBuffer creates a buffer holding at most capacity entries. A non-positive
// capacity is treated as 1.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{
		entries: make([]Entry, capacity),
		now:     time.Now,
	}
}

// Add appends an entry stamped with the current time.
func (b *Buffer) Add(level, message string) {
	b.Append(Entry{Timestamp: b.now(), Level: level, Message: message})
}

// Append stores e as the newest entry.
func (b *Buffer) Append(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.wrapped = true
	}
	b.total++
}

// Recent returns up to limit of the newest entries in chronological order
// (oldest first). limit <= 0 returns everything retained. The result is never
// nil so it encodes as an empty JSON array.
func (b *Buffer) Recent(limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := b.next
	start := 0
	if b.wrapped {
		size = len(b.entries)
		start = b.next
	}

	count := size
	if limit > 0 && limit < count {
		count = limit
	}

	out := make([]Entry, 0, count)
	for i := size - count; i < size; i++ {
		out = append(out, b.entries[(start+i)%len(b.entries)])
	}
	return out
}

// Len returns the number of retained entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wrapped {
		return len(b.entries)
	}
	return b.next
}

// Total returns how many entries were ever added, including overwritten ones.
func (b *Buffer) Total() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Seed writes the startup lines the dashboard shows before any real activity.
func (b *Buffer) Seed() {
	b.Add(LevelInfo, "CryptoClaude system running normally")
	b.Add(LevelSuccess, "Claude AI features operational")
	b.Add(LevelInfo, "API connections: 6/6 active")
}
