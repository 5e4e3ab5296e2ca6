package ingest

import (
	"errors"
	"strings"
	"sync"
)

// ErrBufferFull is returned when appending would exceed the buffer's byte cap.
var ErrBufferFull = errors.New("ingest buffer full")

// Buffer accumulates extracted text per project until the caller flushes it
// into the pipeline. Each project's accumulation is capped at maxBytes.
type Buffer struct {
	mu       sync.Mutex
	maxBytes int
	texts    map[int64][]string
	sizes    map[int64]int
	flushes  map[int64]int
}

// NewBuffer creates a buffer with the given per-project byte cap.
func NewBuffer(maxBytes int) *Buffer {
	return &Buffer{
		maxBytes: maxBytes,
		texts:    make(map[int64][]string),
		sizes:    make(map[int64]int),
		flushes:  make(map[int64]int),
	}
}

// Append adds text to the project's accumulation. Returns ErrBufferFull if
// the addition would exceed the cap; the buffer is left unchanged.
func (b *Buffer) Append(projectID int64, text string) error {
	if text == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sizes[projectID]+len(text) > b.maxBytes {
		return ErrBufferFull
	}
	b.texts[projectID] = append(b.texts[projectID], text)
	b.sizes[projectID] += len(text)
	return nil
}

// Flush returns the project's accumulated text joined by blank lines,
// clears the accumulation, and returns the flush generation. The generation
// increments on every non-empty flush so each flushed batch can be indexed
// under its own source path and never overwrites an earlier batch.
func (b *Buffer) Flush(projectID int64) (string, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	parts := b.texts[projectID]
	delete(b.texts, projectID)
	delete(b.sizes, projectID)
	if len(parts) == 0 {
		return "", b.flushes[projectID]
	}
	b.flushes[projectID]++
	return strings.Join(parts, "\n\n"), b.flushes[projectID]
}

// Clear discards the project's accumulation without returning it.
func (b *Buffer) Clear(projectID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.texts, projectID)
	delete(b.sizes, projectID)
}

// Size reports the project's current accumulation in bytes.
func (b *Buffer) Size(projectID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sizes[projectID]
}
