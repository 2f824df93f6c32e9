// Package pipeline drives the page-by-page translation loop: resume,
// idempotent re-runs, context chaining, and per-page commits.
package pipeline

import "github.com/spherical/book-translator/internal/domain"

// ContextWindow holds the most recent successful translations, oldest
// first, FIFO-evicted at a fixed capacity. Error pages never enter the
// window, so the chain continues from the last success.
type ContextWindow struct {
	size    int
	entries []string
}

// NewContextWindow creates a window holding up to size entries. A zero size
// disables context chaining.
func NewContextWindow(size int) *ContextWindow {
	if size < 0 {
		size = 0
	}
	return &ContextWindow{size: size}
}

// Push appends a successful translation, evicting the oldest entry when
// the window is full.
func (w *ContextWindow) Push(text string) {
	if w.size == 0 {
		return
	}
	w.entries = append(w.entries, text)
	if len(w.entries) > w.size {
		w.entries = w.entries[1:]
	}
}

// Snapshot returns the window contents oldest-first. The copy keeps callers
// from observing later pushes.
func (w *ContextWindow) Snapshot() []string {
	if len(w.entries) == 0 {
		return nil
	}
	out := make([]string, len(w.entries))
	copy(out, w.entries)
	return out
}

// Len returns the number of entries currently held.
func (w *ContextWindow) Len() int {
	return len(w.entries)
}

// RebuildWindow reconstructs the window from committed results, replaying
// the successes of pages before the resume point in page order. This is how
// context survives process restarts without separate persistence.
func RebuildWindow(size int, results []domain.PageResult, beforePage int) *ContextWindow {
	w := NewContextWindow(size)
	for _, r := range results {
		if r.PageNumber >= beforePage {
			continue
		}
		if r.Status == domain.StatusSuccess && r.TranslatedText != nil {
			w.Push(*r.TranslatedText)
		}
	}
	return w
}
