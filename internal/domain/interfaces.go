package domain

import "context"

// PageSource produces a finite, ordered sequence of pages, restartable from
// an arbitrary 1-based index. Concrete sources live in internal/source.
type PageSource interface {
	// Open returns an iterator positioned at fromPage.
	Open(ctx context.Context, fromPage int) (PageIterator, error)

	// TotalPages returns the page count, or 0 when unknown up front.
	TotalPages() int

	// Close releases any resources held by the source.
	Close() error
}

// PageIterator walks pages in monotonically increasing order.
type PageIterator interface {
	// Next returns the next page, or ErrNoMorePages when exhausted.
	Next(ctx context.Context) (Page, error)
}

// Backend performs a single translate-or-extract inference call. The
// contextWindow holds up to N prior successful translations, oldest first.
// Failures come back classified as DomainError values, never panics.
type Backend interface {
	Translate(ctx context.Context, page Page, contextWindow []string) (string, error)
}
