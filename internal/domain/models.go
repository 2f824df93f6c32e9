package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// PageKind tags the raw content carried by a Page.
type PageKind string

const (
	PageText  PageKind = "text"
	PageImage PageKind = "image"
)

// Page is one unit of source content at a 1-based sequential index.
// Immutable once produced by a PageSource.
type Page struct {
	Number    int
	Kind      PageKind
	Text      string // set when Kind == PageText
	Image     []byte // set when Kind == PageImage
	ImageMIME string // e.g. "image/jpeg", defaults to "image/png" when empty
}

// IsEmpty reports whether the page carries no usable content.
func (p Page) IsEmpty() bool {
	switch p.Kind {
	case PageImage:
		return len(p.Image) == 0
	default:
		return strings.TrimSpace(p.Text) == ""
	}
}

// ResultStatus is the outcome recorded for a processed page.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

const (
	// previewLength bounds the original-text excerpt stored per result.
	previewLength = 100

	// excerptLength bounds error messages recorded to the result log so a
	// failing response body cannot dump arbitrary content into it.
	excerptLength = 500
)

// PageResult is one committed outcome in the result log. Exactly one of
// TranslatedText / ErrorMessage is set, depending on Status. Results are
// appended once per page and never mutated.
type PageResult struct {
	PageNumber     int          `json:"page_number"`
	Status         ResultStatus `json:"status"`
	OriginalText   string       `json:"original_text_preview"`
	TranslatedText *string      `json:"translated_text"`
	ErrorMessage   *string      `json:"error_message"`
}

// NewSuccessResult builds a SUCCESS result for a page.
func NewSuccessResult(page Page, translated string) PageResult {
	return PageResult{
		PageNumber:     page.Number,
		Status:         StatusSuccess,
		OriginalText:   pagePreview(page),
		TranslatedText: &translated,
	}
}

// NewErrorResult builds an ERROR result carrying a bounded error message.
func NewErrorResult(page Page, err error) PageResult {
	msg := TruncateExcerpt(err.Error(), excerptLength)
	return PageResult{
		PageNumber:   page.Number,
		Status:       StatusError,
		OriginalText: pagePreview(page),
		ErrorMessage: &msg,
	}
}

func pagePreview(page Page) string {
	if page.Kind == PageImage {
		return "[image page]"
	}
	return TruncateExcerpt(page.Text, previewLength)
}

// TruncateExcerpt shortens s to at most n runes, marking the cut with "...".
func TruncateExcerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// ProgressState is the single mutable resume record, overwritten atomically
// after each page commits. LastCompletedPage tracks the page number of the
// most recent entry in the result log; on divergence the log wins.
type ProgressState struct {
	LastCompletedPage int       `json:"last_completed_page"`
	TotalPages        int       `json:"total_pages,omitempty"` // 0 = unknown
	RunID             string    `json:"run_id,omitempty"`
	RunStartedAt      time.Time `json:"run_started_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
