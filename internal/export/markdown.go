package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/spherical/book-translator/internal/domain"
)

// Options control how a result log is rendered.
type Options struct {
	// Title becomes the top-level heading. Empty means no title block.
	Title string

	// IncludeErrors renders a placeholder section for failed pages instead
	// of dropping them, so gaps in the output are visible.
	IncludeErrors bool

	// IncludeOriginal appends the stored source-text preview under each
	// translated page.
	IncludeOriginal bool
}

// Stats summarizes an export.
type Stats struct {
	Pages    int
	Rendered int
	Failed   int
}

// Markdown renders translated pages as a single Markdown document, one
// section per page in page order.
func Markdown(w io.Writer, results []domain.PageResult, opts Options) (*Stats, error) {
	stats := &Stats{Pages: len(results)}

	var b strings.Builder
	if opts.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", opts.Title)
	}

	for _, r := range results {
		if r.Status != domain.StatusSuccess {
			stats.Failed++
			if !opts.IncludeErrors {
				continue
			}
			fmt.Fprintf(&b, "## Page %d\n\n", r.PageNumber)
			msg := "translation failed"
			if r.ErrorMessage != nil && *r.ErrorMessage != "" {
				msg = *r.ErrorMessage
			}
			fmt.Fprintf(&b, "> *Page not translated: %s*\n\n", msg)
			continue
		}

		fmt.Fprintf(&b, "## Page %d\n\n", r.PageNumber)

		text := ""
		if r.TranslatedText != nil {
			text = strings.TrimSpace(*r.TranslatedText)
		}
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}

		if opts.IncludeOriginal && strings.TrimSpace(r.OriginalText) != "" {
			fmt.Fprintf(&b, "> %s\n\n", strings.TrimSpace(r.OriginalText))
		}

		stats.Rendered++
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return nil, domain.IOError("writing markdown output", err)
	}
	return stats, nil
}
