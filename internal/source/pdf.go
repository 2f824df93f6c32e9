package source

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"

	"github.com/spherical/book-translator/internal/domain"
)

const jpegQuality = 85

// PDFSource reads pages from a PDF document. Pages that carry an extractable
// text layer are emitted as text pages; scanned pages without one are
// rendered to JPEG and emitted as image pages so the backend can read them
// visually.
type PDFSource struct {
	doc    *fitz.Document
	pages  int
	logger zerolog.Logger
}

// OpenPDF opens the document at path.
func OpenPDF(path string, logger zerolog.Logger) (*PDFSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("PDF file not accessible: %s", path), err)
	}
	if info.IsDir() {
		return nil, domain.ConfigError(fmt.Sprintf("path is a directory, not a PDF: %s", path), nil)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to open PDF: %s", path), err)
	}

	pages := doc.NumPage()
	if pages == 0 {
		doc.Close()
		return nil, domain.ConfigError(fmt.Sprintf("PDF has no pages: %s", path), nil)
	}

	return &PDFSource{doc: doc, pages: pages, logger: logger}, nil
}

// TotalPages reports the document page count.
func (s *PDFSource) TotalPages() int {
	return s.pages
}

// Open returns an iterator positioned at fromPage (1-based).
func (s *PDFSource) Open(_ context.Context, fromPage int) (domain.PageIterator, error) {
	if fromPage < 1 {
		fromPage = 1
	}
	return &pdfIterator{source: s, next: fromPage}, nil
}

// Close releases the underlying document.
func (s *PDFSource) Close() error {
	if s.doc != nil {
		s.doc.Close()
		s.doc = nil
	}
	return nil
}

type pdfIterator struct {
	source *PDFSource
	next   int
}

func (it *pdfIterator) Next(ctx context.Context) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}
	if it.next > it.source.pages {
		return domain.Page{}, domain.ErrNoMorePages
	}

	number := it.next
	it.next++
	return it.source.loadPage(number), nil
}

// loadPage extracts page number (1-based). go-fitz indexes from zero. A page
// that fails both text extraction and rendering comes back empty, which the
// pipeline records as an error entry for that slot.
func (s *PDFSource) loadPage(number int) domain.Page {
	text, err := s.doc.Text(number - 1)
	if err == nil && strings.TrimSpace(text) != "" {
		return domain.Page{Number: number, Kind: domain.PageText, Text: text}
	}
	if err != nil {
		s.logger.Warn().Int("page", number).Err(err).Msg("Text extraction failed, rendering page as image")
	}

	img, err := s.doc.Image(number - 1)
	if err != nil {
		s.logger.Warn().Int("page", number).Err(err).Msg("Page render failed")
		return domain.Page{Number: number, Kind: domain.PageText}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		s.logger.Warn().Int("page", number).Err(err).Msg("JPEG encoding failed")
		return domain.Page{Number: number, Kind: domain.PageText}
	}

	return domain.Page{
		Number:    number,
		Kind:      domain.PageImage,
		Image:     buf.Bytes(),
		ImageMIME: "image/jpeg",
	}
}
