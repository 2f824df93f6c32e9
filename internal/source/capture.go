package source

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/spherical/book-translator/internal/domain"
)

// CaptureSession drives an external reader application one page at a time.
// Implementations own window focus and screenshotting; the source only asks
// for the current page's image and for a page turn.
type CaptureSession interface {
	// CapturePage returns the current page as an encoded image plus its
	// MIME type.
	CapturePage(ctx context.Context) (data []byte, mime string, err error)

	// NextPage advances the reader to the following page.
	NextPage(ctx context.Context) error

	Close() error
}

// CaptureSource adapts a CaptureSession to the page-source contract. The
// session has no page count, so runs against it rely on the consecutive
// empty-page limit to detect the end of the book.
type CaptureSource struct {
	session CaptureSession
	logger  zerolog.Logger

	// position is the page currently shown by the reader.
	position int
}

// NewCaptureSource wraps session, assumed to be showing page 1.
func NewCaptureSource(session CaptureSession, logger zerolog.Logger) *CaptureSource {
	return &CaptureSource{session: session, logger: logger, position: 1}
}

// TotalPages is unknown for a live capture session.
func (s *CaptureSource) TotalPages() int {
	return 0
}

// Open pages the reader forward to fromPage and returns an iterator from
// there. The reader can only move forward, so fromPage must not be behind
// the current position.
func (s *CaptureSource) Open(ctx context.Context, fromPage int) (domain.PageIterator, error) {
	if fromPage < 1 {
		fromPage = 1
	}
	if fromPage < s.position {
		return nil, domain.ConfigError(fmt.Sprintf("capture session is at page %d, cannot rewind to %d", s.position, fromPage), nil)
	}

	for s.position < fromPage {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.session.NextPage(ctx); err != nil {
			return nil, domain.IOError(fmt.Sprintf("paging forward to page %d", fromPage), err)
		}
		s.position++
	}

	s.logger.Info().Int("page", s.position).Msg("Capture session positioned")
	return &captureIterator{source: s}, nil
}

// Close ends the capture session.
func (s *CaptureSource) Close() error {
	return s.session.Close()
}

type captureIterator struct {
	source   *CaptureSource
	captured bool
}

// Next captures the page currently shown, then turns to the following one.
// A failed capture yields an empty page so the pipeline records the slot
// and the consecutive-empty limit can end the run.
func (it *captureIterator) Next(ctx context.Context) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}

	s := it.source
	if it.captured {
		if err := s.session.NextPage(ctx); err != nil {
			return domain.Page{}, domain.IOError(fmt.Sprintf("turning past page %d", s.position), err)
		}
		s.position++
	}
	it.captured = true

	number := s.position
	data, mime, err := s.session.CapturePage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Page{}, ctx.Err()
		}
		s.logger.Warn().Int("page", number).Err(err).Msg("Page capture failed")
		return domain.Page{Number: number, Kind: domain.PageImage}, nil
	}

	return domain.Page{
		Number:    number,
		Kind:      domain.PageImage,
		Image:     data,
		ImageMIME: mime,
	}, nil
}
