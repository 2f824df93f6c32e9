package source

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/book-translator/internal/domain"
	"github.com/spherical/book-translator/internal/observability"
)

type fakeSession struct {
	pages       [][]byte
	position    int
	captures    int
	turns       int
	failCapture map[int]error
	closed      bool
}

func newFakeSession(n int) *fakeSession {
	s := &fakeSession{}
	for i := 1; i <= n; i++ {
		s.pages = append(s.pages, []byte(fmt.Sprintf("png-%d", i)))
	}
	return s
}

func (s *fakeSession) CapturePage(context.Context) ([]byte, string, error) {
	s.captures++
	if err, ok := s.failCapture[s.position+1]; ok {
		return nil, "", err
	}
	if s.position >= len(s.pages) {
		return nil, "", fmt.Errorf("no page shown")
	}
	return s.pages[s.position], "image/png", nil
}

func (s *fakeSession) NextPage(context.Context) error {
	s.turns++
	s.position++
	return nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func TestCaptureIteratesPagesInOrder(t *testing.T) {
	session := newFakeSession(3)
	src := NewCaptureSource(session, observability.Nop())

	iter, err := src.Open(context.Background(), 1)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		page, err := iter.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, page.Number)
		assert.Equal(t, domain.PageImage, page.Kind)
		assert.Equal(t, []byte(fmt.Sprintf("png-%d", i)), page.Image)
		assert.Equal(t, "image/png", page.ImageMIME)
	}

	// Two turns between three pages, none before the first.
	assert.Equal(t, 2, session.turns)
}

func TestCaptureOpenSkipsForwardToResumePoint(t *testing.T) {
	session := newFakeSession(5)
	src := NewCaptureSource(session, observability.Nop())

	iter, err := src.Open(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 3, session.turns)
	assert.Zero(t, session.captures, "skipped pages must not be captured")

	page, err := iter.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, page.Number)
	assert.Equal(t, []byte("png-4"), page.Image)
}

func TestCaptureCannotRewind(t *testing.T) {
	session := newFakeSession(5)
	src := NewCaptureSource(session, observability.Nop())

	_, err := src.Open(context.Background(), 3)
	require.NoError(t, err)

	_, err = src.Open(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeConfig, domain.TypeOf(err))
}

func TestCaptureFailureYieldsEmptyPage(t *testing.T) {
	session := newFakeSession(3)
	session.failCapture = map[int]error{2: fmt.Errorf("window lost focus")}
	src := NewCaptureSource(session, observability.Nop())

	iter, err := src.Open(context.Background(), 1)
	require.NoError(t, err)

	page, err := iter.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, page.IsEmpty())

	page, err = iter.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, page.Number)
	assert.True(t, page.IsEmpty())

	page, err = iter.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, page.Number)
	assert.False(t, page.IsEmpty())
}

func TestCaptureHasNoKnownPageCount(t *testing.T) {
	src := NewCaptureSource(newFakeSession(3), observability.Nop())
	assert.Zero(t, src.TotalPages())
}

func TestCaptureCloseClosesSession(t *testing.T) {
	session := newFakeSession(1)
	src := NewCaptureSource(session, observability.Nop())
	require.NoError(t, src.Close())
	assert.True(t, session.closed)
}
