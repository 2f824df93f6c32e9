package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spherical/book-translator/internal/domain"
)

func TestWindowPushEvictsOldest(t *testing.T) {
	w := NewContextWindow(2)

	w.Push("one")
	w.Push("two")
	w.Push("three")

	assert.Equal(t, []string{"two", "three"}, w.Snapshot())
}

func TestWindowSnapshotIsCopy(t *testing.T) {
	w := NewContextWindow(3)
	w.Push("one")

	snap := w.Snapshot()
	w.Push("two")

	assert.Equal(t, []string{"one"}, snap)
	assert.Equal(t, []string{"one", "two"}, w.Snapshot())
}

func TestWindowZeroSize(t *testing.T) {
	w := NewContextWindow(0)
	w.Push("ignored")

	assert.Nil(t, w.Snapshot())
	assert.Zero(t, w.Len())
}

func strptr(s string) *string { return &s }

func TestRebuildWindowSkipsErrors(t *testing.T) {
	msg := "boom"
	results := []domain.PageResult{
		{PageNumber: 1, Status: domain.StatusSuccess, TranslatedText: strptr("one")},
		{PageNumber: 2, Status: domain.StatusError, ErrorMessage: &msg},
		{PageNumber: 3, Status: domain.StatusSuccess, TranslatedText: strptr("three")},
	}

	w := RebuildWindow(2, results, 4)

	assert.Equal(t, []string{"one", "three"}, w.Snapshot())
}

func TestRebuildWindowHonorsResumePoint(t *testing.T) {
	results := []domain.PageResult{
		{PageNumber: 1, Status: domain.StatusSuccess, TranslatedText: strptr("one")},
		{PageNumber: 2, Status: domain.StatusSuccess, TranslatedText: strptr("two")},
		{PageNumber: 3, Status: domain.StatusSuccess, TranslatedText: strptr("three")},
	}

	// Resuming at page 3: only pages 1 and 2 condition the next call.
	w := RebuildWindow(5, results, 3)

	assert.Equal(t, []string{"one", "two"}, w.Snapshot())
}

func TestRebuildWindowCapacity(t *testing.T) {
	results := []domain.PageResult{
		{PageNumber: 1, Status: domain.StatusSuccess, TranslatedText: strptr("one")},
		{PageNumber: 2, Status: domain.StatusSuccess, TranslatedText: strptr("two")},
		{PageNumber: 3, Status: domain.StatusSuccess, TranslatedText: strptr("three")},
	}

	w := RebuildWindow(1, results, 10)

	assert.Equal(t, []string{"three"}, w.Snapshot())
}
