package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/book-translator/internal/domain"
	"github.com/spherical/book-translator/internal/observability"
)

func TestOpenPDFMissingFile(t *testing.T) {
	_, err := OpenPDF(filepath.Join(t.TempDir(), "nope.pdf"), observability.Nop())
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeIO, domain.TypeOf(err))
}

func TestOpenPDFRejectsDirectory(t *testing.T) {
	_, err := OpenPDF(t.TempDir(), observability.Nop())
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeConfig, domain.TypeOf(err))
}
