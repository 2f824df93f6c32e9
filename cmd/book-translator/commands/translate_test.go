package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsecutiveEmptyLimit(t *testing.T) {
	tests := []struct {
		name       string
		totalPages int
		configured int
		want       int
	}{
		{"finite source disables the stop", 10, 5, 0},
		{"unknown page count uses the configured limit", 0, 5, 5},
		{"unknown page count with limit disabled", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, consecutiveEmptyLimit(tt.totalPages, tt.configured))
		})
	}
}

func TestDefaultWorkDir(t *testing.T) {
	assert.Equal(t, filepath.Join("books", "moby.translation"), defaultWorkDir(filepath.Join("books", "moby.pdf")))
	assert.Equal(t, "moby.translation", defaultWorkDir("moby.pdf"))
}
