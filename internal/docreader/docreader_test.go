package docreader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "denial.txt")
	require.NoError(t, os.WriteFile(path, []byte("  Claim denied under code CO-50.\n"), 0o644))

	doc, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.SourceFile)
	assert.Equal(t, "Claim denied under code CO-50.", doc.Text)
}

func TestExtractMissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestExtractBadPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	_, err := Extract(path)
	assert.Error(t, err)
}
