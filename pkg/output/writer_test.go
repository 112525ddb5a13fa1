package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hkmori15/hget/pkg/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestWriterFreshWrite(t *testing.T) {
	w := NewWriter(quietLogger())
	dest := filepath.Join(t.TempDir(), "page.html")

	n, err := w.Write(dest, models.FreshPlan(), strings.NewReader("<html>hello</html>"))

	require.NoError(t, err)
	assert.EqualValues(t, 18, n)

	data, readErr := os.ReadFile(dest)
	require.NoError(t, readErr)
	assert.Equal(t, "<html>hello</html>", string(data))
}

func TestWriterCreatesParentDirs(t *testing.T) {
	w := NewWriter(quietLogger())
	dest := filepath.Join(t.TempDir(), "example.com", "docs", "index.html")

	_, err := w.Write(dest, models.FreshPlan(), strings.NewReader("body"))

	require.NoError(t, err)
	assert.FileExists(t, dest)
}

func TestWriterFreshTruncatesExisting(t *testing.T) {
	w := NewWriter(quietLogger())
	dest := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(dest, []byte("a much longer previous body"), 0o644))

	_, err := w.Write(dest, models.FreshPlan(), strings.NewReader("short"))

	require.NoError(t, err)
	data, readErr := os.ReadFile(dest)
	require.NoError(t, readErr)
	assert.Equal(t, "short", string(data))
}

func TestWriterResumeAppends(t *testing.T) {
	w := NewWriter(quietLogger())
	dest := filepath.Join(t.TempDir(), "partial.bin")
	require.NoError(t, os.WriteFile(dest, []byte("01234"), 0o644))

	n, err := w.Write(dest, models.ResumePlan(5), strings.NewReader("56789"))

	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	data, readErr := os.ReadFile(dest)
	require.NoError(t, readErr)
	assert.Equal(t, "0123456789", string(data))
}

func TestWriterResumeMissingFileFails(t *testing.T) {
	w := NewWriter(quietLogger())
	dest := filepath.Join(t.TempDir(), "nope.bin")

	_, err := w.Write(dest, models.ResumePlan(5), strings.NewReader("data"))

	assert.Error(t, err)
}
