package output

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hkmori15/hget/pkg/config"
	"github.com/Hkmori15/hget/pkg/models"
	"github.com/Hkmori15/hget/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

func TestPlanWriteMissingFile(t *testing.T) {
	cfg := config.Default()
	dest := filepath.Join(t.TempDir(), "missing.html")

	plan, err := PlanWrite(dest, &cfg, testLogger())

	require.NoError(t, err)
	assert.Equal(t, models.PlanFresh, plan.Kind)
	assert.Zero(t, plan.Offset)
}

func TestPlanWriteExistingConflict(t *testing.T) {
	cfg := config.Default()
	dest := filepath.Join(t.TempDir(), "existing.html")
	require.NoError(t, os.WriteFile(dest, []byte("original"), 0o644))

	_, err := PlanWrite(dest, &cfg, testLogger())

	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrAlreadyExists))

	// The conflict must not touch the existing file.
	data, readErr := os.ReadFile(dest)
	require.NoError(t, readErr)
	assert.Equal(t, "original", string(data))
}

func TestPlanWriteForceOverwrites(t *testing.T) {
	cfg := config.Default()
	cfg.Force = true
	dest := filepath.Join(t.TempDir(), "existing.html")
	require.NoError(t, os.WriteFile(dest, []byte("original"), 0o644))

	plan, err := PlanWrite(dest, &cfg, testLogger())

	require.NoError(t, err)
	assert.Equal(t, models.PlanFresh, plan.Kind)
}

func TestPlanWriteResumeFromSize(t *testing.T) {
	cfg := config.Default()
	cfg.Resume = true
	dest := filepath.Join(t.TempDir(), "partial.bin")
	require.NoError(t, os.WriteFile(dest, []byte("12345"), 0o644))

	plan, err := PlanWrite(dest, &cfg, testLogger())

	require.NoError(t, err)
	assert.Equal(t, models.PlanResume, plan.Kind)
	assert.EqualValues(t, 5, plan.Offset)
}

func TestPlanWriteResumeEmptyFileIsFresh(t *testing.T) {
	cfg := config.Default()
	cfg.Resume = true
	dest := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(dest, nil, 0o644))

	plan, err := PlanWrite(dest, &cfg, testLogger())

	require.NoError(t, err)
	assert.Equal(t, models.PlanFresh, plan.Kind)
}

func TestPlanWriteDirectoryConflict(t *testing.T) {
	cfg := config.Default()
	cfg.Force = true // even force cannot overwrite a directory

	_, err := PlanWrite(t.TempDir(), &cfg, testLogger())

	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrAlreadyExists))
}
