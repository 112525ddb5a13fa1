package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/Hkmori15/hget/pkg/models"
	"github.com/Hkmori15/hget/pkg/utils"
)

// Writer persists response bodies to disk according to a FetchPlan. Writes
// go straight to the destination path: an interrupted write just leaves a
// shorter partial file that a later resume attempt can pick up, so no
// staging file is needed.
type Writer struct {
	log *logrus.Logger
}

// NewWriter creates a Writer.
func NewWriter(log *logrus.Logger) *Writer {
	return &Writer{log: log}
}

// Write streams body into dest honoring the plan and returns the bytes
// written by this call. Failures affect only this destination.
func (w *Writer) Write(dest string, plan models.FetchPlan, body io.Reader) (int64, error) {
	var f *os.File
	var err error

	if plan.Kind == models.PlanResume {
		f, err = os.OpenFile(dest, os.O_WRONLY|os.O_APPEND, 0)
		if err != nil {
			return 0, fmt.Errorf("%w: opening '%s' for append: %w", utils.ErrIO, dest, err)
		}
	} else {
		if dir := filepath.Dir(dest); dir != "." {
			if err = os.MkdirAll(dir, 0o755); err != nil {
				return 0, fmt.Errorf("%w: creating parent dirs for '%s': %w", utils.ErrIO, dest, err)
			}
		}
		f, err = os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return 0, fmt.Errorf("%w: creating '%s': %w", utils.ErrIO, dest, err)
		}
	}

	n, copyErr := io.Copy(f, body)
	closeErr := f.Close()

	if copyErr != nil {
		// The copy error may originate from the network read side, so it is
		// wrapped without the filesystem sentinel; categorization inspects
		// the underlying error.
		return n, fmt.Errorf("writing '%s': %w", dest, copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("%w: closing '%s': %w", utils.ErrIO, dest, closeErr)
	}

	w.log.WithFields(logrus.Fields{"dest": dest, "bytes": n, "plan": plan.Kind.String()}).Debug("Wrote destination file")
	return n, nil
}
