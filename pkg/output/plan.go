package output

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Hkmori15/hget/pkg/config"
	"github.com/Hkmori15/hget/pkg/models"
	"github.com/Hkmori15/hget/pkg/utils"
)

// PlanWrite decides how the destination should be written before the fetch
// starts:
//
//   - destination missing: fresh write
//   - exists and force set: fresh write (truncated)
//   - exists and resume set: append from the current size
//   - exists, neither set: hard conflict; the existing file is left untouched
//
// The existing partial file's byte length is the only resume state; there is
// no sidecar journal. Identity of the partial content is taken on trust and
// verified only as far as the server honoring the range request.
func PlanWrite(dest string, cfg *config.CrawlConfig, log *logrus.Entry) (models.FetchPlan, error) {
	info, err := os.Stat(dest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.FreshPlan(), nil
		}
		return models.FetchPlan{}, fmt.Errorf("%w: stat '%s': %w", utils.ErrIO, dest, err)
	}

	if info.IsDir() {
		return models.FetchPlan{}, fmt.Errorf("%w: '%s' is a directory", utils.ErrAlreadyExists, dest)
	}

	if cfg.Force {
		log.Debugf("Destination '%s' exists, overwriting (force)", dest)
		return models.FreshPlan(), nil
	}

	if cfg.Resume {
		size := info.Size()
		if size == 0 {
			return models.FreshPlan(), nil
		}
		log.Debugf("Resuming '%s' from byte %d", dest, size)
		return models.ResumePlan(size), nil
	}

	return models.FetchPlan{}, fmt.Errorf("%w: '%s' (use -f to overwrite or -c to resume)",
		utils.ErrAlreadyExists, dest)
}
