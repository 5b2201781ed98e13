package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/automl/ai/dataset/synth"
	"github.com/hrygo/automl/ai/intent"
	"github.com/hrygo/automl/ai/pipeline"
)

// GetSyntheticDataset handles GET /api/v1/datasets/synthetic?domain=&rows=&seed=&task=.
// The body is the CSV itself so it can be piped straight into a notebook.
func (s *APIV1Service) GetSyntheticDataset(c echo.Context) error {
	opts := synth.Options{Seed: s.Profile.SynthSeed}

	if raw := c.QueryParam("rows"); raw != "" {
		rows, err := strconv.Atoi(raw)
		if err != nil || rows < 1 || rows > pipeline.MaxRows {
			return badRequest(c, fmt.Sprintf("rows must be an integer between 1 and %d", pipeline.MaxRows))
		}
		opts.Rows = rows
	}
	if raw := c.QueryParam("seed"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return badRequest(c, "seed must be an unsigned integer")
		}
		opts.Seed = &seed
	}
	task, err := intent.ParseTaskType(c.QueryParam("task"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	opts.TaskType = task

	hint := c.QueryParam("domain")
	rec := synth.Synthesize(hint, opts)

	h := c.Response().Header()
	h.Set("X-Source-Tier", string(rec.SourceTier))
	h.Set("X-Row-Count", strconv.Itoa(rec.RowCount))
	h.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", string(synth.DomainFor(hint))+".csv"))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(rec.CSVContent))
}
