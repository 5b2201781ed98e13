package catalog

import (
	"fmt"
	"strings"

	"github.com/hrygo/automl/ai/core/errclass"
)

// DatasetSummary is one search hit.
type DatasetSummary struct {
	Ref           string  `json:"ref"`
	Title         string  `json:"title"`
	Subtitle      string  `json:"subtitle,omitempty"`
	URL           string  `json:"url,omitempty"`
	TotalBytes    int64   `json:"totalBytes,omitempty"`
	LastUpdated   string  `json:"lastUpdated,omitempty"`
	DownloadCount int     `json:"downloadCount,omitempty"`
	Usability     float64 `json:"usabilityRating,omitempty"`
}

// DatasetMetadata is the full catalog entry for one dataset.
type DatasetMetadata struct {
	DatasetSummary
	Description string `json:"description,omitempty"`
	LicenseName string `json:"licenseName,omitempty"`
}

func (s *DatasetSummary) validate() error {
	if strings.TrimSpace(s.Ref) == "" {
		return fmt.Errorf("%w: dataset without ref", errclass.ErrParse)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: dataset %s without title", errclass.ErrParse, s.Ref)
	}
	return nil
}

// Summary returns the best available human description.
func (m *DatasetMetadata) Summary() string {
	if m.Description != "" {
		return m.Description
	}
	return m.Subtitle
}
