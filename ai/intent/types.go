// Package intent turns a free-text AutoML request into a structured task specification.
package intent

import (
	"fmt"
	"strings"
)

// TaskType is the machine learning task family.
type TaskType string

const (
	TaskClassification TaskType = "classification"
	TaskRegression     TaskType = "regression"
	TaskClustering     TaskType = "clustering"
	TaskTimeSeries     TaskType = "time-series"
)

// Complexity grades how demanding the requested model is.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// TaskSpec is produced once per request and never modified afterwards.
type TaskSpec struct {
	TaskType           TaskType   `json:"task_type"`
	TargetHint         string     `json:"target_hint,omitempty"`
	RecommendedMethods []string   `json:"recommended_methods"`
	Complexity         Complexity `json:"complexity"`
}

// HasTarget reports whether a target column was guessed.
func (s TaskSpec) HasTarget() bool {
	return s.TargetHint != ""
}

// Supervised reports whether the task needs a target column.
func (t TaskType) Supervised() bool {
	return t != TaskClustering
}

var taskTypeAliases = map[string]TaskType{
	"classification": TaskClassification,
	"classify":       TaskClassification,
	"regression":     TaskRegression,
	"clustering":     TaskClustering,
	"cluster":        TaskClustering,
	"time-series":    TaskTimeSeries,
	"time_series":    TaskTimeSeries,
	"timeseries":     TaskTimeSeries,
	"time series":    TaskTimeSeries,
	"forecasting":    TaskTimeSeries,
}

// ParseTaskType normalizes a caller supplied task type. An empty string yields an empty TaskType.
func ParseTaskType(s string) (TaskType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", nil
	}
	if t, ok := taskTypeAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown task type %q", s)
}
