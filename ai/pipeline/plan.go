package pipeline

import (
	"fmt"
	"strings"

	"github.com/hrygo/automl/ai/core/errclass"
	"github.com/hrygo/automl/ai/dataset"
	"github.com/hrygo/automl/ai/generation"
	"github.com/hrygo/automl/ai/intent"
)

// parsePlan decodes a generated plan. A plan with no steps or an unnamed step is a parse
// error.
func parsePlan(text string) (ExecutionPlan, error) {
	plan, err := generation.ParseJSON[ExecutionPlan](text)
	if err != nil {
		return ExecutionPlan{}, err
	}
	if len(plan.Steps) == 0 {
		return ExecutionPlan{}, fmt.Errorf("%w: plan has no steps", errclass.ErrParse)
	}
	for i := range plan.Steps {
		plan.Steps[i].Name = strings.TrimSpace(plan.Steps[i].Name)
		if plan.Steps[i].Name == "" {
			return ExecutionPlan{}, fmt.Errorf("%w: plan step %d has no name", errclass.ErrParse, i+1)
		}
	}
	plan.Source = PlanGenerated
	return plan, nil
}

var evaluationMetrics = map[intent.TaskType][]string{
	intent.TaskClassification: {"accuracy", "f1", "roc_auc"},
	intent.TaskRegression:     {"rmse", "mae", "r2"},
	intent.TaskClustering:     {"silhouette", "davies_bouldin"},
	intent.TaskTimeSeries:     {"mae", "mape"},
}

// localPlan builds a deterministic plan from the task spec and dataset shape.
func localPlan(spec intent.TaskSpec, rec *dataset.Record, target string) ExecutionPlan {
	steps := []PlanStep{{
		Name:    "load",
		Detail:  fmt.Sprintf("Load %q (%d rows, %d columns) from data.csv.", rec.Metadata.Title, rec.RowCount, rec.ColumnCount),
		Outputs: []string{"raw_frame"},
	}, {
		Name:    "profile",
		Detail:  "Check column types, missing values and value ranges.",
		Outputs: []string{"profile_report"},
	}}

	switch spec.TaskType {
	case intent.TaskClustering:
		steps = append(steps, PlanStep{
			Name:    "prepare",
			Detail:  "Impute missing values and standardize every numeric column.",
			Outputs: []string{"feature_matrix"},
		})
	case intent.TaskTimeSeries:
		steps = append(steps, PlanStep{
			Name:    "split",
			Detail:  fmt.Sprintf("Order rows by time and hold out the last 20%% of %s values.", target),
			Outputs: []string{"train_frame", "test_frame"},
		}, PlanStep{
			Name:    "prepare",
			Detail:  "Add lag and calendar features computed from past values only.",
			Outputs: []string{"feature_matrix"},
		})
	default:
		steps = append(steps, PlanStep{
			Name:    "split",
			Detail:  fmt.Sprintf("Separate %s from the features and hold out 20%% of rows.", target),
			Outputs: []string{"train_frame", "test_frame"},
		}, PlanStep{
			Name:    "prepare",
			Detail:  "Impute missing values, one-hot categorical columns and scale numeric ones.",
			Outputs: []string{"feature_matrix"},
		})
	}

	fit := "Fit a baseline model."
	if len(spec.RecommendedMethods) > 0 {
		fit = "Fit " + strings.Join(spec.RecommendedMethods, ", ") + "."
	}
	steps = append(steps, PlanStep{
		Name:    "train",
		Detail:  fit,
		Outputs: []string{"fitted_models"},
	}, PlanStep{
		Name:    "evaluate",
		Detail:  "Score every fitted model on " + strings.Join(evaluationMetrics[spec.TaskType], ", ") + ".",
		Outputs: []string{"metrics_table"},
	}, PlanStep{
		Name:    "report",
		Detail:  "Keep the best model and summarize its metrics.",
		Outputs: []string{"best_model", "summary"},
	})

	return ExecutionPlan{Steps: steps, Source: PlanLocal}
}
