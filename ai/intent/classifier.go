package intent

import (
	"strings"
)

// TaskKeywords lists the keyword sets used for task type detection.
// The sets are disjoint and evaluated in a fixed precedence order.
type TaskKeywords struct {
	Task     TaskType
	Keywords []string
}

// DefaultTaskKeywords is evaluated top to bottom; the first set with a matching substring wins.
var DefaultTaskKeywords = []TaskKeywords{
	{
		Task: TaskClassification,
		Keywords: []string{
			"classif", "categoriz", "categoris", "predict whether", "predict if",
			"detect", "spam", "churn", "fraud", "survival", "survive", "diagnos",
			"binary", "label",
		},
	},
	{
		Task: TaskRegression,
		Keywords: []string{
			"regress", "price", "cost", "charges", "salary", "revenue",
			"estimate", "continuous", "how much",
		},
	},
	{
		Task: TaskClustering,
		Keywords: []string{
			"cluster", "segment", "group similar", "unsupervised", "k-means", "kmeans",
		},
	},
	{
		Task: TaskTimeSeries,
		Keywords: []string{
			"time series", "time-series", "timeseries", "forecast", "seasonal",
			"trend", "over time", "next month", "next week", "arima",
		},
	},
}

// TargetRule maps domain words to a target column guess and optional method hints.
// Method hints are only applied when Task is empty or equals the detected task type.
type TargetRule struct {
	Keywords []string
	Target   string
	Task     TaskType
	Methods  []string
}

// DefaultTargetRules is independent of task detection and evaluated top to bottom.
var DefaultTargetRules = []TargetRule{
	{Keywords: []string{"titanic", "survive", "survival"}, Target: "Survived", Task: TaskClassification,
		Methods: []string{"LogisticRegression", "RandomForestClassifier"}},
	{Keywords: []string{"churn"}, Target: "Churn", Task: TaskClassification,
		Methods: []string{"GradientBoostingClassifier"}},
	{Keywords: []string{"fraud"}, Target: "is_fraud", Task: TaskClassification,
		Methods: []string{"GradientBoostingClassifier"}},
	{Keywords: []string{"spam"}, Target: "label", Task: TaskClassification,
		Methods: []string{"MultinomialNB"}},
	{Keywords: []string{"iris", "flower"}, Target: "species", Task: TaskClassification,
		Methods: []string{"KNeighborsClassifier", "SVC"}},
	{Keywords: []string{"wine"}, Target: "quality"},
	{Keywords: []string{"heart", "cardio"}, Target: "target", Task: TaskClassification},
	{Keywords: []string{"insurance", "medical"}, Target: "charges", Task: TaskRegression,
		Methods: []string{"GradientBoostingRegressor"}},
	{Keywords: []string{"housing", "house", "real estate", "real-estate", "property"}, Target: "price", Task: TaskRegression},
	{Keywords: []string{"price"}, Target: "price", Task: TaskRegression,
		Methods: []string{"LinearRegression", "RandomForestRegressor", "GradientBoostingRegressor"}},
	{Keywords: []string{"cost"}, Target: "cost", Task: TaskRegression,
		Methods: []string{"LinearRegression", "RandomForestRegressor", "GradientBoostingRegressor"}},
	{Keywords: []string{"salary", "wage"}, Target: "salary", Task: TaskRegression},
	{Keywords: []string{"sales", "revenue"}, Target: "sales"},
	{Keywords: []string{"stock"}, Target: "close", Task: TaskTimeSeries,
		Methods: []string{"ARIMA", "Prophet"}},
}

var defaultMethods = map[TaskType][]string{
	TaskClassification: {"LogisticRegression", "RandomForestClassifier", "GradientBoostingClassifier"},
	TaskRegression:     {"LinearRegression", "RandomForestRegressor", "GradientBoostingRegressor"},
	TaskClustering:     {"KMeans", "DBSCAN", "AgglomerativeClustering"},
	TaskTimeSeries:     {"ARIMA", "ExponentialSmoothing", "Prophet"},
}

var advancedMethods = map[TaskType][]string{
	TaskClassification: {"XGBClassifier", "MLPClassifier"},
	TaskRegression:     {"XGBRegressor", "MLPRegressor"},
	TaskClustering:     {"GaussianMixture"},
	TaskTimeSeries:     {"LSTM"},
}

var (
	complexKeywords = []string{
		"deep learning", "neural", "ensemble", "stacking", "hyperparameter", "tuning",
		"production", "large-scale", "large scale", "advanced", "state-of-the-art", "optimiz",
	}
	simpleKeywords = []string{
		"simple", "basic", "quick", "baseline", "beginner", "easy",
	}
)

// Classifier performs keyword-based intent classification. It holds only read-only tables.
type Classifier struct {
	tasks   []TaskKeywords
	targets []TargetRule
}

// NewClassifier creates a classifier with the default keyword tables.
func NewClassifier() *Classifier {
	return &Classifier{
		tasks:   DefaultTaskKeywords,
		targets: DefaultTargetRules,
	}
}

var defaultClassifier = NewClassifier()

// Classify classifies prompt with the default tables.
func Classify(prompt string, explicit TaskType) TaskSpec {
	return defaultClassifier.Classify(prompt, explicit)
}

// Classify produces a TaskSpec. A non-empty explicit task type overrides detection entirely.
func (c *Classifier) Classify(prompt string, explicit TaskType) TaskSpec {
	lower := strings.ToLower(prompt)

	taskType := explicit
	if taskType == "" {
		taskType = c.detectTaskType(lower)
	}

	complexity := detectComplexity(lower)

	spec := TaskSpec{
		TaskType:   taskType,
		Complexity: complexity,
	}

	var hints []string
	if rule, ok := c.matchTarget(lower); ok {
		if taskType.Supervised() {
			spec.TargetHint = rule.Target
		}
		if rule.Task == "" || rule.Task == taskType {
			hints = rule.Methods
		}
	}

	methods := make([]string, 0, len(hints)+5)
	methods = append(methods, hints...)
	methods = append(methods, defaultMethods[taskType]...)
	if complexity == ComplexityComplex {
		methods = append(methods, advancedMethods[taskType]...)
	}
	spec.RecommendedMethods = dedupe(methods)

	return spec
}

// detectTaskType returns the first keyword set with a matching substring.
func (c *Classifier) detectTaskType(lower string) TaskType {
	for _, set := range c.tasks {
		if containsAny(lower, set.Keywords) {
			return set.Task
		}
	}
	return TaskClassification
}

func (c *Classifier) matchTarget(lower string) (TargetRule, bool) {
	for _, rule := range c.targets {
		if containsAny(lower, rule.Keywords) {
			return rule, true
		}
	}
	return TargetRule{}, false
}

func detectComplexity(lower string) Complexity {
	if containsAny(lower, complexKeywords) {
		return ComplexityComplex
	}
	if containsAny(lower, simpleKeywords) {
		return ComplexitySimple
	}
	return ComplexityModerate
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// dedupe removes duplicates while keeping first-seen order.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
