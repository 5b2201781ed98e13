package generation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hrygo/automl/ai/configloader"
	"github.com/hrygo/automl/ai/core/errclass"
)

// FallbackEntry is one canned response keyed by a case-insensitive substring.
type FallbackEntry struct {
	Keyword  string `yaml:"keyword"`
	Response string `yaml:"response"`
}

// FallbackTable is an ordered keyword table; the first matching entry wins.
type FallbackTable struct {
	entries []FallbackEntry
}

// NewFallbackTable normalizes keywords and drops entries without a keyword or response.
func NewFallbackTable(entries []FallbackEntry) *FallbackTable {
	t := &FallbackTable{entries: make([]FallbackEntry, 0, len(entries))}
	for _, e := range entries {
		kw := strings.ToLower(strings.TrimSpace(e.Keyword))
		if kw == "" || strings.TrimSpace(e.Response) == "" {
			continue
		}
		t.entries = append(t.entries, FallbackEntry{Keyword: kw, Response: e.Response})
	}
	return t
}

// LoadFallbackTable reads a YAML list of {keyword, response} entries.
func LoadFallbackTable(loader *configloader.Loader, path string) (*FallbackTable, error) {
	var entries []FallbackEntry
	if err := loader.Load(path, &entries); err != nil {
		return nil, err
	}
	t := NewFallbackTable(entries)
	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: fallback table %s has no usable entries", errclass.ErrConfiguration, path)
	}
	return t, nil
}

// Match returns the canned response for the first keyword contained in prompt.
func (t *FallbackTable) Match(prompt string) (string, bool) {
	if t == nil {
		return "", false
	}
	lower := strings.ToLower(prompt)
	for _, e := range t.entries {
		if strings.Contains(lower, e.Keyword) {
			return e.Response, true
		}
	}
	return "", false
}

// Len returns the number of entries.
func (t *FallbackTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// DefaultFallbackTable returns the built-in canned answers for common AutoML questions.
func DefaultFallbackTable() *FallbackTable {
	return NewFallbackTable([]FallbackEntry{
		{
			Keyword: "overfitting",
			Response: "Overfitting means the model memorizes the training data instead of learning patterns that generalize.\n" +
				"- Hold out a validation set and compare train and validation scores.\n" +
				"- Add regularization (L1/L2, max_depth, min_samples_leaf).\n" +
				"- Collect more data or reduce the number of features.\n" +
				"- Use early stopping for boosted trees and neural networks.",
		},
		{
			Keyword:  "cross-validation",
			Response: crossValidationAnswer,
		},
		{
			Keyword:  "cross validation",
			Response: crossValidationAnswer,
		},
		{
			Keyword: "feature engineering",
			Response: "Useful feature engineering steps:\n" +
				"- One-hot encode low-cardinality categoricals, target-encode high-cardinality ones.\n" +
				"- Scale numeric columns for distance based and linear models.\n" +
				"- Derive ratios, date parts and interaction terms that carry domain meaning.\n" +
				"- Drop identifiers and columns that leak the target.",
		},
		{
			Keyword: "hyperparameter",
			Response: "Start hyperparameter search with RandomizedSearchCV over a small grid, using 5-fold cross-validation, " +
				"then narrow the ranges around the best values. Tune learning rate and depth for boosted trees, " +
				"C and gamma for SVMs, and n_estimators with max_features for random forests.",
		},
		{
			Keyword: "data leakage",
			Response: "Data leakage happens when information unavailable at prediction time reaches the model. " +
				"Split before any preprocessing, fit scalers and encoders inside a Pipeline, " +
				"and remove columns computed from the target or from the future.",
		},
		{
			Keyword: "imbalanced",
			Response: "For imbalanced classes use stratified splits, class_weight=\"balanced\" or resampling (SMOTE, undersampling), " +
				"and judge the model with precision, recall, F1 or PR-AUC instead of accuracy.",
		},
		{
			Keyword: "what is automl",
			Response: "AutoML automates the repetitive parts of a machine learning project: understanding the task, " +
				"finding data, choosing and tuning models, and producing runnable training code.",
		},
	})
}

const crossValidationAnswer = "Cross-validation estimates generalization by training on k-1 folds and scoring on the remaining fold, " +
	"rotating k times. Use StratifiedKFold for classification, KFold for regression and TimeSeriesSplit for " +
	"temporal data, and report the mean and standard deviation of the scores."

var (
	targetPattern = regexp.MustCompile("(?i)\\btarget(?:\\s+column)?\\s*(?:is\\b|=|:)?\\s*[\"'`]?([A-Za-z_][A-Za-z0-9_]*)")
	filePattern   = regexp.MustCompile(`(?i)[\w./-]+\.(?:csv|parquet|xlsx|json)\b`)

	codeSignals     = []string{"python", "script", "code", "implement", "sklearn", "scikit"}
	pipelineSignals = []string{"pipeline", "end-to-end", "end to end", "workflow"}

	genericTargetWords = map[string]bool{
		"variable": true, "column": true, "value": true, "hint": true, "is": true,
	}
)

// signals are the coarse features GenericResponse reads from a prompt.
type signals struct {
	code     bool
	pipeline bool
	task     string
	target   string
	file     string
}

func detectSignals(prompt string) signals {
	lower := strings.ToLower(prompt)
	s := signals{
		code:     containsAny(lower, codeSignals),
		pipeline: containsAny(lower, pipelineSignals),
		task:     "classification",
		target:   "target",
		file:     "data.csv",
	}

	switch {
	case strings.Contains(lower, "classif"):
		s.task = "classification"
	case strings.Contains(lower, "regress"):
		s.task = "regression"
	case strings.Contains(lower, "cluster"):
		s.task = "clustering"
	case containsAny(lower, []string{"forecast", "time series", "time-series"}):
		s.task = "time-series"
	}

	if m := targetPattern.FindStringSubmatch(prompt); m != nil && !genericTargetWords[strings.ToLower(m[1])] {
		s.target = m[1]
	}
	if m := filePattern.FindString(prompt); m != "" {
		s.file = m
	}
	return s
}

// WantsCode reports whether GenericResponse would answer text with a script.
func WantsCode(text string) bool {
	return containsAny(strings.ToLower(text), codeSignals)
}

// GenericResponse builds a templated answer from coarse prompt signals. It never returns
// an empty string.
func GenericResponse(prompt string) string {
	s := detectSignals(prompt)
	if s.code {
		return codeTemplate(s)
	}

	var b strings.Builder
	b.WriteString("Live generation is unavailable, so this is a templated answer.\n\n")
	fmt.Fprintf(&b, "Task family: %s.\n", s.task)
	switch s.task {
	case "regression":
		b.WriteString("Start with LinearRegression as a baseline, then compare RandomForestRegressor and GradientBoostingRegressor on RMSE and R2.\n")
	case "clustering":
		b.WriteString("Scale the features, run KMeans for several k and pick k by silhouette score; try DBSCAN when clusters are irregular.\n")
	case "time-series":
		b.WriteString("Keep the rows in time order, build lag features, and validate with TimeSeriesSplit before trying ARIMA or exponential smoothing.\n")
	default:
		b.WriteString("Start with LogisticRegression as a baseline, then compare RandomForestClassifier and GradientBoostingClassifier on accuracy and F1.\n")
	}
	if s.task != "clustering" {
		fmt.Fprintf(&b, "Use %q as the target column and hold out 20%% of %s for evaluation.\n", s.target, s.file)
	}
	if s.pipeline {
		b.WriteString("\nPipeline outline:\n" +
			"1. Load and profile the dataset.\n" +
			"2. Clean it: impute gaps, encode categoricals, scale numerics.\n" +
			"3. Train candidate models with cross-validated scoring.\n" +
			"4. Evaluate the best model on the held-out split.\n" +
			"5. Save the fitted model and report the metrics.\n")
	}
	return b.String()
}

func codeTemplate(s signals) string {
	var body string
	switch s.task {
	case "regression":
		body = fmt.Sprintf(supervisedTemplate, s.file, s.target,
			"from sklearn.ensemble import RandomForestRegressor\nfrom sklearn.metrics import r2_score",
			"RandomForestRegressor(random_state=42)",
			`print("r2:", r2_score(y_test, model.predict(X_test)))`)
	case "clustering":
		body = fmt.Sprintf(clusteringTemplate, s.file)
	case "time-series":
		body = fmt.Sprintf(timeSeriesTemplate, s.file, s.target)
	default:
		body = fmt.Sprintf(supervisedTemplate, s.file, s.target,
			"from sklearn.ensemble import RandomForestClassifier\nfrom sklearn.metrics import accuracy_score",
			"RandomForestClassifier(random_state=42)",
			`print("accuracy:", accuracy_score(y_test, model.predict(X_test)))`)
	}
	return "```python\n" + body + "```\n"
}

const supervisedTemplate = `import pandas as pd
from sklearn.model_selection import train_test_split
%[3]s

df = pd.read_csv(%[1]q)
target = %[2]q
X = pd.get_dummies(df.drop(columns=[target]))
X = X.fillna(X.median(numeric_only=True))
y = df[target]

X_train, X_test, y_train, y_test = train_test_split(X, y, test_size=0.2, random_state=42)
model = %[4]s
model.fit(X_train, y_train)
%[5]s
`

const clusteringTemplate = `import pandas as pd
from sklearn.cluster import KMeans
from sklearn.metrics import silhouette_score
from sklearn.preprocessing import StandardScaler

df = pd.read_csv(%q)
X = StandardScaler().fit_transform(pd.get_dummies(df).fillna(0))

best_k, best_score = 2, -1.0
for k in range(2, 8):
    labels = KMeans(n_clusters=k, n_init=10, random_state=42).fit_predict(X)
    score = silhouette_score(X, labels)
    if score > best_score:
        best_k, best_score = k, score
print("k:", best_k, "silhouette:", round(best_score, 3))
`

const timeSeriesTemplate = `import pandas as pd
from sklearn.ensemble import RandomForestRegressor
from sklearn.metrics import mean_absolute_error

df = pd.read_csv(%q)
target = %q
for lag in (1, 2, 3):
    df[f"lag_{lag}"] = df[target].shift(lag)
df = df.dropna()

features = [c for c in df.columns if c.startswith("lag_")]
split = int(len(df) * 0.8)
train, test = df.iloc[:split], df.iloc[split:]
model = RandomForestRegressor(random_state=42)
model.fit(train[features], train[target])
print("mae:", mean_absolute_error(test[target], model.predict(test[features])))
`

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
