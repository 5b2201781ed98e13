package pipeline

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hrygo/automl/ai/core/llm"
	"github.com/hrygo/automl/ai/dataset"
	"github.com/hrygo/automl/ai/generation"
	"github.com/hrygo/automl/ai/intent"
)

const codeSystemPrompt = `You are a senior machine learning engineer.
Reply with one runnable Python script in a single fenced code block and nothing else.`

const explanationSystemPrompt = `You are a machine learning mentor.
Answer in Markdown for a reader who knows basic statistics.`

const planSystemPrompt = `You plan machine learning experiments.
Reply with JSON only, matching the given schema exactly.`

// The prompts below embed the caller's request, so the generation fallback never reads
// them. fallbackKey builds the text it reads instead.

// fallbackKey describes one sub-artifact from classifier output only: the task type, the
// target column and the dataset file. Only the code stage asks for a script, and a
// target whose name reads like a code request is left out of the other stages.
func fallbackKey(stage string, spec intent.TaskSpec, target string) string {
	var b strings.Builder
	switch stage {
	case "code":
		b.WriteString("Write a Python script.\n")
	case "plan":
		b.WriteString("Experiment pipeline.\n")
	}
	if stage != "code" && generation.WantsCode(target) {
		target = ""
	}
	fmt.Fprintf(&b, "Task type: %s\n", spec.TaskType)
	if target != "" {
		fmt.Fprintf(&b, "Target column: %s\n", target)
	}
	b.WriteString("Dataset file: data.csv\n")
	return b.String()
}

func codePrompt(prompt string, spec intent.TaskSpec, rec *dataset.Record, target string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n\n", prompt)
	fmt.Fprintf(&b, "Task type: %s\n", spec.TaskType)
	if target != "" {
		fmt.Fprintf(&b, "The target column is %s\n", target)
	}
	fmt.Fprintf(&b, "Dataset: %s with %d rows, stored as data.csv\n", rec.Metadata.Title, rec.RowCount)
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(rec.Columns, ", "))
	fmt.Fprintf(&b, "Candidate methods: %s\n\n", strings.Join(spec.RecommendedMethods, ", "))
	b.WriteString("Write a complete Python script with scikit-learn that loads data.csv, ")
	b.WriteString("prepares the columns, trains the candidate methods, compares them on held out data ")
	b.WriteString("and prints the metrics of the best one.")
	return b.String()
}

func explanationPrompt(prompt string, spec intent.TaskSpec, rec *dataset.Record, target string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n\n", prompt)
	fmt.Fprintf(&b, "This is a %s problem", spec.TaskType)
	if target != "" {
		fmt.Fprintf(&b, " where the target column is %s", target)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Dataset: %s (%d rows; columns %s)\n", rec.Metadata.Title, rec.RowCount, strings.Join(rec.Columns, ", "))
	fmt.Fprintf(&b, "Candidate methods: %s\n\n", strings.Join(spec.RecommendedMethods, ", "))
	b.WriteString("Explain why these methods suit the problem, how the results should be evaluated, ")
	b.WriteString("and which pitfalls to watch for in this dataset.")
	return b.String()
}

// planSchema is embedded in the plan prompt. Property names stay plain on purpose so the
// rendered schema cannot trigger a keyed fallback.
var planSchema = &llm.JSONSchema{
	Type: "object",
	Properties: map[string]*llm.JSONSchema{
		"steps": {
			Type: "array",
			Items: &llm.JSONSchema{
				Type: "object",
				Properties: map[string]*llm.JSONSchema{
					"name":    {Type: "string"},
					"detail":  {Type: "string"},
					"outputs": {Type: "array", Items: &llm.JSONSchema{Type: "string"}},
				},
				Required: []string{"name", "detail"},
			},
		},
	},
	Required: []string{"steps"},
}

func planPrompt(prompt string, spec intent.TaskSpec, rec *dataset.Record, target string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", prompt)
	fmt.Fprintf(&b, "Task type: %s; target: %s; methods: %s\n",
		spec.TaskType, orNone(target), strings.Join(spec.RecommendedMethods, ", "))
	fmt.Fprintf(&b, "Dataset: %s, %d rows, %d columns\n\n", rec.Metadata.Title, rec.RowCount, rec.ColumnCount)
	b.WriteString("List the ordered steps to take this experiment from raw table to evaluated model.\n")
	b.WriteString("Schema:\n")
	b.WriteString(planSchema.String())
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// targetColumn picks the label column of rec: the classifier's hint when the dataset has
// it, then a column literally named target, then the last column. Unsupervised tasks
// have none.
func targetColumn(spec intent.TaskSpec, rec *dataset.Record) string {
	if !spec.TaskType.Supervised() || rec == nil || len(rec.Columns) == 0 {
		return ""
	}
	for _, name := range []string{spec.TargetHint, "target"} {
		if name == "" {
			continue
		}
		for _, c := range rec.Columns {
			if strings.EqualFold(c, name) {
				return c
			}
		}
	}
	return rec.Columns[len(rec.Columns)-1]
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "for": true, "with": true, "and": true, "of": true,
	"to": true, "on": true, "in": true, "using": true, "use": true, "create": true, "build": true,
	"make": true, "train": true, "model": true, "models": true, "dataset": true, "data": true,
	"predict": true, "prediction": true, "predictions": true, "classification": true,
	"regression": true, "clustering": true, "forecast": true, "forecasting": true, "time": true,
	"series": true, "task": true, "machine": true, "learning": true, "please": true, "want": true,
	"need": true, "that": true, "this": true, "from": true, "into": true, "about": true,
	"which": true, "will": true, "can": true, "would": true, "should": true, "simple": true,
	"basic": true, "complex": true, "advanced": true, "classifier": true, "regressor": true,
	"some": true, "our": true, "your": true, "my": true,
}

const maxSearchTerms = 4

// salientTerms picks search keywords from the prompt in order of appearance.
func salientTerms(prompt string) []string {
	words := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(words))
	terms := make([]string, 0, maxSearchTerms)
	for _, w := range words {
		if len(w) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
		if len(terms) == maxSearchTerms {
			break
		}
	}
	return terms
}
