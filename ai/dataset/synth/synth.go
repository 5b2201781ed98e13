// Package synth generates schema-valid synthetic datasets. It is the terminal acquisition
// tier: every call returns a usable record, and a seeded call is fully reproducible.
package synth

import (
	"bytes"
	"encoding/csv"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/hrygo/automl/ai/dataset"
	"github.com/hrygo/automl/ai/intent"
)

// Domain names a generator.
type Domain string

const (
	DomainInsurance Domain = "insurance"
	DomainHousing   Domain = "housing"
	DomainIris      Domain = "iris"
	DomainWine      Domain = "wine"
	DomainHeart     Domain = "heart"
	DomainGeneric   Domain = "generic"
)

// Options tune a synthesis call. The zero value is valid.
type Options struct {
	// Rows overrides the domain default when positive.
	Rows int
	// Seed makes output reproducible; nil draws a random seed.
	Seed *uint64
	// TaskType shapes the generic schema; empty means classification.
	TaskType intent.TaskType
}

// Seed is a convenience for building Options.Seed.
func Seed(v uint64) *uint64 {
	return &v
}

// dispatch is evaluated top to bottom; the first entry with a matching substring wins.
var dispatch = []struct {
	keywords []string
	domain   Domain
}{
	{[]string{"insurance", "medical"}, DomainInsurance},
	{[]string{"housing", "house", "real estate", "real-estate", "property"}, DomainHousing},
	{[]string{"iris", "flower"}, DomainIris},
	{[]string{"wine", "quality"}, DomainWine},
	{[]string{"heart", "cardio", "disease"}, DomainHeart},
}

// DomainFor maps a free-text hint to a generator domain.
func DomainFor(hint string) Domain {
	lower := strings.ToLower(hint)
	for _, d := range dispatch {
		for _, kw := range d.keywords {
			if strings.Contains(lower, kw) {
				return d.domain
			}
		}
	}
	return DomainGeneric
}

// generator produces one domain's table row by row.
type generator struct {
	title       string
	description string
	defaultRows int
	header      func(task intent.TaskType) []string
	row         func(r *rand.Rand, i int, task intent.TaskType) []string
}

var generators = map[Domain]generator{
	DomainInsurance: insuranceGenerator,
	DomainHousing:   housingGenerator,
	DomainIris:      irisGenerator,
	DomainWine:      wineGenerator,
	DomainHeart:     heartGenerator,
	DomainGeneric:   genericGenerator,
}

// DefaultRows returns the row count used when Options.Rows is not set.
func DefaultRows(d Domain) int {
	if g, ok := generators[d]; ok {
		return g.defaultRows
	}
	return genericGenerator.defaultRows
}

// Synthesize builds a dataset for the domain matched by hint. It never fails.
func Synthesize(hint string, opts Options) *dataset.Record {
	domain := DomainFor(hint)
	g := generators[domain]

	rows := opts.Rows
	if rows <= 0 {
		rows = g.defaultRows
	}
	task := opts.TaskType
	if task == "" {
		task = intent.TaskClassification
	}

	r := newRand(opts.Seed)
	header := g.header(task)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(header)
	for i := 0; i < rows; i++ {
		_ = w.Write(g.row(r, i, task))
	}
	w.Flush()

	return &dataset.Record{
		CSVContent:  buf.String(),
		RowCount:    rows,
		ColumnCount: len(header),
		Columns:     header,
		SourceTier:  dataset.TierSynthetic,
		Metadata: dataset.Metadata{
			Title:       g.title,
			Description: g.description,
			Identifier:  "synthetic/" + string(domain),
		},
	}
}

func newRand(seed *uint64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// uniform draws from [lo, hi).
func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// noise draws the bounded multiplicative factor in [1-spread, 1+spread).
func noise(r *rand.Rand, spread float64) float64 {
	return uniform(r, 1-spread, 1+spread)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func f2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func f1(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

func boolInt(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
