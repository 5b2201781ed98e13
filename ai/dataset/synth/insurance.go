package synth

import (
	"math/rand/v2"

	"github.com/hrygo/automl/ai/intent"
)

// Insurance charge formula constants.
const (
	InsuranceBaseCharge = 3000.0
	InsuranceAgeRate    = 250.0
	InsuranceChildRate  = 500.0
	InsuranceSmokerRate = 3.0
	// InsuranceNoise bounds the multiplicative noise to [1-InsuranceNoise, 1+InsuranceNoise).
	InsuranceNoise = 0.10
)

// InsuranceRegions lists the region values in generation order.
var InsuranceRegions = []string{"northeast", "northwest", "southeast", "southwest"}

var (
	regionMultiplier = map[string]float64{
		"northeast": 1.10,
		"northwest": 1.00,
		"southeast": 1.05,
		"southwest": 0.95,
	}
	sexMultiplier = map[string]float64{
		"male":   1.05,
		"female": 1.00,
	}
	// childrenWeights are cumulative percentages for 0..5 dependents.
	childrenWeights = []int{43, 67, 85, 97, 99, 100}
)

// bmiRate is the per-point BMI charge: obese and overweight tiers pay more.
func bmiRate(bmi float64) float64 {
	switch {
	case bmi > 30:
		return 300
	case bmi > 25:
		return 150
	default:
		return 100
	}
}

// ChargesWithoutNoise evaluates the insurance charge formula before noise and rounding.
// Unknown region or sex values use a neutral multiplier.
func ChargesWithoutNoise(age int, sex string, bmi float64, children int, smoker bool, region string) float64 {
	charges := InsuranceBaseCharge
	charges += float64(age) * InsuranceAgeRate
	charges += bmi * bmiRate(bmi)
	charges += float64(children) * InsuranceChildRate
	if smoker {
		charges *= InsuranceSmokerRate
	}
	if m, ok := regionMultiplier[region]; ok {
		charges *= m
	}
	if m, ok := sexMultiplier[sex]; ok {
		charges *= m
	}
	return charges
}

var insuranceGenerator = generator{
	title:       "Synthetic medical insurance charges",
	description: "Locally generated insurance records: demographics, BMI, dependents, smoking status, region and yearly charges.",
	defaultRows: 1000,
	header: func(intent.TaskType) []string {
		return []string{"age", "sex", "bmi", "children", "smoker", "region", "charges"}
	},
	row: func(r *rand.Rand, _ int, _ intent.TaskType) []string {
		age := 18 + r.IntN(47)
		sex := "female"
		if r.IntN(2) == 0 {
			sex = "male"
		}
		bmi := round2(uniform(r, 15, 45))
		children := weightedChildren(r)
		smoker := r.Float64() < 0.20
		region := InsuranceRegions[r.IntN(len(InsuranceRegions))]

		charges := round2(ChargesWithoutNoise(age, sex, bmi, children, smoker, region) * noise(r, InsuranceNoise))

		smokerValue := "no"
		if smoker {
			smokerValue = "yes"
		}
		return []string{itoa(age), sex, f2(bmi), itoa(children), smokerValue, region, f2(charges)}
	},
}

func weightedChildren(r *rand.Rand) int {
	p := r.IntN(100)
	for n, cum := range childrenWeights {
		if p < cum {
			return n
		}
	}
	return 0
}
