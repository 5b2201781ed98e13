package synth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/hrygo/automl/ai/intent"
)

var housingGenerator = generator{
	title:       "Synthetic housing prices",
	description: "Locally generated residential sales with size, rooms, age, distance to the city centre and sale price.",
	defaultRows: 500,
	header: func(intent.TaskType) []string {
		return []string{"sqft", "bedrooms", "bathrooms", "age", "distance_to_city", "price"}
	},
	row: func(r *rand.Rand, _ int, _ intent.TaskType) []string {
		sqft := 500 + r.IntN(3500)
		bedrooms := 1 + r.IntN(5)
		bathrooms := 1 + r.IntN(3)
		age := r.IntN(100)
		distance := round2(uniform(r, 0.5, 50))

		price := 50000 + float64(sqft)*150 + float64(bedrooms)*10000 + float64(bathrooms)*15000 -
			float64(age)*500 - distance*2000
		price = round2(math.Max(10000, price*noise(r, 0.10)))

		return []string{itoa(sqft), itoa(bedrooms), itoa(bathrooms), itoa(age), f2(distance), f2(price)}
	},
}

// irisSpecies holds per-class means and standard deviations for the four measurements.
var irisSpecies = []struct {
	name  string
	means [4]float64
	sds   [4]float64
}{
	{"setosa", [4]float64{5.01, 3.43, 1.46, 0.25}, [4]float64{0.35, 0.38, 0.17, 0.11}},
	{"versicolor", [4]float64{5.94, 2.77, 4.26, 1.33}, [4]float64{0.52, 0.31, 0.47, 0.20}},
	{"virginica", [4]float64{6.59, 2.97, 5.55, 2.03}, [4]float64{0.64, 0.32, 0.55, 0.27}},
}

var irisGenerator = generator{
	title:       "Synthetic iris measurements",
	description: "Locally generated sepal and petal measurements for three iris species in equal proportion.",
	defaultRows: 150,
	header: func(intent.TaskType) []string {
		return []string{"sepal_length", "sepal_width", "petal_length", "petal_width", "species"}
	},
	row: func(r *rand.Rand, i int, _ intent.TaskType) []string {
		sp := irisSpecies[i%len(irisSpecies)]
		out := make([]string, 0, 5)
		for k := range sp.means {
			v := math.Max(0.1, sp.means[k]+r.NormFloat64()*sp.sds[k])
			out = append(out, f1(v))
		}
		return append(out, sp.name)
	},
}

var wineGenerator = generator{
	title:       "Synthetic wine quality",
	description: "Locally generated physicochemical wine measurements with an integer quality score from 3 to 8.",
	defaultRows: 600,
	header: func(intent.TaskType) []string {
		return []string{
			"fixed_acidity", "volatile_acidity", "citric_acid", "residual_sugar", "chlorides",
			"free_sulfur_dioxide", "total_sulfur_dioxide", "density", "pH", "sulphates", "alcohol", "quality",
		}
	},
	row: func(r *rand.Rand, _ int, _ intent.TaskType) []string {
		fixed := uniform(r, 4.6, 15.9)
		volatile := uniform(r, 0.12, 1.58)
		citric := uniform(r, 0, 1)
		sugar := uniform(r, 0.9, 15.5)
		chlorides := uniform(r, 0.012, 0.611)
		freeSO2 := uniform(r, 1, 72)
		totalSO2 := freeSO2 + uniform(r, 5, 217)
		density := uniform(r, 0.990, 1.004)
		ph := uniform(r, 2.74, 4.01)
		sulphates := uniform(r, 0.33, 2.0)
		alcohol := uniform(r, 8.4, 14.9)

		score := 5.6 + 0.4*(alcohol-10.4) - 1.5*(volatile-0.53) + 0.8*(sulphates-0.66) + r.NormFloat64()*0.5
		quality := int(clamp(math.Round(score), 3, 8))

		return []string{
			f2(fixed), f2(volatile), f2(citric), f2(sugar),
			fPrec(chlorides, 3), f1(freeSO2), f1(totalSO2), fPrec(density, 4),
			f2(ph), f2(sulphates), f1(alcohol), itoa(quality),
		}
	},
}

var heartGenerator = generator{
	title:       "Synthetic heart disease",
	description: "Locally generated cardiology records with a binary target marking presence of heart disease.",
	defaultRows: 303,
	header: func(intent.TaskType) []string {
		return []string{
			"age", "sex", "cp", "trestbps", "chol", "fbs", "restecg",
			"thalach", "exang", "oldpeak", "slope", "ca", "thal", "target",
		}
	},
	row: func(r *rand.Rand, _ int, _ intent.TaskType) []string {
		age := 29 + r.IntN(49)
		male := r.Float64() < 0.68
		cp := r.IntN(4)
		trestbps := 94 + r.IntN(107)
		chol := 126 + r.IntN(439)
		fbs := r.Float64() < 0.15
		restecg := r.IntN(3)
		thalach := 71 + r.IntN(132)
		exang := r.Float64() < 0.33
		oldpeak := math.Round(uniform(r, 0, 6.2)*10) / 10
		slope := r.IntN(3)
		ca := r.IntN(5)
		thal := r.IntN(4)

		risk := 0.04*float64(age-54) + 0.02*float64(150-thalach) + 0.4*oldpeak - 0.5*float64(cp)
		if exang {
			risk += 0.8
		}
		if male {
			risk += 0.3
		}
		target := risk+r.NormFloat64()*0.8 > 0

		return []string{
			itoa(age), boolInt(male), itoa(cp), itoa(trestbps), itoa(chol), boolInt(fbs), itoa(restecg),
			itoa(thalach), boolInt(exang), f1(oldpeak), itoa(slope), itoa(ca), itoa(thal), boolInt(target),
		}
	},
}

// genericWeights define the linear target; the threshold is its mean for features in [0,10).
var (
	genericWeights   = []float64{0.5, -1.2, 2.0, 0.8, -0.3}
	genericThreshold = 9.0
	genericEpoch     = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
)

var genericGenerator = generator{
	title:       "Synthetic tabular dataset",
	description: "Locally generated numeric features with a target derived from a weighted linear combination plus bounded noise.",
	defaultRows: 500,
	header: func(task intent.TaskType) []string {
		var h []string
		if task == intent.TaskTimeSeries {
			h = append(h, "date")
		}
		for k := range genericWeights {
			h = append(h, fmt.Sprintf("feature_%d", k+1))
		}
		if task.Supervised() {
			h = append(h, "target")
		}
		return h
	},
	row: func(r *rand.Rand, i int, task intent.TaskType) []string {
		out := make([]string, 0, len(genericWeights)+2)
		if task == intent.TaskTimeSeries {
			out = append(out, genericEpoch.AddDate(0, 0, i).Format(time.DateOnly))
		}

		// Clustering rows are drawn around three centres so the data has structure.
		centre := float64(i%3)*3 + 2
		linear := 0.0
		for _, w := range genericWeights {
			var v float64
			if task == intent.TaskClustering {
				v = clamp(centre+r.NormFloat64(), 0, 10)
			} else {
				v = uniform(r, 0, 10)
			}
			v = round2(v)
			linear += w * v
			out = append(out, f2(v))
		}

		bounded := clamp(r.NormFloat64(), -3, 3)
		switch task {
		case intent.TaskClustering:
		case intent.TaskRegression:
			out = append(out, f2(linear+bounded))
		case intent.TaskTimeSeries:
			out = append(out, f2(linear+0.05*float64(i)+bounded))
		default:
			out = append(out, boolInt(linear+bounded > genericThreshold))
		}
		return out
	},
}

func fPrec(v float64, prec int) string {
	return fmt.Sprintf("%.*f", prec, v)
}
