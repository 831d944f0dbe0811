package engine

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"market-scanner/internal/models"
)

// genMovement produces a pct/change pair large enough that neither axis
// rounds to zero at display precision.
func genMovement() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0.05, 50.0),
		gen.Float64Range(0.05, 20.0),
		gen.Bool(),
	).Map(func(vals []interface{}) []float64 {
		pct := vals[0].(float64)
		change := vals[1].(float64)
		if vals[2].(bool) {
			pct, change = -pct, -change
		}
		return []float64{pct, change}
	})
}

func genCode() gopter.Gen {
	return gen.RegexMatch(`[A-Z]{3,4}`)
}

func TestZeroThresholdsAdmitNoMovers(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("unconfigured thresholds reject every mover", prop.ForAll(
		func(code string, movement []float64) bool {
			eval := NewEvaluator(nil, nil, nil)
			h := models.Hit{
				Code:      code,
				Intent:    models.IntentMover,
				Price:     25.0,
				Pct:       movement[0],
				Change:    movement[1],
				Direction: models.DirectionOf(movement[0]),
			}
			return !eval.Admit(h, models.ScannerRules{}, EvalOptions{})
		},
		genCode(),
		genMovement(),
	))

	properties.TestingRun(t)
}

func TestSectorWhitelistSemantics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	rules := func(filters []string) models.ScannerRules {
		return models.ScannerRules{
			Up:            models.DirectionRule{PercentThreshold: 0.01},
			Down:          models.DirectionRule{PercentThreshold: 0.01},
			ActiveFilters: filters,
		}
	}

	properties.Property("nil whitelist admits any sector", prop.ForAll(
		func(code, sector string, movement []float64) bool {
			eval := NewEvaluator(nil, nil, nil)
			h := models.Hit{
				Code:      code,
				Sector:    sector,
				Intent:    models.IntentMover,
				Price:     25.0,
				Pct:       movement[0],
				Change:    movement[1],
				Direction: models.DirectionOf(movement[0]),
			}
			return eval.Admit(h, rules(nil), EvalOptions{})
		},
		genCode(),
		gen.RegexMatch(`[A-Z]{4,10}`),
		genMovement(),
	))

	properties.Property("empty whitelist blocks every sector", prop.ForAll(
		func(code, sector string, movement []float64) bool {
			eval := NewEvaluator(nil, nil, nil)
			h := models.Hit{
				Code:      code,
				Sector:    sector,
				Intent:    models.IntentMover,
				Price:     25.0,
				Pct:       movement[0],
				Change:    movement[1],
				Direction: models.DirectionOf(movement[0]),
			}
			return !eval.Admit(h, rules([]string{}), EvalOptions{})
		},
		genCode(),
		gen.RegexMatch(`[A-Z]{4,10}`),
		genMovement(),
	))

	properties.TestingRun(t)
}

func TestMinPriceFloorAndOverride(t *testing.T) {
	eval := func(owned bool, code string) *Evaluator {
		shares := map[string]models.Share{}
		if owned {
			shares[code] = models.Share{Code: code}
		}
		return NewEvaluator(nil, shares, nil)
	}

	rules := models.ScannerRules{
		Up:       models.DirectionRule{PercentThreshold: 1.0},
		MinPrice: 1.0,
	}

	h := models.Hit{
		Code: "PNY", Intent: models.IntentMover, Direction: models.DirectionUp,
		Price: 0.20, Pct: 8.0, Change: 0.015,
	}

	if eval(false, "PNY").Admit(h, rules, EvalOptions{}) {
		t.Fatal("sub-floor mover admitted without override")
	}
	if !eval(true, "PNY").Admit(h, rules, EvalOptions{}) {
		t.Fatal("owned sub-floor mover rejected despite active override")
	}

	noOverride := rules.WithoutOverride()
	if eval(true, "PNY").Admit(h, noOverride, EvalOptions{Global: true}) {
		t.Fatal("global evaluation honored the watchlist override")
	}
}
