package dispatch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

var scoreWeights = []float64{0.40, 0.35, 0.25}

// OptimizationResult reports the quality of one auto-assignment pass.
type OptimizationResult struct {
	PassID               string              `json:"pass_id"`
	Score                float64             `json:"score"`
	Eligible             int                 `json:"eligible"`
	Assigned             int                 `json:"assigned"`
	AssignmentRate       float64             `json:"assignment_rate"`
	ExpressCoverage      float64             `json:"express_coverage"`
	Utilization          float64             `json:"utilization"`
	RegulationCompliance float64             `json:"regulation_compliance"`
	TimeWindowCompliance float64             `json:"time_window_compliance"`
	ByPriority           map[string]int      `json:"by_priority"`
	Unassigned           []string            `json:"unassigned"`
	Assignments          map[string][]string `json:"assignments"`
}

type passTotals struct {
	eligible, assigned          int
	express, expressAssigned    int
	usedWeight, capacity        float64
	regChecks, regRejects       int
	windowChecks, windowRejects int
}

// percent returns part/whole*100, or full when whole is zero.
func percent(part, whole int, full float64) float64 {
	if whole == 0 {
		return full
	}
	return float64(part) / float64(whole) * 100
}

// score computes the rounded optimization score in [0, 100] and fills the
// percentage fields of res.
func score(t passTotals, res *OptimizationResult) {
	assignRate := ratio(float64(t.assigned), float64(t.eligible))
	express := 1.0
	if t.express > 0 {
		express = ratio(float64(t.expressAssigned), float64(t.express))
	}
	util := ratio(t.usedWeight, t.capacity)

	s := floats.Dot(scoreWeights, []float64{assignRate, express, util}) * 100
	res.Score = math.Min(100, math.Round(s))
	res.AssignmentRate = round2(assignRate * 100)
	res.ExpressCoverage = round2(express * 100)
	res.Utilization = round2(util * 100)
	res.RegulationCompliance = round2(percent(t.regChecks-t.regRejects, t.regChecks, 100))
	res.TimeWindowCompliance = round2(percent(t.windowChecks-t.windowRejects, t.windowChecks, 100))
}

func ratio(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
