// Package growth models the broiler growth curve used to simulate batches:
// daily weight gain and mortality by age, feed intake as a share of body
// weight, and the running feed conversion ratio.
package growth

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

const (
	// FeedIntakeRatio is the daily feed intake as a share of body weight.
	FeedIntakeRatio = 0.08
	// DefaultDOCWeight is the placement weight of a day-old chick, in kg.
	DefaultDOCWeight = 0.04
)

// ErrInvalidParams is returned for simulations that cannot run.
var ErrInvalidParams = errors.New("invalid simulation parameters")

// Stage is one step of the curve, inclusive on both ends. ToDay 0 means open ended.
type Stage struct {
	FromDay       int
	ToDay         int
	DailyGain     float64
	MortalityRate float64
}

// Curve is an ordered list of stages covering every age from day 1.
type Curve []Stage

// BroilerCurve is the reference curve for broiler batches.
var BroilerCurve = Curve{
	{FromDay: 1, ToDay: 7, DailyGain: 0.015, MortalityRate: 0.0030},
	{FromDay: 8, ToDay: 14, DailyGain: 0.035, MortalityRate: 0.0015},
	{FromDay: 15, ToDay: 21, DailyGain: 0.055, MortalityRate: 0.0010},
	{FromDay: 22, ToDay: 28, DailyGain: 0.065, MortalityRate: 0.0005},
	{FromDay: 29, ToDay: 0, DailyGain: 0.050, MortalityRate: 0.0002},
}

// StageFor returns the stage containing age. Ages below 1 map to the first stage.
func (c Curve) StageFor(age int) Stage {
	for _, s := range c {
		if age <= s.ToDay || s.ToDay == 0 {
			return s
		}
	}
	return c[len(c)-1]
}

// Scenario scales mortality of every stage.
type Scenario string

const (
	ScenarioGood   Scenario = "good"
	ScenarioNormal Scenario = "normal"
	ScenarioPoor   Scenario = "poor"
)

var scenarioFactors = map[Scenario]float64{
	ScenarioGood:   0.5,
	ScenarioNormal: 1.0,
	ScenarioPoor:   2.0,
}

// MortalityFactor returns the scaling of the scenario.
func (s Scenario) MortalityFactor() (float64, error) {
	f, ok := scenarioFactors[s]
	if !ok {
		return 0, fmt.Errorf("%w: unknown scenario %q", ErrInvalidParams, s)
	}
	return f, nil
}

// FeedPhaseFor returns the feed phase suited to the age.
func FeedPhaseFor(age int) string {
	switch {
	case age <= 14:
		return models.FeedPhaseStarter
	case age <= 28:
		return models.FeedPhaseGrower
	default:
		return models.FeedPhaseFinisher
	}
}

// Params describes one simulated batch.
type Params struct {
	InitialPopulation int
	InitialWeight     float64
	Days              int
	Scenario          Scenario
	StartDate         time.Time
	// CullingRate is the daily share of birds culled (afkir), applied after mortality.
	CullingRate float64
	Curve       Curve
}

// Day is the simulated book entry of one day.
type Day struct {
	Day             int
	Date            time.Time
	PopulationStart int
	Deaths          int
	Culled          int
	PopulationEnd   int
	AvgWeight       float64
	WeightGain      float64
	FeedKg          float64
	CumulativeFeed  float64
	CumulativeGain  float64
	FCR             float64
}

// Simulate runs the curve day by day. Population never increases and the
// deaths and culls of all days add up to the total loss.
func Simulate(p Params) ([]Day, error) {
	if p.InitialPopulation <= 0 {
		return nil, fmt.Errorf("%w: population must be positive", ErrInvalidParams)
	}
	if p.Days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", ErrInvalidParams)
	}
	if p.CullingRate < 0 || p.CullingRate >= 1 {
		return nil, fmt.Errorf("%w: culling rate must be in [0, 1)", ErrInvalidParams)
	}
	if p.Scenario == "" {
		p.Scenario = ScenarioNormal
	}
	factor, err := p.Scenario.MortalityFactor()
	if err != nil {
		return nil, err
	}
	if p.InitialWeight <= 0 {
		p.InitialWeight = DefaultDOCWeight
	}
	curve := p.Curve
	if len(curve) == 0 {
		curve = BroilerCurve
	}

	days := make([]Day, 0, p.Days)
	population := p.InitialPopulation
	weight := p.InitialWeight
	var cumFeed, cumGain float64

	for d := 1; d <= p.Days; d++ {
		stage := curve.StageFor(d)

		deaths := min(int(math.Round(float64(population)*stage.MortalityRate*factor)), population)
		culled := min(int(math.Round(float64(population)*p.CullingRate)), population-deaths)
		end := population - deaths - culled

		weight += stage.DailyGain
		feed := FeedIntake(end, weight)
		cumFeed += feed
		cumGain += float64(end) * stage.DailyGain

		days = append(days, Day{
			Day:             d,
			Date:            p.StartDate.AddDate(0, 0, d-1),
			PopulationStart: population,
			Deaths:          deaths,
			Culled:          culled,
			PopulationEnd:   end,
			AvgWeight:       weight,
			WeightGain:      stage.DailyGain,
			FeedKg:          feed,
			CumulativeFeed:  cumFeed,
			CumulativeGain:  cumGain,
			FCR:             FCR(cumFeed, cumGain),
		})
		population = end
	}

	return days, nil
}

// FeedIntake is the daily feed of a population at the given average weight.
func FeedIntake(population int, avgWeight float64) float64 {
	if population <= 0 || avgWeight <= 0 {
		return 0
	}
	return float64(population) * avgWeight * FeedIntakeRatio
}

// FCR divides feed by weight gained, returning 0 when nothing was gained.
func FCR(feed, gain float64) float64 {
	if gain <= 0 {
		return 0
	}
	return feed / gain
}

// Totals sums a simulation.
type Totals struct {
	Deaths      int
	Culled      int
	FinalPop    int
	FeedKg      float64
	FeedByPhase map[string]float64
	FinalWeight float64
	FinalFCR    float64
}

// Summarize folds a simulation into totals, splitting feed by phase.
func Summarize(days []Day) Totals {
	t := Totals{FeedByPhase: map[string]float64{}}
	for _, d := range days {
		t.Deaths += d.Deaths
		t.Culled += d.Culled
		t.FeedKg += d.FeedKg
		t.FeedByPhase[FeedPhaseFor(d.Day)] += d.FeedKg
	}
	if n := len(days); n > 0 {
		last := days[n-1]
		t.FinalPop = last.PopulationEnd
		t.FinalWeight = last.AvgWeight
		t.FinalFCR = last.FCR
	}
	return t
}
