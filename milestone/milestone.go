/*
Package milestone detects collection-size milestones.

PURPOSE:
  A milestone is a fixed total-card-count threshold with a celebration
  attached. When a mutation moves a collector's total from prev to next,
  every threshold t with prev < t <= next has been crossed. Decreases
  never cross anything.

LADDER:
  1 → 10 → 50 → 100 → 250 → 500 → 1000

  Progress toward the next rung is measured within the span between the
  last reached rung and the next one, so a collector at 30 cards is 50%
  of the way from 10 to 50.

SEE ALSO:
  - service/service.go: records celebrated milestones and publishes
    milestone.reached events
*/
package milestone

import "math"

// Intensity hints how loud a celebration should be.
type Intensity string

const (
	IntensityLight  Intensity = "light"
	IntensityMedium Intensity = "medium"
	IntensityHeavy  Intensity = "heavy"
	IntensityEpic   Intensity = "epic"
)

// Definition describes one milestone.
type Definition struct {
	Key       string    `json:"key"`
	Threshold int       `json:"threshold"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Intensity Intensity `json:"intensity"`
}

var definitions = []Definition{
	{"milestone_1", 1, "First Card", "Your collection has begun!", IntensityLight},
	{"milestone_10", 10, "Getting Started", "10 cards collected!", IntensityLight},
	{"milestone_50", 50, "Growing Collection", "50 cards and counting!", IntensityMedium},
	{"milestone_100", 100, "Century Club", "100 cards! That's a real collection.", IntensityMedium},
	{"milestone_250", 250, "Dedicated Collector", "250 cards collected!", IntensityHeavy},
	{"milestone_500", 500, "Serious Collector", "500 cards! Impressive dedication.", IntensityHeavy},
	{"milestone_1000", 1000, "Master Collector", "1,000 cards! A true master.", IntensityEpic},
}

// All returns every milestone in ascending threshold order.
func All() []Definition {
	return append([]Definition(nil), definitions...)
}

// ByKey looks up a milestone by its key.
func ByKey(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// CheckCrossed returns the highest milestone crossed going from prev to
// next total cards.
func CheckCrossed(prev, next int) (Definition, bool) {
	crossed := AllCrossed(prev, next)
	if len(crossed) == 0 {
		return Definition{}, false
	}
	return crossed[len(crossed)-1], true
}

// AllCrossed returns every milestone crossed going from prev to next, in
// ascending order.
func AllCrossed(prev, next int) []Definition {
	if next <= prev {
		return nil
	}
	var out []Definition
	for _, d := range definitions {
		if d.Threshold > prev && d.Threshold <= next {
			out = append(out, d)
		}
	}
	return out
}

// Uncelebrated drops milestones whose keys are in celebrated.
func Uncelebrated(defs []Definition, celebrated map[string]bool) []Definition {
	var out []Definition
	for _, d := range defs {
		if !celebrated[d.Key] {
			out = append(out, d)
		}
	}
	return out
}

// =============================================================================
// PROGRESS
// =============================================================================

// Progress locates a card count on the ladder.
type Progress struct {
	Count       int         `json:"count"`
	Current     *Definition `json:"current"`
	Next        *Definition `json:"next"`
	CardsToNext int         `json:"cards_to_next"`
	Percent     int         `json:"percent"`
}

// ProgressFor reports the highest reached and lowest unreached milestones
// for count. Percent is 0..100 within the current span and is 100 once
// every milestone is reached.
func ProgressFor(count int) Progress {
	p := Progress{Count: count}
	for i := range definitions {
		d := definitions[i]
		if d.Threshold <= count {
			p.Current = &d
			continue
		}
		p.Next = &d
		break
	}

	if p.Next == nil {
		p.Percent = 100
		return p
	}

	floor := 0
	if p.Current != nil {
		floor = p.Current.Threshold
	}
	p.CardsToNext = p.Next.Threshold - count

	span := float64(p.Next.Threshold - floor)
	pct := math.Round(float64(count-floor) / span * 100)
	p.Percent = int(math.Max(0, math.Min(100, pct)))
	return p
}
