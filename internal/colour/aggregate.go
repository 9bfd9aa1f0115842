package colour

import "sort"

// MaxRanked is the default number of colours kept by Aggregator.Ranked.
const MaxRanked = 30

// Aggregator accumulates weight per colour. Insertion order is remembered so
// that ties rank in first-encountered order.
type Aggregator struct {
	weights map[Hex]float64
	order   []Hex
	total   float64
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{weights: make(map[Hex]float64)}
}

// Add accumulates weight for c. Empty colours are ignored.
func (a *Aggregator) Add(c Hex, weight float64) {
	if c == "" {
		return
	}
	if _, ok := a.weights[c]; !ok {
		a.order = append(a.order, c)
	}
	a.weights[c] += weight
	a.total += weight
}

// Total returns the summed weight of every sample added, including colours
// that Ranked later truncates.
func (a *Aggregator) Total() float64 {
	return a.total
}

// Distinct returns the number of distinct colours seen.
func (a *Aggregator) Distinct() int {
	return len(a.order)
}

// Ranked returns at most limit colours in descending weight order. A limit
// of zero or less returns every colour. Percentages are relative to the total
// weight of all samples.
func (a *Aggregator) Ranked(limit int) []WeightedColour {
	out := make([]WeightedColour, 0, len(a.order))
	for _, c := range a.order {
		w := a.weights[c]
		pct := 0.0
		if a.total > 0 {
			pct = w / a.total * 100
		}
		out = append(out, WeightedColour{Color: c, Weight: w, Percentage: pct})
	}

	sortByWeight(out)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// sortByWeight sorts colours by descending weight, keeping the relative order
// of equal weights.
func sortByWeight(colours []WeightedColour) {
	sort.SliceStable(colours, func(i, j int) bool {
		return colours[i].Weight > colours[j].Weight
	})
}
