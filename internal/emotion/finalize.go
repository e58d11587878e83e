package emotion

import "gonum.org/v1/gonum/floats"

// Finalize turns raw scores into a rounded distribution and picks the
// dominant label. A signed total at or below zero yields neutral at 1.0.
// Otherwise negative raw values are clamped to zero before normalizing so
// the distribution stays within [0,1].
func Finalize(raw ScoreMap) (Label, float64, ScoreMap) {
	values := make([]float64, len(Labels))
	for i, l := range Labels {
		values[i] = raw[l]
	}

	dist := make(ScoreMap, len(Labels))
	if floats.Sum(values) <= 0 {
		for _, l := range Labels {
			dist[l] = 0
		}
		dist[Neutral] = 1.0
		return Neutral, 1.0, dist
	}

	for i, v := range values {
		if v < 0 {
			values[i] = 0
		}
	}
	floats.Scale(1/floats.Sum(values), values)
	for i, l := range Labels {
		values[i] = Round3(values[i])
		dist[l] = values[i]
	}

	// MaxIdx returns the first maximal index, which is the canonical tie-break.
	label := Labels[floats.MaxIdx(values)]
	return label, dist[label], dist
}
