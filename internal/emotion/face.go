package emotion

import (
	"math"
	"strings"
)

// SourceLabels are the seven labels reported by facial expression
// classifiers.
var SourceLabels = [...]Label{Angry, Disgust, Fear, Happy, Sad, Surprise, Neutral}

type fanout struct {
	target Label
	factor float64
}

// band applies when the normalized source value is strictly above floor.
// Bands are listed from the highest floor down and the first match wins.
type band struct {
	floor   float64
	targets []fanout
}

var noFloor = math.Inf(-1)

var remapTable = map[Label][]band{
	Happy: {
		{0.5, []fanout{{Excited, 0.7}, {Happy, 0.5}}},
		{0.2, []fanout{{Happy, 0.9}, {Content, 0.4}}},
		{noFloor, []fanout{{Content, 0.7}, {Happy, 0.5}}},
	},
	Sad: {
		{0.4, []fanout{{Sad, 1.0}, {Tired, 0.3}}},
		{0.2, []fanout{{Sad, 0.8}, {Bored, 0.5}}},
		{noFloor, []fanout{{Tired, 0.6}, {Sad, 0.6}}},
	},
	Angry: {
		{0.4, []fanout{{Angry, 1.0}, {Frustrated, 0.3}}},
		{noFloor, []fanout{{Frustrated, 0.8}, {Angry, 0.6}}},
	},
	Fear: {
		{0.4, []fanout{{Fear, 0.9}, {Anxious, 0.4}}},
		{0.2, []fanout{{Anxious, 0.8}, {Worried, 0.5}}},
		{noFloor, []fanout{{Worried, 0.8}, {Fear, 0.4}}},
	},
	Surprise: {
		{0.3, []fanout{{Surprise, 1.0}, {Confused, 0.3}}},
		{noFloor, []fanout{{Confused, 0.8}, {Surprise, 0.6}}},
	},
	Disgust: {
		{noFloor, []fanout{{Disgust, 1.2}}},
	},
	Neutral: {
		{0.8, []fanout{{Neutral, 0.5}, {Calm, 0.3}}},
		{0.6, []fanout{{Calm, 0.4}, {Neutral, 0.2}}},
		{noFloor, []fanout{{Calm, 0.3}, {Neutral, 0.1}}},
	},
}

// NormalizeSource reduces classifier output to the seven source labels,
// scaled to sum to one. Unknown keys and negative values are ignored. The
// second return is false when there is no positive signal.
func NormalizeSource(source map[string]float64) (map[Label]float64, bool) {
	out := make(map[Label]float64, len(SourceLabels))
	var total float64
	for key, v := range source {
		l := Label(strings.ToLower(key))
		if _, ok := remapTable[l]; !ok || v <= 0 {
			continue
		}
		out[l] += v
		total += v
	}
	if total <= 0 {
		return out, false
	}
	for l := range out {
		out[l] /= total
	}
	return out, true
}

// Remap fans seven-label classifier scores out onto all sixteen labels.
// Every label is present in the result; with no source signal all are zero.
func Remap(source map[string]float64) ScoreMap {
	scores := NewScoreMap()
	normalized, ok := NormalizeSource(source)
	if !ok {
		return scores
	}
	for _, src := range SourceLabels {
		s, present := normalized[src]
		if !present {
			continue
		}
		for _, b := range remapTable[src] {
			if s <= b.floor {
				continue
			}
			for _, f := range b.targets {
				scores[f.target] += s * f.factor
			}
			break
		}
	}
	return scores
}

// ClassifyFace remaps classifier scores and finalizes them into a result.
func ClassifyFace(source map[string]float64, faces int, method string) Result {
	label, confidence, dist := Finalize(Remap(source))
	return Result{
		Label:        label,
		Confidence:   confidence,
		Distribution: dist,
		Modality:     ModalityFace,
		FaceCount:    faces,
		Method:       method,
	}
}
