package emotion

import (
	"errors"
	"fmt"
	"strings"
)

// Label is one of the sixteen emotions a detection can resolve to.
type Label string

const (
	Happy      Label = "happy"
	Excited    Label = "excited"
	Content    Label = "content"
	Calm       Label = "calm"
	Sad        Label = "sad"
	Tired      Label = "tired"
	Bored      Label = "bored"
	Angry      Label = "angry"
	Frustrated Label = "frustrated"
	Disgust    Label = "disgust"
	Fear       Label = "fear"
	Anxious    Label = "anxious"
	Worried    Label = "worried"
	Surprise   Label = "surprise"
	Confused   Label = "confused"
	Neutral    Label = "neutral"
)

// Labels lists every label in canonical order. Argmax ties resolve to the
// earliest entry.
var Labels = [...]Label{
	Happy, Excited, Content, Calm,
	Sad, Tired, Bored,
	Angry, Frustrated, Disgust,
	Fear, Anxious, Worried,
	Surprise, Confused,
	Neutral,
}

var ErrUnknownLabel = errors.New("unknown emotion label")

// ParseLabel resolves a case-insensitive label name.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
	return l, nil
}

func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

func (l Label) String() string {
	return string(l)
}

// ScoreMap holds one value per label. Raw text scores may be negative;
// finalized distributions never are.
type ScoreMap map[Label]float64

// NewScoreMap returns a map with every label present at zero.
func NewScoreMap() ScoreMap {
	m := make(ScoreMap, len(Labels))
	for _, l := range Labels {
		m[l] = 0
	}
	return m
}

// Sum adds every value, including negative ones.
func (m ScoreMap) Sum() float64 {
	var total float64
	for _, l := range Labels {
		total += m[l]
	}
	return total
}

// Strings returns a copy keyed by plain label names.
func (m ScoreMap) Strings() map[string]float64 {
	out := make(map[string]float64, len(m))
	for l, v := range m {
		out[string(l)] = v
	}
	return out
}

// Modality records which input kind produced a result.
type Modality string

const (
	ModalityText Modality = "text"
	ModalityFace Modality = "face"
)
