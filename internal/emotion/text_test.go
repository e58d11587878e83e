package emotion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEstimator struct {
	reading SentimentReading
	err     error
	calls   int
	texts   []string
}

func (s *stubEstimator) Estimate(_ context.Context, text string) (SentimentReading, error) {
	s.calls++
	s.texts = append(s.texts, text)
	return s.reading, s.err
}

func newScorer(polarity float64) (*TextScorer, *stubEstimator) {
	est := &stubEstimator{reading: SentimentReading{Polarity: polarity, Subjectivity: 0.5}}
	return NewTextScorer(DefaultLexicon(), est), est
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"I'm SO happy!!", []string{"im", "so", "happy", "!", "!"}},
		{"Wait... what?", []string{"wait", ".", ".", ".", "what", "?"}},
		{"fired up", []string{"fired", "up"}},
		{"so-so, café", []string{"soso", "caf"}},
		{"I am\u00a0happy", []string{"i", "am", "happy"}},
		{"sad\vtired\u2028bored\u3000calm", []string{"sad", "tired", "bored", "calm"}},
		{"   ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tokenize(tt.in), tt.in)
	}
}

func TestKeywordScores(t *testing.T) {
	scorer, _ := newScorer(0)

	tests := []struct {
		name string
		text string
		want map[Label]float64
	}{
		{"plain trigger", "I am happy", map[Label]float64{Happy: 1}},
		{"intensified", "I am very happy", map[Label]float64{Happy: 1.5}},
		{"negated", "I am not happy", map[Label]float64{Happy: -0.5}},
		{"negation two tokens back is ignored", "I am not very happy", map[Label]float64{Happy: 1.5}},
		{"negation overrides intensifier", "really not happy", map[Label]float64{Happy: -0.5}},
		{"shared trigger", "so upset", map[Label]float64{Sad: 1.5, Angry: 1.5}},
		{"repeated triggers", "happy happy joy", map[Label]float64{Happy: 3}},
		{"multi-word trigger is inert", "fired up and worn out", map[Label]float64{Excited: 0, Tired: 0}},
		{"negation word as trigger", "nothing", map[Label]float64{Neutral: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := scorer.KeywordScores(Tokenize(tt.text))
			require.Len(t, scores, len(Labels))
			for l, v := range tt.want {
				assert.Equal(t, v, scores[l], "label %s", l)
			}
		})
	}
}

func TestScoreBlankText(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		scorer, est := newScorer(0.9)
		res, err := scorer.Score(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, Neutral, res.Label)
		assert.Equal(t, 0.0, res.Confidence)
		assert.Empty(t, res.Distribution)
		assert.Equal(t, &SentimentReading{}, res.Sentiment)
		assert.Equal(t, ModalityText, res.Modality)
		assert.Zero(t, est.calls)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		polarity   float64
		label      Label
		confidence float64
		want       map[Label]float64
	}{
		{
			name:       "intensified and plain triggers",
			text:       "I am so happy and excited about this!",
			label:      Happy,
			confidence: 0.6,
			want:       map[Label]float64{Happy: 0.6, Excited: 0.4},
		},
		{
			name:       "strong positive polarity boosts happy",
			text:       "the meeting is at noon",
			polarity:   0.5,
			label:      Happy,
			confidence: 1.0,
		},
		{
			name:       "strong negative polarity splits sad and angry",
			text:       "the meeting is at noon",
			polarity:   -0.6,
			label:      Sad,
			confidence: 0.6,
			want:       map[Label]float64{Sad: 0.6, Angry: 0.4},
		},
		{
			name:       "weak positive fallback",
			text:       "the meeting is at noon",
			polarity:   0.2,
			label:      Happy,
			confidence: 1.0,
		},
		{
			name:       "weak negative fallback",
			text:       "the meeting is at noon",
			polarity:   -0.2,
			label:      Sad,
			confidence: 1.0,
		},
		{
			name:       "no signal falls back to neutral",
			text:       "the meeting is at noon",
			polarity:   0.05,
			label:      Neutral,
			confidence: 1.0,
		},
		{
			name:       "negated trigger skips the fallback",
			text:       "I am not happy",
			polarity:   0.2,
			label:      Neutral,
			confidence: 1.0,
			want:       map[Label]float64{Happy: 0},
		},
		{
			name:       "negative signed total falls back to neutral",
			text:       "not happy not happy not happy but sad",
			label:      Neutral,
			confidence: 1.0,
			want:       map[Label]float64{Happy: 0, Sad: 0, Neutral: 1.0},
		},
		{
			name:       "sentiment adds to keyword scores",
			text:       "I feel lonely",
			polarity:   -0.4,
			label:      Sad,
			confidence: 0.8,
			want:       map[Label]float64{Sad: 0.8, Angry: 0.2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer, est := newScorer(tt.polarity)
			res, err := scorer.Score(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.label, res.Label)
			assert.Equal(t, tt.confidence, res.Confidence)
			assert.Equal(t, res.Distribution[res.Label], res.Confidence)
			for l, v := range tt.want {
				assert.Equal(t, v, res.Distribution[l], "label %s", l)
			}
			assert.Equal(t, 1, est.calls)
			assert.Equal(t, Clean(tt.text), est.texts[0])
		})
	}
}

func TestScoreNegationChangesOutcome(t *testing.T) {
	// The keyword score is the same for both sentences; the estimator's
	// polarity carries the negation.
	positive, _ := newScorer(0.8)
	negative, _ := newScorer(-0.7)

	plain, err := positive.Score(context.Background(), "I am very happy")
	require.NoError(t, err)
	negated, err := negative.Score(context.Background(), "I am not very happy")
	require.NoError(t, err)

	assert.Equal(t, 1.0, plain.Distribution[Happy])
	assert.Equal(t, 0.462, negated.Distribution[Happy])
	assert.Equal(t, 0.323, negated.Distribution[Sad])

	var maxDiff float64
	for _, l := range Labels {
		d := plain.Distribution[l] - negated.Distribution[l]
		if d < 0 {
			d = -d
		}
		if d > maxDiff {
			maxDiff = d
		}
	}
	assert.Greater(t, maxDiff, 0.1)
}

func TestScoreIsIdempotent(t *testing.T) {
	scorer, _ := newScorer(0.4)
	text := "This is terrible and makes me really angry."

	first, err := scorer.Score(context.Background(), text)
	require.NoError(t, err)
	second, err := scorer.Score(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScoreRoundsSentiment(t *testing.T) {
	est := &stubEstimator{reading: SentimentReading{Polarity: 0.12345, Subjectivity: 0.6667}}
	scorer := NewTextScorer(nil, est)

	res, err := scorer.Score(context.Background(), "fine")
	require.NoError(t, err)
	require.NotNil(t, res.Sentiment)
	assert.Equal(t, SentimentReading{Polarity: 0.123, Subjectivity: 0.667}, *res.Sentiment)
}

func TestScoreEstimatorFailure(t *testing.T) {
	boom := errors.New("estimator down")
	scorer := NewTextScorer(nil, &stubEstimator{err: boom})

	_, err := scorer.Score(context.Background(), "happy")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
