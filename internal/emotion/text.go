package emotion

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// SentimentEstimator produces a polarity reading for cleaned text.
type SentimentEstimator interface {
	Estimate(ctx context.Context, text string) (SentimentReading, error)
}

var (
	spacePattern = regexp.MustCompile(`[\p{Z}\v\x{1c}-\x{1f}\x{85}]`)
	stripPattern = regexp.MustCompile(`[^a-z0-9\s.!?]`)
	tokenPattern = regexp.MustCompile(`[a-z0-9]+|[.!?]`)
)

const (
	intensifierFactor = 1.5
	negationFactor    = -0.5

	strongPolarity = 0.3
	weakPolarity   = 0.1
)

// Clean lowercases text and drops everything except ASCII letters, digits,
// whitespace and sentence punctuation. Unicode spaces become plain spaces so
// they still separate words.
func Clean(text string) string {
	text = spacePattern.ReplaceAllString(strings.ToLower(text), " ")
	return stripPattern.ReplaceAllString(text, "")
}

// Tokenize cleans text and splits it into word and punctuation tokens.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(Clean(text), -1)
}

// TextScorer classifies free text. It is safe for concurrent use as long as
// its estimator is.
type TextScorer struct {
	lexicon   *Lexicon
	sentiment SentimentEstimator
}

func NewTextScorer(lexicon *Lexicon, sentiment SentimentEstimator) *TextScorer {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &TextScorer{lexicon: lexicon, sentiment: sentiment}
}

// KeywordScores returns raw per-label trigger scores for a token sequence.
// Only the immediately preceding token modifies a trigger: an intensifier
// makes it count 1.5, a negation makes it count -0.5.
func (s *TextScorer) KeywordScores(tokens []string) ScoreMap {
	scores := NewScoreMap()
	for i, tok := range tokens {
		for _, l := range Labels {
			if !s.lexicon.IsTrigger(l, tok) {
				continue
			}
			score := 1.0
			switch {
			case s.negated(tokens, i):
				score *= negationFactor
			case i > 0 && s.lexicon.IsIntensifier(tokens[i-1]):
				score *= intensifierFactor
			}
			scores[l] += score
		}
	}
	return scores
}

func (s *TextScorer) negated(tokens []string, i int) bool {
	return i > 0 && s.lexicon.IsNegation(tokens[i-1])
}

// Score classifies text. Blank input short-circuits to a neutral result with
// zero confidence and an empty distribution.
func (s *TextScorer) Score(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{
			Label:        Neutral,
			Confidence:   0,
			Distribution: ScoreMap{},
			Modality:     ModalityText,
			Sentiment:    &SentimentReading{},
		}, nil
	}

	cleaned := Clean(text)
	reading, err := s.sentiment.Estimate(ctx, cleaned)
	if err != nil {
		return Result{}, fmt.Errorf("estimate sentiment: %w", err)
	}
	reading = reading.Rounded()

	scores := s.KeywordScores(tokenPattern.FindAllString(cleaned, -1))
	applySentiment(scores, reading.Polarity)

	label, confidence, dist := Finalize(scores)
	return Result{
		Label:        label,
		Confidence:   confidence,
		Distribution: dist,
		Modality:     ModalityText,
		Sentiment:    &reading,
	}, nil
}

func applySentiment(scores ScoreMap, polarity float64) {
	switch {
	case polarity > strongPolarity:
		scores[Happy] += polarity * 2
	case polarity < -strongPolarity:
		scores[Sad] += math.Abs(polarity) * 1.5
		scores[Angry] += math.Abs(polarity) * 1.0
	}

	// Exact zero only: a negated trigger leaves a nonzero signed sum.
	if scores.Sum() != 0 {
		return
	}
	switch {
	case polarity > weakPolarity:
		scores[Happy] = polarity
	case polarity < -weakPolarity:
		scores[Sad] = math.Abs(polarity)
	default:
		scores[Neutral] = 1.0
	}
}
