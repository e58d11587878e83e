// Package sentiment provides polarity estimators for the text scorer.
package sentiment

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/bbalet/stopwords"
	"gopkg.in/neurosnap/sentences.v1"
	"gopkg.in/neurosnap/sentences.v1/english"

	"emotion-detector/internal/emotion"
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

const (
	negationWindow = 3
	modifierWindow = 2
)

// LexiconEstimator scores polarity sentence by sentence from a built-in
// word list. Subjectivity is the share of content words that carry
// sentiment.
type LexiconEstimator struct {
	mu        sync.Mutex
	tokenizer *sentences.DefaultSentenceTokenizer
	polarity  map[string]float64
	modifiers map[string]float64
	negations map[string]bool
}

func NewLexiconEstimator() (*LexiconEstimator, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load sentence tokenizer: %w", err)
	}
	return &LexiconEstimator{
		tokenizer: tokenizer,
		polarity:  englishPolarity,
		modifiers: englishModifiers,
		negations: englishNegations,
	}, nil
}

type sentenceScore struct {
	polarity   float64
	hits       int
	subjective float64
	content    int
}

func (e *LexiconEstimator) Estimate(ctx context.Context, text string) (emotion.SentimentReading, error) {
	if err := ctx.Err(); err != nil {
		return emotion.SentimentReading{}, err
	}
	if strings.TrimSpace(text) == "" {
		return emotion.SentimentReading{}, nil
	}

	e.mu.Lock()
	sents := e.tokenizer.Tokenize(text)
	e.mu.Unlock()

	var (
		weighted   float64
		hits       int
		subjective float64
		content    int
	)
	for _, s := range sents {
		sc := e.scoreSentence(s.Text)
		weighted += sc.polarity * float64(sc.hits)
		hits += sc.hits
		subjective += sc.subjective
		content += sc.content
	}

	var reading emotion.SentimentReading
	if hits > 0 {
		reading.Polarity = clamp(weighted/float64(hits), -1, 1)
	}
	if content > 0 {
		reading.Subjectivity = clamp(subjective/float64(content), 0, 1)
	}
	return reading.Rounded(), nil
}

func (e *LexiconEstimator) scoreSentence(text string) sentenceScore {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)

	var sc sentenceScore
	var pos, neg float64
	for i, tok := range tokens {
		base := e.polarity[tok]
		if base == 0 {
			if e.modifiers[tok] != 0 {
				sc.subjective += 0.5
			}
			continue
		}
		sc.subjective++

		modified := e.applyModifiers(base, tokens, i)
		if e.negated(tokens, i) {
			modified = -modified * 0.5
		}
		if modified > 0 {
			pos += modified
		} else {
			neg += math.Abs(modified)
		}
		sc.hits++
	}
	sc.content = len(wordPattern.FindAllString(stopwords.CleanString(text, "en", false), -1))
	if sc.content < sc.hits {
		sc.content = sc.hits
	}
	if sc.hits == 0 {
		return sc
	}

	pos /= float64(sc.hits)
	neg /= float64(sc.hits)
	switch {
	case neg == 0:
		sc.polarity = math.Min(1, pos*1.5)
	case pos == 0:
		sc.polarity = math.Max(-1, -neg*1.5)
	default:
		sc.polarity = (pos - neg) / (pos + neg)
	}
	return sc
}

func (e *LexiconEstimator) negated(tokens []string, i int) bool {
	for j := max(0, i-negationWindow); j < i; j++ {
		if e.negations[tokens[j]] {
			return true
		}
	}
	return false
}

func (e *LexiconEstimator) applyModifiers(base float64, tokens []string, i int) float64 {
	for j := max(0, i-modifierWindow); j < i; j++ {
		if m := e.modifiers[tokens[j]]; m != 0 {
			return base * (1 + m)
		}
	}
	return base
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
