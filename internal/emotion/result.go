package emotion

import "math"

// SentimentReading is the polarity estimate attached to text results.
type SentimentReading struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

// Rounded returns the reading with both values rounded to three places.
func (s SentimentReading) Rounded() SentimentReading {
	return SentimentReading{
		Polarity:     Round3(s.Polarity),
		Subjectivity: Round3(s.Subjectivity),
	}
}

// Result is the outcome of a single detection. Distribution is empty only for
// blank text input.
type Result struct {
	Label        Label             `json:"emotion"`
	Confidence   float64           `json:"confidence"`
	Distribution ScoreMap          `json:"all_emotions"`
	Modality     Modality          `json:"modality"`
	Sentiment    *SentimentReading `json:"sentiment,omitempty"`
	FaceCount    int               `json:"faces_detected,omitempty"`
	Method       string            `json:"method,omitempty"`
}

// Round3 rounds half away from zero to three decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
