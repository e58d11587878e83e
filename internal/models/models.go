package models

import "time"

const (
	DetectionText = "text"
	DetectionFace = "face"
)

// EmotionRecord is one stored detection.
type EmotionRecord struct {
	ID                    int64              `json:"id"`
	Text                  string             `json:"text"`
	Emotion               string             `json:"emotion"`
	Confidence            float64            `json:"confidence"`
	AllEmotions           map[string]float64 `json:"all_emotions"`
	SentimentPolarity     *float64           `json:"sentiment_polarity"`
	SentimentSubjectivity *float64           `json:"sentiment_subjectivity"`
	DetectionType         string             `json:"type"`
	FacesDetected         *int               `json:"faces_detected"`
	Method                *string            `json:"method"`
	Timestamp             time.Time          `json:"timestamp"`
}

// HistoryEntry is the trimmed view of a record returned by history listings.
type HistoryEntry struct {
	ID         int64     `json:"id,omitempty"`
	Text       string    `json:"text"`
	Emotion    string    `json:"emotion"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
}

type Statistics struct {
	Total         int                `json:"total"`
	Emotions      map[string]int     `json:"emotions"`
	ByType        map[string]int     `json:"by_type"`
	AvgConfidence map[string]float64 `json:"avg_confidence"`
	DailyActivity map[string]int     `json:"daily_activity"`
}

type DatabaseInfo struct {
	Path         string  `json:"database_path"`
	Driver       string  `json:"driver"`
	TotalRecords int     `json:"total_records"`
	SizeMB       float64 `json:"size_mb"`
	SizeBytes    int64   `json:"size_bytes"`
}
