package models

import "time"

type DetectTextRequest struct {
	Text *string `json:"text"`
}

type DetectFaceRequest struct {
	Image *string `json:"image"`
}

type Sentiment struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

type TextDetectionResponse struct {
	Success     bool               `json:"success"`
	Emotion     string             `json:"emotion"`
	Confidence  float64            `json:"confidence"`
	AllEmotions map[string]float64 `json:"all_emotions"`
	Sentiment   Sentiment          `json:"sentiment"`
	TextLength  int                `json:"text_length"`
	Timestamp   time.Time          `json:"timestamp"`
}

type FaceDetectionResponse struct {
	Success       bool               `json:"success"`
	Emotion       string             `json:"emotion"`
	Confidence    float64            `json:"confidence"`
	AllEmotions   map[string]float64 `json:"all_emotions"`
	FacesDetected int                `json:"faces_detected"`
	Method        string             `json:"method"`
	Timestamp     time.Time          `json:"timestamp"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success       *bool  `json:"success,omitempty"`
	Error         string `json:"error"`
	Message       string `json:"message"`
	Tip           string `json:"tip,omitempty"`
	FacesDetected *int   `json:"faces_detected,omitempty"`
}

type HistoryResponse struct {
	Success bool           `json:"success"`
	History []HistoryEntry `json:"history"`
}

type StatsResponse struct {
	Success bool       `json:"success"`
	Stats   Statistics `json:"stats"`
}

type DatabaseInfoResponse struct {
	Success bool         `json:"success"`
	Info    DatabaseInfo `json:"info"`
}

type PruneResponse struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted"`
}

type HealthStatus struct {
	Status          string `json:"status"`
	Service         string `json:"service"`
	Version         string `json:"version"`
	Database        bool   `json:"database"`
	FaceClassifier  bool   `json:"face_classifier"`
	ActiveClients   int    `json:"active_clients"`
	UptimeSeconds   int64  `json:"uptime_sec"`
	SentimentSource string `json:"sentiment_source,omitempty"`
}

// WebSocketMessage is the envelope for every frame on /ws.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	ClientID  string      `json:"client_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

const historyTextLimit = 100

// Truncate shortens history text to 100 characters plus an ellipsis.
func Truncate(text string) string {
	r := []rune(text)
	if len(r) <= historyTextLimit {
		return text
	}
	return string(r[:historyTextLimit]) + "..."
}

// Entry converts a stored record into its history view.
func (r EmotionRecord) Entry() HistoryEntry {
	text := r.Text
	if text == "" {
		text = "Facial expression"
	}
	return HistoryEntry{
		ID:         r.ID,
		Text:       Truncate(text),
		Emotion:    r.Emotion,
		Confidence: r.Confidence,
		Timestamp:  r.Timestamp,
		Type:       r.DetectionType,
	}
}
