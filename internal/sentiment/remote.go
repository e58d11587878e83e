package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"emotion-detector/internal/emotion"
)

type remoteRequest struct {
	Text string `json:"text"`
}

type remoteResponse struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

// RemoteEstimator delegates polarity estimation to an HTTP service that
// answers POST /sentiment with {"polarity", "subjectivity"}.
type RemoteEstimator struct {
	baseURL string
	client  *http.Client
}

func NewRemoteEstimator(baseURL string, timeout time.Duration) *RemoteEstimator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteEstimator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *RemoteEstimator) Estimate(ctx context.Context, text string) (emotion.SentimentReading, error) {
	b, _ := json.Marshal(remoteRequest{Text: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/sentiment", bytes.NewReader(b))
	if err != nil {
		return emotion.SentimentReading{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return emotion.SentimentReading{}, fmt.Errorf("sentiment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return emotion.SentimentReading{}, fmt.Errorf("sentiment %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return emotion.SentimentReading{}, fmt.Errorf("sentiment decode: %w", err)
	}
	return emotion.SentimentReading{
		Polarity:     clamp(out.Polarity, -1, 1),
		Subjectivity: clamp(out.Subjectivity, 0, 1),
	}.Rounded(), nil
}
