package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type analyzeRequest struct {
	Image string `json:"image"`
}

type analyzeError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HTTPFaceClassifier posts images to a JSON model service at /analyze.
// A 422 response means the model found no face.
type HTTPFaceClassifier struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

func NewHTTPFaceClassifier(baseURL string, timeout time.Duration, breaker BreakerSettings, log *zap.Logger) *HTTPFaceClassifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if breaker.Name == "" {
		breaker.Name = "face-classifier-http"
	}
	return &HTTPFaceClassifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cb:      newBreaker(breaker, log),
	}
}

func (h *HTTPFaceClassifier) Analyze(ctx context.Context, img []byte) (*FaceAnalysis, error) {
	return execute(h.cb, func() (*FaceAnalysis, error) {
		b, _ := json.Marshal(analyzeRequest{Image: base64.StdEncoding.EncodeToString(img)})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/analyze", bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusUnprocessableEntity:
			return nil, fmt.Errorf("%w: %s", ErrNoFaceDetected, readError(resp.Body))
		case resp.StatusCode == http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %s", ErrInvalidImage, readError(resp.Body))
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: %s %s", ErrClassifierUnavailable, resp.Status, readError(resp.Body))
		default:
			return nil, fmt.Errorf("face classifier %s: %s", resp.Status, readError(resp.Body))
		}

		var out FaceAnalysis
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("face classifier decode: %w", err)
		}
		if out.Scores == nil {
			return nil, fmt.Errorf("face classifier: response has no emotions")
		}
		return &out, nil
	})
}

func readError(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e analyzeError
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func (h *HTTPFaceClassifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrClassifierUnavailable, resp.Status)
	}
	return nil
}
