package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"emotion-detector/internal/database"
	"emotion-detector/internal/emotion"
	"emotion-detector/internal/models"
	"emotion-detector/internal/services"
)

type fixedSentiment struct {
	polarity float64
}

func (f fixedSentiment) Estimate(context.Context, string) (emotion.SentimentReading, error) {
	return emotion.SentimentReading{Polarity: f.polarity, Subjectivity: 0.6}, nil
}

type stubFace struct {
	analysis *services.FaceAnalysis
	err      error
}

func (s *stubFace) Analyze(context.Context, []byte) (*services.FaceAnalysis, error) {
	return s.analysis, s.err
}

func (s *stubFace) Ping(context.Context) error { return s.err }

type testEnv struct {
	api      *API
	store    *database.Store
	detector *services.Detector
	hub      *Hub
	handler  http.Handler
}

func newTestEnv(t *testing.T, opts Options, face services.FaceClassifier) *testEnv {
	t.Helper()
	store, err := database.Open(context.Background(), database.Options{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "emotions.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	scorer := emotion.NewTextScorer(nil, fixedSentiment{polarity: 0.5})
	det := services.NewDetector(scorer, store, services.DetectorOptions{MaxTextLength: 40, Face: face}, zap.NewNop())
	hub := NewHub(det, 0, zap.NewNop())
	api := NewAPI(det, store, hub, opts, zap.NewNop())
	return &testEnv{api: api, store: store, detector: det, hub: hub, handler: api.Routes()}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func encodedPNG(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func happyFace() *stubFace {
	return &stubFace{analysis: &services.FaceAnalysis{Dominant: "happy", Scores: map[string]float64{"happy": 1}}}
}

func TestDetectText(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)

	rec := env.do(t, http.MethodPost, "/api/detect", `{"text":"I am so happy today!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[models.TextDetectionResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "happy", resp.Emotion)
	assert.Equal(t, 1.0, resp.Confidence)
	assert.Len(t, resp.AllEmotions, len(emotion.Labels))
	assert.Equal(t, 0.5, resp.Sentiment.Polarity)
	assert.Equal(t, 20, resp.TextLength)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestDetectTextErrors(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)

	tests := []struct {
		name    string
		method  string
		body    string
		status  int
		title   string
		message string
	}{
		{"missing text", http.MethodPost, `{}`, http.StatusBadRequest, "No text provided", "Please provide text in the request body"},
		{"bad json", http.MethodPost, `{"text":`, http.StatusBadRequest, "No text provided", "Please provide text in the request body"},
		{"blank", http.MethodPost, `{"text":"   "}`, http.StatusBadRequest, "Empty text", "Please provide non-empty text"},
		{"too long", http.MethodPost, `{"text":"` + strings.Repeat("a", 41) + `"}`, http.StatusBadRequest,
			"Text too long", "Please provide text with less than 40 characters"},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed, "Method not allowed", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, "/api/detect", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decode[models.ErrorResponse](t, rec)
			assert.Equal(t, tt.title, body.Error)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}
}

func TestDetectFace(t *testing.T) {
	env := newTestEnv(t, Options{}, happyFace())

	rec := env.do(t, http.MethodPost, "/api/detect-face", `{"image":"`+encodedPNG(t)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[models.FaceDetectionResponse](t, rec)
	assert.Equal(t, "excited", resp.Emotion)
	assert.InDelta(t, 0.583, resp.Confidence, 1e-9)
	assert.Equal(t, 1, resp.FacesDetected)
	assert.Equal(t, services.DefaultFaceMethod, resp.Method)
}

func TestDetectFaceErrors(t *testing.T) {
	env := newTestEnv(t, Options{}, &stubFace{err: services.ErrNoFaceDetected})

	rec := env.do(t, http.MethodPost, "/api/detect-face", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No image provided", decode[models.ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/api/detect-face", `{"image":"`+encodedPNG(t)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, "Detection failed", body.Error)
	require.NotNil(t, body.Success)
	assert.False(t, *body.Success)
	assert.Contains(t, body.Message, "No face detected")
	assert.NotEmpty(t, body.Tip)
	require.NotNil(t, body.FacesDetected)
	assert.Equal(t, 0, *body.FacesDetected)

	rec = env.do(t, http.MethodPost, "/api/detect-face", `{"image":"bm90IGFuIGltYWdl"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Message, "Failed to process image")
}

func TestHistoryAndSearch(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	for _, text := range []string{"so happy", "very lonely today", "very happy again"} {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/detect", `{"text":"`+text+`"}`).Code)
	}

	rec := env.do(t, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[models.HistoryResponse](t, rec)
	require.Len(t, hist.History, 3)
	assert.Equal(t, "very happy again", hist.History[0].Text)

	rec = env.do(t, http.MethodGet, "/api/history?limit=1", "")
	assert.Len(t, decode[models.HistoryResponse](t, rec).History, 1)

	rec = env.do(t, http.MethodGet, "/api/history/search?emotion=HAPPY", "")
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[models.HistoryResponse](t, rec).History
	require.Len(t, found, 2)
	for _, e := range found {
		assert.Equal(t, "happy", e.Emotion)
	}

	rec = env.do(t, http.MethodGet, "/api/history/search?emotion=elated", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid emotion", decode[models.ErrorResponse](t, rec).Error)
}

func TestHistoryFallsBackToMemory(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/detect", `{"text":"so happy"}`).Code)
	require.NoError(t, env.store.Close())

	rec := env.do(t, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[models.HistoryResponse](t, rec)
	require.Len(t, hist.History, 1)
	assert.Equal(t, "so happy", hist.History[0].Text)

	health := decode[models.HealthStatus](t, env.do(t, http.MethodGet, "/health", ""))
	assert.Equal(t, "degraded", health.Status)
	assert.False(t, health.Database)
}

func TestStatsInfoAndMetrics(t *testing.T) {
	env := newTestEnv(t, Options{Version: "test"}, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/detect", `{"text":"so happy"}`).Code)

	stats := decode[models.StatsResponse](t, env.do(t, http.MethodGet, "/api/stats", ""))
	assert.True(t, stats.Success)
	assert.Equal(t, 1, stats.Stats.Total)
	assert.Equal(t, 1, stats.Stats.Emotions["happy"])

	info := decode[models.DatabaseInfoResponse](t, env.do(t, http.MethodGet, "/api/database-info", ""))
	assert.Equal(t, 1, info.Info.TotalRecords)
	assert.Equal(t, "sqlite3", info.Info.Driver)

	metrics := decode[map[string]interface{}](t, env.do(t, http.MethodGet, "/api/metrics", ""))
	assert.Equal(t, 1.0, metrics["total_detections"])
	assert.Equal(t, 0.0, metrics["active_clients"])

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "emotion_detections_total")

	health := decode[models.HealthStatus](t, env.do(t, http.MethodGet, "/health", ""))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, ServiceName, health.Service)
	assert.Equal(t, "test", health.Version)
	assert.True(t, health.Database)
	assert.False(t, health.FaceClassifier)
}

func TestAdminEndpoints(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	env := newTestEnv(t, Options{AdminKeyHash: string(hash)}, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/detect", `{"text":"so happy"}`).Code)

	rec := env.do(t, http.MethodPost, "/api/admin/prune?days=7", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/prune?days=7", "", "X-Admin-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/prune?days=zero", "", "X-Admin-Key", "s3cret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/prune?days=7", "", "X-Admin-Key", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), decode[models.PruneResponse](t, rec).Deleted)

	rec = env.do(t, http.MethodPost, "/api/admin/records", "", "X-Admin-Key", "s3cret")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/admin/records", "", "X-Admin-Key", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[models.PruneResponse](t, rec).Deleted)
}

func TestAdminDisabledWithoutHash(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	rec := env.do(t, http.MethodDelete, "/api/admin/records", "", "X-Admin-Key", "anything")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddleware(t *testing.T) {
	env := newTestEnv(t, Options{CORSOrigin: "http://localhost:5000"}, nil)

	rec := env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	notFound := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, "Not found", notFound.Error)
	assert.Equal(t, "The requested resource was not found", notFound.Message)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "http://localhost:5000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(t, http.MethodOptions, "/api/detect", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/health", "", "X-Request-ID", "req-42")
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	panicky := env.api.middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec = httptest.NewRecorder()
	panicky.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode[models.ErrorResponse](t, rec).Error)
}

func TestProcessingErrorBodies(t *testing.T) {
	boom := errors.New("estimator down")

	status, body := textError(boom, 40, zap.NewNop())
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Processing error", body.Error)
	assert.Equal(t, "An error occurred while processing your request", body.Message)

	status, body = faceError(boom, zap.NewNop())
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "An error occurred while processing your image: estimator down", body.Message)
}
