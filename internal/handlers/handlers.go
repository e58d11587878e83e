package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"emotion-detector/internal/emotion"
	"emotion-detector/internal/models"
	"emotion-detector/internal/services"
)

const (
	ServiceName = "AI Emotion Detection"

	detectTimeout = 30 * time.Second
	queryTimeout  = 5 * time.Second
	maxLimit      = 1000
)

var jsonc = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is the part of the database the API reads and prunes.
type Store interface {
	RecentHistory(ctx context.Context, limit int) ([]models.EmotionRecord, error)
	SearchByEmotion(ctx context.Context, emotion string, limit int) ([]models.EmotionRecord, error)
	Statistics(ctx context.Context) (models.Statistics, error)
	Info(ctx context.Context) (models.DatabaseInfo, error)
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
	ClearAll(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

type Options struct {
	Version         string
	CORSOrigin      string
	AdminKeyHash    string
	HistoryLimit    int
	MaxBodyBytes    int64
	SentimentSource string
}

type API struct {
	detector *services.Detector
	store    Store
	hub      *Hub
	opts     Options
	log      *zap.Logger
}

func NewAPI(detector *services.Detector, store Store, hub *Hub, opts Options, log *zap.Logger) *API {
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 50 << 20
	}
	return &API{detector: detector, store: store, hub: hub, opts: opts, log: log}
}

// Routes builds the HTTP handler with every endpoint and the common
// middleware applied.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", a.handleHealth)
	mux.HandleFunc("/api/health", a.handleHealth)
	mux.HandleFunc("/api/detect", a.handleDetect)
	mux.HandleFunc("/api/detect-face", a.handleDetectFace)
	mux.HandleFunc("/api/history", a.handleHistory)
	mux.HandleFunc("/api/history/search", a.handleSearch)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/database-info", a.handleDatabaseInfo)
	mux.HandleFunc("/api/metrics", a.handleMetrics)
	mux.Handle("/metrics", a.detector.Metrics().Handler())
	mux.HandleFunc("/api/admin/prune", a.requireAdmin(a.handlePrune))
	mux.HandleFunc("/api/admin/records", a.requireAdmin(a.handleClear))
	if a.hub != nil {
		mux.HandleFunc("/ws", a.hub.ServeWS)
	}
	mux.HandleFunc("/", a.handleNotFound)

	return a.middleware(mux)
}

func enableCORS(w http.ResponseWriter, origin string) {
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Key, X-Request-ID")
}

func (a *API) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		enableCORS(w, a.opts.CORSOrigin)

		defer func() {
			if rec := recover(); rec != nil {
				a.log.Error("handler panic",
					zap.String("request_id", reqID),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))
				writeError(w, http.StatusInternalServerError, "Internal server error", "An internal error occurred")
			}
		}()

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)

		a.log.Debug("request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	jsonc.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, title, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: title, Message: message})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method+" is not supported here")
		return false
	}
	return true
}

// queryLimit reads ?limit=, falling back to def for missing or bad values.
func queryLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func (a *API) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found", "The requested resource was not found")
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	status := models.HealthStatus{
		Status:          "healthy",
		Service:         ServiceName,
		Version:         a.opts.Version,
		Database:        a.store.Ping(ctx) == nil,
		FaceClassifier:  a.detector.FaceAvailable(ctx),
		UptimeSeconds:   int64(a.detector.Metrics().Uptime().Seconds()),
		SentimentSource: a.opts.SentimentSource,
	}
	if a.hub != nil {
		status.ActiveClients = a.hub.Count()
	}
	if !status.Database {
		status.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, status)
}

func textResponse(d *services.Detection) models.TextDetectionResponse {
	resp := models.TextDetectionResponse{
		Success:     true,
		Emotion:     d.Record.Emotion,
		Confidence:  d.Record.Confidence,
		AllEmotions: d.Record.AllEmotions,
		TextLength:  utf8.RuneCountInString(d.Record.Text),
		Timestamp:   d.Record.Timestamp,
	}
	if s := d.Result.Sentiment; s != nil {
		resp.Sentiment = models.Sentiment{Polarity: s.Polarity, Subjectivity: s.Subjectivity}
	}
	return resp
}

func faceResponse(d *services.Detection) models.FaceDetectionResponse {
	return models.FaceDetectionResponse{
		Success:       true,
		Emotion:       d.Record.Emotion,
		Confidence:    d.Record.Confidence,
		AllEmotions:   d.Record.AllEmotions,
		FacesDetected: d.Result.FaceCount,
		Method:        d.Result.Method,
		Timestamp:     d.Record.Timestamp,
	}
}

// textError maps a DetectText error to a status and error body.
func textError(err error, maxText int, log *zap.Logger) (int, models.ErrorResponse) {
	switch {
	case errors.Is(err, services.ErrEmptyText):
		return http.StatusBadRequest, models.ErrorResponse{Error: "Empty text", Message: "Please provide non-empty text"}
	case errors.Is(err, services.ErrTextTooLong):
		return http.StatusBadRequest, models.ErrorResponse{
			Error:   "Text too long",
			Message: fmt.Sprintf("Please provide text with less than %d characters", maxText),
		}
	default:
		log.Error("text detection failed", zap.Error(err))
		return http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Processing error",
			Message: "An error occurred while processing your request",
		}
	}
}

// faceError maps a DetectFace error to a status and error body.
func faceError(err error, log *zap.Logger) (int, models.ErrorResponse) {
	var ff *services.FaceFailure
	if errors.As(err, &ff) {
		failed := false
		return http.StatusBadRequest, models.ErrorResponse{
			Success:       &failed,
			Error:         "Detection failed",
			Message:       ff.Message,
			Tip:           ff.Tip,
			FacesDetected: ff.FacesDetected,
		}
	}
	log.Error("face detection failed", zap.Error(err))
	return http.StatusInternalServerError, models.ErrorResponse{
		Error:   "Processing error",
		Message: "An error occurred while processing your image: " + err.Error(),
	}
}

func (a *API) handleDetect(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req models.DetectTextRequest
	if err := jsonc.NewDecoder(http.MaxBytesReader(w, r.Body, a.opts.MaxBodyBytes)).Decode(&req); err != nil || req.Text == nil {
		writeError(w, http.StatusBadRequest, "No text provided", "Please provide text in the request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), detectTimeout)
	defer cancel()

	det, err := a.detector.DetectText(ctx, *req.Text)
	if err != nil {
		status, body := textError(err, a.detector.MaxTextLength(), a.log)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, textResponse(det))
}

func (a *API) handleDetectFace(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req models.DetectFaceRequest
	if err := jsonc.NewDecoder(http.MaxBytesReader(w, r.Body, a.opts.MaxBodyBytes)).Decode(&req); err != nil || req.Image == nil {
		writeError(w, http.StatusBadRequest, "No image provided", "Please provide a base64 encoded image")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), detectTimeout)
	defer cancel()

	det, err := a.detector.DetectFace(ctx, *req.Image)
	if err != nil {
		status, body := faceError(err, a.log)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, faceResponse(det))
}

func entries(recs []models.EmotionRecord) []models.HistoryEntry {
	out := make([]models.HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Entry())
	}
	return out
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	limit := queryLimit(r, a.opts.HistoryLimit)

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	recs, err := a.store.RecentHistory(ctx, limit)
	if err != nil {
		a.log.Warn("history query failed, serving in-memory history", zap.Error(err))
		writeJSON(w, http.StatusOK, models.HistoryResponse{Success: true, History: a.detector.Recent(limit)})
		return
	}
	writeJSON(w, http.StatusOK, models.HistoryResponse{Success: true, History: entries(recs)})
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	label, err := emotion.ParseLabel(r.URL.Query().Get("emotion"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid emotion", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	recs, err := a.store.SearchByEmotion(ctx, label.String(), queryLimit(r, 50))
	if err != nil {
		a.log.Error("search failed", zap.String("emotion", label.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.HistoryResponse{Success: true, History: entries(recs)})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	stats, err := a.store.Statistics(ctx)
	if err != nil {
		a.log.Error("statistics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.StatsResponse{Success: true, Stats: stats})
}

func (a *API) handleDatabaseInfo(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	info, err := a.store.Info(ctx)
	if err != nil {
		a.log.Error("database info failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.DatabaseInfoResponse{Success: true, Info: info})
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap := a.detector.Metrics().Snapshot()
	if a.hub != nil {
		snap["active_clients"] = a.hub.Count()
	}
	snap["timestamp"] = time.Now().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, snap)
}

// requireAdmin checks X-Admin-Key against the configured bcrypt hash. With
// no hash configured the admin endpoints are disabled.
func (a *API) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.opts.AdminKeyHash == "" {
			writeError(w, http.StatusForbidden, "Forbidden", "Admin endpoints are disabled")
			return
		}
		key := r.Header.Get("X-Admin-Key")
		if key == "" || bcrypt.CompareHashAndPassword([]byte(a.opts.AdminKeyHash), []byte(key)) != nil {
			a.log.Warn("admin request rejected", zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
			writeError(w, http.StatusUnauthorized, "Unauthorized", "Invalid admin key")
			return
		}
		next(w, r)
	}
}

func (a *API) handlePrune(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid days", "days must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	n, err := a.store.DeleteOlderThan(ctx, days)
	if err != nil {
		a.log.Error("prune failed", zap.Int("days", days), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error", err.Error())
		return
	}
	a.log.Info("records pruned", zap.Int("days", days), zap.Int64("deleted", n))
	writeJSON(w, http.StatusOK, models.PruneResponse{Success: true, Deleted: n})
}

func (a *API) handleClear(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	n, err := a.store.ClearAll(ctx)
	if err != nil {
		a.log.Error("clear failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error", err.Error())
		return
	}
	a.log.Info("all records cleared", zap.Int64("deleted", n))
	writeJSON(w, http.StatusOK, models.PruneResponse{Success: true, Deleted: n})
}
