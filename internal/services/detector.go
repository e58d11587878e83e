package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"emotion-detector/internal/emotion"
	"emotion-detector/internal/models"
)

var (
	ErrEmptyText   = errors.New("empty text")
	ErrTextTooLong = errors.New("text too long")
)

const recentLimit = 50

// Recorder persists detections.
type Recorder interface {
	AddEmotion(ctx context.Context, rec *models.EmotionRecord) (int64, error)
}

// Detection pairs a classification with the record stored for it.
type Detection struct {
	Record models.EmotionRecord
	Result emotion.Result
}

type DetectorOptions struct {
	MaxTextLength int
	Face          FaceClassifier
	Publisher     Publisher
	Metrics       *Metrics
}

// Detector runs both modalities end to end: validate, classify, store,
// publish and count.
type Detector struct {
	text      *emotion.TextScorer
	face      FaceClassifier
	store     Recorder
	publisher Publisher
	metrics   *Metrics
	log       *zap.Logger
	maxText   int
	now       func() time.Time

	mu     sync.Mutex
	recent []models.HistoryEntry
}

func NewDetector(text *emotion.TextScorer, store Recorder, opts DetectorOptions, log *zap.Logger) *Detector {
	if opts.MaxTextLength <= 0 {
		opts.MaxTextLength = 5000
	}
	if opts.Publisher == nil {
		opts.Publisher = NopPublisher{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	return &Detector{
		text:      text,
		face:      opts.Face,
		store:     store,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		log:       log,
		maxText:   opts.MaxTextLength,
		now:       time.Now,
	}
}

func (d *Detector) MaxTextLength() int {
	return d.maxText
}

func (d *Detector) Metrics() *Metrics {
	return d.metrics
}

// DetectText classifies and stores free text. Surrounding whitespace is
// trimmed first; blank input returns ErrEmptyText.
func (d *Detector) DetectText(ctx context.Context, text string) (*Detection, error) {
	start := time.Now()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if n := utf8.RuneCountInString(text); n > d.maxText {
		return nil, fmt.Errorf("%w: %d characters, limit %d", ErrTextTooLong, n, d.maxText)
	}

	res, err := d.text.Score(ctx, text)
	if err != nil {
		d.metrics.RecordError(string(emotion.ModalityText))
		return nil, err
	}

	rec := models.EmotionRecord{
		Text:          text,
		Emotion:       res.Label.String(),
		Confidence:    res.Confidence,
		AllEmotions:   res.Distribution.Strings(),
		DetectionType: models.DetectionText,
		Timestamp:     d.now(),
	}
	if res.Sentiment != nil {
		p, s := res.Sentiment.Polarity, res.Sentiment.Subjectivity
		rec.SentimentPolarity, rec.SentimentSubjectivity = &p, &s
	}
	if err := d.persist(ctx, &rec); err != nil {
		d.metrics.RecordError(string(emotion.ModalityText))
		return nil, err
	}

	d.metrics.RecordDetection(string(emotion.ModalityText), rec.Emotion, time.Since(start))
	d.log.Info("text emotion detected",
		zap.Int64("id", rec.ID),
		zap.String("emotion", rec.Emotion),
		zap.Float64("confidence", rec.Confidence),
		zap.Int("text_length", utf8.RuneCountInString(text)))
	return &Detection{Record: rec, Result: res}, nil
}

// DetectFace classifies a base64 image. Anything short of a result is
// reported as a *FaceFailure; other errors mean the detection could not be
// stored.
func (d *Detector) DetectFace(ctx context.Context, encoded string) (*Detection, error) {
	start := time.Now()
	modality := string(emotion.ModalityFace)

	if d.face == nil {
		d.metrics.RecordError(modality)
		return nil, &FaceFailure{Message: "Face detection is not available", Err: ErrClassifierUnavailable}
	}

	img, _, err := DecodeImage(encoded)
	if err != nil {
		d.metrics.RecordError(modality)
		return nil, &FaceFailure{Message: "Failed to process image: " + err.Error(), Err: err}
	}

	analysis, err := d.face.Analyze(ctx, img)
	if err != nil {
		d.metrics.RecordError(modality)
		d.log.Warn("face analysis failed", zap.Error(err))
		if errors.Is(err, ErrNoFaceDetected) {
			return nil, noFaceFailure(err)
		}
		return nil, &FaceFailure{Message: "Detection failed: " + err.Error(), Err: err}
	}
	if len(analysis.Scores) == 0 {
		d.metrics.RecordError(modality)
		return nil, noFaceFailure(ErrNoFaceDetected)
	}

	faces := analysis.FacesDetected
	if faces < 1 {
		faces = 1
	}
	method := analysis.Method
	if method == "" {
		method = DefaultFaceMethod
	}
	res := emotion.ClassifyFace(analysis.Scores, faces, method)

	rec := models.EmotionRecord{
		Text:          fmt.Sprintf("Facial expression detected (%d face(s))", faces),
		Emotion:       res.Label.String(),
		Confidence:    res.Confidence,
		AllEmotions:   res.Distribution.Strings(),
		DetectionType: models.DetectionFace,
		FacesDetected: &faces,
		Method:        &method,
		Timestamp:     d.now(),
	}
	if err := d.persist(ctx, &rec); err != nil {
		d.metrics.RecordError(modality)
		return nil, err
	}

	d.metrics.RecordDetection(modality, rec.Emotion, time.Since(start))
	d.log.Info("face emotion detected",
		zap.Int64("id", rec.ID),
		zap.String("emotion", rec.Emotion),
		zap.String("source_dominant", analysis.Dominant),
		zap.Int("faces", faces))
	return &Detection{Record: rec, Result: res}, nil
}

func (d *Detector) persist(ctx context.Context, rec *models.EmotionRecord) error {
	if _, err := d.store.AddEmotion(ctx, rec); err != nil {
		return fmt.Errorf("store detection: %w", err)
	}

	d.mu.Lock()
	d.recent = append(d.recent, rec.Entry())
	if len(d.recent) > recentLimit {
		d.recent = d.recent[len(d.recent)-recentLimit:]
	}
	d.mu.Unlock()

	ev := DetectionEvent{
		ID:          rec.ID,
		Emotion:     rec.Emotion,
		Confidence:  rec.Confidence,
		Modality:    rec.DetectionType,
		AllEmotions: rec.AllEmotions,
		Timestamp:   rec.Timestamp,
	}
	if err := d.publisher.Publish(ctx, ev); err != nil {
		d.log.Warn("publish detection failed", zap.Int64("id", rec.ID), zap.Error(err))
	}
	return nil
}

// Recent returns up to limit in-memory entries, newest first.
func (d *Detector) Recent(limit int) []models.HistoryEntry {
	d.mu.Lock()
	defer d.mu.Unlock()

	if limit <= 0 || limit > len(d.recent) {
		limit = len(d.recent)
	}
	out := make([]models.HistoryEntry, 0, limit)
	for i := len(d.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, d.recent[i])
	}
	return out
}

// FaceAvailable pings the face classifier, if one is configured.
func (d *Detector) FaceAvailable(ctx context.Context) bool {
	if d.face == nil {
		return false
	}
	return d.face.Ping(ctx) == nil
}
