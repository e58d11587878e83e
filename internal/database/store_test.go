package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"emotion-detector/internal/models"
)

var fixedNow = time.Date(2026, 5, 20, 15, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emotions.db")
	s, err := Open(context.Background(), Options{Driver: "sqlite3", DSN: path}, zap.NewNop())
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func addRecord(t *testing.T, s *Store, emotion, kind string, confidence float64, ts time.Time) int64 {
	t.Helper()
	rec := &models.EmotionRecord{
		Text:          "sample " + emotion,
		Emotion:       emotion,
		Confidence:    confidence,
		AllEmotions:   map[string]float64{emotion: confidence},
		DetectionType: kind,
		Timestamp:     ts,
	}
	id, err := s.AddEmotion(context.Background(), rec)
	require.NoError(t, err)
	return id
}

func TestAddAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.EmotionRecord{
		Text:                  "I am so happy today!",
		Emotion:               "happy",
		Confidence:            0.92,
		AllEmotions:           map[string]float64{"happy": 0.92, "sad": 0.05, "neutral": 0.03},
		SentimentPolarity:     ptr(0.8),
		SentimentSubjectivity: ptr(0.9),
	}
	id, err := s.AddEmotion(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, fixedNow, rec.Timestamp)
	assert.Equal(t, models.DetectionText, rec.DetectionType)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "I am so happy today!", got.Text)
	assert.Equal(t, rec.AllEmotions, got.AllEmotions)
	require.NotNil(t, got.SentimentPolarity)
	assert.Equal(t, 0.8, *got.SentimentPolarity)
	assert.Nil(t, got.FacesDetected)
	assert.Nil(t, got.Method)
	assert.True(t, fixedNow.Equal(got.Timestamp))

	_, err = s.Get(ctx, id+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFaceRecordFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.EmotionRecord{
		Text:          "Facial expression detected (2 face(s))",
		Emotion:       "excited",
		Confidence:    0.583,
		DetectionType: models.DetectionFace,
		FacesDetected: ptr(2),
		Method:        ptr("deepface_enhanced"),
	}
	id, err := s.AddEmotion(ctx, rec)
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.FacesDetected)
	assert.Equal(t, 2, *got.FacesDetected)
	assert.Equal(t, "deepface_enhanced", *got.Method)
	assert.Nil(t, got.SentimentPolarity)
	assert.Empty(t, got.AllEmotions)
}

func TestRecentHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	addRecord(t, s, "sad", models.DetectionText, 0.5, fixedNow.Add(-3*time.Hour))
	addRecord(t, s, "happy", models.DetectionText, 0.7, fixedNow.Add(-1*time.Hour))
	addRecord(t, s, "calm", models.DetectionFace, 0.4, fixedNow.Add(-2*time.Hour))

	recs, err := s.RecentHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "happy", recs[0].Emotion)
	assert.Equal(t, "calm", recs[1].Emotion)

	recs, err = s.RecentHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestSearchByEmotion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	addRecord(t, s, "angry", models.DetectionText, 0.6, fixedNow.Add(-time.Hour))
	addRecord(t, s, "angry", models.DetectionFace, 0.8, fixedNow)
	addRecord(t, s, "fear", models.DetectionText, 0.9, fixedNow)

	recs, err := s.SearchByEmotion(ctx, "ANGRY", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 0.8, recs[0].Confidence)

	recs, err = s.SearchByEmotion(ctx, "bored", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	addRecord(t, s, "happy", models.DetectionText, 0.9, fixedNow)
	addRecord(t, s, "happy", models.DetectionText, 0.6, fixedNow.Add(-24*time.Hour))
	addRecord(t, s, "happy", models.DetectionFace, 0.5, fixedNow.Add(-24*time.Hour))
	addRecord(t, s, "sad", models.DetectionFace, 0.4, fixedNow.Add(-30*24*time.Hour))

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, map[string]int{"happy": 3, "sad": 1}, st.Emotions)
	assert.Equal(t, map[string]int{"text": 2, "face": 2}, st.ByType)
	assert.Equal(t, 0.667, st.AvgConfidence["happy"])
	assert.Equal(t, 0.4, st.AvgConfidence["sad"])
	assert.Equal(t, map[string]int{"2026-05-20": 1, "2026-05-19": 2}, st.DailyActivity)
}

func TestStatisticsEmpty(t *testing.T) {
	s := newTestStore(t)

	st, err := s.Statistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Total)
	assert.Empty(t, st.Emotions)
	assert.NotNil(t, st.DailyActivity)
}

func TestDeleteOlderThanAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	addRecord(t, s, "happy", models.DetectionText, 0.9, fixedNow)
	addRecord(t, s, "sad", models.DetectionText, 0.9, fixedNow.Add(-10*24*time.Hour))
	addRecord(t, s, "sad", models.DetectionText, 0.9, fixedNow.Add(-40*24*time.Hour))

	n, err := s.DeleteOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.DeleteOlderThan(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Zero(t, info.TotalRecords)
}

func TestInfo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	addRecord(t, s, "calm", models.DetectionText, 1, fixedNow)

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.TotalRecords)
	assert.Equal(t, "sqlite3", info.Driver)
	assert.Equal(t, s.path, info.Path)
	assert.Greater(t, info.SizeBytes, int64(0))
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emotions.db")
	ctx := context.Background()

	s, err := Open(ctx, Options{DSN: path}, nil)
	require.NoError(t, err)
	addRecord(t, s, "tired", models.DetectionText, 0.3, fixedNow)
	require.NoError(t, s.Close())

	s, err = Open(ctx, Options{DSN: path}, nil)
	require.NoError(t, err)
	defer s.Close()
	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.TotalRecords)
}

func TestRebind(t *testing.T) {
	s := &Store{driver: "pgx"}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", s.rebind("SELECT 1 WHERE a = ? AND b = ?"))

	s.driver = "sqlite3"
	assert.Equal(t, "a = ?", s.rebind("a = ?"))
	assert.Equal(t, "postgres", (&Store{driver: "pgx"}).dialect())
}
