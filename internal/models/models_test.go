package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short"))

	exact := strings.Repeat("a", 100)
	assert.Equal(t, exact, Truncate(exact))

	long := strings.Repeat("b", 150)
	got := Truncate(long)
	assert.Equal(t, strings.Repeat("b", 100)+"...", got)
}

func TestRecordEntry(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := EmotionRecord{
		ID:            7,
		Emotion:       "calm",
		Confidence:    0.4,
		DetectionType: DetectionFace,
		Timestamp:     ts,
	}

	e := rec.Entry()
	assert.Equal(t, "Facial expression", e.Text)
	assert.Equal(t, int64(7), e.ID)
	assert.Equal(t, DetectionFace, e.Type)
	assert.Equal(t, ts, e.Timestamp)
}
