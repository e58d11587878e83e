package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"emotion-detector/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TimeLayout is the fixed-width UTC layout used for the timestamp column, so
// range filters compare correctly as text on every driver.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

const recordColumns = `id, text, emotion, confidence, all_emotions,
	sentiment_polarity, sentiment_subjectivity,
	detection_type, faces_detected, method, timestamp`

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// AddEmotion inserts a record and returns its id. A zero timestamp is set to
// the current time.
func (s *Store) AddEmotion(ctx context.Context, rec *models.EmotionRecord) (int64, error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	if rec.DetectionType == "" {
		rec.DetectionType = models.DetectionText
	}
	all := rec.AllEmotions
	if all == nil {
		all = map[string]float64{}
	}
	allJSON, err := json.Marshal(all)
	if err != nil {
		return 0, fmt.Errorf("encode all_emotions: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO emotions (
			text, emotion, confidence, all_emotions,
			sentiment_polarity, sentiment_subjectivity,
			detection_type, faces_detected, method, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		rec.Text, rec.Emotion, rec.Confidence, string(allJSON),
		rec.SentimentPolarity, rec.SentimentSubjectivity,
		rec.DetectionType, rec.FacesDetected, rec.Method, formatTime(rec.Timestamp),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert emotion: %w", err)
	}
	rec.ID = id

	s.log.Debug("emotion stored", zap.Int64("id", id), zap.String("emotion", rec.Emotion))
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.EmotionRecord, error) {
	var (
		rec       models.EmotionRecord
		text      sql.NullString
		all       sql.NullString
		polarity  sql.NullFloat64
		subj      sql.NullFloat64
		faces     sql.NullInt64
		method    sql.NullString
		timestamp string
	)
	err := row.Scan(&rec.ID, &text, &rec.Emotion, &rec.Confidence, &all,
		&polarity, &subj, &rec.DetectionType, &faces, &method, &timestamp)
	if err != nil {
		return rec, err
	}

	rec.Text = text.String
	rec.AllEmotions = map[string]float64{}
	if all.Valid && all.String != "" {
		if err := json.Unmarshal([]byte(all.String), &rec.AllEmotions); err != nil {
			return rec, fmt.Errorf("decode all_emotions for #%d: %w", rec.ID, err)
		}
	}
	if polarity.Valid {
		rec.SentimentPolarity = &polarity.Float64
	}
	if subj.Valid {
		rec.SentimentSubjectivity = &subj.Float64
	}
	if faces.Valid {
		n := int(faces.Int64)
		rec.FacesDetected = &n
	}
	if method.Valid {
		rec.Method = &method.String
	}
	rec.Timestamp, err = time.Parse(TimeLayout, timestamp)
	if err != nil {
		return rec, fmt.Errorf("parse timestamp for #%d: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]models.EmotionRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.EmotionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecentHistory returns the newest records first.
func (s *Store) RecentHistory(ctx context.Context, limit int) ([]models.EmotionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	recs, err := s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM emotions ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	return recs, nil
}

// SearchByEmotion returns the newest records with the given label.
func (s *Store) SearchByEmotion(ctx context.Context, emotion string, limit int) ([]models.EmotionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	recs, err := s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM emotions WHERE emotion = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		strings.ToLower(emotion), limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", emotion, err)
	}
	return recs, nil
}

// Get fetches one record by id.
func (s *Store) Get(ctx context.Context, id int64) (models.EmotionRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+recordColumns+` FROM emotions WHERE id = ?`), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("emotion #%d: %w", id, ErrNotFound)
	}
	return rec, err
}

func (s *Store) countBy(ctx context.Context, column string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM emotions GROUP BY `+column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

// Statistics aggregates totals, label and type counts, average confidence
// per label and per-day activity over the last seven days.
func (s *Store) Statistics(ctx context.Context) (models.Statistics, error) {
	var st models.Statistics
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emotions`).Scan(&st.Total); err != nil {
		return st, fmt.Errorf("count: %w", err)
	}

	var err error
	if st.Emotions, err = s.countBy(ctx, "emotion"); err != nil {
		return st, fmt.Errorf("emotion counts: %w", err)
	}
	if st.ByType, err = s.countBy(ctx, "detection_type"); err != nil {
		return st, fmt.Errorf("type counts: %w", err)
	}

	st.AvgConfidence = map[string]float64{}
	rows, err := s.db.QueryContext(ctx, `SELECT emotion, AVG(confidence) FROM emotions GROUP BY emotion`)
	if err != nil {
		return st, fmt.Errorf("avg confidence: %w", err)
	}
	for rows.Next() {
		var key string
		var avg float64
		if err := rows.Scan(&key, &avg); err != nil {
			rows.Close()
			return st, err
		}
		st.AvgConfidence[key] = math.Round(avg*1000) / 1000
	}
	rows.Close()

	st.DailyActivity = map[string]int{}
	cutoff := formatTime(s.now().Add(-7 * 24 * time.Hour))
	rows, err = s.db.QueryContext(ctx, s.rebind(`
		SELECT substr(timestamp, 1, 10), COUNT(*)
		FROM emotions
		WHERE timestamp >= ?
		GROUP BY substr(timestamp, 1, 10)`), cutoff)
	if err != nil {
		return st, fmt.Errorf("daily activity: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return st, err
		}
		st.DailyActivity[day] = n
	}
	return st, rows.Err()
}

// DeleteOlderThan removes records older than the given number of days.
func (s *Store) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := formatTime(s.now().Add(-time.Duration(days) * 24 * time.Hour))
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM emotions WHERE timestamp < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old records: %w", err)
	}
	n, _ := res.RowsAffected()
	s.log.Info("old records deleted", zap.Int("days", days), zap.Int64("deleted", n))
	return n, nil
}

// ClearAll removes every record.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM emotions`)
	if err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	n, _ := res.RowsAffected()
	s.log.Info("records cleared", zap.Int64("deleted", n))
	return n, nil
}

// Info reports record count and on-disk size.
func (s *Store) Info(ctx context.Context) (models.DatabaseInfo, error) {
	info := models.DatabaseInfo{Path: s.path, Driver: s.driver}
	if s.driver == "pgx" {
		info.Path = "postgres"
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emotions`).Scan(&info.TotalRecords); err != nil {
		return info, fmt.Errorf("count: %w", err)
	}

	switch s.driver {
	case "pgx":
		if err := s.db.QueryRowContext(ctx, `SELECT pg_database_size(current_database())`).Scan(&info.SizeBytes); err != nil {
			return info, fmt.Errorf("database size: %w", err)
		}
	default:
		if fi, err := os.Stat(s.path); err == nil {
			info.SizeBytes = fi.Size()
		}
	}
	info.SizeMB = math.Round(float64(info.SizeBytes)/(1024*1024)*100) / 100
	return info, nil
}
