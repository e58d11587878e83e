package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"emotion-detector/internal/models"
)

const previewLen = 50

var (
	titleColor  = color.New(color.FgCyan, color.Bold)
	headerColor = color.New(color.FgMagenta, color.Bold)
	valueColor  = color.New(color.FgHiBlue, color.Bold)
	mutedColor  = color.New(color.FgHiBlack)
)

func section(w io.Writer, title string) {
	titleColor.Fprintf(w, "\n[%s]\n", title)
}

// renderTable writes a header row followed by rows.
func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	head := make([]string, len(header))
	for i, h := range header {
		head[i] = headerColor.Sprint(h)
	}
	if err := table.Append(head); err != nil {
		return fmt.Errorf("append header row: %w", err)
	}
	for _, r := range rows {
		if err := table.Append(r); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	return table.Render()
}

func writeInfo(w io.Writer, info models.DatabaseInfo) error {
	section(w, "DATABASE INFORMATION")
	return renderTable(w, []string{"Field", "Value"}, [][]string{
		{"Database", info.Path},
		{"Driver", info.Driver},
		{"Total Records", valueColor.Sprint(info.TotalRecords)},
		{"Size", fmt.Sprintf("%.2f MB (%d bytes)", info.SizeMB, info.SizeBytes)},
	})
}

type countRow struct {
	key   string
	count int
}

// sortedCounts orders by count descending, then key ascending.
func sortedCounts(m map[string]int) []countRow {
	out := make([]countRow, 0, len(m))
	for k, v := range m {
		out = append(out, countRow{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

func writeStats(w io.Writer, stats models.Statistics) error {
	section(w, "STATISTICS")
	fmt.Fprintf(w, "Total Detections: %s\n", valueColor.Sprint(stats.Total))

	if len(stats.Emotions) > 0 {
		section(w, "Emotion Breakdown")
		var rows [][]string
		for _, c := range sortedCounts(stats.Emotions) {
			rows = append(rows, []string{c.key, strconv.Itoa(c.count), percent(c.count, stats.Total)})
		}
		if err := renderTable(w, []string{"Emotion", "Count", "Share"}, rows); err != nil {
			return err
		}
	}

	if len(stats.ByType) > 0 {
		section(w, "Detection Types")
		var rows [][]string
		for _, c := range sortedCounts(stats.ByType) {
			rows = append(rows, []string{c.key, strconv.Itoa(c.count)})
		}
		if err := renderTable(w, []string{"Type", "Count"}, rows); err != nil {
			return err
		}
	}

	if len(stats.AvgConfidence) > 0 {
		section(w, "Average Confidence by Emotion")
		labels := make([]string, 0, len(stats.AvgConfidence))
		for k := range stats.AvgConfidence {
			labels = append(labels, k)
		}
		sort.Slice(labels, func(i, j int) bool {
			a, b := stats.AvgConfidence[labels[i]], stats.AvgConfidence[labels[j]]
			if a != b {
				return a > b
			}
			return labels[i] < labels[j]
		})
		var rows [][]string
		for _, l := range labels {
			rows = append(rows, []string{l, fmt.Sprintf("%.1f%%", stats.AvgConfidence[l]*100)})
		}
		if err := renderTable(w, []string{"Emotion", "Confidence"}, rows); err != nil {
			return err
		}
	}

	if len(stats.DailyActivity) > 0 {
		section(w, "Daily Activity - Last 7 Days")
		days := make([]string, 0, len(stats.DailyActivity))
		for d := range stats.DailyActivity {
			days = append(days, d)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(days)))
		var rows [][]string
		for _, d := range days {
			rows = append(rows, []string{d, strconv.Itoa(stats.DailyActivity[d])})
		}
		if err := renderTable(w, []string{"Date", "Detections"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func preview(text string) string {
	if text == "" {
		return "N/A"
	}
	if utf8.RuneCountInString(text) <= previewLen {
		return text
	}
	return string([]rune(text)[:previewLen]) + "..."
}

func writeHistory(w io.Writer, title string, recs []models.EmotionRecord) error {
	section(w, title)
	if len(recs) == 0 {
		mutedColor.Fprintln(w, "No records found in database.")
		return nil
	}

	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		faces, method := "", ""
		if r.FacesDetected != nil {
			faces = strconv.Itoa(*r.FacesDetected)
		}
		if r.Method != nil {
			method = *r.Method
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.DetectionType,
			r.Emotion,
			fmt.Sprintf("%.1f%%", r.Confidence*100),
			preview(r.Text),
			r.Timestamp.Format("2006-01-02 15:04:05"),
			faces,
			method,
		})
	}
	return renderTable(w, []string{"ID", "Type", "Emotion", "Confidence", "Text", "Time", "Faces", "Method"}, rows)
}
