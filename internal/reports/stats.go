// Package reports aggregates attendance records into statistics, chart series and
// exportable documents. Every function is a pure read over the records it is given.
package reports

import (
	"math"

	"checkclass/internal/domain"
)

// Stats counts records by status.
type Stats struct {
	Total      int `json:"total"`
	Present    int `json:"present"`
	Absent     int `json:"absent"`
	Late       int `json:"late"`
	Justified  int `json:"justified"`
	Percentage int `json:"percentage"`
}

func (s *Stats) add(st domain.Status) {
	s.Total++
	switch st {
	case domain.StatusPresent:
		s.Present++
	case domain.StatusAbsent:
		s.Absent++
	case domain.StatusLate:
		s.Late++
	case domain.StatusJustified:
		s.Justified++
	}
}

func (s *Stats) finish() { s.Percentage = Percentage(s.Present, s.Total) }

// Percentage is present/total as a rounded whole percent, 0 when total is 0.
func Percentage(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// ComputeStats counts recs by status.
func ComputeStats(recs []domain.AttendanceRecord) Stats {
	var s Stats
	for _, r := range recs {
		s.add(r.Status)
	}
	s.finish()
	return s
}

// ClassStats is Stats for one class.
type ClassStats struct {
	ClassID   string `json:"classId"`
	ClassName string `json:"className"`
	Stats
}

// GroupByClass computes Stats per class id. The class name is the first non-empty name seen.
func GroupByClass(recs []domain.AttendanceRecord) map[string]ClassStats {
	out := make(map[string]ClassStats)
	for _, r := range recs {
		cs, ok := out[r.ClassID]
		if !ok {
			cs.ClassID = r.ClassID
		}
		if cs.ClassName == "" {
			cs.ClassName = r.ClassName
		}
		cs.add(r.Status)
		out[r.ClassID] = cs
	}
	for id, cs := range out {
		cs.finish()
		out[id] = cs
	}
	return out
}

// MonthBucket holds per-status counts of one calendar month.
type MonthBucket struct {
	Label     string `json:"label"`
	Present   int    `json:"present"`
	Absent    int    `json:"absent"`
	Late      int    `json:"late"`
	Justified int    `json:"justified"`
}

// UnknownMonth labels records whose date cannot be parsed.
const UnknownMonth = "unknown"

// GroupByMonth buckets recs by YYYY-MM of their date, in order of first appearance.
func GroupByMonth(recs []domain.AttendanceRecord) []MonthBucket {
	var out []MonthBucket
	idx := make(map[string]int)
	for _, r := range recs {
		label := UnknownMonth
		if d, ok := r.Day(); ok {
			label = d.Format("2006-01")
		}
		i, ok := idx[label]
		if !ok {
			i = len(out)
			idx[label] = i
			out = append(out, MonthBucket{Label: label})
		}
		b := &out[i]
		switch r.Status {
		case domain.StatusPresent:
			b.Present++
		case domain.StatusAbsent:
			b.Absent++
		case domain.StatusLate:
			b.Late++
		case domain.StatusJustified:
			b.Justified++
		}
	}
	return out
}
